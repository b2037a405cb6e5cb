package settings

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPathParsing(t *testing.T) {
	_, err := NewPath("object")
	require.NoError(t, err)
	_, err = NewPath("arr[2]")
	require.NoError(t, err)
	_, err = NewPath("map::arr[0][3]")
	require.NoError(t, err)

	_, err = NewPath("")
	assert.Error(t, err)
}

func TestWriteReadObject(t *testing.T) {
	reg := NewRegistry()

	old, existed, err := reg.Write("element", U64(5))
	require.NoError(t, err)
	assert.False(t, existed)
	assert.Equal(t, Item{}, old)

	item, found, err := reg.Read("element")
	require.NoError(t, err)
	require.True(t, found)
	v, ok := item.AsU64()
	require.True(t, ok)
	assert.Equal(t, uint64(5), v)

	old, existed, err = reg.Remove("element")
	require.NoError(t, err)
	assert.True(t, existed)
	ov, _ := old.AsU64()
	assert.Equal(t, uint64(5), ov)

	_, found, err = reg.Read("element")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestWriteArrayExtends(t *testing.T) {
	reg := NewRegistry()

	_, _, err := reg.Write("arr[9]", U64(5))
	require.NoError(t, err)

	item, found, err := reg.Read("arr")
	require.NoError(t, err)
	require.True(t, found)
	arr, ok := item.AsArray()
	require.True(t, ok)
	assert.Len(t, arr, 10)
	assert.Equal(t, KindNull, arr[0].Kind())

	last, found, err := reg.Read("arr[9]")
	require.NoError(t, err)
	require.True(t, found)
	lv, _ := last.AsU64()
	assert.Equal(t, uint64(5), lv)
}

func TestWriteNestedObject(t *testing.T) {
	reg := NewRegistry()
	_, _, err := reg.Write("obj", Object(nil))
	require.NoError(t, err)
	_, _, err = reg.Write("obj::element", Null())
	require.NoError(t, err)

	item, found, err := reg.Read("obj::element")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, KindNull, item.Kind())
}

func TestReadOrInitializes(t *testing.T) {
	reg := NewRegistry()

	val, err := reg.ReadOr("element", U64(5))
	require.NoError(t, err)
	v, _ := val.AsU64()
	assert.Equal(t, uint64(5), v)

	val, err = reg.ReadOr("element", U64(0))
	require.NoError(t, err)
	v, _ = val.AsU64()
	assert.Equal(t, uint64(5), v)
}

func TestSubscribeFiresOnWriteAndRemove(t *testing.T) {
	reg := NewRegistry()

	var wrote, removed int
	reg.Subscribe("element", Metadata{
		OnWrite:  func(string) { wrote++ },
		OnRemove: func(string) { removed++ },
	})

	_, _, err := reg.Write("element", Bool(true))
	require.NoError(t, err)
	assert.Equal(t, 1, wrote)

	_, _, err = reg.Remove("element")
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
}

func TestLoadJSONAndPrettyRoundTrip(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.LoadJSON([]byte(`{"a":1,"b":{"c":[1,2,3]},"d":null,"e":true,"f":1.5}`)))

	item, found, err := reg.Read("b::c[1]")
	require.NoError(t, err)
	require.True(t, found)
	v, _ := item.AsU64()
	assert.Equal(t, uint64(2), v)

	out, err := reg.PrettyJSON()
	require.NoError(t, err)
	assert.Contains(t, string(out), "\"a\": 1")
}

func TestWriteOnIncompatibleNodeErrors(t *testing.T) {
	reg := NewRegistry()
	_, _, err := reg.Write("s", String("hi"))
	require.NoError(t, err)

	_, _, err = reg.Write("s::nested", U64(1))
	assert.Error(t, err)
}
