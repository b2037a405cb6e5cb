package pluginsdk

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nylonring/corert/internal/abi"
	"github.com/nylonring/corert/internal/errs"
	"github.com/nylonring/corert/internal/object"
	"github.com/nylonring/corert/internal/symbol"
)

func TestDeclarationBuildsRegisteredPlugin(t *testing.T) {
	p := NewPlugin("greeter").
		Description("says hello").
		Author("test").
		License("MIT").
		Namespace("greet").
		Export("greet", "greet", object.NewInterfaceId(1, 0), symbol.Version{Major: 1}).
		Import("logger", "", object.NewInterfaceId(2, 0), symbol.Version{Major: 1}).
		OnConstruct(func(imports map[string]any) (map[string]any, any, error) {
			return map[string]any{"greet": "hello"}, "state", nil
		}).
		OnDestruct(func(state any) {})

	RegisterPlugin(p)
	decl := Declaration(abi.Version{Major: 1, Minor: 0})

	require.NoError(t, decl.Validate(abi.Version{Major: 1, Minor: 0}))

	builder, err := decl.Load("./greeter", nil)
	require.NoError(t, err)
	assert.Equal(t, "greeter", builder.Name)
	require.Len(t, builder.Exports, 1)
	assert.Equal(t, "greet", builder.Exports[0].Name)
	require.Len(t, builder.Imports, 1)

	exports, state, err := builder.Construct(map[string]any{})
	require.NoError(t, err)
	assert.Equal(t, "hello", exports["greet"])
	assert.Equal(t, "state", state)
}

func TestDeclarationLoadFailsWithoutRegisteredPlugin(t *testing.T) {
	RegisterPlugin(nil)
	decl := Declaration(abi.Version{Major: 1, Minor: 0})

	_, err := decl.Load("./missing", nil)
	assert.True(t, errs.Is(err, errs.FailedPrecondition))
}
