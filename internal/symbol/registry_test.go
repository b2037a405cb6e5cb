package symbol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nylonring/corert/internal/errs"
	"github.com/nylonring/corert/internal/object"
)

func TestInsertDuplicateRejected(t *testing.T) {
	r := NewRegistry()
	id := object.NewInterfaceId(1, 0)
	e := Export{Namespace: "mem", Name: "alloc", ID: id, Version: Version{1, 0, 0}}
	require.NoError(t, r.Insert(e))
	err := r.Insert(e)
	assert.True(t, errs.Is(err, errs.AlreadyExists))
}

func TestResolveVersionRule(t *testing.T) {
	r := NewRegistry()
	id := object.NewInterfaceId(1, 0)
	require.NoError(t, r.Insert(Export{Namespace: "mem", Name: "alloc", ID: id, Version: Version{2, 1, 0}}))

	// scenario 4: export 2.1.0 satisfies any requirement with major 2
	// and (minor, patch) <= (1, 0).
	_, ok := r.Resolve("mem", "alloc", id, Version{2, 0, 0})
	assert.True(t, ok)
	_, ok = r.Resolve("mem", "alloc", id, Version{2, 1, 0})
	assert.True(t, ok)
	_, ok = r.Resolve("mem", "alloc", id, Version{2, 2, 0})
	assert.False(t, ok, "minor too high must not match")
	_, ok = r.Resolve("mem", "alloc", id, Version{3, 0, 0})
	assert.False(t, ok, "major mismatch must not match")
}

func TestResolveWrongIDFails(t *testing.T) {
	r := NewRegistry()
	id := object.NewInterfaceId(1, 0)
	other := object.NewInterfaceId(1, 0)
	require.NoError(t, r.Insert(Export{Namespace: "mem", Name: "alloc", ID: id, Version: Version{1, 0, 0}}))
	_, ok := r.Resolve("mem", "alloc", other, Version{1, 0, 0})
	assert.False(t, ok)
}

func TestRemoveNamespaceLeavesOthersIntact(t *testing.T) {
	r := NewRegistry()
	id := object.NewInterfaceId(1, 0)
	require.NoError(t, r.Insert(Export{Namespace: "mem", Name: "alloc", ID: id, Version: Version{1, 0, 0}}))
	require.NoError(t, r.Insert(Export{Namespace: "core", Name: "x", ID: id, Version: Version{1, 0, 0}}))

	r.RemoveNamespace("mem")
	assert.Equal(t, 1, r.Count())
	_, ok := r.Resolve("core", "x", id, Version{1, 0, 0})
	assert.True(t, ok)
}

func TestNamespaceInclusion(t *testing.T) {
	r := NewRegistry()
	modA := "module-a"
	assert.False(t, r.Includes("core", modA))
	r.GrantNamespace("core", modA)
	assert.True(t, r.Includes("core", modA))
	r.RevokeNamespace("core", modA)
	assert.False(t, r.Includes("core", modA))
}

func TestLoadThenUnloadLeavesRegistryUnchanged(t *testing.T) {
	r := NewRegistry()
	id := object.NewInterfaceId(1, 0)
	before := r.Count()
	require.NoError(t, r.Insert(Export{Namespace: "ns", Name: "x", ID: id, Version: Version{1, 0, 0}}))
	r.RemoveNamespace("ns")
	assert.Equal(t, before, r.Count())
}
