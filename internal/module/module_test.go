package module

import (
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nylonring/corert/internal/errs"
	"github.com/nylonring/corert/internal/object"
	"github.com/nylonring/corert/internal/symbol"
)

type fakeLoader struct {
	byPath map[string]ExportDescriptor
}

func (f *fakeLoader) Load(h ModuleHandle) (ExportDescriptor, io.Closer, error) {
	d, ok := f.byPath[h.Path]
	if !ok {
		return ExportDescriptor{}, nil, errs.E("fakeLoader.Load", errs.NotFound, nil)
	}
	return d, nopCloser{}, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

func xID() object.InterfaceId { return object.NewInterfaceId(1, 0) }

// TestLinearModuleChain implements spec.md §8 scenario 1.
func TestLinearModuleChain(t *testing.T) {
	id := xID()
	loader := &fakeLoader{byPath: map[string]ExportDescriptor{
		"A": {
			Name:       "A",
			Namespaces: []string{"core"},
			Exports: []SymbolExport{
				{Name: "x", Namespace: "core", ID: id, Version: symbol.Version{Major: 1, Minor: 0, Patch: 0}, Ptr: 42},
			},
			Construct: func(inst *Instance) error {
				inst.Exports["x"] = 42
				return nil
			},
		},
		"B": {
			Name:    "B",
			Imports: []ImportRequirement{{Name: "x", Namespace: "core", ID: id, MinVersion: symbol.Version{Major: 1, Minor: 0, Patch: 0}}},
			Construct: func(inst *Instance) error {
				return nil
			},
		},
		"C": {
			Name:    "C",
			Imports: []ImportRequirement{{Name: "x", Namespace: "core", ID: id, MinVersion: symbol.Version{Major: 1, Minor: 0, Patch: 0}}},
			Construct: func(inst *Instance) error {
				return nil
			},
		},
	}}

	reg := symbol.NewRegistry()
	sub := NewSubsystem(reg, loader)

	infos, err := sub.LoadSet([]ModuleHandle{{Path: "A"}, {Path: "B"}, {Path: "C"}})
	require.NoError(t, err)
	require.Len(t, infos, 3)

	var a, b, c *ModuleInfo
	for _, i := range infos {
		switch i.Name {
		case "A":
			a = i
		case "B":
			b = i
		case "C":
			c = i
		}
	}
	require.NotNil(t, a)
	require.NotNil(t, b)
	require.NotNil(t, c)

	assert.True(t, sub.IsDependency(b, a))
	assert.True(t, sub.IsDependency(c, a))

	err = sub.Unload(a)
	assert.True(t, errs.Is(err, errs.FailedPrecondition), "A still has dependents")

	require.NoError(t, sub.Unload(b))
	require.NoError(t, sub.Unload(c))
	require.NoError(t, sub.Unload(a))
}

func TestLoadSetCycleRejected(t *testing.T) {
	id := xID()
	loader := &fakeLoader{byPath: map[string]ExportDescriptor{
		"A": {
			Name:       "A",
			Namespaces: []string{"ns"},
			Exports:    []SymbolExport{{Name: "a", Namespace: "ns", ID: id, Version: symbol.Version{Major: 1}}},
			Imports:    []ImportRequirement{{Name: "b", Namespace: "ns", ID: id, MinVersion: symbol.Version{Major: 1}}},
			Construct:  func(inst *Instance) error { return nil },
		},
		"B": {
			Name:       "B",
			Namespaces: []string{"ns"},
			Exports:    []SymbolExport{{Name: "b", Namespace: "ns", ID: id, Version: symbol.Version{Major: 1}}},
			Imports:    []ImportRequirement{{Name: "a", Namespace: "ns", ID: id, MinVersion: symbol.Version{Major: 1}}},
			Construct:  func(inst *Instance) error { return nil },
		},
	}}
	reg := symbol.NewRegistry()
	sub := NewSubsystem(reg, loader)

	_, err := sub.LoadSet([]ModuleHandle{{Path: "A"}, {Path: "B"}})
	assert.True(t, errs.Is(err, errs.FailedPrecondition))
	assert.Equal(t, 0, reg.Count(), "aborted batch must not mutate the registry")
}

func TestUnloadStrongCountBlocksUnload(t *testing.T) {
	id := xID()
	loader := &fakeLoader{byPath: map[string]ExportDescriptor{
		"A": {Name: "A", Exports: []SymbolExport{{Name: "x", Namespace: "ns", ID: id, Version: symbol.Version{Major: 1}}}, Construct: func(inst *Instance) error { return nil }},
	}}
	reg := symbol.NewRegistry()
	sub := NewSubsystem(reg, loader)
	infos, err := sub.LoadSet([]ModuleHandle{{Path: "A"}})
	require.NoError(t, err)
	a := infos[0]
	a.AddRef()

	err = sub.Unload(a)
	assert.True(t, errs.Is(err, errs.FailedPrecondition))

	a.Release()
	require.NoError(t, sub.Unload(a))
}

func TestConstructorFailureRollsBackBatch(t *testing.T) {
	id := xID()
	loader := &fakeLoader{byPath: map[string]ExportDescriptor{
		"A": {
			Name:    "A",
			Exports: []SymbolExport{{Name: "x", Namespace: "ns", ID: id, Version: symbol.Version{Major: 1}}},
			Construct: func(inst *Instance) error {
				return errs.E("A.construct", errs.Internal, nil)
			},
		},
	}}
	reg := symbol.NewRegistry()
	sub := NewSubsystem(reg, loader)
	_, err := sub.LoadSet([]ModuleHandle{{Path: "A"}})
	assert.Error(t, err)
	assert.Equal(t, 0, reg.Count())
	_, found := sub.FindByName("A")
	assert.False(t, found)
}
