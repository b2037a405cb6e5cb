package loaderbackend

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nylonring/corert/internal/abi"
	"github.com/nylonring/corert/internal/errs"
	"github.com/nylonring/corert/internal/module"
	"github.com/nylonring/corert/internal/object"
	"github.com/nylonring/corert/internal/symbol"
)

var hostVersion = abi.Version{Major: 1, Minor: 0}

func TestInProcessLoadRoundTrip(t *testing.T) {
	l := NewInProcess(hostVersion)
	decl := &abi.ModuleDeclaration{
		AbiVersion: abi.Version{Major: 1, Minor: 0},
		Load: func(path string, features []string) (*abi.ModuleBuilder, error) {
			return &abi.ModuleBuilder{
				Name: "greeter",
				Exports: []abi.ExportSpec{
					{Name: "greet", Namespace: "", ID: object.NewInterfaceId(1, 0), Version: symbol.Version{Major: 1}, Payload: "hello"},
				},
				Construct: func(imports map[string]any) (map[string]any, any, error) {
					return map[string]any{"greet": "hello"}, "state", nil
				},
			}, nil
		},
	}
	l.Register("./greeter", decl)

	desc, closer, err := l.Load(module.ModuleHandle{Path: "./greeter"})
	require.NoError(t, err)
	require.NotNil(t, closer)
	assert.Equal(t, "greeter", desc.Name)
	require.Len(t, desc.Exports, 1)
	assert.Equal(t, "greet", desc.Exports[0].Name)

	inst := module.NewRootInstance()
	require.NoError(t, desc.Construct(inst))
	assert.Equal(t, "state", inst.State)
	assert.Equal(t, "hello", inst.Exports["greet"])
}

func TestInProcessLoadNotFound(t *testing.T) {
	l := NewInProcess(hostVersion)
	_, _, err := l.Load(module.ModuleHandle{Path: "./missing"})
	assert.True(t, errs.Is(err, errs.NotFound))
}

func TestInProcessLoadVersionMismatchRejected(t *testing.T) {
	l := NewInProcess(hostVersion)
	decl := &abi.ModuleDeclaration{
		AbiVersion: abi.Version{Major: 2, Minor: 0},
		Load: func(path string, features []string) (*abi.ModuleBuilder, error) {
			t.Fatal("Load should not be called for an incompatible ABI version")
			return nil, nil
		},
	}
	l.Register("./v2mod", decl)

	_, _, err := l.Load(module.ModuleHandle{Path: "./v2mod"})
	assert.True(t, errs.Is(err, errs.Unavailable))
}

func TestInProcessLoadEntryPointPanicGuarded(t *testing.T) {
	l := NewInProcess(hostVersion)
	decl := &abi.ModuleDeclaration{
		AbiVersion: abi.Version{Major: 1, Minor: 0},
		Load: func(path string, features []string) (*abi.ModuleBuilder, error) {
			panic("boom")
		},
	}
	l.Register("./panicky", decl)

	_, _, err := l.Load(module.ModuleHandle{Path: "./panicky"})
	assert.True(t, errs.Is(err, errs.Internal))
}
