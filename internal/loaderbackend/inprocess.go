// Package loaderbackend implements module.Loader: the single seam the
// module subsystem needs to turn a ModuleHandle into an
// ExportDescriptor. Two backends are provided, mirroring the teacher's
// split between its cgo-based plugin loader and the in-process
// constructor path its own examples/benchmarks use: InProcess (a
// registry of already-linked-in ModuleDeclarations, used by tests)
// and Native (build-tag gated, uses the standard library's
// plugin package against real .so files per spec.md §1's native
// loader-backend scoping).
package loaderbackend

import (
	"io"
	"sync"

	"github.com/nylonring/corert/internal/abi"
	"github.com/nylonring/corert/internal/errs"
	"github.com/nylonring/corert/internal/module"
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// InProcess is a module.Loader backed by an in-memory table of
// already-built ModuleDeclarations, keyed by the path a ModuleHandle
// names. It never dlopens anything — exactly the role the teacher's
// own `plugin-example`/`plugin-bench` mains fill when they construct a
// plugin's vtable directly instead of loading a shared object.
type InProcess struct {
	host abi.Version

	mu      sync.RWMutex
	entries map[string]*abi.ModuleDeclaration
}

// NewInProcess builds an empty in-process backend validating loaded
// modules against hostVersion.
func NewInProcess(hostVersion abi.Version) *InProcess {
	return &InProcess{host: hostVersion, entries: make(map[string]*abi.ModuleDeclaration)}
}

// Register installs decl under path, to be returned by a later Load.
func (l *InProcess) Register(path string, decl *abi.ModuleDeclaration) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries[path] = decl
}

// Load implements module.Loader.
func (l *InProcess) Load(handle module.ModuleHandle) (module.ExportDescriptor, io.Closer, error) {
	l.mu.RLock()
	decl, ok := l.entries[handle.Path]
	l.mu.RUnlock()
	if !ok {
		return module.ExportDescriptor{}, nil, errs.E("loaderbackend.Load", errs.NotFound, nil)
	}
	if err := decl.Validate(l.host); err != nil {
		return module.ExportDescriptor{}, nil, err
	}

	var builder *abi.ModuleBuilder
	if err := abi.Guard(func() error {
		b, err := decl.Load(handle.Path, nil)
		builder = b
		return err
	}); err != nil {
		return module.ExportDescriptor{}, nil, err
	}

	return BuildDescriptor(builder), nopCloser{}, nil
}

// BuildDescriptor adapts an ABI-facing ModuleBuilder into the internal
// ExportDescriptor shape the module subsystem operates on, wrapping
// Construct/Destruct so they take *module.Instance directly.
func BuildDescriptor(b *abi.ModuleBuilder) module.ExportDescriptor {
	exports := make([]module.SymbolExport, len(b.Exports))
	for i, e := range b.Exports {
		exports[i] = module.SymbolExport{Name: e.Name, Namespace: e.Namespace, ID: e.ID, Version: e.Version, Ptr: e.Payload}
	}
	imports := make([]module.ImportRequirement, len(b.Imports))
	for i, im := range b.Imports {
		imports[i] = module.ImportRequirement{Name: im.Name, Namespace: im.Namespace, ID: im.ID, MinVersion: im.MinVersion}
	}

	return module.ExportDescriptor{
		Name:        b.Name,
		Description: b.Description,
		Author:      b.Author,
		License:     b.License,
		Exports:     exports,
		Imports:     imports,
		Namespaces:  b.Namespaces,
		Construct: func(inst *module.Instance) error {
			if b.Construct == nil {
				return nil
			}
			exports, state, err := b.Construct(inst.Imports)
			if err != nil {
				return err
			}
			for k, v := range exports {
				inst.Exports[k] = v
			}
			inst.State = state
			return nil
		},
		Destruct: func(inst *module.Instance) {
			if b.Destruct != nil {
				b.Destruct(inst.State)
			}
		},
	}
}
