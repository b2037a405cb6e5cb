//go:build linux || darwin

package loaderbackend

import (
	"io"
	"os"
	"path/filepath"
	"plugin"

	"github.com/nylonring/corert/internal/abi"
	"github.com/nylonring/corert/internal/errs"
	"github.com/nylonring/corert/internal/module"
)

// declarationSymbol is the name every module binary must export, per
// spec.md §6.
const declarationSymbol = "MODULE_DECLARATION"

// manifestFile is the sibling file a module directory must contain.
const manifestFile = "module.json"

// Native loads modules from real shared objects on disk via the
// standard library's plugin package, the closest Go equivalent to the
// teacher's dlopen-based loader. It only builds on platforms Go's
// plugin package supports; callers on other platforms should use
// InProcess instead (spec.md §1 treats the loader backend as
// swappable for exactly this reason).
type Native struct {
	host abi.Version
}

// NewNative builds a Native backend validating loaded modules against
// hostVersion.
func NewNative(hostVersion abi.Version) *Native {
	return &Native{host: hostVersion}
}

type pluginCloser struct{}

func (pluginCloser) Close() error { return nil }

// Load implements module.Loader. handle.Path names a directory
// containing module.json and the .so it points at.
func (n *Native) Load(handle module.ModuleHandle) (module.ExportDescriptor, io.Closer, error) {
	manifestPath := filepath.Join(handle.Path, manifestFile)
	data, err := os.ReadFile(manifestPath)
	if err != nil {
		return module.ExportDescriptor{}, nil, errs.E("loaderbackend.Load", errs.NotFound, err)
	}
	manifest, err := abi.ParseManifest(data)
	if err != nil {
		return module.ExportDescriptor{}, nil, err
	}

	libPath := manifest.LibraryPath
	if !filepath.IsAbs(libPath) {
		libPath = filepath.Join(handle.Path, libPath)
	}

	p, err := plugin.Open(libPath)
	if err != nil {
		return module.ExportDescriptor{}, nil, errs.E("loaderbackend.Load", errs.Unavailable, err)
	}
	sym, err := p.Lookup(declarationSymbol)
	if err != nil {
		return module.ExportDescriptor{}, nil, errs.E("loaderbackend.Load", errs.NotFound, err)
	}
	decl, ok := sym.(*abi.ModuleDeclaration)
	if !ok {
		return module.ExportDescriptor{}, nil, errs.E("loaderbackend.Load", errs.InvalidArgument, nil)
	}
	if err := decl.Validate(n.host); err != nil {
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

	// plugin.Open'd objects cannot be unmapped; Close is a no-op, same
	// as the teacher's cgo loader treats dlclose as unsafe once a
	// module's symbols may still be referenced by live call frames.
	return BuildDescriptor(builder), pluginCloser{}, nil
}
