package module

import "io"

// ModuleHandle names a module to load: a filesystem path to the
// module's directory (containing a sibling module.json manifest, per
// spec.md §6). The Subsystem resolves handles to ExportDescriptors
// through its configured Loader.
type ModuleHandle struct {
	Path string
}

// Loader is the single seam the module subsystem needs from a plugin
// loader backend: map a module's binary into memory (however that
// backend chooses to do it — dlopen, Go's plugin package, an
// in-process registry for tests) and hand back its export descriptor
// plus a Closer that unmaps it. Per spec.md §1, loader backends are
// "specified only through the single function they must supply" —
// this interface is that function.
type Loader interface {
	Load(handle ModuleHandle) (ExportDescriptor, io.Closer, error)
}
