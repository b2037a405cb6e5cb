package abi

import "github.com/nylonring/corert/internal/errs"

// Guard calls fn, converting any panic into an Internal error instead
// of letting it unwind across the plugin ABI boundary — spec.md §7:
// "Plugin entry-point panics are caught at the ABI boundary and turned
// into an Internal error". Destructor/host-loop panics are
// deliberately NOT guarded anywhere in this codebase; see
// internal/module's unload path, which lets a destructor panic abort
// the process per the same section.
func Guard(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errs.E("abi.Guard", errs.Internal, nil)
		}
	}()
	return fn()
}
