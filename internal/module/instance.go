package module

import (
	"sync"

	"github.com/nylonring/corert/internal/errs"
)

// ParamAccessLevel gates who may read/write a parameter: dependency
// access checks the caller is a current dependency of the parameter's
// owner, interface access uses this declared level directly.
type ParamAccessLevel uint8

const (
	// ParamPrivate forbids access from outside the owning module.
	ParamPrivate ParamAccessLevel = iota
	// ParamReadOnly allows dependency-access reads but not writes.
	ParamReadOnly
	// ParamReadWrite allows both dependency-access reads and writes.
	ParamReadWrite
)

// Parameter is one typed slot on a module, gated by an access level
// independent of the dependency-based check performed for
// dependency-access callers.
type Parameter struct {
	Value  any
	Access ParamAccessLevel
}

// ParameterTable holds a module's typed parameter slots.
type ParameterTable struct {
	mu     sync.RWMutex
	params map[string]*Parameter
}

func newParameterTable() *ParameterTable {
	return &ParameterTable{params: make(map[string]*Parameter)}
}

// Define installs a new named parameter; re-defining an existing name
// overwrites it (constructors call this while populating state).
func (pt *ParameterTable) Define(name string, value any, access ParamAccessLevel) {
	pt.mu.Lock()
	defer pt.mu.Unlock()
	pt.params[name] = &Parameter{Value: value, Access: access}
}

func (pt *ParameterTable) get(name string) (*Parameter, bool) {
	pt.mu.RLock()
	defer pt.mu.RUnlock()
	p, ok := pt.params[name]
	return p, ok
}

// Instance is a live view into a loaded module: parameter table,
// resource table, imports table, exports table, state, and a pointer
// back to its ModuleInfo. A root instance has empty tables and nil
// state; it exists only to give the host access to the module
// subsystem.
type Instance struct {
	Info       *ModuleInfo
	Parameters *ParameterTable
	Resources  map[string]any
	Imports    map[string]any
	Exports    map[string]any
	State      any
}

func newInstance(info *ModuleInfo) *Instance {
	return &Instance{
		Info:       info,
		Parameters: newParameterTable(),
		Resources:  make(map[string]any),
		Imports:    make(map[string]any),
		Exports:    make(map[string]any),
	}
}

// NewRootInstance returns the privileged, empty instance the host
// uses to bootstrap access to the module subsystem. It carries no
// backing module, nil state, and empty tables.
func NewRootInstance() *Instance {
	root := &ModuleInfo{ID: RootModuleID, Name: "<root>"}
	root.loaded.Store(true)
	return newInstance(root)
}

// ReadParameter performs a dependency-access read: it succeeds iff
// requester is a current dependency of owner (or requester is the
// root instance) and the parameter's access level permits reads.
func (inst *Instance) ReadParameter(name string, requester *ModuleInfo, isDependency func(requester, owner *ModuleInfo) bool) (any, error) {
	p, ok := inst.Parameters.get(name)
	if !ok {
		return nil, errs.E("module.ReadParameter", errs.NotFound, nil)
	}
	if p.Access == ParamPrivate {
		return nil, errs.E("module.ReadParameter", errs.FailedPrecondition, nil)
	}
	if requester != inst.Info && !requester.ID.IsRoot() && !isDependency(requester, inst.Info) {
		return nil, errs.E("module.ReadParameter", errs.FailedPrecondition, nil)
	}
	return p.Value, nil
}

// WriteParameter performs a dependency-access write: same gating as
// ReadParameter but additionally requires ParamReadWrite.
func (inst *Instance) WriteParameter(name string, value any, requester *ModuleInfo, isDependency func(requester, owner *ModuleInfo) bool) error {
	p, ok := inst.Parameters.get(name)
	if !ok {
		return errs.E("module.WriteParameter", errs.NotFound, nil)
	}
	if p.Access != ParamReadWrite {
		return errs.E("module.WriteParameter", errs.FailedPrecondition, nil)
	}
	if requester != inst.Info && !requester.ID.IsRoot() && !isDependency(requester, inst.Info) {
		return errs.E("module.WriteParameter", errs.FailedPrecondition, nil)
	}
	pt := inst.Parameters
	pt.mu.Lock()
	p.Value = value
	pt.mu.Unlock()
	return nil
}
