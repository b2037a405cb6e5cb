package symbol

import (
	"sync"

	"github.com/nylonring/corert/internal/errs"
	"github.com/nylonring/corert/internal/object"
)

// Export is a single versioned, named, namespaced symbol. Payload is
// typically a *object.DynObj[I] but is left untyped here since the
// registry itself is agnostic to what is being exported; Owner
// records which module installed it so find_by_symbol in the module
// subsystem can recover the owning ModuleInfo.
type Export struct {
	Namespace string
	Name      string
	ID        object.InterfaceId
	Version   Version
	Payload   any
	Owner     any // module identity token, opaque to this package
}

type key struct {
	namespace string
	name      string
}

// Registry indexes every exported symbol by (namespace, name) and
// answers resolution queries during module linkage. It additionally
// tracks which namespaces exist and are "declared" by a module, for
// includes()-based visibility checks.
type Registry struct {
	mu         sync.RWMutex
	exports    map[key]Export
	namespaces map[string]map[any]struct{} // namespace -> set of module tokens granted visibility
}

// NewRegistry constructs an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		exports:    make(map[key]Export),
		namespaces: make(map[string]map[any]struct{}),
	}
}

// Insert adds a new export, failing with errs.AlreadyExists if
// (namespace, name) is already occupied.
func (r *Registry) Insert(e Export) error {
	if e.Name == "" {
		return errs.E("symbol.Insert", errs.InvalidArgument, nil)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	k := key{e.Namespace, e.Name}
	if _, exists := r.exports[k]; exists {
		return errs.E("symbol.Insert", errs.AlreadyExists, nil)
	}
	r.exports[k] = e
	if _, ok := r.namespaces[e.Namespace]; !ok {
		r.namespaces[e.Namespace] = make(map[any]struct{})
	}
	return nil
}

// Resolve looks up (namespace, name), returning the export iff its id
// matches and its version satisfies minVersion per the spec's "at
// least" rule.
func (r *Registry) Resolve(namespace, name string, id object.InterfaceId, minVersion Version) (Export, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.exports[key{namespace, name}]
	if !ok {
		return Export{}, false
	}
	if e.ID != id {
		return Export{}, false
	}
	if !e.Version.Satisfies(minVersion) {
		return Export{}, false
	}
	return e, true
}

// RemoveNamespace deletes every export declared in namespace and the
// namespace's visibility grants, used on module unload.
func (r *Registry) RemoveNamespace(namespace string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for k := range r.exports {
		if k.namespace == namespace {
			delete(r.exports, k)
		}
	}
	delete(r.namespaces, namespace)
}

// HasNamespace reports whether namespace is known to the registry:
// created by an Insert or by GrantNamespace, and not since removed by
// RemoveNamespace.
func (r *Registry) HasNamespace(namespace string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.namespaces[namespace]
	return ok
}

// GrantNamespace records that module may see namespace's symbols —
// static inclusion from a manifest or dynamic inclusion via
// add_namespace.
func (r *Registry) GrantNamespace(namespace string, module any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.namespaces[namespace]; !ok {
		r.namespaces[namespace] = make(map[any]struct{})
	}
	r.namespaces[namespace][module] = struct{}{}
}

// RevokeNamespace removes module's visibility grant for namespace
// (remove_namespace on an instance, not RemoveNamespace above which is
// the registry-wide teardown operation).
func (r *Registry) RevokeNamespace(namespace string, module any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if mods, ok := r.namespaces[namespace]; ok {
		delete(mods, module)
	}
}

// Includes reports whether module has been granted visibility of
// namespace.
func (r *Registry) Includes(namespace string, module any) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	mods, ok := r.namespaces[namespace]
	if !ok {
		return false
	}
	_, included := mods[module]
	return included
}

// RemoveExport deletes a single (namespace, name) export, used when
// unloading one module out of several that share a declared
// namespace — RemoveNamespace would over-delete in that case.
func (r *Registry) RemoveExport(namespace, name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.exports, key{namespace, name})
}

// Count returns the number of live exports, used by tests asserting
// "load-then-unload leaves the symbol registry unchanged".
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.exports)
}
