package module

import (
	"io"
	"sync"

	"github.com/nylonring/corert/internal/errs"
	"github.com/nylonring/corert/internal/object"
	"github.com/nylonring/corert/internal/symbol"
)

type slot struct {
	occupied   bool
	gen        uint32
	info       *ModuleInfo
	instance   *Instance
	descriptor ExportDescriptor
	closer     io.Closer
}

// Subsystem owns every loaded instance, the dependency graph, and the
// symbol registry, and implements the load_set/unload algorithm of
// spec.md §4.C.
type Subsystem struct {
	mu       sync.RWMutex
	registry *symbol.Registry
	loader   Loader
	slots    []slot
	free     []uint32
	graph    *graph
}

// NewSubsystem constructs an empty module subsystem backed by the
// given registry and loader.
func NewSubsystem(registry *symbol.Registry, loader Loader) *Subsystem {
	return &Subsystem{
		registry: registry,
		loader:   loader,
		graph:    newGraph(),
	}
}

// NewRootInstance returns the privileged instance the host uses to
// bootstrap access to the module subsystem.
func (s *Subsystem) NewRootInstance() *Instance { return NewRootInstance() }

func (s *Subsystem) allocSlot() ModuleID {
	if n := len(s.free); n > 0 {
		idx := s.free[n-1]
		s.free = s.free[:n-1]
		s.slots[idx].occupied = true
		return ModuleID{index: idx, gen: s.slots[idx].gen}
	}
	idx := uint32(len(s.slots))
	s.slots = append(s.slots, slot{occupied: true})
	return ModuleID{index: idx, gen: 0}
}

func (s *Subsystem) freeSlot(id ModuleID) {
	sl := &s.slots[id.index]
	sl.occupied = false
	sl.info = nil
	sl.instance = nil
	sl.gen++
	s.free = append(s.free, id.index)
}

func (s *Subsystem) lookup(id ModuleID) (*slot, bool) {
	if int(id.index) >= len(s.slots) {
		return nil, false
	}
	sl := &s.slots[id.index]
	if !sl.occupied || sl.gen != id.gen {
		return nil, false
	}
	return sl, true
}

// pendingModule tracks a not-yet-committed load within one batch.
type pendingModule struct {
	id         ModuleID
	path       string
	descriptor ExportDescriptor
	closer     io.Closer
	instance   *Instance
	info       *ModuleInfo
	deps       map[ModuleID]DependencyKind // edges discovered during linking
}

func validateDescriptor(d ExportDescriptor) error {
	seen := map[[2]string]bool{}
	for _, e := range d.Exports {
		if e.Name == "" {
			return errs.E("module.validate", errs.InvalidArgument, nil)
		}
		if e.Version.Major == 0 {
			return errs.E("module.validate", errs.InvalidArgument, nil)
		}
		k := [2]string{e.Namespace, e.Name}
		if seen[k] {
			return errs.E("module.validate", errs.AlreadyExists, nil)
		}
		seen[k] = true
	}
	for _, imp := range d.Imports {
		if imp.Name == "" {
			return errs.E("module.validate", errs.InvalidArgument, nil)
		}
		k := [2]string{imp.Namespace, imp.Name}
		if seen[k] {
			// importing a name this same module exports is a self-import.
			return errs.E("module.validate", errs.InvalidArgument, nil)
		}
	}
	return nil
}

// LoadSet loads a batch of modules atomically: validate, resolve
// imports, topologically order, then construct. Either every module in
// handles ends up loaded and committed, or none does.
func (s *Subsystem) LoadSet(handles []ModuleHandle) ([]*ModuleInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	pendings := make([]*pendingModule, 0, len(handles))
	// byKey indexes this batch's own exports for the link pass.
	type batchExport struct {
		owner int // index into pendings
		exp   SymbolExport
	}
	byKey := map[[2]string]batchExport{}

	rollbackLoaders := func() {
		for _, p := range pendings {
			if p.closer != nil {
				_ = p.closer.Close()
			}
		}
	}

	for _, h := range handles {
		desc, closer, err := s.loader.Load(h)
		if err != nil {
			rollbackLoaders()
			return nil, errs.E("module.LoadSet", errs.Internal, err)
		}
		if err := validateDescriptor(desc); err != nil {
			if closer != nil {
				_ = closer.Close()
			}
			rollbackLoaders()
			return nil, err
		}
		pm := &pendingModule{path: h.Path, descriptor: desc, closer: closer, deps: map[ModuleID]DependencyKind{}}
		idx := len(pendings)
		pendings = append(pendings, pm)
		for _, e := range desc.Exports {
			byKey[[2]string{e.Namespace, e.Name}] = batchExport{owner: idx, exp: e}
		}
	}

	// Reserve arena slots up front so pending modules have stable IDs
	// to reference (a module may import a batch sibling).
	for _, pm := range pendings {
		pm.id = s.allocSlot()
	}

	// Link pass.
	for i, pm := range pendings {
		for _, imp := range pm.descriptor.Imports {
			k := [2]string{imp.Namespace, imp.Name}
			if be, ok := byKey[k]; ok && be.owner != i {
				pm.deps[pendings[be.owner].id] = DepStatic
				continue
			}
			if exp, ok := s.registry.Resolve(imp.Namespace, imp.Name, imp.ID, imp.MinVersion); ok {
				ownerID := exp.Owner.(ModuleID)
				pm.deps[ownerID] = DepStatic
				continue
			}
			s.abortBatch(pendings)
			return nil, errs.E("module.LoadSet", errs.NotFound, nil)
		}
	}

	// Topological sort restricted to this batch; cross-batch edges to
	// already-loaded modules are not part of the pending color set and
	// are treated as already satisfied.
	pendingIDs := make([]ModuleID, len(pendings), len(pendings))
	byID := map[ModuleID]*pendingModule{}
	for i, pm := range pendings {
		pendingIDs[i] = pm.id
		byID[pm.id] = pm
	}
	order, err := topoSortPending(pendingIDs, func(id ModuleID) []ModuleID {
		pm := byID[id]
		out := make([]ModuleID, 0, len(pm.deps))
		for to := range pm.deps {
			out = append(out, to)
		}
		return out
	})
	if err != nil {
		s.abortBatch(pendings)
		return nil, err
	}

	// Construct pass, in topological (dependency-first) order.
	constructed := make([]*pendingModule, 0, len(pendings))
	for _, id := range order {
		pm := byID[id]
		info := &ModuleInfo{
			ID:          pm.id,
			Name:        pm.descriptor.Name,
			Description: pm.descriptor.Description,
			Author:      pm.descriptor.Author,
			License:     pm.descriptor.License,
			Path:        pm.path,
		}
		info.loaded.Store(true)
		inst := newInstance(info)
		for to, kind := range pm.deps {
			_ = kind
			if depSlot, ok := s.lookup(to); ok && depSlot.instance != nil {
				// fill imports table from the resolved dependency's exports
				for name, v := range depSlot.instance.Exports {
					inst.Imports[name] = v
				}
			} else if depPm, ok := byID[to]; ok && depPm.instance != nil {
				for name, v := range depPm.instance.Exports {
					inst.Imports[name] = v
				}
			}
		}
		pm.instance = inst
		pm.info = info

		if err := s.runConstructor(pm); err != nil {
			s.destroyConstructed(constructed)
			s.abortBatch(pendings)
			return nil, errs.E("module.LoadSet", errs.Internal, err)
		}
		constructed = append(constructed, pm)
	}

	// Commit: insert instances, symbols, and dependency edges.
	infos := make([]*ModuleInfo, 0, len(pendings))
	for _, pm := range pendings {
		s.slots[pm.id.index].info = pm.info
		s.slots[pm.id.index].instance = pm.instance
		s.slots[pm.id.index].descriptor = pm.descriptor
		s.slots[pm.id.index].closer = pm.closer

		for _, e := range pm.descriptor.Exports {
			e.Owner = pm.id
			_ = s.registry.Insert(symbol.Export{
				Namespace: e.Namespace,
				Name:      e.Name,
				ID:        e.ID,
				Version:   e.Version,
				Payload:   e.Ptr,
				Owner:     pm.id,
			})
		}
		for _, ns := range pm.descriptor.Namespaces {
			s.registry.GrantNamespace(ns, pm.id)
		}
		for to, kind := range pm.deps {
			s.graph.addEdge(pm.id, to, kind)
		}
		infos = append(infos, pm.info)
	}
	return infos, nil
}

func (s *Subsystem) runConstructor(pm *pendingModule) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errs.E("module.construct", errs.Internal, nil)
		}
	}()
	if pm.descriptor.Construct == nil {
		return nil
	}
	return pm.descriptor.Construct(pm.instance)
}

func (s *Subsystem) destroyConstructed(constructed []*pendingModule) {
	for i := len(constructed) - 1; i >= 0; i-- {
		pm := constructed[i]
		if pm.descriptor.Destruct != nil {
			pm.descriptor.Destruct(pm.instance)
		}
	}
}

func (s *Subsystem) abortBatch(pendings []*pendingModule) {
	for _, pm := range pendings {
		if pm.closer != nil {
			_ = pm.closer.Close()
		}
		s.freeSlot(pm.id)
	}
}

// FindByName returns the ModuleInfo for the loaded module named name.
func (s *Subsystem) FindByName(name string) (*ModuleInfo, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := range s.slots {
		if s.slots[i].occupied && s.slots[i].info != nil && s.slots[i].info.Name == name {
			return s.slots[i].info, true
		}
	}
	return nil, false
}

// FindBySymbol returns the ModuleInfo of whichever loaded module
// currently exports (namespace, name) satisfying id and minVersion.
func (s *Subsystem) FindBySymbol(name, namespace string, id object.InterfaceId, minVersion symbol.Version) (*ModuleInfo, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	exp, ok := s.registry.Resolve(namespace, name, id, minVersion)
	if !ok {
		return nil, false
	}
	owner, ok := exp.Owner.(ModuleID)
	if !ok {
		return nil, false
	}
	sl, ok := s.lookup(owner)
	if !ok {
		return nil, false
	}
	return sl.info, true
}

// Instance returns the live Instance for id, if loaded.
func (s *Subsystem) Instance(id ModuleID) (*Instance, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sl, ok := s.lookup(id)
	if !ok {
		return nil, false
	}
	return sl.instance, true
}

// IsDependency reports whether requester currently depends (directly)
// on owner — used by ParameterTable's dependency-access checks.
func (s *Subsystem) IsDependency(requester, owner *ModuleInfo) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.graph.dependencyKind(requester.ID, owner.ID) != DepNone
}

// AddDependency adds a Dynamic dependency edge from `from` to `to`,
// failing with FailedPrecondition if it would create a cycle.
func (s *Subsystem) AddDependency(from, to ModuleID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.graph.dependencyKind(from, to) != DepNone {
		return errs.E("module.AddDependency", errs.AlreadyExists, nil)
	}
	if s.graph.wouldCycle(from, to) {
		return errs.E("module.AddDependency", errs.FailedPrecondition, nil)
	}
	s.graph.addEdge(from, to, DepDynamic)
	return nil
}

// RemoveDependency removes a Dynamic dependency edge; Static edges may
// never be removed.
func (s *Subsystem) RemoveDependency(from, to ModuleID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.graph.dependencyKind(from, to) {
	case DepNone:
		return errs.E("module.RemoveDependency", errs.NotFound, nil)
	case DepStatic:
		return errs.E("module.RemoveDependency", errs.FailedPrecondition, nil)
	}
	s.graph.removeEdge(from, to)
	return nil
}

// Unload tears down info's module iff its strong count is zero and no
// other loaded module depends on it, cascading to any dependency that
// becomes orphaned as a result. Unloading a module that is no longer
// loaded (for example one an earlier cascade already collected)
// succeeds without effect.
func (s *Subsystem) Unload(info *ModuleInfo) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !info.IsLoaded() {
		return nil
	}
	return s.unloadLocked(info.ID)
}

func (s *Subsystem) unloadLocked(id ModuleID) error {
	if id.IsRoot() {
		return errs.E("module.Unload", errs.InvalidArgument, nil)
	}
	sl, ok := s.lookup(id)
	if !ok {
		return errs.E("module.Unload", errs.NotFound, nil)
	}
	if sl.info.StrongCount() != 0 {
		return errs.E("module.Unload", errs.FailedPrecondition, nil)
	}
	if s.graph.hasDependents(id) {
		return errs.E("module.Unload", errs.FailedPrecondition, nil)
	}

	deps := make([]ModuleID, 0, len(s.graph.deps[id]))
	for to := range s.graph.deps[id] {
		deps = append(deps, to)
	}

	sl.info.loaded.Store(false)
	if sl.descriptor.Destruct != nil {
		sl.descriptor.Destruct(sl.instance)
	}
	for _, e := range sl.descriptor.Exports {
		s.registry.RemoveExport(e.Namespace, e.Name)
	}
	for _, ns := range sl.descriptor.Namespaces {
		s.registry.RevokeNamespace(ns, id)
	}
	if sl.closer != nil {
		_ = sl.closer.Close()
	}
	s.graph.removeNode(id)
	s.freeSlot(id)

	// Cascade: any dependency that just lost its last dependent and
	// carries no external strong references becomes eligible too.
	for _, to := range deps {
		if to.IsRoot() {
			continue
		}
		toSlot, ok := s.lookup(to)
		if !ok {
			continue
		}
		if toSlot.info.StrongCount() == 0 && !s.graph.hasDependents(to) {
			_ = s.unloadLocked(to) // best-effort cascade; errors here would mean a concurrent mutation, not reachable while holding s.mu
		}
	}
	return nil
}
