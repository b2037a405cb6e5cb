// Package module implements the module subsystem (spec.md §4.C):
// plugin discovery, linkage, dependency DAG, ref-counted instance
// handles, and reverse-topological unload ordering.
//
// Cyclic object graphs are deliberately NOT modelled with
// reference-counted node values plus a separate adjacency list (the
// design notes call this pattern out as not translating cleanly). In
// its place, every loaded instance lives in an arena ([]slot)
// indexed by ModuleID, a generation-checked slice index; edges are plain (ModuleID, ModuleID) pairs in an adjacency
// map. Reference counting only guards the external handles
// (ModuleInfo.strongCount); the graph's own edges are integers.
package module

import (
	"sync/atomic"

	"github.com/nylonring/corert/internal/object"
	"github.com/nylonring/corert/internal/symbol"
)

// ModuleID is a stable handle into the module graph's arena: an
// index plus a generation counter bumped on free, so a stale ModuleID
// from an unloaded module is never silently confused with whatever
// gets allocated into the same slot later.
type ModuleID struct {
	index uint32
	gen   uint32
}

// IsRoot reports whether id names the privileged root instance.
func (id ModuleID) IsRoot() bool { return id.index == rootIndex }

const rootIndex = ^uint32(0)

// RootModuleID is the well-known id of the privileged root instance.
var RootModuleID = ModuleID{index: rootIndex, gen: 0}

// DependencyKind classifies a module-graph edge.
type DependencyKind uint8

const (
	// DepNone means no dependency exists.
	DepNone DependencyKind = iota
	// DepStatic dependencies are declared in the manifest and cannot
	// be removed with remove_dependency.
	DepStatic
	// DepDynamic dependencies are added at runtime via
	// add_dependency and may be removed.
	DepDynamic
)

// ModuleInfo is the reference-counted handle to a loaded module that
// external callers (and other modules) hold on to. A module cannot be
// dropped while strongCount is nonzero or while any other loaded
// module depends on it (spec.md §3 invariant).
type ModuleInfo struct {
	ID          ModuleID
	Name        string
	Description string
	Author      string
	License     string
	Path        string

	loaded      atomic.Bool
	strongCount atomic.Int64
	totalCount  atomic.Int64
}

// IsLoaded reports whether the module is currently loaded.
func (mi *ModuleInfo) IsLoaded() bool { return mi.loaded.Load() }

// AddRef increments the external strong count that blocks unload.
func (mi *ModuleInfo) AddRef() {
	mi.strongCount.Add(1)
	mi.totalCount.Add(1)
}

// Release decrements the external strong count.
func (mi *ModuleInfo) Release() {
	mi.strongCount.Add(-1)
}

// StrongCount returns the current external strong count.
func (mi *ModuleInfo) StrongCount() int64 { return mi.strongCount.Load() }

// TotalCount returns the lifetime total of AddRef calls.
func (mi *ModuleInfo) TotalCount() int64 { return mi.totalCount.Load() }

// SymbolExport is one named, namespaced, versioned symbol a module
// exposes to importers.
type SymbolExport struct {
	Name      string
	Namespace string
	ID        object.InterfaceId
	Version   symbol.Version
	Ptr       any
}

// ImportRequirement is one named, namespaced, versioned symbol a
// module needs resolved before it can be constructed.
type ImportRequirement struct {
	Name       string
	Namespace  string
	ID         object.InterfaceId
	MinVersion symbol.Version
}

// ConstructorFunc populates an Instance's exports table and state from
// its already-filled imports table. A non-nil error (or a recovered
// panic, which the subsystem also treats as construction failure)
// aborts the whole load_set batch.
type ConstructorFunc func(inst *Instance) error

// DestructorFunc tears down an Instance's state. Per spec.md §4.C,
// destructor panics are never recovered — they abort the process,
// since unwinding across the plugin ABI boundary is forbidden.
type DestructorFunc func(inst *Instance)

// ExportDescriptor is the data a loader backend reads out of a
// module's binary: its declared exports, required imports, declared
// namespaces, and constructor/destructor entry points. It is the Go
// analogue of the teacher's NrPluginInfo export struct, generalized
// from "one name+version per plugin" to "many named, namespaced,
// versioned exports per module".
type ExportDescriptor struct {
	Name        string
	Description string
	Author      string
	License     string
	Exports     []SymbolExport
	Imports     []ImportRequirement
	Namespaces  []string
	Construct   ConstructorFunc
	Destruct    DestructorFunc
}
