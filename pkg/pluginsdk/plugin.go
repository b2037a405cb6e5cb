// Package pluginsdk is the authoring-side convenience layer a module
// author imports to build a plugin binary: a fluent Plugin builder
// that assembles an *abi.ModuleDeclaration, the single symbol
// internal/loaderbackend looks up under the name MODULE_DECLARATION.
//
// Adapted from the teacher's cgo-based `sdk/plugin.go`: the same
// "register a global plugin value, the host calls back into it"
// shape, but trading the cgo vtable marshalling (NrPluginVTable,
// NrPluginInfo, manual C memory allocation for results) for Go's
// native plugin.Open + abi.ModuleDeclaration mechanism, and trading
// the HTTP-handler vocabulary (Handle(entry, Handler)) for the
// spec's module/export vocabulary (Export/Import/namespace).
package pluginsdk

import (
	"sync"

	"github.com/nylonring/corert/internal/abi"
	"github.com/nylonring/corert/internal/errs"
	"github.com/nylonring/corert/internal/object"
	"github.com/nylonring/corert/internal/symbol"
)

// ConstructFunc builds a module instance's exports and private state
// from its resolved imports.
type ConstructFunc func(imports map[string]any) (exports map[string]any, state any, err error)

// DestructFunc tears down a module instance's private state.
type DestructFunc func(state any)

// Plugin is a fluent builder for a module's declared shape: its
// metadata, exports, imports, namespaces, and constructor/destructor.
type Plugin struct {
	name        string
	description string
	author      string
	license     string
	exports     []abi.ExportSpec
	imports     []abi.ImportSpec
	namespaces  []string
	onConstruct ConstructFunc
	onDestruct  DestructFunc
}

// NewPlugin starts a builder for a module named name.
func NewPlugin(name string) *Plugin {
	return &Plugin{name: name}
}

func (p *Plugin) Description(s string) *Plugin { p.description = s; return p }
func (p *Plugin) Author(s string) *Plugin      { p.author = s; return p }
func (p *Plugin) License(s string) *Plugin     { p.license = s; return p }

// Export declares a symbol this module provides once constructed. The
// declaration carries no value (its ExportSpec.Payload is nil); the
// exported value is whatever the constructor returns under the same
// name in its exports map.
func (p *Plugin) Export(name, namespace string, id object.InterfaceId, version symbol.Version) *Plugin {
	p.exports = append(p.exports, abi.ExportSpec{Name: name, Namespace: namespace, ID: id, Version: version})
	return p
}

// Import declares a symbol this module requires before it can be
// constructed.
func (p *Plugin) Import(name, namespace string, id object.InterfaceId, minVersion symbol.Version) *Plugin {
	p.imports = append(p.imports, abi.ImportSpec{Name: name, Namespace: namespace, ID: id, MinVersion: minVersion})
	return p
}

// Namespace declares a namespace this module owns.
func (p *Plugin) Namespace(ns string) *Plugin {
	p.namespaces = append(p.namespaces, ns)
	return p
}

// OnConstruct sets the constructor run once all imports are resolved.
func (p *Plugin) OnConstruct(fn ConstructFunc) *Plugin {
	p.onConstruct = fn
	return p
}

// OnDestruct sets the destructor run when the module is unloaded.
func (p *Plugin) OnDestruct(fn DestructFunc) *Plugin {
	p.onDestruct = fn
	return p
}

func (p *Plugin) toBuilder() *abi.ModuleBuilder {
	return &abi.ModuleBuilder{
		Name:        p.name,
		Description: p.description,
		Author:      p.author,
		License:     p.license,
		Exports:     p.exports,
		Imports:     p.imports,
		Namespaces:  p.namespaces,
		Construct:   p.onConstruct,
		Destruct:    p.onDestruct,
	}
}

var (
	mu     sync.RWMutex
	global *Plugin
)

// RegisterPlugin installs p as the process's module, to be returned
// by a later Declaration's Load call. Mirrors the teacher's
// RegisterPlugin/BuildPlugin globals, generalized from "exactly one
// plugin per process" (still true here — a module binary built with
// this SDK declares exactly one module) to the richer export/import
// vocabulary.
func RegisterPlugin(p *Plugin) {
	mu.Lock()
	defer mu.Unlock()
	global = p
}

// Declaration builds the *abi.ModuleDeclaration a module binary
// exports under the symbol name MODULE_DECLARATION. Call this from a
// package-level var initializer after RegisterPlugin in an init().
func Declaration(abiVersion abi.Version) *abi.ModuleDeclaration {
	return &abi.ModuleDeclaration{
		AbiVersion: abiVersion,
		Load: func(path string, features []string) (*abi.ModuleBuilder, error) {
			mu.RLock()
			p := global
			mu.RUnlock()
			if p == nil {
				return nil, errs.E("pluginsdk.Load", errs.FailedPrecondition, nil)
			}
			return p.toBuilder(), nil
		},
	}
}
