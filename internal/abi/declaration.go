package abi

import (
	"github.com/nylonring/corert/internal/errs"
	"github.com/nylonring/corert/internal/object"
	"github.com/nylonring/corert/internal/symbol"
)

// ExportSpec and ImportSpec are the ABI-boundary-safe (no internal
// pointer types) shapes a ModuleBuilder assembles; loaderbackend
// translates them into module.SymbolExport / module.ImportRequirement
// once the loaded module is linked against the live subsystem.
type ExportSpec struct {
	Name      string
	Namespace string
	ID        object.InterfaceId
	Version   symbol.Version
	Payload   any
}

type ImportSpec struct {
	Name       string
	Namespace  string
	ID         object.InterfaceId
	MinVersion symbol.Version
}

// ModuleBuilder is what a module's load_fn hands back: its declared
// exports/imports/namespaces plus constructor/destructor closures, in
// the ABI-facing vocabulary (no dependency on internal/module, so a
// plugin binary built against only this package never needs to import
// the host's internal packages).
type ModuleBuilder struct {
	Name        string
	Description string
	Author      string
	License     string
	Exports     []ExportSpec
	Imports     []ImportSpec
	Namespaces  []string

	// Construct/Destruct receive and return `any` (state, exports map)
	// rather than *module.Instance, keeping this package import-free of
	// internal/module — loaderbackend adapts the signatures.
	Construct func(imports map[string]any) (exports map[string]any, state any, err error)
	Destruct  func(state any)
}

// LoadFunc is a module's entry point: given the path it was loaded
// from and the host's requested feature set, produce a ModuleBuilder.
type LoadFunc func(path string, features []string) (*ModuleBuilder, error)

// ModuleDeclaration is the single symbol every plugin exports, named
// MODULE_DECLARATION per spec.md §6.
type ModuleDeclaration struct {
	AbiVersion Version
	Load       LoadFunc
}

// Validate checks d against the host's own ABI version, per spec.md
// §6's compatibility rule.
func (d *ModuleDeclaration) Validate(host Version) error {
	if d.Load == nil {
		return errs.E("abi.Validate", errs.InvalidArgument, nil)
	}
	if !d.AbiVersion.CompatibleWith(host) {
		return errs.E("abi.Validate", errs.Unavailable, nil)
	}
	return nil
}
