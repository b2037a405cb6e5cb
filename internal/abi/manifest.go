package abi

import (
	"encoding/json"

	"github.com/nylonring/corert/internal/errs"
)

// schemaZero is the only presently defined module.json schema version.
const schemaZero = "0"

// Manifest is the sibling module.json file next to a module's shared
// library (spec.md §6). It is a two-field fixed struct, not the
// untyped settings-item tree internal/settings models — plain
// encoding/json is the right tool here, not gjson.
type Manifest struct {
	Schema      string `json:"schema"`
	LibraryPath string `json:"library_path"`
}

// ParseManifest decodes and validates a module.json payload.
func ParseManifest(data []byte) (Manifest, error) {
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return Manifest{}, errs.E("abi.ParseManifest", errs.Internal, err)
	}
	if m.Schema != schemaZero {
		return Manifest{}, errs.E("abi.ParseManifest", errs.InvalidArgument, nil)
	}
	if m.LibraryPath == "" {
		return Manifest{}, errs.E("abi.ParseManifest", errs.InvalidArgument, nil)
	}
	return m, nil
}
