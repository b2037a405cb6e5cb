// Package symbol implements the versioned, namespace-partitioned
// export registry (spec.md §4.B): insert/resolve/remove_namespace,
// indexed by (namespace, name) with a semantic version and a custom
// "at least" compatibility rule (major must match exactly; minor and
// patch must be no smaller than required).
package symbol

import (
	"fmt"

	"golang.org/x/mod/semver"
)

// Version is a three-component semantic version. Major is an ABI
// boundary; Minor tracks additive, backward-compatible changes; Patch
// is build-level and never gates compatibility beyond "not smaller".
type Version struct {
	Major, Minor, Patch uint32
}

// String renders the version in the x/mod/semver-compatible "vX.Y.Z"
// form. The match predicate below is not semver precedence: semver
// orders 2.5.0 above 2.1.3, but 2.5.0 does not satisfy a 2.1.3
// requirement here because patch is compared on its own, so
// compatibility is computed directly over the struct fields.
func (v Version) String() string {
	return fmt.Sprintf("v%d.%d.%d", v.Major, v.Minor, v.Patch)
}

// Canonical returns the golang.org/x/mod/semver canonical form, used
// only for sorting/diagnostic output.
func (v Version) Canonical() string {
	return semver.Canonical(v.String())
}

// Satisfies reports whether v (an export's version) satisfies a
// requirement "min_version": major must match exactly, and minor and
// patch must each independently be no smaller than required, per
// spec.md §4.B's version rule verbatim ("version.major ==
// min_version.major && version.minor >= min_version.minor &&
// version.patch >= min_version.patch when majors are equal").
func (v Version) Satisfies(min Version) bool {
	return v.Major == min.Major && v.Minor >= min.Minor && v.Patch >= min.Patch
}

// Compare orders two versions using their canonical semver form; used
// only for deterministic listing, never for the Satisfies predicate.
func Compare(a, b Version) int {
	return semver.Compare(a.Canonical(), b.Canonical())
}
