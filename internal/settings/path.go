// Package settings implements the host-provided settings registry
// spec.md §6 describes only through its consumed interface: a tagged
// Item tree addressed by "::"-separated paths, with a metadata
// side-table recording write/remove callbacks per path.
package settings

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/nylonring/corert/internal/errs"
)

// Path addresses a node in an Item tree. The grammar follows the
// settings registry's original component syntax: a dotted sequence of
// "::"-separated components, each either a bare name ("object"), a
// bracketed index ("[2]"), or a name followed by one or more indices
// ("array[0][3]").
type Path struct {
	raw        string
	components []component
}

type component struct {
	name    string // "" if the component is a bare array index
	indices []int  // empty if the component is a bare name
}

var componentPattern = regexp.MustCompile(`^(?:([^:\[\]]+)|([^:\[\]]+)?((?:\[\d+\])+))$`)
var indexPattern = regexp.MustCompile(`\[(\d+)\]`)

// Root is the empty path naming the tree's own top-level item.
func Root() Path { return Path{raw: ":"} }

// IsRoot reports whether p names the root.
func (p Path) IsRoot() bool { return len(p.components) == 0 }

// String returns the path's original textual form.
func (p Path) String() string {
	if p.IsRoot() {
		return ":"
	}
	return p.raw
}

// NewPath parses a "::"-separated settings path.
func NewPath(raw string) (Path, error) {
	if raw == "" {
		return Path{}, errs.E("settings.NewPath", errs.InvalidArgument, nil)
	}
	if raw == ":" {
		return Root(), nil
	}

	parts := strings.Split(raw, "::")
	components := make([]component, 0, len(parts))
	for _, part := range parts {
		c, err := parseComponent(part)
		if err != nil {
			return Path{}, err
		}
		components = append(components, c)
	}
	return Path{raw: raw, components: components}, nil
}

func parseComponent(part string) (component, error) {
	m := componentPattern.FindStringSubmatch(part)
	if m == nil {
		return component{}, errs.E("settings.parseComponent", errs.InvalidArgument, nil)
	}
	if m[1] != "" {
		return component{name: m[1]}, nil
	}
	idxMatches := indexPattern.FindAllStringSubmatch(m[3], -1)
	indices := make([]int, len(idxMatches))
	for i, im := range idxMatches {
		n, err := strconv.Atoi(im[1])
		if err != nil {
			return component{}, errs.E("settings.parseComponent", errs.InvalidArgument, err)
		}
		indices[i] = n
	}
	return component{name: m[2], indices: indices}, nil
}
