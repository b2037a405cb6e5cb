// Package object implements the fat-pointer object/interface layer:
// a uniform DynObj representation carrying a hand-built vtable that
// provides runtime type identity, marker-bound tracking, upcasting,
// and safe downcasting across dynamically loaded plugin binaries.
//
// This is deliberately NOT built on Go's native interface values.
// An interface{} is itself a fat pointer (data + itab), but the itab
// layout is an unexported compiler detail with no cross-compilation-unit
// stability guarantee; the whole point of this package is to give that
// guarantee ourselves, the way the teacher (nylon-ring-go) hand-builds
// NrPluginVTable/NrHostVTable as C-ABI structs instead of trusting a
// language's native trait-object machinery across the plugin boundary.
package object

import "github.com/google/uuid"

// ObjectId is a stable 128-bit identifier assigned per concrete
// implementer type that opts into downcast-safety. The zero value
// means "no identity assigned" — downcast by identity always fails
// for such a type, but interface coercion still works.
type ObjectId [16]byte

// IsZero reports whether id carries no identity.
func (id ObjectId) IsZero() bool { return id == ObjectId{} }

// NewObjectId generates a fresh random ObjectId (v4 UUID).
func NewObjectId() ObjectId {
	return ObjectId(uuid.New())
}

// ObjectIdFromString parses a canonical UUID string into an ObjectId.
func ObjectIdFromString(s string) (ObjectId, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return ObjectId{}, err
	}
	return ObjectId(u), nil
}

func (id ObjectId) String() string {
	return uuid.UUID(id).String()
}

// InterfaceId identifies an abstract capability (an interface family)
// plus an ABI version. {ID, Major} identifies an ABI-compatible
// family; Minor records additive, backward-compatible extensions.
type InterfaceId struct {
	ID    [16]byte
	Major uint32
	Minor uint32
}

// SameFamily reports whether two InterfaceIds name the same
// ABI-compatible family (same id and major version).
func (i InterfaceId) SameFamily(o InterfaceId) bool {
	return i.ID == o.ID && i.Major == o.Major
}

func (i InterfaceId) String() string {
	return uuid.UUID(i.ID).String()
}

// NewInterfaceId generates a fresh InterfaceId with the given version.
func NewInterfaceId(major, minor uint32) InterfaceId {
	return InterfaceId{ID: [16]byte(uuid.New()), Major: major, Minor: minor}
}
