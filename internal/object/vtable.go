package object

import (
	"reflect"
	"sync"
	"unsafe"
)

// InterfaceInfo is the ABI-fixed interface identity carried by every
// vtable head: {id, major, minor, name}.
type InterfaceInfo struct {
	ID   InterfaceId
	Name string
}

// VTableHead is the ABI-fixed prefix of every vtable in the object
// layer (spec.md §3's VTableHead). VTableOffset is the byte offset
// from the outermost (root) vtable head to this head; 0 marks the
// root.
type VTableHead struct {
	DropInPlace   func(unsafe.Pointer)
	ObjectSize    uintptr
	ObjectAlign   uintptr
	ObjectID      ObjectId
	HasObjectID   bool
	ObjectName    string
	ObjectMarkers MarkerSet
	Interface     InterfaceInfo
	VTableOffset  uintptr

	root *VTable // back-pointer to the owning VTable; not part of the spec's ABI shape, a pure-Go convenience for dispatch.
}

// VTable is a full vtable: {head, [superhead...], method slots}.
// Heads[0] is always the root head (VTableOffset == 0); Heads[1:] are
// embedded super-heads, one per upcastable interface. Methods is
// parallel to Heads: Methods[i] holds the method table (an
// interface{} wrapping a concrete *XxxMethods struct) for Heads[i].
//
// Heads is allocated once and never resized after NewVTable returns,
// so the slice's backing array gives genuine, stable byte offsets
// between elements — VTableOffset is computed from real pointer
// arithmetic, not a hand-maintained index multiply, so the spec's
// "root = metadata - vtable_offset" invariant holds by construction.
type VTable struct {
	Heads   []VTableHead
	Methods []any
}

// NewVTable builds a VTable from a root head (index 0) plus any
// number of embedded super-heads, fixing up each head's VTableOffset
// and back-pointer to the owning VTable.
func NewVTable(heads []VTableHead, methods []any) *VTable {
	if len(heads) == 0 {
		panic("object: vtable needs at least a root head")
	}
	if len(heads) != len(methods) {
		panic("object: heads and methods must be the same length")
	}
	vt := &VTable{
		Heads:   make([]VTableHead, len(heads)),
		Methods: make([]any, len(methods)),
	}
	copy(vt.Heads, heads)
	copy(vt.Methods, methods)

	base := uintptr(unsafe.Pointer(&vt.Heads[0]))
	for i := range vt.Heads {
		vt.Heads[i].VTableOffset = uintptr(unsafe.Pointer(&vt.Heads[i])) - base
		vt.Heads[i].root = vt
	}
	return vt
}

// RootHead returns the outermost vtable head.
func (vt *VTable) RootHead() *VTableHead { return &vt.Heads[0] }

// Root recovers the root vtable head reachable from any head belonging
// to the same VTable, through the head's back-pointer to that VTable;
// the result is the head's address minus its VTableOffset, which is
// the operation spec.md §4.A's contracts require of cast_super.
func (h *VTableHead) Root() *VTableHead {
	return &h.root.Heads[0]
}

// IsRoot reports whether h is itself the root head.
func (h *VTableHead) IsRoot() bool { return h.VTableOffset == 0 }

// SameVTable reports whether two heads are literally the same vtable
// slot — equality, ordering, and hashing of vtables are address-based
// per spec.md §4.A.
func SameVTable(a, b *VTableHead) bool { return a == b }

var (
	objIDMu sync.RWMutex
	objIDs  = map[reflect.Type]ObjectId{}

	ifaceIDMu sync.RWMutex
	ifaceIDs  = map[reflect.Type]InterfaceId{}
)

// RegisterObjectID opts a concrete type T into identity-based
// downcasting by associating it with a stable ObjectId. Panics on a
// duplicate registration for the same T, mirroring the teacher's
// sync.Once-guarded single global registration pattern generalized to
// many distinct keys.
func RegisterObjectID[T any](id ObjectId) {
	t := reflect.TypeOf((*T)(nil)).Elem()
	objIDMu.Lock()
	defer objIDMu.Unlock()
	if _, exists := objIDs[t]; exists {
		panic("object: duplicate ObjectId registration for " + t.String())
	}
	objIDs[t] = id
}

// ObjectIDOf returns the ObjectId registered for T, or false if T
// never opted into downcast-safety.
func ObjectIDOf[T any]() (ObjectId, bool) {
	t := reflect.TypeOf((*T)(nil)).Elem()
	objIDMu.RLock()
	defer objIDMu.RUnlock()
	id, ok := objIDs[t]
	return id, ok
}

// SizeAlignOf returns the size and alignment of T without requiring a
// live value, for populating a VTableHead's ObjectSize/ObjectAlign.
func SizeAlignOf[T any]() (size, align uintptr) {
	t := reflect.TypeOf((*T)(nil)).Elem()
	return t.Size(), uintptr(t.Align())
}

// RegisterInterfaceID associates a phantom interface-marker type I
// with a stable InterfaceId, the Go-generics stand-in for Rust's
// associated INTERFACE_ID const.
func RegisterInterfaceID[I any](id InterfaceId) {
	t := reflect.TypeOf((*I)(nil)).Elem()
	ifaceIDMu.Lock()
	defer ifaceIDMu.Unlock()
	if _, exists := ifaceIDs[t]; exists {
		panic("object: duplicate InterfaceId registration for " + t.String())
	}
	ifaceIDs[t] = id
}

// InterfaceIDOf returns the InterfaceId registered for I.
func InterfaceIDOf[I any]() (InterfaceId, bool) {
	t := reflect.TypeOf((*I)(nil)).Elem()
	ifaceIDMu.RLock()
	defer ifaceIDMu.RUnlock()
	id, ok := ifaceIDs[t]
	return id, ok
}

func findHead(vt *VTable, id InterfaceId) (*VTableHead, int, bool) {
	for i := range vt.Heads {
		if vt.Heads[i].Interface.ID.SameFamily(id) {
			return &vt.Heads[i], i, true
		}
	}
	return nil, -1, false
}
