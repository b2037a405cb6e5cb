package object

import "unsafe"

// DynObj is an opaque, type-erased fat pointer over an object
// implementing interface I: a (data pointer, vtable head pointer)
// pair. The phantom type parameter I exists purely so the Go type
// system keeps DynObj[Fooer] and DynObj[Barer] distinct; it carries no
// runtime representation of its own.
type DynObj[I any] struct {
	data unsafe.Pointer
	head *VTableHead
}

// Coerce builds a DynObj[I] from a concrete *T and its statically
// constructed vtable. vt's root head (index 0) becomes the DynObj's
// current head — the Go analogue of Rust's `&'static V<T,I>` static
// vtable the teacher's staticVTable pattern also relies on.
func Coerce[T any, I any](concrete *T, vt *VTable) *DynObj[I] {
	return &DynObj[I]{
		data: unsafe.Pointer(concrete),
		head: vt.RootHead(),
	}
}

// Metadata returns the vtable head currently in effect for p.
func Metadata[I any](p *DynObj[I]) *VTableHead { return p.head }

// DataPtr returns the raw data pointer carried by p. Exposed for
// interop with method dispatch helpers that need to call through
// p.head's Methods slot.
func DataPtr[I any](p *DynObj[I]) unsafe.Pointer { return p.data }

// MethodsFor returns the method table registered alongside p's current
// head, already asserted to M by the caller (who knows I's shape).
func MethodsFor[I, M any](p *DynObj[I]) (M, bool) {
	idx := headIndex(p.head)
	if idx < 0 {
		var zero M
		return zero, false
	}
	m, ok := p.head.root.Methods[idx].(M)
	return m, ok
}

func headIndex(h *VTableHead) int {
	vt := h.root
	for i := range vt.Heads {
		if &vt.Heads[i] == h {
			return i
		}
	}
	return -1
}

// IsObject reports whether p's root vtable carries the ObjectId
// registered for concrete type T. Always false for a T that never
// called RegisterObjectID.
func IsObject[T any, I any](p *DynObj[I]) bool {
	id, ok := ObjectIDOf[T]()
	if !ok {
		return false
	}
	root := p.head.Root()
	return root.HasObjectID && root.ObjectID == id
}

// Downcast attempts to recover the original *T from p, succeeding iff
// IsObject[T] holds.
func Downcast[T any, I any](p *DynObj[I]) (*T, bool) {
	if !IsObject[T](p) {
		return nil, false
	}
	return (*T)(p.data), true
}

// CastSuper performs a static upcast from DynObj[I] to DynObj[I2],
// succeeding iff I2's registered InterfaceId appears somewhere in p's
// vtable (current or root) — the runtime check standing in for Rust's
// compile-time upcast table, since the table itself was built when the
// object's VTable was constructed via NewVTable.
func CastSuper[I2, I any](p *DynObj[I]) (*DynObj[I2], bool) {
	id, ok := InterfaceIDOf[I2]()
	if !ok {
		return nil, false
	}
	head, _, found := findHead(p.head.root, id)
	if !found {
		return nil, false
	}
	return &DynObj[I2]{data: p.data, head: head}, true
}

// IsInterface reports whether the current or root vtable names
// interface I2 AND the object's marker set includes every marker in
// required.
func IsInterface[I2, I any](p *DynObj[I], required MarkerSet) bool {
	id, ok := InterfaceIDOf[I2]()
	if !ok {
		return false
	}
	_, _, found := findHead(p.head.root, id)
	if !found {
		return false
	}
	return p.head.Root().ObjectMarkers.Includes(required)
}

// DowncastInterface combines IsInterface with CastSuper: it returns a
// DynObj[I2] view over p iff I2 is named by p's vtable and the marker
// bound is satisfied.
func DowncastInterface[I2, I any](p *DynObj[I], required MarkerSet) (*DynObj[I2], bool) {
	if !IsInterface[I2](p, required) {
		return nil, false
	}
	return CastSuper[I2](p)
}

// DropInPlace invokes the object's destructor, if any. A nil
// DropInPlace means the concrete type is trivially destructible.
func DropInPlace[I any](p *DynObj[I]) {
	root := p.head.Root()
	if root.DropInPlace != nil {
		root.DropInPlace(p.data)
	}
}

// SizeOfVal returns the concrete object's size as recorded in its
// root vtable head.
func SizeOfVal[I any](p *DynObj[I]) uintptr { return p.head.Root().ObjectSize }

// AlignOfVal returns the concrete object's alignment as recorded in
// its root vtable head.
func AlignOfVal[I any](p *DynObj[I]) uintptr { return p.head.Root().ObjectAlign }
