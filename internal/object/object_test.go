package object

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test fixture interfaces (phantom marker types).
type iFoo struct{}
type iBar struct{}
type iJ struct{}

type fooMethods struct {
	Greet func(unsafe.Pointer) string
}

type Foo struct{ name string }
type Bar struct{ name string } // implements iFoo too, but is !Send (no marker)

func init() {
	RegisterObjectID[Foo](NewObjectId())
	RegisterObjectID[Bar](NewObjectId())
	RegisterInterfaceID[iFoo](NewInterfaceId(1, 0))
	RegisterInterfaceID[iBar](NewInterfaceId(1, 0))
	RegisterInterfaceID[iJ](NewInterfaceId(1, 0))
}

func fooVTable(markers MarkerSet) *VTable {
	size, align := SizeAlignOf[Foo]()
	fid, _ := InterfaceIDOf[iFoo]()
	head := VTableHead{
		ObjectSize:    size,
		ObjectAlign:   align,
		ObjectMarkers: markers,
		Interface:     InterfaceInfo{ID: fid, Name: "iFoo"},
	}
	oid, _ := ObjectIDOf[Foo]()
	head.ObjectID = oid
	head.HasObjectID = true
	methods := fooMethods{Greet: func(p unsafe.Pointer) string {
		return (*Foo)(p).name
	}}
	return NewVTable([]VTableHead{head}, []any{methods})
}

func TestCoerceDowncastRoundTrip(t *testing.T) {
	f := &Foo{name: "hi"}
	vt := fooVTable(MarkerSend | MarkerSync)
	p := Coerce[Foo, iFoo](f, vt)

	got, ok := Downcast[Foo](p)
	require.True(t, ok)
	assert.Same(t, f, got)
}

func TestDowncastWrongTypeFails(t *testing.T) {
	f := &Foo{name: "hi"}
	vt := fooVTable(MarkerSend)
	p := Coerce[Foo, iFoo](f, vt)

	_, ok := Downcast[Bar](p)
	assert.False(t, ok)
}

func TestDowncastInterfacePreservesMarkers(t *testing.T) {
	// Foo: Send+Sync
	f := &Foo{name: "hi"}
	vtSendSync := fooVTable(MarkerSend | MarkerSync)
	pSendSync := Coerce[Foo, iFoo](f, vtSendSync)

	view, ok := DowncastInterface[iFoo](pSendSync, MarkerSend)
	require.True(t, ok)
	require.NotNil(t, view)

	// J is not implemented.
	_, ok = DowncastInterface[iJ](pSendSync, MarkerSend)
	assert.False(t, ok)

	// Bar: no markers (!Send)
	b := &Bar{name: "bye"}
	vtNoMarkers := fooVTable(0)
	vtNoMarkers.Heads[0].HasObjectID = true
	bid, _ := ObjectIDOf[Bar]()
	vtNoMarkers.Heads[0].ObjectID = bid
	pNoMarkers := Coerce[Bar, iFoo](b, vtNoMarkers)

	_, ok = DowncastInterface[iFoo](pNoMarkers, MarkerSend)
	assert.False(t, ok)
}

func TestVTableOffsetInvariant(t *testing.T) {
	size, align := SizeAlignOf[Foo]()
	fid, _ := InterfaceIDOf[iFoo]()
	bid, _ := InterfaceIDOf[iBar]()
	root := VTableHead{ObjectSize: size, ObjectAlign: align, Interface: InterfaceInfo{ID: fid}}
	super := VTableHead{Interface: InterfaceInfo{ID: bid}}
	vt := NewVTable([]VTableHead{root, super}, []any{fooMethods{}, fooMethods{}})

	assert.True(t, vt.Heads[0].IsRoot())
	assert.False(t, vt.Heads[1].IsRoot())

	// root = metadata - vtable_offset, verified via real pointer arithmetic.
	superHead := &vt.Heads[1]
	rootPtr := uintptr(unsafe.Pointer(superHead)) - superHead.VTableOffset
	assert.Equal(t, uintptr(unsafe.Pointer(&vt.Heads[0])), rootPtr)
	assert.Same(t, &vt.Heads[0], superHead.Root())
}

func TestCastSuperThenBackIsIndistinguishable(t *testing.T) {
	f := &Foo{name: "hi"}
	fid, _ := InterfaceIDOf[iFoo]()
	bid, _ := InterfaceIDOf[iBar]()
	size, align := SizeAlignOf[Foo]()
	root := VTableHead{ObjectSize: size, ObjectAlign: align, Interface: InterfaceInfo{ID: fid}}
	super := VTableHead{Interface: InterfaceInfo{ID: bid}}
	vt := NewVTable([]VTableHead{root, super}, []any{fooMethods{}, fooMethods{}})

	p := Coerce[Foo, iFoo](f, vt)
	pBar, ok := CastSuper[iBar](p)
	require.True(t, ok)

	pFooAgain, ok := CastSuper[iFoo](pBar)
	require.True(t, ok)

	assert.Equal(t, DataPtr[iFoo](p), DataPtr[iFoo](pFooAgain))
	assert.True(t, SameVTable(Metadata[iFoo](p), Metadata[iFoo](pFooAgain)))
}

func TestMethodsDispatch(t *testing.T) {
	f := &Foo{name: "dispatched"}
	vt := fooVTable(MarkerSend)
	p := Coerce[Foo, iFoo](f, vt)

	m, ok := MethodsFor[iFoo, fooMethods](p)
	require.True(t, ok)
	assert.Equal(t, "dispatched", m.Greet(DataPtr(p)))
}

func TestDropInPlaceNilIsNoop(t *testing.T) {
	f := &Foo{name: "hi"}
	vt := fooVTable(0)
	p := Coerce[Foo, iFoo](f, vt)
	assert.NotPanics(t, func() { DropInPlace(p) })
}

func TestDropInPlaceInvoked(t *testing.T) {
	called := false
	f := &Foo{name: "hi"}
	vt := fooVTable(0)
	vt.Heads[0].DropInPlace = func(unsafe.Pointer) { called = true }
	p := Coerce[Foo, iFoo](f, vt)
	DropInPlace(p)
	assert.True(t, called)
}
