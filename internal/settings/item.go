package settings

import "github.com/nylonring/corert/internal/errs"

// Kind is the tag of a settings Item's active variant.
type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	KindU64
	KindF64
	KindString
	KindArray
	KindObject
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindU64:
		return "u64"
	case KindF64:
		return "f64"
	case KindString:
		return "string"
	case KindArray:
		return "array"
	case KindObject:
		return "object"
	default:
		return "unknown"
	}
}

// Item is a tagged-union settings value: Null, Bool, U64, F64, String,
// Array, or Object. The zero value is Null.
type Item struct {
	kind Kind
	b    bool
	u    uint64
	f    float64
	s    string
	arr  []Item
	obj  map[string]Item
}

func Null() Item               { return Item{kind: KindNull} }
func Bool(v bool) Item         { return Item{kind: KindBool, b: v} }
func U64(v uint64) Item        { return Item{kind: KindU64, u: v} }
func F64(v float64) Item       { return Item{kind: KindF64, f: v} }
func String(v string) Item     { return Item{kind: KindString, s: v} }
func Array(items ...Item) Item { return Item{kind: KindArray, arr: items} }
func Object(fields map[string]Item) Item {
	if fields == nil {
		fields = map[string]Item{}
	}
	return Item{kind: KindObject, obj: fields}
}

func (it Item) Kind() Kind { return it.kind }

func (it Item) AsBool() (bool, bool) {
	if it.kind != KindBool {
		return false, false
	}
	return it.b, true
}

func (it Item) AsU64() (uint64, bool) {
	if it.kind != KindU64 {
		return 0, false
	}
	return it.u, true
}

func (it Item) AsF64() (float64, bool) {
	if it.kind != KindF64 {
		return 0, false
	}
	return it.f, true
}

func (it Item) AsString() (string, bool) {
	if it.kind != KindString {
		return "", false
	}
	return it.s, true
}

func (it Item) AsArray() ([]Item, bool) {
	if it.kind != KindArray {
		return nil, false
	}
	return it.arr, true
}

func (it Item) AsObject() (map[string]Item, bool) {
	if it.kind != KindObject {
		return nil, false
	}
	return it.obj, true
}

// Get navigates path against it, returning (item, found, error). error
// is non-nil only if path crosses an incompatible node (e.g. an array
// index into an Object).
func (it Item) Get(p Path) (Item, bool, error) {
	cur := it
	for _, c := range p.components {
		if c.name != "" {
			obj, ok := cur.AsObject()
			if !ok {
				return Item{}, false, errs.E("settings.Get", errs.FailedPrecondition, nil)
			}
			v, ok := obj[c.name]
			if !ok {
				return Item{}, false, nil
			}
			cur = v
		}
		for _, idx := range c.indices {
			arr, ok := cur.AsArray()
			if !ok {
				return Item{}, false, errs.E("settings.Get", errs.FailedPrecondition, nil)
			}
			if idx < 0 || idx >= len(arr) {
				return Item{}, false, nil
			}
			cur = arr[idx]
		}
	}
	return cur, true, nil
}

// Write installs value at path, creating intermediate Objects/Arrays
// as needed (arrays are extended with Null padding, mirroring the
// original settings registry's write semantics). It returns the
// previous item at path, if any.
func (it *Item) Write(p Path, value Item) (Item, bool, error) {
	if p.IsRoot() {
		old := *it
		*it = value
		return old, true, nil
	}
	return writeComponents(it, p.components, value)
}

func writeComponents(cur *Item, comps []component, value Item) (Item, bool, error) {
	c := comps[0]
	rest := comps[1:]

	if c.name != "" {
		if cur.kind == KindNull {
			*cur = Object(nil)
		}
		obj, ok := cur.AsObject()
		if !ok {
			return Item{}, false, errs.E("settings.Write", errs.FailedPrecondition, nil)
		}
		if len(c.indices) == 0 {
			if len(rest) == 0 {
				old, existed := obj[c.name]
				obj[c.name] = value
				return old, existed, nil
			}
			child, existed := obj[c.name]
			if !existed {
				child = Null()
			}
			old, oldExisted, err := writeComponents(&child, rest, value)
			obj[c.name] = child
			return old, oldExisted, err
		}
		child, existed := obj[c.name]
		if !existed {
			child = Array()
		}
		old, oldExisted, err := writeIndices(&child, c.indices, rest, value)
		obj[c.name] = child
		return old, oldExisted, err
	}

	return writeIndices(cur, c.indices, rest, value)
}

func writeIndices(cur *Item, indices []int, rest []component, value Item) (Item, bool, error) {
	idx := indices[0]
	restIndices := indices[1:]

	if cur.kind == KindNull {
		*cur = Array()
	}
	arr, ok := cur.AsArray()
	if !ok {
		return Item{}, false, errs.E("settings.Write", errs.FailedPrecondition, nil)
	}
	for len(arr) <= idx {
		arr = append(arr, Null())
	}
	cur.arr = arr

	if len(restIndices) > 0 {
		return writeIndices(&cur.arr[idx], restIndices, rest, value)
	}
	if len(rest) == 0 {
		old := cur.arr[idx]
		existed := old.kind != KindNull
		cur.arr[idx] = value
		return old, existed, nil
	}
	old, existed, err := writeComponents(&cur.arr[idx], rest, value)
	return old, existed, err
}

// Remove deletes the item at path, returning it if it existed.
func (it *Item) Remove(p Path) (Item, bool, error) {
	if p.IsRoot() {
		return Item{}, false, errs.E("settings.Remove", errs.InvalidArgument, nil)
	}
	return removeComponents(it, p.components)
}

func removeComponents(cur *Item, comps []component) (Item, bool, error) {
	c := comps[0]
	rest := comps[1:]

	if c.name != "" {
		obj, ok := cur.AsObject()
		if !ok {
			return Item{}, false, errs.E("settings.Remove", errs.FailedPrecondition, nil)
		}
		if len(c.indices) == 0 && len(rest) == 0 {
			old, existed := obj[c.name]
			delete(obj, c.name)
			return old, existed, nil
		}
		child, existed := obj[c.name]
		if !existed {
			return Item{}, false, nil
		}
		var remaining []component
		if len(c.indices) > 0 {
			remaining = append([]component{{indices: c.indices}}, rest...)
		} else {
			remaining = rest
		}
		old, oldExisted, err := removeComponents(&child, remaining)
		obj[c.name] = child
		return old, oldExisted, err
	}

	arr, ok := cur.AsArray()
	if !ok {
		return Item{}, false, errs.E("settings.Remove", errs.FailedPrecondition, nil)
	}
	idx := c.indices[0]
	if idx < 0 || idx >= len(arr) {
		return Item{}, false, nil
	}
	if len(c.indices) == 1 && len(rest) == 0 {
		old := arr[idx]
		cur.arr = append(arr[:idx], arr[idx+1:]...)
		return old, true, nil
	}
	var remaining []component
	if len(c.indices) > 1 {
		remaining = append([]component{{indices: c.indices[1:]}}, rest...)
	} else {
		remaining = rest
	}
	return removeComponents(&arr[idx], remaining)
}
