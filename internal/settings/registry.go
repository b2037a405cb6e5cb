package settings

import (
	"encoding/json"
	"math"
	"sync"

	"github.com/tidwall/gjson"
	"github.com/tidwall/pretty"

	"github.com/nylonring/corert/internal/errs"
)

// Metadata holds the write/remove callbacks the registry invokes for
// a given path, the Go analogue of the original settings registry's
// generic SettingsItemMetadata trait — kept as a side table here
// rather than embedded per-node, since Go has no ergonomic way to
// carry an extra generic parameter through every Item variant.
type Metadata struct {
	OnWrite  func(path string)
	OnRemove func(path string)
}

// Registry is the host-provided settings tree: a root Item plus a
// side table of per-path write/remove subscriptions.
type Registry struct {
	mu       sync.RWMutex
	root     Item
	metadata map[string]Metadata
}

// NewRegistry constructs an empty settings registry rooted at an
// empty Object.
func NewRegistry() *Registry {
	return &Registry{root: Object(nil), metadata: make(map[string]Metadata)}
}

// LoadJSON replaces the registry's tree by parsing raw JSON, via
// gjson per the teacher pack's own preference for it over hand-rolled
// JSON walking.
func (r *Registry) LoadJSON(data []byte) error {
	if !gjson.ValidBytes(data) {
		return errs.E("settings.LoadJSON", errs.InvalidArgument, nil)
	}
	root := fromGJSON(gjson.ParseBytes(data))

	r.mu.Lock()
	defer r.mu.Unlock()
	r.root = root
	return nil
}

// PrettyJSON renders the current tree as indented JSON.
func (r *Registry) PrettyJSON() ([]byte, error) {
	r.mu.RLock()
	root := r.root
	r.mu.RUnlock()

	raw, err := json.Marshal(itemToAny(root))
	if err != nil {
		return nil, errs.E("settings.PrettyJSON", errs.Internal, err)
	}
	return pretty.Pretty(raw), nil
}

// Read returns a copy of the item at path.
func (r *Registry) Read(path string) (Item, bool, error) {
	p, err := NewPath(path)
	if err != nil {
		return Item{}, false, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.root.Get(p)
}

// Write installs value at path, firing any registered OnWrite
// callback for that exact path afterward.
func (r *Registry) Write(path string, value Item) (Item, bool, error) {
	p, err := NewPath(path)
	if err != nil {
		return Item{}, false, err
	}

	r.mu.Lock()
	old, existed, err := r.root.Write(p, value)
	cb, hasCb := r.metadata[path]
	r.mu.Unlock()

	if err == nil && hasCb && cb.OnWrite != nil {
		cb.OnWrite(path)
	}
	return old, existed, err
}

// ReadOr reads the item at path, writing and returning def if absent.
func (r *Registry) ReadOr(path string, def Item) (Item, error) {
	item, found, err := r.Read(path)
	if err != nil {
		return Item{}, err
	}
	if found {
		return item, nil
	}
	if _, _, err := r.Write(path, def); err != nil {
		return Item{}, err
	}
	return def, nil
}

// Remove deletes the item at path, firing any registered OnRemove
// callback for that exact path afterward.
func (r *Registry) Remove(path string) (Item, bool, error) {
	p, err := NewPath(path)
	if err != nil {
		return Item{}, false, err
	}

	r.mu.Lock()
	old, existed, err := r.root.Remove(p)
	cb, hasCb := r.metadata[path]
	r.mu.Unlock()

	if err == nil && existed && hasCb && cb.OnRemove != nil {
		cb.OnRemove(path)
	}
	return old, existed, err
}

// Subscribe installs (overwriting any previous) write/remove
// callbacks for path.
func (r *Registry) Subscribe(path string, md Metadata) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.metadata[path] = md
}

// Unsubscribe removes any callbacks registered for path.
func (r *Registry) Unsubscribe(path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.metadata, path)
}

func fromGJSON(res gjson.Result) Item {
	switch res.Type {
	case gjson.Null:
		return Null()
	case gjson.False:
		return Bool(false)
	case gjson.True:
		return Bool(true)
	case gjson.Number:
		if res.Num >= 0 && res.Num == math.Trunc(res.Num) {
			return U64(uint64(res.Num))
		}
		return F64(res.Num)
	case gjson.String:
		return String(res.String())
	case gjson.JSON:
		if res.IsArray() {
			var items []Item
			res.ForEach(func(_, value gjson.Result) bool {
				items = append(items, fromGJSON(value))
				return true
			})
			return Array(items...)
		}
		fields := make(map[string]Item)
		res.ForEach(func(key, value gjson.Result) bool {
			fields[key.String()] = fromGJSON(value)
			return true
		})
		return Object(fields)
	default:
		return Null()
	}
}

func itemToAny(it Item) any {
	switch it.Kind() {
	case KindNull:
		return nil
	case KindBool:
		v, _ := it.AsBool()
		return v
	case KindU64:
		v, _ := it.AsU64()
		return v
	case KindF64:
		v, _ := it.AsF64()
		return v
	case KindString:
		v, _ := it.AsString()
		return v
	case KindArray:
		arr, _ := it.AsArray()
		out := make([]any, len(arr))
		for i, e := range arr {
			out[i] = itemToAny(e)
		}
		return out
	case KindObject:
		obj, _ := it.AsObject()
		out := make(map[string]any, len(obj))
		for k, v := range obj {
			out[k] = itemToAny(v)
		}
		return out
	default:
		return nil
	}
}
