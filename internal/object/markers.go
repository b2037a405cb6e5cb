package object

// MarkerSet is a bitset over the predefined marker bounds
// {Send, Sync, Unpin}, captured at object creation so that a downcast
// across the object layer preserves the concrete type's thread-safety
// guarantees.
type MarkerSet uint8

const (
	// MarkerSend marks a type whose values may be transferred across
	// goroutine/worker boundaries.
	MarkerSend MarkerSet = 1 << iota
	// MarkerSync marks a type whose references may be shared across
	// goroutine/worker boundaries.
	MarkerSync
	// MarkerUnpin marks a type that may be safely moved after being
	// referenced (as opposed to a self-referential type).
	MarkerUnpin
)

// Includes reports whether ms carries every marker bit set in
// required. An empty requirement is always satisfied.
func (ms MarkerSet) Includes(required MarkerSet) bool {
	return ms&required == required
}

// With returns a copy of ms with the given markers added.
func (ms MarkerSet) With(markers ...MarkerSet) MarkerSet {
	for _, m := range markers {
		ms |= m
	}
	return ms
}

func (ms MarkerSet) String() string {
	if ms == 0 {
		return "none"
	}
	s := ""
	if ms&MarkerSend != 0 {
		s += "Send+"
	}
	if ms&MarkerSync != 0 {
		s += "Sync+"
	}
	if ms&MarkerUnpin != 0 {
		s += "Unpin+"
	}
	return s[:len(s)-1]
}
