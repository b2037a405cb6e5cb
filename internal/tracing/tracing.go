// Package tracing implements the host-provided tracing subsystem
// spec.md §6 describes only through its consumed interface: leveled
// events and spans dispatched to an installed Subscriber, with the
// dispatcher itself a cheap no-op whenever an event's level is below
// the configured maximum. Adapted from the v0 API in
// original_source's fimo_std tracing.rs — the richer call-stack/
// thread-registration machinery of later API revisions is dropped per
// spec.md §9's resolution to keep only the v0 shape.
package tracing

import (
	"sync"
	"sync/atomic"
)

// Level orders tracing verbosity from silent to everything.
type Level uint8

const (
	LevelOff Level = iota
	LevelError
	LevelWarn
	LevelInfo
	LevelDebug
	LevelTrace
)

func (l Level) String() string {
	switch l {
	case LevelOff:
		return "off"
	case LevelError:
		return "error"
	case LevelWarn:
		return "warn"
	case LevelInfo:
		return "info"
	case LevelDebug:
		return "debug"
	case LevelTrace:
		return "trace"
	default:
		return "unknown"
	}
}

// Metadata describes the static site an Event or SpanDescriptor was
// recorded at.
type Metadata struct {
	Name     string
	Target   string
	Level    Level
	FileName string
	Line     uint32
}

// Event is a single point-in-time tracing record.
type Event struct {
	Metadata Metadata
	Message  string
}

// SpanDescriptor names a span about to be entered; the Subscriber
// decides what (if anything) to allocate for it.
type SpanDescriptor struct {
	Metadata Metadata
}

// Span is an opaque handle a Subscriber returns from CreateSpan; the
// dispatcher calls Exit exactly once, when the span's scope ends.
type Span interface {
	Exit()
}

// Subscriber is the interface a tracing backend implements. Go's
// single-goroutine call-stack model has no analogue to the original's
// per-thread call-stack/suspend/resume API, so this is deliberately
// narrower than the original Subscriber trait: event emission and
// span enter/exit only, which is everything spec.md §6 names as
// externally observable.
type Subscriber interface {
	CreateSpan(desc SpanDescriptor) Span
	EmitEvent(event Event)
	Flush()
}

// Dispatcher holds the process-wide installed Subscriber and the max
// level it will forward events for. The zero Dispatcher dispatches
// nothing (Off, nil subscriber) — exactly like the original tracing
// subsystem before fimo_tracing_create is called.
type Dispatcher struct {
	installed atomic.Bool
	mu        sync.RWMutex
	sub       Subscriber
	maxLevel  Level
}

var global Dispatcher

// Global returns the process-wide Dispatcher instance.
func Global() *Dispatcher { return &global }

// Install attaches sub as the dispatcher's subscriber at maxLevel.
// Per the design notes' once-cell + explicit lifecycle guidance,
// double-install without an intervening Uninstall is rejected rather
// than silently replacing the previous subscriber.
func (d *Dispatcher) Install(sub Subscriber, maxLevel Level) bool {
	if !d.installed.CompareAndSwap(false, true) {
		return false
	}
	d.mu.Lock()
	d.sub = sub
	d.maxLevel = maxLevel
	d.mu.Unlock()
	return true
}

// Uninstall flushes and detaches the current subscriber, if any,
// returning the dispatcher to its uninstalled state.
func (d *Dispatcher) Uninstall() {
	d.mu.Lock()
	sub := d.sub
	d.sub = nil
	d.maxLevel = LevelOff
	d.mu.Unlock()
	if sub != nil {
		sub.Flush()
	}
	d.installed.Store(false)
}

// IsInstalled reports whether a subscriber is currently attached.
func (d *Dispatcher) IsInstalled() bool { return d.installed.Load() }

func (d *Dispatcher) snapshot() (Subscriber, Level) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.sub, d.maxLevel
}

// Emit dispatches event to the installed subscriber, doing nothing if
// no subscriber is installed or event's level exceeds the configured
// maximum (spec.md §6: "dispatcher is a no-op below the configured
// max level").
func (d *Dispatcher) Emit(event Event) {
	sub, maxLevel := d.snapshot()
	if sub == nil || event.Metadata.Level > maxLevel || event.Metadata.Level == LevelOff {
		return
	}
	sub.EmitEvent(event)
}

// EnterSpan creates a span via the installed subscriber, returning a
// no-op Span if none is installed or desc's level is filtered out.
func (d *Dispatcher) EnterSpan(desc SpanDescriptor) Span {
	sub, maxLevel := d.snapshot()
	if sub == nil || desc.Metadata.Level > maxLevel || desc.Metadata.Level == LevelOff {
		return noopSpan{}
	}
	return sub.CreateSpan(desc)
}

type noopSpan struct{}

func (noopSpan) Exit() {}
