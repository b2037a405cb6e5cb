package tracing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSubscriber struct {
	events  []Event
	spans   []SpanDescriptor
	flushed bool
}

func (r *recordingSubscriber) CreateSpan(desc SpanDescriptor) Span {
	r.spans = append(r.spans, desc)
	return &recordingSpan{r: r}
}
func (r *recordingSubscriber) EmitEvent(e Event) { r.events = append(r.events, e) }
func (r *recordingSubscriber) Flush()            { r.flushed = true }

type recordingSpan struct{ r *recordingSubscriber }

func (s *recordingSpan) Exit() {}

func TestInstallRejectsDoubleInstall(t *testing.T) {
	d := &Dispatcher{}
	require.True(t, d.Install(&recordingSubscriber{}, LevelInfo))
	assert.False(t, d.Install(&recordingSubscriber{}, LevelInfo))
	d.Uninstall()
	assert.True(t, d.Install(&recordingSubscriber{}, LevelInfo))
}

func TestEmitFiltersBelowMaxLevel(t *testing.T) {
	d := &Dispatcher{}
	sub := &recordingSubscriber{}
	require.True(t, d.Install(sub, LevelWarn))
	defer d.Uninstall()

	d.Emit(Event{Metadata: Metadata{Level: LevelDebug}, Message: "dropped"})
	assert.Len(t, sub.events, 0)

	d.Emit(Event{Metadata: Metadata{Level: LevelError}, Message: "kept"})
	require.Len(t, sub.events, 1)
	assert.Equal(t, "kept", sub.events[0].Message)
}

func TestEmitNoopWithoutSubscriber(t *testing.T) {
	d := &Dispatcher{}
	assert.NotPanics(t, func() {
		d.Emit(Event{Metadata: Metadata{Level: LevelError}})
	})
}

func TestEnterSpanReturnsNoopWhenFiltered(t *testing.T) {
	d := &Dispatcher{}
	sub := &recordingSubscriber{}
	require.True(t, d.Install(sub, LevelError))
	defer d.Uninstall()

	span := d.EnterSpan(SpanDescriptor{Metadata: Metadata{Level: LevelTrace}})
	assert.Len(t, sub.spans, 0)
	span.Exit()
}

func TestUninstallFlushes(t *testing.T) {
	d := &Dispatcher{}
	sub := &recordingSubscriber{}
	require.True(t, d.Install(sub, LevelInfo))
	d.Uninstall()
	assert.True(t, sub.flushed)
	assert.False(t, d.IsInstalled())
}

func TestSlogSubscriberEmitsWithoutPanic(t *testing.T) {
	sub := NewSlogSubscriber(nil)
	assert.NotPanics(t, func() {
		sub.EmitEvent(Event{Metadata: Metadata{Name: "n", Target: "t", Level: LevelInfo}, Message: "hi"})
		span := sub.CreateSpan(SpanDescriptor{Metadata: Metadata{Name: "s", Level: LevelInfo}})
		span.Exit()
		sub.Flush()
	})
}
