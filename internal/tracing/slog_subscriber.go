package tracing

import (
	"context"
	"log/slog"
)

// SlogSubscriber forwards events to a log/slog.Logger, the ambient
// logging library the pack itself reaches for (ja7ad-consumption is
// the only pack repo importing any logging facility, and it imports
// slog) — grounded as the default terminal subscriber every host
// bootstraps with unless it installs something richer.
type SlogSubscriber struct {
	logger *slog.Logger
}

// NewSlogSubscriber wraps logger (or slog.Default() if nil).
func NewSlogSubscriber(logger *slog.Logger) *SlogSubscriber {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlogSubscriber{logger: logger}
}

func (s *SlogSubscriber) EmitEvent(event Event) {
	s.logger.LogAttrs(context.Background(), toSlogLevel(event.Metadata.Level), event.Message,
		slog.String("name", event.Metadata.Name),
		slog.String("target", event.Metadata.Target),
	)
}

func (s *SlogSubscriber) CreateSpan(desc SpanDescriptor) Span {
	s.logger.LogAttrs(context.Background(), toSlogLevel(desc.Metadata.Level), "span enter",
		slog.String("name", desc.Metadata.Name),
		slog.String("target", desc.Metadata.Target),
	)
	return &slogSpan{logger: s.logger, desc: desc}
}

func (s *SlogSubscriber) Flush() {}

type slogSpan struct {
	logger *slog.Logger
	desc   SpanDescriptor
}

func (s *slogSpan) Exit() {
	s.logger.LogAttrs(context.Background(), toSlogLevel(s.desc.Metadata.Level), "span exit",
		slog.String("name", s.desc.Metadata.Name),
	)
}

func toSlogLevel(l Level) slog.Level {
	switch l {
	case LevelError:
		return slog.LevelError
	case LevelWarn:
		return slog.LevelWarn
	case LevelInfo:
		return slog.LevelInfo
	case LevelDebug, LevelTrace:
		return slog.LevelDebug
	default:
		return slog.LevelInfo
	}
}
