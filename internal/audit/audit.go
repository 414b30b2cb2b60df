// internal/audit/audit.go
package audit

import (
	"time"

	"github.com/rs/zerolog"
)

// Event records one state-changing operation. Persistence and broadcast
// belong to external sinks; the core only emits.
type Event struct {
	Timestamp time.Time
	Action    string
	Source    string
	Details   string
}

// Sink consumes audit events. Implementations must not block the caller
// for long: events are emitted from actuation paths.
type Sink interface {
	Emit(Event)
}

// LogSink writes events to a zerolog logger. The default sink when no
// external consumer is wired.
type LogSink struct {
	log zerolog.Logger
}

func NewLogSink(log zerolog.Logger) *LogSink {
	return &LogSink{log: log}
}

func (s *LogSink) Emit(e Event) {
	s.log.Info().
		Time("at", e.Timestamp).
		Str("action", e.Action).
		Str("source", e.Source).
		Str("details", e.Details).
		Msg("audit")
}

// Discard drops all events.
type Discard struct{}

func (Discard) Emit(Event) {}
