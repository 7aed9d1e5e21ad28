// Package logsink provides a concrete implementation of the structured
// log-sink collaborator interface named in SPEC_FULL.md §6c, backed by the
// same zerolog.Logger used ambient-wide (internal/obs), so production
// wiring and the opaque collaborator boundary share one underlying writer.
package logsink

import "github.com/rs/zerolog"

// Sink accepts structured log events keyed by a short event name plus
// arbitrary fields, matching the field-based style SPEC_FULL.md §1a
// describes (event/venue/symbol/weight_used rather than prose).
type Sink struct {
	logger zerolog.Logger
}

// New wraps an existing zerolog.Logger as a Sink.
func New(logger zerolog.Logger) *Sink {
	return &Sink{logger: logger}
}

// Record emits one structured event with the given fields.
func (s *Sink) Record(event string, fields map[string]any) {
	e := s.logger.Info()
	for k, v := range fields {
		e = e.Interface(k, v)
	}
	e.Msg(event)
}
