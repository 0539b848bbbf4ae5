package examclient

import (
	"context"
	"encoding/json"
	"io"
	"strings"
	"sync"
	"time"
)

// AuditEvent is one recorded session transition. Events never carry the
// bearer token or a password.
type AuditEvent struct {
	ID        string            `json:"id"`
	Timestamp time.Time         `json:"timestamp"`
	EventType string            `json:"event_type"`
	UserID    string            `json:"user_id,omitempty"`
	Source    string            `json:"source,omitempty"`
	Success   bool              `json:"success"`
	Error     string            `json:"error,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// Failed reports whether the event records a rejected or failed transition.
func (e AuditEvent) Failed() bool {
	return !e.Success
}

// AuditSink receives audit events from the dispatcher goroutine.
type AuditSink interface {
	Emit(ctx context.Context, event AuditEvent)
}

// NoOpSink discards every event.
type NoOpSink struct{}

// Emit implements [AuditSink].
func (NoOpSink) Emit(context.Context, AuditEvent) {}

// ChannelSink forwards events to a buffered channel.
type ChannelSink struct {
	events chan AuditEvent
}

// NewChannelSink creates a [ChannelSink] holding up to buffer events.
func NewChannelSink(buffer int) *ChannelSink {
	if buffer <= 0 {
		buffer = 1
	}
	return &ChannelSink{events: make(chan AuditEvent, buffer)}
}

// Emit blocks until the event is buffered or ctx is done.
func (s *ChannelSink) Emit(ctx context.Context, event AuditEvent) {
	select {
	case s.events <- event:
	case <-ctx.Done():
	}
}

// Events returns the receive side of the sink.
func (s *ChannelSink) Events() <-chan AuditEvent {
	return s.events
}

// FilterSink forwards only the events keep accepts.
type FilterSink struct {
	next AuditSink
	keep func(AuditEvent) bool
}

// NewFilterSink wraps next. A nil keep forwards everything.
func NewFilterSink(next AuditSink, keep func(AuditEvent) bool) *FilterSink {
	return &FilterSink{next: next, keep: keep}
}

// Emit implements [AuditSink].
func (s *FilterSink) Emit(ctx context.Context, event AuditEvent) {
	if s == nil || s.next == nil {
		return
	}
	if s.keep != nil && !s.keep(event) {
		return
	}
	s.next.Emit(ctx, event)
}

// redactedMetadataKeys never reach a JSON log, whatever a caller put in
// the metadata.
var redactedMetadataKeys = []string{"token", "password", "secret", "authorization"}

// JSONWriterSink writes one JSON object per line.
type JSONWriterSink struct {
	writer io.Writer
	mu     sync.Mutex
}

// NewJSONWriterSink creates a [JSONWriterSink] over w.
func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return &JSONWriterSink{writer: w}
}

// Emit implements [AuditSink]. Metadata values under credential-like keys
// are replaced with "[redacted]". Write errors are ignored.
func (s *JSONWriterSink) Emit(_ context.Context, event AuditEvent) {
	if s == nil || s.writer == nil {
		return
	}
	event.Metadata = redactMetadata(event.Metadata)

	data, err := json.Marshal(event)
	if err != nil {
		return
	}
	data = append(data, '\n')

	s.mu.Lock()
	defer s.mu.Unlock()
	_, _ = s.writer.Write(data)
}

func redactMetadata(in map[string]string) map[string]string {
	if len(in) == 0 {
		return in
	}
	var out map[string]string
	for k := range in {
		lower := strings.ToLower(k)
		for _, sensitive := range redactedMetadataKeys {
			if !strings.Contains(lower, sensitive) {
				continue
			}
			if out == nil {
				out = make(map[string]string, len(in))
				for kk, vv := range in {
					out[kk] = vv
				}
			}
			out[k] = "[redacted]"
			break
		}
	}
	if out == nil {
		return in
	}
	return out
}
