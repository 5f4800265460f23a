// Package events keeps the append-only log of committed state transitions.
// The monitoring component tails it out-of-band; recording is best-effort
// and never fails the operation that produced the event.
package events

import (
	"encoding/json"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Altruva-Group/noori-bank/internal/app/domain/event"
)

// Sink receives every recorded event.
type Sink interface {
	Write(evt event.Event) error
}

// Log is a bounded in-memory ring of recent events with optional durable
// sink.
type Log struct {
	mu      sync.Mutex
	entries []event.Event
	max     int
	sink    Sink
}

// NewLog creates a log retaining at most max recent events.
func NewLog(max int, sink Sink) *Log {
	if max <= 0 {
		max = 1000
	}
	return &Log{max: max, sink: sink}
}

// Record appends a committed transition. The event ID and timestamp are
// assigned here.
func (l *Log) Record(evt event.Event) event.Event {
	evt.ID = uuid.NewString()
	evt.Time = time.Now().UTC()

	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, evt)
	if len(l.entries) > l.max {
		l.entries = l.entries[len(l.entries)-l.max:]
	}
	if l.sink != nil {
		// Best-effort persistence; a failing sink must not impact the
		// committed operation.
		_ = l.sink.Write(evt)
	}
	return evt
}

// List returns a copy of the retained events, oldest first.
func (l *Log) List() []event.Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]event.Event, len(l.entries))
	copy(out, l.entries)
	return out
}

// ListLimit returns up to limit most recent events, oldest first.
func (l *Log) ListLimit(limit int) []event.Event {
	if limit <= 0 || limit > l.max {
		limit = l.max
	}
	all := l.List()
	if len(all) <= limit {
		return all
	}
	return all[len(all)-limit:]
}

// FileSink appends events as JSONL.
type FileSink struct {
	mu   sync.Mutex
	file *os.File
}

// NewFileSink opens (or creates) the JSONL file at path. An empty path
// yields a nil sink.
func NewFileSink(path string) (*FileSink, error) {
	if path == "" {
		return nil, nil
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, err
	}
	return &FileSink{file: file}, nil
}

func (s *FileSink) Write(evt event.Event) error {
	payload, err := json.Marshal(evt)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err = s.file.Write(append(payload, '\n'))
	return err
}

// Close releases the underlying file.
func (s *FileSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.file.Close()
}
