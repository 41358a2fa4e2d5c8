// Package eventlog implements the Event Log Sink: a fire-and-forget,
// append-only writer backing POST /api/event_logging/batch.
//
// Grounded on SPEC_FULL.md §6's persisted-state description
// ("append-only text, `[<rfc3339>] <body>` lines"); no analogous sink
// exists in the teacher, so the shape here is the simplest idiomatic
// append-writer, matching the plain-file, no-rotation style the
// teacher uses for its own on-disk state (internal/config's
// credentials path).
package eventlog

import (
	"fmt"
	"os"
	"sync"
	"time"
)

// Sink appends event-log batch bodies to a single file, one RFC3339-
// timestamped line per call. Safe for concurrent use.
type Sink struct {
	mu   sync.Mutex
	file *os.File
}

// Open opens (creating if necessary) the event log file at path in
// append mode, matching SPEC_FULL.md §4.P's O_APPEND|O_CREATE|O_WRONLY,
// 0644 mode.
func Open(path string) (*Sink, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("opening event log %s: %w", path, err)
	}
	return &Sink{file: f}, nil
}

// Append writes one "[<rfc3339>] <body>\n" line. Callers (the Handler,
// K) must never let a failure here surface to the client; per
// SPEC_FULL.md §4.P, client telemetry must never break a client
// integration.
func (s *Sink) Append(now time.Time, body []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	line := fmt.Sprintf("[%s] %s\n", now.Format(time.RFC3339), body)
	_, err := s.file.WriteString(line)
	return err
}

// Close closes the underlying file.
func (s *Sink) Close() error {
	return s.file.Close()
}
