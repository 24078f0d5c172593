package observer

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/ppiankov/veritas/internal/logging"
	"github.com/ppiankov/veritas/internal/model"
)

// Log is an append-only list of observer notes. There is no update or delete.
type Log struct {
	mu     sync.RWMutex
	notes  []model.ObserverNote
	sink   io.Writer
	closer io.Closer
	logger logging.Logger
	now    func() time.Time
}

// Option configures a Log
type Option func(*Log)

// WithSink mirrors every note to w as one JSON object per line
func WithSink(w io.Writer) Option {
	return func(l *Log) {
		l.sink = w
	}
}

// WithLogger mirrors every note to the structured log at debug level
func WithLogger(logger logging.Logger) Option {
	return func(l *Log) {
		l.logger = logging.Named(logger, "observer")
	}
}

// New creates an empty log
func New(opts ...Option) *Log {
	l := &Log{
		logger: logging.Nop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Open creates a log whose sink is the JSON lines file at path, opened for append
func Open(path string, opts ...Option) (*Log, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open audit log: %w", err)
	}
	l := New(append(opts, WithSink(f))...)
	l.closer = f
	return l, nil
}

// AddNote appends a note. Metadata is copied so later changes by the caller are not recorded.
func (l *Log) AddNote(note string, metadata map[string]any) {
	entry := model.ObserverNote{
		ID:        uuid.NewString(),
		Note:      note,
		Metadata:  copyMap(metadata),
		Timestamp: l.now().UTC(),
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.notes = append(l.notes, entry)

	if l.sink != nil {
		line, err := json.Marshal(entry)
		if err == nil {
			_, err = l.sink.Write(append(line, '\n'))
		}
		if err != nil {
			l.logger.Warn().Err(err).Str("note_id", entry.ID).Msg("write audit sink")
		}
	}

	l.logger.Debug().
		Str("note_id", entry.ID).
		Interface("metadata", entry.Metadata).
		Msg(note)
}

// Notes returns deep copies of all notes in insertion order
func (l *Log) Notes() []model.ObserverNote {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]model.ObserverNote, len(l.notes))
	for i, n := range l.notes {
		n.Metadata = copyMap(n.Metadata)
		out[i] = n
	}
	return out
}

// Len returns the number of notes
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.notes)
}

// Close closes the file sink opened by Open
func (l *Log) Close() error {
	if l.closer == nil {
		return nil
	}
	return l.closer.Close()
}

func copyMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = copyValue(v)
	}
	return out
}

// copyValue copies the container types metadata is built from; other values are copied by assignment
func copyValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return copyMap(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = copyValue(e)
		}
		return out
	case []string:
		return append([]string(nil), t...)
	case []int:
		return append([]int(nil), t...)
	case []float64:
		return append([]float64(nil), t...)
	case map[string]string:
		out := make(map[string]string, len(t))
		for k, s := range t {
			out[k] = s
		}
		return out
	default:
		return v
	}
}
