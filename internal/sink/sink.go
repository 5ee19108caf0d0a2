package sink

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync"
)

// Sink receives the narration of one turn.
type Sink interface {
	Publish(ctx context.Context, runID string, turn int, lines []string) error
}

// Entry is one published turn.
type Entry struct {
	RunID string
	Turn  int
	Lines []string
}

// Memory records published turns in order. Safe for concurrent use.
type Memory struct {
	mu      sync.Mutex
	entries []Entry
}

// NewMemory returns an empty in-memory sink.
func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) Publish(_ context.Context, runID string, turn int, lines []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, Entry{RunID: runID, Turn: turn, Lines: slices.Clone(lines)})
	return nil
}

// Entries returns a copy of everything published so far.
func (m *Memory) Entries() []Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.entries)
}

// Lines returns every line published for runID, in publish order.
func (m *Memory) Lines(runID string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []string{}
	for _, e := range m.entries {
		if e.RunID == runID {
			out = append(out, e.Lines...)
		}
	}
	return out
}

// Log writes each line as an info record.
type Log struct {
	logger *slog.Logger
}

// NewLog returns a sink logging through logger, or slog.Default() when
// logger is nil.
func NewLog(logger *slog.Logger) *Log {
	if logger == nil {
		logger = slog.Default()
	}
	return &Log{logger: logger}
}

func (l *Log) Publish(ctx context.Context, runID string, turn int, lines []string) error {
	for _, line := range lines {
		l.logger.InfoContext(ctx, line, "run_id", runID, "turn", turn)
	}
	return nil
}

// Multi fans a turn out to several sinks. Every sink sees the turn even
// when an earlier one fails; the errors are joined.
type Multi []Sink

func (m Multi) Publish(ctx context.Context, runID string, turn int, lines []string) error {
	var errs []error
	for _, s := range m {
		if err := s.Publish(ctx, runID, turn, lines); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
