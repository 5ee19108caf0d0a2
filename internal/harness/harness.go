package harness

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/roach88/cae/internal/compiler"
	"github.com/roach88/cae/internal/sim"
)

// ErrTranscriptMismatch is reported when a scenario's narration differs
// from its golden transcript.
var ErrTranscriptMismatch = errors.New("transcript mismatch")

// Harness plays scenarios against a fresh simulation each time.
type Harness struct {
	logger  *slog.Logger
	simOpts []sim.Option
	update  bool
}

// Option configures a Harness.
type Option func(*Harness)

// WithLogger sets the logger handed to the simulation.
func WithLogger(l *slog.Logger) Option {
	return func(h *Harness) { h.logger = l }
}

// WithSimOptions passes extra options (sinks, archives) to every
// simulation the harness builds.
func WithSimOptions(opts ...sim.Option) Option {
	return func(h *Harness) { h.simOpts = append(h.simOpts, opts...) }
}

// WithUpdateGolden rewrites golden transcripts instead of comparing them.
func WithUpdateGolden(update bool) Option {
	return func(h *Harness) { h.update = update }
}

// New creates a Harness. Logs are discarded unless WithLogger is given.
func New(opts ...Option) *Harness {
	h := &Harness{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Run executes a scenario with a default Harness.
func Run(ctx context.Context, scenario *Scenario) (*Result, error) {
	return New().Run(ctx, scenario)
}

// Run executes a test scenario and returns the result.
//
// Execution flow:
//  1. Load, compile and validate the scenario's world
//  2. For each turn: queue its commands, step once, check its assertions
//  3. Compare (or rewrite) the golden transcript, if any
//
// The returned error covers scenarios that cannot be played at all.
// Assertion failures are collected in Result.Errors.
func (h *Harness) Run(ctx context.Context, scenario *Scenario) (*Result, error) {
	spec, err := LoadWorld(scenario.World)
	if err != nil {
		return nil, err
	}

	opts := []sim.Option{sim.WithLogger(h.logger)}
	if scenario.RunID != "" {
		opts = append(opts, sim.WithRunID(scenario.RunID))
	}
	opts = append(opts, h.simOpts...)

	s, err := sim.New(*spec, opts...)
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", scenario.Name, err)
	}

	result := NewResult(scenario.Name, s.RunID())
	for i, step := range scenario.Turns {
		for _, cmd := range step.Commands {
			if err := s.Enqueue(cmd); err != nil {
				return nil, fmt.Errorf("turn %d: enqueue %s: %w", i+1, cmd, err)
			}
		}

		report, err := s.Step(ctx)
		if err != nil {
			return nil, err
		}

		var tree strings.Builder
		if err := s.Graph().WriteTree(&tree); err != nil {
			return nil, fmt.Errorf("turn %d: %w", report.Turn, err)
		}
		turn := TurnResult{TickReport: report, Tree: tree.String()}
		result.Turns = append(result.Turns, turn)

		view := &turnView{graph: s.Graph(), world: s.World(), report: turn}
		for _, msg := range evaluateAssertions(view, step.Expect) {
			result.AddError(msg)
		}

		h.logger.Info("scenario turn completed",
			"scenario", scenario.Name,
			"turn", report.Turn,
			"nodes", report.Nodes,
			"digest", report.Digest,
		)
	}

	var dot bytes.Buffer
	if err := s.Graph().WriteDOT(&dot); err != nil {
		return nil, err
	}
	result.DOT = dot.String()

	if scenario.Golden != "" {
		if err := h.checkTranscript(scenario.Golden, result); err != nil {
			if !errors.Is(err, ErrTranscriptMismatch) {
				return nil, err
			}
			result.AddError(err.Error())
		}
	}

	return result, nil
}

// LoadWorld compiles a world and runs the validation pass, joining every
// validation error.
func LoadWorld(path string) (*sim.WorldSpec, error) {
	spec, err := compiler.Load(path)
	if err != nil {
		return nil, err
	}
	if verrs := compiler.Validate(spec); len(verrs) > 0 {
		errs := make([]error, len(verrs))
		for i, ve := range verrs {
			errs[i] = ve
		}
		return nil, fmt.Errorf("world %s: %w", path, errors.Join(errs...))
	}
	return spec, nil
}

func (h *Harness) checkTranscript(path string, result *Result) error {
	got := result.Transcript()
	if h.update {
		if err := os.WriteFile(path, []byte(got), 0o644); err != nil {
			return fmt.Errorf("write transcript: %w", err)
		}
		h.logger.Info("transcript updated", "path", path)
		return nil
	}

	want, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read transcript: %w", err)
	}
	if string(want) != got {
		return fmt.Errorf("%w: %s\n--- want\n%s--- got\n%s", ErrTranscriptMismatch, path, want, got)
	}
	return nil
}
