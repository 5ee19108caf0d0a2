package sim

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/roach88/cae/internal/cae"
	"github.com/roach88/cae/internal/event"
	"github.com/roach88/cae/internal/ir"
	"github.com/roach88/cae/internal/sink"
	"github.com/roach88/cae/internal/store"
)

var (
	// ErrStopped is returned by Enqueue after Stop.
	ErrStopped = errors.New("simulation stopped")

	// ErrMaxTurns is returned by Step once the turn limit is reached.
	ErrMaxTurns = errors.New("turn limit reached")
)

// Sim owns a world, its causal graph and the systems that advance it.
type Sim struct {
	mu sync.Mutex

	runID    string
	idGen    RunIDGenerator
	world    *World
	graph    *event.Graph
	registry *event.Registry
	systems  *Dispatcher
	queue    *commandQueue

	sink     sink.Sink
	archive  Archive
	run      store.Run
	extra    []System
	logger   *slog.Logger
	turn     int
	maxTurns int
	maxNodes int
}

// Option configures a Sim.
type Option func(*Sim)

// WithLogger sets the logger used by the Sim, its graph and its systems.
func WithLogger(l *slog.Logger) Option {
	return func(s *Sim) { s.logger = l }
}

// WithSink publishes every turn's narration to snk.
func WithSink(snk sink.Sink) Option {
	return func(s *Sim) { s.sink = snk }
}

// WithArchive writes every finished turn to a. run describes the run;
// its ID is filled in from the Sim.
func WithArchive(a Archive, run store.Run) Option {
	return func(s *Sim) {
		s.archive = a
		s.run = run
	}
}

// WithRunID pins the run id.
func WithRunID(id string) Option {
	return func(s *Sim) { s.runID = id }
}

// WithRunIDGenerator sets how the run id is generated when none is
// pinned. Default: UUIDv7Generator.
func WithRunIDGenerator(g RunIDGenerator) Option {
	return func(s *Sim) { s.idGen = g }
}

// WithMaxTurns makes Step fail with ErrMaxTurns after n turns. Zero means
// no limit.
func WithMaxTurns(n int) Option {
	return func(s *Sim) { s.maxTurns = n }
}

// WithMaxNodes aborts any turn that grows past n nodes with a
// *NodeBudgetError. Zero means no limit.
func WithMaxNodes(n int) Option {
	return func(s *Sim) { s.maxNodes = n }
}

// WithSystems registers extra systems. Extra write systems run after the
// built-in writers, extra read systems after the built-in readers.
func WithSystems(systems ...System) Option {
	return func(s *Sim) { s.extra = append(s.extra, systems...) }
}

// New builds a Sim for spec.
func New(spec WorldSpec, opts ...Option) (*Sim, error) {
	world, err := NewWorld(spec)
	if err != nil {
		return nil, err
	}

	s := &Sim{
		world:  world,
		idGen:  UUIDv7Generator{},
		queue:  newCommandQueue(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.runID == "" {
		s.runID = s.idGen.Generate()
	}
	if s.run.World == "" {
		s.run.World = spec.Name
	}
	if s.run.EngineVersion == "" {
		s.run.EngineVersion = ir.EngineVersion
		s.run.SchemaVersion = ir.SchemaVersion
	}

	s.graph = event.NewGraph(cae.WithLogger(s.logger))
	s.registry = cae.NewRegistry[event.Label]()
	s.systems = NewDispatcher(s.registry, s.logger)
	s.systems.SetMaxNodes(s.maxNodes)
	if err := s.registerSystems(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Sim) registerSystems() error {
	builtin := []System{
		NewTurns(),
		NewMovement(),
		NewTraps(),
		NewCombat(),
		NewItems(),
		NewHealth(),
	}
	readers := []System{
		NewNarration(s.sink, s.logger),
		NewParticles(),
	}
	if s.archive != nil {
		readers = append(readers, NewArchiver(s.archive, s.run))
	}

	var ordered []System
	ordered = append(ordered, builtin...)
	for _, sys := range s.extra {
		if sys.Phase() == PhaseWrite {
			ordered = append(ordered, sys)
		}
	}
	ordered = append(ordered, readers...)
	for _, sys := range s.extra {
		if sys.Phase() != PhaseWrite {
			ordered = append(ordered, sys)
		}
	}

	for _, sys := range ordered {
		if err := s.systems.Register(sys); err != nil {
			return err
		}
	}
	return nil
}

// RunID returns the run id.
func (s *Sim) RunID() string { return s.runID }

// Turn returns the number of completed turns.
func (s *Sim) Turn() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.turn
}

// World returns the live world. Do not call it concurrently with Step.
func (s *Sim) World() *World { return s.world }

// Graph returns the causal graph of the last turn. Do not call it
// concurrently with Step.
func (s *Sim) Graph() *event.Graph { return s.graph }

// Registry returns the subscriptions of the registered systems.
func (s *Sim) Registry() *event.Registry { return s.registry }

// Pending returns the number of queued commands.
func (s *Sim) Pending() int { return s.queue.Len() }

// Enqueue queues a command for a later tick. Safe from any goroutine.
// Each tick takes at most one command per actor.
func (s *Sim) Enqueue(cmd Command) error {
	if err := cmd.Validate(); err != nil {
		return err
	}
	if !s.queue.Enqueue(cmd) {
		return ErrStopped
	}
	return nil
}

// Step runs one tick.
//
// A tick aborted by a failing system (a *NodeBudgetError, say) still
// counts as a turn, and the world changes made by the systems that ran
// before the failure are kept. The graph holds that partial turn until the
// next Step; nothing of it is narrated or archived.
func (s *Sim) Step(ctx context.Context) (TickReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.maxTurns > 0 && s.turn >= s.maxTurns {
		return TickReport{}, ErrMaxTurns
	}

	s.turn++
	report := &TickReport{
		RunID:     s.runID,
		Turn:      s.turn,
		Narration: []string{},
		Particles: []Particle{},
	}
	tick := &Tick{
		RunID:    s.runID,
		Turn:     s.turn,
		Graph:    s.graph,
		World:    s.world,
		Commands: s.takeCommands(),
		Report:   report,
		Logger:   s.logger,
		seal:     sealTurn,
	}

	if err := s.systems.Tick(ctx, tick); err != nil {
		return TickReport{}, fmt.Errorf("turn %d: %w", s.turn, err)
	}

	s.logger.Debug("tick complete",
		"run_id", s.runID,
		"turn", s.turn,
		"nodes", report.Nodes,
		"digest", report.Digest,
	)
	return *report, nil
}

// takeCommands resolves this tick's queued commands to living actors.
func (s *Sim) takeCommands() map[event.EntityID]Command {
	out := make(map[event.EntityID]Command)
	for _, cmd := range s.queue.TakeTurn() {
		e, ok := s.world.EntityByName(cmd.Actor)
		if !ok {
			s.logger.Warn("dropping command for unknown actor", "command", cmd.String())
			continue
		}
		if !e.Alive() {
			s.logger.Debug("dropping command for dead actor", "command", cmd.String())
			continue
		}
		out[e.ID] = cmd
	}
	return out
}

// Run steps whenever commands are queued. Blocks until ctx is cancelled,
// Stop is called and the queue drains, or the turn limit is reached.
//
// A failed tick is logged and the loop continues.
func (s *Sim) Run(ctx context.Context) error {
	s.logger.Info("simulation starting", "run_id", s.runID, "world", s.world.Name)

	for {
		if s.queue.Len() > 0 {
			_, err := s.Step(ctx)
			switch {
			case err == nil:
			case errors.Is(err, ErrMaxTurns):
				s.logger.Info("simulation stopping: turn limit reached", "turns", s.maxTurns)
				s.queue.Close()
				return nil
			case ctx.Err() != nil:
				return ctx.Err()
			default:
				s.logger.Error("tick failed", "run_id", s.runID, "error", err)
			}
			continue
		}

		select {
		case <-ctx.Done():
			s.logger.Info("simulation stopping: context cancelled")
			s.queue.Close()
			return ctx.Err()

		case <-s.queue.Wait():
			if s.queue.Closed() && s.queue.Len() == 0 {
				s.logger.Info("simulation stopping: queue closed")
				return nil
			}
		}
	}
}

// Stop stops accepting commands. Run returns once the queue is drained.
func (s *Sim) Stop() {
	s.queue.Close()
}
