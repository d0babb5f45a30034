// Package engine turns a recipe into rows.
//
// An Engine runs one recipe once: it loads and validates the document, then
// generates every declaration in document order and writes each row to the
// sink as soon as it is complete.
package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/leapstack-labs/leapfake/internal/functions"
	"github.com/leapstack-labs/leapfake/internal/loader"
	"github.com/leapstack-labs/leapfake/internal/macro"
	"github.com/leapstack-labs/leapfake/internal/plugin"
	"github.com/leapstack-labs/leapfake/internal/registry"
	starctx "github.com/leapstack-labs/leapfake/internal/starlark"
	"github.com/leapstack-labs/leapfake/pkg/core"
)

// State is the lifecycle of an Engine.
type State int

// Engine states. Failed is reachable from every state but Idle.
const (
	StateIdle State = iota
	StateValidating
	StateGenerating
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateValidating:
		return "validating"
	case StateGenerating:
		return "generating"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// ErrAlreadyRun is returned when Run is called on a used engine.
var ErrAlreadyRun = errors.New("engine has already run")

// Config holds engine configuration.
type Config struct {
	// Filename names the recipe in error messages (default "<stream>").
	Filename string
	// Seed drives all randomness. Zero picks a random seed, reported in Result.
	Seed uint64
	// Today anchors "today" and relative dates. Zero uses the date the
	// engine is created on, reported in Result.
	Today time.Time
	// Sink receives rows. Nil discards them.
	Sink core.Sink
	// Functions is the base registry. It is cloned before plugins are added.
	Functions *functions.Registry
	// PluginsDir holds .star files (optional).
	PluginsDir string
	// Vars are caller variables. They take precedence over `var` declarations.
	Vars map[string]any
	// MaxSteps bounds each expression (default starlark.DefaultMaxSteps).
	MaxSteps uint64
	// Store records the run when set.
	Store core.Store
	// Logger is the structured logger (optional, uses discard if nil).
	Logger *slog.Logger
}

// Result summarizes a successful run.
type Result struct {
	RunID    string
	Seed     uint64
	Today    time.Time
	Rows     int64
	Counts   map[string]int
	Duration time.Duration
}

// Engine generates rows for one recipe.
type Engine struct {
	cfg    Config
	logger *slog.Logger

	mu    sync.Mutex
	state State
}

// New creates an engine.
func New(cfg Config) *Engine {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if cfg.Filename == "" {
		cfg.Filename = core.DefaultFilename
	}
	if cfg.Seed == 0 {
		cfg.Seed = rand.Uint64() //nolint:gosec // G404: seeds test data, not secrets
	}
	if cfg.Today.IsZero() {
		cfg.Today = time.Now()
	}
	y, m, d := cfg.Today.UTC().Date()
	cfg.Today = time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	if cfg.Sink == nil {
		cfg.Sink = core.SinkFunc(func(context.Context, *core.Row) error { return nil })
	}
	return &Engine{cfg: cfg, logger: logger}
}

// State returns the current lifecycle state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Seed returns the seed the engine generates with.
func (e *Engine) Seed() uint64 {
	return e.cfg.Seed
}

// Today returns the reference date relative dates resolve against.
func (e *Engine) Today() time.Time {
	return e.cfg.Today
}

func (e *Engine) transition(to State) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.logger.Debug("engine state", "from", e.state, "to", to)
	e.state = to
}

// Run loads, validates and generates the recipe read from r. Errors from
// the recipe are returned unchanged as *core.Error values.
func (e *Engine) Run(ctx context.Context, r io.Reader) (*Result, error) {
	e.mu.Lock()
	if e.state != StateIdle {
		e.mu.Unlock()
		return nil, ErrAlreadyRun
	}
	e.mu.Unlock()

	start := time.Now()
	var runID string
	if e.cfg.Store != nil {
		run, err := e.cfg.Store.CreateRun(e.cfg.Filename, e.cfg.Seed)
		if err != nil {
			return nil, fmt.Errorf("failed to create run: %w", err)
		}
		runID = run.ID
		e.logger.Debug("created run", "run_id", runID)
	}

	counts, err := e.run(ctx, r)

	var rows int64
	for _, n := range counts {
		rows += int64(n)
	}

	if e.cfg.Store != nil {
		status, msg := core.RunStatusCompleted, ""
		switch {
		case errors.Is(err, context.Canceled):
			status, msg = core.RunStatusCancelled, err.Error()
		case err != nil:
			status, msg = core.RunStatusFailed, err.Error()
		}
		if cerr := e.cfg.Store.CompleteRun(runID, status, rows, msg); cerr != nil {
			e.logger.Warn("failed to complete run record", "run_id", runID, "error", cerr)
		}
	}

	if err != nil {
		e.transition(StateFailed)
		e.logger.Info("generation failed", "file", e.cfg.Filename, "rows", rows, "error", err.Error())
		return nil, err
	}

	e.transition(StateDone)
	result := &Result{
		RunID:    runID,
		Seed:     e.cfg.Seed,
		Today:    e.cfg.Today,
		Rows:     rows,
		Counts:   counts,
		Duration: time.Since(start),
	}
	e.logger.Info("generation completed", "file", e.cfg.Filename, "rows", rows, "seed", e.cfg.Seed,
		"today", e.cfg.Today.Format(time.DateOnly), "duration", result.Duration)
	return result, nil
}

func (e *Engine) run(ctx context.Context, r io.Reader) (map[string]int, error) {
	e.transition(StateValidating)

	doc, err := loader.Load(r, e.cfg.Filename)
	if err != nil {
		return nil, err
	}

	funcs := e.cfg.Functions
	if funcs == nil {
		funcs = functions.Builtins()
	} else {
		funcs = funcs.Clone()
	}
	if e.cfg.PluginsDir != "" {
		modules, err := plugin.NewLoader(e.cfg.PluginsDir, e.logger).LoadInto(funcs)
		if err != nil {
			return nil, fmt.Errorf("failed to load plugins: %w", err)
		}
		e.logger.Debug("loaded plugins", "dir", e.cfg.PluginsDir, "modules", len(modules))
	}

	rows := registry.NewRows()
	fctx := &functions.Context{Faker: gofakeit.New(e.cfg.Seed), Rows: rows, Today: e.cfg.Today}

	opts := []starctx.Option{starctx.WithLogger(e.logger)}
	if e.cfg.MaxSteps > 0 {
		opts = append(opts, starctx.WithMaxSteps(e.cfg.MaxSteps))
	}
	eval := starctx.NewEvaluator(doc.File, funcs, fctx, opts...)
	for name, v := range e.cfg.Vars {
		eval.SetVar(name, v)
	}

	g := &generator{
		file:   doc.File,
		eval:   eval,
		macros: macro.NewResolver(doc.File),
		rows:   rows,
		sink:   e.cfg.Sink,
		vars:   e.cfg.Vars,
		logger: e.logger,
	}

	e.transition(StateGenerating)
	err = g.document(ctx, doc)
	return rows.Counts(), err
}
