package etl

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/youtube-comments-etl/internal/metrics"
)

var (
	ErrDuplicateUnit = errors.New("unit already registered")
	ErrUnknownUnit   = errors.New("unknown unit")
	ErrCycle         = errors.New("dependency cycle")
)

// Observer is notified as a workflow run progresses. Positions are the
// 1-based index of the unit in execution order.
type Observer interface {
	StageStarted(ctx context.Context, stage string, position int)
	StageFinished(ctx context.Context, stage string, position int, result Result, elapsed time.Duration, err error)
	StageSkipped(ctx context.Context, stage string, position int)
}

type nopObserver struct{}

func (nopObserver) StageStarted(context.Context, string, int) {}
func (nopObserver) StageFinished(context.Context, string, int, Result, time.Duration, error) {}
func (nopObserver) StageSkipped(context.Context, string, int) {}

// Workflow runs registered units in dependency order. It is not safe for
// concurrent registration; Run and RunUnit may be called once set up.
type Workflow struct {
	units map[string]Unit
	names []string            // registration order
	deps  map[string][]string // downstream -> upstreams
	log   zerolog.Logger
}

// NewWorkflow creates an empty workflow
func NewWorkflow(log zerolog.Logger) *Workflow {
	return &Workflow{
		units: make(map[string]Unit),
		deps:  make(map[string][]string),
		log:   log.With().Str("component", "workflow").Logger(),
	}
}

// Register adds a unit under its name
func (w *Workflow) Register(u Unit) error {
	name := u.Name()
	if _, ok := w.units[name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateUnit, name)
	}
	w.units[name] = u
	w.names = append(w.names, name)
	return nil
}

// DependsOn declares that downstream may only run after upstream succeeded
func (w *Workflow) DependsOn(downstream, upstream string) error {
	for _, name := range []string{downstream, upstream} {
		if _, ok := w.units[name]; !ok {
			return fmt.Errorf("%w: %s", ErrUnknownUnit, name)
		}
	}
	if downstream == upstream {
		return fmt.Errorf("%w: %s depends on itself", ErrCycle, downstream)
	}
	w.deps[downstream] = append(w.deps[downstream], upstream)
	return nil
}

// Order returns the unit names sorted topologically. Units that become ready at the same
// time keep their registration order.
func (w *Workflow) Order() ([]string, error) {
	indegree := make(map[string]int, len(w.names))
	dependents := make(map[string][]string, len(w.names))
	for _, name := range w.names {
		for _, up := range w.deps[name] {
			indegree[name]++
			dependents[up] = append(dependents[up], name)
		}
	}

	order := make([]string, 0, len(w.names))
	done := make(map[string]bool, len(w.names))
	for len(order) < len(w.names) {
		progressed := false
		for _, name := range w.names {
			if done[name] || indegree[name] > 0 {
				continue
			}
			done[name] = true
			order = append(order, name)
			for _, down := range dependents[name] {
				indegree[down]--
			}
			progressed = true
			break
		}
		if !progressed {
			return nil, ErrCycle
		}
	}

	return order, nil
}

// Run executes every unit once in dependency order. The first failure halts
// the run: the remaining units are reported as skipped and the error is
// returned as a *StageError. Artifacts written by earlier units are kept.
func (w *Workflow) Run(ctx context.Context, obs Observer) error {
	if obs == nil {
		obs = nopObserver{}
	}

	order, err := w.Order()
	if err != nil {
		return err
	}

	var failed error
	for i, name := range order {
		position := i + 1
		if failed != nil {
			obs.StageSkipped(ctx, name, position)
			metrics.ObserveStageSkipped(name)
			continue
		}
		if _, err := w.runOne(ctx, obs, name, position); err != nil {
			failed = err
		}
	}

	return failed
}

// RunUnit executes a single named unit without its dependencies
func (w *Workflow) RunUnit(ctx context.Context, name string) (Result, error) {
	if _, ok := w.units[name]; !ok {
		return Result{}, fmt.Errorf("%w: %s", ErrUnknownUnit, name)
	}
	return w.runOne(ctx, nopObserver{}, name, 1)
}

func (w *Workflow) runOne(ctx context.Context, obs Observer, name string, position int) (Result, error) {
	unit := w.units[name]
	log := w.log.With().Str("stage", name).Int("position", position).Logger()

	obs.StageStarted(ctx, name, position)
	log.Info().Msg("Stage started")
	start := time.Now()

	var (
		result Result
		err    error
	)
	if err = ctx.Err(); err == nil {
		result, err = unit.Run(ctx)
	}
	elapsed := time.Since(start)

	if err != nil {
		err = &StageError{Stage: name, Err: err}
		obs.StageFinished(ctx, name, position, result, elapsed, err)
		metrics.ObserveStage(name, "failed", elapsed.Seconds(), result.RecordsIn, result.RecordsOut, result.Dropped)
		log.Error().Err(err).Dur("duration", elapsed).Msg("Stage failed")
		return result, err
	}

	obs.StageFinished(ctx, name, position, result, elapsed, nil)
	metrics.ObserveStage(name, "succeeded", elapsed.Seconds(), result.RecordsIn, result.RecordsOut, result.Dropped)
	log.Info().
		Int("records_in", result.RecordsIn).
		Int("records_out", result.RecordsOut).
		Int("dropped", result.Dropped).
		Dur("duration", elapsed).
		Msg("Stage completed")
	return result, nil
}
