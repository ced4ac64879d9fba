package schedule

import (
	"context"
	"errors"
	"runtime"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/gitrdm/railyard/internal/domain"
	"github.com/gitrdm/railyard/internal/railyarderr"
	mk "github.com/gitrdm/railyard/pkg/minikanren"
)

// parallelWorkerThreshold is the smallest model size (trains*trips) at which
// branch-and-bound is dispatched across multiple workers; below it the
// per-worker setup cost is not worth paying.
const parallelWorkerThreshold = 64

// errInfeasible is the sentinel cause wrapped by railyarderr.Infeasible
// results; the solver itself returns no error for a proven-infeasible
// model, so this package supplies one.
var errInfeasible = errors.New("no feasible assignment exists for this planning day")

// Status reports the solver's outcome, per §4.6.
type Status string

const (
	StatusOptimal    Status = "OPTIMAL"
	StatusFeasible   Status = "FEASIBLE"
	StatusInfeasible Status = "INFEASIBLE"
	StatusUnknown    Status = "UNKNOWN"
)

// Result bundles the built variables, solved values, and outcome status
// needed by the extractor.
type Result struct {
	Status    Status
	Values    []int // indexed by FD variable ID; nil when no incumbent exists
	Objective int   // decoded true objective value; meaningless unless Values != nil
	Variables *Variables
	Monitor   *mk.SolverMonitor
}

// Solve builds decision variables, posts C1-C7', assembles the objective,
// and runs branch-and-bound with the given wall-clock budget.
func Solve(ctx context.Context, model *domain.Model, budget time.Duration, log *logrus.Logger) (*Result, error) {
	return SolveWithSeed(ctx, model, budget, 42, log)
}

// SolveWithSeed is Solve with an explicit random seed, threaded through from
// config.Config.RandomSeed into the solver's heuristic settings. The solver
// stores the seed but does not read it (values are always tried in
// ascending order), so the seed does not change the result.
func SolveWithSeed(ctx context.Context, model *domain.Model, budget time.Duration, seed int64, log *logrus.Logger) (*Result, error) {
	v, err := Build(model)
	if err != nil {
		return nil, railyarderr.New(railyarderr.BadInput, err)
	}
	if err := Constraints(model, v); err != nil {
		return nil, railyarderr.New(railyarderr.BadInput, err)
	}
	obj, err := Objective(model, v)
	if err != nil {
		return nil, railyarderr.New(railyarderr.BadInput, err)
	}

	monitor := mk.NewSolverMonitor()
	solver := mk.NewSolver(v.Model)
	solver.SetMonitor(monitor)

	opts := []mk.OptimizeOption{
		mk.WithTimeLimit(budget),
		mk.WithHeuristics(mk.HeuristicDomDeg, mk.ValueOrderAsc, seed),
	}
	if len(model.Trains)*len(model.Trips) >= parallelWorkerThreshold {
		opts = append(opts, mk.WithParallelWorkers(runtime.NumCPU()))
	}

	start := time.Now()
	values, rawObj, solveErr := solver.SolveOptimalWithOptions(ctx, obj.Var, true, opts...)
	elapsed := time.Since(start)

	res := &Result{Variables: v, Monitor: monitor}

	switch {
	case solveErr == nil && values != nil:
		res.Status = StatusOptimal
		res.Values = values
		res.Objective = obj.Decode(rawObj)
	case solveErr != nil && values != nil:
		res.Status = StatusFeasible
		res.Values = values
		res.Objective = obj.Decode(rawObj)
	case solveErr != nil && values == nil:
		res.Status = StatusUnknown
	default:
		res.Status = StatusInfeasible
	}

	fields := logrus.Fields{
		"status":     res.Status,
		"elapsed_ms": elapsed.Milliseconds(),
		"trains":     len(model.Trains),
		"trips":      len(model.Trips),
		"variant_b":  v.UsesVariantB,
	}
	switch res.Status {
	case StatusOptimal, StatusFeasible:
		fields["objective"] = res.Objective
		log.WithFields(fields).Info("schedule: solve finished")
	case StatusInfeasible:
		log.WithFields(fields).Error("schedule: model proved infeasible")
		return res, railyarderr.New(railyarderr.Infeasible, errInfeasible)
	case StatusUnknown:
		log.WithFields(fields).Warn("schedule: time budget exhausted before any incumbent was found")
		return res, railyarderr.New(railyarderr.SolverTimeout, ctx.Err())
	}

	return res, nil
}
