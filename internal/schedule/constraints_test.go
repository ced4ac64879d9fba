package schedule

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gitrdm/railyard/internal/domain"
	mk "github.com/gitrdm/railyard/pkg/minikanren"
)

func TestOverlapsDetectsIntersectingTrips(t *testing.T) {
	a := domain.Trip{StartSec: 100, EndSec: 200}
	b := domain.Trip{StartSec: 150, EndSec: 250}
	c := domain.Trip{StartSec: 200, EndSec: 300}

	assert.True(t, overlaps(a, b))
	assert.False(t, overlaps(a, c), "back-to-back trips sharing only an instant do not overlap")
}

func TestReifiedAndMatchesBooleanConjunction(t *testing.T) {
	for _, av := range []int{boolFalse, boolTrue} {
		for _, bv := range []int{boolFalse, boolTrue} {
			m := mk.NewModel()
			a := fixedBoolVar(m, "a", av)
			b := fixedBoolVar(m, "b", bv)
			c, err := reifiedAnd(m, a, b, "c")
			require.NoError(t, err)

			solver := mk.NewSolver(m)
			solutions, err := solver.Solve(context.Background(), 1)
			require.NoError(t, err)
			require.Len(t, solutions, 1)

			want := boolFalse
			if av == boolTrue && bv == boolTrue {
				want = boolTrue
			}
			assert.Equal(t, want, solutions[0][c.ID()], "a=%d b=%d", av, bv)
		}
	}
}

func twoOverlappingTripsModel() *domain.Model {
	trains := []domain.Train{
		{ID: "T1", IsFullyCertified: true},
	}
	trips := []domain.Trip{
		{ID: "J1", StartSec: 0, EndSec: 100, StartStopID: "A", EndStopID: "B"},
		{ID: "J2", StartSec: 50, EndSec: 150, StartStopID: "A", EndStopID: "B"},
	}
	resources := domain.DepotResources{CleaningBays: 1, DeepCleanThresholdDays: 30}
	weights := domain.DefaultObjectiveWeights()
	return domain.NewModel("2026-07-30", trains, trips, []string{"A", "B"}, nil, resources, weights, nil)
}

func TestNonOverlapForbidsBothOverlappingTripsOnOneTrain(t *testing.T) {
	model := twoOverlappingTripsModel()
	v, err := Build(model)
	require.NoError(t, err)
	require.NoError(t, Constraints(model, v))

	both := fixedBoolVar(v.Model, "force_both", boolTrue)
	forceJ1, err := mk.NewArithmetic(both, v.Assign[0][0], 0)
	require.NoError(t, err)
	v.Model.AddConstraint(forceJ1)
	forceJ2, err := mk.NewArithmetic(both, v.Assign[0][1], 0)
	require.NoError(t, err)
	v.Model.AddConstraint(forceJ2)

	solver := mk.NewSolver(v.Model)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	solutions, err := solver.Solve(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, solutions, "overlapping trips forced onto the same train must be infeasible")
}

func twoLateEveningTripsToBModel() *domain.Model {
	trains := []domain.Train{
		{ID: "T1", IsFullyCertified: true},
	}
	trips := []domain.Trip{
		{ID: "J1", StartSec: 0, EndSec: 100, StartStopID: "A", EndStopID: "B", IsLateEvening: true},
		{ID: "J2", StartSec: 200, EndSec: 300, StartStopID: "A", EndStopID: "B", IsLateEvening: true},
	}
	resources := domain.DepotResources{CleaningBays: 1, DeepCleanThresholdDays: 30}
	weights := domain.DefaultObjectiveWeights()
	nextDayStarts := domain.NextDayStarts{"B": 1}
	return domain.NewModel("2026-07-30", trains, trips, []string{"A", "B"}, nil, resources, weights, nextDayStarts)
}

func fixAssignTo(t *testing.T, v *Variables, trainIdx, tripIdx int, value int) {
	t.Helper()
	fixed := constVar(v.Model, fmt.Sprintf("fix_%d_%d_%d", trainIdx, tripIdx, value), value)
	eq, err := mk.NewArithmetic(fixed, v.Assign[trainIdx][tripIdx], 0)
	require.NoError(t, err)
	v.Model.AddConstraint(eq)
}

// TestMismatchDistinguishesExactMatchFromOffByOne guards against the
// mismatch encoding collapsing an actual shortfall of 1 into the same
// stored value as an exact match (0): both must decode to distinct
// objective-relevant magnitudes.
func TestMismatchDistinguishesExactMatchFromOffByOne(t *testing.T) {
	bIdx, ok := twoLateEveningTripsToBModel().TerminalIndex("B")
	require.True(t, ok)

	model := twoLateEveningTripsToBModel()
	v, err := Build(model)
	require.NoError(t, err)
	require.NoError(t, Constraints(model, v))
	fixAssignTo(t, v, 0, 0, boolFalse)
	fixAssignTo(t, v, 0, 1, boolFalse)

	solver := mk.NewSolver(v.Model)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	solutions, err := solver.Solve(ctx, 1)
	require.NoError(t, err)
	require.Len(t, solutions, 1)
	assert.Equal(t, 1, decode(solutions[0][v.Mismatch[bIdx].ID()]), "zero trips serviced against a requirement of 1 must register a mismatch of exactly 1")

	model2 := twoLateEveningTripsToBModel()
	v2, err := Build(model2)
	require.NoError(t, err)
	require.NoError(t, Constraints(model2, v2))
	fixAssignTo(t, v2, 0, 0, boolTrue)
	fixAssignTo(t, v2, 0, 1, boolFalse)

	solver2 := mk.NewSolver(v2.Model)
	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	solutions2, err := solver2.Solve(ctx2, 1)
	require.NoError(t, err)
	require.Len(t, solutions2, 1)
	assert.Equal(t, 0, decode(solutions2[0][v2.Mismatch[bIdx].ID()]), "one trip serviced against a requirement of 1 must register no mismatch")
}

func TestCleaningCapacityBoundsSimultaneousHolds(t *testing.T) {
	model := twoOverlappingTripsModel()
	model.Trains = append(model.Trains, domain.Train{ID: "T2", IsFullyCertified: true})
	for i := range model.Trains {
		model.Trains[i].HasDeepCleanHistory = true
		model.Trains[i].DaysSinceLastDeepClean = 60
	}
	model.Resources.CleaningBays = 1

	v, err := Build(model)
	require.NoError(t, err)
	require.NoError(t, Constraints(model, v))

	total, err := boolCount(v.Model, v.IsCleaned, "total_cleaned_check")
	require.NoError(t, err)

	solver := mk.NewSolver(v.Model)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	values, _, err := solver.SolveOptimalWithOptions(ctx, total, false, mk.WithTimeLimit(5*time.Second))
	require.NoError(t, err)
	require.NotNil(t, values)
	assert.LessOrEqual(t, decode(values[total.ID()]), 1, "cleaning bay capacity of 1 must cap simultaneous holds")
}
