package schedule

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gitrdm/railyard/internal/domain"
)

func TestObjectiveBoundsAreConsistentWithTerms(t *testing.T) {
	model := oneTrainOneTripModel()
	v, err := Build(model)
	require.NoError(t, err)
	require.NoError(t, Constraints(model, v))

	obj, err := Objective(model, v)
	require.NoError(t, err)

	d := obj.Var.Domain()
	require.LessOrEqual(t, d.Min(), d.Max())

	lo := obj.Decode(d.Min())
	hi := obj.Decode(d.Max())
	require.LessOrEqual(t, lo, hi)
}

func TestObjectiveVariantBUsesMismatchNotShuntingDist(t *testing.T) {
	model := oneTrainOneTripModel()
	model.NextDayStarts = domain.NextDayStarts{"A": 1}

	v, err := Build(model)
	require.NoError(t, err)
	require.NoError(t, Constraints(model, v))

	_, err = Objective(model, v)
	require.NoError(t, err)
}
