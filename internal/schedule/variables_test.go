package schedule

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gitrdm/railyard/internal/domain"
)

func oneTrainOneTripModel() *domain.Model {
	trains := []domain.Train{
		{ID: "T1", MileageKM: 100, IsFullyCertified: true, AnomalyScore: 0.1},
	}
	trips := []domain.Trip{
		{ID: "J1", StartSec: 7 * 3600, EndSec: 8 * 3600, StartStopID: "A", EndStopID: "B", DistanceKM10: 200},
	}
	terminals := []string{"A", "B"}
	edges := []domain.ShuntingEdge{{FromStopID: "B", ToStopID: "A", DistanceKM10: 50}}
	resources := domain.DepotResources{CleaningBays: 1, DeepCleanThresholdDays: 30}
	weights := domain.DefaultObjectiveWeights()
	return domain.NewModel("2026-07-30", trains, trips, terminals, edges, resources, weights, nil)
}

func TestBuildFixesIneligibleTrainAssignmentsFalse(t *testing.T) {
	model := oneTrainOneTripModel()
	model.Trains = append(model.Trains, domain.Train{ID: "T2", MileageKM: 50, HasOpenJobCard: true})

	v, err := Build(model)
	require.NoError(t, err)

	d := v.Assign[1][0].Domain()
	assert.Equal(t, boolFalse, d.Min())
	assert.Equal(t, boolFalse, d.Max(), "an ineligible train's assignment must be fixed false, not merely constrained")
}

func TestBuildUsesVariantAByDefault(t *testing.T) {
	model := oneTrainOneTripModel()
	v, err := Build(model)
	require.NoError(t, err)

	assert.False(t, v.UsesVariantB)
	assert.Len(t, v.ShuntingDist, len(model.Trains))
	assert.Nil(t, v.Mismatch)
}

func TestBuildUsesVariantBWhenNextDayStartsPresent(t *testing.T) {
	model := oneTrainOneTripModel()
	model.NextDayStarts = domain.NextDayStarts{"A": 1}

	v, err := Build(model)
	require.NoError(t, err)

	assert.True(t, v.UsesVariantB)
	assert.Len(t, v.Mismatch, model.NumTerminals())
	assert.Nil(t, v.ShuntingDist)
}
