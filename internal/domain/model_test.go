package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestModel() *Model {
	trains := []Train{
		{ID: "T1", MileageKM: 100, IsFullyCertified: true, AnomalyScore: 0.1},
		{ID: "T2", MileageKM: 100, HasOpenJobCard: true},
	}
	trips := []Trip{
		{ID: "J1", StartSec: 7 * 3600, EndSec: 8 * 3600, StartStopID: "A", EndStopID: "B", DistanceKM10: 200},
	}
	terminals := []string{"A", "B"}
	edges := []ShuntingEdge{{FromStopID: "B", ToStopID: "A", DistanceKM10: 50}}
	resources := DepotResources{CleaningBays: 1, DeepCleanThresholdDays: 30}
	weights := DefaultObjectiveWeights()
	return NewModel("2026-07-30", trains, trips, terminals, edges, resources, weights, nil)
}

func TestModelLookups(t *testing.T) {
	m := newTestModel()

	tr, ok := m.Train("T1")
	require.True(t, ok)
	assert.Equal(t, 100, tr.MileageKM)

	_, ok = m.Train("T3")
	assert.False(t, ok)

	trip, ok := m.Trip("J1")
	require.True(t, ok)
	assert.Equal(t, "A", trip.StartStopID)

	idx, ok := m.TerminalIndex("B")
	require.True(t, ok)
	assert.Equal(t, 1, idx)
}

func TestModelDistanceMatrix(t *testing.T) {
	m := newTestModel()
	flat := m.DistanceMatrix()
	n := m.NumTerminals()
	require.Len(t, flat, n*n)

	aIdx, _ := m.TerminalIndex("A")
	bIdx, _ := m.TerminalIndex("B")
	assert.Equal(t, 50, flat[bIdx*n+aIdx])
	assert.Equal(t, 0, flat[aIdx*n+bIdx], "missing edge defaults to distance 0")
}

func TestEligibilityAndCleaning(t *testing.T) {
	m := newTestModel()

	t1, _ := m.Train("T1")
	assert.True(t, m.Eligible(t1))

	t2, _ := m.Train("T2")
	assert.False(t, m.Eligible(t2), "open job card makes a train ineligible")

	due := Train{HasDeepCleanHistory: true, DaysSinceLastDeepClean: 40}
	assert.True(t, m.CleaningEligible(due))

	notDue := Train{HasDeepCleanHistory: true, DaysSinceLastDeepClean: 5}
	assert.False(t, m.CleaningEligible(notDue))
}

func TestAverageInitialMileage(t *testing.T) {
	m := newTestModel()
	assert.InDelta(t, 100.0, m.AverageInitialMileage(), 0.001)
}
