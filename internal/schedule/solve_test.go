package schedule

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gitrdm/railyard/internal/domain"
)

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(os.Stderr)
	log.SetLevel(logrus.PanicLevel)
	return log
}

func TestSolveOneTrainOneTripIsOptimalAndServicesTheTrip(t *testing.T) {
	model := oneTrainOneTripModel()

	res, err := Solve(context.Background(), model, 5*time.Second, testLogger())
	require.NoError(t, err)
	require.Equal(t, StatusOptimal, res.Status)
	require.NotNil(t, res.Values)

	sol, err := Extract(model, res)
	require.NoError(t, err)
	assert.Equal(t, 1, sol.TripsServiced)
	assert.Equal(t, 0, sol.TripsUnserviced)
	assert.Equal(t, 1, sol.TotalTrainsUsed)
	require.Len(t, sol.TripAssignments, 1)
	assert.Equal(t, "T1", sol.TripAssignments[0].TrainID)
}

func TestSolveNoEligibleTrainLeavesTripUnserviced(t *testing.T) {
	model := oneTrainOneTripModel()
	model.Trains[0].HasOpenJobCard = true

	res, err := Solve(context.Background(), model, 5*time.Second, testLogger())
	require.NoError(t, err)
	require.Equal(t, StatusOptimal, res.Status)

	sol, err := Extract(model, res)
	require.NoError(t, err)
	assert.Equal(t, 0, sol.TripsServiced)
	assert.Equal(t, []string{"J1"}, sol.UnservicedTripIDs)

	held := sol.InductionRanking[0]
	assert.Equal(t, "T1", held.TrainID)
	assert.Equal(t, "HELD FOR MAINTENANCE (Job Card Open)", held.Status)
}

func TestSolveVariantBMismatchAccountedForInObjective(t *testing.T) {
	model := oneTrainOneTripModel()
	model.Trips[0].IsLateEvening = true
	model.NextDayStarts = domain.NextDayStarts{"B": 1}

	res, err := Solve(context.Background(), model, 5*time.Second, testLogger())
	require.NoError(t, err)
	require.Equal(t, StatusOptimal, res.Status)

	sol, err := Extract(model, res)
	require.NoError(t, err)
	assert.Equal(t, 1, sol.TripsServiced, "servicing the trip satisfies the next-day-start requirement at B")
}

func TestSolveResultCarriesBuiltVariablesForExtraction(t *testing.T) {
	model := oneTrainOneTripModel()

	res, err := Solve(context.Background(), model, 5*time.Second, testLogger())
	require.NoError(t, err)
	require.NotNil(t, res.Variables)
	assert.Len(t, res.Variables.Assign, len(model.Trains))
	assert.NotNil(t, res.Monitor)
}
