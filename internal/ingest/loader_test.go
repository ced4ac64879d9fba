package ingest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gitrdm/railyard/internal/railyarderr"
)

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(os.Stderr)
	log.SetLevel(logrus.PanicLevel)
	return log
}

func writeInput(t *testing.T, dir, date, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(InputPath(dir, date), []byte(body), 0o644))
}

const schema1Input = `{
  "planning_date": "2026-07-30",
  "trains": [
    {"train_id": "T1", "mileage": 100, "is_fully_certified": true, "anomaly_score": 0.1},
    {"train_id": "T2", "mileage": 100, "has_open_job_card": true}
  ],
  "trips": [
    {"trip_id": "J1", "start_time": "07:00:00", "end_time": "08:00:00", "start_stop_id": "A", "end_stop_id": "B", "distance_km": 20}
  ],
  "shunting_distances": [
    {"from_stop_id": "B", "to_stop_id": "A", "distance_km": 5}
  ],
  "depot_resources": {"cleaning_bays": 1, "deep_clean_threshold_days": 30}
}`

func TestLoadSchema1(t *testing.T) {
	dir := t.TempDir()
	writeInput(t, dir, "2026-07-30", schema1Input)

	m, err := Load(dir, "2026-07-30", testLogger())
	require.NoError(t, err)

	assert.Len(t, m.Trains, 2)
	assert.Len(t, m.Trips, 1)
	assert.ElementsMatch(t, []string{"A", "B"}, m.Terminals)

	t1, ok := m.Train("T1")
	require.True(t, ok)
	assert.True(t, m.Eligible(t1))

	t2, ok := m.Train("T2")
	require.True(t, ok)
	assert.False(t, m.Eligible(t2))
}

func TestLoadMissingFile(t *testing.T) {
	dir := t.TempDir()
	_, err := Load(dir, "2026-01-01", testLogger())
	require.Error(t, err)
	assert.True(t, railyarderr.Is(err, railyarderr.MissingFile))
}

func TestLoadDuplicateTrainID(t *testing.T) {
	dir := t.TempDir()
	writeInput(t, dir, "2026-07-30", `{
      "planning_date": "2026-07-30",
      "trains": [
        {"train_id": "T1", "mileage": 100},
        {"train_id": "T1", "mileage": 200}
      ],
      "trips": []
    }`)

	_, err := Load(dir, "2026-07-30", testLogger())
	require.Error(t, err)
	assert.True(t, railyarderr.Is(err, railyarderr.BadInput))
}

func TestLoadMidnightCrossingTrip(t *testing.T) {
	dir := t.TempDir()
	writeInput(t, dir, "2026-07-30", `{
      "planning_date": "2026-07-30",
      "trains": [{"train_id": "T1", "mileage": 0}],
      "trips": [
        {"trip_id": "J1", "start_time": "23:30:00", "end_time": "00:30:00", "start_stop_id": "A", "end_stop_id": "B", "distance_km": 10}
      ]
    }`)

	m, err := Load(dir, "2026-07-30", testLogger())
	require.NoError(t, err)

	trip, ok := m.Trip("J1")
	require.True(t, ok)
	assert.Equal(t, 23*3600+30*60, trip.StartSec)
	assert.Equal(t, 24*3600+30*60, trip.EndSec)
}

func TestLoadNestedDepotResources(t *testing.T) {
	dir := t.TempDir()
	writeInput(t, dir, "2026-07-30", `{
      "planning_date": "2026-07-30",
      "trains": [{"train_id": "T1", "mileage": 0}],
      "trips": [],
      "depot_resources": {"Muttom Depot": {"cleaning_bays": 3, "deep_clean_threshold_days": 20}}
    }`)

	m, err := Load(dir, "2026-07-30", testLogger())
	require.NoError(t, err)
	assert.Equal(t, 3, m.Resources.CleaningBays)
}

func TestLoadRejectsUnknownTopLevelKey(t *testing.T) {
	dir := t.TempDir()
	writeInput(t, dir, "2026-07-30", `{
      "planning_date": "2026-07-30",
      "trains": [{"train_id": "T1", "mileage": 0}],
      "trips": [],
      "operator_notes": "typo'd field that should not be silently ignored"
    }`)

	_, err := Load(dir, "2026-07-30", testLogger())
	require.Error(t, err)
	assert.True(t, railyarderr.Is(err, railyarderr.BadInput))
}

func TestLoadRejectsUnknownTrainField(t *testing.T) {
	dir := t.TempDir()
	writeInput(t, dir, "2026-07-30", `{
      "planning_date": "2026-07-30",
      "trains": [{"train_id": "T1", "milage": 0}],
      "trips": []
    }`)

	_, err := Load(dir, "2026-07-30", testLogger())
	require.Error(t, err)
	assert.True(t, railyarderr.Is(err, railyarderr.BadInput))
}

func TestInputPath(t *testing.T) {
	assert.Equal(t, filepath.Join("daily_input", "2026-07-30_input_data.json"), InputPath("daily_input", "2026-07-30"))
}
