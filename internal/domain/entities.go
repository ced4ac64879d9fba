// Package domain holds the immutable, post-load view of a planning day: the
// trains, trips, terminals, shunting distances, depot resources, and
// objective weights the schedule builders read from.
package domain

// Train is a single fleet unit and its state as of the planning date.
type Train struct {
	ID                     string
	MileageKM              int
	HasOpenJobCard         bool
	IsFullyCertified       bool
	TelecomCertExpired     bool
	StockCertExpired       bool
	AnomalyScore           float64 // in [0,1], 1 = worst
	HasBrandingContract    bool
	CleaningRequiredHours  float64
	DaysSinceLastDeepClean int
	HasDeepCleanHistory    bool
}

// Trip is a single timetabled revenue trip.
type Trip struct {
	ID            string
	StartSec      int
	EndSec        int
	StartStopID   string
	EndStopID     string
	DistanceKM10  int // distance_km scaled by 10 for one decimal of precision
	IsLateEvening bool
	DurationHours float64
}

// ShuntingEdge is one entry of the terminal-to-terminal empty-movement
// distance table.
type ShuntingEdge struct {
	FromStopID   string
	ToStopID     string
	DistanceKM10 int
}

// DepotResources bounds shared depot-level capacity.
type DepotResources struct {
	CleaningBays           int
	DeepCleanThresholdDays int
}

// ObjectiveWeights carries the fixed per-run objective coefficients of §4.5.
type ObjectiveWeights struct {
	TripCoverage     int // negative: reward
	Activation       int
	MileageRange     int
	BrandingHours    int // negative: reward
	CleaningBacklog  int
	ShuntingVariantA int // per shunting-distance unit
	ShuntingVariantB int // per mismatch unit
	HealthRisk       int // per unit of anomaly_score*100
}

// DefaultObjectiveWeights returns the reference weights from §4.5.
func DefaultObjectiveWeights() ObjectiveWeights {
	return ObjectiveWeights{
		TripCoverage:     -10000,
		Activation:       100,
		MileageRange:     1,
		BrandingHours:    -20,
		CleaningBacklog:  500,
		ShuntingVariantA: 100,
		ShuntingVariantB: 300,
		HealthRisk:       5000,
	}
}

// NextDayStarts maps a terminal id to the required count of units that must
// start service there the following morning.
type NextDayStarts map[string]int

// Horizon is the integer upper bound on all time variables, accommodating a
// single midnight-crossing trip.
const Horizon = 2 * 86400
