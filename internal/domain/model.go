package domain

import "fmt"

// Model is the immutable, post-load view of a single planning day. It is
// built once by the loader and never mutated afterward; builders hold
// borrowed, read-only references to it.
type Model struct {
	PlanningDate string

	Trains []Train
	Trips  []Trip

	// Terminals is the canonical, sorted list of terminal ids appearing in
	// either trip endpoints or shunting rows.
	Terminals []string

	Resources     DepotResources
	Weights       ObjectiveWeights
	NextDayStarts NextDayStarts // nil if not provided

	trainIndex    map[string]int
	tripIndex     map[string]int
	terminalIndex map[string]int
	distance      map[[2]string]int // (from,to) -> distance_km*10, 0 if absent
}

// NewModel assembles the lookup structures over already-validated entities.
// Callers (the ingest loader) are responsible for having enforced referential
// integrity before calling this constructor.
func NewModel(
	planningDate string,
	trains []Train,
	trips []Trip,
	terminals []string,
	edges []ShuntingEdge,
	resources DepotResources,
	weights ObjectiveWeights,
	nextDayStarts NextDayStarts,
) *Model {
	m := &Model{
		PlanningDate:  planningDate,
		Trains:        trains,
		Trips:         trips,
		Terminals:     terminals,
		Resources:     resources,
		Weights:       weights,
		NextDayStarts: nextDayStarts,
		trainIndex:    make(map[string]int, len(trains)),
		tripIndex:     make(map[string]int, len(trips)),
		terminalIndex: make(map[string]int, len(terminals)),
		distance:      make(map[[2]string]int, len(edges)),
	}
	for i, t := range trains {
		m.trainIndex[t.ID] = i
	}
	for i, j := range trips {
		m.tripIndex[j.ID] = i
	}
	for i, s := range terminals {
		m.terminalIndex[s] = i
	}
	for _, e := range edges {
		m.distance[[2]string{e.FromStopID, e.ToStopID}] = e.DistanceKM10
	}
	return m
}

// Train looks up a train by id.
func (m *Model) Train(id string) (Train, bool) {
	i, ok := m.trainIndex[id]
	if !ok {
		return Train{}, false
	}
	return m.Trains[i], true
}

// Trip looks up a trip by id.
func (m *Model) Trip(id string) (Trip, bool) {
	i, ok := m.tripIndex[id]
	if !ok {
		return Trip{}, false
	}
	return m.Trips[i], true
}

// TerminalIndex returns the contiguous integer index assigned to a terminal
// id. The second return value is false if the id is unknown.
func (m *Model) TerminalIndex(id string) (int, bool) {
	i, ok := m.terminalIndex[id]
	return i, ok
}

// NumTerminals is the size of the canonical terminal-index map.
func (m *Model) NumTerminals() int {
	return len(m.Terminals)
}

// Distance returns the shunting distance (km*10) from one terminal to
// another. Missing edges are treated as distance 0, per §3.
func (m *Model) Distance(from, to string) int {
	return m.distance[[2]string{from, to}]
}

// DistanceMatrix flattens the terminal x terminal distance table to length
// N*N in row-major (from*N + to) order, matching the element-lookup layout
// C7 (variant A) requires.
func (m *Model) DistanceMatrix() []int {
	n := len(m.Terminals)
	flat := make([]int, n*n)
	for i, from := range m.Terminals {
		for j, to := range m.Terminals {
			flat[i*n+j] = m.Distance(from, to)
		}
	}
	return flat
}

// AverageInitialMileage returns the mean of every train's starting mileage.
func (m *Model) AverageInitialMileage() float64 {
	if len(m.Trains) == 0 {
		return 0
	}
	sum := 0
	for _, t := range m.Trains {
		sum += t.MileageKM
	}
	return float64(sum) / float64(len(m.Trains))
}

// CleaningEligible reports whether a train is due for a deep clean, per C5.
func (m *Model) CleaningEligible(t Train) bool {
	return t.HasDeepCleanHistory && t.DaysSinceLastDeepClean > m.Resources.DeepCleanThresholdDays
}

// Eligible reports whether a train may be used at all, per C4: no open job
// card, full certification, and no expired certificate.
func (m *Model) Eligible(t Train) bool {
	return !t.HasOpenJobCard && t.IsFullyCertified && !t.TelecomCertExpired && !t.StockCertExpired
}

// String renders a short diagnostic summary, useful in logs.
func (m *Model) String() string {
	return fmt.Sprintf("domain.Model{date=%s trains=%d trips=%d terminals=%d}",
		m.PlanningDate, len(m.Trains), len(m.Trips), len(m.Terminals))
}
