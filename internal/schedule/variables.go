package schedule

import (
	"fmt"

	"github.com/gitrdm/railyard/internal/domain"
	mk "github.com/gitrdm/railyard/pkg/minikanren"
)

// Variables holds every decision variable the builders create, indexed for
// O(1) lookup by the constraint, objective, and extraction stages. Ownership
// is exclusive: only this package mutates the underlying *mk.Model.
type Variables struct {
	Model *mk.Model

	Trains []domain.Train
	Trips  []domain.Trip

	// Assign[t][j] is true iff train t services trip j.
	Assign [][]*mk.FDVariable

	// TrainUsed[t] is true iff train t services at least one trip.
	TrainUsed []*mk.FDVariable

	// TripServiced[j] is true iff some train services trip j.
	TripServiced []*mk.FDVariable

	// IsCleaned[t] is true iff train t is held for cleaning today.
	IsCleaned []*mk.FDVariable

	// FinalMileage[t] is encoded (value+1) final mileage in km*10.
	FinalMileage []*mk.FDVariable

	// ShuntingDist is populated only when variant A (element-lookup) is used.
	ShuntingDist []*mk.FDVariable // encoded, km*10

	// Mismatch is populated only when variant B (next-day-starts) is used,
	// one entry per domain.Model.Terminals index.
	Mismatch []*mk.FDVariable // encoded

	UsesVariantB bool
}

// Build creates every decision variable named in §4.3, fixing assign/is_cleaned
// domains directly wherever C4/C5 eligibility gating statically determines the
// value, rather than posting redundant constraints against a free boolean.
func Build(model *domain.Model) (*Variables, error) {
	m := mk.NewModel()
	v := &Variables{
		Model:  m,
		Trains: model.Trains,
		Trips:  model.Trips,
	}

	v.Assign = make([][]*mk.FDVariable, len(model.Trains))
	for ti, t := range model.Trains {
		row := make([]*mk.FDVariable, len(model.Trips))
		eligible := model.Eligible(t)
		for ji, j := range model.Trips {
			name := fmt.Sprintf("assign_%s_%s", t.ID, j.ID)
			if eligible {
				row[ji] = newBoolVar(m, name)
			} else {
				row[ji] = fixedBoolVar(m, name, boolFalse)
			}
		}
		v.Assign[ti] = row
	}

	v.IsCleaned = make([]*mk.FDVariable, len(model.Trains))
	for ti, t := range model.Trains {
		name := fmt.Sprintf("is_cleaned_%s", t.ID)
		if model.CleaningEligible(t) {
			v.IsCleaned[ti] = newBoolVar(m, name)
		} else {
			v.IsCleaned[ti] = fixedBoolVar(m, name, boolFalse)
		}
	}

	v.TripServiced = make([]*mk.FDVariable, len(model.Trips))
	v.TrainUsed = make([]*mk.FDVariable, len(model.Trains))
	v.FinalMileage = make([]*mk.FDVariable, len(model.Trains))

	maxTotalDistance := 0
	for _, j := range model.Trips {
		maxTotalDistance += j.DistanceKM10
	}
	for ti, t := range model.Trains {
		v.FinalMileage[ti] = nonNegVar(m, fmt.Sprintf("final_mileage_%s", t.ID),
			t.MileageKM, t.MileageKM+maxTotalDistance)
	}

	if model.NextDayStarts != nil {
		v.UsesVariantB = true
		v.Mismatch = make([]*mk.FDVariable, len(model.Terminals))
	} else {
		v.ShuntingDist = make([]*mk.FDVariable, len(model.Trains))
	}

	return v, nil
}
