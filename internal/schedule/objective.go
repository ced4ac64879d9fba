package schedule

import (
	"fmt"

	"github.com/gitrdm/railyard/internal/domain"
	mk "github.com/gitrdm/railyard/pkg/minikanren"
)

// scaleScore converts a [0,1]-bounded float into an integer on a x100 scale.
func scaleScore(f float64) int {
	return int(f*100 + 0.5)
}

// scaleHours converts an hours quantity into an integer on a x10 scale,
// matching the distance scaling policy of §4.2.
func scaleHours(h float64) int {
	return int(h*10 + 0.5)
}

// ObjectiveResult holds the variable to minimize plus the per-run shift
// needed to recover its true signed value: actual = obj.Value() - Shift.
type ObjectiveResult struct {
	Var   *mk.FDVariable
	Shift int
}

// Decode converts a solved value of Var back into the true signed
// objective total.
func (r ObjectiveResult) Decode(value int) int {
	return value - r.Shift
}

// Objective assembles the weighted-sum objective of §4.5 over v and returns
// the variable to minimize.
func Objective(model *domain.Model, v *Variables) (ObjectiveResult, error) {
	m := v.Model
	w := model.Weights

	tripCoverage, err := boolCountDecoded(m, v.TripServiced, "obj_trip_coverage")
	if err != nil {
		return ObjectiveResult{}, err
	}

	activation, err := boolCountDecoded(m, v.TrainUsed, "obj_activation")
	if err != nil {
		return ObjectiveResult{}, err
	}

	mileageRange, err := mileageRangeTerm(m, v)
	if err != nil {
		return ObjectiveResult{}, err
	}

	brandingHours, err := brandingHoursTerm(model, v)
	if err != nil {
		return ObjectiveResult{}, err
	}

	cleaningBacklog, err := cleaningBacklogTerm(model, v)
	if err != nil {
		return ObjectiveResult{}, err
	}

	healthRisk, err := healthRiskTerm(model, v)
	if err != nil {
		return ObjectiveResult{}, err
	}

	var shunting *mk.FDVariable
	if v.UsesVariantB {
		shunting, err = sumOrZero(m, v.Mismatch, "obj_shunting_mismatch")
	} else {
		shunting, err = sumOrZero(m, v.ShuntingDist, "obj_shunting_dist")
	}
	if err != nil {
		return ObjectiveResult{}, err
	}
	shuntingWeight := w.ShuntingVariantA
	if v.UsesVariantB {
		shuntingWeight = w.ShuntingVariantB
	}

	terms := []*mk.FDVariable{tripCoverage, activation, mileageRange, brandingHours, cleaningBacklog, shunting, healthRisk}
	weights := []int{w.TripCoverage, w.Activation, w.MileageRange, w.BrandingHours, w.CleaningBacklog, shuntingWeight, w.HealthRisk}

	// Every term variable holds an "encoded" (actual+1) value, so
	// Σ weights[i]*terms[i] = O + C, where O is the true signed objective
	// total and C = Σ weights[i] is a known constant. O's own range [lo,hi]
	// is computed from each term's domain bounds. A constant-1 term with
	// coefficient shift-C is added to the same LinearSum, so its total is
	// the strictly-positive objective variable holding O+shift = O-lo+1.
	lo, hi, sumWeights := 0, 0, 0
	for i, t := range terms {
		d := t.Domain()
		termLo, termHi := decode(d.Min()), decode(d.Max())
		contribLo, contribHi := weights[i]*termLo, weights[i]*termHi
		if weights[i] < 0 {
			contribLo, contribHi = weights[i]*termHi, weights[i]*termLo
		}
		lo += contribLo
		hi += contribHi
		sumWeights += weights[i]
	}
	if hi < lo {
		hi = lo
	}

	shift := -lo + 1
	terms = append(terms, constVar(m, "objective_one", 1))
	weights = append(weights, shift-sumWeights)
	obj := m.NewVariableWithName(mk.NewBitSetDomain(hi+shift).RemoveBelow(lo+shift), "objective")
	ls, err := mk.NewLinearSum(terms, weights, obj)
	if err != nil {
		return ObjectiveResult{}, fmt.Errorf("objective linear sum: %w", err)
	}
	m.AddConstraint(ls)

	return ObjectiveResult{Var: obj, Shift: shift}, nil
}

func mileageRangeTerm(m *mk.Model, v *Variables) (*mk.FDVariable, error) {
	if len(v.FinalMileage) == 0 {
		return constVar(m, "obj_mileage_range", encode(0)), nil
	}
	maxF := m.NewVariableWithName(v.FinalMileage[0].Domain(), "final_mileage_max")
	maxC, err := mk.NewMax(v.FinalMileage, maxF)
	if err != nil {
		return nil, fmt.Errorf("mileageRangeTerm max: %w", err)
	}
	m.AddConstraint(maxC)

	minF := m.NewVariableWithName(v.FinalMileage[0].Domain(), "final_mileage_min")
	minC, err := mk.NewMin(v.FinalMileage, minF)
	if err != nil {
		return nil, fmt.Errorf("mileageRangeTerm min: %w", err)
	}
	m.AddConstraint(minC)

	hi := decode(maxF.Domain().Max()) - decode(minF.Domain().Min())
	return diffPlusOne(m, maxF, minF, "obj_mileage_range", hi)
}

func brandingHoursTerm(model *domain.Model, v *Variables) (*mk.FDVariable, error) {
	m := v.Model
	var vars []*mk.FDVariable
	var weights []int
	for ti, t := range model.Trains {
		if !t.HasBrandingContract {
			continue
		}
		for ji, j := range model.Trips {
			vars = append(vars, v.Assign[ti][ji])
			weights = append(weights, scaleHours(j.DurationHours))
		}
	}
	if len(vars) == 0 {
		return constVar(m, "obj_branding_hours", encode(0)), nil
	}
	hi := 0
	for _, w := range weights {
		hi += w
	}
	return weightedBoolSum(m, vars, weights, "obj_branding_hours", 0, hi)
}

func cleaningBacklogTerm(model *domain.Model, v *Variables) (*mk.FDVariable, error) {
	m := v.Model
	var due []*mk.FDVariable
	for ti, t := range model.Trains {
		if model.CleaningEligible(t) {
			due = append(due, v.IsCleaned[ti])
		}
	}
	if len(due) == 0 {
		return constVar(m, "obj_cleaning_backlog", encode(0)), nil
	}
	cleanedAmongDue, err := boolCountDecoded(m, due, "obj_cleaned_among_due")
	if err != nil {
		return nil, err
	}
	numDue := constVar(m, "obj_num_due", encode(len(due)))
	return diffPlusOne(m, numDue, cleanedAmongDue, "obj_cleaning_backlog", len(due))
}

func healthRiskTerm(model *domain.Model, v *Variables) (*mk.FDVariable, error) {
	m := v.Model
	weights := make([]int, len(model.Trains))
	hi := 0
	for ti, t := range model.Trains {
		weights[ti] = scaleScore(t.AnomalyScore)
		hi += weights[ti]
	}
	if len(v.TrainUsed) == 0 {
		return constVar(m, "obj_health_risk", encode(0)), nil
	}
	return weightedBoolSum(m, v.TrainUsed, weights, "obj_health_risk", 0, hi)
}

// sumOrZero wraps sumEncoded, returning a fixed zero term when vars is
// empty (e.g. a zero-terminal model under variant B).
func sumOrZero(m *mk.Model, vars []*mk.FDVariable, name string) (*mk.FDVariable, error) {
	if len(vars) == 0 {
		return constVar(m, name, encode(0)), nil
	}
	hi := 0
	for _, t := range vars {
		hi += decode(t.Domain().Max())
	}
	return sumEncoded(m, vars, name, hi)
}
