package schedule

import (
	"fmt"
	"sort"

	"github.com/gitrdm/railyard/internal/domain"
)

// TripAssignment is one serviced trip in the extracted solution.
type TripAssignment struct {
	TripID    string `json:"trip_id"`
	TrainID   string `json:"train_id"`
	StartTime int    `json:"start_time"`
	EndTime   int    `json:"end_time"`
}

// InductionRecord is one train's disposition in the induction ranking.
type InductionRecord struct {
	TrainID        string  `json:"train_id"`
	Status         string  `json:"status"`
	Reason         string  `json:"reason"`
	FinalMileage   int     `json:"final_mileage"`
	HealthScore    float64 `json:"health_score"`
	ShuntingDistKm float64 `json:"shunting_distance_km,omitempty"`
}

// Solution is the fully extracted, human-readable result of one solve.
type Solution struct {
	PlanningDate      string            `json:"planning_date"`
	SolverStatus      Status            `json:"solver_status"`
	TotalTrainsUsed   int               `json:"total_trains_used"`
	TripsServiced     int               `json:"trips_serviced"`
	TripsUnserviced   int               `json:"trips_unserviced"`
	UnservicedTripIDs []string          `json:"unserviced_trip_ids"`
	InductionRanking  []InductionRecord `json:"induction_ranking"`
	TripAssignments   []TripAssignment  `json:"trip_assignments"`
	TotalShuntingKm   float64           `json:"total_shunting_km,omitempty"`
}

// value reads the solved value of a variable out of res.Values by its FD
// variable ID.
func value(res *Result, idxByID int) int {
	return res.Values[idxByID]
}

// EmptySolution builds the diagnostic-only record emitted when the solver
// found no incumbent (INFEASIBLE or UNKNOWN).
func EmptySolution(model *domain.Model, status Status) *Solution {
	sol := &Solution{
		PlanningDate:    model.PlanningDate,
		SolverStatus:    status,
		TripsUnserviced: len(model.Trips),
	}
	for _, j := range model.Trips {
		sol.UnservicedTripIDs = append(sol.UnservicedTripIDs, j.ID)
	}
	reason := "solver found no incumbent before the time budget was exhausted"
	if status == StatusInfeasible {
		reason = "solver proved no feasible assignment exists"
	}
	sol.InductionRanking = make([]InductionRecord, 0, len(model.Trains))
	for _, t := range model.Trains {
		sol.InductionRanking = append(sol.InductionRanking, InductionRecord{
			TrainID:      t.ID,
			Status:       "UNKNOWN",
			Reason:       reason,
			FinalMileage: t.MileageKM,
			HealthScore:  t.AnomalyScore,
		})
	}
	return sol
}

// Extract reads res.Values into a Solution, per §4.7. Callers must only call
// this for StatusOptimal/StatusFeasible results (those with a non-nil
// Values incumbent).
func Extract(model *domain.Model, res *Result) (*Solution, error) {
	if res.Values == nil {
		return nil, fmt.Errorf("extract: no incumbent to extract from status %s", res.Status)
	}
	v := res.Variables

	sol := &Solution{
		PlanningDate: model.PlanningDate,
		SolverStatus: res.Status,
	}

	for ji, j := range model.Trips {
		if value(res, v.TripServiced[ji].ID()) == boolFalse {
			sol.UnservicedTripIDs = append(sol.UnservicedTripIDs, j.ID)
			continue
		}
		for ti, t := range model.Trains {
			if value(res, v.Assign[ti][ji].ID()) == boolTrue {
				sol.TripAssignments = append(sol.TripAssignments, TripAssignment{
					TripID:    j.ID,
					TrainID:   t.ID,
					StartTime: j.StartSec,
					EndTime:   j.EndSec,
				})
				break
			}
		}
	}
	sort.Slice(sol.TripAssignments, func(i, j int) bool {
		return sol.TripAssignments[i].StartTime < sol.TripAssignments[j].StartTime
	})
	sol.TripsServiced = len(sol.TripAssignments)
	sol.TripsUnserviced = len(sol.UnservicedTripIDs)

	avgInService := averageInServiceMileage(model, res)

	ranking := make([]InductionRecord, len(model.Trains))
	for ti, t := range model.Trains {
		used := value(res, v.TrainUsed[ti].ID()) == boolTrue
		if used {
			sol.TotalTrainsUsed++
		}
		finalMileage := decode(value(res, v.FinalMileage[ti].ID()))

		status, reason := classify(model, t, v, res, ti, used, avgInService)

		rec := InductionRecord{
			TrainID:      t.ID,
			Status:       status,
			Reason:       reason,
			FinalMileage: finalMileage,
			HealthScore:  t.AnomalyScore,
		}
		if !v.UsesVariantB && v.ShuntingDist != nil {
			km := float64(decode(value(res, v.ShuntingDist[ti].ID()))) / 10
			rec.ShuntingDistKm = km
			sol.TotalShuntingKm += km
		}
		ranking[ti] = rec
	}

	sort.SliceStable(ranking, func(i, j int) bool {
		if ranking[i].Status != ranking[j].Status {
			return ranking[i].Status > ranking[j].Status
		}
		return ranking[i].FinalMileage < ranking[j].FinalMileage
	})
	sol.InductionRanking = ranking

	return sol, nil
}

// classify applies the status cascade of §4.7.
func classify(model *domain.Model, t domain.Train, v *Variables, res *Result, ti int, used bool, avgInService float64) (string, string) {
	switch {
	case t.HasOpenJobCard:
		return "HELD FOR MAINTENANCE (Job Card Open)", "open job card"
	case t.TelecomCertExpired:
		return "HELD (Telecom Cert Expired)", "telecom certificate expired on planning date"
	case t.StockCertExpired:
		return "HELD (Stock Cert Expired)", "rolling stock certificate expired on planning date"
	case !t.IsFullyCertified:
		return "HELD (Certification Expired)", "not fully certified for service"
	case value(res, v.IsCleaned[ti].ID()) == boolTrue:
		return "HELD FOR CLEANING", "scheduled deep clean"
	case used:
		return "IN SERVICE", "assigned to at least one trip"
	default:
		switch {
		case t.AnomalyScore > 0.75:
			return "STANDBY (High Failure Risk)", "anomaly score above 0.75"
		case avgInService > 0 && float64(t.MileageKM) > 1.15*avgInService:
			return "STANDBY (For Mileage Balancing)", "initial mileage exceeds 1.15x the in-service average"
		default:
			return "STANDBY", "not required for today's service"
		}
	}
}

// averageInServiceMileage computes avg(initial_mileage) over trains with at
// least one assignment, or 0 if none are in service.
func averageInServiceMileage(model *domain.Model, res *Result) float64 {
	v := res.Variables
	sum, n := 0, 0
	for ti, t := range model.Trains {
		if value(res, v.TrainUsed[ti].ID()) == boolTrue {
			sum += t.MileageKM
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return float64(sum) / float64(n)
}
