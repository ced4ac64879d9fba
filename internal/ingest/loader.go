// Package ingest parses and validates the daily input record into a
// domain.Model.
package ingest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/gitrdm/railyard/internal/domain"
	"github.com/gitrdm/railyard/internal/railyarderr"
)

// InputPath returns the canonical path for a planning date under root, per
// §6: daily_input/<YYYY-MM-DD>_input_data.json.
func InputPath(root, planningDate string) string {
	return filepath.Join(root, fmt.Sprintf("%s_input_data.json", planningDate))
}

// Load reads and validates the input record for planningDate from root,
// returning a ready-to-use domain.Model.
func Load(root, planningDate string, log *logrus.Logger) (*domain.Model, error) {
	path := InputPath(root, planningDate)

	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, railyarderr.New(railyarderr.MissingFile, fmt.Errorf("input file not found: %s", path))
		}
		return nil, railyarderr.New(railyarderr.MissingFile, err)
	}

	var in wireInput
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&in); err != nil {
		return nil, railyarderr.New(railyarderr.BadInput, fmt.Errorf("parsing %s: %w", path, err))
	}

	m, err := build(&in, planningDate)
	if err != nil {
		return nil, err
	}

	log.WithFields(logrus.Fields{
		"planning_date": planningDate,
		"trains":        len(m.Trains),
		"trips":         len(m.Trips),
		"terminals":     len(m.Terminals),
	}).Info("ingest: input loaded")

	return m, nil
}

func build(in *wireInput, planningDate string) (*domain.Model, error) {
	trains, err := buildTrains(in.Trains, planningDate)
	if err != nil {
		return nil, err
	}
	trips, err := buildTrips(in.Trips)
	if err != nil {
		return nil, err
	}
	edges, err := buildEdges(in.ShuntingDistances)
	if err != nil {
		return nil, err
	}
	terminals := collectTerminals(trips, edges)
	resources, err := decodeDepotResources(in.DepotResources)
	if err != nil {
		return nil, err
	}

	var nextDayStarts domain.NextDayStarts
	if len(in.NextDayStarts) > 0 {
		nextDayStarts = domain.NextDayStarts(in.NextDayStarts)
	}

	weights := domain.DefaultObjectiveWeights()

	return domain.NewModel(planningDate, trains, trips, terminals, edges, resources, weights, nextDayStarts), nil
}

func buildTrains(in []wireTrain, planningDate string) ([]domain.Train, error) {
	seen := make(map[string]bool, len(in))
	out := make([]domain.Train, 0, len(in))
	for _, w := range in {
		if w.TrainID == "" {
			return nil, railyarderr.Newf(railyarderr.BadInput, "train record missing train_id")
		}
		if seen[w.TrainID] {
			return nil, railyarderr.Newf(railyarderr.BadInput, "duplicate train id %q", w.TrainID)
		}
		seen[w.TrainID] = true

		t, err := translateTrain(w, planningDate)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

// translateTrain accepts either the primary schema ({mileage,
// has_open_job_card, ...}) or the alternate schema ({initial_mileage_km,
// health_score, ...}) per §6.
func translateTrain(w wireTrain, planningDate string) (domain.Train, error) {
	t := domain.Train{ID: w.TrainID}

	switch {
	case w.Mileage != nil:
		if *w.Mileage < 0 {
			return t, railyarderr.Newf(railyarderr.BadInput, "train %q has negative mileage", w.TrainID)
		}
		t.MileageKM = *w.Mileage
		t.HasOpenJobCard = boolOr(w.HasOpenJobCard, false)
		t.IsFullyCertified = boolOr(w.IsFullyCertified, true)
		t.AnomalyScore = floatOr(w.AnomalyScore, 0)
		t.HasBrandingContract = boolOr(w.HasBrandingContract, false)
		t.CleaningRequiredHours = floatOr(w.CleaningRequiredHours, 0)
		if w.DaysSinceLastDeepClean != nil {
			t.HasDeepCleanHistory = true
			t.DaysSinceLastDeepClean = *w.DaysSinceLastDeepClean
		}
	case w.InitialMileageKM != nil:
		if *w.InitialMileageKM < 0 {
			return t, railyarderr.Newf(railyarderr.BadInput, "train %q has negative mileage", w.TrainID)
		}
		t.MileageKM = *w.InitialMileageKM
		t.AnomalyScore = floatOr(w.HealthScore, 0)
		t.IsFullyCertified = true
		t.TelecomCertExpired = certExpired(w.TelecomCertExpiryDate, planningDate)
		t.StockCertExpired = certExpired(w.StockCertExpiryDate, planningDate)
		if w.LastDeepCleanDate != nil {
			if days, ok := daysBetween(*w.LastDeepCleanDate, planningDate); ok {
				t.HasDeepCleanHistory = true
				t.DaysSinceLastDeepClean = days
			}
		}
	default:
		return t, railyarderr.Newf(railyarderr.BadInput, "train %q matches neither documented schema", w.TrainID)
	}

	if t.AnomalyScore < 0 || t.AnomalyScore > 1 {
		return t, railyarderr.Newf(railyarderr.BadInput, "train %q anomaly/health score %v out of [0,1]", w.TrainID, t.AnomalyScore)
	}
	return t, nil
}

// certExpired reports whether a certificate's expiry date falls on or before
// the planning date. An unparseable or absent date is treated as not
// expired.
func certExpired(expiry *string, planningDate string) bool {
	if expiry == nil || strings.TrimSpace(*expiry) == "" {
		return false
	}
	exp, err := time.Parse("2006-01-02", strings.TrimSpace(*expiry))
	if err != nil {
		return false
	}
	plan, err := time.Parse("2006-01-02", planningDate)
	if err != nil {
		return false
	}
	return !exp.After(plan)
}

// daysBetween returns the whole number of days between a past date and the
// planning date. ok is false if either date is unparseable.
func daysBetween(past, planningDate string) (int, bool) {
	p, err := time.Parse("2006-01-02", strings.TrimSpace(past))
	if err != nil {
		return 0, false
	}
	plan, err := time.Parse("2006-01-02", planningDate)
	if err != nil {
		return 0, false
	}
	return int(plan.Sub(p).Hours() / 24), true
}

func boolOr(p *bool, def bool) bool {
	if p == nil {
		return def
	}
	return *p
}

func floatOr(p *float64, def float64) float64 {
	if p == nil {
		return def
	}
	return *p
}

func buildTrips(in []wireTrip) ([]domain.Trip, error) {
	seen := make(map[string]bool, len(in))
	out := make([]domain.Trip, 0, len(in))
	for _, w := range in {
		if w.TripID == "" {
			return nil, railyarderr.Newf(railyarderr.BadInput, "trip record missing trip_id")
		}
		if seen[w.TripID] {
			return nil, railyarderr.Newf(railyarderr.BadInput, "duplicate trip id %q", w.TripID)
		}
		seen[w.TripID] = true

		startSec, err := parseClock(w.StartTime)
		if err != nil {
			return nil, railyarderr.Newf(railyarderr.BadInput, "trip %q start_time: %v", w.TripID, err)
		}
		endSec, err := parseClock(w.EndTime)
		if err != nil {
			return nil, railyarderr.Newf(railyarderr.BadInput, "trip %q end_time: %v", w.TripID, err)
		}
		if endSec < startSec {
			endSec += 86400
		}
		if endSec <= startSec || endSec > domain.Horizon {
			return nil, railyarderr.Newf(railyarderr.BadInput, "trip %q has non-monotonic times after midnight adjustment", w.TripID)
		}
		if w.DistanceKM < 0 {
			return nil, railyarderr.Newf(railyarderr.BadInput, "trip %q has negative distance", w.TripID)
		}
		if w.StartStopID == "" || w.EndStopID == "" {
			return nil, railyarderr.Newf(railyarderr.BadInput, "trip %q missing terminal id", w.TripID)
		}

		out = append(out, domain.Trip{
			ID:            w.TripID,
			StartSec:      startSec,
			EndSec:        endSec,
			StartStopID:   w.StartStopID,
			EndStopID:     w.EndStopID,
			DistanceKM10:  scaleDistance(w.DistanceKM),
			IsLateEvening: boolOr(w.IsLateEvening, false),
			DurationHours: floatOr(w.DurationHours, 0),
		})
	}
	return out, nil
}

func buildEdges(in []wireShuntingEdge) ([]domain.ShuntingEdge, error) {
	out := make([]domain.ShuntingEdge, 0, len(in))
	for _, w := range in {
		if w.DistanceKM < 0 {
			return nil, railyarderr.Newf(railyarderr.BadInput, "shunting edge %s->%s has negative distance", w.FromStopID, w.ToStopID)
		}
		out = append(out, domain.ShuntingEdge{
			FromStopID:   w.FromStopID,
			ToStopID:     w.ToStopID,
			DistanceKM10: scaleDistance(w.DistanceKM),
		})
	}
	return out, nil
}

// scaleDistance applies the ×10 integer-scaling policy of §4.2.
func scaleDistance(km float64) int {
	return int(km*10 + 0.5)
}

// parseClock parses an "HH:MM:SS" string into integer seconds since
// midnight.
func parseClock(s string) (int, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return 0, fmt.Errorf("expected HH:MM:SS, got %q", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, fmt.Errorf("invalid hour in %q: %w", s, err)
	}
	min, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, fmt.Errorf("invalid minute in %q: %w", s, err)
	}
	sec, err := strconv.Atoi(parts[2])
	if err != nil {
		return 0, fmt.Errorf("invalid second in %q: %w", s, err)
	}
	return h*3600 + min*60 + sec, nil
}

// collectTerminals builds the canonical terminal-index universe: every
// terminal appearing in a trip endpoint or a shunting row, sorted with a
// locale-independent root collator so the resulting index assignment is
// stable regardless of the ids' script.
func collectTerminals(trips []domain.Trip, edges []domain.ShuntingEdge) []string {
	set := make(map[string]bool)
	for _, t := range trips {
		set[t.StartStopID] = true
		set[t.EndStopID] = true
	}
	for _, e := range edges {
		set[e.FromStopID] = true
		set[e.ToStopID] = true
	}
	out := make([]string, 0, len(set))
	for s := range set {
		out = append(out, s)
	}
	col := collate.New(language.Und)
	sort.Slice(out, func(i, j int) bool {
		return col.CompareString(out[i], out[j]) < 0
	})
	return out
}

// decodeDepotResources accepts either the flat {cleaning_bays,
// deep_clean_threshold_days} shape or the alternate shape nested under an
// arbitrary depot name.
func decodeDepotResources(raw json.RawMessage) (domain.DepotResources, error) {
	if len(raw) == 0 {
		return domain.DepotResources{}, nil
	}

	var flat wireDepotResources
	if err := json.Unmarshal(raw, &flat); err == nil && flat.CleaningBays != nil {
		return toDepotResources(flat), nil
	}

	var nested map[string]wireDepotResources
	if err := json.Unmarshal(raw, &nested); err == nil {
		for _, v := range nested {
			return toDepotResources(v), nil
		}
	}

	return domain.DepotResources{}, railyarderr.Newf(railyarderr.BadInput, "depot_resources matches neither documented shape")
}

func toDepotResources(w wireDepotResources) domain.DepotResources {
	r := domain.DepotResources{}
	if w.CleaningBays != nil {
		r.CleaningBays = *w.CleaningBays
	}
	if w.DeepCleanThresholdDays != nil {
		r.DeepCleanThresholdDays = *w.DeepCleanThresholdDays
	}
	return r
}
