package ml

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"bloodbank.io/becs/internal/domain"
)

// Baseline model versions, reported so downstream consumers can tell a
// heuristic verdict from a trained one.
const (
	baselineDemandVersion      = "baseline-seasonal-v1"
	baselineEligibilityVersion = "baseline-rules-v1"
)

// Donor screening thresholds (standard whole-blood criteria).
const (
	minHbGDl          = 12.5
	minDonorAge       = 18
	maxDonorAge       = 65
	maxBPSystolic     = 180
	maxBPDiastolic    = 100
	minDonationGapDay = 56
)

// seasonalFactor scales baseline demand per month. Trauma load peaks in the
// summer months and around the year-end holidays.
var seasonalFactor = map[time.Month]float64{
	time.January: 1.05, time.February: 0.95, time.March: 0.95,
	time.April: 1.0, time.May: 1.0, time.June: 1.1,
	time.July: 1.2, time.August: 1.15, time.September: 1.0,
	time.October: 1.0, time.November: 1.05, time.December: 1.15,
}

// disqualifyingConditions bars donation outright when reported.
var disqualifyingConditions = map[string]bool{
	"hepatitis_b": true,
	"hepatitis_c": true,
	"hiv":         true,
	"anemia":      true,
}

// SeasonalForecaster is the heuristic DemandForecaster: demand per type is
// the monthly base volume split by population frequency, scaled by season.
type SeasonalForecaster struct {
	// BaseMonthlyUnits is total expected demand in an average month.
	BaseMonthlyUnits float64
	rarity           domain.RarityTable
}

// NewSeasonalForecaster creates a SeasonalForecaster over the deployment's
// rarity table.
func NewSeasonalForecaster(baseMonthlyUnits float64, rarity domain.RarityTable) *SeasonalForecaster {
	if rarity == nil {
		rarity = domain.DefaultRarityTable()
	}
	return &SeasonalForecaster{BaseMonthlyUnits: baseMonthlyUnits, rarity: rarity}
}

// PredictDemand returns one forecast per blood type, most common type first.
func (f *SeasonalForecaster) PredictDemand(_ context.Context, month time.Month) ([]DemandForecast, error) {
	if month < time.January || month > time.December {
		return nil, fmt.Errorf("month %d is out of range", month)
	}
	factor := seasonalFactor[month]

	out := make([]DemandForecast, 0, len(domain.AllBloodTypes))
	for _, t := range domain.AllBloodTypes {
		out = append(out, DemandForecast{
			Type:           t.String(),
			PredictedUnits: f.BaseMonthlyUnits * f.rarity.Weight(t) * factor,
			ModelVersion:   baselineDemandVersion,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].PredictedUnits > out[j].PredictedUnits
	})
	return out, nil
}

// RuleBasedScreen is the heuristic EligibilityModel: standard whole-blood
// screening thresholds applied as hard rules, with a crude confidence score.
type RuleBasedScreen struct{}

// NewRuleBasedScreen creates a RuleBasedScreen.
func NewRuleBasedScreen() *RuleBasedScreen {
	return &RuleBasedScreen{}
}

// PredictEligibility applies the screening rules. The explanation names the
// first failed rule so the intake desk can tell the donor why.
func (s *RuleBasedScreen) PredictEligibility(_ context.Context, m HealthMetrics) (EligibilityResult, error) {
	var reasons []string
	if m.HbGDl < minHbGDl {
		reasons = append(reasons, fmt.Sprintf("hemoglobin %.1f g/dL below %.1f", m.HbGDl, minHbGDl))
	}
	if m.Age < minDonorAge || m.Age > maxDonorAge {
		reasons = append(reasons, fmt.Sprintf("age %d outside %d-%d", m.Age, minDonorAge, maxDonorAge))
	}
	if m.BPSystolic >= maxBPSystolic || m.BPDiastolic >= maxBPDiastolic {
		reasons = append(reasons, fmt.Sprintf("blood pressure %d/%d too high", m.BPSystolic, m.BPDiastolic))
	}
	if m.DaysSinceLastDonation > 0 && m.DaysSinceLastDonation < minDonationGapDay {
		reasons = append(reasons, fmt.Sprintf("last donation %d days ago, minimum gap is %d", m.DaysSinceLastDonation, minDonationGapDay))
	}
	for _, c := range m.Conditions {
		if disqualifyingConditions[strings.ToLower(strings.TrimSpace(c))] {
			reasons = append(reasons, fmt.Sprintf("reported condition %q", c))
		}
	}

	result := EligibilityResult{
		ModelVersion: baselineEligibilityVersion,
	}
	if len(reasons) == 0 {
		result.Eligible = true
		result.Probability = 0.95
		result.Explanation = "all screening rules passed"
		return result, nil
	}
	result.Probability = 0.05
	result.Explanation = reasons[0]
	return result, nil
}
