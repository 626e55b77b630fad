// Package ml defines the contracts for the predictive collaborators: demand
// forecasting and donor eligibility screening. The core depends only on the
// interfaces; trained models plug in behind them without touching the
// allocation path.
package ml

import (
	"context"
	"time"
)

// DemandForecast is the predicted demand for one blood type.
type DemandForecast struct {
	Type           string  `json:"type"`
	PredictedUnits float64 `json:"predicted_units"`
	ModelVersion   string  `json:"model_version"`
}

// DemandForecaster predicts per-type demand for a month.
type DemandForecaster interface {
	PredictDemand(ctx context.Context, month time.Month) ([]DemandForecast, error)
}

// HealthMetrics is a donor's screening sheet.
type HealthMetrics struct {
	HbGDl                 float64  `json:"hb_g_dl"`
	Age                   int      `json:"age"`
	BPSystolic            int      `json:"bp_systolic"`
	BPDiastolic           int      `json:"bp_diastolic"`
	DaysSinceLastDonation int      `json:"days_since_last_donation"`
	Conditions            []string `json:"conditions,omitempty"`
}

// EligibilityResult is a screening verdict. It advises the intake desk; it
// never blocks a donation on its own.
type EligibilityResult struct {
	Eligible     bool    `json:"eligible"`
	Probability  float64 `json:"probability"`
	ModelVersion string  `json:"model_version"`
	Explanation  string  `json:"explanation"`
}

// EligibilityModel predicts whether a donor may donate today.
type EligibilityModel interface {
	PredictEligibility(ctx context.Context, m HealthMetrics) (EligibilityResult, error)
}
