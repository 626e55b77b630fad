package modules

import (
	"context"

	"github.com/riverqueue/river"

	"bloodbank.io/becs/internal/api/handlers"
	"bloodbank.io/becs/internal/ml"
)

// defaultBaseMonthlyUnits anchors the heuristic demand forecast until a
// trained model replaces it.
const defaultBaseMonthlyUnits = 500

// IntelligenceModule owns the predictive collaborators. The baselines here
// are heuristics; swapping in trained models touches only this module.
type IntelligenceModule struct {
	forecaster  ml.DemandForecaster
	eligibility ml.EligibilityModel
}

// NewIntelligenceModule wires the baseline predictive models.
func NewIntelligenceModule(infra *Infrastructure) *IntelligenceModule {
	return &IntelligenceModule{
		forecaster:  ml.NewSeasonalForecaster(defaultBaseMonthlyUnits, infra.Rarity),
		eligibility: ml.NewRuleBasedScreen(),
	}
}

func (m *IntelligenceModule) Name() string { return "intelligence" }

func (m *IntelligenceModule) ContributeServerDeps(deps *handlers.ServerDeps) {
	deps.Forecaster = m.forecaster
	deps.Eligibility = m.eligibility
}

func (m *IntelligenceModule) RegisterWorkers(_ *river.Workers) {}

func (m *IntelligenceModule) PeriodicJobs() []*river.PeriodicJob { return nil }

func (m *IntelligenceModule) Shutdown(context.Context) error { return nil }
