package modules

import (
	"context"

	"github.com/riverqueue/river"

	"bloodbank.io/becs/internal/api/handlers"
	"bloodbank.io/becs/internal/jobs"
)

// GovernanceModule owns the audit ledger surface: the log/verify endpoints
// and the periodic chain verification.
type GovernanceModule struct {
	infra *Infrastructure
}

// NewGovernanceModule wires the governance dependencies.
func NewGovernanceModule(infra *Infrastructure) *GovernanceModule {
	return &GovernanceModule{infra: infra}
}

func (m *GovernanceModule) Name() string { return "governance" }

func (m *GovernanceModule) ContributeServerDeps(deps *handlers.ServerDeps) {
	deps.Ledger = m.infra.Ledger
}

func (m *GovernanceModule) RegisterWorkers(workers *river.Workers) {
	river.AddWorker(workers, jobs.NewAuditVerifyWorker(m.infra.Ledger))
}

func (m *GovernanceModule) PeriodicJobs() []*river.PeriodicJob {
	interval := m.infra.Config.Audit.VerifyInterval
	if interval <= 0 {
		interval = jobs.DefaultAuditVerifyInterval
	}
	return []*river.PeriodicJob{
		river.NewPeriodicJob(
			river.PeriodicInterval(interval),
			func() (river.JobArgs, *river.InsertOpts) {
				return jobs.AuditVerifyArgs{}, nil
			},
			&river.PeriodicJobOpts{RunOnStart: true},
		),
	}
}

func (m *GovernanceModule) Shutdown(context.Context) error { return nil }
