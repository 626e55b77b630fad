// Package jobs defines River Queue job types for periodic maintenance.
package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/riverqueue/river"
	"go.uber.org/zap"

	"bloodbank.io/becs/internal/governance/audit"
	"bloodbank.io/becs/internal/pkg/logger"
)

// DefaultAuditVerifyInterval is how often the chain is re-verified when the
// deployment does not configure its own cadence.
const DefaultAuditVerifyInterval = 24 * time.Hour

// AuditVerifyArgs is a periodic job that re-verifies the audit chain.
type AuditVerifyArgs struct{}

// Kind returns the job kind identifier for periodic audit verification.
func (AuditVerifyArgs) Kind() string { return "audit_verify" }

// InsertOpts ensures at most one verification is enqueued per period.
func (AuditVerifyArgs) InsertOpts() river.InsertOpts {
	return river.InsertOpts{
		Queue:       river.QueueDefault,
		MaxAttempts: 1,
		UniqueOpts: river.UniqueOpts{
			ByPeriod: time.Hour,
			ByQueue:  true,
			ByArgs:   true,
		},
	}
}

// chainVerifier is the slice of the ledger the worker needs.
type chainVerifier interface {
	Verify(ctx context.Context) (audit.VerifyReport, error)
}

// AuditVerifyWorker walks the whole chain and recomputes every hash. A broken
// chain fails the job so it lands in River's error tracking, on top of the
// error log.
type AuditVerifyWorker struct {
	river.WorkerDefaults[AuditVerifyArgs]
	ledger chainVerifier
}

// NewAuditVerifyWorker creates a verification worker.
func NewAuditVerifyWorker(ledger chainVerifier) *AuditVerifyWorker {
	return &AuditVerifyWorker{ledger: ledger}
}

// Work verifies the chain.
func (w *AuditVerifyWorker) Work(ctx context.Context, _ *river.Job[AuditVerifyArgs]) error {
	if w == nil || w.ledger == nil {
		return fmt.Errorf("audit verify worker is not initialized")
	}

	report, err := w.ledger.Verify(ctx)
	if err != nil {
		return fmt.Errorf("verify audit chain: %w", err)
	}

	if !report.OK {
		logger.Error("Audit chain verification failed",
			zap.Int("checked", report.Checked),
			zap.Int("broken", report.Broken),
			zap.Int64("first_broken_id", report.FirstBrokenID),
		)
		return fmt.Errorf("audit chain broken at entry %d (%d of %d entries invalid)",
			report.FirstBrokenID, report.Broken, report.Checked)
	}

	logger.Info("Audit chain verified",
		zap.Int("checked", report.Checked),
	)
	return nil
}
