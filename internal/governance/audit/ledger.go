package audit

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"bloodbank.io/becs/internal/pkg/logger"
)

// FailureMode decides what a failed ledger write does to the business action
// it records.
type FailureMode string

// Failure modes. FailOpen logs and swallows write errors (best-effort
// logging); FailClosed propagates them so the caller can abort.
const (
	FailOpen   FailureMode = "fail-open"
	FailClosed FailureMode = "fail-closed"
)

// Store persists entries and walks them in insertion order. The
// implementation must serialize the read-prevHash-then-insert sequence per
// ledger (see repository/postgres).
type Store interface {
	// Append computes the entry's chain hash against the current head and
	// persists it, returning the assigned sequential id.
	Append(ctx context.Context, e Entry) (int64, error)

	// Walk streams stored entries in insertion order.
	Walk(ctx context.Context, fn func(Entry) error) error

	// List returns stored entries in reverse insertion order, paginated.
	List(ctx context.Context, limit, offset int) ([]Entry, error)
}

// Submitter schedules a detached background task. Satisfied by
// worker.Pools.SubmitDetached with the pool name bound.
type Submitter func(task func(ctx context.Context)) error

// MetaExtractor pulls request metadata (correlation id, ip, user agent,
// method, path) from a context. Wired to the HTTP middleware at bootstrap;
// nil leaves the fields as the caller set them.
type MetaExtractor func(ctx context.Context) Meta

// Meta is per-request network metadata attached to entries.
type Meta struct {
	CorrelationID string
	IP            string
	UserAgent     string
	Method        string
	Path          string
}

// Ledger writes tamper-evident audit records.
type Ledger struct {
	store  Store
	hasher *Hasher
	mode   FailureMode
	submit Submitter
	meta   MetaExtractor
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithFailureMode sets the write failure mode (default FailOpen).
func WithFailureMode(mode FailureMode) Option {
	return func(l *Ledger) { l.mode = mode }
}

// WithSubmitter routes fail-open writes through a worker pool instead of the
// caller's goroutine, detaching them from request cancellation.
func WithSubmitter(s Submitter) Option {
	return func(l *Ledger) { l.submit = s }
}

// WithMetaExtractor enriches entries with request metadata from the context.
func WithMetaExtractor(m MetaExtractor) Option {
	return func(l *Ledger) { l.meta = m }
}

// NewLedger creates a Ledger over a store.
func NewLedger(store Store, hasher *Hasher, opts ...Option) *Ledger {
	l := &Ledger{
		store:  store,
		hasher: hasher,
		mode:   FailOpen,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Hasher exposes the ledger's hash function for verification tooling.
func (l *Ledger) Hasher() *Hasher { return l.hasher }

// Append writes one entry synchronously and returns its assigned id.
// It fails only on an underlying storage fault.
func (l *Ledger) Append(ctx context.Context, e Entry) (int64, error) {
	if e.Timestamp.IsZero() {
		e.Timestamp = Now()
	}
	if e.ActorType == "" {
		e.ActorType = ActorTypeUser
	}
	if l.meta != nil {
		e = enrich(e, l.meta(ctx))
	}
	id, err := l.store.Append(ctx, e)
	if err != nil {
		return 0, fmt.Errorf("append audit entry: %w", err)
	}
	return id, nil
}

// Record writes one entry under the configured failure mode. In fail-closed
// mode it behaves like Append. In fail-open mode the write is best-effort:
// scheduled on the worker pool when one is wired, attempted inline otherwise,
// and a failure is logged but never returned.
func (l *Ledger) Record(ctx context.Context, e Entry) error {
	if l.mode == FailClosed {
		_, err := l.Append(ctx, e)
		return err
	}

	if e.Timestamp.IsZero() {
		e.Timestamp = Now()
	}
	if l.meta != nil {
		// Extract before detaching: the request context dies with the request.
		e = enrich(e, l.meta(ctx))
	}

	write := func(ctx context.Context) {
		if _, err := l.Append(ctx, e); err != nil {
			logger.Error("Failed to write audit log",
				zap.String("action", e.Action),
				zap.String("entity_name", e.EntityName),
				zap.String("entity_id", e.EntityID),
				zap.Error(err),
			)
		}
	}

	if l.submit != nil {
		if err := l.submit(write); err != nil {
			logger.Error("Failed to schedule audit write", zap.Error(err))
		}
		return nil
	}
	write(ctx)
	return nil
}

// LogAction records an auditable action with a structured detail payload.
func (l *Ledger) LogAction(ctx context.Context, action, entityName, entityID string, details map[string]interface{}, success bool) error {
	e := Entry{
		Action:     action,
		EntityName: entityName,
		EntityID:   entityID,
		Success:    success,
	}
	if len(details) > 0 {
		raw, err := json.Marshal(details)
		if err != nil {
			return fmt.Errorf("marshal audit details: %w", err)
		}
		e.Details = string(raw)
	}
	return l.Record(ctx, e)
}

// VerifyReport summarizes one walk over the chain.
type VerifyReport struct {
	Checked       int   `json:"checked"`
	Broken        int   `json:"broken"`
	FirstBrokenID int64 `json:"first_broken_id,omitempty"`
	OK            bool  `json:"ok"`
}

// Verify walks all entries in insertion order and recomputes each hash from
// its stored fields and the running hash of the entries before it. A mutation
// of any field in entry k therefore fails entry k, and everything after the
// first break is counted broken too: a fork head proves nothing about its
// descendants.
func (l *Ledger) Verify(ctx context.Context) (VerifyReport, error) {
	report := VerifyReport{OK: true}
	running := ""

	err := l.store.Walk(ctx, func(e Entry) error {
		report.Checked++
		computed := l.hasher.Sum(e, running)
		if !report.OK || e.PrevHash != running || computed != e.Hash {
			report.Broken++
			if report.FirstBrokenID == 0 {
				report.FirstBrokenID = e.ID
			}
			report.OK = false
		}
		running = computed
		return nil
	})
	if err != nil {
		return VerifyReport{}, fmt.Errorf("walk audit chain: %w", err)
	}
	return report, nil
}

// List returns stored entries, newest first.
func (l *Ledger) List(ctx context.Context, limit, offset int) ([]Entry, error) {
	return l.store.List(ctx, limit, offset)
}

func enrich(e Entry, m Meta) Entry {
	if e.CorrelationID == "" {
		e.CorrelationID = m.CorrelationID
	}
	if e.IP == "" {
		e.IP = m.IP
	}
	if e.UserAgent == "" {
		e.UserAgent = m.UserAgent
	}
	if e.Method == "" {
		e.Method = m.Method
	}
	if e.Path == "" {
		e.Path = m.Path
	}
	return e
}
