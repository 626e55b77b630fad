package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"bloodbank.io/becs/internal/governance/audit"
)

// auditChainLockID keys the advisory lock that serializes ledger appends.
// The read-head-then-insert sequence must not interleave or two writers
// would chain onto the same predecessor.
const auditChainLockID int64 = 0x42454353 // "BECS"

// AuditRepository is the PostgreSQL audit ledger store.
type AuditRepository struct {
	pool   *pgxpool.Pool
	hasher *audit.Hasher
}

// NewAuditRepository creates an AuditRepository over the shared pool.
func NewAuditRepository(pool *pgxpool.Pool, hasher *audit.Hasher) *AuditRepository {
	return &AuditRepository{pool: pool, hasher: hasher}
}

const auditColumns = `id, ts, actor_id, actor_name, actor_type, action,
	entity_name, entity_id, details, success,
	correlation_id, ip, user_agent, method, path, prev_hash, hash`

// Append chains the entry onto the current head and persists it. The advisory
// lock is transaction-scoped, so it releases on commit and rollback alike.
func (r *AuditRepository) Append(ctx context.Context, e audit.Entry) (int64, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin audit append: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, auditChainLockID); err != nil {
		return 0, fmt.Errorf("acquire audit chain lock: %w", err)
	}

	var prev string
	err = tx.QueryRow(ctx, `
		SELECT COALESCE((SELECT hash FROM audit_logs ORDER BY id DESC LIMIT 1), '')`,
	).Scan(&prev)
	if err != nil {
		return 0, fmt.Errorf("read audit chain head: %w", err)
	}

	e.PrevHash = prev
	e.Hash = r.hasher.Sum(e, prev)

	var id int64
	err = tx.QueryRow(ctx, `
		INSERT INTO audit_logs (ts, actor_id, actor_name, actor_type, action,
			entity_name, entity_id, details, success,
			correlation_id, ip, user_agent, method, path, prev_hash, hash)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		RETURNING id`,
		e.Timestamp, e.ActorID, e.ActorName, e.ActorType, e.Action,
		e.EntityName, e.EntityID, e.Details, e.Success,
		e.CorrelationID, e.IP, e.UserAgent, e.Method, e.Path, e.PrevHash, e.Hash,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert audit entry: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit audit append: %w", err)
	}
	return id, nil
}

// Walk streams entries in insertion order.
func (r *AuditRepository) Walk(ctx context.Context, fn func(audit.Entry) error) error {
	rows, err := r.pool.Query(ctx, `
		SELECT `+auditColumns+` FROM audit_logs ORDER BY id ASC`,
	)
	if err != nil {
		return fmt.Errorf("query audit entries: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		e, err := scanEntry(rows.Scan)
		if err != nil {
			return err
		}
		if err := fn(e); err != nil {
			return err
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate audit entries: %w", err)
	}
	return nil
}

// List returns entries newest first, paginated.
func (r *AuditRepository) List(ctx context.Context, limit, offset int) ([]audit.Entry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+auditColumns+` FROM audit_logs ORDER BY id DESC LIMIT $1 OFFSET $2`,
		limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("query audit entries: %w", err)
	}
	defer rows.Close()

	var out []audit.Entry
	for rows.Next() {
		e, err := scanEntry(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit entries: %w", err)
	}
	return out, nil
}

func scanEntry(scan func(...any) error) (audit.Entry, error) {
	var e audit.Entry
	err := scan(&e.ID, &e.Timestamp, &e.ActorID, &e.ActorName, &e.ActorType, &e.Action,
		&e.EntityName, &e.EntityID, &e.Details, &e.Success,
		&e.CorrelationID, &e.IP, &e.UserAgent, &e.Method, &e.Path, &e.PrevHash, &e.Hash)
	if err != nil {
		return audit.Entry{}, fmt.Errorf("scan audit entry: %w", err)
	}
	e.Timestamp = e.Timestamp.UTC()
	return e, nil
}
