// Package postgres implements the persistence contracts over pgx.
package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"bloodbank.io/becs/internal/domain"
)

// UnitRepository is the PostgreSQL unit inventory store.
type UnitRepository struct {
	pool *pgxpool.Pool
}

// NewUnitRepository creates a UnitRepository over the shared pool.
func NewUnitRepository(pool *pgxpool.Pool) *UnitRepository {
	return &UnitRepository{pool: pool}
}

const unitColumns = `id, blood_type, donation_date, donor_id, donor_name, status, created_at`

// Insert records a donation. The donor row is upserted and the unit inserted
// in one transaction so a crash cannot leave a unit without its donor.
func (r *UnitRepository) Insert(ctx context.Context, unit domain.BloodUnit) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin insert unit: %w", err)
	}
	defer tx.Rollback(ctx)

	if unit.DonorID != "" {
		_, err = tx.Exec(ctx, `
			INSERT INTO donors (id, name, blood_type)
			VALUES ($1, $2, $3)
			ON CONFLICT (id) DO UPDATE
			SET name = EXCLUDED.name, blood_type = EXCLUDED.blood_type, updated_at = now()`,
			unit.DonorID, unit.DonorName, unit.Type.String(),
		)
		if err != nil {
			return fmt.Errorf("upsert donor: %w", err)
		}
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO blood_units (id, blood_type, donation_date, donor_id, donor_name, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		unit.ID, unit.Type.String(), unit.DonationDate, unit.DonorID, unit.DonorName,
		string(unit.Status), unit.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert unit: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit insert unit: %w", err)
	}
	return nil
}

// AvailableUnits returns every Available unit, oldest donation first. Ties on
// donation date break on id, which is time-ordered for UUIDv7.
func (r *UnitRepository) AvailableUnits(ctx context.Context) ([]domain.BloodUnit, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+unitColumns+`
		FROM blood_units
		WHERE status = $1
		ORDER BY donation_date ASC, id ASC`,
		string(domain.UnitStatusAvailable),
	)
	if err != nil {
		return nil, fmt.Errorf("query available units: %w", err)
	}
	return scanUnits(rows)
}

// AvailableUnitsOfTypes returns Available units of the given types, oldest
// donation first.
func (r *UnitRepository) AvailableUnitsOfTypes(ctx context.Context, types []domain.BloodType) ([]domain.BloodUnit, error) {
	if len(types) == 0 {
		return nil, nil
	}
	names := make([]string, len(types))
	for i, t := range types {
		names[i] = t.String()
	}
	rows, err := r.pool.Query(ctx, `
		SELECT `+unitColumns+`
		FROM blood_units
		WHERE status = $1 AND blood_type = ANY($2)
		ORDER BY donation_date ASC, id ASC`,
		string(domain.UnitStatusAvailable), names,
	)
	if err != nil {
		return nil, fmt.Errorf("query available units of types: %w", err)
	}
	return scanUnits(rows)
}

// AllUnits returns every unit regardless of status, newest first.
func (r *UnitRepository) AllUnits(ctx context.Context) ([]domain.BloodUnit, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+unitColumns+`
		FROM blood_units
		ORDER BY created_at DESC, id DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("query all units: %w", err)
	}
	return scanUnits(rows)
}

// CountAvailable counts Available units of one type.
func (r *UnitRepository) CountAvailable(ctx context.Context, t domain.BloodType) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `
		SELECT count(*) FROM blood_units WHERE status = $1 AND blood_type = $2`,
		string(domain.UnitStatusAvailable), t.String(),
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count available units: %w", err)
	}
	return n, nil
}

// IssueByIDs transitions units from Available to Issued. The SELECT ... FOR
// UPDATE locks the candidate rows, so two concurrent issues of overlapping id
// sets partition the units rather than double-issuing any. Malformed,
// unknown, and already-issued ids are skipped.
func (r *UnitRepository) IssueByIDs(ctx context.Context, ids []string, issueType domain.IssueType) ([]domain.BloodUnit, error) {
	valid := make([]uuid.UUID, 0, len(ids))
	for _, raw := range ids {
		id, err := uuid.Parse(raw)
		if err != nil {
			continue
		}
		valid = append(valid, id)
	}
	if len(valid) == 0 {
		return nil, nil
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin issue: %w", err)
	}
	defer tx.Rollback(ctx)

	rows, err := tx.Query(ctx, `
		SELECT `+unitColumns+`
		FROM blood_units
		WHERE status = $1 AND id = ANY($2)
		ORDER BY donation_date ASC, id ASC
		FOR UPDATE`,
		string(domain.UnitStatusAvailable), valid,
	)
	if err != nil {
		return nil, fmt.Errorf("lock units: %w", err)
	}
	units, err := scanUnits(rows)
	if err != nil {
		return nil, err
	}
	if len(units) == 0 {
		return nil, tx.Commit(ctx)
	}

	locked := make([]string, len(units))
	for i, u := range units {
		locked[i] = u.ID
	}
	_, err = tx.Exec(ctx, `
		UPDATE blood_units SET status = $1 WHERE id = ANY($2)`,
		string(domain.UnitStatusIssued), locked,
	)
	if err != nil {
		return nil, fmt.Errorf("mark units issued: %w", err)
	}

	batch := &pgx.Batch{}
	for _, u := range units {
		batch.Queue(`
			INSERT INTO issuances (id, unit_id, blood_type, issue_type, issued_at)
			VALUES ($1, $2, $3, $4, now())`,
			uuid.Must(uuid.NewV7()).String(), u.ID, u.Type.String(), string(issueType),
		)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return nil, fmt.Errorf("insert issuances: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit issue: %w", err)
	}

	for i := range units {
		units[i].Status = domain.UnitStatusIssued
	}
	return units, nil
}

// Issuances returns the issuance history, newest first.
func (r *UnitRepository) Issuances(ctx context.Context) ([]domain.Issuance, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, unit_id, blood_type, issue_type, issued_at
		FROM issuances
		ORDER BY issued_at DESC, id DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("query issuances: %w", err)
	}
	defer rows.Close()

	var out []domain.Issuance
	for rows.Next() {
		var (
			iss      domain.Issuance
			typeName string
			issType  string
		)
		if err := rows.Scan(&iss.ID, &iss.UnitID, &typeName, &issType, &iss.IssuedAt); err != nil {
			return nil, fmt.Errorf("scan issuance: %w", err)
		}
		t, err := domain.ParseBloodType(typeName)
		if err != nil {
			return nil, fmt.Errorf("issuance %s: %w", iss.ID, err)
		}
		iss.Type = t
		iss.IssueType = domain.IssueType(issType)
		iss.IssuedAt = iss.IssuedAt.UTC()
		out = append(out, iss)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate issuances: %w", err)
	}
	return out, nil
}

func scanUnits(rows pgx.Rows) ([]domain.BloodUnit, error) {
	defer rows.Close()

	var out []domain.BloodUnit
	for rows.Next() {
		var (
			u        domain.BloodUnit
			typeName string
			status   string
		)
		if err := rows.Scan(&u.ID, &typeName, &u.DonationDate, &u.DonorID, &u.DonorName, &status, &u.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan unit: %w", err)
		}
		t, err := domain.ParseBloodType(typeName)
		if err != nil {
			return nil, fmt.Errorf("unit %s: %w", u.ID, err)
		}
		u.Type = t
		u.Status = domain.UnitStatus(status)
		u.DonationDate = u.DonationDate.UTC()
		u.CreatedAt = u.CreatedAt.UTC()
		out = append(out, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate units: %w", err)
	}
	return out, nil
}
