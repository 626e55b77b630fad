// Package repository defines the persistence contracts of the BECS core.
//
// The inventory lives behind a single store interface; services never see
// driver types. The audit ledger's store contract lives with the ledger in
// internal/governance/audit because the chain invariants belong to it.
package repository

import (
	"context"
	"errors"

	"bloodbank.io/becs/internal/domain"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("not found")

// UnitStore is the unit inventory store.
type UnitStore interface {
	// Insert records a donation: donor upsert plus unit insert in one
	// transaction.
	Insert(ctx context.Context, unit domain.BloodUnit) error

	// AvailableUnits returns every Available unit, oldest donation first.
	AvailableUnits(ctx context.Context) ([]domain.BloodUnit, error)

	// AvailableUnitsOfTypes returns the Available units of the given types,
	// oldest donation first. An empty type list returns no units.
	AvailableUnitsOfTypes(ctx context.Context, types []domain.BloodType) ([]domain.BloodUnit, error)

	// AllUnits returns every unit regardless of status, newest first.
	AllUnits(ctx context.Context) ([]domain.BloodUnit, error)

	// CountAvailable counts Available units of one type.
	CountAvailable(ctx context.Context, t domain.BloodType) (int, error)

	// IssueByIDs transitions the given units from Available to Issued and
	// writes their issuance records, all in one transaction. Ids that are
	// unknown, malformed, or already issued are skipped; the returned slice
	// holds the units that actually transitioned.
	IssueByIDs(ctx context.Context, ids []string, issueType domain.IssueType) ([]domain.BloodUnit, error)

	// Issuances returns the issuance history, newest first.
	Issuances(ctx context.Context) ([]domain.Issuance, error)
}
