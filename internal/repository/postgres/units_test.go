package postgres

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"bloodbank.io/becs/internal/domain"
	"bloodbank.io/becs/internal/testutil"
)

func mustType(t *testing.T, s string) domain.BloodType {
	t.Helper()
	bt, err := domain.ParseBloodType(s)
	require.NoError(t, err)
	return bt
}

func newUnit(t *testing.T, typeName string, donatedDaysAgo int) domain.BloodUnit {
	t.Helper()
	now := time.Now().UTC().Truncate(time.Microsecond)
	return domain.BloodUnit{
		ID:           uuid.Must(uuid.NewV7()).String(),
		Type:         mustType(t, typeName),
		DonationDate: now.AddDate(0, 0, -donatedDaysAgo),
		DonorID:      "donor-" + typeName,
		DonorName:    "Donor " + typeName,
		Status:       domain.UnitStatusAvailable,
		CreatedAt:    now,
	}
}

func TestUnitRepository_InsertAndFEFOOrdering(t *testing.T) {
	pool := testutil.OpenPGXPool(t, "units_fefo")
	repo := NewUnitRepository(pool)
	ctx := context.Background()

	newest := newUnit(t, "A+", 1)
	oldest := newUnit(t, "A+", 30)
	middle := newUnit(t, "O-", 10)
	for _, u := range []domain.BloodUnit{newest, oldest, middle} {
		require.NoError(t, repo.Insert(ctx, u))
	}

	got, err := repo.AvailableUnits(ctx)
	require.NoError(t, err)
	require.Len(t, got, 3)
	require.Equal(t, oldest.ID, got[0].ID, "oldest donation first")
	require.Equal(t, middle.ID, got[1].ID)
	require.Equal(t, newest.ID, got[2].ID)
	require.Equal(t, oldest.DonationDate, got[0].DonationDate, "timestamps round-trip")
}

func TestUnitRepository_AvailableUnitsOfTypes(t *testing.T) {
	pool := testutil.OpenPGXPool(t, "units_of_types")
	repo := NewUnitRepository(pool)
	ctx := context.Background()

	aPos := newUnit(t, "A+", 5)
	oNeg := newUnit(t, "O-", 3)
	bPos := newUnit(t, "B+", 1)
	for _, u := range []domain.BloodUnit{aPos, oNeg, bPos} {
		require.NoError(t, repo.Insert(ctx, u))
	}

	got, err := repo.AvailableUnitsOfTypes(ctx, []domain.BloodType{mustType(t, "A+"), mustType(t, "O-")})
	require.NoError(t, err)
	require.Len(t, got, 2)
	for _, u := range got {
		require.NotEqual(t, bPos.ID, u.ID)
	}

	got, err = repo.AvailableUnitsOfTypes(ctx, nil)
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestUnitRepository_IssueByIDs(t *testing.T) {
	pool := testutil.OpenPGXPool(t, "units_issue")
	repo := NewUnitRepository(pool)
	ctx := context.Background()

	u1 := newUnit(t, "B+", 2)
	u2 := newUnit(t, "B+", 4)
	require.NoError(t, repo.Insert(ctx, u1))
	require.NoError(t, repo.Insert(ctx, u2))

	issued, err := repo.IssueByIDs(ctx, []string{u1.ID, u2.ID, "not-a-uuid", uuid.NewString()}, domain.IssueTypeRoutine)
	require.NoError(t, err)
	require.Len(t, issued, 2, "malformed and unknown ids are skipped")
	for _, u := range issued {
		require.Equal(t, domain.UnitStatusIssued, u.Status)
	}

	// The same ids again transition nothing.
	again, err := repo.IssueByIDs(ctx, []string{u1.ID, u2.ID}, domain.IssueTypeRoutine)
	require.NoError(t, err)
	require.Empty(t, again)

	avail, err := repo.AvailableUnits(ctx)
	require.NoError(t, err)
	require.Empty(t, avail)

	history, err := repo.Issuances(ctx)
	require.NoError(t, err)
	require.Len(t, history, 2, "one issuance row per transitioned unit")
	for _, iss := range history {
		require.Equal(t, domain.IssueTypeRoutine, iss.IssueType)
	}
}

func TestUnitRepository_ConcurrentIssuePartitions(t *testing.T) {
	pool := testutil.OpenPGXPool(t, "units_race")
	repo := NewUnitRepository(pool)
	ctx := context.Background()

	ids := make([]string, 6)
	for i := range ids {
		u := newUnit(t, "O+", i+1)
		require.NoError(t, repo.Insert(ctx, u))
		ids[i] = u.ID
	}

	results := make([][]domain.BloodUnit, 2)
	errs := make([]error, 2)
	var wg sync.WaitGroup
	wg.Add(2)
	for i := 0; i < 2; i++ {
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = repo.IssueByIDs(ctx, ids, domain.IssueTypeRoutine)
		}(i)
	}
	wg.Wait()
	for i, err := range errs {
		require.NoError(t, err, "caller %d", i)
	}

	// Every unit goes to exactly one caller.
	seen := map[string]int{}
	for _, res := range results {
		for _, u := range res {
			seen[u.ID]++
		}
	}
	require.Len(t, seen, 6)
	for id, n := range seen {
		require.Equal(t, 1, n, "unit %s issued more than once", id)
	}
}

func TestUnitRepository_DonorUpsert(t *testing.T) {
	pool := testutil.OpenPGXPool(t, "units_donor")
	repo := NewUnitRepository(pool)
	ctx := context.Background()

	first := newUnit(t, "AB-", 10)
	first.DonorID = "donor-1"
	first.DonorName = "Old Name"
	require.NoError(t, repo.Insert(ctx, first))

	second := newUnit(t, "AB-", 1)
	second.DonorID = "donor-1"
	second.DonorName = "New Name"
	require.NoError(t, repo.Insert(ctx, second))

	var name string
	require.NoError(t, pool.QueryRow(ctx, `SELECT name FROM donors WHERE id = $1`, "donor-1").Scan(&name))
	require.Equal(t, "New Name", name)

	var donorRows int
	require.NoError(t, pool.QueryRow(ctx, `SELECT count(*) FROM donors`).Scan(&donorRows))
	require.Equal(t, 1, donorRows)
}

func TestUnitRepository_CountAvailable(t *testing.T) {
	pool := testutil.OpenPGXPool(t, "units_count")
	repo := NewUnitRepository(pool)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, repo.Insert(ctx, newUnit(t, "O-", i+1)))
	}
	require.NoError(t, repo.Insert(ctx, newUnit(t, "A+", 1)))

	n, err := repo.CountAvailable(ctx, domain.ONeg)
	require.NoError(t, err)
	require.Equal(t, 3, n)

	n, err = repo.CountAvailable(ctx, mustType(t, "AB+"))
	require.NoError(t, err)
	require.Zero(t, n)
}
