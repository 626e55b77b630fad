package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"bloodbank.io/becs/internal/domain"
	"bloodbank.io/becs/internal/governance/audit"
	"bloodbank.io/becs/internal/pkg/logger"
)

func init() {
	_ = logger.Init("error", "json")
}

// fakeUnitStore mirrors the postgres store's ordering and transition
// semantics in memory.
type fakeUnitStore struct {
	mu        sync.Mutex
	units     map[string]domain.BloodUnit
	issuances []domain.Issuance
	failing   bool
}

func newFakeUnitStore() *fakeUnitStore {
	return &fakeUnitStore{units: map[string]domain.BloodUnit{}}
}

func (s *fakeUnitStore) Insert(_ context.Context, unit domain.BloodUnit) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failing {
		return errors.New("storage down")
	}
	s.units[unit.ID] = unit
	return nil
}

func (s *fakeUnitStore) available(types map[string]bool) []domain.BloodUnit {
	var out []domain.BloodUnit
	for _, u := range s.units {
		if u.Status != domain.UnitStatusAvailable {
			continue
		}
		if types != nil && !types[u.Type.String()] {
			continue
		}
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].DonationDate.Equal(out[j].DonationDate) {
			return out[i].DonationDate.Before(out[j].DonationDate)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (s *fakeUnitStore) AvailableUnits(_ context.Context) ([]domain.BloodUnit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failing {
		return nil, errors.New("storage down")
	}
	return s.available(nil), nil
}

func (s *fakeUnitStore) AvailableUnitsOfTypes(_ context.Context, types []domain.BloodType) ([]domain.BloodUnit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failing {
		return nil, errors.New("storage down")
	}
	if len(types) == 0 {
		return nil, nil
	}
	wanted := map[string]bool{}
	for _, t := range types {
		wanted[t.String()] = true
	}
	return s.available(wanted), nil
}

func (s *fakeUnitStore) AllUnits(_ context.Context) ([]domain.BloodUnit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failing {
		return nil, errors.New("storage down")
	}
	out := make([]domain.BloodUnit, 0, len(s.units))
	for _, u := range s.units {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *fakeUnitStore) CountAvailable(_ context.Context, t domain.BloodType) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failing {
		return 0, errors.New("storage down")
	}
	n := 0
	for _, u := range s.units {
		if u.Status == domain.UnitStatusAvailable && u.Type == t {
			n++
		}
	}
	return n, nil
}

func (s *fakeUnitStore) IssueByIDs(_ context.Context, ids []string, issueType domain.IssueType) ([]domain.BloodUnit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failing {
		return nil, errors.New("storage down")
	}
	var issued []domain.BloodUnit
	for _, id := range ids {
		u, ok := s.units[id]
		if !ok || u.Status != domain.UnitStatusAvailable {
			continue
		}
		u.Status = domain.UnitStatusIssued
		s.units[id] = u
		s.issuances = append(s.issuances, domain.Issuance{
			ID:        uuid.Must(uuid.NewV7()).String(),
			UnitID:    id,
			Type:      u.Type,
			IssuedAt:  time.Now().UTC(),
			IssueType: issueType,
		})
		issued = append(issued, u)
	}
	sort.Slice(issued, func(i, j int) bool {
		if !issued[i].DonationDate.Equal(issued[j].DonationDate) {
			return issued[i].DonationDate.Before(issued[j].DonationDate)
		}
		return issued[i].ID < issued[j].ID
	})
	return issued, nil
}

func (s *fakeUnitStore) Issuances(_ context.Context) ([]domain.Issuance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := append([]domain.Issuance(nil), s.issuances...)
	sort.Slice(out, func(i, j int) bool { return out[i].IssuedAt.After(out[j].IssuedAt) })
	return out, nil
}

// memAuditStore is a minimal in-memory ledger store for service tests.
type memAuditStore struct {
	mu      sync.Mutex
	hasher  *audit.Hasher
	entries []audit.Entry
	failing bool
}

func newMemAuditStore(hasher *audit.Hasher) *memAuditStore {
	return &memAuditStore{hasher: hasher}
}

func (s *memAuditStore) Append(_ context.Context, e audit.Entry) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failing {
		return 0, errors.New("audit storage down")
	}
	prev := ""
	if n := len(s.entries); n > 0 {
		prev = s.entries[n-1].Hash
	}
	e.ID = int64(len(s.entries) + 1)
	e.PrevHash = prev
	e.Hash = s.hasher.Sum(e, prev)
	s.entries = append(s.entries, e)
	return e.ID, nil
}

func (s *memAuditStore) Walk(_ context.Context, fn func(audit.Entry) error) error {
	s.mu.Lock()
	snapshot := append([]audit.Entry(nil), s.entries...)
	s.mu.Unlock()
	for _, e := range snapshot {
		if err := fn(e); err != nil {
			return err
		}
	}
	return nil
}

func (s *memAuditStore) List(_ context.Context, limit, offset int) ([]audit.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]audit.Entry, 0, limit)
	for i := len(s.entries) - 1 - offset; i >= 0 && len(out) < limit; i-- {
		out = append(out, s.entries[i])
	}
	return out, nil
}

func (s *memAuditStore) lastAction() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.entries) == 0 {
		return ""
	}
	return s.entries[len(s.entries)-1].Action
}

// eventRecorder captures dispatched event types for assertions.
type eventRecorder struct {
	mu    sync.Mutex
	types []domain.EventType
}

func (r *eventRecorder) record(_ context.Context, e *domain.DomainEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.types = append(r.types, e.EventType)
	return nil
}

func (r *eventRecorder) has(t domain.EventType) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, got := range r.types {
		if got == t {
			return true
		}
	}
	return false
}

type fixture struct {
	store      *fakeUnitStore
	auditStore *memAuditStore
	ledger     *audit.Ledger
	events     *eventRecorder
	inventory  *InventoryService
	allocation *AllocationService
}

func newFixture(mode audit.FailureMode) *fixture {
	hasher := audit.NewHasher("test-pepper-0123456789abcdef")
	auditStore := newMemAuditStore(hasher)
	ledger := audit.NewLedger(auditStore, hasher, audit.WithFailureMode(mode))
	store := newFakeUnitStore()
	recorder := &eventRecorder{}
	events := domain.NewEventDispatcher()
	for _, t := range []domain.EventType{
		domain.EventDonationRecorded,
		domain.EventDonationRejected,
		domain.EventRoutineSelected,
		domain.EventUnitsIssued,
		domain.EventEmergencyIssued,
		domain.EventEmergencyNoStock,
	} {
		events.Register(t, recorder.record)
	}
	return &fixture{
		store:      store,
		auditStore: auditStore,
		ledger:     ledger,
		events:     recorder,
		inventory:  NewInventoryService(store, ledger, events),
		allocation: NewAllocationService(store, domain.DefaultRarityTable(), ledger, events),
	}
}

func (f *fixture) seed(typeName string, donatedDaysAgo int) domain.BloodUnit {
	t, err := domain.ParseBloodType(typeName)
	if err != nil {
		panic(err)
	}
	now := time.Now().UTC().Truncate(time.Microsecond)
	unit := domain.BloodUnit{
		ID:           uuid.Must(uuid.NewV7()).String(),
		Type:         t,
		DonationDate: now.AddDate(0, 0, -donatedDaysAgo),
		DonorID:      "donor-seed",
		DonorName:    "Seed Donor",
		Status:       domain.UnitStatusAvailable,
		CreatedAt:    now,
	}
	f.store.units[unit.ID] = unit
	return unit
}
