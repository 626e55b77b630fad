package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"bloodbank.io/becs/internal/api/middleware"
	"bloodbank.io/becs/internal/domain"
	"bloodbank.io/becs/internal/governance/audit"
	"bloodbank.io/becs/internal/ml"
	"bloodbank.io/becs/internal/pkg/logger"
	"bloodbank.io/becs/internal/service"
)

func init() {
	gin.SetMode(gin.TestMode)
	_ = logger.Init("error", "json")
}

// memUnits is an in-memory UnitStore for handler tests.
type memUnits struct {
	mu    sync.Mutex
	units map[string]domain.BloodUnit
	hist  []domain.Issuance
}

func newMemUnits() *memUnits { return &memUnits{units: map[string]domain.BloodUnit{}} }

func (s *memUnits) Insert(_ context.Context, u domain.BloodUnit) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.units[u.ID] = u
	return nil
}

func (s *memUnits) sorted(filter func(domain.BloodUnit) bool) []domain.BloodUnit {
	var out []domain.BloodUnit
	for _, u := range s.units {
		if filter(u) {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].DonationDate.Equal(out[j].DonationDate) {
			return out[i].DonationDate.Before(out[j].DonationDate)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (s *memUnits) AvailableUnits(_ context.Context) ([]domain.BloodUnit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sorted(func(u domain.BloodUnit) bool { return u.Status == domain.UnitStatusAvailable }), nil
}

func (s *memUnits) AvailableUnitsOfTypes(_ context.Context, types []domain.BloodType) ([]domain.BloodUnit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	wanted := map[domain.BloodType]bool{}
	for _, t := range types {
		wanted[t] = true
	}
	return s.sorted(func(u domain.BloodUnit) bool {
		return u.Status == domain.UnitStatusAvailable && wanted[u.Type]
	}), nil
}

func (s *memUnits) AllUnits(_ context.Context) ([]domain.BloodUnit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sorted(func(domain.BloodUnit) bool { return true }), nil
}

func (s *memUnits) CountAvailable(_ context.Context, t domain.BloodType) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, u := range s.units {
		if u.Status == domain.UnitStatusAvailable && u.Type == t {
			n++
		}
	}
	return n, nil
}

func (s *memUnits) IssueByIDs(_ context.Context, ids []string, issueType domain.IssueType) ([]domain.BloodUnit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var issued []domain.BloodUnit
	for _, id := range ids {
		u, ok := s.units[id]
		if !ok || u.Status != domain.UnitStatusAvailable {
			continue
		}
		u.Status = domain.UnitStatusIssued
		s.units[id] = u
		s.hist = append(s.hist, domain.Issuance{
			ID: uuid.NewString(), UnitID: id, Type: u.Type,
			IssuedAt: time.Now().UTC(), IssueType: issueType,
		})
		issued = append(issued, u)
	}
	return issued, nil
}

func (s *memUnits) Issuances(_ context.Context) ([]domain.Issuance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Issuance(nil), s.hist...), nil
}

// memAudit is an in-memory ledger store for handler tests.
type memAudit struct {
	mu      sync.Mutex
	hasher  *audit.Hasher
	entries []audit.Entry
}

func (s *memAudit) Append(_ context.Context, e audit.Entry) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
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

func (s *memAudit) Walk(_ context.Context, fn func(audit.Entry) error) error {
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

func (s *memAudit) List(_ context.Context, limit, offset int) ([]audit.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]audit.Entry, 0, limit)
	for i := len(s.entries) - 1 - offset; i >= 0 && len(out) < limit; i-- {
		out = append(out, s.entries[i])
	}
	return out, nil
}

func newTestRouter(t *testing.T) (*gin.Engine, *memUnits, *memAudit) {
	t.Helper()
	hasher := audit.NewHasher("test-pepper-0123456789abcdef")
	auditStore := &memAudit{hasher: hasher}
	ledger := audit.NewLedger(auditStore, hasher,
		audit.WithFailureMode(audit.FailClosed),
		audit.WithMetaExtractor(middleware.GetAuditMeta),
	)
	store := newMemUnits()
	events := domain.NewEventDispatcher()

	server := NewServer(ServerDeps{
		Inventory:   service.NewInventoryService(store, ledger, events),
		Allocation:  service.NewAllocationService(store, domain.DefaultRarityTable(), ledger, events),
		Ledger:      ledger,
		Forecaster:  ml.NewSeasonalForecaster(500, nil),
		Eligibility: ml.NewRuleBasedScreen(),
	})

	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestID(), middleware.ErrorHandler())
	server.RegisterRoutes(router)
	return router, store, auditStore
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func seedUnit(store *memUnits, typeName string, donatedDaysAgo int) domain.BloodUnit {
	t, _ := domain.ParseBloodType(typeName)
	now := time.Now().UTC().Truncate(time.Microsecond)
	u := domain.BloodUnit{
		ID:           uuid.Must(uuid.NewV7()).String(),
		Type:         t,
		DonationDate: now.AddDate(0, 0, -donatedDaysAgo),
		DonorID:      "donor-seed",
		DonorName:    "Seed Donor",
		Status:       domain.UnitStatusAvailable,
		CreatedAt:    now,
	}
	store.units[u.ID] = u
	return u
}

func TestCreateDonation(t *testing.T) {
	router, _, auditStore := newTestRouter(t)

	w := doJSON(t, router, http.MethodPost, "/api/v1/donations", gin.H{
		"abo": "A", "rh": "+", "donor_id": "d-1", "donor_name": "Jamie Rivers",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	var unit domain.BloodUnit
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &unit))
	require.Equal(t, "A+", unit.Type.String())
	require.Equal(t, domain.UnitStatusAvailable, unit.Status)

	require.Len(t, auditStore.entries, 1)
	require.Equal(t, http.MethodPost, auditStore.entries[0].Method, "request metadata reaches the ledger")
	require.Equal(t, "/api/v1/donations", auditStore.entries[0].Path)
}

func TestCreateDonation_BadBloodType(t *testing.T) {
	router, _, _ := newTestRouter(t)

	w := doJSON(t, router, http.MethodPost, "/api/v1/donations", gin.H{
		"abo": "XY", "rh": "+", "donor_name": "Jamie",
	})
	require.Equal(t, http.StatusBadRequest, w.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Equal(t, "INVALID_BLOOD_TYPE", body["code"])
}

func TestSelectRoutine(t *testing.T) {
	router, store, _ := newTestRouter(t)
	seedUnit(store, "A+", 20)
	seedUnit(store, "A+", 10)
	seedUnit(store, "O-", 30)

	w := doJSON(t, router, http.MethodPost, "/api/v1/issue/select", gin.H{
		"blood_type": "A+", "quantity": 4,
	})
	require.Equal(t, http.StatusOK, w.Code)

	var result service.SelectionResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	require.Len(t, result.Chosen, 3, "short one unit")
	require.Equal(t, []domain.Suggestion{{Type: "O-", Count: 1}}, result.Suggestions)
}

func TestSelectRoutine_BadQuantity(t *testing.T) {
	router, _, _ := newTestRouter(t)

	w := doJSON(t, router, http.MethodPost, "/api/v1/issue/select", gin.H{
		"blood_type": "A+", "quantity": 0,
	})
	require.Equal(t, http.StatusBadRequest, w.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Equal(t, "INVALID_QUANTITY", body["code"])
}

func TestConfirmIssue_Replay(t *testing.T) {
	router, store, _ := newTestRouter(t)
	u := seedUnit(store, "B+", 7)

	w := doJSON(t, router, http.MethodPost, "/api/v1/issue/confirm", gin.H{
		"unit_ids": []string{u.ID},
	})
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Count int `json:"count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Equal(t, 1, body.Count)

	w = doJSON(t, router, http.MethodPost, "/api/v1/issue/confirm", gin.H{
		"unit_ids": []string{u.ID},
	})
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Zero(t, body.Count, "replayed confirmation issues nothing")
}

func TestEmergencyIssueAndStock(t *testing.T) {
	router, store, _ := newTestRouter(t)
	seedUnit(store, "O-", 10)
	seedUnit(store, "O-", 5)
	seedUnit(store, "A+", 5)

	w := doJSON(t, router, http.MethodGet, "/api/v1/stock/oneg", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var stock struct {
		Available int `json:"available"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stock))
	require.Equal(t, 2, stock.Available)

	w = doJSON(t, router, http.MethodPost, "/api/v1/issue/emergency", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Count int `json:"count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Equal(t, 2, body.Count)

	w = doJSON(t, router, http.MethodGet, "/api/v1/stock/oneg", nil)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stock))
	require.Zero(t, stock.Available)
}

func TestAuditEndpoints(t *testing.T) {
	router, _, _ := newTestRouter(t)

	for i := 0; i < 3; i++ {
		w := doJSON(t, router, http.MethodPost, "/api/v1/donations", gin.H{
			"abo": "O", "rh": "-", "donor_name": "Donor",
		})
		require.Equal(t, http.StatusCreated, w.Code)
	}

	w := doJSON(t, router, http.MethodGet, "/api/v1/audit-logs?limit=2", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list struct {
		Count int `json:"count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Equal(t, 2, list.Count)

	w = doJSON(t, router, http.MethodPost, "/api/v1/audit-logs/verify", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var report audit.VerifyReport
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &report))
	require.True(t, report.OK)
	require.Equal(t, 3, report.Checked)
}

func TestPredictDemand(t *testing.T) {
	router, _, _ := newTestRouter(t)

	w := doJSON(t, router, http.MethodPost, "/api/v1/ai/demand", gin.H{"month": 7})
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Forecasts []ml.DemandForecast `json:"forecasts"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Forecasts, 8)

	w = doJSON(t, router, http.MethodPost, "/api/v1/ai/demand", gin.H{"month": 13})
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPredictEligibility(t *testing.T) {
	router, _, _ := newTestRouter(t)

	w := doJSON(t, router, http.MethodPost, "/api/v1/ai/eligibility", gin.H{
		"hb_g_dl": 14.0, "age": 30, "bp_systolic": 120, "bp_diastolic": 80,
		"days_since_last_donation": 90,
	})
	require.Equal(t, http.StatusOK, w.Code)
	var result ml.EligibilityResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	require.True(t, result.Eligible)
}

func TestHealthLive(t *testing.T) {
	router, _, _ := newTestRouter(t)
	w := doJSON(t, router, http.MethodGet, "/api/v1/health/live", nil)
	require.Equal(t, http.StatusOK, w.Code)
}
