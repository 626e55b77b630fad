package service

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"bloodbank.io/becs/internal/domain"
	"bloodbank.io/becs/internal/governance/audit"
	apperrors "bloodbank.io/becs/internal/pkg/errors"
	"bloodbank.io/becs/internal/repository"
)

// maxSuggestions caps the alternatives offered alongside a routine selection.
const maxSuggestions = 6

// SelectionResult is the outcome of a routine selection: the chosen units in
// issue order plus ranked alternatives from compatible stock.
type SelectionResult struct {
	Requested   string              `json:"requested"`
	Quantity    int                 `json:"quantity"`
	Chosen      []domain.BloodUnit  `json:"chosen"`
	Suggestions []domain.Suggestion `json:"suggestions"`
}

// AllocationService chooses and issues units.
type AllocationService struct {
	units  repository.UnitStore
	rarity domain.RarityTable
	ledger *audit.Ledger
	events *domain.EventDispatcher
}

// NewAllocationService creates an AllocationService. The rarity table orders
// alternatives; pass the deployment's loaded table, not necessarily defaults.
func NewAllocationService(units repository.UnitStore, rarity domain.RarityTable, ledger *audit.Ledger, events *domain.EventDispatcher) *AllocationService {
	if rarity == nil {
		rarity = domain.DefaultRarityTable()
	}
	return &AllocationService{units: units, rarity: rarity, ledger: ledger, events: events}
}

// SelectForRoutine picks up to qty units for a routine request. Exact-type
// units go first, oldest donation first; when those run out, compatible
// alternatives follow, more common types first. No compatible stock at all
// yields an empty selection with no suggestions. Selection does not reserve
// anything; ConfirmIssue performs the transition.
func (s *AllocationService) SelectForRoutine(ctx context.Context, requested domain.BloodType, qty int) (SelectionResult, error) {
	if qty <= 0 {
		return SelectionResult{}, apperrors.ErrInvalidQuantityf(qty)
	}
	if !requested.Valid() {
		return SelectionResult{}, apperrors.ErrInvalidBloodTypef(requested.String())
	}

	result := SelectionResult{Requested: requested.String(), Quantity: qty}

	compatible, err := s.units.AvailableUnitsOfTypes(ctx, domain.CompatibleDonorTypes(requested))
	if err != nil {
		return SelectionResult{}, apperrors.ErrStorageUnavailable(err)
	}
	if len(compatible) == 0 {
		s.logSelection(ctx, result)
		s.dispatchSelection(ctx, result)
		return result, nil
	}

	var exact, alternatives []domain.BloodUnit
	for _, u := range compatible {
		if u.Type == requested {
			exact = append(exact, u)
		} else {
			alternatives = append(alternatives, u)
		}
	}

	// Exact units arrive oldest first from the store. Alternatives rank by
	// how common the type is, then age, then id for determinism.
	sort.SliceStable(alternatives, func(i, j int) bool {
		wi, wj := s.rarity.Weight(alternatives[i].Type), s.rarity.Weight(alternatives[j].Type)
		if wi != wj {
			return wi > wj
		}
		if !alternatives[i].DonationDate.Equal(alternatives[j].DonationDate) {
			return alternatives[i].DonationDate.Before(alternatives[j].DonationDate)
		}
		return alternatives[i].ID < alternatives[j].ID
	})

	for _, u := range exact {
		if len(result.Chosen) == qty {
			break
		}
		result.Chosen = append(result.Chosen, u)
	}
	for _, u := range alternatives {
		if len(result.Chosen) == qty {
			break
		}
		result.Chosen = append(result.Chosen, u)
	}

	// Alternatives are only offered when the request could not be fully met.
	if len(result.Chosen) < qty {
		result.Suggestions = s.suggest(alternatives)
	}

	s.logSelection(ctx, result)
	s.dispatchSelection(ctx, result)
	return result, nil
}

// suggest groups compatible non-exact stock by type and ranks the groups by
// type weight, then stock count, capped at maxSuggestions.
func (s *AllocationService) suggest(alternatives []domain.BloodUnit) []domain.Suggestion {
	counts := map[domain.BloodType]int{}
	for _, u := range alternatives {
		counts[u.Type]++
	}
	out := make([]domain.Suggestion, 0, len(counts))
	for t, n := range counts {
		out = append(out, domain.Suggestion{Type: t.String(), Count: n})
	}
	sort.SliceStable(out, func(i, j int) bool {
		wi, wj := s.rarity[out[i].Type], s.rarity[out[j].Type]
		if wi != wj {
			return wi > wj
		}
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Type < out[j].Type
	})
	if len(out) > maxSuggestions {
		out = out[:maxSuggestions]
	}
	return out
}

// ConfirmIssue transitions the given units to Issued. Unknown and
// already-issued ids are skipped, so replaying a confirmation is harmless.
func (s *AllocationService) ConfirmIssue(ctx context.Context, ids []string, issueType domain.IssueType) ([]domain.BloodUnit, error) {
	if len(ids) == 0 {
		return nil, apperrors.BadRequest(apperrors.CodeValidationFailed, "unit ids are required")
	}
	if issueType != domain.IssueTypeEmergency {
		issueType = domain.IssueTypeRoutine
	}

	issued, err := s.units.IssueByIDs(ctx, ids, issueType)
	if err != nil {
		return nil, apperrors.ErrStorageUnavailable(err)
	}

	issuedIDs := unitIDs(issued)
	if err := s.ledger.LogAction(ctx, "issue.confirmed", "blood_unit", "", map[string]interface{}{
		"requested_ids": ids,
		"issued_ids":    issuedIDs,
		"issue_type":    string(issueType),
	}, true); err != nil {
		return nil, err
	}

	if len(issued) > 0 {
		s.dispatchIssue(ctx, domain.EventUnitsIssued, issuedIDs, issueType)
	}
	return issued, nil
}

// IssueEmergencyONeg issues every available O- unit at once. Empty stock is
// not an error, but it is recorded: an emergency that found nothing is the
// event a review will look for.
func (s *AllocationService) IssueEmergencyONeg(ctx context.Context) ([]domain.BloodUnit, error) {
	available, err := s.units.AvailableUnitsOfTypes(ctx, []domain.BloodType{domain.ONeg})
	if err != nil {
		return nil, apperrors.ErrStorageUnavailable(err)
	}

	if len(available) == 0 {
		if err := s.ledger.LogAction(ctx, "issue.emergency", "blood_unit", "", map[string]interface{}{
			"issued_ids": []string{},
			"no_stock":   true,
		}, false); err != nil {
			return nil, err
		}
		s.dispatchIssue(ctx, domain.EventEmergencyNoStock, nil, domain.IssueTypeEmergency)
		return nil, nil
	}

	issued, err := s.units.IssueByIDs(ctx, unitIDs(available), domain.IssueTypeEmergency)
	if err != nil {
		return nil, apperrors.ErrStorageUnavailable(err)
	}

	issuedIDs := unitIDs(issued)
	if err := s.ledger.LogAction(ctx, "issue.emergency", "blood_unit", "", map[string]interface{}{
		"issued_ids": issuedIDs,
	}, true); err != nil {
		return nil, err
	}
	s.dispatchIssue(ctx, domain.EventEmergencyIssued, issuedIDs, domain.IssueTypeEmergency)
	return issued, nil
}

// CountONeg reports the emergency stock level.
func (s *AllocationService) CountONeg(ctx context.Context) (int, error) {
	n, err := s.units.CountAvailable(ctx, domain.ONeg)
	if err != nil {
		return 0, apperrors.ErrStorageUnavailable(err)
	}
	return n, nil
}

func (s *AllocationService) logSelection(ctx context.Context, result SelectionResult) {
	// Selection mutates nothing; the record is best-effort regardless of the
	// configured failure mode.
	_ = s.ledger.LogAction(ctx, "issue.selected", "blood_unit", "", map[string]interface{}{
		"requested":  result.Requested,
		"quantity":   result.Quantity,
		"chosen_ids": unitIDs(result.Chosen),
	}, true)
}

func (s *AllocationService) dispatchSelection(ctx context.Context, result SelectionResult) {
	if s.events == nil {
		return
	}
	payload, _ := domain.SelectionPayload{
		Requested: result.Requested,
		Quantity:  result.Quantity,
		ChosenIDs: unitIDs(result.Chosen),
	}.ToJSON()
	_ = s.events.Dispatch(ctx, &domain.DomainEvent{
		EventID:       uuid.Must(uuid.NewV7()).String(),
		EventType:     domain.EventRoutineSelected,
		AggregateType: "blood_type",
		AggregateID:   result.Requested,
		Payload:       payload,
		CreatedAt:     time.Now().UTC(),
	})
}

func (s *AllocationService) dispatchIssue(ctx context.Context, eventType domain.EventType, ids []string, issueType domain.IssueType) {
	if s.events == nil {
		return
	}
	payload, _ := domain.IssuePayload{
		UnitIDs:   ids,
		IssueType: string(issueType),
	}.ToJSON()
	_ = s.events.Dispatch(ctx, &domain.DomainEvent{
		EventID:       uuid.Must(uuid.NewV7()).String(),
		EventType:     eventType,
		AggregateType: "blood_unit",
		Payload:       payload,
		CreatedAt:     time.Now().UTC(),
	})
}

func unitIDs(units []domain.BloodUnit) []string {
	ids := make([]string, len(units))
	for i, u := range units {
		ids[i] = u.ID
	}
	return ids
}
