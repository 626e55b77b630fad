// Package service implements the BECS business operations over the
// repositories and the audit ledger.
package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"bloodbank.io/becs/internal/domain"
	"bloodbank.io/becs/internal/governance/audit"
	apperrors "bloodbank.io/becs/internal/pkg/errors"
	"bloodbank.io/becs/internal/repository"
)

// DonationInput is an intake form submission: separate ABO and Rh codes plus
// donor identity, as the collection desk enters them.
type DonationInput struct {
	ABO          string    `json:"abo"`
	Rh           string    `json:"rh"`
	DonorID      string    `json:"donor_id"`
	DonorName    string    `json:"donor_name"`
	DonationDate time.Time `json:"donation_date"`
}

// InventoryService manages the unit inventory.
type InventoryService struct {
	units  repository.UnitStore
	ledger *audit.Ledger
	events *domain.EventDispatcher
}

// NewInventoryService creates an InventoryService.
func NewInventoryService(units repository.UnitStore, ledger *audit.Ledger, events *domain.EventDispatcher) *InventoryService {
	return &InventoryService{units: units, ledger: ledger, events: events}
}

// AddDonation validates an intake form and records the donated unit. The
// donation date defaults to now and may not lie in the future.
func (s *InventoryService) AddDonation(ctx context.Context, in DonationInput) (domain.BloodUnit, error) {
	bloodType, err := domain.NewBloodType(in.ABO, in.Rh)
	if err != nil {
		s.dispatchRejection(ctx, in, "invalid blood type")
		return domain.BloodUnit{}, apperrors.ErrInvalidBloodTypef(in.ABO + "/" + in.Rh)
	}

	donorName := strings.TrimSpace(in.DonorName)
	if donorName == "" {
		s.dispatchRejection(ctx, in, "donor name missing")
		return domain.BloodUnit{}, apperrors.BadRequest(apperrors.CodeValidationFailed, "donor name is required")
	}

	now := time.Now().UTC()
	donationDate := in.DonationDate.UTC()
	if in.DonationDate.IsZero() {
		donationDate = now
	}
	if donationDate.After(now) {
		s.dispatchRejection(ctx, in, "donation date in the future")
		return domain.BloodUnit{}, apperrors.BadRequest(apperrors.CodeValidationFailed, "donation date may not lie in the future").
			WithParams(map[string]interface{}{"donation_date": donationDate})
	}

	unit := domain.BloodUnit{
		ID:           uuid.Must(uuid.NewV7()).String(),
		Type:         bloodType,
		DonationDate: donationDate,
		DonorID:      strings.TrimSpace(in.DonorID),
		DonorName:    donorName,
		Status:       domain.UnitStatusAvailable,
		CreatedAt:    now,
	}

	if err := s.units.Insert(ctx, unit); err != nil {
		return domain.BloodUnit{}, apperrors.ErrStorageUnavailable(err)
	}

	if err := s.ledger.LogAction(ctx, "donation.recorded", "blood_unit", unit.ID, map[string]interface{}{
		"blood_type": unit.Type.String(),
		"donor_id":   unit.DonorID,
	}, true); err != nil {
		return domain.BloodUnit{}, err
	}

	s.dispatchDonation(ctx, unit)
	return unit, nil
}

// Units returns every unit regardless of status, newest first.
func (s *InventoryService) Units(ctx context.Context) ([]domain.BloodUnit, error) {
	units, err := s.units.AllUnits(ctx)
	if err != nil {
		return nil, apperrors.ErrStorageUnavailable(err)
	}
	return units, nil
}

// AvailableUnits returns the Available units, oldest donation first.
func (s *InventoryService) AvailableUnits(ctx context.Context) ([]domain.BloodUnit, error) {
	units, err := s.units.AvailableUnits(ctx)
	if err != nil {
		return nil, apperrors.ErrStorageUnavailable(err)
	}
	return units, nil
}

// Issuances returns the issuance history, newest first.
func (s *InventoryService) Issuances(ctx context.Context) ([]domain.Issuance, error) {
	history, err := s.units.Issuances(ctx)
	if err != nil {
		return nil, apperrors.ErrStorageUnavailable(err)
	}
	return history, nil
}

func (s *InventoryService) dispatchRejection(ctx context.Context, in DonationInput, reason string) {
	if s.events == nil {
		return
	}
	payload, _ := domain.RejectionPayload{
		BloodType: in.ABO + in.Rh,
		DonorID:   strings.TrimSpace(in.DonorID),
		Reason:    reason,
	}.ToJSON()
	_ = s.events.Dispatch(ctx, &domain.DomainEvent{
		EventID:       uuid.Must(uuid.NewV7()).String(),
		EventType:     domain.EventDonationRejected,
		AggregateType: "donation",
		Payload:       payload,
		CreatedAt:     time.Now().UTC(),
	})
}

func (s *InventoryService) dispatchDonation(ctx context.Context, unit domain.BloodUnit) {
	if s.events == nil {
		return
	}
	payload, _ := domain.DonationPayload{
		UnitID:    unit.ID,
		BloodType: unit.Type.String(),
		DonorID:   unit.DonorID,
	}.ToJSON()
	_ = s.events.Dispatch(ctx, &domain.DomainEvent{
		EventID:       uuid.Must(uuid.NewV7()).String(),
		EventType:     domain.EventDonationRecorded,
		AggregateType: "blood_unit",
		AggregateID:   unit.ID,
		Payload:       payload,
		CreatedAt:     time.Now().UTC(),
	})
}
