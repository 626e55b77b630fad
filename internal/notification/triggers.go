package notification

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"bloodbank.io/becs/internal/domain"
	"bloodbank.io/becs/internal/pkg/logger"
)

// Triggers translates inventory domain events into operator alerts.
// Three trigger points:
//  1. SHORTAGE_DETECTED: stock for a type fell below its floor
//  2. EMERGENCY_NO_STOCK: an emergency request found zero O- units
//  3. EMERGENCY_ISSUED: emergency stock was drained, flag for restock
type Triggers struct {
	sender Sender
}

// NewTriggers creates a new alert trigger service.
func NewTriggers(sender Sender) *Triggers {
	return &Triggers{sender: sender}
}

// Subscribe registers the trigger handlers on the dispatcher.
func (t *Triggers) Subscribe(dispatcher *domain.EventDispatcher) {
	dispatcher.Register(domain.EventShortageDetected, t.onShortageDetected)
	dispatcher.Register(domain.EventEmergencyNoStock, t.onEmergencyNoStock)
	dispatcher.Register(domain.EventEmergencyIssued, t.onEmergencyIssued)
}

func (t *Triggers) onShortageDetected(ctx context.Context, event *domain.DomainEvent) error {
	var payload domain.ShortagePayload
	if err := json.Unmarshal(event.Payload, &payload); err != nil {
		return fmt.Errorf("decode shortage payload: %w", err)
	}

	alert := Alert{
		Severity: SeverityWarning,
		Title:    fmt.Sprintf("Low stock: %s", payload.BloodType),
		Message: fmt.Sprintf("%d units of %s available, floor is %d",
			payload.Available, payload.BloodType, payload.Floor),
		ResourceType: "blood_type",
		ResourceID:   payload.BloodType,
	}

	if err := t.sender.Send(ctx, alert); err != nil {
		logger.Error("failed to send shortage alert",
			zap.String("blood_type", payload.BloodType),
			zap.Error(err),
		)
		return err
	}
	return nil
}

func (t *Triggers) onEmergencyNoStock(ctx context.Context, event *domain.DomainEvent) error {
	alert := Alert{
		Severity:     SeverityCritical,
		Title:        "Emergency request with no O- stock",
		Message:      "An emergency issue request found zero available O- units",
		ResourceType: "blood_type",
		ResourceID:   event.AggregateID,
	}

	if err := t.sender.Send(ctx, alert); err != nil {
		logger.Error("failed to send no-stock alert", zap.Error(err))
		return err
	}
	return nil
}

func (t *Triggers) onEmergencyIssued(ctx context.Context, event *domain.DomainEvent) error {
	var payload domain.IssuePayload
	if err := json.Unmarshal(event.Payload, &payload); err != nil {
		return fmt.Errorf("decode issue payload: %w", err)
	}

	alert := Alert{
		Severity: SeverityWarning,
		Title:    "Emergency issue drained O- stock",
		Message: fmt.Sprintf("%d O- units issued under emergency protocol, restock needed",
			len(payload.UnitIDs)),
		ResourceType: "blood_type",
		ResourceID:   event.AggregateID,
	}

	if err := t.sender.Send(ctx, alert); err != nil {
		logger.Error("failed to send emergency-issue alert", zap.Error(err))
		return err
	}
	return nil
}
