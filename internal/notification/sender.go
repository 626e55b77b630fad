// Package notification delivers operational alerts raised by inventory
// events. V1 ships a structured-log sink only; push channels (email,
// webhook, pager) slot in behind the same Sender interface later.
package notification

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"bloodbank.io/becs/internal/pkg/logger"
)

// Severity classifies how urgently an alert needs eyes on it.
type Severity string

const (
	SeverityInfo     Severity = "INFO"
	SeverityWarning  Severity = "WARNING"
	SeverityCritical Severity = "CRITICAL"
)

// Alert holds the required fields for a single operational alert.
type Alert struct {
	Severity     Severity
	Title        string // Human-readable title
	Message      string // Body text
	ResourceType string // e.g. "blood_type", "blood_unit"
	ResourceID   string // ID of the related resource for navigation
}

// Sender defines the interface for delivering alerts.
// V1: Only LogSender. V2+: Add EmailSender, WebhookSender.
type Sender interface {
	Send(ctx context.Context, alert Alert) error
}

// LogSender is the V1 implementation that emits alerts through the
// structured logger at a level matching the alert severity.
type LogSender struct{}

// NewLogSender creates a new log-backed sender.
func NewLogSender() *LogSender {
	return &LogSender{}
}

// Send emits a single alert.
func (s *LogSender) Send(_ context.Context, alert Alert) error {
	if err := validateAlert(alert); err != nil {
		return fmt.Errorf("alert invalid: %w", err)
	}

	fields := []zap.Field{
		zap.String("severity", string(alert.Severity)),
		zap.String("title", alert.Title),
		zap.String("message", alert.Message),
		zap.String("resource_type", alert.ResourceType),
		zap.String("resource_id", alert.ResourceID),
	}

	switch alert.Severity {
	case SeverityCritical:
		logger.Error("ALERT", fields...)
	case SeverityWarning:
		logger.Warn("ALERT", fields...)
	default:
		logger.Info("ALERT", fields...)
	}
	return nil
}

// compile-time check
var _ Sender = (*LogSender)(nil)

func validateAlert(a Alert) error {
	if a.Title == "" {
		return fmt.Errorf("title is required")
	}
	if a.Message == "" {
		return fmt.Errorf("message is required")
	}
	return nil
}
