package notification

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"bloodbank.io/becs/internal/domain"
	"bloodbank.io/becs/internal/pkg/logger"
)

func init() {
	_ = logger.Init("error", "json")
}

type captureSender struct {
	alerts []Alert
}

func (s *captureSender) Send(_ context.Context, alert Alert) error {
	s.alerts = append(s.alerts, alert)
	return nil
}

func dispatcherWithTriggers(sender Sender) *domain.EventDispatcher {
	dispatcher := domain.NewEventDispatcher()
	NewTriggers(sender).Subscribe(dispatcher)
	return dispatcher
}

func TestTriggers_ShortageRaisesWarning(t *testing.T) {
	sender := &captureSender{}
	dispatcher := dispatcherWithTriggers(sender)

	payload, err := domain.ShortagePayload{BloodType: "O-", Available: 1, Floor: 3}.ToJSON()
	require.NoError(t, err)

	err = dispatcher.Dispatch(context.Background(), &domain.DomainEvent{
		EventID:       "evt-1",
		EventType:     domain.EventShortageDetected,
		AggregateType: "blood_type",
		AggregateID:   "O-",
		Payload:       payload,
		CreatedAt:     time.Now(),
	})
	require.NoError(t, err)

	require.Len(t, sender.alerts, 1)
	require.Equal(t, SeverityWarning, sender.alerts[0].Severity)
	require.Contains(t, sender.alerts[0].Message, "1 units of O-")
	require.Equal(t, "O-", sender.alerts[0].ResourceID)
}

func TestTriggers_EmergencyNoStockIsCritical(t *testing.T) {
	sender := &captureSender{}
	dispatcher := dispatcherWithTriggers(sender)

	err := dispatcher.Dispatch(context.Background(), &domain.DomainEvent{
		EventID:     "evt-2",
		EventType:   domain.EventEmergencyNoStock,
		AggregateID: "O-",
		CreatedAt:   time.Now(),
	})
	require.NoError(t, err)

	require.Len(t, sender.alerts, 1)
	require.Equal(t, SeverityCritical, sender.alerts[0].Severity)
}

func TestTriggers_EmergencyIssueCountsUnits(t *testing.T) {
	sender := &captureSender{}
	dispatcher := dispatcherWithTriggers(sender)

	payload, err := domain.IssuePayload{UnitIDs: []string{"a", "b", "c"}, IssueType: "Emergency"}.ToJSON()
	require.NoError(t, err)

	err = dispatcher.Dispatch(context.Background(), &domain.DomainEvent{
		EventID:     "evt-3",
		EventType:   domain.EventEmergencyIssued,
		AggregateID: "O-",
		Payload:     payload,
		CreatedAt:   time.Now(),
	})
	require.NoError(t, err)

	require.Len(t, sender.alerts, 1)
	require.Contains(t, sender.alerts[0].Message, "3 O- units")
}

func TestTriggers_MalformedPayloadFails(t *testing.T) {
	sender := &captureSender{}
	dispatcher := dispatcherWithTriggers(sender)

	err := dispatcher.Dispatch(context.Background(), &domain.DomainEvent{
		EventID:   "evt-4",
		EventType: domain.EventShortageDetected,
		Payload:   []byte("{not json"),
		CreatedAt: time.Now(),
	})
	require.Error(t, err)
	require.Empty(t, sender.alerts)
}

func TestLogSender_RejectsEmptyAlert(t *testing.T) {
	err := NewLogSender().Send(context.Background(), Alert{})
	require.Error(t, err)
}
