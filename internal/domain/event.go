package domain

import (
	"encoding/json"
	"time"
)

// EventType defines the type of domain event.
type EventType string

const (
	// Intake events
	EventDonationRecorded EventType = "DONATION_RECORDED"
	EventDonationRejected EventType = "DONATION_REJECTED"

	// Issuance events
	EventRoutineSelected  EventType = "ROUTINE_SELECTED"
	EventUnitsIssued      EventType = "UNITS_ISSUED"
	EventEmergencyIssued  EventType = "EMERGENCY_ISSUED"
	EventEmergencyNoStock EventType = "EMERGENCY_NO_STOCK"

	// Stock signals
	EventShortageDetected EventType = "SHORTAGE_DETECTED"
)

// DomainEvent represents an immutable domain event raised by the core after
// a state change has committed. Consumers must not mutate it.
type DomainEvent struct {
	EventID       string    `json:"event_id"`
	EventType     EventType `json:"event_type"`
	AggregateType string    `json:"aggregate_type"`
	AggregateID   string    `json:"aggregate_id"`
	Payload       []byte    `json:"payload"`
	CreatedBy     string    `json:"created_by"`
	CreatedAt     time.Time `json:"created_at"`
}

// IssuePayload is the payload for UNITS_ISSUED and EMERGENCY_ISSUED events.
type IssuePayload struct {
	UnitIDs   []string `json:"unit_ids"`
	IssueType string   `json:"issue_type"`
	Actor     string   `json:"actor"`
}

// ToJSON converts payload to JSON bytes.
func (p IssuePayload) ToJSON() ([]byte, error) {
	return json.Marshal(p)
}

// DonationPayload is the payload for DONATION_RECORDED events.
type DonationPayload struct {
	UnitID    string `json:"unit_id"`
	BloodType string `json:"blood_type"`
	DonorID   string `json:"donor_id"`
}

// ToJSON converts payload to JSON bytes.
func (p DonationPayload) ToJSON() ([]byte, error) {
	return json.Marshal(p)
}

// RejectionPayload is the payload for DONATION_REJECTED events.
type RejectionPayload struct {
	BloodType string `json:"blood_type"`
	DonorID   string `json:"donor_id"`
	Reason    string `json:"reason"`
}

// ToJSON converts payload to JSON bytes.
func (p RejectionPayload) ToJSON() ([]byte, error) {
	return json.Marshal(p)
}

// SelectionPayload is the payload for ROUTINE_SELECTED events.
type SelectionPayload struct {
	Requested string   `json:"requested"`
	Quantity  int      `json:"quantity"`
	ChosenIDs []string `json:"chosen_ids"`
}

// ToJSON converts payload to JSON bytes.
func (p SelectionPayload) ToJSON() ([]byte, error) {
	return json.Marshal(p)
}

// ShortagePayload is the payload for SHORTAGE_DETECTED events.
type ShortagePayload struct {
	BloodType string `json:"blood_type"`
	Available int    `json:"available"`
	Floor     int    `json:"floor"`
}

// ToJSON converts payload to JSON bytes.
func (p ShortagePayload) ToJSON() ([]byte, error) {
	return json.Marshal(p)
}
