// Package domain provides domain models for the BECS core.
//
// Repository and provider methods return domain types, never driver types
// (Anti-Corruption Layer).
package domain

import (
	"fmt"
	"strings"
	"time"
)

// ABOGroup is the ABO classification of a blood type.
type ABOGroup string

// ABO groups.
const (
	ABOGroupO  ABOGroup = "O"
	ABOGroupA  ABOGroup = "A"
	ABOGroupB  ABOGroup = "B"
	ABOGroupAB ABOGroup = "AB"
)

// RhFactor is the Rh antigen marker, independent of ABO.
type RhFactor string

// Rh factors.
const (
	RhPositive RhFactor = "+"
	RhNegative RhFactor = "-"
)

// BloodType is an immutable ABO/Rh pair. Two blood types are equal iff both
// fields match, so the zero-sized comparison operator is the equality check.
type BloodType struct {
	ABO ABOGroup `json:"abo"`
	Rh  RhFactor `json:"rh"`
}

// ONeg is the universal donor type, compatible with all recipients.
var ONeg = BloodType{ABO: ABOGroupO, Rh: RhNegative}

// AllBloodTypes lists the eight ABO/Rh combinations in a stable order.
var AllBloodTypes = []BloodType{
	{ABOGroupO, RhPositive}, {ABOGroupO, RhNegative},
	{ABOGroupA, RhPositive}, {ABOGroupA, RhNegative},
	{ABOGroupB, RhPositive}, {ABOGroupB, RhNegative},
	{ABOGroupAB, RhPositive}, {ABOGroupAB, RhNegative},
}

// String returns the compact composed form, e.g. "AB-".
func (t BloodType) String() string {
	return string(t.ABO) + string(t.Rh)
}

// Valid reports whether both fields hold known values.
func (t BloodType) Valid() bool {
	switch t.ABO {
	case ABOGroupO, ABOGroupA, ABOGroupB, ABOGroupAB:
	default:
		return false
	}
	return t.Rh == RhPositive || t.Rh == RhNegative
}

// ParseBloodType parses the composed form ("O+", "AB-", ...). Input is
// upper-cased and trimmed before matching; anything else is rejected.
func ParseBloodType(s string) (BloodType, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if len(s) < 2 {
		return BloodType{}, fmt.Errorf("blood type %q is malformed", s)
	}
	t := BloodType{
		ABO: ABOGroup(s[:len(s)-1]),
		Rh:  RhFactor(s[len(s)-1:]),
	}
	if !t.Valid() {
		return BloodType{}, fmt.Errorf("blood type %q is malformed", s)
	}
	return t, nil
}

// NewBloodType builds a BloodType from separate ABO and Rh codes as submitted
// by intake forms ("A", "-").
func NewBloodType(abo, rh string) (BloodType, error) {
	t := BloodType{
		ABO: ABOGroup(strings.ToUpper(strings.TrimSpace(abo))),
		Rh:  RhFactor(strings.TrimSpace(rh)),
	}
	if !t.Valid() {
		return BloodType{}, fmt.Errorf("blood type %q/%q is malformed", abo, rh)
	}
	return t, nil
}

// UnitStatus is the lifecycle state of a blood unit.
type UnitStatus string

// Unit lifecycle states. The only transition is Available → Issued; issued
// units are retained for historical queries, never deleted.
const (
	UnitStatusAvailable UnitStatus = "Available"
	UnitStatusIssued    UnitStatus = "Issued"
)

// BloodUnit represents one donated unit.
type BloodUnit struct {
	ID           string     `json:"id"`
	Type         BloodType  `json:"type"`
	DonationDate time.Time  `json:"donation_date"`
	DonorID      string     `json:"donor_id"`
	DonorName    string     `json:"donor_name"`
	Status       UnitStatus `json:"status"`
	CreatedAt    time.Time  `json:"created_at"`
}

// IssueType distinguishes routine from emergency issuance.
type IssueType string

// Issue types.
const (
	IssueTypeRoutine   IssueType = "routine"
	IssueTypeEmergency IssueType = "emergency"
)

// Issuance records one unit leaving stock. It is written in the same
// transaction as the unit's status transition.
type Issuance struct {
	ID        string    `json:"id"`
	UnitID    string    `json:"unit_id"`
	Type      BloodType `json:"type"`
	IssuedAt  time.Time `json:"issued_at"`
	IssueType IssueType `json:"issue_type"`
}

// Suggestion is one ranked alternative offered when stock cannot satisfy a
// routine request: a composed blood type and the number of available units.
type Suggestion struct {
	Type  string `json:"type"`
	Count int    `json:"count"`
}
