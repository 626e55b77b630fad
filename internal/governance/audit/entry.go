// Package audit implements the hash-chained audit ledger.
//
// Audit entries are append-only compliance records. Each entry's hash covers
// its own content, the previous entry's hash, and a server-side pepper, so
// any retroactive edit invalidates every later hash. Hard-delete and update
// are NOT allowed.
package audit

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"
)

// Actor types.
const (
	ActorTypeUser    = "User"
	ActorTypeSystem  = "System"
	ActorTypeService = "Service"
)

// Entry is one append-only fact about an action.
type Entry struct {
	ID        int64     `json:"id"`
	Timestamp time.Time `json:"timestamp"`

	ActorID   string `json:"actor_id,omitempty"`
	ActorName string `json:"actor_name,omitempty"`
	ActorType string `json:"actor_type"`

	Action     string `json:"action"`
	EntityName string `json:"entity_name,omitempty"`
	EntityID   string `json:"entity_id,omitempty"`

	// Details is a raw JSON payload. It is persisted byte-exact (TEXT, not
	// JSONB) because the chain hash covers the exact serialized form.
	Details string `json:"details,omitempty"`

	Success bool `json:"success"`

	CorrelationID string `json:"correlation_id,omitempty"`
	IP            string `json:"ip,omitempty"`
	UserAgent     string `json:"user_agent,omitempty"`
	Method        string `json:"method,omitempty"`
	Path          string `json:"path,omitempty"`

	// PrevHash is the hash of the immediately preceding entry, empty for
	// the first entry ever.
	PrevHash string `json:"prev_hash"`
	Hash     string `json:"hash"`
}

// hashPayload is the canonical serialization input. Field order is fixed by
// the struct declaration; changing it changes every hash, so treat this
// layout as part of the ledger's persistent format.
type hashPayload struct {
	Timestamp     string `json:"timestamp"`
	ActorID       string `json:"actor_id"`
	ActorName     string `json:"actor_name"`
	ActorType     string `json:"actor_type"`
	Action        string `json:"action"`
	EntityName    string `json:"entity_name"`
	EntityID      string `json:"entity_id"`
	Details       string `json:"details"`
	Success       bool   `json:"success"`
	CorrelationID string `json:"correlation_id"`
	IP            string `json:"ip"`
	UserAgent     string `json:"user_agent"`
	Method        string `json:"method"`
	Path          string `json:"path"`
	PrevHash      string `json:"prev_hash"`
	Pepper        string `json:"pepper"`
}

// Hasher computes chain hashes with a fixed pepper.
type Hasher struct {
	pepper string
}

// NewHasher creates a Hasher. The pepper must stay stable for the life of
// the ledger or historical verification becomes impossible.
func NewHasher(pepper string) *Hasher {
	return &Hasher{pepper: pepper}
}

// Sum computes the deterministic content hash of an entry given the previous
// entry's hash: sha256 over the canonical JSON form, hex-encoded.
func (h *Hasher) Sum(e Entry, prevHash string) string {
	payload := hashPayload{
		Timestamp:     CanonicalTime(e.Timestamp),
		ActorID:       e.ActorID,
		ActorName:     e.ActorName,
		ActorType:     e.ActorType,
		Action:        e.Action,
		EntityName:    e.EntityName,
		EntityID:      e.EntityID,
		Details:       e.Details,
		Success:       e.Success,
		CorrelationID: e.CorrelationID,
		IP:            e.IP,
		UserAgent:     e.UserAgent,
		Method:        e.Method,
		Path:          e.Path,
		PrevHash:      prevHash,
		Pepper:        h.pepper,
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		// Marshalling a flat struct of strings and a bool cannot fail.
		panic("audit: marshal hash payload: " + err.Error())
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}

// CanonicalTime renders a timestamp in the exact form covered by the hash.
// Truncated to microseconds so the value round-trips through a PostgreSQL
// timestamptz column unchanged.
func CanonicalTime(t time.Time) string {
	return t.UTC().Truncate(time.Microsecond).Format(time.RFC3339Nano)
}

// Now returns the current UTC time at the ledger's canonical precision.
func Now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}
