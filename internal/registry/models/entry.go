package models

import (
	"time"

	"github.com/google/uuid"

	dErrors "memgate/pkg/domain-errors"
)

// Entry is the persistent record for one distinct client identifier.
//
// Invariants:
//   - ClientIdentifier is non-empty and unique across the registry
//   - Status is always a valid Status value
//   - Status changes follow the legal graph (see Status.CanTransitionTo)
//   - FirstSeenAt never changes after creation; LastSeenAt only moves forward
type Entry struct {
	ID                uuid.UUID `json:"id"`
	ClientIdentifier  string    `json:"client_identifier"`
	ClientType        string    `json:"client_type"`
	ModelName         string    `json:"model_name,omitempty"`
	ClientVersion     string    `json:"client_version,omitempty"`
	EndpointPattern   string    `json:"endpoint_pattern,omitempty"`
	Status            Status    `json:"status"`
	AutoApproved      bool      `json:"auto_approved"`
	DefaultConfidence int       `json:"detection_confidence_default"`
	FirstSeenAt       time.Time `json:"first_seen_at"`
	LastSeenAt        time.Time `json:"last_seen_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// NewEntry constructs a registry entry for a first sighting. Status starts
// at unknown; the quarantine workflow decides the persisted status before
// the entry becomes observable.
func NewEntry(identifier, clientType, modelName, clientVersion string, confidence int, now time.Time) (*Entry, error) {
	if identifier == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "client identifier cannot be empty")
	}
	if clientType == "" {
		clientType = "unknown"
	}
	return &Entry{
		ID:                uuid.New(),
		ClientIdentifier:  identifier,
		ClientType:        clientType,
		ModelName:         modelName,
		ClientVersion:     clientVersion,
		Status:            StatusUnknown,
		DefaultConfidence: confidence,
		FirstSeenAt:       now,
		LastSeenAt:        now,
		UpdatedAt:         now,
	}, nil
}

// CanTransition checks whether the entry may move to target. Returns nil
// for a legal edge, a CodeInvalidTransition error otherwise. Same-state is
// rejected here; the service layer treats it as a no-op before asking.
func (e *Entry) CanTransition(target Status) error {
	if !target.IsValid() {
		return dErrors.New(dErrors.CodeBadRequest, "unknown target status")
	}
	if !e.Status.CanTransitionTo(target) {
		return dErrors.New(dErrors.CodeInvalidTransition,
			"cannot transition "+string(e.Status)+" to "+string(target))
	}
	return nil
}

// ApplyTransition moves the entry to target. Must only be called after
// CanTransition returns nil.
func (e *Entry) ApplyTransition(target Status, now time.Time) {
	e.Status = target
	e.UpdatedAt = now
}

// Touch records a sighting without changing trust state.
func (e *Entry) Touch(now time.Time) {
	e.LastSeenAt = now
}
