// Package provenance stamps memory writes with an immutable record of who
// produced them. A snapshot is taken at write time and never updated when
// the client's trust state later changes.
package provenance

import (
	"time"

	"memgate/internal/detect"
)

// Snapshot is the provenance record attached to a stored memory. It
// reflects the client at the moment of the write.
type Snapshot struct {
	ClientIdentifier string  `json:"client_identifier"`
	ClientType       string  `json:"client_type"`
	ModelName        string  `json:"model_name,omitempty"`
	ClientVersion    string  `json:"client_version,omitempty"`
	DetectionMethod  string  `json:"detection_method"`
	Confidence       int     `json:"confidence"`
	// RegistryStatus is the trust status at write time, or "unverified"
	// when the registry could not be consulted.
	RegistryStatus string    `json:"registry_status"`
	StampedAt      time.Time `json:"stamped_at"`
}

// Stamp builds the snapshot for a write. Pure: the result is a value copy,
// so later registry transitions cannot reach back into stored memories.
func Stamp(identity detect.Identity, registryStatus string, at time.Time) Snapshot {
	return Snapshot{
		ClientIdentifier: identity.ClientIdentifier,
		ClientType:       identity.ClientType,
		ModelName:        identity.ModelName,
		ClientVersion:    identity.ClientVersion,
		DetectionMethod:  string(identity.DetectionMethod),
		Confidence:       identity.Confidence,
		RegistryStatus:   registryStatus,
		StampedAt:        at.UTC(),
	}
}
