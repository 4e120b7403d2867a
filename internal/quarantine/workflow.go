// Package quarantine is the policy layer between detection and the
// registry. It decides what happens to connections whose identity is newly
// seen, carries existing trust state forward, and emits the administrative
// notification for fresh quarantines.
package quarantine

import (
	"context"
	"log/slog"

	"memgate/internal/detect"
	"memgate/internal/notify"
	"memgate/internal/platform/config"
	"memgate/internal/registry/models"
	"memgate/pkg/requestcontext"
)

// Registry is the slice of the registry service the workflow drives.
type Registry interface {
	Upsert(ctx context.Context, identity detect.Identity, initialStatus models.Status) (*models.Entry, bool, error)
	CachedStatus(ctx context.Context, identifier string) (models.Status, bool)
}

// Notifier emits quarantine events without ever blocking.
type Notifier interface {
	Emit(ctx context.Context, event notify.Event)
}

// Admission is the outcome of admitting one resolved identity.
type Admission struct {
	// Entry is nil when the registry was unavailable.
	Entry *models.Entry
	// EffectiveStatus is what provenance gets stamped with: the entry's
	// trust status, or StatusUnverified in degraded mode.
	EffectiveStatus string
	Created         bool
	Degraded        bool
}

// StatusUnverified tags provenance written while registry bookkeeping was
// unavailable. Not a registry state: entries never persist it.
const StatusUnverified = "unverified"

type Workflow struct {
	registry Registry
	notifier Notifier
	logger   *slog.Logger
	policy   config.BlockedPolicy
}

func New(registry Registry, notifier Notifier, logger *slog.Logger, policy config.BlockedPolicy) *Workflow {
	return &Workflow{
		registry: registry,
		notifier: notifier,
		logger:   logger,
		policy:   policy,
	}
}

// Admit records the sighting. A first sighting lands directly in
// quarantined and emits exactly one notification; existing entries carry
// their status forward untouched. Registry failure degrades: the caller's
// memory write proceeds with unverified provenance while the failure is
// logged for reconciliation.
func (w *Workflow) Admit(ctx context.Context, identity detect.Identity) Admission {
	entry, created, err := w.registry.Upsert(ctx, identity, models.StatusQuarantined)
	if err != nil {
		w.logger.ErrorContext(ctx, "registry unavailable, degrading to unverified provenance",
			"client_identifier", identity.ClientIdentifier, "error", err)

		adm := Admission{EffectiveStatus: StatusUnverified, Degraded: true}
		// The cache may still know a blocked client during the outage.
		if status, ok := w.registry.CachedStatus(ctx, identity.ClientIdentifier); ok {
			adm.EffectiveStatus = string(status)
		}
		return adm
	}

	if created {
		w.notifier.Emit(ctx, notify.Event{
			EntryID:          entry.ID,
			ClientIdentifier: entry.ClientIdentifier,
			ClientType:       entry.ClientType,
			DetectionMethod:  string(identity.DetectionMethod),
			Confidence:       identity.Confidence,
			ObservedAt:       requestcontext.Now(ctx),
		})
	}

	return Admission{
		Entry:           entry,
		EffectiveStatus: string(entry.Status),
		Created:         created,
	}
}

// ShouldReject applies the blocked-client policy to an admission. Under
// the default tag policy nothing is ever rejected; provenance records the
// blocked status instead.
func (w *Workflow) ShouldReject(adm Admission) bool {
	return w.policy == config.BlockedPolicyReject &&
		adm.EffectiveStatus == string(models.StatusBlocked)
}
