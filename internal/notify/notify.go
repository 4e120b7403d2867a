// Package notify delivers quarantine notifications to operators. Delivery
// is fire-and-forget: a failed or slow sink may drop events but can never
// block or fail the request that triggered them.
package notify

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Event describes a newly quarantined identity.
type Event struct {
	EntryID          uuid.UUID `json:"entry_id"`
	ClientIdentifier string    `json:"client_identifier"`
	ClientType       string    `json:"client_type"`
	DetectionMethod  string    `json:"detection_method"`
	Confidence       int       `json:"confidence"`
	ObservedAt       time.Time `json:"observed_at"`
}

// Sink is a notification destination.
type Sink interface {
	Notify(ctx context.Context, event Event) error
}

// LogSink writes notifications to the structured log. Always available;
// the default sink when no broker is configured.
type LogSink struct {
	Logger *slog.Logger
}

func (s *LogSink) Notify(ctx context.Context, event Event) error {
	s.Logger.WarnContext(ctx, "client quarantined, approval required",
		"entry_id", event.EntryID,
		"client_identifier", event.ClientIdentifier,
		"client_type", event.ClientType,
		"detection_method", event.DetectionMethod,
		"confidence", event.Confidence,
		"observed_at", event.ObservedAt,
	)
	return nil
}
