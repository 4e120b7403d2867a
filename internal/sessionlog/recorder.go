package sessionlog

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var droppedSessions = promauto.NewCounter(prometheus.CounterOpts{
	Name: "memgate_sessionlog_dropped_total",
	Help: "Sessions dropped because the log buffer was full",
})

// Recorder appends sessions off the request path. Record never blocks;
// when the buffer is full the session is dropped and counted against the
// log rather than the caller.
type Recorder struct {
	store  Store
	logger *slog.Logger

	inbox     chan Session
	closeOnce sync.Once
	done      chan struct{}
}

func NewRecorder(store Store, logger *slog.Logger, buffer int) *Recorder {
	r := &Recorder{
		store:  store,
		logger: logger,
		inbox:  make(chan Session, buffer),
		done:   make(chan struct{}),
	}
	go r.run()
	return r
}

// Record enqueues the session, assigning an ID when the caller left it
// zero.
func (r *Recorder) Record(session Session) {
	if session.ID == uuid.Nil {
		session.ID = uuid.New()
	}
	select {
	case r.inbox <- session:
	default:
		droppedSessions.Inc()
		r.logger.Warn("session log buffer full, dropping session",
			"entry_id", session.EntryID, "detected_via", session.DetectedVia)
	}
}

func (r *Recorder) run() {
	defer close(r.done)
	for session := range r.inbox {
		if err := r.store.Append(context.Background(), session); err != nil {
			r.logger.Error("appending session", "entry_id", session.EntryID, "error", err)
		}
	}
}

// Close drains buffered sessions before returning.
func (r *Recorder) Close() {
	r.closeOnce.Do(func() {
		close(r.inbox)
		<-r.done
	})
}
