package notify

import (
	"context"
	"log/slog"
	"sync"
)

// Publisher decouples notification emission from delivery. Emit enqueues
// and returns immediately; a single worker drains the buffer to the sink.
// When the buffer is full the event is dropped and logged, never blocked
// on.
type Publisher struct {
	sink   Sink
	logger *slog.Logger
	inbox  chan Event

	closeOnce sync.Once
	done      chan struct{}
}

func NewPublisher(sink Sink, logger *slog.Logger, buffer int) *Publisher {
	if buffer <= 0 {
		buffer = 64
	}
	p := &Publisher{
		sink:   sink,
		logger: logger,
		inbox:  make(chan Event, buffer),
		done:   make(chan struct{}),
	}
	go p.run()
	return p
}

// Emit enqueues the event. Never blocks, never returns an error to the
// request path.
func (p *Publisher) Emit(ctx context.Context, event Event) {
	select {
	case p.inbox <- event:
	default:
		p.logger.Warn("notification buffer full, dropping event",
			"client_identifier", event.ClientIdentifier)
	}
}

func (p *Publisher) run() {
	for event := range p.inbox {
		if err := p.sink.Notify(context.Background(), event); err != nil {
			p.logger.Error("notification delivery failed",
				"client_identifier", event.ClientIdentifier, "error", err)
		}
	}
	close(p.done)
}

// Close drains buffered events and stops the worker.
func (p *Publisher) Close() {
	p.closeOnce.Do(func() {
		close(p.inbox)
		<-p.done
	})
}
