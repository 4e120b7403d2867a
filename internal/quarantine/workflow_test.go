package quarantine

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/suite"

	"memgate/internal/detect"
	"memgate/internal/notify"
	"memgate/internal/platform/config"
	"memgate/internal/registry/models"
	"memgate/internal/registry/service"
	"memgate/internal/registry/store"
)

type fakeRegistry struct {
	inner   *service.Service
	failing bool
	cached  map[string]models.Status
}

func (f *fakeRegistry) Upsert(ctx context.Context, identity detect.Identity, initialStatus models.Status) (*models.Entry, bool, error) {
	if f.failing {
		return nil, false, errors.New("store unavailable")
	}
	return f.inner.Upsert(ctx, identity, initialStatus)
}

func (f *fakeRegistry) CachedStatus(_ context.Context, identifier string) (models.Status, bool) {
	status, ok := f.cached[identifier]
	return status, ok
}

type capturingNotifier struct {
	events []notify.Event
}

func (n *capturingNotifier) Emit(_ context.Context, event notify.Event) {
	n.events = append(n.events, event)
}

type WorkflowSuite struct {
	suite.Suite
	registry *fakeRegistry
	notifier *capturingNotifier
	ctx      context.Context
}

func TestWorkflowSuite(t *testing.T) {
	suite.Run(t, new(WorkflowSuite))
}

func (s *WorkflowSuite) SetupTest() {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.registry = &fakeRegistry{
		inner:  service.New(store.NewInMemory(), logger),
		cached: map[string]models.Status{},
	}
	s.notifier = &capturingNotifier{}
	s.ctx = context.Background()
}

func (s *WorkflowSuite) workflow(policy config.BlockedPolicy) *Workflow {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(s.registry, s.notifier, logger, policy)
}

func identity(identifier string) detect.Identity {
	return detect.Identity{
		ClientIdentifier: identifier,
		ClientType:       "ollama",
		DetectionMethod:  detect.MethodEndpoint,
		Confidence:       95,
	}
}

func (s *WorkflowSuite) TestFirstSightingQuarantinesAndNotifiesOnce() {
	w := s.workflow(config.BlockedPolicyTag)

	adm := w.Admit(s.ctx, identity("ollama-llama3"))
	s.True(adm.Created)
	s.False(adm.Degraded)
	s.Require().NotNil(adm.Entry)
	s.Equal(string(models.StatusQuarantined), adm.EffectiveStatus)

	s.Require().Len(s.notifier.events, 1)
	event := s.notifier.events[0]
	s.Equal("ollama-llama3", event.ClientIdentifier)
	s.Equal(adm.Entry.ID, event.EntryID)
	s.Equal("endpoint", event.DetectionMethod)
	s.Equal(95, event.Confidence)

	// Second sighting of the same identifier stays silent.
	again := w.Admit(s.ctx, identity("ollama-llama3"))
	s.False(again.Created)
	s.Len(s.notifier.events, 1)
}

func (s *WorkflowSuite) TestExistingStatusCarriesForward() {
	w := s.workflow(config.BlockedPolicyTag)

	first := w.Admit(s.ctx, identity("ollama-llama3"))
	_, err := s.registry.inner.Transition(s.ctx, first.Entry.ID, models.StatusApproved, "admin")
	s.Require().NoError(err)

	adm := w.Admit(s.ctx, identity("ollama-llama3"))
	s.Equal(string(models.StatusApproved), adm.EffectiveStatus)
	s.False(w.ShouldReject(adm))
}

func (s *WorkflowSuite) TestBlockedPolicy() {
	s.Run("tag policy never rejects", func() {
		w := s.workflow(config.BlockedPolicyTag)
		first := w.Admit(s.ctx, identity("ollama-llama3"))
		_, err := s.registry.inner.Transition(s.ctx, first.Entry.ID, models.StatusBlocked, "admin")
		s.Require().NoError(err)

		adm := w.Admit(s.ctx, identity("ollama-llama3"))
		s.Equal(string(models.StatusBlocked), adm.EffectiveStatus)
		s.False(w.ShouldReject(adm))
	})

	s.Run("reject policy rejects blocked clients", func() {
		w := s.workflow(config.BlockedPolicyReject)
		first := w.Admit(s.ctx, identity("ollama-phi3"))
		_, err := s.registry.inner.Transition(s.ctx, first.Entry.ID, models.StatusBlocked, "admin")
		s.Require().NoError(err)

		adm := w.Admit(s.ctx, identity("ollama-phi3"))
		s.True(w.ShouldReject(adm))
	})
}

func (s *WorkflowSuite) TestDegradedMode() {
	s.Run("store failure degrades to unverified", func() {
		s.registry.failing = true
		w := s.workflow(config.BlockedPolicyTag)

		adm := w.Admit(s.ctx, identity("ollama-llama3"))
		s.True(adm.Degraded)
		s.Nil(adm.Entry)
		s.Equal(StatusUnverified, adm.EffectiveStatus)
		s.Empty(s.notifier.events)
	})

	s.Run("cached blocked status still enforced under reject policy", func() {
		s.registry.failing = true
		s.registry.cached["ollama-llama3"] = models.StatusBlocked
		w := s.workflow(config.BlockedPolicyReject)

		adm := w.Admit(s.ctx, identity("ollama-llama3"))
		s.True(adm.Degraded)
		s.Equal(string(models.StatusBlocked), adm.EffectiveStatus)
		s.True(w.ShouldReject(adm))
	})
}
