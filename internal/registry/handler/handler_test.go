package handler

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks Service,SessionReader

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"
	"golang.org/x/crypto/bcrypt"

	dErrors "memgate/pkg/domain-errors"

	"memgate/internal/registry/handler/mocks"
	"memgate/internal/registry/models"
	"memgate/internal/registry/service"
	"memgate/internal/sessionlog"
)

const testAdminKey = "test-admin-key"

type AdminHandlerSuite struct {
	suite.Suite
	ctrl     *gomock.Controller
	service  *mocks.MockService
	sessions *mocks.MockSessionReader
	router   chi.Router
	token    string
}

func TestAdminHandlerSuite(t *testing.T) {
	suite.Run(t, new(AdminHandlerSuite))
}

func (s *AdminHandlerSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.service = mocks.NewMockService(s.ctrl)
	s.sessions = mocks.NewMockSessionReader(s.ctrl)

	keyHash, err := bcrypt.GenerateFromPassword([]byte(testAdminKey), bcrypt.MinCost)
	s.Require().NoError(err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := New(s.service, s.sessions, logger, []byte("test-signing-key"), string(keyHash))
	s.router = h.Routes()
	s.token = s.issueToken()
}

func (s *AdminHandlerSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *AdminHandlerSuite) issueToken() string {
	req := httptest.NewRequest(http.MethodPost, "/token", nil)
	req.Header.Set("X-Admin-Key", testAdminKey)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	s.Require().Equal(http.StatusOK, rec.Code)

	var resp tokenResponse
	s.Require().NoError(json.NewDecoder(rec.Body).Decode(&resp))
	s.Require().NotEmpty(resp.Token)
	return resp.Token
}

func (s *AdminHandlerSuite) do(method, path string, body any) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		s.Require().NoError(err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Authorization", "Bearer "+s.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func testEntry(status models.Status) *models.Entry {
	now := time.Now().UTC()
	return &models.Entry{
		ID:               uuid.New(),
		ClientIdentifier: "claude-code",
		ClientType:       "claude-code",
		Status:           status,
		FirstSeenAt:      now,
		LastSeenAt:       now,
		UpdatedAt:        now,
	}
}

func (s *AdminHandlerSuite) TestTokenExchange() {
	s.Run("missing key rejected", func() {
		req := httptest.NewRequest(http.MethodPost, "/token", nil)
		rec := httptest.NewRecorder()
		s.router.ServeHTTP(rec, req)
		s.Equal(http.StatusUnauthorized, rec.Code)
	})

	s.Run("wrong key rejected", func() {
		req := httptest.NewRequest(http.MethodPost, "/token", nil)
		req.Header.Set("X-Admin-Key", "not-the-key")
		rec := httptest.NewRecorder()
		s.router.ServeHTTP(rec, req)
		s.Equal(http.StatusUnauthorized, rec.Code)
	})

	s.Run("correct key issues token", func() {
		token := s.issueToken()
		s.NotEmpty(token)
	})
}

func (s *AdminHandlerSuite) TestAuthRequired() {
	s.Run("no token", func() {
		req := httptest.NewRequest(http.MethodGet, "/clients", nil)
		rec := httptest.NewRecorder()
		s.router.ServeHTTP(rec, req)
		s.Equal(http.StatusUnauthorized, rec.Code)
	})

	s.Run("malformed token", func() {
		req := httptest.NewRequest(http.MethodGet, "/clients", nil)
		req.Header.Set("Authorization", "Bearer not-a-jwt")
		rec := httptest.NewRecorder()
		s.router.ServeHTTP(rec, req)
		s.Equal(http.StatusUnauthorized, rec.Code)
	})
}

func (s *AdminHandlerSuite) TestListClients() {
	s.Run("passes filter through", func() {
		s.service.EXPECT().
			List(gomock.Any(), models.ListFilter{Status: models.StatusApproved, ClientType: "ollama"}).
			Return([]*models.Entry{testEntry(models.StatusApproved)}, nil)

		rec := s.do(http.MethodGet, "/clients?status=approved&client_type=ollama", nil)
		s.Equal(http.StatusOK, rec.Code)

		var resp clientListResponse
		s.Require().NoError(json.NewDecoder(rec.Body).Decode(&resp))
		s.Equal(1, resp.Total)
	})

	s.Run("unknown status is a bad request", func() {
		rec := s.do(http.MethodGet, "/clients?status=frozen", nil)
		s.Equal(http.StatusBadRequest, rec.Code)
	})
}

func (s *AdminHandlerSuite) TestGetClient() {
	s.Run("found", func() {
		entry := testEntry(models.StatusQuarantined)
		s.service.EXPECT().GetByID(gomock.Any(), entry.ID).Return(entry, nil)

		rec := s.do(http.MethodGet, "/clients/"+entry.ID.String(), nil)
		s.Equal(http.StatusOK, rec.Code)
	})

	s.Run("missing maps to 404", func() {
		id := uuid.New()
		s.service.EXPECT().GetByID(gomock.Any(), id).
			Return(nil, dErrors.New(dErrors.CodeNotFound, "client not found"))

		rec := s.do(http.MethodGet, "/clients/"+id.String(), nil)
		s.Equal(http.StatusNotFound, rec.Code)
	})

	s.Run("bad uuid is a bad request", func() {
		rec := s.do(http.MethodGet, "/clients/not-a-uuid", nil)
		s.Equal(http.StatusBadRequest, rec.Code)
	})
}

func (s *AdminHandlerSuite) TestApproveClient() {
	s.Run("delegates with admin actor", func() {
		entry := testEntry(models.StatusApproved)
		s.service.EXPECT().
			Transition(gomock.Any(), entry.ID, models.StatusApproved, "admin").
			Return(entry, nil)

		rec := s.do(http.MethodPost, "/clients/"+entry.ID.String()+"/approve", nil)
		s.Equal(http.StatusOK, rec.Code)
	})

	s.Run("illegal transition maps to 409", func() {
		id := uuid.New()
		s.service.EXPECT().
			Transition(gomock.Any(), id, models.StatusApproved, "admin").
			Return(nil, dErrors.New(dErrors.CodeInvalidTransition, "cannot transition unknown to approved"))

		rec := s.do(http.MethodPost, "/clients/"+id.String()+"/approve", nil)
		s.Equal(http.StatusConflict, rec.Code)
	})
}

func (s *AdminHandlerSuite) TestBlockClient() {
	entry := testEntry(models.StatusBlocked)
	s.service.EXPECT().
		Transition(gomock.Any(), entry.ID, models.StatusBlocked, "admin").
		Return(entry, nil)

	rec := s.do(http.MethodPost, "/clients/"+entry.ID.String()+"/block", nil)
	s.Equal(http.StatusOK, rec.Code)
}

func (s *AdminHandlerSuite) TestUpdateClient() {
	entry := testEntry(models.StatusApproved)
	newType := "claude-desktop"
	s.service.EXPECT().
		UpdateMetadata(gomock.Any(), entry.ID, service.MetadataUpdate{ClientType: &newType}).
		Return(entry, nil)

	rec := s.do(http.MethodPut, "/clients/"+entry.ID.String(), map[string]string{"client_type": newType})
	s.Equal(http.StatusOK, rec.Code)
}

func (s *AdminHandlerSuite) TestBulkApprove() {
	s.Run("empty ids is a bad request", func() {
		rec := s.do(http.MethodPost, "/quarantine/bulk-approve", map[string][]string{"ids": {}})
		s.Equal(http.StatusBadRequest, rec.Code)
	})

	s.Run("returns approved and skipped", func() {
		ids := []uuid.UUID{uuid.New(), uuid.New()}
		s.service.EXPECT().
			BulkApprove(gomock.Any(), ids, "admin").
			Return(&service.BulkResult{Approved: 1, Skipped: []uuid.UUID{ids[1]}}, nil)

		rec := s.do(http.MethodPost, "/quarantine/bulk-approve", map[string]any{"ids": ids})
		s.Equal(http.StatusOK, rec.Code)
	})
}

func (s *AdminHandlerSuite) TestListQuarantine() {
	s.service.EXPECT().ListQuarantined(gomock.Any()).
		Return([]*models.Entry{testEntry(models.StatusQuarantined)}, nil)

	rec := s.do(http.MethodGet, "/quarantine", nil)
	s.Equal(http.StatusOK, rec.Code)
}

func (s *AdminHandlerSuite) TestListSessions() {
	s.Run("recent sessions with default limit", func() {
		s.sessions.EXPECT().ListRecent(gomock.Any(), 50).Return([]sessionlog.Session{}, nil)

		rec := s.do(http.MethodGet, "/sessions", nil)
		s.Equal(http.StatusOK, rec.Code)
	})

	s.Run("filter by entry", func() {
		entryID := uuid.New()
		s.sessions.EXPECT().ListByEntry(gomock.Any(), entryID, 10).Return([]sessionlog.Session{}, nil)

		rec := s.do(http.MethodGet, "/sessions?entry_id="+entryID.String()+"&limit=10", nil)
		s.Equal(http.StatusOK, rec.Code)
	})

	s.Run("invalid limit is a bad request", func() {
		rec := s.do(http.MethodGet, "/sessions?limit=zero", nil)
		s.Equal(http.StatusBadRequest, rec.Code)
	})
}

func (s *AdminHandlerSuite) TestActivityStats() {
	s.Run("passes window through", func() {
		s.service.EXPECT().Stats(gomock.Any(), 7).
			Return(&service.ActivityStats{WindowDays: 7}, nil)

		rec := s.do(http.MethodGet, "/stats/activity?days=7", nil)
		s.Equal(http.StatusOK, rec.Code)
	})

	s.Run("invalid days is a bad request", func() {
		rec := s.do(http.MethodGet, "/stats/activity?days=-3", nil)
		s.Equal(http.StatusBadRequest, rec.Code)
	})
}
