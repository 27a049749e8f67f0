package http

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	stdhttp "net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	mw "github.com/Carlitic/hackathon-caminas-platform-sub000/internal/adapters/primary/http/middleware"
	"github.com/Carlitic/hackathon-caminas-platform-sub000/internal/adapters/secondary/feed"
	"github.com/Carlitic/hackathon-caminas-platform-sub000/internal/adapters/secondary/memory"
	"github.com/Carlitic/hackathon-caminas-platform-sub000/internal/auth"
	"github.com/Carlitic/hackathon-caminas-platform-sub000/internal/core/domain"
	"github.com/Carlitic/hackathon-caminas-platform-sub000/internal/core/ports"
	"github.com/Carlitic/hackathon-caminas-platform-sub000/internal/core/services"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// apiFixture wires the real services over the in-memory store.
type apiFixture struct {
	router *chi.Mux
	tm     *auth.TokenManager
	store  *memory.Store
	broker *feed.Broker
	svc    *services.TicketService
	ledger *services.QuotaLedger

	teamID       uuid.UUID
	otherTeamID  uuid.UUID
	student      domain.Viewer
	otherStudent domain.Viewer
	loneStudent  domain.Viewer
	teacher      domain.Viewer
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()

	logger := discardLogger()
	store := memory.NewStore()
	broker := feed.NewBroker(feed.DefaultBufferSize, logger, nil)
	t.Cleanup(broker.Close)

	teamID, otherTeamID := uuid.New(), uuid.New()
	store.AddTeam(teamID, "Los Comodines")
	store.AddTeam(otherTeamID, "Null Pointers")

	f := &apiFixture{
		store:        store,
		broker:       broker,
		tm:           auth.NewTokenManager("test-secret", time.Hour),
		teamID:       teamID,
		otherTeamID:  otherTeamID,
		student:      domain.Viewer{UserID: uuid.New(), Role: domain.RoleStudent, TeamID: &teamID},
		otherStudent: domain.Viewer{UserID: uuid.New(), Role: domain.RoleStudent, TeamID: &otherTeamID},
		loneStudent:  domain.Viewer{UserID: uuid.New(), Role: domain.RoleStudent},
		teacher:      domain.Viewer{UserID: uuid.New(), Role: domain.RoleTeacher},
	}
	for _, v := range []domain.Viewer{f.student, f.otherStudent, f.loneStudent, f.teacher} {
		store.PutViewer(v)
	}

	ledger := services.NewQuotaLedger(store, store, ports.SystemClock, services.QuotaConfig{
		DailyLimit: domain.DefaultDailyLimit,
		Location:   time.UTC,
	}, nil)
	f.ledger = ledger
	f.svc = services.NewTicketService(store, ledger, broker, ports.SystemClock, logger, nil)
	t.Cleanup(f.svc.Shutdown)

	identity := services.NewIdentityService(store, logger)
	authz := services.NewAuthorizationService()
	f.router = newTestRouter(f.tm, f.svc, identity, authz)

	return f
}

func newTestRouter(
	tm *auth.TokenManager,
	svc ports.TicketService,
	identity ports.IdentityService,
	authz ports.AuthorizationService,
) *chi.Mux {
	logger := discardLogger()
	errorHandler := NewErrorHandler(logger)

	router := chi.NewRouter()
	router.Group(func(r chi.Router) {
		r.Use(mw.JWTMiddleware(tm))
		r.Route("/wildcards", NewWildcardHandler(svc, identity, authz, errorHandler, nil, logger).RegisterRoutes)
		r.Route("/me", NewMeHandler(identity, authz, errorHandler, logger).RegisterRoutes)
	})
	return router
}

func (f *apiFixture) token(t *testing.T, viewer domain.Viewer) string {
	t.Helper()
	token, err := f.tm.GenerateToken(viewer.UserID)
	require.NoError(t, err)
	return token
}

func (f *apiFixture) do(t *testing.T, viewer domain.Viewer, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	return doRequest(t, f.router, f.token(t, viewer), method, path, body)
}

func doRequest(t *testing.T, router stdhttp.Handler, token, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = strings.NewReader(b)
	default:
		payload, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}

	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)
	return recorder
}

func decode[T any](t *testing.T, recorder *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(recorder.Body).Decode(&out))
	return out
}
