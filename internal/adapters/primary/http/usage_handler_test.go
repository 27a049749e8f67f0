package http

import (
	"errors"
	stdhttp "net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	mw "github.com/Carlitic/hackathon-caminas-platform-sub000/internal/adapters/primary/http/middleware"
	"github.com/Carlitic/hackathon-caminas-platform-sub000/internal/core/mocks"
	"github.com/Carlitic/hackathon-caminas-platform-sub000/internal/core/ports"
	"github.com/Carlitic/hackathon-caminas-platform-sub000/internal/core/services"
)

func (f *apiFixture) usageRouter(usage ports.UsageService) *chi.Mux {
	logger := discardLogger()
	identity := services.NewIdentityService(f.store, logger)

	router := chi.NewRouter()
	router.Group(func(r chi.Router) {
		r.Use(mw.JWTMiddleware(f.tm))
		r.Route("/usage", NewUsageHandler(usage, identity, services.NewAuthorizationService(), NewErrorHandler(logger), logger).RegisterRoutes)
	})
	return router
}

func TestUsage_Report(t *testing.T) {
	f := newAPIFixture(t)

	for i := 0; i < 2; i++ {
		recorder := f.do(t, f.student, stdhttp.MethodPost, "/wildcards", CreateWildcardRequest{Message: "stuck on auth"})
		require.Equal(t, stdhttp.StatusCreated, recorder.Code)
	}

	router := f.usageRouter(services.NewUsageService(f.store, f.ledger))
	recorder := doRequest(t, router, f.token(t, f.teacher), stdhttp.MethodGet, "/usage", nil)
	require.Equal(t, stdhttp.StatusOK, recorder.Code, recorder.Body.String())

	response := decode[UsageResponse](t, recorder)
	assert.Equal(t, 5, response.DailyLimit)
	assert.Equal(t, 2, response.Created)
	assert.Equal(t, 2, response.Pending)
	assert.Zero(t, response.ExhaustedTeams)
	require.Len(t, response.Teams, 2)
	assert.Equal(t, f.teamID.String(), response.Teams[0].TeamID)
	assert.Equal(t, 3, response.Teams[0].Remaining)
	assert.Equal(t, 5, response.Teams[1].Remaining)
}

func TestUsage_StudentForbidden(t *testing.T) {
	f := newAPIFixture(t)

	router := f.usageRouter(services.NewUsageService(f.store, f.ledger))
	recorder := doRequest(t, router, f.token(t, f.student), stdhttp.MethodGet, "/usage", nil)
	assert.Equal(t, stdhttp.StatusForbidden, recorder.Code)
}

func TestUsage_RepositoryFailure(t *testing.T) {
	f := newAPIFixture(t)

	repo := mocks.NewMockUsageRepository()
	repo.On("TeamUsageSince", mock.Anything, mock.Anything).Return(nil, errors.New("connection refused"))

	router := f.usageRouter(services.NewUsageService(repo, f.ledger))
	recorder := doRequest(t, router, f.token(t, f.teacher), stdhttp.MethodGet, "/usage", nil)
	assert.Equal(t, stdhttp.StatusInternalServerError, recorder.Code)
}
