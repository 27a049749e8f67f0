package http

import (
	"context"
	"errors"
	"fmt"
	stdhttp "net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/Carlitic/hackathon-caminas-platform-sub000/internal/core/errors"
)

func TestErrorHandler_MapsDomainErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"quota", apperrors.NewQuotaExceededError(5, 5), stdhttp.StatusTooManyRequests, "QUOTA_EXCEEDED"},
		{"bare quota sentinel", apperrors.ErrQuotaExceeded, stdhttp.StatusTooManyRequests, "QUOTA_EXCEEDED"},
		{"message required", apperrors.ErrMessageRequired, stdhttp.StatusBadRequest, "VALIDATION_ERROR"},
		{"message too long", fmt.Errorf("create: %w", apperrors.ErrMessageTooLong), stdhttp.StatusBadRequest, "VALIDATION_ERROR"},
		{"team not found", apperrors.ErrTeamNotFound, stdhttp.StatusNotFound, "TEAM_NOT_FOUND"},
		{"ticket not found", apperrors.ErrTicketNotFound, stdhttp.StatusNotFound, "TICKET_NOT_FOUND"},
		{"forbidden", apperrors.ErrForbidden, stdhttp.StatusForbidden, "FORBIDDEN"},
		{"unauthorized", apperrors.ErrUnauthorized, stdhttp.StatusUnauthorized, "UNAUTHORIZED"},
		{"feed", apperrors.ErrFeedUnavailable, stdhttp.StatusServiceUnavailable, "FEED_UNAVAILABLE"},
		{"conflict", apperrors.ErrConflict, stdhttp.StatusConflict, "CONFLICT"},
		{"cancelled", context.Canceled, statusClientClosedRequest, "CANCELLED"},
		{"unknown", errors.New("pq: something odd"), stdhttp.StatusInternalServerError, "INTERNAL_ERROR"},
	}

	handler := NewErrorHandler(discardLogger())

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recorder := httptest.NewRecorder()
			handler.Handle(recorder, httptest.NewRequest(stdhttp.MethodPost, "/wildcards", nil), tt.err)

			require.Equal(t, tt.wantStatus, recorder.Code)
			assert.Equal(t, tt.wantCode, decode[ErrorResponse](t, recorder).Code)
		})
	}
}

func TestErrorHandler_QuotaDetails(t *testing.T) {
	recorder := httptest.NewRecorder()
	NewErrorHandler(discardLogger()).Handle(recorder,
		httptest.NewRequest(stdhttp.MethodPost, "/wildcards", nil),
		apperrors.NewQuotaExceededError(5, 5))

	response := decode[ErrorResponse](t, recorder)
	assert.Equal(t, map[string]interface{}{
		"allowed":   false,
		"used":      float64(5),
		"remaining": float64(0),
		"max":       float64(5),
	}, response.Details)
}

func TestErrorHandler_ValidationErrors(t *testing.T) {
	errs := apperrors.NewValidationErrors()
	errs.Add("message", "This field is required")

	recorder := httptest.NewRecorder()
	NewErrorHandler(discardLogger()).Handle(recorder, httptest.NewRequest(stdhttp.MethodPost, "/wildcards", nil), errs)

	require.Equal(t, stdhttp.StatusUnprocessableEntity, recorder.Code)
	response := decode[ValidationErrorResponse](t, recorder)
	assert.Equal(t, []string{"This field is required"}, response.Fields["message"])
}

func TestHandleError(t *testing.T) {
	handler := NewErrorHandler(discardLogger())
	req := httptest.NewRequest(stdhttp.MethodGet, "/", nil)

	assert.False(t, HandleError(httptest.NewRecorder(), req, nil, handler))
	assert.True(t, HandleError(httptest.NewRecorder(), req, apperrors.ErrForbidden, handler))
}
