package validation

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/Carlitic/hackathon-caminas-platform-sub000/internal/core/errors"
)

func TestValidator_Required(t *testing.T) {
	v := NewValidator().Required("message", "  \t")

	require.True(t, v.HasErrors())
	assert.Contains(t, v.Errors().Errors, "message")
	assert.False(t, NewValidator().Required("message", "ayuda").HasErrors())
}

func TestValidator_MaxLengthCountsCharacters(t *testing.T) {
	// Five characters, ten bytes.
	assert.False(t, NewValidator().MaxLength("message", "ñandú", 5).HasErrors())
	assert.False(t, NewValidator().MaxLength("message", "  hola  ", 4).HasErrors())
	assert.True(t, NewValidator().MaxLength("message", "ñandús", 5).HasErrors())
}

func TestValidator_Chains(t *testing.T) {
	v := NewValidator()
	v.Required("message", "").
		MaxLength("message", "", 10).
		Custom("ticketID", false, "Invalid ticket ID")

	assert.Len(t, v.Errors().Errors["message"], 1)
	assert.Equal(t, []string{"Invalid ticket ID"}, v.Errors().Errors["ticketID"])
}

type payload struct {
	Message string `json:"message"`
}

func TestDecodeAndValidate(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"message":"hola"}`))
	got, err := DecodeAndValidate[payload](req)
	require.NoError(t, err)
	assert.Equal(t, "hola", got.Message)

	for _, body := range []string{`{"message":`, `{"message":"x","extra":1}`, ``} {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
		_, err := DecodeAndValidate[payload](req)

		var appErr *apperrors.AppError
		require.True(t, errors.As(err, &appErr), "body %q", body)
		assert.Equal(t, http.StatusBadRequest, appErr.StatusCode)
	}
}
