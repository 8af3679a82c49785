package apperr

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPStatus(t *testing.T) {
	at := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validation", Validation("title", "required"), http.StatusBadRequest},
		{"expired", &ExpiredError{ExpiresAt: &at}, http.StatusGone},
		{"not found wrapped", fmt.Errorf("get: %w", ErrNotFound), http.StatusNotFound},
		{"auth", ErrAuthRequired, http.StatusUnauthorized},
		{"credentials", ErrInvalidCredentials, http.StatusUnauthorized},
		{"forbidden", ErrForbidden, http.StatusForbidden},
		{"conflict", ErrConflict, http.StatusConflict},
		{"rate limited", ErrRateLimited, http.StatusTooManyRequests},
		{"no responses", ErrNoResponses, http.StatusNotFound},
		{"collaborator", &CollaboratorError{Op: "x", StatusCode: 503}, 503},
		{"collaborator transport", &CollaboratorError{Op: "x", Err: errors.New("dial")}, http.StatusBadGateway},
		{"other", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HTTPStatus(tt.err))
		})
	}
}

func TestToBodyHidesInternalErrors(t *testing.T) {
	b := ToBody(errors.New("mongo: connection refused"))
	assert.Equal(t, "internal_error", b.Error)
	assert.Equal(t, "Internal Server Error", b.Message)
}

func TestBodyRoundTrip(t *testing.T) {
	at := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		name  string
		err   error
		check func(t *testing.T, got error)
	}{
		{"expired", &ExpiredError{ExpiresAt: &at, Message: "Closed."}, func(t *testing.T, got error) {
			var ee *ExpiredError
			require.ErrorAs(t, got, &ee)
			assert.True(t, at.Equal(*ee.ExpiresAt))
			assert.Equal(t, "Closed.", ee.Message)
		}},
		{"expired with redirect", &ExpiredError{ExpiresAt: &at, RedirectURL: "https://example.com/next"}, func(t *testing.T, got error) {
			var ee *ExpiredError
			require.ErrorAs(t, got, &ee)
			assert.Equal(t, "https://example.com/next", ee.RedirectURL)
		}},
		{"validation", &ValidationError{Message: "fill in", Missing: []string{"q1"}}, func(t *testing.T, got error) {
			var ve *ValidationError
			require.ErrorAs(t, got, &ve)
			assert.Equal(t, []string{"q1"}, ve.Missing)
		}},
		{"forbidden", ErrForbidden, func(t *testing.T, got error) {
			assert.ErrorIs(t, got, ErrForbidden)
		}},
		{"conflict", ErrConflict, func(t *testing.T, got error) {
			assert.ErrorIs(t, got, ErrConflict)
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body, err := json.Marshal(ToBody(tt.err))
			require.NoError(t, err)
			got := FromStatus("op", HTTPStatus(tt.err), body)
			tt.check(t, got)
			assert.Equal(t, HTTPStatus(tt.err), HTTPStatus(got))
		})
	}
}

func TestFromStatus_LegacyExpirationDate(t *testing.T) {
	err := FromStatus("get", http.StatusGone, []byte(`{"message":"gone","expirationDate":"2030-01-01T00:00:00Z"}`))
	var ee *ExpiredError
	require.ErrorAs(t, err, &ee)
	require.NotNil(t, ee.ExpiresAt)
	assert.Equal(t, 2030, ee.ExpiresAt.Year())
}

func TestFromStatus_PlainTextBody(t *testing.T) {
	err := FromStatus("list", http.StatusInternalServerError, []byte("upstream exploded\n"))
	var ce *CollaboratorError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, 500, ce.StatusCode)
	assert.Equal(t, "upstream exploded", ce.Message)
	assert.Equal(t, "list: status 500: upstream exploded", err.Error())
}

func TestWrapKeepsTaxonomy(t *testing.T) {
	assert.Nil(t, Wrap("x", nil))

	ve := Validation("f", "m")
	assert.Same(t, ve, Wrap("x", ve))

	err := Wrap("submit", errors.New("connection refused"))
	var ce *CollaboratorError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "submit", ce.Op)
	assert.Zero(t, ce.StatusCode)
}
