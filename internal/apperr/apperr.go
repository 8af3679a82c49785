// Package apperr holds the error taxonomy shared by the survey core, the
// collaborator client and the HTTP server.
package apperr

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrAuthRequired       = errors.New("authentication required")
	ErrForbidden          = errors.New("forbidden")
	ErrConflict           = errors.New("conflict")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrRateLimited        = errors.New("too many requests")

	ErrSaveInProgress   = errors.New("save already in progress")
	ErrSubmitInProgress = errors.New("submission already in progress")
	ErrNoResponses      = errors.New("no responses to export")
	ErrIndexOutOfRange  = errors.New("question index out of range")
	ErrInvalidState     = errors.New("operation not permitted in current state")
)

// ValidationError is a local failure. It never reaches the network.
type ValidationError struct {
	Field   string   `json:"field,omitempty"`
	Message string   `json:"message"`
	Missing []string `json:"missing,omitempty"` // question IDs of unanswered required questions
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return e.Message
}

// Validation creates a ValidationError for a single field.
func Validation(field, msg string) *ValidationError {
	return &ValidationError{Field: field, Message: msg}
}

// ExpiredError reports a survey that no longer accepts responses.
type ExpiredError struct {
	ExpiresAt   *time.Time
	Message     string
	RedirectURL string
}

func (e *ExpiredError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.ExpiresAt != nil {
		return "survey expired at " + e.ExpiresAt.UTC().Format(time.RFC3339)
	}
	return "survey has expired"
}

// CollaboratorError wraps a failed call to the backend.
type CollaboratorError struct {
	Op         string
	StatusCode int
	Message    string
	Err        error
}

func (e *CollaboratorError) Error() string {
	var b strings.Builder
	b.WriteString(e.Op)
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, ": status %d", e.StatusCode)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	} else if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *CollaboratorError) Unwrap() error {
	return e.Err
}

// Wrap turns a transport-level failure into a CollaboratorError. Errors that
// already carry a taxonomy type pass through untouched.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	var ce *CollaboratorError
	var ve *ValidationError
	var ee *ExpiredError
	if errors.As(err, &ce) || errors.As(err, &ve) || errors.As(err, &ee) {
		return err
	}
	return &CollaboratorError{Op: op, Err: err}
}

// HTTPStatus maps an error to the status code the server answers with.
func HTTPStatus(err error) int {
	var ve *ValidationError
	var ee *ExpiredError
	var ce *CollaboratorError
	switch {
	case err == nil:
		return http.StatusOK
	case errors.As(err, &ve):
		return http.StatusBadRequest
	case errors.As(err, &ee):
		return http.StatusGone
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrAuthRequired), errors.Is(err, ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, ErrNoResponses):
		return http.StatusNotFound
	case errors.As(err, &ce):
		if ce.StatusCode != 0 {
			return ce.StatusCode
		}
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Code is the machine-readable error code placed in JSON error bodies.
func Code(err error) string {
	switch HTTPStatus(err) {
	case http.StatusBadRequest:
		return "validation_error"
	case http.StatusGone:
		return "survey_expired"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusUnauthorized:
		return "unauthorized"
	case http.StatusForbidden:
		return "forbidden"
	case http.StatusConflict:
		return "conflict"
	case http.StatusTooManyRequests:
		return "rate_limited"
	default:
		return "internal_error"
	}
}

// Body is the JSON error envelope used on the wire.
type Body struct {
	Error          string     `json:"error"`
	Message        string     `json:"message"`
	Missing        []string   `json:"missing,omitempty"`
	ExpiresAt      *time.Time `json:"expiresAt,omitempty"`
	ExpirationDate *time.Time `json:"expirationDate,omitempty"`
	RedirectURL    string     `json:"redirectUrl,omitempty"`
}

// ToBody renders err as the JSON error envelope.
func ToBody(err error) Body {
	b := Body{Error: Code(err), Message: err.Error()}
	var ve *ValidationError
	if errors.As(err, &ve) {
		b.Message = ve.Message
		b.Missing = ve.Missing
	}
	var ee *ExpiredError
	if errors.As(err, &ee) {
		b.ExpiresAt = ee.ExpiresAt
		b.RedirectURL = ee.RedirectURL
	}
	if HTTPStatus(err) == http.StatusInternalServerError {
		b.Message = http.StatusText(http.StatusInternalServerError)
	}
	return b
}

// FromStatus rebuilds a typed error from a non-2xx HTTP answer.
func FromStatus(op string, status int, body []byte) error {
	var b Body
	_ = json.Unmarshal(body, &b)
	msg := b.Message
	if msg == "" {
		msg = strings.TrimSpace(string(body))
	}

	switch status {
	case http.StatusGone:
		at := b.ExpiresAt
		if at == nil {
			at = b.ExpirationDate
		}
		return &ExpiredError{ExpiresAt: at, Message: b.Message, RedirectURL: b.RedirectURL}
	case http.StatusBadRequest:
		if b.Error == "validation_error" {
			return &ValidationError{Message: msg, Missing: b.Missing}
		}
	}

	ce := &CollaboratorError{Op: op, StatusCode: status, Message: msg}
	switch status {
	case http.StatusUnauthorized:
		ce.Err = ErrAuthRequired
	case http.StatusNotFound:
		ce.Err = ErrNotFound
	case http.StatusForbidden:
		ce.Err = ErrForbidden
	case http.StatusConflict:
		ce.Err = ErrConflict
	case http.StatusTooManyRequests:
		ce.Err = ErrRateLimited
	}
	return ce
}
