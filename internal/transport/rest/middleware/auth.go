package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"formpulse/internal/apperr"
	"formpulse/internal/service"
)

type principalKey struct{}

var errMissingToken = errors.New("missing authorization header")

// principal is the authenticated creator behind a request.
type principal struct {
	userID string
	token  string
}

// AuthMiddleware resolves creator JWTs from the Authorization header
type AuthMiddleware struct {
	authSvc *service.AuthService
}

// NewAuthMiddleware creates a new auth middleware
func NewAuthMiddleware(authSvc *service.AuthService) *AuthMiddleware {
	return &AuthMiddleware{authSvc: authSvc}
}

// RequireUser rejects requests without a valid, unrevoked token.
func (m *AuthMiddleware) RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, err := m.resolve(r)
		if err != nil {
			writeAuthError(w, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), principalKey{}, p)))
	})
}

// OptionalUser attaches the creator when the token checks out. Requests with
// no token, or a bad one, continue anonymously.
func (m *AuthMiddleware) OptionalUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if p, err := m.resolve(r); err == nil {
			r = r.WithContext(context.WithValue(r.Context(), principalKey{}, p))
		}
		next.ServeHTTP(w, r)
	})
}

func (m *AuthMiddleware) resolve(r *http.Request) (principal, error) {
	token, ok := bearerToken(r.Header.Get("Authorization"))
	if !ok {
		return principal{}, errMissingToken
	}
	claims, err := m.authSvc.ValidateToken(r.Context(), token)
	if err != nil {
		return principal{}, err
	}
	return principal{userID: claims.UserID, token: token}, nil
}

// GetUserID returns the authenticated creator, or "" for anonymous requests.
func GetUserID(ctx context.Context) string {
	p, _ := ctx.Value(principalKey{}).(principal)
	return p.userID
}

// GetToken returns the raw bearer token of an authenticated request.
func GetToken(ctx context.Context) string {
	p, _ := ctx.Value(principalKey{}).(principal)
	return p.token
}

func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// writeAuthError always answers 401; the message tells a missing header from
// a rejected token.
func writeAuthError(w http.ResponseWriter, err error) {
	msg := "invalid or expired token"
	if errors.Is(err, errMissingToken) {
		msg = err.Error()
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(apperr.Body{Error: apperr.Code(apperr.ErrAuthRequired), Message: msg})
}
