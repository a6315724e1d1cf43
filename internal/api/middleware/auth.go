package middleware

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"
	"sync"

	"github.com/cloo-solutions/jeeinsight/internal/api"
	"github.com/cloo-solutions/jeeinsight/internal/domain"
)

type contextKey string

const PrincipalKey contextKey = "principal"

const (
	apiKeyHeader     = "X-API-Key"
	defaultPrincipal = "api"
)

type AuthValidator interface {
	ValidateAPIKey(ctx context.Context, token string) (string, error)
}

// StaticKey accepts a single shared key. An empty Key rejects everything.
type StaticKey struct {
	Key       string
	Principal string
}

var (
	errMissingCredentials = domain.NewDomainError(domain.ErrCodeUnauthorized, "missing api key")
	errMalformedAuth      = domain.NewDomainError(domain.ErrCodeUnauthorized, "invalid authorization format")
	errInvalidAPIKey      = domain.NewDomainError(domain.ErrCodeUnauthorized, "invalid api key")
)

func (s StaticKey) ValidateAPIKey(_ context.Context, token string) (string, error) {
	if s.Key == "" || subtle.ConstantTimeCompare([]byte(token), []byte(s.Key)) != 1 {
		return "", errInvalidAPIKey
	}
	if s.Principal == "" {
		return defaultPrincipal, nil
	}
	return s.Principal, nil
}

// APIKeyAuth requires a key as "Authorization: Bearer <key>" or in the
// X-API-Key header, and stores the validated principal on the context.
func APIKeyAuth(validator AuthValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := credentials(r)
			if err == nil {
				var principal string
				if principal, err = validator.ValidateAPIKey(r.Context(), token); err == nil {
					recordPrincipal(r.Context(), principal)
					next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), PrincipalKey, principal)))
					return
				}
				err = errInvalidAPIKey
			}

			w.Header().Set("WWW-Authenticate", `Bearer realm="jeeinsight"`)
			api.HandleError(w, err)
		})
	}
}

func credentials(r *http.Request) (string, error) {
	if header := r.Header.Get("Authorization"); header != "" {
		scheme, token, ok := strings.Cut(header, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
			return "", errMalformedAuth
		}
		return strings.TrimSpace(token), nil
	}
	if key := r.Header.Get(apiKeyHeader); key != "" {
		return key, nil
	}
	return "", errMissingCredentials
}

func GetPrincipal(ctx context.Context) string {
	principal, _ := ctx.Value(PrincipalKey).(string)
	return principal
}

// principalSlot carries the principal back to outer middleware, which only
// see the request context they created. Request headers are never trusted
// for this.
type principalSlot struct {
	mu    sync.Mutex
	value string
}

type principalSlotKey struct{}

// withPrincipalSlot gives r a slot for APIKeyAuth to fill, unless an outer
// middleware already installed one.
func withPrincipalSlot(r *http.Request) *http.Request {
	if _, ok := r.Context().Value(principalSlotKey{}).(*principalSlot); ok {
		return r
	}
	return r.WithContext(context.WithValue(r.Context(), principalSlotKey{}, &principalSlot{}))
}

func recordPrincipal(ctx context.Context, principal string) {
	if slot, ok := ctx.Value(principalSlotKey{}).(*principalSlot); ok {
		slot.mu.Lock()
		slot.value = principal
		slot.mu.Unlock()
	}
}

func principalOf(r *http.Request) string {
	if principal := GetPrincipal(r.Context()); principal != "" {
		return principal
	}
	slot, ok := r.Context().Value(principalSlotKey{}).(*principalSlot)
	if !ok {
		return ""
	}
	slot.mu.Lock()
	defer slot.mu.Unlock()
	return slot.value
}
