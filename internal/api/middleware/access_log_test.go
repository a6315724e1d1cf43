package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestAccessLog(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	logger := zap.New(core)

	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("short and stout"))
	})
	handler := chimw.RealIP(RequestID(AccessLog(logger)(APIKeyAuth(StaticKey{Key: "k", Principal: "ci"})(inner))))

	req := httptest.NewRequest(http.MethodGet, "/students?x=1", nil)
	req.Header.Set("Authorization", "Bearer k")
	req.Header.Set("X-Request-ID", "req-1")
	req.Header.Set("X-Forwarded-For", "10.0.0.1, 10.0.0.2")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, zapcore.WarnLevel, entry.Level)
	fields := entry.ContextMap()
	assert.Equal(t, "GET", fields["method"])
	assert.Equal(t, "/students", fields["path"])
	assert.Equal(t, int64(http.StatusTeapot), fields["status"])
	assert.Equal(t, int64(len("short and stout")), fields["bytes"])
	assert.Equal(t, "req-1", fields["request_id"])
	assert.Equal(t, "ci", fields["principal"])
	assert.Equal(t, "10.0.0.1", fields["remote_addr"])
}

func TestAccessLog_DefaultsStatusToOK(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)

	handler := AccessLog(zap.New(core))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, int64(http.StatusOK), fields["status"])
	assert.Equal(t, "192.0.2.1", fields["remote_addr"])
}

func TestAccessLog_RecordsRoutePattern(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)

	r := chi.NewRouter()
	r.Use(AccessLog(zap.New(core)))
	r.Use(Tracing)
	r.Get("/students/{id}/scores", func(w http.ResponseWriter, r *http.Request) {})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/students/s42/scores", nil))

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "/students/s42/scores", fields["path"])
	assert.Equal(t, "/students/{id}/scores", fields["route"])
}

func TestAccessLog_LevelFollowsStatus(t *testing.T) {
	tests := []struct {
		status int
		level  zapcore.Level
	}{
		{http.StatusOK, zapcore.InfoLevel},
		{http.StatusNotFound, zapcore.WarnLevel},
		{http.StatusBadGateway, zapcore.ErrorLevel},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			core, logs := observer.New(zap.InfoLevel)
			handler := AccessLog(zap.New(core))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))

			handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/scores", nil))

			require.Equal(t, 1, logs.Len())
			assert.Equal(t, tt.level, logs.All()[0].Level)
		})
	}
}

func TestAccessLog_SkipsBelowLevel(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)

	handler := AccessLog(zap.New(core))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Zero(t, logs.Len())
}

func TestAccessLog_IgnoresClientPrincipalHeader(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})
	tests := []struct {
		name    string
		handler func(logger *zap.Logger) http.Handler
		status  int
	}{
		{
			name: "rejected key",
			handler: func(logger *zap.Logger) http.Handler {
				return AccessLog(logger)(APIKeyAuth(StaticKey{Key: "k"})(ok))
			},
			status: http.StatusUnauthorized,
		},
		{
			name: "auth disabled",
			handler: func(logger *zap.Logger) http.Handler {
				return AccessLog(logger)(ok)
			},
			status: http.StatusOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			core, logs := observer.New(zap.InfoLevel)

			req := httptest.NewRequest(http.MethodGet, "/students", nil)
			req.Header.Set("Authorization", "Bearer wrong")
			req.Header.Set("X-Principal", "admin")
			w := httptest.NewRecorder()
			tt.handler(zap.New(core)).ServeHTTP(w, req)

			assert.Equal(t, tt.status, w.Code)
			require.Equal(t, 1, logs.Len())
			assert.NotContains(t, logs.All()[0].ContextMap(), "principal")
		})
	}
}

func TestAccessLog_PrincipalFromAuthBehindTracing(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)

	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})
	handler := Tracing(AccessLog(zap.New(core))(APIKeyAuth(StaticKey{Key: "k", Principal: "ci"})(inner)))

	req := httptest.NewRequest(http.MethodGet, "/students", nil)
	req.Header.Set("X-API-Key", "k")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "ci", logs.All()[0].ContextMap()["principal"])
}
