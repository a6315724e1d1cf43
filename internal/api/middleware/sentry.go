package middleware

import (
	"fmt"
	"net/http"

	"github.com/getsentry/sentry-go"
	sentryhttp "github.com/getsentry/sentry-go/http"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

var sentryHandler = sentryhttp.New(sentryhttp.Options{Repanic: true})

// Tracing runs each request in a Sentry transaction. sentryhttp owns the
// hub, panic capture and status; the transaction is then renamed after
// the chi route pattern so /students/{id}/scores is one transaction rather
// than one per student. It is a no-op when Sentry is not initialized.
func Tracing(next http.Handler) http.Handler {
	return sentryHandler.Handle(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r = withPrincipalSlot(r)
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		annotate(r, statusOf(ww))
	}))
}

func annotate(r *http.Request, status int) {
	hub := sentry.GetHubFromContext(r.Context())
	tx := sentry.TransactionFromContext(r.Context())
	if hub == nil || tx == nil {
		return
	}

	if pattern := routePattern(r); pattern != "" {
		tx.Name = r.Method + " " + pattern
		tx.Source = sentry.SourceRoute
	}

	tags := map[string]string{
		"request_id": GetRequestID(r.Context()),
		"principal":  principalOf(r),
	}
	for k, v := range tags {
		if v == "" {
			continue
		}
		tx.SetTag(k, v)
		hub.Scope().SetTag(k, v)
	}

	// Exceptions are captured where they happen; this records upstream
	// failures that only surface as a status.
	if status >= http.StatusInternalServerError {
		hub.CaptureMessage(fmt.Sprintf("HTTP %d: %s", status, http.StatusText(status)))
	}
}

func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		return rctx.RoutePattern()
	}
	return ""
}
