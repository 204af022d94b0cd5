// Package telemetry reports errors and panics to Sentry. With an empty DSN
// every call is a no-op.
package telemetry

import (
	"fmt"
	"net/http"
	"time"

	"github.com/getsentry/sentry-go"
)

// InitSentry initialises the Sentry SDK. An empty dsn disables reporting
// and is not an error.
func InitSentry(dsn, release string) error {
	if dsn == "" {
		return nil
	}
	err := sentry.Init(sentry.ClientOptions{
		Dsn:              dsn,
		Release:          release,
		AttachStacktrace: true,
		Tags:             map[string]string{"service": "tv4play"},
		BeforeSend: func(event *sentry.Event, _ *sentry.EventHint) *sentry.Event {
			return scrub(event)
		},
	})
	if err != nil {
		return fmt.Errorf("sentry init: %w", err)
	}
	return nil
}

// CaptureError sends err with tags. Safe to call when Sentry is disabled.
func CaptureError(err error, tags map[string]string) {
	if err == nil {
		return
	}
	sentry.WithScope(func(scope *sentry.Scope) {
		for k, v := range tags {
			scope.SetTag(k, v)
		}
		sentry.CaptureException(err)
	})
}

// Flush waits briefly for buffered events.
func Flush() {
	sentry.Flush(2 * time.Second)
}

// PanicRecoveryMiddleware reports a handler panic and answers 500.
func PanicRecoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}
			err, ok := rec.(error)
			if !ok {
				err = fmt.Errorf("panic: %v", rec)
			}
			hub := sentry.CurrentHub().Clone()
			hub.Scope().SetRequest(r)
			hub.Scope().SetTag("panic", "true")
			hub.CaptureException(err)
			http.Error(w, "internal server error", http.StatusInternalServerError)
		}()
		next.ServeHTTP(w, r)
	})
}

// Upstream URLs ride in query strings; only the path is reported.
func scrub(event *sentry.Event) *sentry.Event {
	if event == nil {
		return nil
	}
	event.User.IPAddress = ""
	if event.Request != nil {
		event.Request.QueryString = ""
		event.Request.Cookies = ""
		for k := range event.Request.Headers {
			switch k {
			case "Authorization", "Cookie", "X-Plex-Token":
				event.Request.Headers[k] = "[redacted]"
			}
		}
	}
	return event
}
