// Package logging builds the process logger and the request logging
// middleware.
package logging

import (
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// New returns a logger writing to stderr. format is "json" or "text";
// unknown levels fall back to info.
func New(format, level string) *logrus.Logger {
	return NewWithOutput(os.Stderr, format, level)
}

// NewWithOutput is New with an explicit sink.
func NewWithOutput(w io.Writer, format, level string) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(w)
	if strings.EqualFold(format, "json") {
		log.SetFormatter(&logrus.JSONFormatter{TimestampFormat: "2006-01-02T15:04:05.000Z07:00"})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	lvl, err := logrus.ParseLevel(level)
	if err != nil || level == "" {
		lvl = logrus.InfoLevel
	}
	log.SetLevel(lvl)
	return log
}

// RequestIDHeader carries the per-request id back to the caller.
const RequestIDHeader = "X-Request-Id"

// Middleware logs one line per request with a generated request id.
// Query strings are not logged; they carry upstream URLs.
func Middleware(log logrus.FieldLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			reqID := r.Header.Get(RequestIDHeader)
			if reqID == "" {
				reqID = uuid.New().String()
			}
			w.Header().Set(RequestIDHeader, reqID)
			rec := &Recorder{ResponseWriter: w, Status: http.StatusOK}
			next.ServeHTTP(rec, r)
			entry := log.WithFields(logrus.Fields{
				"request_id":  reqID,
				"method":      r.Method,
				"path":        r.URL.Path,
				"status":      rec.Status,
				"duration_ms": time.Since(start).Milliseconds(),
			})
			if rec.Status >= 500 {
				entry.Warn("request")
			} else {
				entry.Info("request")
			}
		})
	}
}

// Recorder captures the status code written through it.
type Recorder struct {
	http.ResponseWriter
	Status int
}

func (r *Recorder) WriteHeader(code int) {
	r.Status = code
	r.ResponseWriter.WriteHeader(code)
}
