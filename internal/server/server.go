// Package server exposes the navigation tree to the media server as Plex
// MediaContainer documents.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"github.com/snapetech/tv4play/internal/config"
	"github.com/snapetech/tv4play/internal/logging"
	"github.com/snapetech/tv4play/internal/menu"
	"github.com/snapetech/tv4play/internal/metrics"
	"github.com/snapetech/tv4play/internal/safeurl"
	"github.com/snapetech/tv4play/internal/telemetry"
	"github.com/snapetech/tv4play/internal/thumb"
)

// ResourcesPath is where icon files are served.
const ResourcesPath = "/resources"

// Server serves the plug-in routes, icons, health and metrics.
type Server struct {
	Addr         string
	Site         config.Site
	Builder      *menu.Builder
	ResourcesDir string
	Log          logrus.FieldLogger

	// warm state updated by RecordWarm; read by /healthz.
	healthMu sync.RWMutex
	warmAt   time.Time
	warmErr  error
}

// RecordWarm stores the outcome of the last catalog warm-up.
func (s *Server) RecordWarm(at time.Time, err error) {
	s.healthMu.Lock()
	s.warmAt, s.warmErr = at, err
	s.healthMu.Unlock()
}

func (s *Server) log() logrus.FieldLogger {
	if s.Log == nil {
		return logrus.StandardLogger()
	}
	return s.Log
}

func (s *Server) renderer() menu.Renderer {
	return menu.Renderer{Prefix: s.Site.Prefix, Resources: ResourcesPath}
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(logging.Middleware(s.log()))
	r.Use(telemetry.PanicRecoveryMiddleware)

	r.Get(s.Site.Prefix, s.serveMenu(menu.ActionCategories))
	for _, a := range menu.Actions {
		r.Get(s.Site.Prefix+"/"+string(a), s.serveMenu(a))
	}
	r.Get(s.Site.Prefix+"/thumb", s.serveThumb)
	if s.ResourcesDir != "" {
		r.Handle(ResourcesPath+"/*", http.StripPrefix(ResourcesPath+"/", http.FileServer(http.Dir(s.ResourcesDir))))
	}
	r.Get("/healthz", s.serveHealth)
	r.Handle("/metrics", metrics.Handler())
	return r
}

// Run blocks until ctx is cancelled or the server fails to start. On shutdown it stops
// accepting new connections and waits briefly for in-flight requests to finish.
func (s *Server) Run(ctx context.Context) error {
	addr := s.Addr
	if addr == "" {
		addr = ":32500"
	}
	srv := &http.Server{Addr: addr, Handler: s.Handler(), ReadHeaderTimeout: 10 * time.Second}

	serverErr := make(chan error, 1)
	go func() {
		s.log().WithField("addr", addr).Infof("serving %s at %s", s.Site.Title, s.Site.Prefix)
		serverErr <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErr:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	case <-ctx.Done():
		s.log().Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.log().WithError(err).Warn("shutdown")
		}
		<-serverErr
		return nil
	}
}

func (s *Server) serveMenu(action menu.Action) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		l, err := menu.ParseLink(action, r.URL.Query())
		if err == nil && l.URL != "" && !safeurl.Allowed(l.URL, s.Site.AllowedHosts) {
			err = errors.New("url not allowed: " + l.URL)
		}
		if err != nil {
			s.writeError(w, r, action, http.StatusBadRequest, l.Title, err)
			return
		}
		m, err := s.Builder.Open(r.Context(), l)
		if err != nil {
			s.log().WithError(err).WithField("action", action).Warn("navigation failed")
			telemetry.CaptureError(err, map[string]string{"action": string(action)})
			s.writeError(w, r, action, http.StatusBadGateway, l.Title, err)
			return
		}
		s.writeMenu(w, r, action, http.StatusOK, m)
	}
}

// writeError answers with an empty container so the client still gets a
// well-formed document.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, action menu.Action, status int, title string, err error) {
	w.Header().Set("X-Error", headerSafe(err.Error()))
	s.writeMenu(w, r, action, status, &menu.Menu{
		Title1:    s.Site.Title,
		Title2:    title,
		ViewGroup: s.Site.ViewGroup,
		Art:       s.Site.Art,
	})
}

func (s *Server) writeMenu(w http.ResponseWriter, r *http.Request, action menu.Action, status int, m *menu.Menu) {
	metrics.HTTPRequests.WithLabelValues(string(action), strconv.Itoa(status)).Inc()
	var err error
	if wantsJSON(r) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(status)
		err = s.renderer().WriteJSON(w, m)
	} else {
		w.Header().Set("Content-Type", "application/xml; charset=utf-8")
		w.WriteHeader(status)
		err = s.renderer().WriteXML(w, m)
	}
	if err != nil {
		s.log().WithError(err).Debug("write response")
	}
}

// serveThumb redirects to the icon for name, falling back to parent.
func (s *Server) serveThumb(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	icon := thumb.Resolve(s.Site, q.Get("name"), q.Get("parent"))
	http.Redirect(w, r, ResourcesPath+"/"+icon, http.StatusFound)
}

func (s *Server) serveHealth(w http.ResponseWriter, r *http.Request) {
	s.healthMu.RLock()
	at, werr := s.warmAt, s.warmErr
	s.healthMu.RUnlock()

	body := map[string]interface{}{"status": "ok", "site": s.Site.CatalogURL}
	status := http.StatusOK
	if !at.IsZero() {
		body["last_warm"] = at.Format(time.RFC3339)
	}
	if werr != nil {
		body["status"] = "degraded"
		body["error"] = werr.Error()
		status = http.StatusServiceUnavailable
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func wantsJSON(r *http.Request) bool {
	if f := r.URL.Query().Get("format"); f != "" {
		return strings.EqualFold(f, "json")
	}
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}

func headerSafe(s string) string {
	s = strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f {
			return ' '
		}
		return r
	}, s)
	if len(s) > 200 {
		s = s[:200]
	}
	return s
}
