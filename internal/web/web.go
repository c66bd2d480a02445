package web

import (
	"bytes"
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"gatherbot/internal/config"
	"gatherbot/internal/errdef"
	"gatherbot/internal/ics"
	appLog "gatherbot/internal/log"
	"gatherbot/internal/model"
)

// EventSource is the read side of the scheduling controller.
type EventSource interface {
	Show(name string) (*model.Event, error)
	List() []*model.Event
}

// Server provides a read-only HTTP API over the event store.
type Server struct {
	cfg    *config.Config
	events EventSource
	mux    *http.ServeMux
	now    func() time.Time
}

// NewServer constructs a new Server.
func NewServer(cfg *config.Config, events EventSource) *Server {
	s := &Server{
		cfg:    cfg,
		events: events,
		mux:    http.NewServeMux(),
		now:    time.Now,
	}
	s.registerRoutes()
	return s
}

// Handler returns the underlying http.Handler for this server.
func (s *Server) Handler() http.Handler {
	h := http.Handler(s.mux)
	if s.basicAuthEnabled() {
		appLog.Info("HTTP basic auth enabled", "listen", "http://"+s.cfg.Listen)
		return s.basicAuthMiddleware(h)
	}
	return h
}

// basicAuthEnabled reports whether HTTP Basic Auth is configured.
func (s *Server) basicAuthEnabled() bool {
	if s.cfg == nil || s.cfg.BasicAuth == nil {
		return false
	}
	// Empty username or password means disabled.
	if s.cfg.BasicAuth.Username == "" || s.cfg.BasicAuth.Password == "" {
		return false
	}
	return true
}

// basicAuthMiddleware wraps all handlers except /health with HTTP Basic Auth.
func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	username := s.cfg.BasicAuth.Username
	password := s.cfg.BasicAuth.Password

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, username) || !secureCompare(p, password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="gatherbot", charset="UTF-8"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// secureCompare compares two strings in constant time.
func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// StartServer serves the API on cfg.Listen until ctx is canceled, then shuts
// down gracefully.
func StartServer(ctx context.Context, cfg *config.Config, events EventSource) error {
	s := NewServer(cfg, events)
	srv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+cfg.Listen)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /api/events", s.handleEvents)
	s.mux.HandleFunc("GET /api/events/{name}", s.handleEvent)
	s.mux.HandleFunc("GET /api/events/{name}/ics", s.handleEventICS)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// eventsResponse is the JSON response shape for /api/events.
type eventsResponse struct {
	Events []eventDTO `json:"events"`
}

// eventDTO is a JSON-friendly view of an event. Kind-specific fields are
// omitted for the other kind.
type eventDTO struct {
	Name             string     `json:"name"`
	Kind             model.Kind `json:"kind"`
	CreatorID        string     `json:"creator_id"`
	Description      string     `json:"description,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	ParticipantCount int        `json:"participant_count"`

	TargetMonth  string              `json:"target_month,omitempty"`
	Availability map[string][]string `json:"availability,omitempty"`
	CommonDates  []string            `json:"common_dates,omitempty"`

	ScheduledAt *time.Time `json:"scheduled_at,omitempty"`
	RSVPs       []string   `json:"rsvps,omitempty"`
}

func toDTO(ev *model.Event, detail bool) eventDTO {
	dto := eventDTO{
		Name:             ev.Name,
		Kind:             ev.Kind(),
		CreatorID:        ev.CreatorID,
		Description:      ev.Description,
		CreatedAt:        ev.CreatedAt,
		ParticipantCount: ev.ParticipantCount(),
	}
	switch d := ev.Details.(type) {
	case *model.Poll:
		dto.TargetMonth = d.Month.String()
		if detail {
			dto.Availability = make(map[string][]string, len(d.Participants))
			for _, key := range d.Keys() {
				dto.Availability[key] = dateStrings(d.Dates(key))
			}
			dto.CommonDates = dateStrings(d.Common())
		}
	case *model.RSVP:
		at := d.At
		dto.ScheduledAt = &at
		if detail {
			dto.RSVPs = append([]string{}, d.Participants...)
		}
	}
	return dto
}

func dateStrings(dates []model.Date) []string {
	out := make([]string, 0, len(dates))
	for _, d := range dates {
		out = append(out, d.String())
	}
	return out
}

// handleEvents lists events in creation order.
//
// GET /api/events?kind=availability|scheduled
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	kind := model.Kind(strings.TrimSpace(r.URL.Query().Get("kind")))
	if kind != "" && kind != model.KindAvailability && kind != model.KindScheduled {
		writeError(w, http.StatusBadRequest, "kind must be availability or scheduled")
		return
	}

	resp := eventsResponse{Events: []eventDTO{}}
	for _, ev := range s.events.List() {
		if kind != "" && ev.Kind() != kind {
			continue
		}
		resp.Events = append(resp.Events, toDTO(ev, false))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleEvent(w http.ResponseWriter, r *http.Request) {
	ev, ok := s.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, toDTO(ev, true))
}

func (s *Server) handleEventICS(w http.ResponseWriter, r *http.Request) {
	ev, ok := s.lookup(w, r)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := ics.Write(&buf, s.now(), ev); err != nil {
		appLog.Error("ics export failed", err, "event", ev.Name)
		writeError(w, http.StatusInternalServerError, "failed to export event")
		return
	}
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+ics.Filename(ev.Name)+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) lookup(w http.ResponseWriter, r *http.Request) (*model.Event, bool) {
	ev, err := s.events.Show(r.PathValue("name"))
	if err != nil {
		if errdef.IsNotFound(err) {
			writeError(w, http.StatusNotFound, err.Error())
			return nil, false
		}
		appLog.Error("event lookup failed", err)
		writeError(w, http.StatusInternalServerError, "failed to load event")
		return nil, false
	}
	return ev, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	type errResp struct {
		Error string `json:"error"`
	}
	writeJSON(w, status, errResp{Error: msg})
}
