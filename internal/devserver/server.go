// Package devserver is an in-memory stand-in for the check-in backend, used
// for local runs and end-to-end tests.
package devserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"checkin-companion/internal/models"
	"checkin-companion/internal/presenter"
)

const (
	maxPhotoSize = 10 << 20

	messageNoSuchParticipant = "No such participant."
)

// Server serves the check-in API from a fixture
type Server struct {
	mu       sync.Mutex
	sessions []models.InfoSession
	events   []models.Event
	records  []*Record
	token    string
	now      func() time.Time
	log      zerolog.Logger
}

// Option configures a Server
type Option func(*Server)

// WithToken requires "Authorization: Bearer <token>" on every request
func WithToken(token string) Option {
	return func(s *Server) { s.token = token }
}

// WithClock overrides the time source for check-in timestamps
func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

// WithLogger sets the request logger
func WithLogger(log zerolog.Logger) Option {
	return func(s *Server) { s.log = log }
}

// New creates a server seeded with a copy of f
func New(f Fixture, opts ...Option) *Server {
	s := &Server{
		sessions: append([]models.InfoSession(nil), f.Sessions...),
		events:   append([]models.Event(nil), f.Events...),
		now:      time.Now,
		log:      zerolog.Nop(),
	}
	for i := range f.Participants {
		r := f.Participants[i]
		r.Events = append([]int64(nil), r.Events...)
		r.VisitedEvents = append([]int64(nil), r.VisitedEvents...)
		s.records = append(s.records, &r)
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Routes returns the API mounted under /api
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Route("/api", func(r chi.Router) {
		r.Use(s.authenticate)
		r.Get("/lionsgate/infosessions", s.handleInfoSessions)
		r.Get("/events", s.handleEvents)
		r.Get("/events/{id}", s.handleEvent)
		r.Get("/session-data", s.handleSessionData)
		r.Put("/validate-invitation", s.handleValidateInvitation)
		r.Put("/validate-event-invitation", s.handleValidateEventInvitation)
		r.Put("/manual-checking", s.handleManualCheckIn)
		r.Get("/profile-data", s.handleProfile)
		r.Post("/session-photo", s.handlePhoto)
	})
	return r
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Msg("Request served")
	})
}

func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.token != "" && r.Header.Get("Authorization") != "Bearer "+s.token {
			writeMessage(w, http.StatusUnauthorized, "Unauthenticated.")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleInfoSessions(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	infos := append([]models.InfoSession{}, s.sessions...)
	writeJSON(w, http.StatusOK, map[string]any{"infos": infos})
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	writeJSON(w, http.StatusOK, append([]models.Event{}, s.events...))
}

func (s *Server) handleEvent(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid event id.")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	event, ok := s.findEvent(id)
	if !ok {
		writeMessage(w, http.StatusNotFound, "Event not found.")
		return
	}
	participants := make([]models.Participant, 0)
	for _, rec := range s.records {
		if rec.inEvent(id) {
			participants = append(participants, rec.participant(rec.visitedEvent(id)))
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"event":        event,
		"participants": participants,
	})
}

func (s *Server) handleSessionData(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.URL.Query().Get("id"), 10, 64)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid session id.")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.findSession(id)
	if !ok {
		writeMessage(w, http.StatusNotFound, "Session not found.")
		return
	}
	participants := make([]models.Participant, 0)
	attended := make([]models.Participant, 0)
	for _, rec := range s.records {
		if rec.Session != id {
			continue
		}
		p := rec.participant(rec.Visited)
		participants = append(participants, p)
		if rec.Visited {
			attended = append(attended, p)
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"session": map[string]any{
			"id":        session.ID,
			"formation": session.Formation,
			"name":      session.Name,
		},
		"participants": participants,
		"attended":     attended,
	})
}

type validationRequest struct {
	Code      string `json:"code"`
	Email     string `json:"email"`
	ID        string `json:"id"`
	SessionID *int64 `json:"sessionId"`
	EventID   *int64 `json:"eventId"`
}

func (v validationRequest) target(numeric *int64) (int64, error) {
	if id, err := strconv.ParseInt(v.ID, 10, 64); err == nil {
		return id, nil
	}
	if numeric != nil {
		return *numeric, nil
	}
	return 0, errors.New("missing target id")
}

func (s *Server) handleValidateInvitation(w http.ResponseWriter, r *http.Request) {
	var req validationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Malformed request.")
		return
	}
	sessionID, err := req.target(req.SessionID)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "Missing session id.")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.findSession(sessionID); !ok {
		writeMessage(w, http.StatusNotFound, "Session not found.")
		return
	}
	rec := s.findCredential(req.Email, req.Code)
	switch {
	case rec == nil:
		writeMessage(w, http.StatusOK, messageNoSuchParticipant)
	case rec.Session != sessionID:
		writeMessage(w, http.StatusOK, presenter.MessageWrongGroup)
	case rec.Visited:
		writeMessage(w, http.StatusOK, presenter.MessageAlreadyParticipated)
	default:
		rec.Visited = true
		rec.UpdatedAt = models.Timestamp{Time: s.now().UTC()}
		s.log.Info().Int64("participant_id", rec.ID).Int64("session_id", sessionID).Msg("Participant checked in")
		writeJSON(w, http.StatusOK, map[string]any{
			"message": presenter.MessageMatched,
			"profile": map[string]any{"id": rec.ID},
		})
	}
}

func (s *Server) handleValidateEventInvitation(w http.ResponseWriter, r *http.Request) {
	var req validationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Malformed request.")
		return
	}
	eventID, err := req.target(req.EventID)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "Missing event id.")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.findEvent(eventID); !ok {
		writeMessage(w, http.StatusNotFound, "Event not found.")
		return
	}
	rec := s.findCredential(req.Email, req.Code)
	switch {
	case rec == nil:
		writeMessage(w, http.StatusOK, messageNoSuchParticipant)
	case !rec.inEvent(eventID):
		writeMessage(w, http.StatusOK, presenter.MessageWrongGroup)
	case rec.visitedEvent(eventID):
		writeMessage(w, http.StatusOK, presenter.MessageAlreadyParticipated)
	default:
		rec.VisitedEvents = append(rec.VisitedEvents, eventID)
		rec.UpdatedAt = models.Timestamp{Time: s.now().UTC()}
		s.log.Info().Int64("participant_id", rec.ID).Int64("event_id", eventID).Msg("Participant checked in")
		writeMessage(w, http.StatusOK, presenter.MessageMatched)
	}
}

func (s *Server) handleManualCheckIn(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Malformed request.")
		return
	}
	id, err := strconv.ParseInt(req.ID, 10, 64)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid participant id.")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec := s.findRecord(id)
	if rec == nil {
		writeMessage(w, http.StatusNotFound, "Participant not found.")
		return
	}
	if !rec.Visited {
		rec.Visited = true
		rec.UpdatedAt = models.Timestamp{Time: s.now().UTC()}
		s.log.Info().Int64("participant_id", id).Msg("Participant checked in manually")
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": http.StatusOK})
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.URL.Query().Get("id"), 10, 64)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid participant id.")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec := s.findRecord(id)
	if rec == nil {
		writeMessage(w, http.StatusNotFound, "Participant not found.")
		return
	}
	writeJSON(w, http.StatusOK, rec.profile())
}

func (s *Server) handlePhoto(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxPhotoSize); err != nil {
		writeMessage(w, http.StatusBadRequest, "Malformed upload.")
		return
	}
	id, err := strconv.ParseInt(r.FormValue("id"), 10, 64)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid participant id.")
		return
	}
	file, header, err := r.FormFile("photo")
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "Missing photo.")
		return
	}
	defer file.Close()
	size, err := io.Copy(io.Discard, file)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "Unreadable photo.")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec := s.findRecord(id)
	if rec == nil {
		writeMessage(w, http.StatusNotFound, "Participant not found.")
		return
	}
	rec.Image = fmt.Sprintf("%d-%s", id, header.Filename)
	rec.UpdatedAt = models.Timestamp{Time: s.now().UTC()}
	s.log.Info().Int64("participant_id", id).Int64("bytes", size).Msg("Photo uploaded")
	writeJSON(w, http.StatusOK, map[string]any{"profile": rec.profile()})
}

func (s *Server) findSession(id int64) (models.InfoSession, bool) {
	for _, session := range s.sessions {
		if session.ID == id {
			return session, true
		}
	}
	return models.InfoSession{}, false
}

func (s *Server) findEvent(id int64) (models.Event, bool) {
	for _, event := range s.events {
		if event.ID == id {
			return event, true
		}
	}
	return models.Event{}, false
}

func (s *Server) findRecord(id int64) *Record {
	for _, rec := range s.records {
		if rec.ID == id {
			return rec
		}
	}
	return nil
}

func (s *Server) findCredential(email, code string) *Record {
	for _, rec := range s.records {
		if strings.EqualFold(rec.Email, email) && rec.Code == code {
			return rec
		}
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"message": msg})
}
