package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/sirupsen/logrus"

	"github.com/parsarad/konkurbot/internal/models"
	"github.com/parsarad/konkurbot/internal/service"
)

// Server is the read-only ops surface: health, stored rules and the delivery
// audit log. Writes go through the bot commands, not HTTP.
type Server struct {
	svc    *service.Service
	logger *logrus.Logger
	mux    *http.ServeMux
}

// NewServer creates a Server, registers all routes, and returns it.
func NewServer(svc *service.Service, logger *logrus.Logger) *Server {
	s := &Server{svc: svc, logger: logger, mux: http.NewServeMux()}
	s.routes()
	return s
}

// Handler returns the http.Handler that can be passed to http.Server.
func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /healthz", s.handleHealth)
	s.mux.HandleFunc("GET /api/reminders", s.handleGetReminders)
	s.mux.HandleFunc("GET /api/logs", s.handleGetLogs)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

func (s *Server) handleGetReminders(w http.ResponseWriter, r *http.Request) {
	kind := models.ReminderKind(r.URL.Query().Get("kind"))
	if kind == "" {
		kind = models.KindBroadcast
	}

	reminders, err := s.svc.Reminders.ListByKind(r.Context(), kind)
	if err != nil {
		s.fail(w, err)
		return
	}
	s.respond(w, reminders)
}

func (s *Server) handleGetLogs(w http.ResponseWriter, r *http.Request) {
	limit := 100
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 1000 {
			limit = n
		}
	}

	entries, err := s.svc.Logs.ListRecent(r.Context(), limit)
	if err != nil {
		s.fail(w, err)
		return
	}
	s.respond(w, entries)
}

func (s *Server) respond(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Errorf("Failed to encode response: %v", err)
	}
}

func (s *Server) fail(w http.ResponseWriter, err error) {
	s.logger.Errorf("API request failed: %v", err)
	http.Error(w, "internal error", http.StatusInternalServerError)
}
