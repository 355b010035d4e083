package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"

	"github.com/MikeSquared-Agency/scribe/internal/archive"
	"github.com/MikeSquared-Agency/scribe/internal/chat"
	"github.com/MikeSquared-Agency/scribe/internal/risk"
)

// Server exposes the archived days over HTTP for the review dashboard.
type Server struct {
	router   *chi.Mux
	port     int
	archive  *archive.Archive
	reviewer *risk.Reviewer

	reviewMu sync.Mutex // serialises read-modify-write of day files
}

func NewServer(port int, a *archive.Archive, reviewer *risk.Reviewer) *Server {
	router := chi.NewRouter()
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)

	s := &Server{
		router:   router,
		port:     port,
		archive:  a,
		reviewer: reviewer,
	}

	router.Get("/health", s.health)
	router.Get("/api/meta", s.meta)
	router.Get("/api/sessions", s.sessions)
	router.Post("/api/review", s.review)

	return s
}

// Handler returns the router wrapped for cross-origin dashboard access.
func (s *Server) Handler() http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"*"},
	})
	return c.Handler(s.router)
}

func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.port)
	slog.Info("API server starting", "addr", addr, "data_dir", s.archive.Dir())
	return http.ListenAndServe(addr, s.Handler())
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) meta(w http.ResponseWriter, r *http.Request) {
	dates, err := s.archive.Dates()
	if err != nil {
		slog.Error("failed to list archive", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string][]string{"dates": {}})
		return
	}
	writeJSON(w, http.StatusOK, map[string][]string{"dates": dates})
}

// sessions returns the conversations of ?date=. A missing date or an
// unarchived day yields an empty list; so does a read failure, with a 500.
func (s *Server) sessions(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")
	if date == "" {
		writeJSON(w, http.StatusOK, []chat.Conversation{})
		return
	}

	convs, err := s.archive.Read(date)
	switch {
	case errors.Is(err, archive.ErrInvalidDate):
		writeJSON(w, http.StatusBadRequest, []chat.Conversation{})
		return
	case errors.Is(err, os.ErrNotExist):
		writeJSON(w, http.StatusOK, []chat.Conversation{})
		return
	case err != nil:
		slog.Error("failed to read day", "date", date, "error", err)
		writeJSON(w, http.StatusInternalServerError, []chat.Conversation{})
		return
	}
	if convs == nil {
		convs = []chat.Conversation{}
	}
	writeJSON(w, http.StatusOK, convs)
}

type reviewRequest struct {
	ID     any    `json:"id"` // string or number
	Action string `json:"action"`
	Date   string `json:"date"`
}

type reviewResponse struct {
	Status   string         `json:"status"`
	Msg      string         `json:"msg"`
	Analysis *chat.Analysis `json:"ai_analysis,omitempty"`
}

// review applies a review action to one archived conversation.
func (s *Server) review(w http.ResponseWriter, r *http.Request) {
	var req reviewRequest
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	if err := dec.Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, reviewResponse{Status: "error", Msg: "invalid request body"})
		return
	}
	if req.Date == "" {
		writeJSON(w, http.StatusBadRequest, reviewResponse{Status: "error", Msg: "missing date"})
		return
	}
	if req.ID == nil {
		writeJSON(w, http.StatusBadRequest, reviewResponse{Status: "error", Msg: "missing id"})
		return
	}
	action, err := risk.ParseAction(req.Action)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, reviewResponse{Status: "error", Msg: err.Error()})
		return
	}

	s.reviewMu.Lock()
	analysis, err := s.reviewer.Review(req.Date, fmt.Sprint(req.ID), action)
	s.reviewMu.Unlock()

	switch {
	case errors.Is(err, archive.ErrInvalidDate):
		writeJSON(w, http.StatusBadRequest, reviewResponse{Status: "error", Msg: err.Error()})
	case errors.Is(err, os.ErrNotExist):
		writeJSON(w, http.StatusNotFound, reviewResponse{Status: "error", Msg: "no archive for " + req.Date})
	case errors.Is(err, risk.ErrConversationNotFound):
		writeJSON(w, http.StatusNotFound, reviewResponse{Status: "error", Msg: err.Error()})
	case err != nil:
		slog.Error("review failed", "date", req.Date, "id", req.ID, "error", err)
		writeJSON(w, http.StatusInternalServerError, reviewResponse{Status: "error", Msg: "failed to save review"})
	default:
		writeJSON(w, http.StatusOK, reviewResponse{Status: "success", Msg: "saved", Analysis: &analysis})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
