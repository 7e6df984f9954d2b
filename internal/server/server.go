// Package server exposes the advisor over HTTP for the browser front end.
// Handlers return immutable engine results; the UI never recomputes scores
// or allocations.
package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/quantalpha/advisor-cli/internal/advisor"
	"github.com/quantalpha/advisor-cli/internal/model"
	"github.com/quantalpha/advisor-cli/internal/store"
)

// Options configures the HTTP surface.
type Options struct {
	AllowedOrigins []string
}

// Handler builds the API router.
func Handler(svc *advisor.Service, opts Options) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	s := &api{svc: svc}

	r.Get("/health", s.health)
	r.Route("/api", func(r chi.Router) {
		r.Get("/questions", s.questions)
		r.Post("/assessments", s.createAssessment)
		r.Get("/assessments", s.listAssessments)
		r.Get("/assessments/{id}", s.getAssessment)
		r.Get("/scenarios", s.scenarios)
		r.Get("/portfolio", s.portfolio)
		r.Post("/conversations", s.createConversation)
		r.Post("/conversations/{id}/messages", s.postMessage)
	})

	return r
}

type api struct {
	svc *advisor.Service
}

func (s *api) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *api) questions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.svc.Questions())
}

func (s *api) createAssessment(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Answers model.AnswerSet `json:"answers"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := s.svc.Assess(r.Context(), req.Answers)
	if err != nil {
		// Malformed or incomplete answers are the caller's error.
		writeError(w, http.StatusUnprocessableEntity, eris.Cause(err).Error())
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

func (s *api) listAssessments(w http.ResponseWriter, r *http.Request) {
	assessments, err := s.svc.Store().ListAssessments(r.Context(), listFilter(r))
	if err != nil {
		internalError(w, "list assessments", err)
		return
	}
	writeJSON(w, http.StatusOK, assessments)
}

func (s *api) getAssessment(w http.ResponseWriter, r *http.Request) {
	a, err := s.svc.Store().GetAssessment(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusNotFound, "assessment not found")
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (s *api) scenarios(w http.ResponseWriter, r *http.Request) {
	var selected []string
	if raw := r.URL.Query().Get("regimes"); raw != "" {
		selected = strings.Split(raw, ",")
	}

	view, err := s.svc.Scenarios(selected)
	if err != nil {
		writeError(w, http.StatusBadRequest, eris.Cause(err).Error())
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *api) portfolio(w http.ResponseWriter, r *http.Request) {
	snapshot, err := s.svc.Portfolio(r.Context())
	if err != nil {
		// Degraded, not fatal: the front end renders placeholders.
		zap.L().Warn("portfolio fetch failed", zap.Error(err))
		writeJSON(w, http.StatusOK, map[string]any{"available": false})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"available": true, "snapshot": snapshot})
}

func (s *api) createConversation(w http.ResponseWriter, r *http.Request) {
	conv, err := s.svc.NewConversation(r.Context())
	if err != nil {
		internalError(w, "create conversation", err)
		return
	}
	writeJSON(w, http.StatusCreated, conv)
}

func (s *api) postMessage(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Message string `json:"message"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeError(w, http.StatusBadRequest, "message is required")
		return
	}

	result, err := s.svc.Chat(r.Context(), chi.URLParam(r, "id"), req.Message, nil)
	if err != nil {
		if eris.Is(err, advisor.ErrConversationBusy) {
			writeError(w, http.StatusConflict, "a reply is already being generated for this conversation")
			return
		}
		internalError(w, "chat", err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func listFilter(r *http.Request) store.AssessmentFilter {
	f := store.AssessmentFilter{
		Profile: model.RiskProfileName(r.URL.Query().Get("profile")),
	}
	if limit, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && limit > 0 {
		f.Limit = limit
	}
	return f
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Error("encode response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func internalError(w http.ResponseWriter, op string, err error) {
	zap.L().Error(op+" failed", zap.Error(err))
	writeError(w, http.StatusInternalServerError, "internal error")
}
