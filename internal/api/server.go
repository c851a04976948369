// Package api exposes the question-answering pipeline over HTTP.
package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/bull/migration-kb/internal/answer"
	"github.com/bull/migration-kb/internal/config"
	"github.com/bull/migration-kb/internal/retrieval"
	"github.com/bull/migration-kb/internal/storage"
)

// Retriever is the retrieval slice the handlers depend on.
type Retriever interface {
	Retrieve(ctx context.Context, query string, profile retrieval.Profile) ([]*storage.ScoredChunk, error)
}

// Composer is the answer-composition slice the handlers depend on.
type Composer interface {
	Compose(ctx context.Context, question string, passages []*storage.ScoredChunk) (*answer.Response, error)
}

// HealthChecker reports backing-store connectivity.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// Server holds handler dependencies.
type Server struct {
	log       *slog.Logger
	cfg       *config.Server
	retriever Retriever
	composer  Composer
	health    HealthChecker
}

// NewServer wires the HTTP layer to its collaborators.
func NewServer(cfg *config.Server, retriever Retriever, composer Composer, health HealthChecker, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{
		log:       log,
		cfg:       cfg,
		retriever: retriever,
		composer:  composer,
		health:    health,
	}
}

// Router builds the chi router with all endpoints mounted.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Post("/api/ask", s.handleAsk)
	r.Post("/api/search", s.handleSearch)
	r.Get("/api/reindex", s.handleReindex)
	r.Get("/health", s.handleHealth)

	return r
}

func (s *Server) searchProfile(k int) retrieval.Profile {
	if k <= 0 || k > 50 {
		k = s.cfg.SearchMatchCount
	}
	return retrieval.Profile{K: k, MinScore: float32(s.cfg.SearchMatchThreshold)}
}

func (s *Server) answerProfile() retrieval.Profile {
	return retrieval.Profile{K: s.cfg.AnswerMatchCount, MinScore: float32(s.cfg.AnswerMatchThreshold)}
}

type askRequest struct {
	Question string `json:"question"`
}

// handleAsk runs the full embed → search → classify → synthesize flow.
// The response is either a fully formed answer or an error payload,
// never a mix.
func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Question == "" {
		writeError(w, http.StatusBadRequest, "question is required")
		return
	}

	passages, err := s.retriever.Retrieve(r.Context(), req.Question, s.answerProfile())
	if err != nil {
		s.log.Error("retrieval failed", slog.Any("err", err))
		writeError(w, http.StatusInternalServerError, "retrieval failed")
		return
	}

	resp, err := s.composer.Compose(r.Context(), req.Question, passages)
	if err != nil {
		s.log.Error("answer composition failed", slog.Any("err", err))
		writeError(w, http.StatusInternalServerError, "answer composition failed")
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

type searchRequest struct {
	Query string `json:"query"`
	K     int    `json:"k"`
}

// SearchRow is one ranked passage returned by the raw search endpoint.
type SearchRow struct {
	Text  string  `json:"text"`
	Title string  `json:"title"`
	URL   string  `json:"url"`
	Score float64 `json:"score"`
}

// handleSearch returns ranked passages without LLM synthesis.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Query == "" {
		writeError(w, http.StatusBadRequest, "query is required")
		return
	}

	passages, err := s.retriever.Retrieve(r.Context(), req.Query, s.searchProfile(req.K))
	if err != nil {
		s.log.Error("search failed", slog.Any("err", err))
		writeError(w, http.StatusInternalServerError, "search failed")
		return
	}

	rows := make([]SearchRow, len(passages))
	for i, p := range passages {
		rows[i] = SearchRow{Text: p.Text, Title: p.Title, URL: p.URL, Score: p.Score}
	}
	writeJSON(w, http.StatusOK, rows)
}

// handleReindex acknowledges the trigger; the actual crawl runs as an
// out-of-band scheduled job (cmd/crawl).
func (s *Server) handleReindex(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

type healthResponse struct {
	Status    string `json:"status"`
	Store     string `json:"store"`
	Timestamp string `json:"timestamp"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	resp := healthResponse{Timestamp: time.Now().UTC().Format(time.RFC3339)}
	if err := s.health.Health(ctx); err != nil {
		resp.Status = "unhealthy"
		resp.Store = "disconnected"
		writeJSON(w, http.StatusServiceUnavailable, resp)
		return
	}
	resp.Status = "healthy"
	resp.Store = "connected"
	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
