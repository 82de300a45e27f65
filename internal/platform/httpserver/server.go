package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	ballotengine "summit/contexts/assembly/ballot-engine"
	approvalworkflow "summit/contexts/newsroom/approval-workflow"
	"summit/internal/platform/identity"

	httpSwagger "github.com/swaggo/http-swagger"
	_ "summit/internal/platform/httpserver/docs"
)

// SessionVerifier turns a bearer token into the caller's principal.
type SessionVerifier interface {
	Verify(token string) (identity.Principal, error)
}

type Server struct {
	mux        *http.ServeMux
	httpServer *http.Server
	logger     *slog.Logger
	addr       string
	sessions   SessionVerifier
	assembly   ballotengine.Module
	newsroom   approvalworkflow.Module
}

func New(
	assembly ballotengine.Module,
	newsroom approvalworkflow.Module,
	sessions SessionVerifier,
	logger *slog.Logger,
	addr string,
) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if addr == "" {
		addr = ":8080"
	}

	s := &Server{
		mux:      http.NewServeMux(),
		logger:   logger,
		addr:     addr,
		sessions: sessions,
		assembly: assembly,
		newsroom: newsroom,
	}
	s.registerRoutes()
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Start serves until Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info("http server starting",
		"event", "http_server_starting",
		"module", "internal/platform/httpserver",
		"layer", "platform",
		"addr", s.addr,
	)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("http server stopping",
		"event", "http_server_stopping",
		"module", "internal/platform/httpserver",
		"layer", "platform",
	)
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) registerRoutes() {
	s.mux.Handle("/swagger/", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))
	s.mux.HandleFunc("GET /healthz", s.handleHealthz)

	s.mux.HandleFunc("GET /api/v1/resolutions", s.handleListResolutions)
	s.mux.HandleFunc("POST /api/v1/resolutions", s.handleCreateResolution)
	s.mux.HandleFunc("GET /api/v1/resolutions/{resolution_id}", s.handleGetResolution)
	s.mux.HandleFunc("GET /api/v1/resolutions/{resolution_id}/results", s.handleResolutionResults)
	s.mux.HandleFunc("POST /api/v1/resolutions/{resolution_id}/cast", s.handleCastBallot)
	s.mux.HandleFunc("POST /api/v1/resolutions/{resolution_id}/open", s.handleOpenResolution)
	s.mux.HandleFunc("POST /api/v1/resolutions/{resolution_id}/close", s.handleCloseResolution)
	s.mux.HandleFunc("PUT /api/v1/resolutions/{resolution_id}/eligibility", s.handleUpdateEligibility)
	s.mux.HandleFunc("PUT /api/v1/resolutions/{resolution_id}/options", s.handleReplaceOptions)

	s.mux.HandleFunc("GET /api/v1/news", s.handleListArticles)
	s.mux.HandleFunc("POST /api/v1/news", s.handleCreateArticle)
	s.mux.HandleFunc("GET /api/v1/news/{article_id}", s.handleGetArticle)
	s.mux.HandleFunc("PATCH /api/v1/news/{article_id}", s.handleUpdateArticle)
	s.mux.HandleFunc("DELETE /api/v1/news/{article_id}", s.handleDeleteArticle)
	s.mux.HandleFunc("POST /api/v1/news/{article_id}/submit", s.handleSubmitArticle)
	s.mux.HandleFunc("POST /api/v1/news/{article_id}/approvals", s.handleRecordApproval)
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// authenticate resolves the bearer session or writes 401.
func (s *Server) authenticate(w http.ResponseWriter, r *http.Request) (identity.Principal, bool) {
	token, ok := identity.BearerToken(r.Header.Get("Authorization"))
	if !ok || s.sessions == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized", "a bearer session token is required")
		return identity.Principal{}, false
	}
	principal, err := s.sessions.Verify(token)
	if err != nil {
		s.logger.Info("session rejected",
			"event", "http_session_rejected",
			"module", "internal/platform/httpserver",
			"layer", "platform",
			"path", r.URL.Path,
			"error", err.Error(),
		)
		writeError(w, http.StatusUnauthorized, "unauthorized", "session token is invalid or expired")
		return identity.Principal{}, false
	}
	return principal, true
}

func decodeJSON(w http.ResponseWriter, r *http.Request, target any) bool {
	if err := json.NewDecoder(r.Body).Decode(target); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return false
	}
	return true
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeError(w http.ResponseWriter, status int, code string, message string) {
	writeJSON(w, status, errorBody{
		Code:    code,
		Message: message,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
