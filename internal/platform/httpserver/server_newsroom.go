package httpserver

import (
	"errors"
	"net/http"

	newsdomainerrors "summit/contexts/newsroom/approval-workflow/domain/errors"
	newshttp "summit/contexts/newsroom/approval-workflow/transport/http"
	"summit/internal/platform/identity"
)

func newsroomCaller(principal identity.Principal) newshttp.Caller {
	return newshttp.Caller{
		UserID:  principal.UserID,
		Role:    principal.Role,
		EventID: principal.EventID,
	}
}

func (s *Server) handleListArticles(w http.ResponseWriter, r *http.Request) {
	principal, ok := s.authenticate(w, r)
	if !ok {
		return
	}
	filter := r.URL.Query().Get("filter")
	resp, err := s.newsroom.Handler.ListArticlesHandler(r.Context(), newsroomCaller(principal), filter)
	if err != nil {
		s.writeNewsroomDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCreateArticle(w http.ResponseWriter, r *http.Request) {
	principal, ok := s.authenticate(w, r)
	if !ok {
		return
	}
	var req newshttp.CreateArticleRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	resp, err := s.newsroom.Handler.CreateArticleHandler(r.Context(), newsroomCaller(principal), req)
	if err != nil {
		s.writeNewsroomDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleGetArticle(w http.ResponseWriter, r *http.Request) {
	principal, ok := s.authenticate(w, r)
	if !ok {
		return
	}
	resp, err := s.newsroom.Handler.GetArticleHandler(r.Context(), newsroomCaller(principal), r.PathValue("article_id"))
	if err != nil {
		s.writeNewsroomDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleUpdateArticle(w http.ResponseWriter, r *http.Request) {
	principal, ok := s.authenticate(w, r)
	if !ok {
		return
	}
	var req newshttp.UpdateArticleRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	resp, err := s.newsroom.Handler.UpdateArticleHandler(r.Context(), newsroomCaller(principal), r.PathValue("article_id"), req)
	if err != nil {
		s.writeNewsroomDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleDeleteArticle(w http.ResponseWriter, r *http.Request) {
	principal, ok := s.authenticate(w, r)
	if !ok {
		return
	}
	if err := s.newsroom.Handler.DeleteArticleHandler(r.Context(), newsroomCaller(principal), r.PathValue("article_id")); err != nil {
		s.writeNewsroomDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSubmitArticle(w http.ResponseWriter, r *http.Request) {
	principal, ok := s.authenticate(w, r)
	if !ok {
		return
	}
	resp, err := s.newsroom.Handler.SubmitArticleHandler(r.Context(), newsroomCaller(principal), r.PathValue("article_id"))
	if err != nil {
		s.writeNewsroomDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleRecordApproval(w http.ResponseWriter, r *http.Request) {
	principal, ok := s.authenticate(w, r)
	if !ok {
		return
	}
	var req newshttp.ApprovalRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	resp, err := s.newsroom.Handler.RecordApprovalHandler(r.Context(), newsroomCaller(principal), r.PathValue("article_id"), req)
	if err != nil {
		s.writeNewsroomDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) writeNewsroomDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, newsdomainerrors.ErrUnauthenticated):
		writeNewsroomError(w, http.StatusUnauthorized, "unauthorized", err.Error())
	case errors.Is(err, newsdomainerrors.ErrInvalidArticleInput),
		errors.Is(err, newsdomainerrors.ErrInvalidDecision):
		writeNewsroomError(w, http.StatusBadRequest, "validation_error", err.Error())
	case errors.Is(err, newsdomainerrors.ErrArticleNotFound):
		writeNewsroomError(w, http.StatusNotFound, "article_not_found", err.Error())
	case errors.Is(err, newsdomainerrors.ErrSelfReviewForbidden):
		writeNewsroomError(w, http.StatusForbidden, "self_review_forbidden", err.Error())
	case errors.Is(err, newsdomainerrors.ErrReviewerRoleNotAllowed):
		writeNewsroomError(w, http.StatusForbidden, "reviewer_role_not_allowed", err.Error())
	case errors.Is(err, newsdomainerrors.ErrForbidden):
		writeNewsroomError(w, http.StatusForbidden, "forbidden", err.Error())
	case errors.Is(err, newsdomainerrors.ErrInvalidState):
		writeNewsroomError(w, http.StatusConflict, "invalid_state", err.Error())
	case errors.Is(err, newsdomainerrors.ErrInvalidTransition):
		writeNewsroomError(w, http.StatusConflict, "invalid_transition", err.Error())
	case errors.Is(err, newsdomainerrors.ErrArticleLocked):
		writeNewsroomError(w, http.StatusConflict, "article_locked", err.Error())
	default:
		s.logger.Error("newsroom request failed",
			"event", "http_newsroom_internal_error",
			"module", "internal/platform/httpserver",
			"layer", "platform",
			"error", err.Error(),
		)
		writeNewsroomError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func writeNewsroomError(w http.ResponseWriter, status int, code string, message string) {
	writeJSON(w, status, newshttp.ErrorResponse{
		Code:    code,
		Message: message,
	})
}
