package httpserver

import (
	"errors"
	"net/http"

	ballotdomainerrors "summit/contexts/assembly/ballot-engine/domain/errors"
	ballothttp "summit/contexts/assembly/ballot-engine/transport/http"
	"summit/internal/platform/identity"
)

func assemblyCaller(principal identity.Principal) ballothttp.Caller {
	return ballothttp.Caller{
		UserID:  principal.UserID,
		Role:    principal.Role,
		TeamID:  principal.TeamID,
		EventID: principal.EventID,
	}
}

func (s *Server) handleListResolutions(w http.ResponseWriter, r *http.Request) {
	principal, ok := s.authenticate(w, r)
	if !ok {
		return
	}
	resp, err := s.assembly.Handler.ListResolutionsHandler(r.Context(), assemblyCaller(principal))
	if err != nil {
		s.writeAssemblyDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCreateResolution(w http.ResponseWriter, r *http.Request) {
	principal, ok := s.authenticate(w, r)
	if !ok {
		return
	}
	var req ballothttp.CreateResolutionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	resp, err := s.assembly.Handler.CreateResolutionHandler(r.Context(), assemblyCaller(principal), req)
	if err != nil {
		s.writeAssemblyDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleGetResolution(w http.ResponseWriter, r *http.Request) {
	principal, ok := s.authenticate(w, r)
	if !ok {
		return
	}
	resp, err := s.assembly.Handler.GetResolutionHandler(r.Context(), assemblyCaller(principal), r.PathValue("resolution_id"))
	if err != nil {
		s.writeAssemblyDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleResolutionResults(w http.ResponseWriter, r *http.Request) {
	principal, ok := s.authenticate(w, r)
	if !ok {
		return
	}
	resp, err := s.assembly.Handler.ResultsHandler(r.Context(), assemblyCaller(principal), r.PathValue("resolution_id"))
	if err != nil {
		s.writeAssemblyDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCastBallot(w http.ResponseWriter, r *http.Request) {
	principal, ok := s.authenticate(w, r)
	if !ok {
		return
	}
	var req ballothttp.CastBallotRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	resp, err := s.assembly.Handler.CastBallotHandler(r.Context(), assemblyCaller(principal), r.PathValue("resolution_id"), req)
	if err != nil {
		s.writeAssemblyDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleOpenResolution(w http.ResponseWriter, r *http.Request) {
	principal, ok := s.authenticate(w, r)
	if !ok {
		return
	}
	resp, err := s.assembly.Handler.OpenResolutionHandler(r.Context(), assemblyCaller(principal), r.PathValue("resolution_id"))
	if err != nil {
		s.writeAssemblyDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCloseResolution(w http.ResponseWriter, r *http.Request) {
	principal, ok := s.authenticate(w, r)
	if !ok {
		return
	}
	resp, err := s.assembly.Handler.CloseResolutionHandler(r.Context(), assemblyCaller(principal), r.PathValue("resolution_id"))
	if err != nil {
		s.writeAssemblyDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleUpdateEligibility(w http.ResponseWriter, r *http.Request) {
	principal, ok := s.authenticate(w, r)
	if !ok {
		return
	}
	var req ballothttp.UpdateEligibilityRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	resp, err := s.assembly.Handler.UpdateEligibilityHandler(r.Context(), assemblyCaller(principal), r.PathValue("resolution_id"), req)
	if err != nil {
		s.writeAssemblyDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleReplaceOptions(w http.ResponseWriter, r *http.Request) {
	principal, ok := s.authenticate(w, r)
	if !ok {
		return
	}
	var req ballothttp.ReplaceOptionsRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	resp, err := s.assembly.Handler.ReplaceOptionsHandler(r.Context(), assemblyCaller(principal), r.PathValue("resolution_id"), req)
	if err != nil {
		s.writeAssemblyDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) writeAssemblyDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ballotdomainerrors.ErrUnauthenticated):
		writeAssemblyError(w, http.StatusUnauthorized, "unauthorized", err.Error())
	case errors.Is(err, ballotdomainerrors.ErrInvalidResolutionInput),
		errors.Is(err, ballotdomainerrors.ErrInvalidEligibility):
		writeAssemblyError(w, http.StatusBadRequest, "validation_error", err.Error())
	case errors.Is(err, ballotdomainerrors.ErrInvalidOption):
		writeAssemblyError(w, http.StatusBadRequest, "invalid_option", err.Error())
	case errors.Is(err, ballotdomainerrors.ErrResolutionNotFound):
		writeAssemblyError(w, http.StatusNotFound, "resolution_not_found", err.Error())
	case errors.Is(err, ballotdomainerrors.ErrResolutionNotActive):
		writeAssemblyError(w, http.StatusForbidden, "not_active", err.Error())
	case errors.Is(err, ballotdomainerrors.ErrRoleNotEligible):
		writeAssemblyError(w, http.StatusForbidden, "role_not_eligible", err.Error())
	case errors.Is(err, ballotdomainerrors.ErrTeamNotEligible):
		writeAssemblyError(w, http.StatusForbidden, "team_not_eligible", err.Error())
	case errors.Is(err, ballotdomainerrors.ErrTeamRequired):
		writeAssemblyError(w, http.StatusForbidden, "team_required", err.Error())
	case errors.Is(err, ballotdomainerrors.ErrNotEligible):
		writeAssemblyError(w, http.StatusForbidden, "not_eligible", err.Error())
	case errors.Is(err, ballotdomainerrors.ErrResultsHidden):
		writeAssemblyError(w, http.StatusForbidden, "results_hidden", err.Error())
	case errors.Is(err, ballotdomainerrors.ErrForbidden):
		writeAssemblyError(w, http.StatusForbidden, "forbidden", err.Error())
	case errors.Is(err, ballotdomainerrors.ErrAlreadyVoted):
		writeAssemblyError(w, http.StatusConflict, "already_voted", err.Error())
	case errors.Is(err, ballotdomainerrors.ErrInvalidTransition):
		writeAssemblyError(w, http.StatusConflict, "invalid_transition", err.Error())
	case errors.Is(err, ballotdomainerrors.ErrOptionsLocked):
		writeAssemblyError(w, http.StatusConflict, "options_locked", err.Error())
	default:
		s.logger.Error("assembly request failed",
			"event", "http_assembly_internal_error",
			"module", "internal/platform/httpserver",
			"layer", "platform",
			"error", err.Error(),
		)
		writeAssemblyError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func writeAssemblyError(w http.ResponseWriter, status int, code string, message string) {
	writeJSON(w, status, ballothttp.ErrorResponse{
		Code:    code,
		Message: message,
	})
}
