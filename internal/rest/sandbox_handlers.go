package rest

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	serverError "github.com/habbes/sandstorm/internal/error"
	serverJSON "github.com/habbes/sandstorm/internal/json"
	"github.com/habbes/sandstorm/internal/orchestrator"
	"github.com/habbes/sandstorm/internal/store"
)

// handleCreateSandbox godoc
// @Summary      Create sandbox
// @Description  Provision a new sandbox VM. Returns immediately with status Creating; the sandbox becomes Ready once its in-VM agent registers.
// @Tags         Sandboxes
// @Accept       json
// @Produce      json
// @Param        request  body      orchestrator.CreateSandboxRequest  false  "Sandbox configuration; omit for the default image"
// @Success      201      {object}  store.Sandbox
// @Failure      400      {object}  error.ErrorResponse
// @Failure      500      {object}  error.ErrorResponse
// @Router       /api/sandboxes [post]
func (s *Server) handleCreateSandbox(w http.ResponseWriter, r *http.Request) {
	// An empty body is valid and means "default configuration".
	var req orchestrator.CreateSandboxRequest
	if r.ContentLength != 0 {
		if err := serverJSON.DecodeJSON(r.Context(), r, &req); err != nil {
			serverError.RespondErrorMsg(w, http.StatusBadRequest, err.Error(), nil)
			return
		}
	}

	sandbox, err := s.orchestrator.CreateSandbox(r.Context(), req)
	if err != nil {
		s.logger.Error("failed to create sandbox", "error", err)
		serverError.RespondError(w, http.StatusInternalServerError, fmt.Errorf("failed to create sandbox"))
		return
	}

	_ = serverJSON.RespondJSON(w, http.StatusCreated, sandbox)
}

// handleListSandboxes godoc
// @Summary      List sandboxes
// @Description  List all known sandboxes, including those being created or torn down
// @Tags         Sandboxes
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Failure      500  {object}  error.ErrorResponse
// @Router       /api/sandboxes [get]
func (s *Server) handleListSandboxes(w http.ResponseWriter, r *http.Request) {
	sandboxes, err := s.orchestrator.ListSandboxes(r.Context())
	if err != nil {
		s.logger.Error("failed to list sandboxes", "error", err)
		serverError.RespondError(w, http.StatusInternalServerError, fmt.Errorf("failed to list sandboxes"))
		return
	}

	_ = serverJSON.RespondJSON(w, http.StatusOK, map[string]any{
		"sandboxes": sandboxes,
		"count":     len(sandboxes),
	})
}

// handleGetSandbox godoc
// @Summary      Get sandbox
// @Description  Get sandbox details by ID
// @Tags         Sandboxes
// @Produce      json
// @Param        sandboxID  path      string  true  "Sandbox ID"
// @Success      200        {object}  store.Sandbox
// @Failure      404        {object}  error.ErrorResponse
// @Router       /api/sandboxes/{sandboxID} [get]
func (s *Server) handleGetSandbox(w http.ResponseWriter, r *http.Request) {
	sandboxID := chi.URLParam(r, "sandboxID")

	sandbox, err := s.orchestrator.GetSandbox(r.Context(), sandboxID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		serverError.RespondError(w, http.StatusNotFound, fmt.Errorf("sandbox not found"))
		return
	case err != nil:
		s.logger.Error("failed to get sandbox", "sandbox_id", sandboxID, "error", err)
		serverError.RespondError(w, http.StatusInternalServerError, fmt.Errorf("failed to get sandbox"))
		return
	}

	_ = serverJSON.RespondJSON(w, http.StatusOK, sandbox)
}

// handleDeleteSandbox godoc
// @Summary      Delete sandbox
// @Description  Accept deletion of a sandbox. The VM is torn down in the background; the record reports status Stopping until teardown finishes.
// @Tags         Sandboxes
// @Produce      json
// @Param        sandboxID  path      string  true  "Sandbox ID"
// @Success      200        {object}  map[string]interface{}
// @Failure      404        {object}  error.ErrorResponse
// @Failure      500        {object}  error.ErrorResponse
// @Router       /api/sandboxes/{sandboxID} [delete]
func (s *Server) handleDeleteSandbox(w http.ResponseWriter, r *http.Request) {
	sandboxID := chi.URLParam(r, "sandboxID")

	err := s.orchestrator.DeleteSandbox(r.Context(), sandboxID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		serverError.RespondError(w, http.StatusNotFound, fmt.Errorf("sandbox not found"))
		return
	case err != nil:
		s.logger.Error("failed to delete sandbox", "sandbox_id", sandboxID, "error", err)
		serverError.RespondError(w, http.StatusInternalServerError, fmt.Errorf("failed to delete sandbox"))
		return
	}

	_ = serverJSON.RespondJSON(w, http.StatusOK, map[string]any{
		"message": "sandbox deletion accepted",
	})
}

// handleSandboxLogs godoc
// @Summary      Get sandbox logs
// @Description  Fetch lifecycle log lines for a sandbox plus boot logs reported by its agents
// @Tags         Sandboxes
// @Produce      json
// @Param        sandboxID  path      string  true  "Sandbox ID"
// @Success      200        {object}  map[string]interface{}
// @Failure      404        {object}  error.ErrorResponse
// @Failure      500        {object}  error.ErrorResponse
// @Router       /api/sandboxes/{sandboxID}/logs [get]
func (s *Server) handleSandboxLogs(w http.ResponseWriter, r *http.Request) {
	sandboxID := chi.URLParam(r, "sandboxID")

	logLines, err := s.orchestrator.SandboxLogs(r.Context(), sandboxID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		serverError.RespondError(w, http.StatusNotFound, fmt.Errorf("sandbox not found"))
		return
	case err != nil:
		s.logger.Error("failed to get sandbox logs", "sandbox_id", sandboxID, "error", err)
		serverError.RespondError(w, http.StatusInternalServerError, fmt.Errorf("failed to get sandbox logs"))
		return
	}
	if logLines == nil {
		logLines = []string{}
	}

	_ = serverJSON.RespondJSON(w, http.StatusOK, map[string]any{
		"logLines": logLines,
		"count":    len(logLines),
	})
}
