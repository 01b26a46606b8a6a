package rest

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/habbes/sandstorm/internal/dispatch"
	serverError "github.com/habbes/sandstorm/internal/error"
	serverJSON "github.com/habbes/sandstorm/internal/json"
	"github.com/habbes/sandstorm/internal/orchestrator"
	"github.com/habbes/sandstorm/internal/store"
)

// maxCommandLen caps submitted commands at 64 KiB.
const maxCommandLen = 65536

type runCommandResponse struct {
	ProcessID string `json:"processId"`
	Command   string `json:"command"`
	IsRunning bool   `json:"isRunning"`
}

type commandResultResponse struct {
	ExitCode       int    `json:"exitCode"`
	StandardOutput string `json:"standardOutput"`
	StandardError  string `json:"standardError"`
	Duration       string `json:"duration"`
}

type commandStatusResponse struct {
	ProcessID string                 `json:"processId"`
	IsRunning bool                   `json:"isRunning"`
	Result    *commandResultResponse `json:"result,omitempty"`
}

// handleRunCommand godoc
// @Summary      Run command
// @Description  Submit a shell command to the sandbox's agent. Returns the process ID immediately; poll the status endpoint for the result.
// @Tags         Commands
// @Accept       json
// @Produce      json
// @Param        sandboxID  path      string                          true  "Sandbox ID"
// @Param        request    body      orchestrator.RunCommandRequest  true  "Command to run"
// @Success      201        {object}  rest.runCommandResponse
// @Failure      400        {object}  error.ErrorResponse
// @Failure      404        {object}  error.ErrorResponse
// @Failure      500        {object}  error.ErrorResponse
// @Router       /api/sandboxes/{sandboxID}/commands [post]
func (s *Server) handleRunCommand(w http.ResponseWriter, r *http.Request) {
	sandboxID := chi.URLParam(r, "sandboxID")

	var req orchestrator.RunCommandRequest
	if err := serverJSON.DecodeJSON(r.Context(), r, &req); err != nil {
		serverError.RespondErrorMsg(w, http.StatusBadRequest, err.Error(), nil)
		return
	}
	if req.SandboxID != "" && req.SandboxID != sandboxID {
		serverError.RespondErrorMsg(w, http.StatusBadRequest, "sandbox id in body does not match URL", nil)
		return
	}
	if strings.TrimSpace(req.Command) == "" {
		serverError.RespondErrorMsg(w, http.StatusBadRequest, "command is required", nil)
		return
	}
	if len(req.Command) > maxCommandLen {
		serverError.RespondErrorMsg(w, http.StatusBadRequest,
			fmt.Sprintf("command exceeds %d bytes", maxCommandLen), nil)
		return
	}

	proc, err := s.orchestrator.SubmitCommand(r.Context(), sandboxID, req.Command)
	switch {
	case errors.Is(err, store.ErrNotFound):
		serverError.RespondError(w, http.StatusNotFound, fmt.Errorf("sandbox not found"))
		return
	case errors.Is(err, dispatch.ErrNoReadyAgent):
		serverError.RespondErrorMsg(w, http.StatusInternalServerError, "no ready agent for sandbox", err)
		return
	case err != nil:
		s.logger.Error("failed to submit command", "sandbox_id", sandboxID, "error", err)
		serverError.RespondError(w, http.StatusInternalServerError, fmt.Errorf("failed to submit command"))
		return
	}

	_ = serverJSON.RespondJSON(w, http.StatusCreated, runCommandResponse{
		ProcessID: proc.ID,
		Command:   proc.Command,
		IsRunning: proc.IsRunning(),
	})
}

// handleCommandStatus godoc
// @Summary      Get command status
// @Description  Report whether the process is still running; once finished the result carries exit code, output and duration.
// @Tags         Commands
// @Produce      json
// @Param        sandboxID  path      string  true  "Sandbox ID"
// @Param        processID  path      string  true  "Process ID"
// @Success      200        {object}  rest.commandStatusResponse
// @Failure      404        {object}  error.ErrorResponse
// @Failure      500        {object}  error.ErrorResponse
// @Router       /api/sandboxes/{sandboxID}/commands/{processID}/status [get]
func (s *Server) handleCommandStatus(w http.ResponseWriter, r *http.Request) {
	sandboxID := chi.URLParam(r, "sandboxID")
	processID := chi.URLParam(r, "processID")

	proc, err := s.orchestrator.GetProcess(r.Context(), sandboxID, processID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		serverError.RespondError(w, http.StatusNotFound, fmt.Errorf("process not found"))
		return
	case err != nil:
		s.logger.Error("failed to get process", "sandbox_id", sandboxID, "process_id", processID, "error", err)
		serverError.RespondError(w, http.StatusInternalServerError, fmt.Errorf("failed to get command status"))
		return
	}

	resp := commandStatusResponse{
		ProcessID: proc.ID,
		IsRunning: proc.IsRunning(),
	}
	if proc.Result != nil {
		resp.Result = &commandResultResponse{
			ExitCode:       proc.Result.ExitCode,
			StandardOutput: proc.Result.Stdout,
			StandardError:  proc.Result.Stderr,
			Duration:       formatDuration(proc.Result.DurationMs),
		}
	}

	_ = serverJSON.RespondJSON(w, http.StatusOK, resp)
}

// handleCommandLogs godoc
// @Summary      Get command logs
// @Description  Fetch the log lines accumulated for a process so far
// @Tags         Commands
// @Produce      json
// @Param        sandboxID  path      string  true  "Sandbox ID"
// @Param        processID  path      string  true  "Process ID"
// @Success      200        {object}  map[string]interface{}
// @Failure      404        {object}  error.ErrorResponse
// @Failure      500        {object}  error.ErrorResponse
// @Router       /api/sandboxes/{sandboxID}/commands/{processID}/logs [get]
func (s *Server) handleCommandLogs(w http.ResponseWriter, r *http.Request) {
	sandboxID := chi.URLParam(r, "sandboxID")
	processID := chi.URLParam(r, "processID")

	logLines, err := s.orchestrator.ProcessLogs(r.Context(), sandboxID, processID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		serverError.RespondError(w, http.StatusNotFound, fmt.Errorf("process not found"))
		return
	case err != nil:
		s.logger.Error("failed to get process logs", "sandbox_id", sandboxID, "process_id", processID, "error", err)
		serverError.RespondError(w, http.StatusInternalServerError, fmt.Errorf("failed to get command logs"))
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

// handleTerminateCommand godoc
// @Summary      Terminate command
// @Description  Ask the agent to kill a running process. Terminating a finished process is a no-op.
// @Tags         Commands
// @Produce      json
// @Param        sandboxID  path      string  true  "Sandbox ID"
// @Param        processID  path      string  true  "Process ID"
// @Success      200        {object}  map[string]interface{}
// @Failure      404        {object}  error.ErrorResponse
// @Failure      500        {object}  error.ErrorResponse
// @Router       /api/sandboxes/{sandboxID}/commands/{processID} [delete]
func (s *Server) handleTerminateCommand(w http.ResponseWriter, r *http.Request) {
	sandboxID := chi.URLParam(r, "sandboxID")
	processID := chi.URLParam(r, "processID")

	err := s.orchestrator.TerminateProcess(r.Context(), sandboxID, processID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		serverError.RespondError(w, http.StatusNotFound, fmt.Errorf("process not found"))
		return
	case err != nil:
		s.logger.Error("failed to terminate process", "sandbox_id", sandboxID, "process_id", processID, "error", err)
		serverError.RespondError(w, http.StatusInternalServerError, fmt.Errorf("failed to terminate process"))
		return
	}

	_ = serverJSON.RespondJSON(w, http.StatusOK, map[string]any{
		"message": "process termination requested",
	})
}

// formatDuration renders a millisecond count as hh:mm:ss with a
// seven-digit fraction, e.g. 12ms becomes 00:00:00.0120000. Whole days
// are prefixed as "d."; the fraction is omitted when zero. This is the
// duration wire format existing clients already parse.
func formatDuration(ms int64) string {
	d := time.Duration(ms) * time.Millisecond

	days := d / (24 * time.Hour)
	d -= days * 24 * time.Hour
	hours := d / time.Hour
	d -= hours * time.Hour
	minutes := d / time.Minute
	d -= minutes * time.Minute
	seconds := d / time.Second
	d -= seconds * time.Second
	ticks := d.Nanoseconds() / 100

	out := fmt.Sprintf("%02d:%02d:%02d", hours, minutes, seconds)
	if days > 0 {
		out = fmt.Sprintf("%d.%s", days, out)
	}
	if ticks > 0 {
		out = fmt.Sprintf("%s.%07d", out, ticks)
	}
	return out
}
