package rest

import (
	"net/http"

	serverJSON "github.com/habbes/sandstorm/internal/json"
	"github.com/habbes/sandstorm/internal/orchestrator"
)

// handleHealth godoc
// @Summary      Health check
// @Description  Returns API health status
// @Tags         Health
// @Produce      json
// @Success      200  {object}  map[string]string
// @Router       /healthz [get]
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	_ = serverJSON.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleListAgents godoc
// @Summary      List agents
// @Description  List all registered in-VM agents with connection state and last reported resource usage
// @Tags         Agents
// @Produce      json
// @Param        active  query  bool  false  "only agents with a recent heartbeat"
// @Success      200  {object}  map[string]interface{}
// @Router       /api/agents [get]
func (s *Server) handleListAgents(w http.ResponseWriter, r *http.Request) {
	var agents []*orchestrator.AgentInfo
	if r.URL.Query().Get("active") == "true" {
		agents = s.orchestrator.ListActiveAgents()
	} else {
		agents = s.orchestrator.ListAgents()
	}

	_ = serverJSON.RespondJSON(w, http.StatusOK, map[string]any{
		"agents": agents,
		"count":  len(agents),
	})
}
