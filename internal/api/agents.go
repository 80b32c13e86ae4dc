package api

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/ghostwallet/hunter/internal/agents"
)

func (s *Server) handleListAgents(w http.ResponseWriter, r *http.Request) {
	snapshots := s.agents.List()
	out := make([]map[string]interface{}, len(snapshots))
	for i, snap := range snapshots {
		out[i] = map[string]interface{}{
			"id":     snap.ID,
			"name":   snap.Name,
			"type":   snap.Trigger.Type,
			"status": snap.State,
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateAgent(w http.ResponseWriter, r *http.Request) {
	var bp agents.Blueprint
	if err := decodeBody(r, &bp); err != nil {
		writeError(w, http.StatusBadRequest, CodeInvalidInput, "invalid JSON body")
		return
	}

	agent, err := s.agents.Create(bp)
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeInvalidInput, err.Error())
		return
	}

	snap := agent.Status()
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"id":     snap.ID,
		"name":   snap.Name,
		"status": snap.State,
	})
}

func (s *Server) handleGetAgent(w http.ResponseWriter, r *http.Request) {
	agent, err := s.agents.Get(mux.Vars(r)["id"])
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, agent.Status())
}

func (s *Server) handleUpdateAgent(w http.ResponseWriter, r *http.Request) {
	agent, err := s.agents.Get(mux.Vars(r)["id"])
	if err != nil {
		writeDomainError(w, err)
		return
	}

	var req struct {
		Name        string   `json:"name"`
		Description string   `json:"description"`
		Tools       []string `json:"tools"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, CodeInvalidInput, "invalid JSON body")
		return
	}

	agent.Update(req.Name, req.Description, req.Tools)
	writeJSON(w, http.StatusOK, agent.Status())
}

func (s *Server) handleDeleteAgent(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := s.agents.Delete(id); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"message":  "agent deleted",
		"agent_id": id,
	})
}

// handleAgentLifecycle serves start, stop, pause and resume. Transitions
// are idempotent: repeating the current state is a 200.
func (s *Server) handleAgentLifecycle(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	agent, err := s.agents.Get(vars["id"])
	if err != nil {
		writeDomainError(w, err)
		return
	}

	switch vars["action"] {
	case "start":
		err = agent.Start()
	case "stop":
		err = agent.Stop()
	case "pause":
		err = agent.Pause()
	case "resume":
		err = agent.Resume()
	}
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"new_status": agent.Status().State,
	})
}

// handleAgentWebhook delivers an external payload to a webhook-triggered
// agent. Gate drops are a 202 with the drop reason, not an error.
func (s *Server) handleAgentWebhook(w http.ResponseWriter, r *http.Request) {
	agent, err := s.agents.Get(mux.Vars(r)["id"])
	if err != nil {
		writeDomainError(w, err)
		return
	}

	payload := map[string]interface{}{}
	if err := decodeBody(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, CodeInvalidInput, "invalid JSON body")
		return
	}

	task, decision, err := agent.Submit(payload)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if decision != nil && !decision.Allowed {
		writeJSON(w, http.StatusAccepted, map[string]interface{}{
			"dropped": true,
			"reason":  decision.Reason,
		})
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]interface{}{
		"task_id": task.ID,
		"status":  task.Status,
	})
}

func (s *Server) handleAgentLogs(w http.ResponseWriter, r *http.Request) {
	agent, err := s.agents.Get(mux.Vars(r)["id"])
	if err != nil {
		writeDomainError(w, err)
		return
	}

	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}
	writeJSON(w, http.StatusOK, agent.Logs(limit))
}

func (s *Server) handleAgentTasks(w http.ResponseWriter, r *http.Request) {
	agent, err := s.agents.Get(mux.Vars(r)["id"])
	if err != nil {
		writeDomainError(w, err)
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, CodeInvalidInput, "limit must be a positive integer")
			return
		}
		limit = n
	}

	tasks := agent.Tasks(r.URL.Query().Get("status_filter"), limit)
	writeJSON(w, http.StatusOK, map[string]interface{}{"tasks": tasks})
}

func (s *Server) handleAgentTask(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	agent, err := s.agents.Get(vars["id"])
	if err != nil {
		writeDomainError(w, err)
		return
	}

	task, err := agent.Task(vars["task_id"])
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (s *Server) handleCancelTask(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	agent, err := s.agents.Get(vars["id"])
	if err != nil {
		writeDomainError(w, err)
		return
	}

	status, err := agent.CancelTask(vars["task_id"])
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"task_id": vars["task_id"],
		"status":  status,
	})
}
