package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ghostwallet/hunter/internal/agents"
	"github.com/ghostwallet/hunter/internal/strategy"
)

// API error codes. Input errors surface verbatim; internal errors are
// sanitized to their code.
const (
	CodeInvalidInput        = "INVALID_INPUT"
	CodeNotFound            = "NOT_FOUND"
	CodeAgentActionFailed   = "AGENT_ACTION_FAILED"
	CodeAgentNotReady       = "AGENT_NOT_READY"
	CodeTaskNotCancellable  = "TASK_NOT_CANCELLABLE"
	CodeTaskExecutionFailed = "TASK_EXECUTION_FAILED"
	CodeQueueFull           = "QUEUE_FULL"
	CodeExternalService     = "EXTERNAL_SERVICE_ERROR"
	CodeServerError         = "SERVER_ERROR"
)

type errorEnvelope struct {
	Error     string      `json:"error"`
	ErrorCode string      `json:"error_code"`
	Details   interface{} `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorEnvelope{Error: message, ErrorCode: code})
}

// writeDomainError maps known domain errors to their status and code;
// anything unmapped becomes a sanitized 500.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, strategy.ErrInvalidAddress), errors.Is(err, strategy.ErrMissingInput):
		writeError(w, http.StatusBadRequest, CodeInvalidInput, err.Error())
	case errors.Is(err, agents.ErrNotFound):
		writeError(w, http.StatusNotFound, CodeNotFound, err.Error())
	case errors.Is(err, agents.ErrAgentNotReady):
		writeError(w, http.StatusConflict, CodeAgentNotReady, err.Error())
	case errors.Is(err, agents.ErrInvalidTransition):
		writeError(w, http.StatusConflict, CodeAgentActionFailed, err.Error())
	case errors.Is(err, agents.ErrTaskNotCancellable):
		writeError(w, http.StatusConflict, CodeTaskNotCancellable, err.Error())
	case errors.Is(err, agents.ErrQueueFull):
		writeError(w, http.StatusTooManyRequests, CodeQueueFull, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, CodeServerError, "internal server error")
	}
}
