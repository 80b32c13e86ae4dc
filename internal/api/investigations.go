package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/ghostwallet/hunter/internal/store"
	"github.com/ghostwallet/hunter/internal/strategy"
)

type investigateRequest struct {
	WalletAddress  string   `json:"wallet_address"`
	Depth          string   `json:"depth,omitempty"`
	Detectives     []string `json:"detectives,omitempty"`
	MaxConnections int      `json:"max_connections,omitempty"`
}

// handleInvestigate runs one synchronous investigation.
func (s *Server) handleInvestigate(w http.ResponseWriter, r *http.Request) {
	var req investigateRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, CodeInvalidInput, "invalid JSON body")
		return
	}
	if req.WalletAddress == "" {
		writeError(w, http.StatusBadRequest, CodeInvalidInput, "wallet_address is required")
		return
	}

	result, err := s.investigator.Investigate(r.Context(), req.WalletAddress, strategy.Options{
		Depth:          req.Depth,
		MaxConnections: req.MaxConnections,
		Detectives:     req.Detectives,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleInvestigations returns persisted results for a wallet, newest first.
func (s *Server) handleInvestigations(w http.ResponseWriter, r *http.Request) {
	wallet := mux.Vars(r)["wallet"]

	limit := 10
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, CodeInvalidInput, "limit must be a positive integer")
			return
		}
		limit = n
	}

	payloads, err := s.store.ListInvestigations(r.Context(), wallet, limit)
	if err == store.ErrNotFound || len(payloads) == 0 {
		writeError(w, http.StatusNotFound, CodeNotFound, "no investigations for wallet")
		return
	}
	if err != nil {
		writeDomainError(w, err)
		return
	}

	results := make([]json.RawMessage, len(payloads))
	for i, p := range payloads {
		results[i] = json.RawMessage(p)
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"wallet_address": wallet,
		"count":          len(results),
		"investigations": results,
	})
}
