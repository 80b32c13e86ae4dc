package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/ghostwallet/hunter/internal/webhooks"
)

func (s *Server) handleListWebhooks(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.hooks.ListAll())
}

func (s *Server) handleRegisterWebhook(w http.ResponseWriter, r *http.Request) {
	var sub webhooks.Subscription
	if err := decodeBody(r, &sub); err != nil {
		writeError(w, http.StatusBadRequest, CodeInvalidInput, "invalid JSON body")
		return
	}
	if err := s.hooks.Register(&sub); err != nil {
		writeError(w, http.StatusBadRequest, CodeInvalidInput, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, sub)
}

func (s *Server) handleUnregisterWebhook(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := s.hooks.Unregister(id); err != nil {
		writeError(w, http.StatusNotFound, CodeNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"message":    "webhook unregistered",
		"webhook_id": id,
	})
}
