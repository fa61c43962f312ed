package web

import (
	"context"
	"errors"
	"net/http"

	"github.com/Bruhadev45/Cardsnap-AI/internal/assistant"
	"github.com/Bruhadev45/Cardsnap-AI/internal/contacts"
)

type askRequest struct {
	Query string `json:"query" validate:"required,max=2000"`
}

type askResponse struct {
	Reply string `json:"reply"`
}

func (s *Server) handleAssistant(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}

	all, err := s.contacts.List(r.Context(), ownerID(r), contacts.Filter{})
	if err != nil {
		s.logger.Error("list contacts for assistant failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load contacts")
		return
	}

	reply, err := s.assistant.Ask(context.WithoutCancel(r.Context()), req.Query, all)
	if errors.Is(err, assistant.ErrEmptyQuery) {
		writeError(w, http.StatusBadRequest, "query is required")
		return
	}
	if err != nil {
		s.logger.Error("assistant failed", "error", err)
		writeError(w, http.StatusInternalServerError, "assistant failed")
		return
	}
	writeJSON(w, http.StatusOK, askResponse{Reply: reply})
}
