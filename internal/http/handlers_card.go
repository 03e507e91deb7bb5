package http

import (
	"log/slog"
	"net/http"

	"economize/internal/core"
)

func (s *Server) handleListCards(w http.ResponseWriter, r *http.Request) {
	ownerID := OwnerFromContext(r.Context())

	if err := s.store.EnsureDefaults(r.Context(), ownerID); err != nil {
		slog.ErrorContext(r.Context(), "Failed to ensure defaults", "error", err, "owner_id", ownerID)
	}

	cards, err := s.store.ListCards(r.Context(), ownerID)
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to list cards", "error", err, "owner_id", ownerID)
		respondError(w, http.StatusInternalServerError, "failed to list cards")
		return
	}
	if cards == nil {
		cards = []core.Card{}
	}
	respondJSON(w, http.StatusOK, cards)
}

func (s *Server) handleCreateCard(w http.ResponseWriter, r *http.Request) {
	ownerID := OwnerFromContext(r.Context())

	var card core.Card
	if err := decodeJSON(r, &card); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	card.Name = sanitizeInput(card.Name)
	if err := card.Validate(); err != nil {
		respondError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	saved, err := s.store.AddCard(r.Context(), ownerID, card)
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to add card", "error", err, "owner_id", ownerID)
		respondError(w, http.StatusInternalServerError, "failed to save card")
		return
	}
	respondJSON(w, http.StatusCreated, saved)
}

func (s *Server) handleDeleteCard(w http.ResponseWriter, r *http.Request) {
	ownerID := OwnerFromContext(r.Context())
	id := r.PathValue("id")

	if err := s.store.DeleteCard(r.Context(), ownerID, id); err != nil {
		s.respondStoreError(w, r, err, "delete card")
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}
