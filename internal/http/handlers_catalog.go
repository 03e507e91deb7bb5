package http

import (
	"log/slog"
	"net/http"

	"economize/internal/core"
)

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	ownerID := OwnerFromContext(r.Context())

	if err := s.store.EnsureDefaults(r.Context(), ownerID); err != nil {
		slog.ErrorContext(r.Context(), "Failed to ensure defaults", "error", err, "owner_id", ownerID)
	}

	categories, err := s.store.ListCategories(r.Context(), ownerID)
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to list categories", "error", err, "owner_id", ownerID)
		respondError(w, http.StatusInternalServerError, "failed to list categories")
		return
	}
	if categories == nil {
		categories = []core.Category{}
	}
	respondJSON(w, http.StatusOK, categories)
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	ownerID := OwnerFromContext(r.Context())

	var category core.Category
	if err := decodeJSON(r, &category); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	category.Name = sanitizeInput(category.Name)
	if err := category.Validate(); err != nil {
		respondError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	saved, err := s.store.AddCategory(r.Context(), ownerID, category)
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to add category", "error", err, "owner_id", ownerID)
		respondError(w, http.StatusInternalServerError, "failed to save category")
		return
	}
	respondJSON(w, http.StatusCreated, saved)
}

func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	ownerID := OwnerFromContext(r.Context())
	id := r.PathValue("id")

	if err := s.store.DeleteCategory(r.Context(), ownerID, id); err != nil {
		s.respondStoreError(w, r, err, "delete category")
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}

func (s *Server) handleListResponsibles(w http.ResponseWriter, r *http.Request) {
	ownerID := OwnerFromContext(r.Context())

	if err := s.store.EnsureDefaults(r.Context(), ownerID); err != nil {
		slog.ErrorContext(r.Context(), "Failed to ensure defaults", "error", err, "owner_id", ownerID)
	}

	responsibles, err := s.store.ListResponsibles(r.Context(), ownerID)
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to list responsibles", "error", err, "owner_id", ownerID)
		respondError(w, http.StatusInternalServerError, "failed to list responsibles")
		return
	}
	if responsibles == nil {
		responsibles = []core.Responsible{}
	}
	respondJSON(w, http.StatusOK, responsibles)
}

func (s *Server) handleCreateResponsible(w http.ResponseWriter, r *http.Request) {
	ownerID := OwnerFromContext(r.Context())

	var responsible core.Responsible
	if err := decodeJSON(r, &responsible); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	responsible.Name = sanitizeInput(responsible.Name)
	if err := responsible.Validate(); err != nil {
		respondError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	saved, err := s.store.AddResponsible(r.Context(), ownerID, responsible)
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to add responsible", "error", err, "owner_id", ownerID)
		respondError(w, http.StatusInternalServerError, "failed to save responsible")
		return
	}
	respondJSON(w, http.StatusCreated, saved)
}

func (s *Server) handleDeleteResponsible(w http.ResponseWriter, r *http.Request) {
	ownerID := OwnerFromContext(r.Context())
	id := r.PathValue("id")

	if err := s.store.DeleteResponsible(r.Context(), ownerID, id); err != nil {
		s.respondStoreError(w, r, err, "delete responsible")
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}

func (s *Server) handleListCycles(w http.ResponseWriter, r *http.Request) {
	ownerID := OwnerFromContext(r.Context())

	cycles, err := s.store.ListCycles(r.Context(), ownerID)
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to list cycles", "error", err, "owner_id", ownerID)
		respondError(w, http.StatusInternalServerError, "failed to list cycles")
		return
	}
	if cycles == nil {
		cycles = []core.CardCycle{}
	}
	respondJSON(w, http.StatusOK, cycles)
}

func (s *Server) handleSaveCycle(w http.ResponseWriter, r *http.Request) {
	ownerID := OwnerFromContext(r.Context())

	var cycle core.CardCycle
	if err := decodeJSON(r, &cycle); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := cycle.Validate(); err != nil {
		respondError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	if err := s.store.SaveCycle(r.Context(), ownerID, cycle); err != nil {
		slog.ErrorContext(r.Context(), "Failed to save cycle", "error", err, "owner_id", ownerID)
		respondError(w, http.StatusInternalServerError, "failed to save cycle")
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}
