package http

import (
	"errors"
	"log/slog"
	"net/http"
	"sort"

	"economize/internal/core"
	"economize/internal/services"
)

func (s *Server) handleListPurchases(w http.ResponseWriter, r *http.Request) {
	ownerID := OwnerFromContext(r.Context())

	purchases, err := s.store.ListPurchases(r.Context(), ownerID)
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to list purchases", "error", err, "owner_id", ownerID)
		respondError(w, http.StatusInternalServerError, "failed to list purchases")
		return
	}

	// Listing order differs per backend; newest first is the contract.
	sort.SliceStable(purchases, func(i, j int) bool {
		return purchases[i].PurchaseDate.After(purchases[j].PurchaseDate.Time)
	})

	if purchases == nil {
		purchases = []core.Purchase{}
	}
	respondJSON(w, http.StatusOK, purchases)
}

func (s *Server) handleCreatePurchase(w http.ResponseWriter, r *http.Request) {
	ownerID := OwnerFromContext(r.Context())
	force := r.URL.Query().Get("force") == "true"

	var p core.Purchase
	if err := decodeJSON(r, &p); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	p.Item = sanitizeInput(p.Item)
	if p.Installments == 0 {
		p.Installments = 1
	}
	if p.CurrentInstallment == 0 {
		p.CurrentInstallment = 1
	}

	saved, err := s.purchases.Create(r.Context(), ownerID, p, force)
	switch {
	case errors.Is(err, services.ErrDuplicate):
		respondJSON(w, http.StatusConflict, map[string]string{
			"error": "possible duplicate purchase",
			"hint":  "retry with ?force=true to save anyway",
		})
		return
	case err != nil && isValidationError(err):
		respondError(w, http.StatusUnprocessableEntity, err.Error())
		return
	case err != nil:
		slog.ErrorContext(r.Context(), "Failed to create purchase", "error", err, "owner_id", ownerID)
		respondError(w, http.StatusInternalServerError, "failed to save purchase")
		return
	}
	respondJSON(w, http.StatusCreated, saved)
}

func (s *Server) handleUpdatePurchase(w http.ResponseWriter, r *http.Request) {
	ownerID := OwnerFromContext(r.Context())
	id := r.PathValue("id")

	var patch core.PurchasePatch
	if err := decodeJSON(r, &patch); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if patch.Item != nil {
		cleaned := sanitizeInput(*patch.Item)
		patch.Item = &cleaned
	}

	if err := s.purchases.Update(r.Context(), ownerID, id, patch); err != nil {
		if isValidationError(err) {
			respondError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		s.respondStoreError(w, r, err, "update purchase")
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}

func (s *Server) handleDeletePurchase(w http.ResponseWriter, r *http.Request) {
	ownerID := OwnerFromContext(r.Context())
	id := r.PathValue("id")

	if err := s.purchases.Delete(r.Context(), ownerID, id); err != nil {
		s.respondStoreError(w, r, err, "delete purchase")
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}

func (s *Server) handleDeletePurchaseBatch(w http.ResponseWriter, r *http.Request) {
	ownerID := OwnerFromContext(r.Context())

	var body struct {
		IDs []string `json:"ids"`
	}
	if err := decodeJSON(r, &body); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(body.IDs) == 0 {
		respondJSON(w, http.StatusOK, map[string]int{"deleted": 0})
		return
	}

	if err := s.purchases.DeleteBatch(r.Context(), ownerID, body.IDs); err != nil {
		s.respondStoreError(w, r, err, "delete purchases")
		return
	}
	respondJSON(w, http.StatusOK, map[string]int{"deleted": len(body.IDs)})
}

// isValidationError distinguishes domain validation failures from
// storage failures so they map to 422 instead of 500.
func isValidationError(err error) bool {
	switch {
	case errors.Is(err, core.ErrEmptyName),
		errors.Is(err, core.ErrEmptyItem),
		errors.Is(err, core.ErrMissingCard),
		errors.Is(err, core.ErrInvalidAmount),
		errors.Is(err, core.ErrInvalidDate),
		errors.Is(err, core.ErrInvalidLastFour),
		errors.Is(err, core.ErrInvalidPaymentDay),
		errors.Is(err, core.ErrInvalidInstallments),
		errors.Is(err, core.ErrItemTooLong),
		errors.Is(err, core.ErrInvalidMonth):
		return true
	}
	return false
}
