package http

import (
	"log/slog"
	"net/http"

	"economize/internal/core"
)

// handleDashboard serves the overall totals: every purchase summed and
// broken down by category, with no date filtering.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	ownerID := OwnerFromContext(r.Context())

	purchases, err := s.store.ListPurchases(r.Context(), ownerID)
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to list purchases", "error", err, "owner_id", ownerID)
		respondError(w, http.StatusInternalServerError, "failed to load dashboard")
		return
	}

	byCategory := core.SpendByCategory(purchases)
	if byCategory == nil {
		byCategory = []core.CategoryAmount{}
	}

	respondJSON(w, http.StatusOK, struct {
		Total      core.Money            `json:"total"`
		ByCategory []core.CategoryAmount `json:"byCategory"`
		Count      int                   `json:"count"`
	}{
		Total:      core.TotalSpent(purchases),
		ByCategory: byCategory,
		Count:      len(purchases),
	})
}

// handleMonthlyReport groups one calendar month's purchases by card.
func (s *Server) handleMonthlyReport(w http.ResponseWriter, r *http.Request) {
	ownerID := OwnerFromContext(r.Context())

	year, month := parseYearMonth(r)
	if month < 1 || month > 12 {
		respondError(w, http.StatusBadRequest, "month must be between 1 and 12")
		return
	}

	purchases, err := s.store.ListPurchases(r.Context(), ownerID)
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to list purchases", "error", err, "owner_id", ownerID)
		respondError(w, http.StatusInternalServerError, "failed to load report")
		return
	}
	cards, err := s.store.ListCards(r.Context(), ownerID)
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to list cards", "error", err, "owner_id", ownerID)
		respondError(w, http.StatusInternalServerError, "failed to load report")
		return
	}

	reports := core.MonthlyCardReport(purchases, cards, year, month)
	if reports == nil {
		reports = []core.CardReport{}
	}

	respondJSON(w, http.StatusOK, struct {
		Year    int               `json:"year"`
		Month   int               `json:"month"`
		Reports []core.CardReport `json:"reports"`
	}{Year: year, Month: month, Reports: reports})
}
