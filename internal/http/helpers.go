package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"economize/internal/store"
)

// respondJSON writes a JSON response with the given status.
func respondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if body == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

// respondError writes a JSON error body with the given status.
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// respondStoreError maps storage errors onto HTTP statuses: missing
// ids become 404, everything else is a 500 with an explicit error body
// so the client knows the write did not happen.
func (s *Server) respondStoreError(w http.ResponseWriter, r *http.Request, err error, operation string) {
	if errors.Is(err, store.ErrNotFound) {
		respondError(w, http.StatusNotFound, "not found")
		return
	}
	slog.ErrorContext(r.Context(), "Storage operation failed",
		"error", err,
		"operation", operation,
		"owner_id", OwnerFromContext(r.Context()))
	respondError(w, http.StatusInternalServerError, "storage failure")
}

// decodeJSON decodes a request body, rejecting unknown fields.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("decode request body: %w", err)
	}
	return nil
}

// parseYearMonth extracts year and month from query parameters.
// Returns current year/month as defaults if not provided or invalid.
func parseYearMonth(r *http.Request) (year, month int) {
	now := time.Now()
	year = now.Year()
	month = int(now.Month())

	if v := strings.TrimSpace(r.URL.Query().Get("year")); v != "" {
		if y, err := strconv.Atoi(v); err == nil {
			year = y
		}
	}
	if v := strings.TrimSpace(r.URL.Query().Get("month")); v != "" {
		if m, err := strconv.Atoi(v); err == nil {
			month = m
		}
	}

	return year, month
}

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	result := strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
	return result
}
