package http

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"economize/internal/core"
	"economize/internal/services"
)

type stagedResponse struct {
	Records       []services.StagedRecord `json:"records"`
	CardID        string                  `json:"cardId,omitempty"`
	ResponsibleID string                  `json:"responsibleId,omitempty"`
}

// handleImportStage runs extraction over pasted invoice text and
// stages the result. Oracle failure is not an HTTP error: the client
// simply gets zero records and can retry.
func (s *Server) handleImportStage(w http.ResponseWriter, r *http.Request) {
	ownerID := OwnerFromContext(r.Context())

	var body struct {
		Text string `json:"text"`
		Year int    `json:"year"`
	}
	if err := decodeJSON(r, &body); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if body.Text == "" {
		respondError(w, http.StatusUnprocessableEntity, "text is required")
		return
	}
	if body.Year == 0 {
		body.Year = time.Now().Year()
	}

	records, err := s.importer.Stage(r.Context(), ownerID, body.Text, body.Year)
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to stage import", "error", err, "owner_id", ownerID)
		respondError(w, http.StatusInternalServerError, "failed to stage import")
		return
	}
	if records == nil {
		records = []services.StagedRecord{}
	}
	respondJSON(w, http.StatusOK, stagedResponse{Records: records})
}

func (s *Server) handleImportStaged(w http.ResponseWriter, r *http.Request) {
	ownerID := OwnerFromContext(r.Context())

	records, cardID, responsibleID := s.importer.Staged(ownerID)
	if records == nil {
		records = []services.StagedRecord{}
	}
	respondJSON(w, http.StatusOK, stagedResponse{
		Records:       records,
		CardID:        cardID,
		ResponsibleID: responsibleID,
	})
}

func (s *Server) handleImportAssign(w http.ResponseWriter, r *http.Request) {
	ownerID := OwnerFromContext(r.Context())

	var body struct {
		CardID        string `json:"cardId"`
		ResponsibleID string `json:"responsibleId"`
	}
	if err := decodeJSON(r, &body); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := s.importer.Assign(ownerID, body.CardID, body.ResponsibleID); err != nil {
		if errors.Is(err, services.ErrNotStaged) {
			respondError(w, http.StatusConflict, "no staged import")
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to assign import")
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}

func (s *Server) handleImportDiscard(w http.ResponseWriter, r *http.Request) {
	ownerID := OwnerFromContext(r.Context())

	var body struct {
		Index int `json:"index"`
	}
	if err := decodeJSON(r, &body); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := s.importer.Discard(ownerID, body.Index); err != nil {
		if errors.Is(err, services.ErrNotStaged) {
			respondError(w, http.StatusConflict, "no staged import")
			return
		}
		respondError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}

func (s *Server) handleImportCommit(w http.ResponseWriter, r *http.Request) {
	ownerID := OwnerFromContext(r.Context())

	count, err := s.importer.Commit(r.Context(), ownerID)
	if err != nil {
		if errors.Is(err, services.ErrNoCard) {
			respondError(w, http.StatusConflict, "register a card before importing")
			return
		}
		slog.ErrorContext(r.Context(), "Failed to commit import", "error", err, "owner_id", ownerID)
		respondError(w, http.StatusInternalServerError, "failed to commit import")
		return
	}
	respondJSON(w, http.StatusOK, map[string]int{"imported": count})
}

func (s *Server) handleImportCancel(w http.ResponseWriter, r *http.Request) {
	ownerID := OwnerFromContext(r.Context())
	s.importer.Cancel(ownerID)
	respondJSON(w, http.StatusNoContent, nil)
}

// handleSuggestCategory asks the category oracle for a suggestion. Any
// oracle failure degrades to the default category with a 200 so the
// client flow never breaks on an advisory feature.
func (s *Server) handleSuggestCategory(w http.ResponseWriter, r *http.Request) {
	ownerID := OwnerFromContext(r.Context())

	var body struct {
		Description string `json:"description"`
	}
	if err := decodeJSON(r, &body); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if body.Description == "" {
		respondError(w, http.StatusUnprocessableEntity, "description is required")
		return
	}

	suggestion := core.DefaultCategory
	if s.suggester != nil {
		categories, err := s.store.ListCategories(r.Context(), ownerID)
		if err != nil {
			slog.ErrorContext(r.Context(), "Failed to list categories", "error", err, "owner_id", ownerID)
		} else {
			names := make([]string, 0, len(categories))
			for _, c := range categories {
				names = append(names, c.Name)
			}
			got, err := s.suggester.SuggestCategory(r.Context(), body.Description, names)
			if err != nil {
				slog.ErrorContext(r.Context(), "Category suggestion failed", "error", err, "owner_id", ownerID)
			} else {
				suggestion = got
			}
		}
	}

	respondJSON(w, http.StatusOK, map[string]string{"category": suggestion})
}
