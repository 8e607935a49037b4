package http

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"trackd/internal/core"
	"trackd/internal/services"
)

// maxUploadBytes bounds receipt uploads.
const maxUploadBytes = 10 << 20 // 10MB

type manualExpenseRequest struct {
	ID        int64   `json:"id,omitempty"`
	Amount    float64 `json:"amount"`
	ShopName  string  `json:"shop_name"`
	Purpose   string  `json:"purpose"`
	Timestamp string  `json:"timestamp"`
}

func (s *Server) handleManualExpense(w http.ResponseWriter, r *http.Request) {
	owner := ownerFromContext(r.Context())

	var req manualExpenseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSON(w, http.StatusBadRequest, errorBody{Error: "invalid request body"})
		return
	}

	timestamp, err := parseTimestamp(req.Timestamp)
	if err != nil {
		respondError(w, r, err)
		return
	}

	input := services.ManualExpenseInput{
		Amount:    req.Amount,
		ShopName:  strings.TrimSpace(req.ShopName),
		Purpose:   strings.TrimSpace(req.Purpose),
		Timestamp: timestamp,
	}

	expense, created, err := s.expenses.SaveManual(r.Context(), owner, input, req.ID)
	if err != nil {
		respondError(w, r, err)
		return
	}

	s.dashboardCache.Delete(owner)

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	respondJSON(w, status, expense)
}

func (s *Server) handleUploadImage(w http.ResponseWriter, r *http.Request) {
	owner := ownerFromContext(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	file, header, err := r.FormFile("image")
	if err != nil {
		respondJSON(w, http.StatusBadRequest, errorBody{Error: "no image file provided"})
		return
	}
	defer file.Close()

	image, err := io.ReadAll(file)
	if err != nil {
		respondJSON(w, http.StatusBadRequest, errorBody{Error: "could not read image file"})
		return
	}

	expense, err := s.expenses.CreateFromImage(r.Context(), owner, header.Filename, image)
	if err != nil {
		respondError(w, r, err)
		return
	}

	s.dashboardCache.Delete(owner)
	respondJSON(w, http.StatusCreated, expense)
}

func (s *Server) handleProcessText(w http.ResponseWriter, r *http.Request) {
	owner := ownerFromContext(r.Context())

	var req struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSON(w, http.StatusBadRequest, errorBody{Error: "invalid request body"})
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		respondJSON(w, http.StatusBadRequest, errorBody{Error: "no text provided"})
		return
	}

	expense, err := s.expenses.CreateFromText(r.Context(), owner, req.Text)
	if err != nil {
		respondError(w, r, err)
		return
	}

	s.dashboardCache.Delete(owner)
	respondJSON(w, http.StatusCreated, expense)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	owner := ownerFromContext(r.Context())

	history, err := s.expenses.History(r.Context(), owner)
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, history)
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	owner := ownerFromContext(r.Context())

	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		respondError(w, r, core.ErrNotFound)
		return
	}

	if err := s.expenses.Delete(r.Context(), owner, id); err != nil {
		respondError(w, r, err)
		return
	}

	s.dashboardCache.Delete(owner)
	respondJSON(w, http.StatusOK, map[string]string{"message": "expense deleted successfully"})
}

// parseTimestamp accepts RFC 3339 or a plain date.
func parseTimestamp(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, &core.ValidationError{Field: "timestamp", Reason: "must be a valid date"}
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if ts, err := time.Parse(layout, value); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, &core.ValidationError{Field: "timestamp", Reason: "must be RFC 3339 or YYYY-MM-DD"}
}
