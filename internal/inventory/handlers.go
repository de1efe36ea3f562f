package inventory

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/mkowalczyk/pantry-tracker/internal/llm"
	"github.com/mkowalczyk/pantry-tracker/internal/ocr"
)

// maxUploadSize bounds receipt uploads; high-resolution phone photos can get
// large.
const maxUploadSize = int64(50 << 20)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Error encoding response", "error", err)
	}
}

// writeError maps the error taxonomy onto HTTP statuses. Every failure
// reaches the client with enough detail to correct and retry.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	s.setCORSHeaders(w)

	var verr *ValidationError
	if errors.As(err, &verr) {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"error":      verr.Error(),
			"violations": verr.Violations,
		})
		return
	}

	var nferr *NotFoundError
	if errors.As(err, &nferr) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": nferr.Error()})
		return
	}

	var uferr *ocr.UnsupportedFormatError
	if errors.As(err, &uferr) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": uferr.Error()})
		return
	}

	var merr *llm.MalformedResponseError
	if errors.As(err, &merr) {
		writeJSON(w, http.StatusBadGateway, map[string]string{
			"error": merr.Error(),
			"raw":   merr.Raw,
		})
		return
	}

	var berr *llm.BackendError
	if errors.As(err, &berr) {
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": berr.Error()})
		return
	}

	var xerr *ocr.ExtractionError
	if errors.As(err, &xerr) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": xerr.Error()})
		return
	}

	slog.Error("request failed", "error", err)
	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
}

func pathID(r *http.Request) (uint, error) {
	id, err := strconv.ParseUint(r.PathValue("id"), 10, 32)
	if err != nil {
		return 0, err
	}
	return uint(id), nil
}

// handleUploadReceipt stores an uploaded file, OCRs it, and creates a pending
// receipt.
func (s *Server) handleUploadReceipt(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		s.setCORSHeaders(w)
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "error parsing form"})
		return
	}

	f, header, err := r.FormFile("file")
	if err != nil {
		s.setCORSHeaders(w)
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "no file provided"})
		return
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		slog.Error("Error reading upload", "filename", header.Filename, "error", err)
		s.setCORSHeaders(w)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "error reading file"})
		return
	}

	store := r.FormValue("store")

	receipt, err := s.service.UploadReceipt(r.Context(), header.Filename, data, store)
	if err != nil {
		slog.Error("Error uploading receipt", "filename", header.Filename, "error", err)
		s.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, receipt)
}

// handleListPending returns all pending receipts.
func (s *Server) handleListPending(w http.ResponseWriter, r *http.Request) {
	receipts, err := s.service.ListPending()
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, receipts)
}

// handleUpdatePendingText replaces the OCR text of a pending receipt.
func (s *Server) handleUpdatePendingText(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid receipt id"})
		return
	}

	var req struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if err := s.service.UpdatePendingText(id, req.Text); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleAnalyzePending runs the extraction backend over a pending receipt.
func (s *Server) handleAnalyzePending(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid receipt id"})
		return
	}

	result, err := s.service.AnalyzePending(r.Context(), id)
	if err != nil {
		slog.Error("Error analyzing receipt", "id", id, "error", err)
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleCommitPending commits reviewed items into the inventory.
func (s *Server) handleCommitPending(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid receipt id"})
		return
	}

	var req struct {
		Items []Item `json:"items"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	ids, err := s.service.CommitPending(id, req.Items)
	if err != nil {
		slog.Error("Error committing receipt", "id", id, "error", err)
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"ids": ids})
}

// handleDeletePending deletes a pending receipt and its file.
func (s *Server) handleDeletePending(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid receipt id"})
		return
	}

	if err := s.service.DeletePending(id); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleListItems returns the full inventory.
func (s *Server) handleListItems(w http.ResponseWriter, r *http.Request) {
	items, err := s.service.ListItems()
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

// handleCreateItem inserts a manually created item.
func (s *Server) handleCreateItem(w http.ResponseWriter, r *http.Request) {
	var item Item
	if err := json.NewDecoder(r.Body).Decode(&item); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	id, err := s.service.AddItem(&item)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]uint{"id": id})
}

// handleUpdateItem replaces an item. Negative numbers coming from the edit
// form are clamped to zero before validation, so the validator sees the
// post-clamp values.
func (s *Server) handleUpdateItem(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid item id"})
		return
	}

	var item Item
	if err := json.NewDecoder(r.Body).Decode(&item); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	clampNegatives(&item)

	if err := s.service.UpdateItem(id, &item); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func clampNegatives(item *Item) {
	if item.Quantity < 0 {
		item.Quantity = 0
	}
	if item.UnitPrice < 0 {
		item.UnitPrice = 0
	}
	if item.TotalPrice < 0 {
		item.TotalPrice = 0
	}
	if item.Discount < 0 {
		item.Discount = 0
	}
}

// handleDeleteItem removes an item.
func (s *Server) handleDeleteItem(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid item id"})
		return
	}

	if err := s.service.DeleteItem(id); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleStats returns the dashboard summary. The expiring-soon window defaults
// to 7 days, overridable with ?days=N.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	days := 7
	if v := r.URL.Query().Get("days"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid days parameter"})
			return
		}
		days = parsed
	}

	stats, err := s.service.Stats(days)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
