package handlers

import (
	"errors"
	"net/http"

	"github.com/lehigh-university-libraries/alttext/internal/batch"
	"github.com/lehigh-university-libraries/alttext/internal/library"
)

func (h *Handler) HandleStartBatch(w http.ResponseWriter, r *http.Request) {
	var request struct {
		Mode     string   `json:"mode"`
		ImageIDs []flexID `json:"image_ids"`
	}

	if err := decodeJSON(r, &request); err != nil {
		h.writeError(w, "Invalid JSON: "+err.Error(), http.StatusBadRequest)
		return
	}

	var ids []string
	switch {
	case len(request.ImageIDs) > 0:
		for _, id := range request.ImageIDs {
			ids = append(ids, string(id))
		}
	case request.Mode == "" || request.Mode == "missing":
		result, err := library.ScanMissing(r.Context(), h.source)
		if err != nil {
			h.writeError(w, "Error fetching images: "+err.Error(), http.StatusInternalServerError)
			return
		}
		ids = library.IDs(result.Images)
	case request.Mode == "all":
		images, err := library.ScanAll(r.Context(), h.source)
		if err != nil {
			h.writeError(w, "Error fetching images: "+err.Error(), http.StatusInternalServerError)
			return
		}
		ids = library.IDs(images)
	default:
		h.writeError(w, "Invalid mode. Must be 'missing' or 'all'", http.StatusBadRequest)
		return
	}

	runID, err := h.batches.Launch(h.runCtx, ids)
	if errors.Is(err, batch.ErrRunning) {
		h.writeError(w, "A batch is already running", http.StatusConflict)
		return
	}
	if err != nil {
		h.writeError(w, "Failed to start batch: "+err.Error(), http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, map[string]any{
		"run_id": runID,
		"total":  len(ids),
	})
}

func (h *Handler) HandleBatchStatus(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, h.batches.Status())
}

func (h *Handler) HandleCancelBatch(w http.ResponseWriter, r *http.Request) {
	if !h.batches.Cancel() {
		h.writeError(w, "No batch is running", http.StatusConflict)
		return
	}
	h.writeJSON(w, h.batches.Status())
}
