package handlers

import (
	"net/http"
	"strings"

	"github.com/lehigh-university-libraries/alttext/internal/library"
)

func (h *Handler) HandleScanImages(w http.ResponseWriter, r *http.Request) {
	result, err := library.ScanMissing(r.Context(), h.source)
	if err != nil {
		h.writeError(w, "Error fetching images: "+err.Error(), http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, result)
}

func (h *Handler) HandleGetAllImages(w http.ResponseWriter, r *http.Request) {
	images, err := library.ScanAll(r.Context(), h.source)
	if err != nil {
		h.writeError(w, "Error fetching images: "+err.Error(), http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, map[string]any{
		"total":  len(images),
		"images": images,
	})
}

func (h *Handler) HandleProcessSingleImage(w http.ResponseWriter, r *http.Request) {
	var request struct {
		ImageID  flexID `json:"image_id"`
		Language string `json:"language"`
	}

	if err := decodeJSON(r, &request); err != nil {
		h.writeError(w, "Invalid JSON: "+err.Error(), http.StatusBadRequest)
		return
	}

	if request.ImageID == "" {
		h.writeError(w, "No image ID provided", http.StatusBadRequest)
		return
	}

	id := string(request.ImageID)
	altText, err := h.generator.Generate(r.Context(), id, request.Language)
	if err != nil {
		h.writeAppError(w, err)
		return
	}

	h.writeJSON(w, map[string]any{
		"id":       id,
		"alt_text": altText,
	})
}

func (h *Handler) HandleTestConnection(w http.ResponseWriter, r *http.Request) {
	markers, err := h.tester.TestConnection(r.Context())
	if err != nil {
		h.writeAppError(w, err)
		return
	}

	h.writeJSON(w, map[string]any{
		"markers": markers,
		"message": strings.Join(markers, "\n"),
	})
}
