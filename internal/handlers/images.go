package handlers

import (
	"net/http"
	"strings"

	"github.com/lehigh-university-libraries/alttext/internal/models"
)

func (h *Handler) HandleRegisterImage(w http.ResponseWriter, r *http.Request) {
	var request struct {
		ID           flexID `json:"id"`
		Title        string `json:"title"`
		URL          string `json:"url"`
		ThumbnailURL string `json:"thumbnail_url"`
		AltText      string `json:"alt_text"`
		MimeType     string `json:"mime_type"`
	}

	if err := decodeJSON(r, &request); err != nil {
		h.writeError(w, "Invalid JSON: "+err.Error(), http.StatusBadRequest)
		return
	}

	if request.ID == "" {
		h.writeError(w, "id is required", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(request.URL) == "" {
		h.writeError(w, "url is required", http.StatusBadRequest)
		return
	}

	img, err := h.generator.Register(r.Context(), models.ImageRecord{
		ID:           string(request.ID),
		Title:        request.Title,
		URL:          request.URL,
		ThumbnailURL: request.ThumbnailURL,
		AltText:      request.AltText,
		MimeType:     request.MimeType,
	})
	if err != nil {
		h.writeAppError(w, err)
		return
	}

	h.writeJSON(w, img)
}
