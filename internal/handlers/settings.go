package handlers

import (
	"net/http"

	"github.com/lehigh-university-libraries/alttext/internal/config"
)

// settingsPatch holds the fields a PUT may change. Secrets sent back as
// the masked placeholder are left untouched.
type settingsPatch struct {
	Provider           *string `json:"provider"`
	VisionEndpoint     *string `json:"vision_endpoint"`
	VisionKey          *string `json:"vision_key"`
	Language           *string `json:"language"`
	TranslatorEndpoint *string `json:"translator_endpoint"`
	TranslatorKey      *string `json:"translator_key"`
	TranslatorRegion   *string `json:"translator_region"`
	GeminiAPIKey       *string `json:"gemini_api_key"`
	GeminiModel        *string `json:"gemini_model"`
	AutoGenerate       *bool   `json:"auto_generate"`
}

func (p settingsPatch) apply(s *config.Settings) {
	set := func(dst *string, v *string) {
		if v != nil {
			*dst = *v
		}
	}
	secret := func(dst *string, v *string) {
		if v != nil && *v != config.MaskedValue {
			*dst = *v
		}
	}

	set(&s.Provider, p.Provider)
	set(&s.VisionEndpoint, p.VisionEndpoint)
	secret(&s.VisionKey, p.VisionKey)
	set(&s.Language, p.Language)
	set(&s.TranslatorEndpoint, p.TranslatorEndpoint)
	secret(&s.TranslatorKey, p.TranslatorKey)
	set(&s.TranslatorRegion, p.TranslatorRegion)
	secret(&s.GeminiAPIKey, p.GeminiAPIKey)
	set(&s.GeminiModel, p.GeminiModel)
	if p.AutoGenerate != nil {
		s.AutoGenerate = *p.AutoGenerate
	}
}

func (h *Handler) HandleGetSettings(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, h.settings.Settings().Masked())
}

func (h *Handler) HandleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	var patch settingsPatch
	if err := decodeJSON(r, &patch); err != nil {
		h.writeError(w, "Invalid JSON: "+err.Error(), http.StatusBadRequest)
		return
	}

	if p := patch.Provider; p != nil && *p != "" && *p != config.ProviderAzure && *p != config.ProviderGemini {
		h.writeError(w, "Invalid provider. Must be 'azure' or 'gemini'", http.StatusBadRequest)
		return
	}

	if err := h.settings.Update(patch.apply); err != nil {
		h.writeError(w, "Failed to save settings: "+err.Error(), http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, h.settings.Settings().Masked())
}
