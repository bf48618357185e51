package azure

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/lehigh-university-libraries/alttext/internal/apperr"
	"github.com/lehigh-university-libraries/alttext/internal/config"
)

const translatorTimeout = 15 * time.Second

// Translator is a provider for Azure Translator
type Translator struct {
	HTTPClient *http.Client
}

// NewTranslator returns a new Azure Translator provider
func NewTranslator() *Translator {
	return &Translator{
		HTTPClient: &http.Client{
			Timeout: translatorTimeout,
		},
	}
}

// Translate translates English text into targetLanguage
func (t *Translator) Translate(ctx context.Context, settings config.Settings, text, targetLanguage string) (string, error) {
	if settings.TranslatorKey == "" {
		return "", apperr.New(apperr.KindCredentialsMissing, "Translator key missing")
	}

	endpoint := strings.TrimRight(settings.TranslatorEndpoint, "/")
	u := fmt.Sprintf("%s/translate?api-version=3.0&to=%s&from=en", endpoint, url.QueryEscape(targetLanguage))
	slog.Debug("Translating text", "url", u, "region", settings.TranslatorRegion)

	requestBody, err := json.Marshal([]map[string]string{{"text": text}})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", u, bytes.NewBuffer(requestBody))
	if err != nil {
		return "", apperr.Wrap(apperr.KindConfiguration, "Invalid translator endpoint", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Ocp-Apim-Subscription-Key", settings.TranslatorKey)
	req.Header.Set("Ocp-Apim-Subscription-Region", settings.TranslatorRegion)

	resp, err := t.HTTPClient.Do(req)
	if err != nil {
		return "", apperr.Wrap(apperr.KindNetwork, "Translation error", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", apperr.Wrap(apperr.KindNetwork, "failed to read translation response", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", apperr.New(apperr.KindUnexpectedStatus,
			fmt.Sprintf("Translation API error. Status: %d, Response: %s", resp.StatusCode, truncate(string(body), 200)))
	}

	var response []struct {
		Translations []struct {
			Text string `json:"text"`
			To   string `json:"to"`
		} `json:"translations"`
	}
	if err := json.Unmarshal(body, &response); err != nil {
		return "", apperr.Wrap(apperr.KindMalformedResponse, "failed to decode translation response", err)
	}

	if len(response) == 0 || len(response[0].Translations) == 0 {
		return "", apperr.New(apperr.KindMalformedResponse, "Translation failed - no translation in response")
	}

	return response[0].Translations[0].Text, nil
}

// Probe checks that the translator endpoint accepts the configured key
func (t *Translator) Probe(ctx context.Context, settings config.Settings) error {
	if settings.TranslatorKey == "" {
		return apperr.New(apperr.KindCredentialsMissing,
			"Translation is enabled but Translator API key is missing.")
	}

	u := strings.TrimRight(settings.TranslatorEndpoint, "/") + "/languages?api-version=3.0"
	status, err := probe(ctx, t.HTTPClient, u, map[string]string{
		"Ocp-Apim-Subscription-Key": settings.TranslatorKey,
	})
	if err != nil {
		return apperr.Wrap(apperr.KindNetwork, "Translator API connection failed", err)
	}
	if status == http.StatusUnauthorized {
		return apperr.New(apperr.KindAuthentication, "Translator API Error: Invalid API key")
	}
	return nil
}
