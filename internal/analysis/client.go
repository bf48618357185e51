package analysis

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/lehigh-university-libraries/alttext/internal/apperr"
	"github.com/lehigh-university-libraries/alttext/internal/config"
	"github.com/lehigh-university-libraries/alttext/internal/providers"
)

const (
	MarkerVision     = "Computer Vision API connection successful"
	MarkerGemini     = "Gemini API connection successful"
	MarkerTranslator = "Translator API connection successful"
	MarkerReady      = "Ready to process images!"
)

// Client turns an image URL into a finished ALT text: one vision request,
// the formatter, then an optional translation.
type Client struct {
	settings   config.Provider
	analyzers  map[string]providers.Analyzer
	translator providers.Translator
}

// NewClient creates a client. analyzers is keyed by provider name.
func NewClient(settings config.Provider, analyzers map[string]providers.Analyzer, translator providers.Translator) *Client {
	return &Client{
		settings:   settings,
		analyzers:  analyzers,
		translator: translator,
	}
}

// Settings returns the settings the next request would use
func (c *Client) Settings() config.Settings {
	return c.settings.Settings()
}

// Analyze describes the image at imageURL using the current settings
func (c *Client) Analyze(ctx context.Context, imageURL string) (string, error) {
	return c.AnalyzeWith(ctx, c.settings.Settings(), imageURL)
}

// AnalyzeWith describes the image at imageURL using explicit settings
func (c *Client) AnalyzeWith(ctx context.Context, settings config.Settings, imageURL string) (string, error) {
	analyzer, err := c.analyzer(settings)
	if err != nil {
		return "", err
	}

	features, err := analyzer.Analyze(ctx, settings, imageURL)
	if err != nil {
		return "", err
	}

	text := Format(*features)
	slog.Debug("Description formatted", "provider", settings.Provider, "url", imageURL, "text", text)

	if !settings.TranslationEnabled() || c.translator == nil {
		return text, nil
	}

	target := settings.TargetLanguage()
	translated, err := c.translator.Translate(ctx, settings, text, target)
	if err != nil {
		slog.Warn("Translation failed, using English description", "language", target, "error", err)
		return text, nil
	}

	translated = strings.TrimSpace(translated)
	if translated == "" {
		slog.Warn("Translation was empty, using English description", "language", target)
		return text, nil
	}

	return ensureTerminalPunctuation(upperFirst(translated)), nil
}

// TestConnection probes the configured provider and, when the language
// needs it, the translator. It returns the success markers collected
// before the first failure.
func (c *Client) TestConnection(ctx context.Context) ([]string, error) {
	settings := c.settings.Settings()

	analyzer, err := c.analyzer(settings)
	if err != nil {
		return nil, err
	}

	var markers []string
	if err := analyzer.Probe(ctx, settings); err != nil {
		return markers, err
	}
	if settings.Provider == config.ProviderGemini {
		markers = append(markers, MarkerGemini)
	} else {
		markers = append(markers, MarkerVision)
	}

	if settings.NeedsTranslation() {
		if c.translator == nil {
			return markers, apperr.New(apperr.KindConfiguration, "no translator configured")
		}
		if err := c.translator.Probe(ctx, settings); err != nil {
			return markers, err
		}
		markers = append(markers, MarkerTranslator)
	}

	markers = append(markers, MarkerReady)
	slog.Info("Connection test passed", "provider", settings.Provider, "language", settings.Language)
	return markers, nil
}

func (c *Client) analyzer(settings config.Settings) (providers.Analyzer, error) {
	analyzer, ok := c.analyzers[settings.Provider]
	if !ok {
		return nil, apperr.New(apperr.KindConfiguration, fmt.Sprintf("unsupported provider: %s", settings.Provider))
	}
	return analyzer, nil
}
