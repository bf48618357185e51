package alttext

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/lehigh-university-libraries/alttext/internal/apperr"
	"github.com/lehigh-university-libraries/alttext/internal/config"
	"github.com/lehigh-university-libraries/alttext/internal/library"
	"github.com/lehigh-university-libraries/alttext/internal/models"
)

// Describer produces ALT text for an image URL
type Describer interface {
	Settings() config.Settings
	AnalyzeWith(ctx context.Context, settings config.Settings, imageURL string) (string, error)
}

// Prober checks that an image URL can be fetched
type Prober interface {
	CheckReachable(ctx context.Context, imageURL string) error
}

// Service generates and saves ALT text for library images
type Service struct {
	store     library.Store
	describer Describer
	prober    Prober
}

// NewService creates a new generation service
func NewService(store library.Store, describer Describer, prober Prober) *Service {
	return &Service{
		store:     store,
		describer: describer,
		prober:    prober,
	}
}

// Store returns the library store the service writes to
func (s *Service) Store() library.Store {
	return s.store
}

// Process generates ALT text for one image with the configured language
func (s *Service) Process(ctx context.Context, id string) (string, error) {
	return s.Generate(ctx, id, "")
}

// Generate describes the image, saves the text and verifies it was stored.
// A non-empty language overrides the configured one for this call only.
func (s *Service) Generate(ctx context.Context, id, language string) (string, error) {
	settings := s.describer.Settings()
	if language != "" {
		settings.Language = language
	}

	if err := precheck(settings); err != nil {
		slog.Error("Credentials missing", "image_id", id, "provider", settings.Provider, "error", err)
		return "", err
	}

	img, err := s.store.GetImage(ctx, id)
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			return "", err
		}
		return "", apperr.Wrap(apperr.KindPersistence, "failed to load image", err)
	}

	if strings.TrimSpace(img.URL) == "" {
		return "", apperr.New(apperr.KindImageUnreachable, "Could not get image URL")
	}

	if err := s.prober.CheckReachable(ctx, img.URL); err != nil {
		slog.Error("Image not accessible", "image_id", id, "url", img.URL, "error", err)
		return "", err
	}

	text, err := s.describer.AnalyzeWith(ctx, settings, img.URL)
	if err != nil {
		slog.Error("Failed to generate ALT text", "image_id", id, "error", err)
		return "", err
	}

	if err := s.store.SetAltText(ctx, id, text); err != nil {
		slog.Error("Failed to save ALT text to database", "image_id", id, "error", err)
		return "", apperr.Wrap(apperr.KindPersistence, "Failed to save ALT text to database", err)
	}

	saved, err := s.store.GetImage(ctx, id)
	if err != nil {
		return "", apperr.Wrap(apperr.KindPersistence, "failed to re-read saved ALT text", err)
	}
	if saved.AltText == "" {
		return "", apperr.New(apperr.KindPersistence, "ALT text not saved correctly")
	}

	slog.Info("ALT text saved", "image_id", id, "language", settings.TargetLanguage(), "alt_text", saved.AltText)
	return saved.AltText, nil
}

// Register saves a new image and, when auto-generate is enabled,
// describes it right away. Generation failures are logged only.
func (s *Service) Register(ctx context.Context, img models.ImageRecord) (*models.ImageRecord, error) {
	if err := s.store.SaveImage(ctx, img); err != nil {
		return nil, apperr.Wrap(apperr.KindPersistence, "failed to register image", err)
	}

	if s.describer.Settings().AutoGenerate && library.IsImage(img.MimeType) && !img.HasAltText() {
		if _, err := s.Generate(ctx, img.ID, ""); err != nil {
			slog.Warn("Auto-generate failed", "image_id", img.ID, "error", err)
		}
	}

	saved, err := s.store.GetImage(ctx, img.ID)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindPersistence, "failed to re-read registered image", err)
	}
	return saved, nil
}

func precheck(settings config.Settings) error {
	switch settings.Provider {
	case config.ProviderAzure:
		if settings.VisionEndpoint == "" || settings.VisionKey == "" {
			return apperr.New(apperr.KindCredentialsMissing, "Azure Vision credentials not configured. Please check your settings.")
		}
	case config.ProviderGemini:
		if settings.GeminiAPIKey == "" {
			return apperr.New(apperr.KindCredentialsMissing, "Gemini API key not configured. Please check your settings.")
		}
	default:
		return apperr.New(apperr.KindConfiguration, fmt.Sprintf("unsupported provider: %s", settings.Provider))
	}

	if settings.NeedsTranslation() && settings.TranslatorKey == "" {
		return apperr.New(apperr.KindCredentialsMissing,
			fmt.Sprintf("Translator key required for %s translation", settings.TargetLanguage()))
	}
	return nil
}
