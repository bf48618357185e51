package alttext

import (
	"context"
	"errors"
	"testing"

	"github.com/lehigh-university-libraries/alttext/internal/apperr"
	"github.com/lehigh-university-libraries/alttext/internal/config"
	"github.com/lehigh-university-libraries/alttext/internal/models"
	"github.com/lehigh-university-libraries/alttext/internal/storage"
)

type fakeDescriber struct {
	settings config.Settings
	text     string
	err      error
	calls    int
	language string
}

func (f *fakeDescriber) Settings() config.Settings {
	return f.settings.WithDefaults()
}

func (f *fakeDescriber) AnalyzeWith(ctx context.Context, settings config.Settings, imageURL string) (string, error) {
	f.calls++
	f.language = settings.Language
	return f.text, f.err
}

type fakeProber struct {
	err error
}

func (f fakeProber) CheckReachable(ctx context.Context, imageURL string) error {
	return f.err
}

// blankStore accepts writes but never stores ALT text
type blankStore struct {
	*storage.MemoryStore
}

func (b blankStore) SetAltText(ctx context.Context, id, altText string) error {
	return nil
}

var azureSettings = config.Settings{VisionEndpoint: "https://vision.example.com", VisionKey: "k"}

func TestGenerate(t *testing.T) {
	store := storage.NewMemoryStore(models.ImageRecord{ID: "1", URL: "https://example.com/cat.jpg"})
	describer := &fakeDescriber{settings: azureSettings, text: "A cat."}
	svc := NewService(store, describer, fakeProber{})

	text, err := svc.Generate(context.Background(), "1", "")
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if text != "A cat." {
		t.Errorf("Expected %q, got %q", "A cat.", text)
	}

	img, _ := store.GetImage(context.Background(), "1")
	if img.AltText != "A cat." {
		t.Errorf("Expected stored alt text, got %q", img.AltText)
	}
}

func TestGenerateLanguageOverride(t *testing.T) {
	store := storage.NewMemoryStore(models.ImageRecord{ID: "1", URL: "https://example.com/cat.jpg"})
	settings := azureSettings
	settings.TranslatorKey = "tk"
	describer := &fakeDescriber{settings: settings, text: "Kissa."}
	svc := NewService(store, describer, fakeProber{})

	if _, err := svc.Generate(context.Background(), "1", "fi"); err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if describer.language != "fi" {
		t.Errorf("Expected language override fi, got %q", describer.language)
	}
}

func TestGenerateErrors(t *testing.T) {
	unreachable := apperr.New(apperr.KindImageUnreachable, "Image not accessible. Status code: 404")

	tests := []struct {
		name     string
		settings config.Settings
		language string
		id       string
		url      string
		probeErr error
		analyze  error
		blank    bool
		expected apperr.Kind
		calls    int
	}{
		{name: "vision credentials missing", settings: config.Settings{VisionEndpoint: "https://x"}, id: "1", expected: apperr.KindCredentialsMissing},
		{name: "gemini key missing", settings: config.Settings{Provider: config.ProviderGemini}, id: "1", expected: apperr.KindCredentialsMissing},
		{name: "translator key missing", settings: azureSettings, language: "fi", id: "1", expected: apperr.KindCredentialsMissing},
		{name: "unknown image", settings: azureSettings, id: "missing", expected: apperr.KindNotFound},
		{name: "empty url", settings: azureSettings, id: "1", url: " ", expected: apperr.KindImageUnreachable},
		{name: "image unreachable", settings: azureSettings, id: "1", probeErr: unreachable, expected: apperr.KindImageUnreachable},
		{name: "analysis fails", settings: azureSettings, id: "1", analyze: apperr.New(apperr.KindAuthentication, "bad key"), expected: apperr.KindAuthentication, calls: 1},
		{name: "save not verified", settings: azureSettings, id: "1", blank: true, expected: apperr.KindPersistence, calls: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			url := tt.url
			if url == "" {
				url = "https://example.com/cat.jpg"
			}
			mem := storage.NewMemoryStore(models.ImageRecord{ID: "1", URL: url})
			describer := &fakeDescriber{settings: tt.settings, text: "A cat.", err: tt.analyze}

			svc := NewService(mem, describer, fakeProber{err: tt.probeErr})
			if tt.blank {
				svc = NewService(blankStore{mem}, describer, fakeProber{})
			}

			_, err := svc.Generate(context.Background(), tt.id, tt.language)
			if !apperr.Is(err, tt.expected) {
				t.Errorf("Expected %s, got %v", tt.expected, err)
			}
			if describer.calls != tt.calls {
				t.Errorf("Expected %d analyze calls, got %d", tt.calls, describer.calls)
			}
		})
	}
}

func TestRegister(t *testing.T) {
	tests := []struct {
		name         string
		autoGenerate bool
		img          models.ImageRecord
		analyzeErr   error
		expectedAlt  string
	}{
		{
			name:        "auto-generate disabled",
			img:         models.ImageRecord{ID: "1", URL: "https://example.com/a.jpg"},
			expectedAlt: "",
		},
		{
			name:         "auto-generate enabled",
			autoGenerate: true,
			img:          models.ImageRecord{ID: "1", URL: "https://example.com/a.jpg", MimeType: "image/jpeg"},
			expectedAlt:  "A cat.",
		},
		{
			name:         "existing alt text kept",
			autoGenerate: true,
			img:          models.ImageRecord{ID: "1", URL: "https://example.com/a.jpg", AltText: "Mine."},
			expectedAlt:  "Mine.",
		},
		{
			name:         "non-image skipped",
			autoGenerate: true,
			img:          models.ImageRecord{ID: "1", URL: "https://example.com/a.pdf", MimeType: "application/pdf"},
			expectedAlt:  "",
		},
		{
			name:         "generation failure does not fail registration",
			autoGenerate: true,
			img:          models.ImageRecord{ID: "1", URL: "https://example.com/a.jpg"},
			analyzeErr:   errors.New("boom"),
			expectedAlt:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			settings := azureSettings
			settings.AutoGenerate = tt.autoGenerate
			svc := NewService(storage.NewMemoryStore(), &fakeDescriber{settings: settings, text: "A cat.", err: tt.analyzeErr}, fakeProber{})

			img, err := svc.Register(context.Background(), tt.img)
			if err != nil {
				t.Fatalf("Register failed: %v", err)
			}
			if img.AltText != tt.expectedAlt {
				t.Errorf("Expected alt text %q, got %q", tt.expectedAlt, img.AltText)
			}
		})
	}
}
