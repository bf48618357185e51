package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

const (
	ProviderAzure  = "azure"
	ProviderGemini = "gemini"

	DefaultProvider           = ProviderAzure
	DefaultLanguage           = "en"
	DefaultTranslatorEndpoint = "https://api.cognitive.microsofttranslator.com/"
	DefaultTranslatorRegion   = "westeurope"
	DefaultGeminiModel        = "gemini-1.5-flash"

	// MaskedValue replaces secrets when settings are displayed
	MaskedValue = "********"
)

// Settings holds the values an analysis request reads before it runs
type Settings struct {
	Provider           string `yaml:"provider,omitempty" json:"provider"`
	VisionEndpoint     string `yaml:"vision_endpoint,omitempty" json:"vision_endpoint"`
	VisionKey          string `yaml:"vision_key,omitempty" json:"vision_key"`
	Language           string `yaml:"language,omitempty" json:"language"`
	TranslatorEndpoint string `yaml:"translator_endpoint,omitempty" json:"translator_endpoint"`
	TranslatorKey      string `yaml:"translator_key,omitempty" json:"translator_key"`
	TranslatorRegion   string `yaml:"translator_region,omitempty" json:"translator_region"`
	GeminiAPIKey       string `yaml:"gemini_api_key,omitempty" json:"gemini_api_key"`
	GeminiModel        string `yaml:"gemini_model,omitempty" json:"gemini_model"`
	AutoGenerate       bool   `yaml:"auto_generate,omitempty" json:"auto_generate"`
}

// Provider supplies the current settings
type Provider interface {
	Settings() Settings
}

// WithDefaults fills every empty field that has a default
func (s Settings) WithDefaults() Settings {
	if s.Provider == "" {
		s.Provider = DefaultProvider
	}
	if s.Language == "" {
		s.Language = DefaultLanguage
	}
	if s.TranslatorEndpoint == "" {
		s.TranslatorEndpoint = DefaultTranslatorEndpoint
	}
	if s.TranslatorRegion == "" {
		s.TranslatorRegion = DefaultTranslatorRegion
	}
	if s.GeminiModel == "" {
		s.GeminiModel = DefaultGeminiModel
	}
	return s
}

// TargetLanguage returns the primary subtag of the configured language,
// e.g. "fi" for "fi-FI".
func (s Settings) TargetLanguage() string {
	lang := strings.TrimSpace(s.Language)
	if lang == "" {
		return DefaultLanguage
	}
	primary, _, _ := strings.Cut(lang, "-")
	return strings.ToLower(primary)
}

// NeedsTranslation reports whether descriptions must be translated
// out of English for the configured language.
func (s Settings) NeedsTranslation() bool {
	return s.TargetLanguage() != DefaultLanguage
}

// TranslationEnabled reports whether a translation request will be made
func (s Settings) TranslationEnabled() bool {
	return s.NeedsTranslation() && s.TranslatorKey != ""
}

// Masked returns a copy with secrets hidden
func (s Settings) Masked() Settings {
	mask := func(v string) string {
		if v == "" {
			return ""
		}
		return MaskedValue
	}
	s.VisionKey = mask(s.VisionKey)
	s.TranslatorKey = mask(s.TranslatorKey)
	s.GeminiAPIKey = mask(s.GeminiAPIKey)
	return s
}

// Store is a YAML-backed settings store. Environment variables take
// precedence over the file and are never written back to it.
type Store struct {
	path string
	mu   sync.RWMutex
	file Settings
	env  Settings
}

// NewStore returns an in-memory store seeded with s
func NewStore(s Settings) *Store {
	return &Store{file: s}
}

// Load reads settings from path (a missing file is not an error) and
// captures environment overrides.
func Load(path string) (*Store, error) {
	store := &Store{path: path, env: fromEnv()}

	if path == "" {
		return store, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		slog.Debug("Settings file not found, using defaults", "path", path)
		return store, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read settings file: %w", err)
	}

	if err := yaml.Unmarshal(data, &store.file); err != nil {
		return nil, fmt.Errorf("failed to parse settings file: %w", err)
	}

	slog.Debug("Settings loaded", "path", path)
	return store, nil
}

// Settings returns the effective settings
func (s *Store) Settings() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return overlay(s.file, s.env).WithDefaults()
}

// Update applies fn to the file-backed settings and saves them
func (s *Store) Update(fn func(*Settings)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.file
	fn(&next)
	if err := s.save(next); err != nil {
		return err
	}
	s.file = next
	return nil
}

func (s *Store) save(settings Settings) error {
	if s.path == "" {
		return nil
	}

	data, err := yaml.Marshal(&settings)
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}

	if err := os.WriteFile(s.path, data, 0600); err != nil {
		return fmt.Errorf("failed to write settings file: %w", err)
	}
	return nil
}

func fromEnv() Settings {
	autoGenerate, _ := strconv.ParseBool(getEnv("ALT_TEXT_AUTO_GENERATE", "false"))
	return Settings{
		Provider:           getEnv("ALT_TEXT_PROVIDER", ""),
		VisionEndpoint:     getEnv("AZURE_VISION_ENDPOINT", ""),
		VisionKey:          getEnv("AZURE_VISION_KEY", ""),
		Language:           getEnv("ALT_TEXT_LANGUAGE", ""),
		TranslatorEndpoint: getEnv("AZURE_TRANSLATOR_ENDPOINT", ""),
		TranslatorKey:      getEnv("AZURE_TRANSLATOR_KEY", ""),
		TranslatorRegion:   getEnv("AZURE_TRANSLATOR_REGION", ""),
		GeminiAPIKey:       getEnv("GEMINI_API_KEY", ""),
		GeminiModel:        getEnv("GEMINI_MODEL", ""),
		AutoGenerate:       autoGenerate,
	}
}

func overlay(base, top Settings) Settings {
	pick := func(a, b string) string {
		if b != "" {
			return b
		}
		return a
	}
	return Settings{
		Provider:           pick(base.Provider, top.Provider),
		VisionEndpoint:     pick(base.VisionEndpoint, top.VisionEndpoint),
		VisionKey:          pick(base.VisionKey, top.VisionKey),
		Language:           pick(base.Language, top.Language),
		TranslatorEndpoint: pick(base.TranslatorEndpoint, top.TranslatorEndpoint),
		TranslatorKey:      pick(base.TranslatorKey, top.TranslatorKey),
		TranslatorRegion:   pick(base.TranslatorRegion, top.TranslatorRegion),
		GeminiAPIKey:       pick(base.GeminiAPIKey, top.GeminiAPIKey),
		GeminiModel:        pick(base.GeminiModel, top.GeminiModel),
		AutoGenerate:       base.AutoGenerate || top.AutoGenerate,
	}
}

// getEnv returns the environment value for key, or defaultValue when unset
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
