package providers

import (
	"context"

	"github.com/lehigh-university-libraries/alttext/internal/config"
)

// Features is the raw output of a vision analysis
type Features struct {
	Caption   string   `json:"caption"`
	Tags      []string `json:"tags"`
	Objects   []string `json:"objects"`
	Colors    []string `json:"colors"`
	FaceCount int      `json:"faces"`
}

// Analyzer defines the interface for a vision-analysis provider
type Analyzer interface {
	// Analyze runs a single analysis request for the image at imageURL
	Analyze(ctx context.Context, settings config.Settings, imageURL string) (*Features, error)
	// Probe performs a lightweight reachability and credentials check
	Probe(ctx context.Context, settings config.Settings) error
}

// Translator defines the interface for a text translation provider
type Translator interface {
	Translate(ctx context.Context, settings config.Settings, text, targetLanguage string) (string, error)
	Probe(ctx context.Context, settings config.Settings) error
}
