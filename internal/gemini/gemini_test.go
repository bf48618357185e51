package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/lehigh-university-libraries/alttext/internal/apperr"
	"github.com/lehigh-university-libraries/alttext/internal/config"
	"github.com/lehigh-university-libraries/alttext/internal/images"
	"google.golang.org/api/googleapi"
)

func TestParseFeatures(t *testing.T) {
	tests := []struct {
		name     string
		response string
		caption  string
		tags     int
		faces    int
	}{
		{
			name:     "plain json",
			response: `{"caption":"a red bicycle","tags":["bicycle","street"],"objects":["bicycle"],"colors":["red"],"faces":0}`,
			caption:  "a red bicycle",
			tags:     2,
		},
		{
			name:     "fenced json",
			response: "```json\n{\"caption\":\"two people talking\",\"faces\":2}\n```",
			caption:  "two people talking",
			faces:    2,
		},
		{
			name:     "negative faces clamped",
			response: `{"caption":"x","faces":-3}`,
			caption:  "x",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := parseFeatures(tt.response)
			if err != nil {
				t.Fatalf("parseFeatures failed: %v", err)
			}
			if f.Caption != tt.caption {
				t.Errorf("Expected caption %q, got %q", tt.caption, f.Caption)
			}
			if len(f.Tags) != tt.tags {
				t.Errorf("Expected %d tags, got %d", tt.tags, len(f.Tags))
			}
			if f.FaceCount != tt.faces {
				t.Errorf("Expected %d faces, got %d", tt.faces, f.FaceCount)
			}
		})
	}
}

func TestParseFeaturesMalformed(t *testing.T) {
	_, err := parseFeatures("I see a cat.")
	if !apperr.Is(err, apperr.KindMalformedResponse) {
		t.Errorf("Expected malformed response, got %v", err)
	}
}

func TestAnalyzeCredentialsMissing(t *testing.T) {
	g := New(images.NewFetcher())
	_, err := g.Analyze(context.Background(), config.Settings{}, "https://example.com/a.jpg")
	if !apperr.Is(err, apperr.KindCredentialsMissing) {
		t.Errorf("Expected credentials missing, got %v", err)
	}

	if err := g.Probe(context.Background(), config.Settings{}); !apperr.Is(err, apperr.KindCredentialsMissing) {
		t.Errorf("Expected credentials missing from probe, got %v", err)
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected apperr.Kind
	}{
		{name: "forbidden", err: &googleapi.Error{Code: http.StatusForbidden}, expected: apperr.KindAuthentication},
		{name: "wrapped unauthorized", err: fmt.Errorf("call: %w", &googleapi.Error{Code: http.StatusUnauthorized}), expected: apperr.KindAuthentication},
		{name: "quota", err: &googleapi.Error{Code: http.StatusTooManyRequests}, expected: apperr.KindUnexpectedStatus},
		{name: "transport", err: errors.New("connection reset"), expected: apperr.KindNetwork},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := apperr.KindOf(classify(tt.err, "failed")); got != tt.expected {
				t.Errorf("Expected %s, got %s", tt.expected, got)
			}
		})
	}
}
