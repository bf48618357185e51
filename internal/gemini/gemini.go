package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/lehigh-university-libraries/alttext/internal/apperr"
	"github.com/lehigh-university-libraries/alttext/internal/config"
	"github.com/lehigh-university-libraries/alttext/internal/images"
	"github.com/lehigh-university-libraries/alttext/internal/providers"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

const prompt = `You are describing an image for accessibility ALT text.

Analyze the image and respond with ONLY a JSON object in the following format:

{
  "caption": "one short lowercase sentence describing the scene, without a trailing period",
  "tags": ["up to ten single-word or short tags, most relevant first"],
  "objects": ["distinct physical objects you can see, in order of prominence"],
  "colors": ["up to three dominant color names"],
  "faces": 0
}

"faces" is the number of human faces visible. Use empty arrays when nothing applies.
Do not add commentary outside the JSON object.`

// Gemini is a vision provider backed by Google Gemini
type Gemini struct {
	fetcher *images.Fetcher
}

// New returns a new Gemini provider
func New(fetcher *images.Fetcher) *Gemini {
	return &Gemini{fetcher: fetcher}
}

// Analyze downloads the image and asks Gemini for the same features the
// Azure analyze endpoint returns.
func (g *Gemini) Analyze(ctx context.Context, settings config.Settings, imageURL string) (*providers.Features, error) {
	if settings.GeminiAPIKey == "" {
		return nil, apperr.New(apperr.KindCredentialsMissing, "Gemini API key missing")
	}

	img, err := g.fetcher.Download(ctx, imageURL)
	if err != nil {
		return nil, err
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(settings.GeminiAPIKey))
	if err != nil {
		return nil, apperr.Wrap(apperr.KindNetwork, "failed to create new gemini client", err)
	}
	defer client.Close()

	model := client.GenerativeModel(settings.GeminiModel)
	model.SetTemperature(0.1)
	model.ResponseMIMEType = "application/json"

	resp, err := model.GenerateContent(ctx, genai.ImageData(img.Format, img.Data), genai.Text(prompt))
	if err != nil {
		return nil, classify(err, "failed to generate content")
	}

	if len(resp.Candidates) == 0 {
		return nil, apperr.New(apperr.KindMalformedResponse, "no candidates returned from Gemini")
	}

	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return nil, apperr.New(apperr.KindMalformedResponse, "empty content returned from Gemini")
	}

	txt, ok := candidate.Content.Parts[0].(genai.Text)
	if !ok {
		return nil, apperr.New(apperr.KindMalformedResponse, "unexpected response format from Gemini")
	}

	f, err := parseFeatures(string(txt))
	if err != nil {
		return nil, err
	}

	slog.Debug("Gemini analysis complete", "model", settings.GeminiModel, "caption", f.Caption, "tags", len(f.Tags))
	return f, nil
}

// Probe checks the API key by fetching the configured model's metadata
func (g *Gemini) Probe(ctx context.Context, settings config.Settings) error {
	if settings.GeminiAPIKey == "" {
		return apperr.New(apperr.KindCredentialsMissing, "Gemini credentials are missing. Please enter an API key.")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(settings.GeminiAPIKey))
	if err != nil {
		return apperr.Wrap(apperr.KindNetwork, "Gemini API connection failed", err)
	}
	defer client.Close()

	if _, err := client.GenerativeModel(settings.GeminiModel).Info(ctx); err != nil {
		return classify(err, "Gemini API connection failed")
	}
	return nil
}

// parseFeatures decodes the model's JSON answer, tolerating markdown fences
func parseFeatures(response string) (*providers.Features, error) {
	response = strings.TrimSpace(response)
	response = strings.TrimPrefix(response, "```json")
	response = strings.TrimPrefix(response, "```")
	response = strings.TrimSuffix(response, "```")
	response = strings.TrimSpace(response)

	var f providers.Features
	if err := json.Unmarshal([]byte(response), &f); err != nil {
		return nil, apperr.Wrap(apperr.KindMalformedResponse, "failed to parse Gemini response", err)
	}
	if f.FaceCount < 0 {
		f.FaceCount = 0
	}
	return &f, nil
}

func classify(err error, message string) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		switch gerr.Code {
		case http.StatusUnauthorized, http.StatusForbidden:
			return apperr.Wrap(apperr.KindAuthentication, "Gemini API Error: Invalid API key", err)
		default:
			return apperr.Wrap(apperr.KindUnexpectedStatus, fmt.Sprintf("Gemini API returned status %d", gerr.Code), err)
		}
	}
	return apperr.Wrap(apperr.KindNetwork, message, err)
}
