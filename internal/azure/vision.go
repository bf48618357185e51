package azure

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/lehigh-university-libraries/alttext/internal/apperr"
	"github.com/lehigh-university-libraries/alttext/internal/config"
	"github.com/lehigh-university-libraries/alttext/internal/providers"
)

const (
	analyzePath  = "/vision/v3.2/analyze"
	analyzeQuery = "?visualFeatures=Description,Tags,Objects,Color,Faces&language=en&detail=landmarks"

	visionTimeout = 30 * time.Second
)

// Vision is a provider for Azure Computer Vision
type Vision struct {
	HTTPClient *http.Client
}

// NewVision returns a new Azure Computer Vision provider
func NewVision() *Vision {
	return &Vision{
		HTTPClient: &http.Client{
			Timeout: visionTimeout,
		},
	}
}

type analyzeResponse struct {
	Description struct {
		Captions []struct {
			Text       string  `json:"text"`
			Confidence float64 `json:"confidence"`
		} `json:"captions"`
	} `json:"description"`
	Tags []struct {
		Name string `json:"name"`
	} `json:"tags"`
	Objects []struct {
		Object string `json:"object"`
	} `json:"objects"`
	Color struct {
		DominantColors []string `json:"dominantColors"`
	} `json:"color"`
	Faces []json.RawMessage `json:"faces"`
}

func (r *analyzeResponse) features() *providers.Features {
	f := &providers.Features{
		Colors:    r.Color.DominantColors,
		FaceCount: len(r.Faces),
	}
	if len(r.Description.Captions) > 0 {
		f.Caption = r.Description.Captions[0].Text
	}
	for _, tag := range r.Tags {
		f.Tags = append(f.Tags, tag.Name)
	}
	for _, obj := range r.Objects {
		f.Objects = append(f.Objects, obj.Object)
	}
	return f
}

// Analyze sends the image URL to the analyze endpoint and returns the
// detected features. Missing response fields default to zero values.
func (v *Vision) Analyze(ctx context.Context, settings config.Settings, imageURL string) (*providers.Features, error) {
	if settings.VisionEndpoint == "" || settings.VisionKey == "" {
		return nil, apperr.New(apperr.KindCredentialsMissing, "Azure credentials missing")
	}

	url := strings.TrimRight(settings.VisionEndpoint, "/") + analyzePath + analyzeQuery
	slog.Debug("Analyzing image", "provider", config.ProviderAzure, "url", url, "image", imageURL)

	requestBody, err := json.Marshal(map[string]string{"url": imageURL})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(requestBody))
	if err != nil {
		return nil, apperr.Wrap(apperr.KindConfiguration, "Invalid Azure endpoint", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Ocp-Apim-Subscription-Key", settings.VisionKey)

	resp, err := v.HTTPClient.Do(req)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindNetwork, "Azure API error", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindNetwork, "failed to read Azure response", err)
	}

	if resp.StatusCode == http.StatusUnauthorized {
		return nil, apperr.New(apperr.KindAuthentication, "Computer Vision API Error: Invalid API key")
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, apperr.New(apperr.KindUnexpectedStatus,
			fmt.Sprintf("Computer Vision API returned status %d: %s", resp.StatusCode, truncate(string(body), 200)))
	}

	var response analyzeResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, apperr.Wrap(apperr.KindMalformedResponse, "failed to decode Azure response", err)
	}

	f := response.features()
	slog.Debug("Azure analysis complete", "caption", f.Caption, "tags", len(f.Tags), "objects", len(f.Objects), "faces", f.FaceCount)
	return f, nil
}

// Probe checks that the endpoint is reachable and the key is accepted
func (v *Vision) Probe(ctx context.Context, settings config.Settings) error {
	if settings.VisionEndpoint == "" || settings.VisionKey == "" {
		return apperr.New(apperr.KindCredentialsMissing,
			"Azure Computer Vision credentials are missing. Please enter both endpoint and API key.")
	}

	url := strings.TrimRight(settings.VisionEndpoint, "/") + analyzePath
	status, err := probe(ctx, v.HTTPClient, url, map[string]string{
		"Ocp-Apim-Subscription-Key": settings.VisionKey,
	})
	if err != nil {
		return apperr.Wrap(apperr.KindNetwork, "Computer Vision API connection failed", err)
	}
	if status == http.StatusUnauthorized {
		return apperr.New(apperr.KindAuthentication, "Computer Vision API Error: Invalid API key")
	}
	return nil
}

func probe(ctx context.Context, client *http.Client, url string, headers map[string]string) (int, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	return resp.StatusCode, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
