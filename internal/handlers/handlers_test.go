package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/lehigh-university-libraries/alttext/internal/alttext"
	"github.com/lehigh-university-libraries/alttext/internal/apperr"
	"github.com/lehigh-university-libraries/alttext/internal/batch"
	"github.com/lehigh-university-libraries/alttext/internal/config"
	"github.com/lehigh-university-libraries/alttext/internal/models"
	"github.com/lehigh-university-libraries/alttext/internal/storage"
)

type fakeDescriber struct {
	settings *config.Store
}

func (f fakeDescriber) Settings() config.Settings {
	return f.settings.Settings()
}

func (f fakeDescriber) AnalyzeWith(ctx context.Context, settings config.Settings, imageURL string) (string, error) {
	if strings.Contains(imageURL, "broken") {
		return "", apperr.New(apperr.KindAuthentication, "Computer Vision API Error: Invalid API key")
	}
	return "A picture in " + settings.TargetLanguage() + ".", nil
}

type fakeProber struct{}

func (fakeProber) CheckReachable(ctx context.Context, imageURL string) error {
	return nil
}

type fakeTester struct {
	markers []string
	err     error
}

func (f fakeTester) TestConnection(ctx context.Context) ([]string, error) {
	return f.markers, f.err
}

// blockingBatches reports a run in progress and rejects new ones
type blockingBatches struct{}

func (blockingBatches) Launch(ctx context.Context, ids []string) (string, error) {
	return "", batch.ErrRunning
}
func (blockingBatches) Cancel() bool         { return false }
func (blockingBatches) Status() batch.Status { return batch.Status{Running: true} }

type testEnv struct {
	store    *storage.MemoryStore
	settings *config.Store
	driver   *batch.Driver
	router   http.Handler
}

func newTestEnv(t *testing.T, tester ConnectionTester, batches BatchController) *testEnv {
	t.Helper()
	store := storage.NewMemoryStore(
		models.ImageRecord{ID: "1", Title: "Cat", URL: "https://example.com/cat.jpg", MimeType: "image/jpeg"},
		models.ImageRecord{ID: "2", Title: "Dog", URL: "https://example.com/dog.jpg", AltText: "A dog."},
		models.ImageRecord{ID: "3", Title: "Broken", URL: "https://example.com/broken.jpg"},
		models.ImageRecord{ID: "4", Title: "Report", URL: "https://example.com/r.pdf", MimeType: "application/pdf"},
	)
	settings := config.NewStore(config.Settings{VisionEndpoint: "https://vision.example.com", VisionKey: "secret", TranslatorKey: "tsecret"})
	svc := alttext.NewService(store, fakeDescriber{settings: settings}, fakeProber{})

	driver := batch.NewDriver(svc, nil, batch.Options{Sleep: func(ctx context.Context, d time.Duration) error { return nil }})
	if batches == nil {
		batches = driver
	}
	if tester == nil {
		tester = fakeTester{markers: []string{"Computer Vision API connection successful", "Ready to process images!"}}
	}

	h := New(Options{
		Source:    store,
		Generator: svc,
		Tester:    tester,
		Batches:   batches,
		Settings:  settings,
	})
	return &testEnv{store: store, settings: settings, driver: driver, router: NewRouter(h)}
}

type response struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Kind    string          `json:"kind"`
}

func (e *testEnv) do(t *testing.T, method, path, body string) (int, response) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)

	var resp response
	if rec.Code != http.StatusOK || strings.HasPrefix(path, "/api") {
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("Failed to decode response %q: %v", rec.Body.String(), err)
		}
	}
	return rec.Code, resp
}

func TestHealthcheck(t *testing.T) {
	env := newTestEnv(t, nil, nil)
	req := httptest.NewRequest("GET", "/healthcheck", nil)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || rec.Body.String() != "OK" {
		t.Errorf("Expected 200 OK, got %d %q", rec.Code, rec.Body.String())
	}
}

func TestScanImages(t *testing.T) {
	env := newTestEnv(t, nil, nil)
	code, resp := env.do(t, "POST", "/api/actions/scan_images", "")
	if code != http.StatusOK || !resp.Success {
		t.Fatalf("Expected success, got %d %+v", code, resp)
	}

	var result models.ScanResult
	if err := json.Unmarshal(resp.Data, &result); err != nil {
		t.Fatalf("Failed to decode scan result: %v", err)
	}
	if result.Total != 3 || result.WithAlt != 1 || result.WithoutAlt != 2 {
		t.Errorf("Expected {3 1 2}, got {%d %d %d}", result.Total, result.WithAlt, result.WithoutAlt)
	}
}

func TestGetAllImages(t *testing.T) {
	env := newTestEnv(t, nil, nil)
	_, resp := env.do(t, "POST", "/api/actions/get_all_images", "")

	var data struct {
		Total  int                  `json:"total"`
		Images []models.ImageRecord `json:"images"`
	}
	if err := json.Unmarshal(resp.Data, &data); err != nil {
		t.Fatalf("Failed to decode: %v", err)
	}
	if data.Total != 3 || len(data.Images) != 3 {
		t.Errorf("Expected 3 images, got %d", data.Total)
	}
}

func TestProcessSingleImage(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		code     int
		kind     string
		expected string
	}{
		{name: "string id", body: `{"image_id":"1"}`, code: http.StatusOK, expected: "A picture in en."},
		{name: "numeric id with language", body: `{"image_id":1,"language":"fi"}`, code: http.StatusOK, expected: "A picture in fi."},
		{name: "missing id", body: `{}`, code: http.StatusBadRequest},
		{name: "bad json", body: `{`, code: http.StatusBadRequest},
		{name: "unknown image", body: `{"image_id":"99"}`, code: http.StatusNotFound, kind: string(apperr.KindNotFound)},
		{name: "analysis failure", body: `{"image_id":"3"}`, code: http.StatusBadGateway, kind: string(apperr.KindAuthentication)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, nil, nil)
			code, resp := env.do(t, "POST", "/api/actions/process_single_image", tt.body)
			if code != tt.code {
				t.Fatalf("Expected status %d, got %d (%s)", tt.code, code, resp.Data)
			}
			if resp.Kind != tt.kind {
				t.Errorf("Expected kind %q, got %q", tt.kind, resp.Kind)
			}
			if tt.expected == "" {
				if resp.Success {
					t.Error("Expected failure envelope")
				}
				return
			}

			var data struct {
				ID      string `json:"id"`
				AltText string `json:"alt_text"`
			}
			if err := json.Unmarshal(resp.Data, &data); err != nil {
				t.Fatalf("Failed to decode: %v", err)
			}
			if data.ID != "1" || data.AltText != tt.expected {
				t.Errorf("Expected id 1 with %q, got %+v", tt.expected, data)
			}

			img, _ := env.store.GetImage(context.Background(), "1")
			if img.AltText != tt.expected {
				t.Errorf("Expected stored alt text %q, got %q", tt.expected, img.AltText)
			}
		})
	}
}

func TestTestConnection(t *testing.T) {
	env := newTestEnv(t, nil, nil)
	code, resp := env.do(t, "POST", "/api/actions/test_azure_connection", "")
	if code != http.StatusOK || !strings.Contains(string(resp.Data), "Ready to process images!") {
		t.Errorf("Expected markers, got %d %s", code, resp.Data)
	}

	env = newTestEnv(t, fakeTester{err: apperr.New(apperr.KindCredentialsMissing, "Azure Computer Vision credentials are missing. Please enter both endpoint and API key.")}, nil)
	code, resp = env.do(t, "POST", "/api/actions/test_azure_connection", "")
	if code != http.StatusBadRequest || resp.Success {
		t.Errorf("Expected 400 failure, got %d %+v", code, resp)
	}
	var message string
	_ = json.Unmarshal(resp.Data, &message)
	if !strings.HasPrefix(message, "Azure Computer Vision credentials are missing") {
		t.Errorf("Unexpected message: %q", message)
	}
}

func TestStartBatch(t *testing.T) {
	env := newTestEnv(t, nil, nil)
	code, resp := env.do(t, "POST", "/api/batches", `{"mode":"missing"}`)
	if code != http.StatusOK || !resp.Success {
		t.Fatalf("Expected success, got %d %s", code, resp.Data)
	}

	var data struct {
		RunID string `json:"run_id"`
		Total int    `json:"total"`
	}
	if err := json.Unmarshal(resp.Data, &data); err != nil {
		t.Fatalf("Failed to decode: %v", err)
	}
	if data.RunID == "" || data.Total != 2 {
		t.Errorf("Expected a run over 2 images, got %+v", data)
	}

	deadline := time.Now().Add(2 * time.Second)
	for env.driver.Status().Running && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}

	_, resp = env.do(t, "GET", "/api/batches/current", "")
	var status batch.Status
	if err := json.Unmarshal(resp.Data, &status); err != nil {
		t.Fatalf("Failed to decode status: %v", err)
	}
	if status.Running || status.Completed != 2 || status.Failed != 1 || status.RunID != data.RunID {
		t.Errorf("Unexpected final status: %+v", status)
	}

	img, _ := env.store.GetImage(context.Background(), "1")
	if img.AltText == "" {
		t.Error("Expected batch to store alt text for image 1")
	}
}

func TestStartBatchRequests(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		batches BatchController
		code    int
	}{
		{name: "explicit ids", body: `{"image_ids":[1,"2"]}`, code: http.StatusOK},
		{name: "all", body: `{"mode":"all"}`, code: http.StatusOK},
		{name: "invalid mode", body: `{"mode":"some"}`, code: http.StatusBadRequest},
		{name: "already running", body: `{"mode":"all"}`, batches: blockingBatches{}, code: http.StatusConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, nil, tt.batches)
			code, resp := env.do(t, "POST", "/api/batches", tt.body)
			if code != tt.code {
				t.Errorf("Expected %d, got %d (%s)", tt.code, code, resp.Data)
			}
		})
	}
}

func TestCancelBatchIdle(t *testing.T) {
	env := newTestEnv(t, nil, nil)
	code, resp := env.do(t, "POST", "/api/batches/current/cancel", "")
	if code != http.StatusConflict || resp.Success {
		t.Errorf("Expected 409 failure, got %d %+v", code, resp)
	}
}

func TestSettings(t *testing.T) {
	env := newTestEnv(t, nil, nil)

	_, resp := env.do(t, "GET", "/api/settings", "")
	var got config.Settings
	if err := json.Unmarshal(resp.Data, &got); err != nil {
		t.Fatalf("Failed to decode settings: %v", err)
	}
	if got.VisionKey != config.MaskedValue || got.GeminiAPIKey != "" {
		t.Errorf("Expected masked keys, got %+v", got)
	}

	code, _ := env.do(t, "PUT", "/api/settings", `{"language":"fi","vision_key":"********","auto_generate":true}`)
	if code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", code)
	}

	s := env.settings.Settings()
	if s.Language != "fi" || !s.AutoGenerate {
		t.Errorf("Expected updated settings, got %+v", s)
	}
	if s.VisionKey != "secret" {
		t.Errorf("Expected masked placeholder to keep the key, got %q", s.VisionKey)
	}

	code, _ = env.do(t, "PUT", "/api/settings", `{"provider":"openai"}`)
	if code != http.StatusBadRequest {
		t.Errorf("Expected 400 for invalid provider, got %d", code)
	}
}

func TestRegisterImage(t *testing.T) {
	env := newTestEnv(t, nil, nil)
	if err := env.settings.Update(func(s *config.Settings) { s.AutoGenerate = true }); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	code, resp := env.do(t, "POST", "/api/images", `{"id":10,"title":"New","url":"https://example.com/new.jpg","mime_type":"image/jpeg"}`)
	if code != http.StatusOK {
		t.Fatalf("Expected 200, got %d (%s)", code, resp.Data)
	}

	var img models.ImageRecord
	if err := json.Unmarshal(resp.Data, &img); err != nil {
		t.Fatalf("Failed to decode: %v", err)
	}
	if img.ID != "10" || img.AltText != "A picture in en." {
		t.Errorf("Expected auto-generated alt text, got %+v", img)
	}

	code, _ = env.do(t, "POST", "/api/images", `{"id":"11"}`)
	if code != http.StatusBadRequest {
		t.Errorf("Expected 400 without url, got %d", code)
	}
}
