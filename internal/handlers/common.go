package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/lehigh-university-libraries/alttext/internal/apperr"
	"github.com/lehigh-university-libraries/alttext/internal/batch"
	"github.com/lehigh-university-libraries/alttext/internal/config"
	"github.com/lehigh-university-libraries/alttext/internal/library"
	"github.com/lehigh-university-libraries/alttext/internal/models"
)

// Generator creates and stores ALT text
type Generator interface {
	Generate(ctx context.Context, id, language string) (string, error)
	Register(ctx context.Context, img models.ImageRecord) (*models.ImageRecord, error)
}

// ConnectionTester checks the remote services
type ConnectionTester interface {
	TestConnection(ctx context.Context) ([]string, error)
}

// BatchController runs batches in the background
type BatchController interface {
	Launch(ctx context.Context, ids []string) (string, error)
	Cancel() bool
	Status() batch.Status
}

// SettingsStore reads and saves settings
type SettingsStore interface {
	Settings() config.Settings
	Update(fn func(*config.Settings)) error
}

type Handler struct {
	source    library.Source
	generator Generator
	tester    ConnectionTester
	batches   BatchController
	settings  SettingsStore
	events    http.Handler
	// runCtx outlives requests so batches keep going after the response
	runCtx context.Context
}

// Options wires a Handler to its collaborators
type Options struct {
	Source    library.Source
	Generator Generator
	Tester    ConnectionTester
	Batches   BatchController
	Settings  SettingsStore
	// Events serves the websocket status stream, if any
	Events http.Handler
	// RunContext bounds background batches. Defaults to context.Background().
	RunContext context.Context
}

func New(opts Options) *Handler {
	runCtx := opts.RunContext
	if runCtx == nil {
		runCtx = context.Background()
	}
	return &Handler{
		source:    opts.Source,
		generator: opts.Generator,
		tester:    opts.Tester,
		batches:   opts.Batches,
		settings:  opts.Settings,
		events:    opts.Events,
		runCtx:    runCtx,
	}
}

// envelope is the response shape of every API endpoint
type envelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data"`
	Kind    apperr.Kind `json:"kind,omitempty"`
}

// Response helpers
func (h *Handler) writeJSON(w http.ResponseWriter, data interface{}) {
	h.writeEnvelope(w, http.StatusOK, envelope{Success: true, Data: data})
}

func (h *Handler) writeError(w http.ResponseWriter, message string, code int) {
	slog.Error(message, "status", code)
	h.writeEnvelope(w, code, envelope{Success: false, Data: message})
}

// writeAppError reports err with a status derived from its kind
func (h *Handler) writeAppError(w http.ResponseWriter, err error) {
	kind := apperr.KindOf(err)
	code := statusForKind(kind)
	slog.Error("Request failed", "kind", kind, "status", code, "error", err)

	message := err.Error()
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		message = appErr.Message
	}
	h.writeEnvelope(w, code, envelope{Success: false, Data: message, Kind: kind})
}

func (h *Handler) writeEnvelope(w http.ResponseWriter, code int, body envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("Unable to encode JSON response", "err", err)
	}
}

func statusForKind(kind apperr.Kind) int {
	switch kind {
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindCredentialsMissing, apperr.KindConfiguration:
		return http.StatusBadRequest
	case apperr.KindNetwork, apperr.KindAuthentication, apperr.KindMalformedResponse,
		apperr.KindUnexpectedStatus, apperr.KindImageUnreachable:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// decodeJSON reads an optional JSON body into v
func decodeJSON(r *http.Request, v interface{}) error {
	if r.Body == nil {
		return nil
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// flexID accepts an image id as either a JSON string or number
type flexID string

func (f *flexID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = flexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = flexID(n.String())
	return nil
}
