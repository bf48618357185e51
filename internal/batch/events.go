package batch

import (
	"log/slog"
	"time"

	"github.com/lehigh-university-libraries/alttext/internal/models"
)

// EventKind identifies what a presenter is being told
type EventKind string

const (
	EventItem     EventKind = "item"
	EventProgress EventKind = "progress"
	EventComplete EventKind = "complete"
	EventLog      EventKind = "log"
)

// Event is a single status notification from a driver
type Event struct {
	Kind      EventKind         `json:"kind"`
	RunID     string            `json:"run_id"`
	ImageID   string            `json:"image_id,omitempty"`
	Status    models.ItemStatus `json:"status,omitempty"`
	Text      string            `json:"text,omitempty"`
	Error     string            `json:"error,omitempty"`
	Completed int               `json:"completed"`
	Total     int               `json:"total"`
	Progress  int               `json:"progress"`
	Cancelled bool              `json:"cancelled,omitempty"`
	Level     string            `json:"level,omitempty"`
	Message   string            `json:"message,omitempty"`
	Time      time.Time         `json:"time"`
}

// Presenter receives driver events. Present is called without the
// driver's lock held, from whichever goroutine is running the batch.
type Presenter interface {
	Present(Event)
}

// PresenterFunc adapts a function to a Presenter
type PresenterFunc func(Event)

func (f PresenterFunc) Present(e Event) {
	f(e)
}

// Multi fans every event out to each presenter in order
type Multi []Presenter

func (m Multi) Present(e Event) {
	for _, p := range m {
		if p != nil {
			p.Present(e)
		}
	}
}

// LogPresenter writes events to slog
type LogPresenter struct{}

func (LogPresenter) Present(e Event) {
	switch e.Kind {
	case EventItem:
		if e.Status == models.ItemError {
			slog.Error("Image failed", "run_id", e.RunID, "image_id", e.ImageID, "error", e.Error)
			return
		}
		slog.Debug("Image status", "run_id", e.RunID, "image_id", e.ImageID, "status", e.Status, "text", e.Text)
	case EventProgress:
		slog.Info("Batch progress", "run_id", e.RunID, "completed", e.Completed, "total", e.Total, "progress", e.Progress)
	case EventComplete:
		slog.Info("Batch finished", "run_id", e.RunID, "completed", e.Completed, "total", e.Total, "cancelled", e.Cancelled)
	case EventLog:
		switch e.Level {
		case "error":
			slog.Error(e.Message, "run_id", e.RunID)
		case "warning":
			slog.Warn(e.Message, "run_id", e.RunID)
		default:
			slog.Info(e.Message, "run_id", e.RunID)
		}
	}
}
