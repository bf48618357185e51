package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lehigh-university-libraries/alttext/internal/models"
)

const (
	// DefaultDispatchDelay is the pause before each item is sent
	DefaultDispatchDelay = 100 * time.Millisecond
	// DefaultInterItemDelay keeps a run under 20 requests per minute
	DefaultInterItemDelay = 3000 * time.Millisecond
)

var (
	ErrRunning      = errors.New("a batch is already running")
	ErrStepInFlight = errors.New("a batch step is already in flight")
)

// Processor handles one queued image and returns its ALT text
type Processor interface {
	Process(ctx context.Context, id string) (string, error)
}

// ProcessorFunc adapts a function to a Processor
type ProcessorFunc func(ctx context.Context, id string) (string, error)

func (f ProcessorFunc) Process(ctx context.Context, id string) (string, error) {
	return f(ctx, id)
}

// Options tunes a driver's pacing
type Options struct {
	DispatchDelay  time.Duration
	InterItemDelay time.Duration
	// Sleep waits for d or until ctx is done. Defaults to a timer.
	Sleep func(ctx context.Context, d time.Duration) error
}

// Status is a snapshot of a driver
type Status struct {
	RunID     string   `json:"run_id"`
	Running   bool     `json:"running"`
	Completed int      `json:"completed"`
	Failed    int      `json:"failed"`
	Total     int      `json:"total"`
	Pending   []string `json:"pending"`
	Progress  int      `json:"progress"`
}

// Driver processes a queue of image IDs one at a time
type Driver struct {
	processor Processor
	presenter Presenter
	opts      Options

	mu        sync.Mutex
	runID     string
	pending   []string
	running   bool
	completed int
	failed    int
	total     int
	stepping  bool
	cancelled bool
}

// NewDriver creates an idle driver
func NewDriver(processor Processor, presenter Presenter, opts Options) *Driver {
	if opts.Sleep == nil {
		opts.Sleep = sleep
	}
	if presenter == nil {
		presenter = LogPresenter{}
	}
	return &Driver{
		processor: processor,
		presenter: presenter,
		opts:      opts,
	}
}

// DefaultOptions returns the free-tier pacing
func DefaultOptions() Options {
	return Options{
		DispatchDelay:  DefaultDispatchDelay,
		InterItemDelay: DefaultInterItemDelay,
	}
}

// Start begins a new run over ids. It returns ErrRunning while another run
// is active. An empty list completes immediately.
func (d *Driver) Start(ids []string) (string, error) {
	d.mu.Lock()
	if d.running {
		d.mu.Unlock()
		return "", ErrRunning
	}

	d.runID = uuid.NewString()
	d.pending = append([]string(nil), ids...)
	d.completed = 0
	d.failed = 0
	d.total = len(ids)
	d.cancelled = false
	d.running = len(ids) > 0
	runID := d.runID
	d.mu.Unlock()

	if len(ids) == 0 {
		d.emit(Event{Kind: EventLog, RunID: runID, Level: "info", Message: "No images to process"})
		d.emit(Event{Kind: EventComplete, RunID: runID, Progress: 100})
		return runID, nil
	}

	d.emit(Event{Kind: EventLog, RunID: runID, Level: "info",
		Message: fmt.Sprintf("Starting batch processing of %d images", len(ids))})
	for _, id := range ids {
		d.emit(Event{Kind: EventItem, RunID: runID, ImageID: id, Status: models.ItemPending, Total: len(ids)})
	}
	d.emit(Event{Kind: EventProgress, RunID: runID, Total: len(ids)})
	return runID, nil
}

// Step processes the next queued item and reports whether more remain.
// Only one step may be in flight at a time.
func (d *Driver) Step(ctx context.Context) (bool, error) {
	d.mu.Lock()
	if !d.running {
		d.mu.Unlock()
		return false, nil
	}
	if d.stepping {
		d.mu.Unlock()
		return false, ErrStepInFlight
	}
	if d.cancelled || len(d.pending) == 0 {
		done := d.finishLocked()
		d.mu.Unlock()
		d.emitAll(done)
		return false, nil
	}

	id := d.pending[0]
	d.pending = d.pending[1:]
	d.stepping = true
	runID := d.runID
	total := d.total
	d.mu.Unlock()

	if err := d.opts.Sleep(ctx, d.opts.DispatchDelay); err != nil {
		d.mu.Lock()
		d.pending = append([]string{id}, d.pending...)
		d.stepping = false
		d.mu.Unlock()
		return false, err
	}

	d.emit(Event{Kind: EventItem, RunID: runID, ImageID: id, Status: models.ItemProcessing, Total: total})
	d.emit(Event{Kind: EventLog, RunID: runID, Level: "info", Message: fmt.Sprintf("Processing image %s", id)})

	text, err := d.processor.Process(ctx, id)

	d.mu.Lock()
	d.stepping = false
	if d.cancelled {
		// the result arrived after cancellation and is not reported
		done := d.finishLocked()
		d.mu.Unlock()
		d.emitAll(done)
		return false, nil
	}

	d.completed++
	if err != nil {
		d.failed++
	}
	completed := d.completed
	progress := percent(completed, completed+len(d.pending))
	more := len(d.pending) > 0
	var done []Event
	if !more {
		done = d.finishLocked()
	}
	d.mu.Unlock()

	item := Event{Kind: EventItem, RunID: runID, ImageID: id, Completed: completed, Total: total, Progress: progress}
	if err != nil {
		item.Status = models.ItemError
		item.Error = err.Error()
		d.emit(item)
		d.emit(Event{Kind: EventLog, RunID: runID, Level: "error",
			Message: fmt.Sprintf("Error processing image %s: %v", id, err)})
	} else {
		item.Status = models.ItemComplete
		item.Text = text
		d.emit(item)
		d.emit(Event{Kind: EventLog, RunID: runID, Level: "success",
			Message: fmt.Sprintf("Generated ALT text for image %s", id)})
	}
	d.emit(Event{Kind: EventProgress, RunID: runID, Completed: completed, Total: total, Progress: progress})
	d.emitAll(done)

	return more, nil
}

// Run steps through the queue with InterItemDelay between items until the
// run finishes. If ctx is done the run is stopped at the next boundary.
func (d *Driver) Run(ctx context.Context) error {
	for {
		more, err := d.Step(ctx)
		if errors.Is(err, ErrStepInFlight) {
			return err
		}
		if err != nil {
			d.abort()
			return err
		}
		if !more {
			return nil
		}

		if err := d.opts.Sleep(ctx, d.opts.InterItemDelay); err != nil {
			d.abort()
			return err
		}
	}
}

// Launch starts a run and drives it on a new goroutine
func (d *Driver) Launch(ctx context.Context, ids []string) (string, error) {
	runID, err := d.Start(ids)
	if err != nil {
		return "", err
	}

	go func() {
		if err := d.Run(ctx); err != nil {
			slog.Warn("Batch run stopped", "run_id", runID, "error", err)
		}
	}()
	return runID, nil
}

// Cancel stops the active run at the next step boundary. An item already
// being processed finishes but its result is not reported.
func (d *Driver) Cancel() bool {
	d.mu.Lock()
	if !d.running || d.cancelled {
		d.mu.Unlock()
		return false
	}
	d.cancelled = true
	runID := d.runID
	d.mu.Unlock()

	d.emit(Event{Kind: EventLog, RunID: runID, Level: "warning", Message: "Batch cancellation requested"})
	return true
}

// Status returns a snapshot of the driver's state
func (d *Driver) Status() Status {
	d.mu.Lock()
	defer d.mu.Unlock()

	var progress int
	if d.total == 0 || (!d.running && d.completed == d.total) {
		progress = 100
	} else {
		progress = percent(d.completed, d.total)
	}

	return Status{
		RunID:     d.runID,
		Running:   d.running,
		Completed: d.completed,
		Failed:    d.failed,
		Total:     d.total,
		Pending:   append([]string{}, d.pending...),
		Progress:  progress,
	}
}

func (d *Driver) abort() {
	d.mu.Lock()
	if !d.running {
		d.mu.Unlock()
		return
	}
	d.cancelled = true
	done := d.finishLocked()
	d.mu.Unlock()
	d.emitAll(done)
}

// finishLocked returns the driver to idle and builds the closing events.
// The caller must hold d.mu and emit the events after unlocking.
func (d *Driver) finishLocked() []Event {
	cancelled := d.cancelled
	d.running = false
	d.pending = nil
	d.cancelled = false

	progress := 100
	message := "Batch processing complete"
	if cancelled {
		progress = percent(d.completed, d.total)
		message = fmt.Sprintf("Batch cancelled after %d of %d images", d.completed, d.total)
	}

	return []Event{
		{Kind: EventLog, RunID: d.runID, Level: "info", Message: message},
		{Kind: EventComplete, RunID: d.runID, Completed: d.completed, Total: d.total, Progress: progress, Cancelled: cancelled},
	}
}

func (d *Driver) emit(e Event) {
	if e.Time.IsZero() {
		e.Time = time.Now()
	}
	d.presenter.Present(e)
}

func (d *Driver) emitAll(events []Event) {
	for _, e := range events {
		d.emit(e)
	}
}

func percent(completed, total int) int {
	if total <= 0 {
		return 100
	}
	return int(math.Round(float64(completed) * 100 / float64(total)))
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
