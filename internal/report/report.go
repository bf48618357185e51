package report

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/lehigh-university-libraries/alttext/internal/batch"
	"github.com/lehigh-university-libraries/alttext/internal/models"
	"gopkg.in/yaml.v3"
)

// ItemResult is the outcome of one image in a batch
type ItemResult struct {
	ID      string            `yaml:"id"`
	Status  models.ItemStatus `yaml:"status"`
	AltText string            `yaml:"alttext,omitempty"`
	Error   string            `yaml:"error,omitempty"`
}

// BatchReport summarizes a finished batch run
type BatchReport struct {
	RunID      string       `yaml:"runid"`
	StartedAt  time.Time    `yaml:"startedat"`
	FinishedAt time.Time    `yaml:"finishedat"`
	Total      int          `yaml:"total"`
	Completed  int          `yaml:"completed"`
	Succeeded  int          `yaml:"succeeded"`
	Failed     int          `yaml:"failed"`
	Cancelled  bool         `yaml:"cancelled"`
	Items      []ItemResult `yaml:"items"`
}

// Collector builds a BatchReport from driver events
type Collector struct {
	mu     sync.Mutex
	report BatchReport
	index  map[string]int
	done   chan struct{}
}

// NewCollector returns an empty collector
func NewCollector() *Collector {
	return &Collector{
		index: make(map[string]int),
		done:  make(chan struct{}),
	}
}

func (c *Collector) Present(e batch.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.report.RunID == "" {
		c.report.RunID = e.RunID
		c.report.StartedAt = e.Time
	}
	if e.RunID != c.report.RunID {
		return
	}

	switch e.Kind {
	case batch.EventItem:
		i, ok := c.index[e.ImageID]
		if !ok {
			i = len(c.report.Items)
			c.index[e.ImageID] = i
			c.report.Items = append(c.report.Items, ItemResult{ID: e.ImageID})
		}
		c.report.Items[i].Status = e.Status
		c.report.Items[i].AltText = e.Text
		c.report.Items[i].Error = e.Error
		if e.Total > 0 {
			c.report.Total = e.Total
		}
	case batch.EventComplete:
		c.report.FinishedAt = e.Time
		c.report.Total = e.Total
		c.report.Completed = e.Completed
		c.report.Cancelled = e.Cancelled
		select {
		case <-c.done:
		default:
			close(c.done)
		}
	}
}

// Done is closed once the run's completion event arrives
func (c *Collector) Done() <-chan struct{} {
	return c.done
}

// Report returns a copy of the report collected so far
func (c *Collector) Report() BatchReport {
	c.mu.Lock()
	defer c.mu.Unlock()

	r := c.report
	r.Items = append([]ItemResult(nil), c.report.Items...)
	r.Succeeded, r.Failed = 0, 0
	for _, item := range r.Items {
		switch item.Status {
		case models.ItemComplete:
			r.Succeeded++
		case models.ItemError:
			r.Failed++
		}
	}
	return r
}

// Save writes the report to dir as YAML and returns the file path
func Save(dir string, r BatchReport) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create reports directory: %w", err)
	}

	timestamp := r.FinishedAt
	if timestamp.IsZero() {
		timestamp = time.Now()
	}
	filename := filepath.Join(dir, fmt.Sprintf("batch-%s.yaml", timestamp.Format("2006-01-02_15-04-05")))

	data, err := yaml.Marshal(&r)
	if err != nil {
		return "", fmt.Errorf("failed to marshal YAML: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write YAML file: %w", err)
	}

	return filename, nil
}
