package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/lehigh-university-libraries/alttext/internal/batch"
	"github.com/lehigh-university-libraries/alttext/internal/models"
	"github.com/redis/go-redis/v9"
)

func TestHubBroadcast(t *testing.T) {
	hub := NewHub()
	server := httptest.NewServer(hub)
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for hub.Count() != 1 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if hub.Count() != 1 {
		t.Fatalf("Expected 1 client, got %d", hub.Count())
	}

	hub.Present(batch.Event{Kind: batch.EventItem, RunID: "run-1", ImageID: "42", Status: models.ItemComplete, Text: "A cat."})

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var got batch.Event
	if err := conn.ReadJSON(&got); err != nil {
		t.Fatalf("ReadJSON failed: %v", err)
	}
	if got.ImageID != "42" || got.Text != "A cat." || got.Status != models.ItemComplete {
		t.Errorf("Unexpected event: %+v", got)
	}

	conn.Close()
	deadline = time.Now().Add(2 * time.Second)
	for hub.Count() != 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if hub.Count() != 0 {
		t.Errorf("Expected client to be removed after close, got %d", hub.Count())
	}
}

type fakePublisher struct {
	channel  string
	messages [][]byte
	err      error
}

func (f *fakePublisher) Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd {
	f.channel = channel
	if b, ok := message.([]byte); ok {
		f.messages = append(f.messages, b)
	}
	cmd := redis.NewIntCmd(ctx)
	if f.err != nil {
		cmd.SetErr(f.err)
	} else {
		cmd.SetVal(1)
	}
	return cmd
}

func TestRedisPresenter(t *testing.T) {
	pub := &fakePublisher{}
	p := NewRedisPresenter(pub, "")

	p.Present(batch.Event{Kind: batch.EventProgress, RunID: "run-1", Completed: 1, Total: 2, Progress: 50})

	if pub.channel != DefaultChannel {
		t.Errorf("Expected channel %s, got %s", DefaultChannel, pub.channel)
	}
	if len(pub.messages) != 1 {
		t.Fatalf("Expected 1 message, got %d", len(pub.messages))
	}

	var got batch.Event
	if err := json.Unmarshal(pub.messages[0], &got); err != nil {
		t.Fatalf("Failed to decode message: %v", err)
	}
	if got.Progress != 50 || got.RunID != "run-1" {
		t.Errorf("Unexpected event: %+v", got)
	}

	// publish failures are logged, not propagated
	pub.err = errors.New("connection refused")
	p.Present(batch.Event{Kind: batch.EventLog, Message: "hello"})
	if len(pub.messages) != 2 {
		t.Errorf("Expected publish attempt, got %d messages", len(pub.messages))
	}
}
