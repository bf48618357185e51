package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/lehigh-university-libraries/alttext/internal/batch"
	"github.com/redis/go-redis/v9"
)

// DefaultChannel is the pub/sub channel batch events are published on
const DefaultChannel = "alttext:events"

// Connect creates a redis client and checks it with a ping
func Connect(ctx context.Context, addr, password string) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           0,
		DialTimeout:  10 * time.Second,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	})

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to ping redis at %s: %w", addr, err)
	}

	slog.Info("Connected to Redis", "addr", addr)
	return rdb, nil
}

type publisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// RedisPresenter publishes batch events to a redis channel so other
// processes can follow a run.
type RedisPresenter struct {
	client  publisher
	channel string
	timeout time.Duration
}

// NewRedisPresenter publishes on channel, or DefaultChannel when empty
func NewRedisPresenter(client publisher, channel string) *RedisPresenter {
	if channel == "" {
		channel = DefaultChannel
	}
	return &RedisPresenter{
		client:  client,
		channel: channel,
		timeout: 5 * time.Second,
	}
}

func (p *RedisPresenter) Present(e batch.Event) {
	data, err := json.Marshal(e)
	if err != nil {
		slog.Error("Error marshaling event", "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()

	if err := p.client.Publish(ctx, p.channel, data).Err(); err != nil {
		slog.Warn("Failed to publish event", "channel", p.channel, "kind", e.Kind, "error", err)
	}
}
