// Package relay mirrors session snapshots to a Redis channel so companion
// screens (a parent's phone, a big screen at an event) can follow along.
package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

const DefaultChannel = "twimp:session"

// Relay publishes from its own goroutine; Offer never blocks the caller.
type Relay struct {
	rdb     *redis.Client
	channel string
	logger  *slog.Logger
	queue   chan []byte
}

// Open connects to rawURL and verifies the connection with a ping.
func Open(ctx context.Context, rawURL, channel string, logger *slog.Logger) (*Relay, error) {
	opt, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}
	rdb := redis.NewClient(opt)
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("pinging redis: %w", err)
	}
	return New(rdb, channel, logger), nil
}

func New(rdb *redis.Client, channel string, logger *slog.Logger) *Relay {
	if channel == "" {
		channel = DefaultChannel
	}
	return &Relay{
		rdb:     rdb,
		channel: channel,
		logger:  logger,
		queue:   make(chan []byte, 32),
	}
}

func (r *Relay) Channel() string { return r.channel }

// Offer queues v for publishing. When the queue is full the oldest pending
// message is dropped: subscribers only care about the latest snapshot.
func (r *Relay) Offer(v any) {
	data, err := json.Marshal(v)
	if err != nil {
		r.logger.Warn("relay encode failed", "error", err)
		return
	}
	for {
		select {
		case r.queue <- data:
			return
		default:
		}
		select {
		case <-r.queue:
		default:
		}
	}
}

// Run publishes queued messages until ctx is cancelled.
func (r *Relay) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case data := <-r.queue:
			if err := r.rdb.Publish(ctx, r.channel, data).Err(); err != nil && ctx.Err() == nil {
				r.logger.Warn("relay publish failed", "channel", r.channel, "error", err)
			}
		}
	}
}

func (r *Relay) Check(ctx context.Context) error {
	return r.rdb.Ping(ctx).Err()
}

func (r *Relay) Close() error {
	return r.rdb.Close()
}
