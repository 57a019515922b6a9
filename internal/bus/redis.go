package bus

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/rocketscienceinc/tictactoe-arena/internal/usecase"
)

const channelPrefix = "arena:room:"

// Envelope carries one room-scoped message between gateway instances.
// Instance identifies the publisher so it can skip its own traffic.
type Envelope struct {
	Instance string          `json:"instance"`
	RoomCode string          `json:"roomCode"`
	Message  usecase.Message `json:"message"`
}

// RedisBus mirrors room broadcasts over redis pub/sub so several gateway
// instances can serve the same room code. It carries live fanout only,
// nothing is persisted.
type RedisBus struct {
	logger   *slog.Logger
	client   *redis.Client
	instance string
}

func New(ctx context.Context, logger *slog.Logger, addr, instance string) (*RedisBus, error) {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisBus{
		logger:   logger,
		client:   client,
		instance: instance,
	}, nil
}

// Publish - sends a room-scoped message to every other instance.
func (that *RedisBus) Publish(ctx context.Context, roomCode string, msg usecase.Message) error {
	raw, err := json.Marshal(Envelope{
		Instance: that.instance,
		RoomCode: roomCode,
		Message:  msg,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal envelope: %w", err)
	}

	if err = that.client.Publish(ctx, channelPrefix+roomCode, raw).Err(); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", roomCode, err)
	}

	return nil
}

// Subscribe - blocks delivering remote room messages to fn until the context
// is canceled. Messages published by this instance are skipped.
func (that *RedisBus) Subscribe(ctx context.Context, fn func(roomCode string, msg usecase.Message)) {
	log := that.logger.With("method", "Subscribe")

	pubsub := that.client.PSubscribe(ctx, channelPrefix+"*")
	ch := pubsub.Channel()

	for {
		select {
		case <-ctx.Done():
			if err := pubsub.Close(); err != nil {
				log.Error("failed to close subscription", "error", err)
			}
			return
		case raw, ok := <-ch:
			if !ok {
				return
			}

			var envelope Envelope
			if err := json.Unmarshal([]byte(raw.Payload), &envelope); err != nil {
				log.Error("failed to unmarshal envelope", "error", err)
				continue
			}

			if envelope.Instance == that.instance || envelope.RoomCode == "" {
				continue
			}

			fn(envelope.RoomCode, envelope.Message)
		}
	}
}

func (that *RedisBus) Close() error {
	if err := that.client.Close(); err != nil {
		return fmt.Errorf("failed to close redis client: %w", err)
	}

	return nil
}
