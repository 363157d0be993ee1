package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/redis/go-redis/v9"
)

const channelPrefix = "notify:user:"

// Channel is the Redis channel carrying events for userID.
func Channel(userID int64) string {
	return channelPrefix + strconv.FormatInt(userID, 10)
}

// Publisher routes an event towards a user's sessions.
type Publisher interface {
	Publish(ctx context.Context, userID int64, ev Event) error
}

// RedisPublisher publishes events on the user's Redis channel so that the
// instance holding the session can deliver them.
type RedisPublisher struct {
	client *redis.Client
}

// NewRedisPublisher builds a RedisPublisher.
func NewRedisPublisher(client *redis.Client) *RedisPublisher {
	return &RedisPublisher{client: client}
}

// Publish implements Publisher.
func (p *RedisPublisher) Publish(ctx context.Context, userID int64, ev Event) error {
	raw, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	if err := p.client.Publish(ctx, Channel(userID), raw).Err(); err != nil {
		return fmt.Errorf("publish %s: %w", ev.Name, err)
	}
	return nil
}

// Relay subscribes to every user channel and delivers what arrives into the
// local Registry.
type Relay struct {
	client   *redis.Client
	registry *Registry
	logger   *slog.Logger
}

// NewRelay builds a Relay.
func NewRelay(client *redis.Client, registry *Registry, logger *slog.Logger) *Relay {
	if logger == nil {
		logger = slog.Default()
	}
	return &Relay{client: client, registry: registry, logger: logger}
}

// Run blocks until ctx is cancelled.
func (r *Relay) Run(ctx context.Context) error {
	sub := r.client.PSubscribe(ctx, channelPrefix+"*")
	defer sub.Close()
	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %s*: %w", channelPrefix, err)
	}
	r.logger.Info("notification relay subscribed", slog.String("pattern", channelPrefix+"*"))

	messages := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			r.handle(ctx, msg)
		}
	}
}

func (r *Relay) handle(ctx context.Context, msg *redis.Message) {
	userID, err := strconv.ParseInt(strings.TrimPrefix(msg.Channel, channelPrefix), 10, 64)
	if err != nil {
		r.logger.Warn("relay: bad channel", slog.String("channel", msg.Channel))
		return
	}
	var ev Event
	if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
		r.logger.Warn("relay: bad payload", slog.String("channel", msg.Channel), slog.Any("error", err))
		return
	}
	if err := r.registry.Deliver(ctx, userID, ev); err != nil {
		r.logger.Debug("relay: delivery incomplete", slog.Int64("user_id", userID), slog.Any("error", err))
	}
}
