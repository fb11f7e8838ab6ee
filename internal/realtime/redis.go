package realtime

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// DefaultChannel is the pub/sub channel shared by every instance.
const DefaultChannel = "zenith:events"

type envelope struct {
	Room  string          `json:"room"`
	Frame json.RawMessage `json:"frame"`
}

// RedisNotifier publishes events to Redis. Run delivers what any instance
// published into the local hub.
type RedisNotifier struct {
	client  *redis.Client
	channel string
	hub     *Hub
	log     *zap.Logger
	ready   chan struct{}
}

func NewRedisNotifier(client *redis.Client, channel string, hub *Hub, log *zap.Logger) *RedisNotifier {
	if channel == "" {
		channel = DefaultChannel
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &RedisNotifier{client: client, channel: channel, hub: hub, log: log, ready: make(chan struct{})}
}

func (n *RedisNotifier) Notify(ctx context.Context, room, event string, payload any) error {
	frame, err := Encode(event, payload)
	if err != nil {
		return err
	}
	body, err := json.Marshal(envelope{Room: room, Frame: frame})
	if err != nil {
		return err
	}
	if err := n.client.Publish(ctx, n.channel, body).Err(); err != nil {
		return fmt.Errorf("publish %s: %w", event, err)
	}
	return nil
}

// Ready is closed once the subscription is confirmed.
func (n *RedisNotifier) Ready() <-chan struct{} {
	return n.ready
}

// Run subscribes until ctx is done.
func (n *RedisNotifier) Run(ctx context.Context) error {
	sub := n.client.Subscribe(ctx, n.channel)
	defer sub.Close()
	if _, err := sub.Receive(ctx); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("subscribe %s: %w", n.channel, err)
	}
	close(n.ready)
	n.log.Info("redis fan-out subscribed", zap.String("channel", n.channel))

	messages := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			var env envelope
			if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
				n.log.Warn("discarding malformed event", zap.Error(err))
				continue
			}
			n.hub.Emit(env.Room, env.Frame)
		}
	}
}
