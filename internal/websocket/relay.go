package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// DefaultRelayChannel is the Redis pub/sub channel shared by all API instances.
const DefaultRelayChannel = "fueldelivery:events"

const relayPublishTimeout = 2 * time.Second

// relayMessage wraps an encoded event frame with the instance that produced it.
type relayMessage struct {
	Origin string          `json:"origin"`
	Frame  json.RawMessage `json:"frame"`
}

// Relay fans hub events out across API instances through Redis pub/sub, so a dashboard
// connected to one instance sees bookings changed on another.
type Relay struct {
	client  *redis.Client
	hub     *Hub
	channel string
	origin  string
}

func NewRelay(client *redis.Client, hub *Hub, channel string) *Relay {
	if channel == "" {
		channel = DefaultRelayChannel
	}
	return &Relay{client: client, hub: hub, channel: channel, origin: uuid.NewString()}
}

// Publish delivers the event to local clients and forwards it to the other instances.
// The Redis write happens in the background so callers are never held up by it.
func (r *Relay) Publish(eventType string, data interface{}) {
	frame, err := encodeEvent(eventType, data)
	if err != nil {
		log.Printf("websocket: failed to encode %s event: %v", eventType, err)
		return
	}
	r.hub.enqueue(frame)

	payload, err := json.Marshal(relayMessage{Origin: r.origin, Frame: frame})
	if err != nil {
		log.Printf("websocket: failed to wrap %s event: %v", eventType, err)
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), relayPublishTimeout)
		defer cancel()
		if err := r.client.Publish(ctx, r.channel, payload).Err(); err != nil {
			log.Printf("websocket: relay publish of %s failed: %v", eventType, err)
		}
	}()
}

// Run subscribes to the relay channel and rebroadcasts frames from other instances
// until ctx is cancelled.
func (r *Relay) Run(ctx context.Context) error {
	sub := r.client.Subscribe(ctx, r.channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %s: %w", r.channel, err)
	}

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case m, ok := <-ch:
			if !ok {
				return nil
			}
			var msg relayMessage
			if err := json.Unmarshal([]byte(m.Payload), &msg); err != nil {
				log.Printf("websocket: dropping malformed relay message: %v", err)
				continue
			}
			if msg.Origin == r.origin {
				continue
			}
			r.hub.enqueue(msg.Frame)
		}
	}
}
