package events

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"

	"oncohub.org/internal/access"
	"oncohub.org/internal/ids"
)

// DefaultChannel is the Redis pub/sub channel shared by API instances.
const DefaultChannel = "oncohub:permission-changes"

type envelope struct {
	Origin string        `json:"origin"`
	Change access.Change `json:"change"`
}

// Relay mirrors changes between instances through Redis pub/sub so every
// instance's subscribers see changes made on any of them.
type Relay struct {
	client  *redis.Client
	channel string
	origin  string
	broker  *Broker
	log     *logrus.Logger
}

func NewRelay(client *redis.Client, broker *Broker, channel string, log *logrus.Logger) (*Relay, error) {
	if client == nil || broker == nil {
		return nil, errors.New("redis client and broker are required")
	}
	if channel == "" {
		channel = DefaultChannel
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	r := &Relay{client: client, channel: channel, origin: ids.New(), broker: broker, log: log}
	broker.mu.Lock()
	broker.forward = r.publish
	broker.mu.Unlock()
	return r, nil
}

func (r *Relay) publish(ctx context.Context, c access.Change) {
	payload, err := json.Marshal(envelope{Origin: r.origin, Change: c})
	if err != nil {
		r.log.WithError(err).Warn("encode permission change")
		return
	}
	if err := r.client.Publish(ctx, r.channel, payload).Err(); err != nil {
		r.log.WithError(err).WithField("channel", r.channel).Warn("relay permission change")
	}
}

// Run delivers remote changes to the local broker until ctx ends.
func (r *Relay) Run(ctx context.Context) error {
	sub := r.client.Subscribe(ctx, r.channel)
	defer sub.Close()
	if _, err := sub.Receive(ctx); err != nil {
		return err
	}
	msgs := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-msgs:
			if !ok {
				return nil
			}
			var env envelope
			if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
				r.log.WithError(err).Warn("decode permission change")
				continue
			}
			if env.Origin == r.origin {
				continue
			}
			r.broker.Publish(env.Change)
		}
	}
}
