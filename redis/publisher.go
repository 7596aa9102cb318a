package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/kbukum/phrame/coordinator"
	"github.com/kbukum/phrame/logger"
	"github.com/kbukum/phrame/resilience"
)

// Envelope is the message published for every event.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
	Time  time.Time       `json:"time"`
}

// Publisher publishes coordinator events on a Redis channel so other
// processes, such as a separate frame display, can follow a cycle. While
// Redis is unreachable a circuit breaker fails publishes fast so a cycle
// does not wait on every event.
type Publisher struct {
	client  *Client
	channel string
	breaker *resilience.CircuitBreaker
	now     func() time.Time
}

// NewPublisher creates a Publisher on the client's configured channel.
func NewPublisher(client *Client) *Publisher {
	cfg := resilience.DefaultCircuitBreakerConfig("redis-publish")
	cfg.OnStateChange = func(name string, from, to resilience.State) {
		client.log.Warn("circuit breaker "+to.String(), logger.Fields("breaker", name, "from", from.String()))
	}
	return &Publisher{
		client:  client,
		channel: client.Config().Channel,
		breaker: resilience.NewCircuitBreaker(cfg),
		now:     time.Now,
	}
}

// Channel returns the channel events are published on.
func (p *Publisher) Channel() string { return p.channel }

// Broadcast implements coordinator.Notifier.
func (p *Publisher) Broadcast(ctx context.Context, event string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("publish %s: marshal: %w", event, err)
	}
	msg, err := json.Marshal(Envelope{Event: event, Data: data, Time: p.now().UTC()})
	if err != nil {
		return fmt.Errorf("publish %s: %w", event, err)
	}
	err = p.breaker.Execute(func() error {
		_, err := p.client.Publish(ctx, p.channel, msg)
		return err
	})
	if err != nil {
		return fmt.Errorf("publish %s: %w", event, err)
	}
	return nil
}

// Listen delivers every envelope published on the channel to fn until ctx
// is done. Malformed messages are logged and skipped.
func (p *Publisher) Listen(ctx context.Context, fn func(Envelope)) error {
	sub := p.client.Subscribe(ctx, p.channel)
	defer func() { _ = sub.Close() }()

	// Wait for the subscription to be confirmed before reading.
	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %s: %w", p.channel, err)
	}

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var env Envelope
			if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
				p.client.log.Warn("malformed event", logger.Fields("channel", msg.Channel, "error", err.Error()))
				continue
			}
			fn(env)
		}
	}
}

var _ coordinator.Notifier = (*Publisher)(nil)
