package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
)

// Signal is one bus message as seen by a subscriber: the subject it arrived
// on plus the raw JSON payload. Wildcard subscribers need the subject to tell
// signals apart.
type Signal struct {
	Topic string
	Data  []byte
}

// NATSBus carries signals over NATS. The server publishes every signal it
// emits and skctl publishes its client-side signals to the same subjects; a
// single connection serves both directions.
type NATSBus struct {
	conn *nats.Conn
}

// ConnectNATS dials url with indefinite reconnection. Extra nats.Option
// values (e.g. disconnect handlers) can be appended.
func ConnectNATS(url string, opts ...nats.Option) (*NATSBus, error) {
	defaults := []nats.Option{
		nats.MaxReconnects(-1),
		nats.ReconnectWait(time.Second),
	}
	nc, err := nats.Connect(url, append(defaults, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("connecting to NATS at %s: %w", url, err)
	}
	return &NATSBus{conn: nc}, nil
}

// Publish JSON-encodes payload onto topic.
func (b *NATSBus) Publish(ctx context.Context, topic string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshaling signal for %s: %w", topic, err)
	}
	return b.conn.Publish(topic, data)
}

// Subscribe returns a channel of signals matching pattern (NATS wildcards
// like "sk.>" are supported). The returned cancel func unsubscribes and
// closes the channel. A slow consumer drops signals rather than blocking the
// NATS client.
func (b *NATSBus) Subscribe(pattern string) (<-chan Signal, func(), error) {
	msgs := make(chan *nats.Msg, 64)
	sub, err := b.conn.ChanSubscribe(pattern, msgs)
	if err != nil {
		return nil, nil, fmt.Errorf("subscribing to %s: %w", pattern, err)
	}
	// Flush so the subscription is registered server-side before we return;
	// otherwise publishes on other connections can race past it.
	if err := b.conn.Flush(); err != nil {
		_ = sub.Unsubscribe()
		return nil, nil, fmt.Errorf("flushing subscription: %w", err)
	}

	out := make(chan Signal, 64)
	done := make(chan struct{})
	go func() {
		defer close(out)
		for {
			select {
			case <-done:
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				select {
				case out <- Signal{Topic: msg.Subject, Data: msg.Data}:
				default:
				}
			}
		}
	}()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			_ = sub.Unsubscribe()
			close(done)
		})
	}
	return out, cancel, nil
}

func (b *NATSBus) Close() error {
	b.conn.Close()
	return nil
}
