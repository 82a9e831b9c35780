package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"tarik-chat-be/pkg/events"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// EventHandler is a function that processes an event.
type EventHandler func(ctx context.Context, event events.Event) error

// Subscriber reads chat events back from the stream.
type Subscriber struct {
	nc *nats.Conn
	js jetstream.JetStream
}

func NewSubscriber(url string) (*Subscriber, error) {
	nc, js, err := connect(url)
	if err != nil {
		return nil, err
	}
	return &Subscriber{nc: nc, js: js}, nil
}

// Tail delivers events matching subject, starting with new ones, until ctx
// is done. Handler errors are returned and stop the tail.
func (s *Subscriber) Tail(ctx context.Context, subject string, handler EventHandler) error {
	consumer, err := s.js.OrderedConsumer(ctx, StreamName, jetstream.OrderedConsumerConfig{
		FilterSubjects: []string{subject},
		DeliverPolicy:  jetstream.DeliverNewPolicy,
	})
	if err != nil {
		return fmt.Errorf("failed to create consumer: %w", err)
	}

	errc := make(chan error, 1)
	cc, err := consumer.Consume(func(msg jetstream.Msg) {
		event, err := decode(msg.Subject(), msg.Headers(), msg.Data())
		if err == nil {
			err = handler(ctx, event)
		}
		if err != nil {
			select {
			case errc <- err:
			default:
			}
		}
	})
	if err != nil {
		return fmt.Errorf("failed to consume %s: %w", subject, err)
	}
	defer cc.Stop()

	select {
	case <-ctx.Done():
		return nil
	case err := <-errc:
		return err
	}
}

func decode(subject string, header nats.Header, data []byte) (events.Event, error) {
	var payload map[string]interface{}
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("decode %s: %w", subject, err)
	}

	occurred := time.Now()
	if v := header.Get("Occurred-At"); v != "" {
		if t, err := time.Parse(time.RFC3339Nano, v); err == nil {
			occurred = t
		}
	}
	return events.BaseEvent{
		Type:       strings.TrimPrefix(subject, SubjectPrefix),
		Data:       payload,
		OccurredAt: occurred,
	}, nil
}

func (s *Subscriber) Close() {
	if s.nc != nil {
		s.nc.Close()
	}
}
