package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/ariefcatur/go-restaurant-booking/internal/clock"
	"github.com/ariefcatur/go-restaurant-booking/internal/eventbus"
	"github.com/segmentio/kafka-go"
)

const (
	HeaderEventType    = "x-event-type"
	HeaderEventVersion = "x-event-version"
	HeaderEventID      = "x-event-id"
)

// Encode wraps ev in an Envelope and returns the message value plus the
// routing headers shared by both transports.
func Encode(ev eventbus.Event, producer string, c clock.Clock) (eventbus.Envelope, []byte, error) {
	env, err := eventbus.NewEnvelope(ev, producer, clock.Or(c).Now())
	if err != nil {
		return env, nil, fmt.Errorf("envelope %s: %w", ev.EventName(), err)
	}
	b, err := json.Marshal(env)
	if err != nil {
		return env, nil, fmt.Errorf("encode envelope %s: %w", ev.EventName(), err)
	}
	return env, b, nil
}

func headerPairs(env eventbus.Envelope) [][2]string {
	return [][2]string{
		{HeaderEventType, env.EventType},
		{HeaderEventVersion, strconv.Itoa(env.EventVersion)},
		{HeaderEventID, env.EventID},
	}
}

// Publisher sends domain events through the async kafka-go Producer.
type Publisher struct {
	Producer *Producer
	Service  string
	Clock    clock.Clock
}

func NewPublisher(p *Producer, service string) *Publisher {
	return &Publisher{Producer: p, Service: service, Clock: clock.System{}}
}

func (p *Publisher) Publish(ctx context.Context, ev eventbus.Event) error {
	env, b, err := Encode(ev, p.Service, p.Clock)
	if err != nil {
		return err
	}
	pairs := headerPairs(env)
	headers := make([]kafka.Header, 0, len(pairs))
	for _, h := range pairs {
		headers = append(headers, kafka.Header{Key: h[0], Value: []byte(h[1])})
	}
	return p.Producer.Publish(ctx, ev.Topic(), ev.PartitionKey(), b, headers...)
}
