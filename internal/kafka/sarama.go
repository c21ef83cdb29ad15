package kafka

import (
	"context"
	"log"
	"time"

	"github.com/IBM/sarama"
	"github.com/ariefcatur/go-restaurant-booking/internal/clock"
	"github.com/ariefcatur/go-restaurant-booking/internal/eventbus"
)

// SaramaPublisher waits for the broker ack of every event.
type SaramaPublisher struct {
	producer sarama.SyncProducer
	Service  string
	Clock    clock.Clock
}

func NewSaramaPublisher(brokers []string, service string) (*SaramaPublisher, error) {
	config := sarama.NewConfig()
	config.Producer.Return.Successes = true
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Partitioner = sarama.NewHashPartitioner
	config.Producer.Timeout = 5 * time.Second
	prod, err := sarama.NewSyncProducer(brokers, config)
	if err != nil {
		return nil, err
	}
	return newSaramaPublisher(prod, service), nil
}

func newSaramaPublisher(prod sarama.SyncProducer, service string) *SaramaPublisher {
	return &SaramaPublisher{producer: prod, Service: service, Clock: clock.System{}}
}

func (p *SaramaPublisher) Publish(_ context.Context, ev eventbus.Event) error {
	env, b, err := Encode(ev, p.Service, p.Clock)
	if err != nil {
		return err
	}
	msg := &sarama.ProducerMessage{
		Topic: ev.Topic(),
		Key:   sarama.ByteEncoder(ev.PartitionKey()),
		Value: sarama.ByteEncoder(b),
	}
	for _, h := range headerPairs(env) {
		msg.Headers = append(msg.Headers, sarama.RecordHeader{Key: []byte(h[0]), Value: []byte(h[1])})
	}
	partition, offset, err := p.producer.SendMessage(msg)
	if err != nil {
		return err
	}
	log.Printf("kafka: %s stored in %s/%d/%d", env.EventType, msg.Topic, partition, offset)
	return nil
}

func (p *SaramaPublisher) Close() error {
	return p.producer.Close()
}
