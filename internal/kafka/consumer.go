package kafka

import (
	"context"
	"fmt"
	"github.com/segmentio/kafka-go"
	"log"
	"sync"
)

// Handler harus return nil hanya jika proses sukses & boleh commit offset.
type Handler func(ctx context.Context, m kafka.Message) error

type Consumer struct {
	r       *kafka.Reader
	workers int
}

func NewConsumer(brokers []string, group string, topics []string, workers int) *Consumer {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		GroupID:        group,
		GroupTopics:    topics,
		MinBytes:       1,
		MaxBytes:       10e6,
		CommitInterval: 0, // manual commit
	})
	if workers <= 0 {
		workers = 1
	}
	return &Consumer{r: r, workers: workers}
}

// Start dispatches messages to workers by topic partition. One worker owns
// each partition, so its messages are handled and committed in offset
// order. The first handler or commit failure stops the consumer and is
// returned; offsets after it stay uncommitted and are redelivered.
func (c *Consumer) Start(ctx context.Context, h Handler) error {
	defer c.r.Close()

	jobs := make([]chan kafka.Message, c.workers)
	fails := make(chan error, c.workers)
	var wg sync.WaitGroup

	for i := range jobs {
		jobs[i] = make(chan kafka.Message, 128)
		wg.Add(1)
		go func(in <-chan kafka.Message) {
			defer wg.Done()
			work(ctx, in, h, c.r.CommitMessages, fails)
		}(jobs[i])
	}
	stop := func() {
		for _, ch := range jobs {
			close(ch)
		}
		wg.Wait()
	}

	// dispatcher loop
	for {
		m, err := c.r.FetchMessage(ctx)
		if err != nil {
			stop()
			// kecilkan noise saat shutdown
			select {
			case <-ctx.Done():
				return nil
			default:
				return err
			}
		}
		select {
		case jobs[slot(m.Topic, m.Partition, c.workers)] <- m:
		case err := <-fails:
			stop()
			return err
		case <-ctx.Done():
			stop()
			return nil
		}

		select {
		case err := <-fails:
			stop()
			return err
		default:
		}
	}
}

// work handles one worker's queue in order. After the first failure it
// neither handles nor commits anything else, and reports that failure once.
func work(ctx context.Context, in <-chan kafka.Message, h Handler, commit func(context.Context, ...kafka.Message) error, fails chan<- error) {
	failed := false
	for m := range in {
		if failed {
			continue
		}
		err := h(ctx, m)
		if err == nil {
			// commit on success
			err = commit(ctx, m)
		}
		if err != nil {
			failed = true
			log.Printf("kafka: %s/%d@%d: %v", m.Topic, m.Partition, m.Offset, err)
			fails <- fmt.Errorf("%s/%d offset %d: %w", m.Topic, m.Partition, m.Offset, err)
		}
	}
}

// slot maps a topic partition onto a worker. Partitions of one topic land
// on consecutive workers.
func slot(topic string, partition, n int) int {
	if n <= 1 {
		return 0
	}
	h := uint32(2166136261)
	for i := 0; i < len(topic); i++ {
		h ^= uint32(topic[i])
		h *= 16777619
	}
	return int((h + uint32(partition)) % uint32(n))
}
