package kafka

import (
	"context"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// Handler must return nil only when the message was processed and its offset may be committed.
type Handler func(ctx context.Context, m kafka.Message) error

type Consumer struct {
	r         *kafka.Reader
	workers   int
	log       *zap.Logger
	retryBase time.Duration
	retryMax  time.Duration
}

func NewConsumer(brokers []string, group, topic string, workers int, log *zap.Logger) *Consumer {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		GroupID:        group,
		Topic:          topic,
		MinBytes:       1,
		MaxBytes:       10e6,
		CommitInterval: 0, // manual commit
	})
	if workers <= 0 {
		workers = 1
	}
	return &Consumer{r: r, workers: workers, log: log, retryBase: 200 * time.Millisecond, retryMax: 10 * time.Second}
}

// Start fetches messages until ctx is cancelled. Every partition is owned by one
// worker, so a partition's messages are handled and committed in offset order.
// A failing message is retried in place; later messages of its partition wait.
func (c *Consumer) Start(ctx context.Context, h Handler) error {
	defer c.r.Close()

	queues := make([]chan kafka.Message, c.workers)
	var wg sync.WaitGroup
	for i := range queues {
		queues[i] = make(chan kafka.Message, 4)
		wg.Add(1)
		go func(id int, jobs <-chan kafka.Message) {
			defer wg.Done()
			for m := range jobs {
				if !c.process(ctx, id, h, m) {
					// ctx ended mid-retry: nothing after m may be committed.
					for range jobs {
					}
					return
				}
				if err := c.r.CommitMessages(ctx, m); err != nil && ctx.Err() == nil {
					c.log.Error("commit offset", zap.Int64("offset", m.Offset), zap.Error(err))
				}
			}
		}(i, queues[i])
	}
	defer wg.Wait()
	closeQueues := func() {
		for _, q := range queues {
			close(q)
		}
	}

	for {
		m, err := c.r.FetchMessage(ctx)
		if err != nil {
			closeQueues()
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		select {
		case queues[workerFor(m.Partition, c.workers)] <- m:
		case <-ctx.Done():
			closeQueues()
			return nil
		}
	}
}

// process runs h until it succeeds. It returns false only when ctx ends first.
func (c *Consumer) process(ctx context.Context, worker int, h Handler, m kafka.Message) bool {
	for attempt := 0; ; attempt++ {
		err := h(ctx, m)
		if err == nil {
			return true
		}
		wait := c.backoff(attempt)
		c.log.Error("handler failed, retrying",
			zap.Int("worker", worker),
			zap.String("topic", m.Topic),
			zap.Int("partition", m.Partition),
			zap.Int64("offset", m.Offset),
			zap.Int("attempt", attempt+1),
			zap.Duration("retry_in", wait),
			zap.Error(err),
		)
		select {
		case <-ctx.Done():
			return false
		case <-time.After(wait):
		}
	}
}

// backoff doubles from retryBase and is capped at retryMax.
func (c *Consumer) backoff(attempt int) time.Duration {
	d := c.retryBase << min(attempt, 16)
	if d <= 0 || d > c.retryMax {
		return c.retryMax
	}
	return d
}

func workerFor(partition, workers int) int { return partition % workers }
