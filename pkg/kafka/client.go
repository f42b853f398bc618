// Package kafka publishes and consumes enrichment tasks.
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/mesopotato/enrich-justice/internal/config"
	"github.com/mesopotato/enrich-justice/pkg/log"
	"github.com/mesopotato/enrich-justice/pkg/tasks"
	"github.com/segmentio/kafka-go"
)

// TaskProcessor handles one enrichment task.
type TaskProcessor interface {
	Process(ctx context.Context, task tasks.EnrichmentTask) error
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

func brokers(cfg config.KafkaConfig) []string {
	var out []string
	for _, b := range strings.Split(cfg.Brokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}

// Producer publishes enrichment tasks.
type Producer struct {
	w messageWriter
}

// NewProducer creates a producer for the configured topic.
func NewProducer(cfg config.KafkaConfig) *Producer {
	log.Info("[Kafka] producer initialised")
	return &Producer{w: &kafka.Writer{
		Addr:     kafka.TCP(brokers(cfg)...),
		Topic:    cfg.Topic,
		Balancer: &kafka.LeastBytes{},
	}}
}

// Publish sends tasks in one batch, keyed by their attempt key.
func (p *Producer) Publish(ctx context.Context, ts ...tasks.EnrichmentTask) error {
	if len(ts) == 0 {
		return nil
	}
	msgs := make([]kafka.Message, 0, len(ts))
	for _, t := range ts {
		b, err := json.Marshal(t)
		if err != nil {
			return err
		}
		msgs = append(msgs, kafka.Message{Key: []byte(t.AttemptKey()), Value: b})
	}
	return p.w.WriteMessages(ctx, msgs...)
}

func (p *Producer) Close() error {
	return p.w.Close()
}

// Consumer processes tasks one at a time. A kafka reader never hands out an uncommitted
// message again within the same process, so a failing task is retried in place with
// exponential backoff until it has failed maxAttempts times and only then committed.
// Attempts are counted in Redis so a task interrupted by a restart resumes its count.
type Consumer struct {
	r           messageReader
	rdb         *redis.Client
	processor   TaskProcessor
	maxAttempts int64
	backoff     time.Duration
	maxBackoff  time.Duration
}

// NewConsumer creates a consumer group reader for the configured topic.
func NewConsumer(cfg config.KafkaConfig, rdb *redis.Client, processor TaskProcessor) *Consumer {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers(cfg),
		Topic:    cfg.Topic,
		GroupID:  cfg.GroupID,
		MinBytes: 1,
		MaxBytes: 10e6,
	})
	return newConsumer(r, rdb, processor, cfg.MaxAttempts)
}

func newConsumer(r messageReader, rdb *redis.Client, processor TaskProcessor, maxAttempts int) *Consumer {
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	return &Consumer{
		r:           r,
		rdb:         rdb,
		processor:   processor,
		maxAttempts: int64(maxAttempts),
		backoff:     2 * time.Second,
		maxBackoff:  time.Minute,
	}
}

// Run consumes until ctx is cancelled or the reader fails.
func (c *Consumer) Run(ctx context.Context) error {
	log.Info("[Kafka] consumer started")
	defer func() {
		if err := c.r.Close(); err != nil {
			log.Errorf("[Kafka] closing consumer failed: %v", err)
		}
	}()

	for {
		m, err := c.r.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil
			}
			log.Error("[Kafka] fetching message failed", err)
			return err
		}
		c.handle(ctx, m)
	}
}

func (c *Consumer) handle(ctx context.Context, m kafka.Message) {
	log.Infof("[Kafka] received message: offset %d", m.Offset)

	var task tasks.EnrichmentTask
	if err := json.Unmarshal(m.Value, &task); err != nil {
		log.Errorf("[Kafka] malformed message: %v, value: %s", err, string(m.Value))
		// retrying cannot fix an unparseable message
		c.commit(ctx, m)
		return
	}

	attemptsKey := "kafka:attempts:" + task.AttemptKey()
	var local int64
	for {
		err := c.processor.Process(ctx, task)
		if err == nil {
			log.Infof("[Kafka] task %s (%s) done", task.ID, task.AttemptKey())
			_ = c.rdb.Del(ctx, attemptsKey).Err()
			c.commit(ctx, m)
			return
		}
		if ctx.Err() != nil {
			// shutting down: leave the offset for the next consumer
			log.Warnf("[Kafka] task %s interrupted: %v", task.AttemptKey(), err)
			return
		}

		local++
		attempts, incErr := c.rdb.Incr(ctx, attemptsKey).Result()
		if incErr != nil {
			log.Errorf("[Kafka] counting attempts failed, counting locally: %v", incErr)
			attempts = local
		} else {
			_ = c.rdb.Expire(ctx, attemptsKey, 24*time.Hour).Err()
		}
		log.Errorf("[Kafka] task %s (%s) failed, attempt %d/%d: %v", task.ID, task.AttemptKey(), attempts, c.maxAttempts, err)
		if attempts >= c.maxAttempts {
			log.Warnw("[Kafka] giving up on task", "task", task.AttemptKey(), "attempts", attempts, "error", err)
			_ = c.rdb.Del(ctx, attemptsKey).Err()
			c.commit(ctx, m)
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(c.delay(local)):
		}
	}
}

// delay returns the backoff before retry n (1-based), doubling up to maxBackoff.
func (c *Consumer) delay(n int64) time.Duration {
	d := c.backoff
	for i := int64(1); i < n && d < c.maxBackoff; i++ {
		d *= 2
	}
	if d > c.maxBackoff {
		d = c.maxBackoff
	}
	return d
}

func (c *Consumer) commit(ctx context.Context, m kafka.Message) {
	if err := c.r.CommitMessages(ctx, m); err != nil {
		log.Errorf("[Kafka] committing offset %d failed: %v", m.Offset, err)
	}
}

