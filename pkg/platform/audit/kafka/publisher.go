// Package kafka publishes audit events to a Kafka topic as JSON, keyed by
// profile id so one profile's events stay ordered within a partition.
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"

	audit "phasegate/pkg/platform/audit"
)

const (
	defaultDeliveryTimeout = 10 * time.Second
	defaultMaxBuffered     = 10_000
)

// Publisher buffers audit events and produces them in the background. Emit
// never waits on the broker; delivery failures are logged by the callback.
type Publisher struct {
	client          *kgo.Client
	topic           string
	logger          *slog.Logger
	deliveryTimeout time.Duration
	maxBuffered     int
}

// Option configures the Publisher.
type Option func(*Publisher)

// WithLogger sets the logger for topic bootstrap and delivery failures.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		p.logger = logger
	}
}

// WithDeliveryTimeout bounds how long a buffered record may wait for the
// broker before it is failed.
func WithDeliveryTimeout(d time.Duration) Option {
	return func(p *Publisher) {
		if d > 0 {
			p.deliveryTimeout = d
		}
	}
}

// WithMaxBuffered caps the records held in memory while the broker is slow.
// Emit rejects events beyond the cap instead of blocking.
func WithMaxBuffered(n int) Option {
	return func(p *Publisher) {
		if n > 0 {
			p.maxBuffered = n
		}
	}
}

// New connects to brokers. The connection is lazy; the first produce or
// EnsureTopic call surfaces broker errors.
func New(brokers []string, topic string, opts ...Option) (*Publisher, error) {
	if len(brokers) == 0 {
		return nil, errors.New("kafka: no brokers configured")
	}
	if topic == "" {
		return nil, errors.New("kafka: topic is required")
	}
	p := &Publisher{
		topic:           topic,
		logger:          slog.Default(),
		deliveryTimeout: defaultDeliveryTimeout,
		maxBuffered:     defaultMaxBuffered,
	}
	for _, opt := range opts {
		opt(p)
	}
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
		kgo.RequiredAcks(kgo.AllISRAcks()),
		kgo.RecordDeliveryTimeout(p.deliveryTimeout),
		kgo.MaxBufferedRecords(p.maxBuffered),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka: create client: %w", err)
	}
	p.client = client
	return p, nil
}

// EnsureTopic creates the audit topic if it does not exist yet.
func (p *Publisher) EnsureTopic(ctx context.Context, partitions int32, replicationFactor int16) error {
	adm := kadm.NewClient(p.client)
	resps, err := adm.CreateTopics(ctx, partitions, replicationFactor, nil, p.topic)
	if err != nil {
		return fmt.Errorf("kafka: create topic %s: %w", p.topic, err)
	}
	for _, resp := range resps {
		if resp.Err != nil && !errors.Is(resp.Err, kerr.TopicAlreadyExists) {
			return fmt.Errorf("kafka: create topic %s: %w", resp.Topic, resp.Err)
		}
	}
	p.logger.InfoContext(ctx, "audit topic ready", "topic", p.topic)
	return nil
}

// Emit hands the event to the producer buffer and returns. It fails only when
// the event cannot be encoded; a full buffer drops the event with an error log.
func (p *Publisher) Emit(ctx context.Context, event audit.Event) error {
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("kafka: marshal audit event: %w", err)
	}
	record := &kgo.Record{
		Topic: p.topic,
		Key:   []byte(event.ProfileID.String()),
		Value: value,
		Headers: []kgo.RecordHeader{
			{Key: "category", Value: []byte(event.Category)},
			{Key: "action", Value: []byte(event.Action)},
		},
	}
	// The record outlives the request; only the delivery timeout bounds it.
	produceCtx := context.WithoutCancel(ctx)
	p.client.TryProduce(produceCtx, record, func(_ *kgo.Record, err error) {
		if err == nil {
			return
		}
		p.logger.ErrorContext(produceCtx, "audit event delivery failed",
			"action", event.Action,
			"profile_id", event.ProfileID,
			"request_id", event.RequestID,
			"buffer_full", errors.Is(err, kgo.ErrMaxBuffered),
			"error", err,
		)
	})
	return nil
}

// Flush waits until every buffered event is delivered or failed.
func (p *Publisher) Flush(ctx context.Context) error {
	return p.client.Flush(ctx)
}

// Close gives buffered events one delivery timeout to drain, then closes the
// client.
func (p *Publisher) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), p.deliveryTimeout)
	defer cancel()
	if err := p.client.Flush(ctx); err != nil {
		p.logger.Warn("audit events dropped on close", "error", err)
	}
	p.client.Close()
}
