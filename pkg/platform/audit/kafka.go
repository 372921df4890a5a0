package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"

	"caritas/pkg/platform/circuit"
	stringutil "caritas/pkg/string"
)

// DefaultTopic is the audit event topic.
const DefaultTopic = "caritas.audit"

// KafkaConfig holds Kafka publisher configuration.
type KafkaConfig struct {
	Brokers string // comma-separated seed brokers
	Topic   string
	Retries int
}

// KafkaPublisher delivers audit events to a Kafka topic, keyed by
// subject so events for one identity stay ordered.
type KafkaPublisher struct {
	client  *kgo.Client
	topic   string
	logger  *slog.Logger
	breaker *circuit.Breaker
	mu      sync.RWMutex
	closed  bool
}

// NewKafkaPublisher creates a publisher connected to the given brokers.
func NewKafkaPublisher(cfg KafkaConfig, logger *slog.Logger) (*KafkaPublisher, error) {
	if cfg.Brokers == "" {
		return nil, fmt.Errorf("kafka brokers not configured")
	}
	topic := cfg.Topic
	if topic == "" {
		topic = DefaultTopic
	}
	retries := cfg.Retries
	if retries == 0 {
		retries = 5
	}

	brokers := stringutil.DedupeAndTrim(strings.Split(cfg.Brokers, ","))
	if len(brokers) == 0 {
		return nil, fmt.Errorf("kafka brokers not configured")
	}

	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.RequiredAcks(kgo.AllISRAcks()),
		kgo.RecordRetries(retries),
		kgo.ProducerLinger(5*time.Millisecond),
		kgo.AllowAutoTopicCreation(),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}

	return &KafkaPublisher{
		client:  client,
		topic:   topic,
		logger:  logger,
		breaker: circuit.New("audit-kafka"),
	}, nil
}

// Emit publishes the event and waits for broker acknowledgement. While
// the broker is failing the breaker is open and events are dropped
// immediately rather than blocking every caller on produce timeouts.
func (p *KafkaPublisher) Emit(ctx context.Context, event Event) error {
	p.mu.RLock()
	if p.closed {
		p.mu.RUnlock()
		return fmt.Errorf("audit publisher is closed")
	}
	p.mu.RUnlock()

	if p.breaker.IsOpen() {
		// Probe the broker so successes can close the circuit again.
		if p.client.Ping(ctx) != nil {
			return fmt.Errorf("audit delivery suspended: broker unavailable")
		}
		if p.breaker.RecordSuccess() && p.logger != nil {
			p.logger.Info("audit delivery resumed", "breaker", p.breaker.Name())
		}
	}

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal audit event: %w", err)
	}

	record := &kgo.Record{
		Topic: p.topic,
		Key:   []byte(event.Subject),
		Value: value,
		Headers: []kgo.RecordHeader{
			{Key: "action", Value: []byte(event.Action)},
		},
	}

	if err := p.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		if p.breaker.RecordFailure() && p.logger != nil {
			p.logger.Error("audit delivery suspended after repeated failures", "breaker", p.breaker.Name())
		}
		if p.logger != nil {
			p.logger.Error("audit event delivery failed", "action", event.Action, "error", err)
		}
		return fmt.Errorf("produce audit event: %w", err)
	}
	p.breaker.RecordSuccess()
	return nil
}

// Healthy checks broker connectivity.
func (p *KafkaPublisher) Healthy(ctx context.Context) bool {
	p.mu.RLock()
	if p.closed {
		p.mu.RUnlock()
		return false
	}
	p.mu.RUnlock()
	return p.client.Ping(ctx) == nil
}

// Close flushes buffered records and shuts the client down.
func (p *KafkaPublisher) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := p.client.Flush(ctx); err != nil && p.logger != nil {
		p.logger.Warn("audit publisher closed with unflushed events", "error", err)
	}
	p.client.Close()
	return nil
}
