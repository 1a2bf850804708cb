package outbox

import (
	"context"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
)

// KafkaProducer writes outbox batches to Kafka, keeping one writer per topic.
// Messages are keyed by aggregate ID so events for a single contract or user
// land on one partition and stay ordered.
type KafkaProducer struct {
	brokers []string

	mu      sync.RWMutex
	writers map[string]*kafka.Writer
}

// NewKafkaProducer creates a KafkaProducer for the given broker list.
func NewKafkaProducer(brokers []string) *KafkaProducer {
	return &KafkaProducer{
		brokers: brokers,
		writers: make(map[string]*kafka.Writer),
	}
}

// WriteMessages writes messages to topic, creating its writer on first use.
func (p *KafkaProducer) WriteMessages(ctx context.Context, topic string, msgs ...kafka.Message) error {
	p.mu.RLock()
	writer, ok := p.writers[topic]
	p.mu.RUnlock()
	if !ok {
		writer = p.newWriter(topic)
	}
	return writer.WriteMessages(ctx, msgs...)
}

func (p *KafkaProducer) newWriter(topic string) *kafka.Writer {
	p.mu.Lock()
	defer p.mu.Unlock()

	if writer, ok := p.writers[topic]; ok {
		return writer
	}
	writer := &kafka.Writer{
		Addr:         kafka.TCP(p.brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		Compression:  kafka.Snappy,
		BatchTimeout: 50 * time.Millisecond,
	}
	p.writers[topic] = writer
	return writer
}

// Close flushes and releases every writer, returning the first error seen.
func (p *KafkaProducer) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var firstErr error
	for _, writer := range p.writers {
		if err := writer.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	p.writers = make(map[string]*kafka.Writer)
	return firstErr
}
