package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	"bank-ledger-core/internal/core/domain"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
)

// messageWriter is the subset of kafka.Writer used by the publisher.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Publisher implements ports.EntryPublisher on a Kafka topic. Messages
// are keyed by the debited account so entries for one account land in
// one partition, preserving sequence order for downstream consumers.
type Publisher struct {
	writer messageWriter
	log    zerolog.Logger
}

// NewPublisher creates a Kafka-backed ledger entry publisher. The hash
// balancer routes by message key, which carries the per-partition ordering
// guarantee the doc on Publisher promises.
func NewPublisher(brokers []string, topic string, log zerolog.Logger) *Publisher {
	return &Publisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
		},
		log: log.With().Str("component", "kafka_publisher").Logger(),
	}
}

// Publish emits a committed ledger entry.
func (p *Publisher) Publish(ctx context.Context, entry *domain.LedgerEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal ledger entry: %w", err)
	}

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(entry.Transaction.FromAccountNum),
		Value: data,
	})
	if err != nil {
		return fmt.Errorf("write ledger entry to kafka: %w", err)
	}

	p.log.Debug().
		Uint64("seq", entry.Seq).
		Str("transaction_id", entry.Transaction.ID.String()).
		Msg("Ledger entry published")
	return nil
}

// Close flushes and closes the underlying writer.
func (p *Publisher) Close() error {
	return p.writer.Close()
}
