//go:generate mockgen -source ./producer.go -destination=./mocks/producer.go -package=mock_kafka
package kafka

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

type Producer interface {
	SendMessage(ctx context.Context, topic string, key []byte, value []byte) error
	Close() error
}

// BrokerProducer writes to a Kafka cluster. The topic is chosen per message.
type BrokerProducer struct {
	writer *kafkago.Writer
	logger *zap.Logger
}

func NewBrokerProducer(brokers []string, logger *zap.Logger) *BrokerProducer {
	logger.Info("Initialized Kafka producer", zap.Strings("brokers", brokers))
	return &BrokerProducer{
		writer: &kafkago.Writer{
			Addr:                   kafkago.TCP(brokers...),
			Balancer:               &kafkago.Hash{},
			RequiredAcks:           kafkago.RequireAll,
			AllowAutoTopicCreation: true,
			BatchTimeout:           50 * time.Millisecond,
		},
		logger: logger,
	}
}

func (p *BrokerProducer) SendMessage(ctx context.Context, topic string, key []byte, value []byte) error {
	err := p.writer.WriteMessages(ctx, kafkago.Message{
		Topic: topic,
		Key:   key,
		Value: value,
	})
	if err != nil {
		return fmt.Errorf("failed to write message to %s: %w", topic, err)
	}
	return nil
}

func (p *BrokerProducer) Close() error {
	p.logger.Info("Closing Kafka producer")
	return p.writer.Close()
}

// ConsoleProducer prints events instead of publishing them. It stands in for
// the broker when no brokers are configured.
type ConsoleProducer struct {
	out    io.Writer
	logger *zap.Logger
}

func NewConsoleProducer(logger *zap.Logger) *ConsoleProducer {
	logger.Info("Initialized console producer, no Kafka brokers configured")
	return &ConsoleProducer{out: os.Stdout, logger: logger}
}

func (p *ConsoleProducer) SendMessage(ctx context.Context, topic string, key []byte, value []byte) error {
	if err := ctx.Err(); err != nil {
		p.logger.Warn("Console producer cancelled", zap.String("topic", topic), zap.ByteString("key", key))
		return err
	}
	_, err := fmt.Fprintf(p.out, "--- EVENT %s ---\nKey:   %s\nValue: %s\n--- END EVENT ---\n", topic, key, value)
	return err
}

func (p *ConsoleProducer) Close() error {
	p.logger.Info("Closing console producer")
	return nil
}

// NewProducer picks the broker producer when brokers are configured and the
// console producer otherwise.
func NewProducer(brokers []string, logger *zap.Logger) Producer {
	if len(brokers) == 0 {
		return NewConsoleProducer(logger)
	}
	return NewBrokerProducer(brokers, logger)
}
