package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"gitlab.com/pdhero/retur/internal/config"
	"gitlab.com/pdhero/retur/internal/logger"
	"gitlab.com/pdhero/retur/internal/repository"
)

// The consumer stands in for the recipient desk: it prints every return
// event published from the outbox.
func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		zap.L().Fatal("Failed to load config", zap.Error(err))
	}

	log := logger.New(cfg.LogLevel)
	defer func() { _ = log.Sync() }()

	if len(cfg.KafkaBrokers) == 0 {
		log.Fatal("KAFKA_BROKERS is empty, nothing to consume from")
	}

	log.Info("Starting Kafka Consumer...")

	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        cfg.KafkaBrokers,
		GroupID:        cfg.KafkaGroupID,
		Topic:          cfg.KafkaTopic,
		MinBytes:       10e3,
		MaxBytes:       10e6,
		CommitInterval: time.Second,
		MaxWait:        3 * time.Second,
	})
	defer func() {
		log.Info("Closing Kafka reader...")
		if err := r.Close(); err != nil {
			log.Error("Error closing Kafka reader", zap.Error(err))
		}
	}()

	log.Info("Consumer connected",
		zap.String("topic", cfg.KafkaTopic),
		zap.Strings("brokers", cfg.KafkaBrokers),
		zap.String("group_id", cfg.KafkaGroupID))

	for {
		m, err := r.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				log.Info("Shutdown signal received, stopping consumer.")
				return
			}
			log.Error("Error reading message", zap.Error(err))
			select {
			case <-ctx.Done():
				return
			case <-time.After(5 * time.Second):
			}
			continue
		}

		var event repository.ReturnEvent
		if err := json.Unmarshal(m.Value, &event); err != nil {
			log.Warn("Skipping malformed event",
				zap.Int64("offset", m.Offset),
				zap.ByteString("value", m.Value),
				zap.Error(err))
			continue
		}

		fmt.Println("--- RETURN EVENT ---")
		fmt.Printf("Timestamp: %s\n", m.Time.Format(time.RFC3339))
		fmt.Printf("Partition: %d  Offset: %d\n", m.Partition, m.Offset)
		fmt.Printf("Event:     %s\n", event.Type)
		fmt.Printf("Number:    %s\n", event.DocumentNumber)
		fmt.Printf("Item:      %s (%d %s)\n", event.ItemName, event.Quantity, event.Unit)
		if event.OldStatus != "" || event.NewStatus != "" {
			fmt.Printf("Status:    %s -> %s\n", event.OldStatus, event.NewStatus)
		}
		fmt.Println("--- END EVENT ---")
	}
}
