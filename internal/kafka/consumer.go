package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"ms-events/internal/logger"
	"ms-events/internal/models"

	"github.com/segmentio/kafka-go"
)

type Consumer struct {
	reader *kafka.Reader
	logger *logger.Logger
}

// NewConsumer creates a consumer for the manifest.published topic
func NewConsumer(brokers []string, topic, groupID string, log *logger.Logger) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MinBytes: 1,
		MaxBytes: 10e6, // 10MB
	})
	return &Consumer{reader: reader, logger: log}
}

// Start hands every decodable manifest.published event to handler until ctx is done
func (c *Consumer) Start(ctx context.Context, handler func(models.ManifestPublishedEvent)) error {
	c.logger.LogKafka("CONSUME", c.reader.Config().Topic, "consumer started")
	for {
		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil
			}
			return fmt.Errorf("read message: %w", err)
		}

		var ev models.ManifestPublishedEvent
		if err := json.Unmarshal(msg.Value, &ev); err != nil {
			c.logger.Warn("KAFKA", fmt.Sprintf("Failed to unmarshal message at offset %d: %v", msg.Offset, err))
			continue
		}
		handler(ev)
	}
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}
