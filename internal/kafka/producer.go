package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"ms-events/internal/logger"
	"ms-events/internal/models"

	"github.com/segmentio/kafka-go"
)

// Publisher emits domain events. The server works without one.
type Publisher interface {
	PublishManifest(ctx context.Context, m models.Manifest) error
	PublishBooking(ctx context.Context, b models.Booking) error
	Close() error
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Topics struct {
	ManifestPublished string
	BookingConfirmed  string
}

type Producer struct {
	writer messageWriter
	topics Topics
	logger *logger.Logger
	now    func() time.Time
}

func NewProducer(brokers []string, topics Topics, log *logger.Logger) *Producer {
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
	}
	return &Producer{writer: writer, topics: topics, logger: log, now: time.Now}
}

// PublishManifest streams the manifest.published event, keyed by lastUpdated
func (p *Producer) PublishManifest(ctx context.Context, m models.Manifest) error {
	ids := make([]string, 0, len(m.Events))
	for _, ev := range m.Events {
		ids = append(ids, ev.ID)
	}
	msg := models.ManifestPublishedEvent{
		Type:        "manifest.published",
		LastUpdated: m.LastUpdated,
		EventIDs:    ids,
		Timestamp:   p.now().UTC(),
	}
	return p.publish(ctx, p.topics.ManifestPublished, m.LastUpdated, msg)
}

// PublishBooking streams the booking.confirmed event, keyed by event id
func (p *Producer) PublishBooking(ctx context.Context, b models.Booking) error {
	msg := models.BookingConfirmedEvent{
		Type:      "booking.confirmed",
		Booking:   b,
		Timestamp: p.now().UTC(),
	}
	return p.publish(ctx, p.topics.BookingConfirmed, b.EventID, msg)
}

func (p *Producer) publish(ctx context.Context, topic, key string, value interface{}) error {
	msgBytes, err := json.Marshal(value)
	if err != nil {
		return err
	}

	p.logger.LogKafka("PUBLISH", topic, string(msgBytes))

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: msgBytes,
	})
	if err != nil {
		return fmt.Errorf("write to %s: %w", topic, err)
	}
	return nil
}

func (p *Producer) Close() error {
	return p.writer.Close()
}

// NopPublisher drops every event
type NopPublisher struct{}

func (NopPublisher) PublishManifest(context.Context, models.Manifest) error { return nil }
func (NopPublisher) PublishBooking(context.Context, models.Booking) error   { return nil }
func (NopPublisher) Close() error                                           { return nil }
