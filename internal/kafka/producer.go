package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/majidtaherkhani/etf-service/internal/models"
	"github.com/segmentio/kafka-go"
)

// messageWriter is the part of *kafka.Writer the producer depends on
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer handles publishing events to Kafka
type Producer struct {
	writer messageWriter
	topic  string
}

// NewProducer creates a new Kafka producer
func NewProducer(brokers []string, topic string) *Producer {
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.LeastBytes{},
		BatchTimeout:           10 * time.Millisecond,
		AllowAutoTopicCreation: true,
	}

	return &Producer{
		writer: writer,
		topic:  topic,
	}
}

// PublishAnalysisArchived publishes an event after an upload has been archived
func (p *Producer) PublishAnalysisArchived(ctx context.Context, entry *models.AnalysisLog) error {
	event := models.AnalysisEvent{
		EventType:  models.EventTypeAnalysisArchived,
		LogID:      entry.ID,
		FileName:   entry.FileName,
		StorageURL: entry.StorageURL,
		Timestamp:  time.Now(),
	}
	return p.publish(ctx, entry.FileName, event)
}

func (p *Producer) publish(ctx context.Context, key string, event any) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: data,
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to write message to kafka: %w", err)
	}

	return nil
}

// Close closes the Kafka producer
func (p *Producer) Close() error {
	return p.writer.Close()
}
