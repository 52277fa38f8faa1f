package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/majidtaherkhani/etf-service/internal/models"
	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
)

// PriceRepository defines the price store writes used by the consumer
type PriceRepository interface {
	CreatePriceObservationsBatch(ctx context.Context, observations []models.PriceObservation) error
}

// messageReader is the subset of kafka.Reader used by PriceConsumer
type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// errSaveFailed marks processing failures that are worth retrying
var errSaveFailed = errors.New("failed to save price observation")

const defaultRetryDelay = 2 * time.Second

// PriceConsumer ingests price observations from Kafka into the price store.
// Offsets are committed only after the observation is stored, so delivery is
// at least once.
type PriceConsumer struct {
	reader     messageReader
	topic      string
	repo       PriceRepository
	retryDelay time.Duration
	log        zerolog.Logger
}

// NewPriceConsumer creates a new Kafka consumer for price events
func NewPriceConsumer(brokers []string, topic, groupID string, repo PriceRepository, log zerolog.Logger) *PriceConsumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     brokers,
		Topic:       topic,
		GroupID:     groupID,
		MinBytes:    10e3, // 10KB
		MaxBytes:    10e6, // 10MB
		MaxWait:     1 * time.Second,
		StartOffset: kafka.FirstOffset,
	})

	return &PriceConsumer{
		reader:     reader,
		topic:      topic,
		repo:       repo,
		retryDelay: defaultRetryDelay,
		log:        log.With().Str("component", "price_consumer").Logger(),
	}
}

// Start begins consuming messages until ctx is cancelled
func (c *PriceConsumer) Start(ctx context.Context) error {
	c.log.Info().Str("topic", c.topic).Msg("Starting Kafka price consumer")

	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return c.shutdown()
			}
			c.log.Error().Err(err).Msg("Error fetching message")
			continue
		}

		if err := c.handleMessage(ctx, msg); err != nil {
			return c.shutdown()
		}

		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			if ctx.Err() != nil {
				return c.shutdown()
			}
			c.log.Error().Err(err).
				Int("partition", msg.Partition).
				Int64("offset", msg.Offset).
				Msg("Error committing offset")
		}
	}
}

// handleMessage processes msg, retrying store failures until they succeed.
// Invalid events are logged and skipped. It returns an error only when ctx ends.
func (c *PriceConsumer) handleMessage(ctx context.Context, msg kafka.Message) error {
	for attempt := 1; ; attempt++ {
		err := c.processMessage(ctx, msg)
		if err == nil {
			return nil
		}

		log := c.log.With().
			Err(err).
			Int("partition", msg.Partition).
			Int64("offset", msg.Offset).
			Logger()
		if !errors.Is(err, errSaveFailed) {
			log.Error().Msg("Skipping invalid message")
			return nil
		}
		log.Warn().Int("attempt", attempt).Msg("Error storing price, retrying")

		select {
		case <-time.After(c.retryDelay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (c *PriceConsumer) shutdown() error {
	c.log.Info().Msg("Kafka price consumer shutting down")
	return c.reader.Close()
}

// processMessage handles a single Kafka message
func (c *PriceConsumer) processMessage(ctx context.Context, msg kafka.Message) error {
	var event models.PriceEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		return fmt.Errorf("failed to unmarshal price event: %w", err)
	}

	if event.EventType != models.EventTypePriceObserved {
		c.log.Debug().Str("event_type", event.EventType).Msg("Ignoring event")
		return nil
	}

	observation, err := convertEventToObservation(event)
	if err != nil {
		return fmt.Errorf("invalid price event from %s: %w", event.Source, err)
	}

	if err := c.repo.CreatePriceObservationsBatch(ctx, []models.PriceObservation{*observation}); err != nil {
		return fmt.Errorf("%w: %w", errSaveFailed, err)
	}

	c.log.Debug().
		Str("ticker", observation.Ticker).
		Str("date", event.Data.Date).
		Float64("price", observation.Price).
		Msg("Saved price observation")
	return nil
}

// convertEventToObservation validates and normalizes a price event
func convertEventToObservation(event models.PriceEvent) (*models.PriceObservation, error) {
	data := event.Data

	ticker := strings.ToUpper(strings.TrimSpace(data.Ticker))
	if ticker == "" {
		return nil, fmt.Errorf("missing ticker")
	}

	date, err := time.Parse(models.DateLayout, data.Date)
	if err != nil {
		return nil, fmt.Errorf("invalid date %q: %w", data.Date, err)
	}

	if math.IsNaN(data.Price) || math.IsInf(data.Price, 0) || data.Price <= 0 {
		return nil, fmt.Errorf("invalid price %v for %s", data.Price, ticker)
	}

	return &models.PriceObservation{
		Date:   date,
		Ticker: ticker,
		Price:  data.Price,
	}, nil
}

// Close closes the Kafka consumer
func (c *PriceConsumer) Close() error {
	return c.reader.Close()
}
