package kafka

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"tally/internal/events"
)

const maxHandleAttempts = 3

// Consumer reads events from a topic as a member of a consumer group.
type Consumer struct {
	reader  *kafka.Reader
	backoff time.Duration
}

func NewConsumer(brokers []string, topic, groupID string) *Consumer {
	return &Consumer{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:  brokers,
			Topic:    topic,
			GroupID:  groupID,
			MinBytes: 1,
			MaxBytes: 10e6,
		}),
		backoff: time.Second,
	}
}

// Consume hands every event to handler until ctx is cancelled. A message is
// committed once handled or after its attempts are exhausted, so a poison
// event never blocks its partition.
func (c *Consumer) Consume(ctx context.Context, handler func(context.Context, events.Event) error) error {
	slog.InfoContext(ctx, "Started consuming events", "topic", c.reader.Config().Topic)
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("fetch kafka message: %w", err)
		}

		if err := c.handle(ctx, msg, handler); err != nil && ctx.Err() != nil {
			return ctx.Err()
		}
		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("commit kafka message: %w", err)
		}
	}
}

func (c *Consumer) handle(ctx context.Context, msg kafka.Message, handler func(context.Context, events.Event) error) error {
	e, err := events.FromJSON(msg.Value)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to unmarshal event", "error", err, "offset", msg.Offset)
		return err
	}

	for attempt := 1; ; attempt++ {
		err = handler(ctx, e)
		if err == nil {
			slog.InfoContext(ctx, "Processed event", "type", e.Type, "event_id", e.ID)
			return nil
		}
		slog.ErrorContext(ctx, "Failed to handle event",
			"error", err,
			"type", e.Type,
			"event_id", e.ID,
			"attempt", attempt)
		if attempt == maxHandleAttempts {
			return err
		}
		select {
		case <-ctx.Done():
			return errors.Join(err, ctx.Err())
		case <-time.After(c.backoff * time.Duration(attempt)):
		}
	}
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}
