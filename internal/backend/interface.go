// Package backend builds the event publisher selected by configuration.
package backend

import (
	"context"

	"tally/internal/events"
)

// CleanupFunc releases the resources of a backend.
type CleanupFunc func() error

// Result is the publisher and its cleanup. Publisher is nil when events
// are disabled.
type Result struct {
	Publisher events.Publisher
	Cleanup   CleanupFunc
}

// Source delivers events to a handler until its context is cancelled.
type Source interface {
	Consume(ctx context.Context, handler func(context.Context, events.Event) error) error
}

// SourceResult is the event source used by the worker and its cleanup.
type SourceResult struct {
	Source  Source
	Cleanup CleanupFunc
}

// Factory creates publishers and sources based on configuration
type Factory interface {
	CreatePublisher(ctx context.Context, config Config) (*Result, error)
	CreateSource(ctx context.Context, config Config) (*SourceResult, error)
}

// Config holds configuration for publisher creation
type Config struct {
	Type Type

	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	KafkaBrokers []string
	KafkaTopic   string
	KafkaGroupID string
}

// Type is the event transport.
type Type string

const (
	AMQP  Type = "amqp"
	Kafka Type = "kafka"
	None  Type = "none"
)

func (t Type) String() string {
	return string(t)
}

func (t Type) IsValid() bool {
	switch t {
	case AMQP, Kafka, None:
		return true
	default:
		return false
	}
}
