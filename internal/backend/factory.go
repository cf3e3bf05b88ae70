package backend

import (
	"context"
	"fmt"
	"log/slog"

	"tally/internal/amqp"
	"tally/internal/events/kafka"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger
}

func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{logger: logger}
}

// CreatePublisher builds the publisher for config. An unreachable RabbitMQ
// broker is not fatal: the service runs without events, as mutations never
// depend on delivery.
func (f *DefaultFactory) CreatePublisher(ctx context.Context, config Config) (*Result, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case AMQP:
		client, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
		if err != nil {
			f.logger.WarnContext(ctx, "Failed to initialize AMQP client, continuing without events", "error", err)
			return &Result{}, nil
		}
		f.logger.InfoContext(ctx, "Initialized AMQP publisher",
			"exchange", config.AMQPExchange,
			"queue", config.AMQPQueue)
		return &Result{Publisher: client, Cleanup: client.Close}, nil
	case Kafka:
		p := kafka.NewPublisher(config.KafkaBrokers, config.KafkaTopic)
		f.logger.InfoContext(ctx, "Initialized Kafka publisher", "brokers", config.KafkaBrokers, "topic", config.KafkaTopic)
		return &Result{Publisher: p, Cleanup: p.Close}, nil
	case None:
		f.logger.InfoContext(ctx, "Events disabled")
		return &Result{}, nil
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

// CreateSource builds the consumer side of config. Unlike publishing, a
// worker without a reachable broker has nothing to do, so connection
// failures are returned.
func (f *DefaultFactory) CreateSource(ctx context.Context, config Config) (*SourceResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case AMQP:
		client, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
		if err != nil {
			return nil, fmt.Errorf("initialize AMQP consumer: %w", err)
		}
		f.logger.InfoContext(ctx, "Initialized AMQP consumer", "queue", config.AMQPQueue)
		return &SourceResult{Source: client, Cleanup: client.Close}, nil
	case Kafka:
		if config.KafkaGroupID == "" {
			return nil, fmt.Errorf("kafka consumer needs a group id")
		}
		c := kafka.NewConsumer(config.KafkaBrokers, config.KafkaTopic, config.KafkaGroupID)
		f.logger.InfoContext(ctx, "Initialized Kafka consumer", "topic", config.KafkaTopic, "group_id", config.KafkaGroupID)
		return &SourceResult{Source: c, Cleanup: c.Close}, nil
	case None:
		return nil, fmt.Errorf("events backend %q has no event source", None)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}
