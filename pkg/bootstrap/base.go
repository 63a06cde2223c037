package bootstrap

import (
	"context"
	"errors"
	"fmt"

	"marketguard/internal/broker"
	"marketguard/internal/config"
	"marketguard/internal/logger"
)

// Base holds what every service binary shares: config, logger and the
// broker clients it opted into.
type Base struct {
	Config      *config.Config
	Logger      logger.Logger
	ServiceName string
	Producer    broker.Producer
	Consumer    broker.Consumer
}

func NewBase(cfg *config.Config, log logger.Logger, serviceName string) *Base {
	return &Base{
		Config:      cfg,
		Logger:      log,
		ServiceName: serviceName,
	}
}

func (b *Base) InitProducer() error {
	producer, err := broker.NewProducer(b.Config.Broker, b.ServiceName, b.Logger)
	if err != nil {
		return fmt.Errorf("failed to create producer: %w", err)
	}
	b.Producer = producer
	return nil
}

func (b *Base) InitConsumer() error {
	consumer, err := broker.NewConsumer(b.Config.Broker, b.Logger)
	if err != nil {
		return fmt.Errorf("failed to create consumer: %w", err)
	}
	consumer.SetServiceName(b.ServiceName)
	b.Consumer = consumer
	return nil
}

func (b *Base) ShutdownBroker() []error {
	var errs []error

	if b.Consumer != nil {
		if err := b.Consumer.Close(); err != nil {
			errs = append(errs, fmt.Errorf("consumer close error: %w", err))
		}
	}

	if b.Producer != nil {
		if err := b.Producer.Close(); err != nil {
			errs = append(errs, fmt.Errorf("producer close error: %w", err))
		}
	}

	return errs
}

// Shutdown closes the broker clients, then runs additionalShutdown.
func (b *Base) Shutdown(ctx context.Context, additionalShutdown func(ctx context.Context) []error) error {
	b.Logger.InfowCtx(ctx, "Shutting down application", "service", b.ServiceName)

	errs := b.ShutdownBroker()
	if additionalShutdown != nil {
		errs = append(errs, additionalShutdown(ctx)...)
	}

	if len(errs) > 0 {
		return fmt.Errorf("shutdown errors: %w", errors.Join(errs...))
	}

	b.Logger.InfowCtx(ctx, "Application exited successfully", "service", b.ServiceName)
	return nil
}
