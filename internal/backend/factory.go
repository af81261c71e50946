package backend

import (
	"context"
	"errors"
	"fmt"

	"fintrack/internal/amqp"
	"fintrack/internal/log"
	"fintrack/internal/services"
	"fintrack/internal/storage"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *log.Logger
}

func NewFactory(logger *log.Logger) Factory {
	if logger == nil {
		logger = log.Nop()
	}
	return &DefaultFactory{logger: logger.WithComponent(log.ComponentBackend)}
}

// OpenStorage opens the storage engine named by config.Type.
func OpenStorage(config Config, logger *log.Logger) (storage.Backend, error) {
	switch config.Type {
	case JSONBackend:
		return storage.NewFileBackend(config.Path)
	case SQLiteBackend:
		return storage.NewSQLiteBackend(config.Path, logger)
	case BoltBackend:
		return storage.NewBoltBackend(config.Path)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

// CreateBackend opens storage and, when configured, an AMQP publisher. A
// broker that cannot be reached is logged and skipped; the store works
// without events.
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config, converter services.Converter) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	store, err := OpenStorage(config, f.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize %s storage: %w", config.Type, err)
	}

	var events *amqp.Client
	if config.AMQPURL != "" {
		events, err = amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue, f.logger)
		if err != nil {
			f.logger.Warn("Failed to initialize AMQP client, continuing without events", log.FieldError, err)
			events = nil
		} else {
			f.logger.Info("Initialized AMQP client",
				"exchange", config.AMQPExchange,
				"queue", config.AMQPQueue)
		}
	}

	opts := services.Options{
		DefaultCurrency: config.DefaultCurrency,
		ResetOnCorrupt:  config.ResetOnCorrupt,
		Logger:          f.logger,
	}
	if events != nil {
		opts.Publisher = events
	}
	records := services.NewRecordStore(store, converter, opts)

	f.logger.Info("Initialized record store",
		"backend", config.Type.String(),
		log.FieldLocation, store.Location(),
		"events_enabled", events != nil)

	return &BackendResult{
		Store:  records,
		Events: events,
		Cleanup: func() error {
			var errs []error
			if err := records.Close(); err != nil {
				errs = append(errs, fmt.Errorf("storage: %w", err))
			}
			if events != nil {
				if err := events.Close(); err != nil {
					errs = append(errs, fmt.Errorf("amqp: %w", err))
				}
			}
			return errors.Join(errs...)
		},
	}, nil
}
