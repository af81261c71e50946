// Package backend assembles a RecordStore from configuration: the storage
// backend, the optional event publisher and their cleanup.
package backend

import (
	"context"

	"fintrack/internal/amqp"
	"fintrack/internal/services"
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// BackendResult contains the store and the function releasing everything
// opened to build it.
type BackendResult struct {
	Store   *services.RecordStore
	Events  *amqp.Client
	Cleanup CleanupFunc
}

// Factory creates stores based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config, converter services.Converter) (*BackendResult, error)
}

type Config struct {
	Type BackendType
	Path string

	DefaultCurrency string
	ResetOnCorrupt  bool

	// Optional event publishing
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string
}

// BackendType names a storage engine.
type BackendType string

const (
	JSONBackend   BackendType = "json"
	SQLiteBackend BackendType = "sqlite"
	BoltBackend   BackendType = "bolt"
)

func (bt BackendType) String() string {
	return string(bt)
}

func (bt BackendType) IsValid() bool {
	switch bt {
	case JSONBackend, SQLiteBackend, BoltBackend:
		return true
	default:
		return false
	}
}
