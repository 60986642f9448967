package backend

import (
	"context"
	"time"

	"fintrack/internal/amqp"
	"fintrack/internal/services"
	"fintrack/internal/source"
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// BackendResult is the wired transaction source together with the service
// built on top of it. AMQP is nil when messaging is disabled.
type BackendResult struct {
	Source  source.Source
	Service *services.TransactionService
	AMQP    *amqp.Client
	Cleanup CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	// API specific
	APIBaseURL string
	APIToken   string
	APITimeout time.Duration

	// Memory specific
	SeedFile string

	// Optional snapshot store and refresh messaging
	SQLiteDBPath string
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string
}

// BackendType represents the type of backend
type BackendType string

const (
	APIBackend    BackendType = "api"
	MemoryBackend BackendType = "memory"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case APIBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
