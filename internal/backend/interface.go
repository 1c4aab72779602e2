package backend

import (
	"context"
	"time"

	"expensedesk/internal/approval"
	"expensedesk/internal/auth"
	"expensedesk/internal/core"
	"expensedesk/internal/remote"
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// BackendResult bundles what a session needs from the selected backend.
// Publisher is nil when no broker is configured.
type BackendResult struct {
	Remote    remote.Service
	Tokens    *auth.TokenStore
	Publisher approval.Publisher
	Cleanup   CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	// HTTP specific
	APIBaseURL     string
	APIToken       string
	RequestTimeout time.Duration

	// Offline backends act as this user
	LocalUser core.User

	// SQLite specific
	SQLiteDBPath string

	// Memory backend specific
	DataDirectory string

	// Status events, optional for every backend
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string
}

// BackendType represents the type of backend
type BackendType string

const (
	HTTPBackend   BackendType = "http"
	SQLiteBackend BackendType = "sqlite"
	MemoryBackend BackendType = "memory"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case HTTPBackend, SQLiteBackend, MemoryBackend:
		return true
	default:
		return false
	}
}

// Close runs the cleanup function, if any.
func (r *BackendResult) Close() error {
	if r == nil || r.Cleanup == nil {
		return nil
	}
	return r.Cleanup()
}
