package graph

import (
	"context"
	"errors"
)

// Client defines the contract repositories use to run cypher against the
// underlying graph database. Parameters are always passed as a named map and
// never interpolated into query text.
type Client interface {
	// Execute runs a statement whose rows the caller does not consume.
	Execute(ctx context.Context, cypher string, params map[string]any) error
	// FetchAll eagerly materializes every row into an ordered slice. A query
	// matching zero rows yields an empty slice, never nil.
	FetchAll(ctx context.Context, cypher string, params map[string]any) ([]Record, error)
	// FetchOne returns the single matching row, or nil when there is none.
	// More than one row is an error: FetchOne is reserved for lookups keyed
	// on uniquely-constrained properties, where extra rows mean a broken
	// query rather than a valid answer.
	FetchOne(ctx context.Context, cypher string, params map[string]any) (Record, error)
	VerifyConnectivity(ctx context.Context) error
	Close(ctx context.Context) error
}

// Record groups key-value pairs returned from the graph engine.
type Record map[string]any

var (
	// ErrMissingURI indicates the graph URI is not provided.
	ErrMissingURI = errors.New("graph URI is required")
	// ErrServiceUnavailable indicates a transport or connectivity failure.
	ErrServiceUnavailable = errors.New("graph service unavailable")
	// ErrAuthentication indicates the store rejected the configured credentials.
	ErrAuthentication = errors.New("graph authentication failed")
	// ErrVerification indicates the liveness probe round-tripped but returned
	// an unexpected value.
	ErrVerification = errors.New("graph connection verification failed")
	// ErrTooManyRows indicates a single-row query returned multiple rows.
	ErrTooManyRows = errors.New("query returned more than one row")
)

// Options configures graph connectivity.
type Options struct {
	URI            string
	Database       string
	Username       string
	Password       string
	MaxConnections int
}
