package graph

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// Manager owns at most one live driver for the process. The first Connect
// call dials and probes the store; later calls return the same driver without
// re-probing. Construction is cheap and never touches the network.
type Manager struct {
	opts   Options
	logger *slog.Logger

	mu     sync.Mutex
	driver neo4j.DriverWithContext
}

// NewManager builds a Manager for the given connection options.
func NewManager(opts Options, logger *slog.Logger) (*Manager, error) {
	if opts.URI == "" {
		return nil, ErrMissingURI
	}
	return &Manager{opts: opts, logger: logger}, nil
}

// Connect returns the shared driver, dialing lazily on first use. The dial is
// serialized under a mutex so concurrent first callers end up sharing a
// single driver. A freshly dialed driver is probed with a sentinel query
// before it is handed out.
func (m *Manager) Connect(ctx context.Context) (neo4j.DriverWithContext, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.driver != nil {
		return m.driver, nil
	}

	auth := neo4j.NoAuth()
	if m.opts.Username != "" {
		auth = neo4j.BasicAuth(m.opts.Username, m.opts.Password, "")
	}

	driver, err := neo4j.NewDriverWithContext(m.opts.URI, auth, func(c *neo4j.Config) {
		if m.opts.MaxConnections > 0 {
			c.MaxConnectionPoolSize = m.opts.MaxConnections
		}
	})
	if err != nil {
		return nil, classifyConnectError(err)
	}

	if err := m.probe(ctx, driver); err != nil {
		_ = driver.Close(ctx)
		return nil, err
	}

	m.logger.Info("connected to graph database", "uri", m.opts.URI, "database", m.opts.Database)
	m.driver = driver
	return m.driver, nil
}

// Close releases the driver if one exists. Safe to call when not connected;
// Connect may be called again afterwards to re-establish.
func (m *Manager) Close(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.driver == nil {
		return nil
	}

	err := m.driver.Close(ctx)
	m.driver = nil
	if err != nil {
		return fmt.Errorf("close graph driver: %w", err)
	}
	m.logger.Info("closed graph connection")
	return nil
}

// probe runs a trivial round-trip query and checks the result against the
// expected sentinel. A transport that answers with anything else is treated
// as unusable even though the connection itself opened.
func (m *Manager) probe(ctx context.Context, driver neo4j.DriverWithContext) error {
	session := driver.NewSession(ctx, neo4j.SessionConfig{
		DatabaseName: m.opts.Database,
	})
	defer session.Close(ctx)

	res, err := session.Run(ctx, "RETURN 1 AS ok", nil)
	if err != nil {
		return classifyConnectError(err)
	}

	record, err := res.Single(ctx)
	if err != nil {
		return classifyConnectError(err)
	}

	value, found := record.Get("ok")
	if !found {
		return fmt.Errorf("%w: probe returned no sentinel column", ErrVerification)
	}
	if v, ok := value.(int64); !ok || v != 1 {
		return fmt.Errorf("%w: probe returned %v", ErrVerification, value)
	}
	return nil
}

func classifyConnectError(err error) error {
	var neoErr *neo4j.Neo4jError
	if errors.As(err, &neoErr) && strings.HasPrefix(neoErr.Code, "Neo.ClientError.Security.") {
		return fmt.Errorf("%w: %s", ErrAuthentication, neoErr.Msg)
	}
	return fmt.Errorf("%w: %v", ErrServiceUnavailable, err)
}
