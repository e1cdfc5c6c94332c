package graph

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// NewClient returns a Client that runs every operation in its own session
// against the connection owned by the supplied Manager. Sessions are scoped
// to the configured database and released on every exit path; the shared
// driver itself is left open.
func NewClient(manager *Manager) Client {
	return &neo4jClient{manager: manager}
}

type neo4jClient struct {
	manager *Manager
}

func (c *neo4jClient) Execute(ctx context.Context, cypher string, params map[string]any) error {
	session, err := c.session(ctx, neo4j.AccessModeWrite)
	if err != nil {
		return err
	}
	defer session.Close(ctx)

	res, err := session.Run(ctx, cypher, params)
	if err != nil {
		return fmt.Errorf("run query: %w", err)
	}
	if _, err := res.Consume(ctx); err != nil {
		return fmt.Errorf("consume result: %w", err)
	}
	return nil
}

func (c *neo4jClient) FetchAll(ctx context.Context, cypher string, params map[string]any) ([]Record, error) {
	session, err := c.session(ctx, neo4j.AccessModeRead)
	if err != nil {
		return nil, err
	}
	defer session.Close(ctx)

	res, err := session.Run(ctx, cypher, params)
	if err != nil {
		return nil, fmt.Errorf("run query: %w", err)
	}

	records := make([]Record, 0)
	for res.Next(ctx) {
		records = append(records, asRecord(res.Record()))
	}
	if err := res.Err(); err != nil {
		return nil, fmt.Errorf("stream result: %w", err)
	}
	return records, nil
}

func (c *neo4jClient) FetchOne(ctx context.Context, cypher string, params map[string]any) (Record, error) {
	session, err := c.session(ctx, neo4j.AccessModeRead)
	if err != nil {
		return nil, err
	}
	defer session.Close(ctx)

	res, err := session.Run(ctx, cypher, params)
	if err != nil {
		return nil, fmt.Errorf("run query: %w", err)
	}

	if !res.Next(ctx) {
		if err := res.Err(); err != nil {
			return nil, fmt.Errorf("stream result: %w", err)
		}
		return nil, nil
	}
	record := asRecord(res.Record())

	if res.Next(ctx) {
		return nil, ErrTooManyRows
	}
	if err := res.Err(); err != nil {
		return nil, fmt.Errorf("stream result: %w", err)
	}
	return record, nil
}

func (c *neo4jClient) VerifyConnectivity(ctx context.Context) error {
	driver, err := c.manager.Connect(ctx)
	if err != nil {
		return err
	}
	return driver.VerifyConnectivity(ctx)
}

func (c *neo4jClient) Close(ctx context.Context) error {
	return c.manager.Close(ctx)
}

func (c *neo4jClient) session(ctx context.Context, mode neo4j.AccessMode) (neo4j.SessionWithContext, error) {
	driver, err := c.manager.Connect(ctx)
	if err != nil {
		return nil, err
	}
	return driver.NewSession(ctx, neo4j.SessionConfig{
		DatabaseName: c.manager.opts.Database,
		AccessMode:   mode,
	}), nil
}

func asRecord(rec *neo4j.Record) Record {
	record := make(Record, len(rec.Keys))
	for _, key := range rec.Keys {
		value, _ := rec.Get(key)
		record[key] = value
	}
	return record
}
