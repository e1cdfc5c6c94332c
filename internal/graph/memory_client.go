package graph

import (
	"context"
	"sync"
)

// MemoryClient is a simple in-memory implementation of the Client interface
// used for unit testing repository logic without requiring a running graph
// database.
type MemoryClient struct {
	mu           sync.Mutex
	execCalls    []ExecutedQuery
	fetchCalls   []ExecutedQuery
	fetchResults [][]Record
	err          error
	connectivity error
}

// ExecutedQuery captures a cypher statement and parameters executed against
// the graph.
type ExecutedQuery struct {
	Query  string
	Params map[string]any
}

// NewMemoryClient instantiates the in-memory client with optional canned
// results.
func NewMemoryClient() *MemoryClient {
	return &MemoryClient{}
}

// WithError configures the client to return the provided error for subsequent
// calls.
func (m *MemoryClient) WithError(err error) *MemoryClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
	return m
}

// WithConnectivityError forces VerifyConnectivity to return the supplied
// error.
func (m *MemoryClient) WithConnectivityError(err error) *MemoryClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connectivity = err
	return m
}

// PushResult appends a row set that will be returned by the next FetchAll or
// FetchOne call.
func (m *MemoryClient) PushResult(records []Record) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fetchResults = append(m.fetchResults, records)
}

func (m *MemoryClient) Execute(_ context.Context, cypher string, params map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.err != nil {
		return m.err
	}

	m.execCalls = append(m.execCalls, ExecutedQuery{
		Query:  cypher,
		Params: cloneMap(params),
	})
	return nil
}

func (m *MemoryClient) FetchAll(_ context.Context, cypher string, params map[string]any) ([]Record, error) {
	records, err := m.nextResult(cypher, params)
	if err != nil {
		return nil, err
	}
	if records == nil {
		return []Record{}, nil
	}
	return records, nil
}

func (m *MemoryClient) FetchOne(_ context.Context, cypher string, params map[string]any) (Record, error) {
	records, err := m.nextResult(cypher, params)
	if err != nil {
		return nil, err
	}
	switch len(records) {
	case 0:
		return nil, nil
	case 1:
		return records[0], nil
	default:
		return nil, ErrTooManyRows
	}
}

func (m *MemoryClient) VerifyConnectivity(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connectivity
}

func (m *MemoryClient) Close(context.Context) error {
	return nil
}

// ExecCalls returns a snapshot of executed write statements.
func (m *MemoryClient) ExecCalls() []ExecutedQuery {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]ExecutedQuery(nil), m.execCalls...)
}

// FetchCalls returns a snapshot of executed fetch queries.
func (m *MemoryClient) FetchCalls() []ExecutedQuery {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]ExecutedQuery(nil), m.fetchCalls...)
}

func (m *MemoryClient) nextResult(cypher string, params map[string]any) ([]Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.err != nil {
		return nil, m.err
	}

	m.fetchCalls = append(m.fetchCalls, ExecutedQuery{
		Query:  cypher,
		Params: cloneMap(params),
	})

	if len(m.fetchResults) == 0 {
		return nil, nil
	}

	records := m.fetchResults[0]
	m.fetchResults = m.fetchResults[1:]
	return records, nil
}

func cloneMap(src map[string]any) map[string]any {
	if src == nil {
		return nil
	}
	dst := make(map[string]any, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
