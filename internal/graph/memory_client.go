package graph

import (
	"context"
	"strings"
	"sync"
)

// MemoryClient is an in-memory implementation of Client used to unit test
// repository logic without a running graph database. Canned read results can
// be registered either as an ordered queue or keyed by a query fragment;
// fragment stubs win when both match.
type MemoryClient struct {
	mu           sync.Mutex
	writeCalls   []ExecutedQuery
	readCalls    []ExecutedQuery
	readQueue    []Result
	writeQueue   []Result
	stubs        []queryStub
	err          error
	connectivity error
}

type queryStub struct {
	fragment string
	result   Result
}

// ExecutedQuery captures a cypher statement and parameters executed against
// the graph.
type ExecutedQuery struct {
	Query  string
	Params map[string]any
}

// NewMemoryClient instantiates the in-memory client.
func NewMemoryClient() *MemoryClient {
	return &MemoryClient{}
}

// WithError configures the client to return the provided error for
// subsequent calls.
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

// StubRead registers a canned result returned for any read whose query
// contains the given fragment. Fragment stubs are not consumed; they answer
// every matching read.
func (m *MemoryClient) StubRead(fragment string, res Result) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stubs = append(m.stubs, queryStub{fragment: fragment, result: res})
}

// PushReadResult appends a result returned on the next unmatched
// ExecuteRead call.
func (m *MemoryClient) PushReadResult(res Result) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.readQueue = append(m.readQueue, res)
}

// PushWriteResult appends a result returned on the next ExecuteWrite call.
func (m *MemoryClient) PushWriteResult(res Result) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writeQueue = append(m.writeQueue, res)
}

func (m *MemoryClient) ExecuteWrite(_ context.Context, cypher string, params map[string]any) (Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.err != nil {
		return Result{}, m.err
	}

	m.writeCalls = append(m.writeCalls, ExecutedQuery{
		Query:  cypher,
		Params: cloneParams(params),
	})

	if len(m.writeQueue) == 0 {
		return Result{}, nil
	}
	res := m.writeQueue[0]
	m.writeQueue = m.writeQueue[1:]
	return res, nil
}

func (m *MemoryClient) ExecuteRead(_ context.Context, cypher string, params map[string]any) (Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.err != nil {
		return Result{}, m.err
	}

	m.readCalls = append(m.readCalls, ExecutedQuery{
		Query:  cypher,
		Params: cloneParams(params),
	})

	for _, stub := range m.stubs {
		if strings.Contains(cypher, stub.fragment) {
			return stub.result, nil
		}
	}

	if len(m.readQueue) == 0 {
		return Result{}, nil
	}
	res := m.readQueue[0]
	m.readQueue = m.readQueue[1:]
	return res, nil
}

func (m *MemoryClient) VerifyConnectivity(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connectivity
}

func (m *MemoryClient) Close(context.Context) error {
	return nil
}

// WriteCalls returns a snapshot of executed write queries.
func (m *MemoryClient) WriteCalls() []ExecutedQuery {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]ExecutedQuery(nil), m.writeCalls...)
}

// ReadCalls returns a snapshot of executed read queries.
func (m *MemoryClient) ReadCalls() []ExecutedQuery {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]ExecutedQuery(nil), m.readCalls...)
}

func cloneParams(src map[string]any) map[string]any {
	if src == nil {
		return nil
	}
	dst := make(map[string]any, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
