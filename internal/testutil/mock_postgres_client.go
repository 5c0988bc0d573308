package testutil

import (
	"context"

	"github.com/condohub/billing/internal/logger"
	"github.com/condohub/billing/internal/postgres"
)

var _ postgres.IClient = (*MockPostgresClient)(nil)

// MockPostgresClient runs transactional callbacks directly. The in-memory
// stores have no rollback, so tests assert on the error path only.
type MockPostgresClient struct {
	logger *logger.Logger
	txs    int
}

// NewMockPostgresClient creates a new mock postgres client
func NewMockPostgresClient(logger *logger.Logger) *MockPostgresClient {
	return &MockPostgresClient{logger: logger}
}

// WithTx executes the given function without a real transaction
func (c *MockPostgresClient) WithTx(ctx context.Context, fn func(context.Context) error) error {
	c.txs++
	return fn(ctx)
}

// Transactions returns how many times WithTx was entered
func (c *MockPostgresClient) Transactions() int {
	return c.txs
}
