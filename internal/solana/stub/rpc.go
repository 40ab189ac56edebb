// Package stub provides an in-memory Solana RPC client for tests and
// local development without a live node.
package stub

import (
	"context"
	"sync"

	"solana-raffle/internal/solana"
)

// RPCClient is an in-memory implementation of solana.RPCClient backed by
// a signature-keyed transaction map.
type RPCClient struct {
	mu           sync.RWMutex
	transactions map[string]*solana.Transaction

	// Err, when set, is returned by every call.
	Err error
}

// NewRPCClient creates an empty stub client.
func NewRPCClient() *RPCClient {
	return &RPCClient{
		transactions: make(map[string]*solana.Transaction),
	}
}

// Compile-time interface check.
var _ solana.RPCClient = (*RPCClient)(nil)

// AddTransaction registers a transaction under its signature.
func (c *RPCClient) AddTransaction(tx *solana.Transaction) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.transactions[tx.Signature] = tx
}

// GetTransaction returns the registered transaction, or nil when the
// signature is unknown.
func (c *RPCClient) GetTransaction(ctx context.Context, signature string) (*solana.Transaction, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.Err != nil {
		return nil, c.Err
	}
	tx, ok := c.transactions[signature]
	if !ok {
		return nil, nil
	}
	return tx, nil
}

// GetBlockTime returns the block time of any registered transaction at
// the slot, or nil when no transaction landed there.
func (c *RPCClient) GetBlockTime(ctx context.Context, slot int64) (*int64, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.Err != nil {
		return nil, c.Err
	}
	for _, tx := range c.transactions {
		if tx.Slot == slot && tx.BlockTime != 0 {
			bt := tx.BlockTime
			return &bt, nil
		}
	}
	return nil, nil
}
