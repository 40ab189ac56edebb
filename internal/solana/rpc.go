package solana

import "context"

// LamportsPerSOL is the number of lamports in one SOL.
const LamportsPerSOL = 1_000_000_000

// RPCClient defines the Solana RPC HTTP interface the verifier depends on.
type RPCClient interface {
	// GetTransaction retrieves a confirmed transaction by signature.
	// Returns nil (and no error) when the transaction is not found.
	GetTransaction(ctx context.Context, signature string) (*Transaction, error)

	// GetBlockTime retrieves the estimated production time of a block.
	// Returns nil when the node has no timestamp for the slot.
	GetBlockTime(ctx context.Context, slot int64) (*int64, error)
}

// Transaction represents a Solana transaction.
type Transaction struct {
	Slot      int64
	Signature string
	BlockTime int64 // Unix timestamp (seconds)
	Meta      *TransactionMeta
	Message   *TransactionMessage
}

// TransactionMeta contains transaction metadata. PreBalances and
// PostBalances are lamport balances aligned index-for-index with the
// message's account keys.
type TransactionMeta struct {
	Err          interface{}
	Fee          uint64
	PreBalances  []uint64
	PostBalances []uint64
	LogMessages  []string
}

// TransactionMessage contains parsed transaction message.
type TransactionMessage struct {
	AccountKeys []string
}

// Failed reports whether the transaction executed with an error.
func (t *Transaction) Failed() bool {
	return t.Meta != nil && t.Meta.Err != nil
}

// LamportsDelta returns the balance change of an account in this
// transaction, in lamports. The second return is false when the account
// does not appear in the transaction or balance metadata is missing.
func (t *Transaction) LamportsDelta(account string) (int64, bool) {
	if t.Message == nil || t.Meta == nil {
		return 0, false
	}
	for i, key := range t.Message.AccountKeys {
		if key != account {
			continue
		}
		if i >= len(t.Meta.PreBalances) || i >= len(t.Meta.PostBalances) {
			return 0, false
		}
		return int64(t.Meta.PostBalances[i]) - int64(t.Meta.PreBalances[i]), true
	}
	return 0, false
}
