package solana

import "context"

// WSClient defines the Solana WebSocket subscription interface used for
// payment-confirmation waits.
type WSClient interface {
	// SubscribeSignature subscribes to the confirmation of a transaction
	// signature. The node delivers at most one notification per
	// subscription and then cancels it server-side.
	SubscribeSignature(ctx context.Context, signature string) (<-chan SignatureResult, error)

	// Close closes the WebSocket connection.
	Close() error
}

// SignatureResult is a signature-confirmation notification.
type SignatureResult struct {
	Slot int64
	// Err carries the on-chain execution error, nil when the transaction
	// succeeded.
	Err interface{}
}

// wsRequest is a JSON-RPC 2.0 subscription request.
type wsRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      uint64        `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
}

// wsSubscribeResponse confirms a subscription with its server-side ID.
type wsSubscribeResponse struct {
	JSONRPC string `json:"jsonrpc"`
	ID      uint64 `json:"id"`
	Result  int64  `json:"result"`
}

// wsNotification is a signatureNotification message.
type wsNotification struct {
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  *struct {
		Subscription int64 `json:"subscription"`
		Result       struct {
			Context *struct {
				Slot int64 `json:"slot"`
			} `json:"context"`
			Value struct {
				Err interface{} `json:"err"`
			} `json:"value"`
		} `json:"result"`
	} `json:"params"`
}
