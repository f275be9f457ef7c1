package broadcast

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/bsv-blockchain/go-sdk/transaction"
)

// RPCConfig holds the connection settings for a node's JSON-RPC interface.
type RPCConfig struct {
	URL      string // e.g. http://localhost:8332
	User     string // Basic Auth username; empty disables auth
	Password string
}

// RPCBroadcaster submits transactions through a node's JSON-RPC 1.0
// interface using sendrawtransaction. It handles request serialization,
// authentication, and response parsing.
type RPCBroadcaster struct {
	url    string
	user   string
	pass   string
	client *http.Client
	nextID atomic.Int64
}

// Compile-time interface check.
var _ TransactionBroadcaster = (*RPCBroadcaster)(nil)

// rpcRequest represents a JSON-RPC 1.0 request payload.
type rpcRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      int64         `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
}

// rpcResponse represents a JSON-RPC 1.0 response payload.
type rpcResponse struct {
	ID     int64           `json:"id"`
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

// rpcError represents an error returned by the JSON-RPC server.
type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// NewRPCBroadcaster creates a broadcaster for the given node. The client
// uses HTTP Basic Auth when User is non-empty, and maintains a connection
// pool for efficient reuse.
func NewRPCBroadcaster(cfg RPCConfig) *RPCBroadcaster {
	return &RPCBroadcaster{
		url:  cfg.URL,
		user: cfg.User,
		pass: cfg.Password,
		client: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				IdleConnTimeout:     90 * time.Second,
				MaxIdleConnsPerHost: 10,
			},
		},
	}
}

// Broadcast submits tx via sendrawtransaction. The node's txid result is
// discarded; a nil return means the node accepted the transaction.
func (b *RPCBroadcaster) Broadcast(ctx context.Context, tx *transaction.Transaction) error {
	if tx == nil {
		return fmt.Errorf("%w: transaction", ErrNilParam)
	}
	rawHex := hex.EncodeToString(tx.Bytes())
	return b.call(ctx, "sendrawtransaction", []interface{}{rawHex}, nil)
}

// call invokes a JSON-RPC method on the node. If result is nil, the response
// result is discarded. Returns ErrConnectionFailed if the HTTP request fails
// and ErrInvalidResponse if the response cannot be decoded; RPC-level errors
// are returned as plain errors with the server's error message.
func (b *RPCBroadcaster) call(ctx context.Context, method string, params []interface{}, result interface{}) error {
	if params == nil {
		params = []interface{}{}
	}
	reqBody := rpcRequest{
		JSONRPC: "1.0",
		ID:      b.nextID.Add(1),
		Method:  method,
		Params:  params,
	}
	body, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("broadcast: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("broadcast: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if b.user != "" {
		req.SetBasicAuth(b.user, b.pass)
	}

	resp, err := b.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("%w: HTTP %d: %s", ErrConnectionFailed, resp.StatusCode, string(respBody))
	}

	var rpcResp rpcResponse
	if err := json.NewDecoder(resp.Body).Decode(&rpcResp); err != nil {
		return fmt.Errorf("%w: decode response: %w", ErrInvalidResponse, err)
	}

	if rpcResp.ID != reqBody.ID {
		return fmt.Errorf("%w: response ID mismatch: expected %d, got %d",
			ErrInvalidResponse, reqBody.ID, rpcResp.ID)
	}

	if rpcResp.Error != nil {
		return fmt.Errorf("broadcast: rpc error %d: %s", rpcResp.Error.Code, rpcResp.Error.Message)
	}

	if result != nil {
		if err := json.Unmarshal(rpcResp.Result, result); err != nil {
			return fmt.Errorf("%w: decode result: %w", ErrInvalidResponse, err)
		}
	}
	return nil
}
