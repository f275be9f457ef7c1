// Package broadcast submits signed transactions to the Bitcoin network.
package broadcast

import (
	"context"

	"github.com/bsv-blockchain/go-sdk/transaction"
)

// TransactionBroadcaster announces a signed transaction to the network.
// Implementations must be safe for concurrent use. Callers that treat
// submission as fire-and-forget are expected to log the returned error
// rather than act on it; any retry policy belongs to the implementation.
type TransactionBroadcaster interface {
	Broadcast(ctx context.Context, tx *transaction.Transaction) error
}
