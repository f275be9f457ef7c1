package broadcast

import (
	"context"
	"sync"

	"github.com/bsv-blockchain/go-sdk/transaction"
)

// MockBroadcaster is a test double for TransactionBroadcaster.
// BroadcastFn must be set before Broadcast is called.
type MockBroadcaster struct {
	BroadcastFn func(ctx context.Context, tx *transaction.Transaction) error
}

func (m *MockBroadcaster) Broadcast(ctx context.Context, tx *transaction.Transaction) error {
	return m.BroadcastFn(ctx, tx)
}

// RecordingBroadcaster collects every broadcast transaction for later
// inspection. Submitted signals each call, so tests can wait for
// asynchronous broadcasts without sleeping.
type RecordingBroadcaster struct {
	mu        sync.Mutex
	txs       []*transaction.Transaction
	Submitted chan *transaction.Transaction
}

// NewRecordingBroadcaster creates a RecordingBroadcaster whose Submitted
// channel buffers up to n transactions.
func NewRecordingBroadcaster(n int) *RecordingBroadcaster {
	return &RecordingBroadcaster{Submitted: make(chan *transaction.Transaction, n)}
}

func (r *RecordingBroadcaster) Broadcast(_ context.Context, tx *transaction.Transaction) error {
	r.mu.Lock()
	r.txs = append(r.txs, tx)
	r.mu.Unlock()
	select {
	case r.Submitted <- tx:
	default:
	}
	return nil
}

// Transactions returns a copy of every transaction broadcast so far.
func (r *RecordingBroadcaster) Transactions() []*transaction.Transaction {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*transaction.Transaction, len(r.txs))
	copy(out, r.txs)
	return out
}
