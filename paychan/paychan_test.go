package paychan

import (
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/bsv-blockchain/go-sdk/chainhash"
	ec "github.com/bsv-blockchain/go-sdk/primitives/ec"
	"github.com/bsv-blockchain/go-sdk/script"
	"github.com/bsv-blockchain/go-sdk/transaction"
	"github.com/stretchr/testify/require"

	"github.com/bitfsorg/paychan-go/walletext"
)

// fakeClock is a manually controlled Clock.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(now time.Time) *fakeClock { return &fakeClock{now: now} }

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// mockHost counts change notifications.
type mockHost struct {
	mu            sync.Mutex
	notifications int
}

func (h *mockHost) NotifyExtensionChanged(walletext.Extension) {
	h.mu.Lock()
	h.notifications++
	h.mu.Unlock()
}

func (h *mockHost) notified() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.notifications
}

// newTestTx builds a minimal but parseable transaction. The marker makes the
// transaction's content, and therefore its hash, unique.
func newTestTx(t *testing.T, lockTime uint32, marker string) *transaction.Transaction {
	t.Helper()

	srcID := chainhash.DoubleHashH([]byte(marker))
	tx := transaction.NewTransaction()
	tx.LockTime = lockTime
	tx.AddInput(&transaction.TransactionInput{
		SourceTXID:       &srcID,
		SourceTxOutIndex: 0,
		SequenceNumber:   0xfffffffe,
	})

	s := &script.Script{}
	require.NoError(t, s.AppendOpcodes(script.OpTRUE))
	tx.AddOutput(&transaction.TransactionOutput{
		LockingScript: s,
		Satoshis:      1000,
	})
	return tx
}

// newTestChannel builds a stored channel whose refund lock time is the given
// Unix time. The marker keeps ids and transaction hashes distinct across
// channels in one test.
func newTestChannel(t *testing.T, marker string, refundLockTime uint32) *StoredChannel {
	t.Helper()

	key, err := ec.NewPrivateKey()
	require.NoError(t, err)

	id := chainhash.DoubleHashH([]byte("id-" + marker))
	contract := newTestTx(t, 0, "contract-"+marker)
	refund := newTestTx(t, refundLockTime, "refund-"+marker)

	return NewStoredChannel(id, contract, refund, key, big.NewInt(100_000), big.NewInt(500))
}
