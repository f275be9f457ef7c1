package paychan

import (
	"math/big"
	"sync"

	"github.com/bsv-blockchain/go-sdk/chainhash"
	ec "github.com/bsv-blockchain/go-sdk/primitives/ec"
	"github.com/bsv-blockchain/go-sdk/transaction"
)

// StoredChannel is the durable state of one client-side payment channel:
// the mutually signed contract transaction, the time-locked refund
// transaction, the client's key for the channel, and the running amounts.
// It carries enough to resume a channel interrupted by a disconnect, or to
// reclaim funds by broadcast once the refund lock time passes.
//
// ID, Contract, Refund and the key material are immutable once the record is
// constructed; only the amounts and the in-memory active flag change.
type StoredChannel struct {
	// ID groups the records belonging to one logical counterparty session.
	// Several records may share an ID (e.g. re-opened sessions); they are
	// told apart by the contract's hash.
	ID chainhash.Hash

	// Contract is the latest mutually signed transaction funding the channel.
	Contract *transaction.Transaction

	// Refund returns the channel funds to the client after its lock time if
	// the channel is abandoned.
	Refund *transaction.Transaction

	// Key signs payment updates for this channel. Records restored from a
	// persisted payload carry only PubKey; the wallet re-derives the private
	// half when the session resumes.
	Key *ec.PrivateKey

	// PubKey is the public half of Key. Always set.
	PubKey *ec.PublicKey

	// ValueToMe is the amount the latest contract state owes back to the
	// client. Updated by the channel protocol, never by this package.
	ValueToMe *big.Int

	// RefundFees is the fee reserved for the refund path.
	RefundFees *big.Int

	// active marks a record as in use by a live session. In-memory only,
	// never persisted. Guarded by mu; the registry lock may be held while
	// taking mu, never the reverse.
	mu     sync.Mutex
	active bool
}

// NewStoredChannel creates a record for a freshly opened channel. The new
// record starts active, since the session that opened the channel is using it.
func NewStoredChannel(id chainhash.Hash, contract, refund *transaction.Transaction,
	key *ec.PrivateKey, valueToMe, refundFees *big.Int) *StoredChannel {
	return &StoredChannel{
		ID:         id,
		Contract:   contract,
		Refund:     refund,
		Key:        key,
		PubKey:     key.PubKey(),
		ValueToMe:  valueToMe,
		RefundFees: refundFees,
		active:     true,
	}
}

// ContractHash returns the contract transaction's hash, the identity that
// disambiguates records sharing an ID.
func (ch *StoredChannel) ContractHash() chainhash.Hash {
	return *ch.Contract.TxID()
}

// TryActivate atomically claims an idle record for a session. Returns false
// if the record is already in use; at most one caller observes true until
// Deactivate is called.
func (ch *StoredChannel) TryActivate() bool {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	if ch.active {
		return false
	}
	ch.active = true
	return true
}

// Deactivate releases the record so another session may resume it.
func (ch *StoredChannel) Deactivate() {
	ch.mu.Lock()
	ch.active = false
	ch.mu.Unlock()
}

// IsActive reports whether the record is claimed by a session.
func (ch *StoredChannel) IsActive() bool {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	return ch.active
}

// UpdateValueToMe records the amount the latest contract state owes the
// client. Bookkeeping only; the expiry deadline is unaffected.
func (ch *StoredChannel) UpdateValueToMe(v *big.Int) {
	ch.mu.Lock()
	ch.ValueToMe = v
	ch.mu.Unlock()
}
