// Package paychan maintains the set of payment channels a client wallet has
// open, so an interrupted channel can be resumed after a disconnect and an
// abandoned one is settled on-chain. Every stored channel is armed with an
// expiry deadline; when the refund transaction's lock time (plus a grace
// period) passes without a cooperative close, the channel's contract and
// refund transactions are handed to a TransactionBroadcaster. The whole set
// persists as a wallet extension and is restored, deadlines re-armed, when
// the wallet loads.
package paychan

import (
	"context"
	"sync"

	"github.com/bsv-blockchain/go-sdk/chainhash"
	log "github.com/sirupsen/logrus"

	"github.com/bitfsorg/paychan-go/broadcast"
	"github.com/bitfsorg/paychan-go/walletext"
)

// ExtensionID identifies this extension within a wallet's extension namespace.
const ExtensionID = "org.bitfs.paychan.StoredPaymentChannels"

// StoredChannels is the registry of a wallet's open payment channels, keyed
// by channel ID. Several records may share an ID; they are told apart by
// contract hash. All structural mutations are serialized behind a single
// mutex, notify the host wallet so the updated payload is persisted, and
// keep the expiry scheduler in sync.
type StoredChannels struct {
	mu       sync.Mutex
	channels map[chainhash.Hash][]*StoredChannel
	host     walletext.Host

	scheduler   *timeoutScheduler
	broadcaster broadcast.TransactionBroadcaster
}

// Compile-time interface check.
var _ walletext.Extension = (*StoredChannels)(nil)

// NewStoredChannels creates a registry bound to the given broadcaster and
// host wallet. The broadcaster receives the contract and refund transactions
// of channels that expire without a cooperative close; the host is notified
// after every mutation so it can persist the updated payload.
func NewStoredChannels(b broadcast.TransactionBroadcaster, host walletext.Host) *StoredChannels {
	return NewStoredChannelsWithClock(b, host, SystemClock())
}

// NewStoredChannelsWithClock is NewStoredChannels with an explicit clock for
// deterministic expiry in tests.
func NewStoredChannelsWithClock(b broadcast.TransactionBroadcaster, host walletext.Host, clock Clock) *StoredChannels {
	s := &StoredChannels{
		channels:    make(map[chainhash.Hash][]*StoredChannel),
		host:        host,
		broadcaster: b,
	}
	s.scheduler = newTimeoutScheduler(clock, s.channelExpired)
	return s
}

// GetInactiveChannelByID finds an idle channel with the given id, atomically
// claims it for the caller, and returns it. No two concurrent callers ever
// receive the same record. Returns nil if every matching record is in use.
func (s *StoredChannels) GetInactiveChannelByID(id chainhash.Hash) *StoredChannel {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ch := range s.channels[id] {
		if ch.TryActivate() {
			return ch
		}
	}
	return nil
}

// GetChannel finds the channel with the given id and contract hash, or nil.
// The active flag is not touched; the caller already knows which record it
// wants.
func (s *StoredChannels) GetChannel(id, contractHash chainhash.Hash) *StoredChannel {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ch := range s.channels[id] {
		if ch.ContractHash() == contractHash {
			return ch
		}
	}
	return nil
}

// PutChannel adds the channel to the registry, arms its expiry deadline, and
// notifies the host wallet. Inserting a second record with the same id and
// contract hash is permitted; both are retained.
func (s *StoredChannels) PutChannel(ch *StoredChannel) {
	s.putChannel(ch, true)
}

// putChannel optionally skips the host notification; the bulk load in
// Deserialize must not re-trigger persistence for records it just read.
func (s *StoredChannels) putChannel(ch *StoredChannel, notify bool) {
	s.mu.Lock()
	s.channels[ch.ID] = append(s.channels[ch.ID], ch)
	s.scheduler.arm(ch)
	s.mu.Unlock()

	if notify {
		s.host.NotifyExtensionChanged(s)
	}
}

// RemoveChannel deletes the channel from the registry, cancels its pending
// expiry so a cooperative close never results in a stale broadcast, and
// notifies the host wallet. Removing an absent channel is a no-op.
func (s *StoredChannels) RemoveChannel(ch *StoredChannel) {
	s.mu.Lock()
	set := s.channels[ch.ID]
	for i, c := range set {
		if c == ch {
			s.channels[ch.ID] = append(set[:i], set[i+1:]...)
			break
		}
	}
	if len(s.channels[ch.ID]) == 0 {
		delete(s.channels, ch.ID)
	}
	s.mu.Unlock()

	s.scheduler.cancel(ch)
	s.host.NotifyExtensionChanged(s)
}

// ChannelCount returns the number of stored channels across all ids.
func (s *StoredChannels) ChannelCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, set := range s.channels {
		n += len(set)
	}
	return n
}

// channelExpired runs in the scheduler's timer goroutine when a channel
// passes its deadline without a cooperative close. The record is removed
// first, then both transactions are submitted outside any lock so network
// latency never blocks registry operations. Both are sent because either may
// already be unconfirmable, e.g. when the counterparty broadcast a newer
// contract state; the node rejecting one of them is expected and only logged.
func (s *StoredChannels) channelExpired(ch *StoredChannel) {
	s.RemoveChannel(ch)

	log.WithField("channel", ch.ID.String()).
		Info("paychan: channel expired, broadcasting contract and refund")

	ctx := context.Background()
	if err := s.broadcaster.Broadcast(ctx, ch.Contract); err != nil {
		log.WithError(err).WithField("channel", ch.ID.String()).
			Warn("paychan: contract broadcast failed")
	}
	if err := s.broadcaster.Broadcast(ctx, ch.Refund); err != nil {
		log.WithError(err).WithField("channel", ch.ID.String()).
			Warn("paychan: refund broadcast failed")
	}
}

// ID returns the extension identifier. Stable across versions; changing it
// would orphan persisted payloads.
func (s *StoredChannels) ID() string { return ExtensionID }

// Mandatory returns false: a wallet without stored channels loads fine.
func (s *StoredChannels) Mandatory() bool { return false }

// Serialize encodes every stored channel as a single payload reflecting a
// consistent point-in-time view of the registry.
func (s *StoredChannels) Serialize() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	all := make([]*StoredChannel, 0, len(s.channels))
	for _, set := range s.channels {
		all = append(all, set...)
	}
	return encodeChannels(all)
}

// Deserialize restores the registry from a persisted payload, re-arming the
// expiry deadline of every record from its own refund lock time. The
// extension stays bound to the host it was constructed with; loading it into
// a different wallet fails with ErrWalletMismatch rather than silently
// rebinding. Decode failures abort the load and leave the registry untouched.
func (s *StoredChannels) Deserialize(host walletext.Host, data []byte) error {
	s.mu.Lock()
	if s.host != nil && s.host != host {
		s.mu.Unlock()
		return ErrWalletMismatch
	}
	s.host = host
	s.mu.Unlock()

	channels, err := decodeChannels(data)
	if err != nil {
		return err
	}
	for _, ch := range channels {
		s.putChannel(ch, false)
	}
	return nil
}
