package paychan

import (
	"context"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/bsv-blockchain/go-sdk/chainhash"
	"github.com/bsv-blockchain/go-sdk/transaction"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bitfsorg/paychan-go/broadcast"
)

// farFuture is a refund lock time whose deadline never fires during a test
// run against the system clock.
const farFuture = uint32(4_000_000_000)

func newTestRegistry(t *testing.T) (*StoredChannels, *mockHost) {
	t.Helper()
	host := &mockHost{}
	b := &broadcast.MockBroadcaster{
		BroadcastFn: func(context.Context, *transaction.Transaction) error { return nil },
	}
	return NewStoredChannels(b, host), host
}

func TestPutAndGetChannel(t *testing.T) {
	s, _ := newTestRegistry(t)

	channels := []*StoredChannel{
		newTestChannel(t, "a", farFuture),
		newTestChannel(t, "b", farFuture),
		newTestChannel(t, "c", farFuture),
	}
	for _, ch := range channels {
		s.PutChannel(ch)
	}

	for _, want := range channels {
		got := s.GetChannel(want.ID, want.ContractHash())
		assert.Same(t, want, got)
	}

	// Never-inserted pair.
	unknown := chainhash.DoubleHashH([]byte("nope"))
	assert.Nil(t, s.GetChannel(unknown, unknown))

	// Right id, wrong contract hash.
	assert.Nil(t, s.GetChannel(channels[0].ID, unknown))
}

func TestChannelsSharingID(t *testing.T) {
	s, _ := newTestRegistry(t)

	ch1 := newTestChannel(t, "first", farFuture)
	ch2 := newTestChannel(t, "second", farFuture)
	ch2.ID = ch1.ID // re-opened session, same counterparty

	s.PutChannel(ch1)
	s.PutChannel(ch2)

	assert.Same(t, ch1, s.GetChannel(ch1.ID, ch1.ContractHash()))
	assert.Same(t, ch2, s.GetChannel(ch1.ID, ch2.ContractHash()))
	assert.Equal(t, 2, s.ChannelCount())
}

func TestDuplicatePutRetainsBoth(t *testing.T) {
	// Two records with the same id and the same contract are discouraged but
	// permitted; both stay in the registry.
	s, _ := newTestRegistry(t)

	ch1 := newTestChannel(t, "dup", farFuture)
	ch2 := NewStoredChannel(ch1.ID, ch1.Contract, ch1.Refund, ch1.Key, ch1.ValueToMe, ch1.RefundFees)

	s.PutChannel(ch1)
	s.PutChannel(ch2)

	assert.Equal(t, 2, s.ChannelCount())
	assert.Same(t, ch1, s.GetChannel(ch1.ID, ch1.ContractHash()))
}

func TestGetInactiveChannelByID(t *testing.T) {
	s, _ := newTestRegistry(t)

	ch := newTestChannel(t, "idle", farFuture)
	s.PutChannel(ch)

	// Freshly created channels are active: the opening session owns them.
	assert.Nil(t, s.GetInactiveChannelByID(ch.ID))

	ch.Deactivate()
	got := s.GetInactiveChannelByID(ch.ID)
	require.Same(t, ch, got)
	assert.True(t, got.IsActive())

	// Claimed again only after another release.
	assert.Nil(t, s.GetInactiveChannelByID(ch.ID))
	ch.Deactivate()
	assert.Same(t, ch, s.GetInactiveChannelByID(ch.ID))
}

func TestGetInactiveChannelByIDExactlyOneWinner(t *testing.T) {
	s, _ := newTestRegistry(t)

	ch := newTestChannel(t, "contended", farFuture)
	s.PutChannel(ch)
	ch.Deactivate()

	const racers = 32
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	start := make(chan struct{})
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			if s.GetInactiveChannelByID(ch.ID) != nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	close(start)
	wg.Wait()

	assert.Equal(t, 1, wins)
}

func TestRemoveChannel(t *testing.T) {
	s, _ := newTestRegistry(t)

	ch := newTestChannel(t, "gone", farFuture)
	s.PutChannel(ch)
	require.Equal(t, 1, s.ChannelCount())

	s.RemoveChannel(ch)
	assert.Equal(t, 0, s.ChannelCount())
	assert.Nil(t, s.GetChannel(ch.ID, ch.ContractHash()))
	assert.False(t, s.scheduler.isArmed(ch))
}

func TestRemoveChannelIdempotent(t *testing.T) {
	s, _ := newTestRegistry(t)

	ch := newTestChannel(t, "twice", farFuture)
	s.PutChannel(ch)

	s.RemoveChannel(ch)
	s.RemoveChannel(ch) // second remove is a no-op
	assert.Equal(t, 0, s.ChannelCount())

	// Removing a channel that was never inserted.
	s.RemoveChannel(newTestChannel(t, "never", farFuture))
	assert.Equal(t, 0, s.ChannelCount())
}

func TestMutationsNotifyHost(t *testing.T) {
	s, host := newTestRegistry(t)

	ch := newTestChannel(t, "notify", farFuture)
	s.PutChannel(ch)
	assert.Equal(t, 1, host.notified())

	ch.UpdateValueToMe(big.NewInt(99_000))
	assert.Equal(t, 1, host.notified(), "bookkeeping updates do not notify")

	s.RemoveChannel(ch)
	assert.Equal(t, 2, host.notified())
}

func TestUpdateValueToMeDoesNotRearm(t *testing.T) {
	s, _ := newTestRegistry(t)

	ch := newTestChannel(t, "bookkeeping", farFuture)
	s.PutChannel(ch)
	require.True(t, s.scheduler.isArmed(ch))

	ch.UpdateValueToMe(big.NewInt(42))
	assert.True(t, s.scheduler.isArmed(ch))
	assert.Equal(t, int64(42), ch.ValueToMe.Int64())
}

func TestConcurrentMutations(t *testing.T) {
	s, _ := newTestRegistry(t)

	const n = 20
	channels := make([]*StoredChannel, n)
	for i := range channels {
		channels[i] = newTestChannel(t, string(rune('A'+i)), farFuture)
	}

	var wg sync.WaitGroup
	for _, ch := range channels {
		wg.Add(1)
		go func(ch *StoredChannel) {
			defer wg.Done()
			s.PutChannel(ch)
			_ = s.GetChannel(ch.ID, ch.ContractHash())
		}(ch)
	}
	wg.Wait()
	assert.Equal(t, n, s.ChannelCount())

	for _, ch := range channels {
		wg.Add(1)
		go func(ch *StoredChannel) {
			defer wg.Done()
			s.RemoveChannel(ch)
		}(ch)
	}
	wg.Wait()
	assert.Equal(t, 0, s.ChannelCount())
}

// waitNotified blocks until the host has seen at least n notifications.
func waitNotified(t *testing.T, host *mockHost, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for host.notified() < n {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %d notifications, got %d", n, host.notified())
		}
		time.Sleep(time.Millisecond)
	}
}
