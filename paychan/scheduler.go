package paychan

import (
	"sync"
	"time"
)

// ExpiryGracePeriod is how long past the refund transaction's lock time a
// channel is kept before its transactions are handed to the broadcaster.
const ExpiryGracePeriod = 5 * time.Minute

// timeoutScheduler arms one cancellable timer per stored channel. Deadlines
// are computed against the injected Clock, so a test clock shifts every
// deadline by the same offset. Deadlines live only in memory; reloaded
// channels are re-armed from their own refund lock times.
type timeoutScheduler struct {
	clock  Clock
	expire func(*StoredChannel)

	mu     sync.Mutex
	timers map[*StoredChannel]*time.Timer
}

func newTimeoutScheduler(clock Clock, expire func(*StoredChannel)) *timeoutScheduler {
	return &timeoutScheduler{
		clock:  clock,
		expire: expire,
		timers: make(map[*StoredChannel]*time.Timer),
	}
}

// arm schedules ch's expiry for its refund lock time plus the grace period.
// The refund lock time is interpreted as seconds since the Unix epoch. A
// deadline already in the past fires immediately. Arming an already-armed
// channel is a no-op.
func (s *timeoutScheduler) arm(ch *StoredChannel) {
	deadline := time.Unix(int64(ch.Refund.LockTime), 0).Add(ExpiryGracePeriod)
	delay := deadline.Sub(s.clock.Now())
	if delay < 0 {
		delay = 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, armed := s.timers[ch]; armed {
		return
	}
	s.timers[ch] = time.AfterFunc(delay, func() { s.fire(ch) })
}

// fire runs in the timer's goroutine. The membership check makes cancel
// deterministic: once cancel has removed the entry, a late timer callback
// returns without expiring the channel.
func (s *timeoutScheduler) fire(ch *StoredChannel) {
	s.mu.Lock()
	if _, armed := s.timers[ch]; !armed {
		s.mu.Unlock()
		return
	}
	delete(s.timers, ch)
	s.mu.Unlock()

	s.expire(ch)
}

// cancel stops ch's pending timer, if any, so a cooperatively closed channel
// never has its transactions broadcast later.
func (s *timeoutScheduler) cancel(ch *StoredChannel) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, armed := s.timers[ch]; armed {
		t.Stop()
		delete(s.timers, ch)
	}
}

// isArmed reports whether ch has a pending timer.
func (s *timeoutScheduler) isArmed(ch *StoredChannel) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, armed := s.timers[ch]
	return armed
}
