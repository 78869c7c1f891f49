// Package store holds the single shared cart snapshot and fans out changes
// to every subscribed surface.
package store

import (
	"sort"
	"sync"
	"sync/atomic"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

// Listener receives its own copy of each new snapshot. It must not call
// Publish synchronously.
type Listener func(*domain.CartSnapshot)

// snapshotEqual treats nil and empty slices alike: a cart that lost its
// last line and one that never had any render the same.
var snapshotEqual = cmp.Options{cmpopts.EquateEmpty()}

type subscription struct {
	id     uint64
	fn     Listener
	active atomic.Bool

	mu   sync.Mutex
	seen uint64
}

// deliver drops versions older than the last one handed to this listener,
// so concurrent publishes never go backwards for a subscriber.
func (s *subscription) deliver(version uint64, snap *domain.CartSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.active.Load() || version <= s.seen {
		return
	}
	s.seen = version
	s.fn(snap.Clone())
}

// CartStore is the process-wide cart view. It has no mutation methods of its
// own: values only arrive through Publish with a server-confirmed snapshot.
type CartStore struct {
	mu      sync.Mutex
	current *domain.CartSnapshot
	version uint64
	epoch   uint64
	nextID  uint64
	subs    map[uint64]*subscription
}

func New() *CartStore {
	return &CartStore{subs: make(map[uint64]*subscription)}
}

// Current returns a copy of the held snapshot, or nil before the first load.
func (s *CartStore) Current() *domain.CartSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current.Clone()
}

// Publish replaces the held snapshot and notifies subscribers, but only when
// it differs by value from what is held. It reports whether it changed.
func (s *CartStore) Publish(snap *domain.CartSnapshot) bool {
	s.mu.Lock()
	return s.publishLocked(snap)
}

// PublishIn publishes snap only if the session epoch is still epoch. ok is
// false when a Reset happened in between and snap was dropped.
func (s *CartStore) PublishIn(epoch uint64, snap *domain.CartSnapshot) (changed, ok bool) {
	s.mu.Lock()
	if s.epoch != epoch {
		s.mu.Unlock()
		return false, false
	}
	return s.publishLocked(snap), true
}

// Epoch identifies the current session. Reset advances it.
func (s *CartStore) Epoch() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.epoch
}

// Reset drops the held snapshot at a session boundary so a new session never
// sees the previous session's cart. Subscribers receive nil.
func (s *CartStore) Reset() {
	s.mu.Lock()
	s.epoch++
	s.publishLocked(nil)
}

// publishLocked is called with mu held and releases it before delivering.
func (s *CartStore) publishLocked(snap *domain.CartSnapshot) bool {
	if cmp.Equal(s.current, snap, snapshotEqual) {
		s.mu.Unlock()
		return false
	}
	s.current = snap.Clone()
	s.version++
	version, held, subs := s.version, s.current, s.sortedSubs()
	s.mu.Unlock()

	for _, sub := range subs {
		sub.deliver(version, held)
	}
	return true
}

// Subscribe registers fn. If a snapshot is already held, fn receives it
// before Subscribe returns. The returned func unsubscribes and is idempotent.
func (s *CartStore) Subscribe(fn Listener) (unsubscribe func()) {
	s.mu.Lock()
	s.nextID++
	sub := &subscription{id: s.nextID, fn: fn}
	sub.active.Store(true)
	s.subs[sub.id] = sub
	version, held := s.version, s.current
	s.mu.Unlock()

	if held != nil {
		sub.deliver(version, held)
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			sub.active.Store(false)
			s.mu.Lock()
			delete(s.subs, sub.id)
			s.mu.Unlock()
		})
	}
}

// Subscribers is the number of registered listeners.
func (s *CartStore) Subscribers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}

// sortedSubs returns subscribers in registration order. Callers hold mu.
func (s *CartStore) sortedSubs() []*subscription {
	subs := make([]*subscription, 0, len(s.subs))
	for _, sub := range s.subs {
		subs = append(subs, sub)
	}
	sort.Slice(subs, func(i, j int) bool { return subs[i].id < subs[j].id })
	return subs
}
