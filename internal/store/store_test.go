package store

import (
	"sync"
	"testing"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type recorder struct {
	mu    sync.Mutex
	calls []*domain.CartSnapshot
}

func (r *recorder) listen(s *domain.CartSnapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, s)
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

func cartWithQty(q int) *domain.CartSnapshot {
	return &domain.CartSnapshot{
		ID: "cart-1",
		Items: []domain.CartLine{
			{ID: "l1", ProductID: "P1", Product: domain.Product{ID: "P1", Price: 20000}, Quantity: q, Subtotal: int64(q) * 20000},
		},
		Subtotal: int64(q) * 20000,
		Total:    int64(q) * 20000,
	}
}

func TestPublish_NotifiesOnlyOnChange(t *testing.T) {
	s := New()
	rec := &recorder{}
	unsubscribe := s.Subscribe(rec.listen)
	defer unsubscribe()

	sequence := []*domain.CartSnapshot{
		cartWithQty(1),
		cartWithQty(1), // equal by value, different pointer
		cartWithQty(2),
		cartWithQty(2),
		cartWithQty(2),
		cartWithQty(1),
	}
	wantChanged := []bool{true, false, true, false, false, true}

	for i, snap := range sequence {
		assert.Equal(t, wantChanged[i], s.Publish(snap), "publish #%d", i)
	}
	assert.Equal(t, 3, rec.count())
}

func TestPublish_EmptyAndNilItemsAreEqual(t *testing.T) {
	s := New()
	rec := &recorder{}
	defer s.Subscribe(rec.listen)()

	require.True(t, s.Publish(&domain.CartSnapshot{ID: "c", Items: nil}))
	assert.False(t, s.Publish(&domain.CartSnapshot{ID: "c", Items: []domain.CartLine{}}))
	assert.Equal(t, 1, rec.count())
}

func TestPublish_HoldsACopy(t *testing.T) {
	s := New()
	snap := cartWithQty(1)
	s.Publish(snap)

	snap.Items[0].Quantity = 7
	assert.Equal(t, 1, s.Current().Items[0].Quantity)

	got := s.Current()
	got.Items[0].Quantity = 9
	assert.Equal(t, 1, s.Current().Items[0].Quantity)
}

func TestSubscribe_ReceivesCurrentImmediately(t *testing.T) {
	s := New()
	rec := &recorder{}

	defer s.Subscribe(rec.listen)()
	assert.Equal(t, 0, rec.count(), "nothing held yet")

	s.Publish(cartWithQty(3))
	late := &recorder{}
	defer s.Subscribe(late.listen)()

	require.Equal(t, 1, late.count())
	assert.Equal(t, 3, late.calls[0].Items[0].Quantity)
}

func TestUnsubscribe_StopsDeliveryAndIsIdempotent(t *testing.T) {
	s := New()
	rec := &recorder{}
	unsubscribe := s.Subscribe(rec.listen)
	assert.Equal(t, 1, s.Subscribers())

	s.Publish(cartWithQty(1))
	unsubscribe()
	unsubscribe()
	s.Publish(cartWithQty(2))

	assert.Equal(t, 1, rec.count())
	assert.Equal(t, 0, s.Subscribers())
}

func TestReset_ClearsForNewSession(t *testing.T) {
	s := New()
	rec := &recorder{}
	defer s.Subscribe(rec.listen)()

	s.Publish(cartWithQty(1))
	s.Reset()

	assert.Nil(t, s.Current())
	require.Equal(t, 2, rec.count())
	assert.Nil(t, rec.calls[1])

	late := &recorder{}
	defer s.Subscribe(late.listen)()
	assert.Equal(t, 0, late.count(), "no stale cart from the previous session")
}

func TestPublishIn_DropsSnapshotsFromAnEarlierSession(t *testing.T) {
	s := New()
	rec := &recorder{}
	defer s.Subscribe(rec.listen)()

	before := s.Epoch()
	changed, ok := s.PublishIn(before, cartWithQty(1))
	require.True(t, ok)
	assert.True(t, changed)

	s.Reset()
	assert.Equal(t, before+1, s.Epoch())

	changed, ok = s.PublishIn(before, cartWithQty(2))
	assert.False(t, ok)
	assert.False(t, changed)
	assert.Nil(t, s.Current())
	assert.Equal(t, 2, rec.count())

	_, ok = s.PublishIn(s.Epoch(), cartWithQty(3))
	require.True(t, ok)
	assert.Equal(t, 3, s.Current().TotalItems())
}

func TestListener_CanUnsubscribeItself(t *testing.T) {
	s := New()
	var unsubscribe func()
	calls := 0
	unsubscribe = s.Subscribe(func(*domain.CartSnapshot) {
		calls++
		unsubscribe()
	})

	s.Publish(cartWithQty(1))
	s.Publish(cartWithQty(2))
	assert.Equal(t, 1, calls)
}

func TestPublish_ConcurrentNeverGoesBackwards(t *testing.T) {
	s := New()
	var mu sync.Mutex
	var totals []int64
	defer s.Subscribe(func(c *domain.CartSnapshot) {
		mu.Lock()
		defer mu.Unlock()
		totals = append(totals, c.Total)
	})()

	var wg sync.WaitGroup
	for q := 1; q <= 10; q++ {
		wg.Add(1)
		go func(q int) {
			defer wg.Done()
			s.Publish(cartWithQty(q))
		}(q)
	}
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, totals)
	assert.Equal(t, s.Current().Total, totals[len(totals)-1], "last delivery matches held value")
}
