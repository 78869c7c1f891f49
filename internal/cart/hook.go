package cart

import (
	"context"
	"sync"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/store"
)

// Hook is one UI surface's handle on the shared cart. Intents and reads are
// those of the Service; the Hook adds the mount lifecycle and keeps the
// latest snapshot delivered to this surface.
type Hook struct {
	*Service

	onChange store.Listener

	lifecycle   sync.Mutex
	mounted     bool
	mounts      uint64
	unsubscribe func()

	mu   sync.Mutex
	view *domain.CartSnapshot
}

// NewHook creates a surface handle. onChange, if non-nil, is called with each
// snapshot delivered while mounted.
func NewHook(svc *Service, onChange store.Listener) *Hook {
	return &Hook{Service: svc, onChange: onChange}
}

// Mount subscribes to the store and lazily loads the cart on the first use
// in the session. Mounting twice is a no-op.
func (h *Hook) Mount(ctx context.Context) error {
	h.lifecycle.Lock()
	if h.mounted {
		h.lifecycle.Unlock()
		return nil
	}
	h.mounted = true
	h.mounts++
	mount := h.mounts
	h.lifecycle.Unlock()

	// Subscribe may deliver synchronously, so it runs outside lifecycle.
	unsubscribe := h.store.Subscribe(h.receive)

	h.lifecycle.Lock()
	if !h.mounted || h.mounts != mount {
		h.lifecycle.Unlock()
		unsubscribe()
		return nil
	}
	h.unsubscribe = unsubscribe
	h.lifecycle.Unlock()

	return h.EnsureLoaded(ctx)
}

// Unmount stops deliveries to this surface.
func (h *Hook) Unmount() {
	h.lifecycle.Lock()
	unsubscribe := h.unsubscribe
	h.mounted = false
	h.unsubscribe = nil
	h.lifecycle.Unlock()
	if unsubscribe != nil {
		unsubscribe()
	}
}

// Snapshot is the last snapshot delivered to this surface.
func (h *Hook) Snapshot() *domain.CartSnapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.view.Clone()
}

func (h *Hook) receive(snap *domain.CartSnapshot) {
	h.mu.Lock()
	h.view = snap
	h.mu.Unlock()
	if h.onChange != nil {
		h.onChange(snap.Clone())
	}
}
