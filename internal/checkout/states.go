package checkout

import (
	"errors"
	"fmt"
	"slices"

	"github.com/fjod/go_cart/storefront/internal/domain"
)

// HandoffState is a step of the conversational hand-off flow.
type HandoffState string

const (
	HandoffIdle            HandoffState = "IDLE"
	HandoffValidating      HandoffState = "VALIDATING"
	HandoffSubmittingOrder HandoffState = "SUBMITTING_ORDER"
	HandoffOrderCreated    HandoffState = "ORDER_CREATED"
	HandoffOpened          HandoffState = "HANDOFF_OPENED"
	HandoffCartCleared     HandoffState = "CART_CLEARED"
	HandoffFailed          HandoffState = "FAILED"
)

func (s HandoffState) IsTerminal() bool {
	return s == HandoffCartCleared || s == HandoffFailed
}

func (s HandoffState) String() string {
	return string(s)
}

var handoffTransitions = map[HandoffState][]HandoffState{
	HandoffIdle:            {HandoffValidating},
	HandoffValidating:      {HandoffSubmittingOrder, HandoffFailed},
	HandoffSubmittingOrder: {HandoffOrderCreated, HandoffFailed},
	HandoffOrderCreated:    {HandoffOpened, HandoffFailed},
	HandoffOpened:          {HandoffCartCleared},
}

// HostedState is a step of the hosted payment redirect flow.
type HostedState string

const (
	HostedIdle                   HostedState = "IDLE"
	HostedRequestingCheckoutData HostedState = "REQUESTING_CHECKOUT_DATA"
	HostedNavigating             HostedState = "NAVIGATING"
	HostedFailed                 HostedState = "FAILED"
)

func (s HostedState) IsTerminal() bool {
	return s == HostedNavigating || s == HostedFailed
}

func (s HostedState) String() string {
	return string(s)
}

var hostedTransitions = map[HostedState][]HostedState{
	HostedIdle:                   {HostedRequestingCheckoutData, HostedFailed},
	HostedRequestingCheckoutData: {HostedNavigating, HostedFailed},
}

// CanTransitionTo reports whether the hand-off flow may move from s to next.
func (s HandoffState) CanTransitionTo(next HandoffState) bool {
	return slices.Contains(handoffTransitions[s], next)
}

// CanTransitionTo reports whether the hosted flow may move from s to next.
func (s HostedState) CanTransitionTo(next HostedState) bool {
	return slices.Contains(hostedTransitions[s], next)
}

// Transition is reported to observers each time a flow changes state.
type Transition struct {
	Flow string
	From string
	To   string
	Err  error
}

const (
	FlowHandoff = "handoff"
	FlowHosted  = "hosted"
)

// machine walks one flow instance through its table. It is not shared
// between invocations, so it needs no locking.
type machine[S ~string] struct {
	flow    string
	current S
	table   map[S][]S
	notify  func(Transition)
}

func newMachine[S ~string](flow string, initial S, table map[S][]S, notify func(Transition)) *machine[S] {
	return &machine[S]{flow: flow, current: initial, table: table, notify: notify}
}

func (m *machine[S]) state() S {
	return m.current
}

func (m *machine[S]) to(next S) error {
	return m.move(next, nil)
}

// fail moves to the failed state and returns cause for the caller to hand back.
func (m *machine[S]) fail(failed S, cause error) error {
	if err := m.move(failed, cause); err != nil {
		return errors.Join(cause, err)
	}
	return cause
}

func (m *machine[S]) move(next S, cause error) error {
	if !slices.Contains(m.table[m.current], next) {
		return fmt.Errorf("%w: %s -> %s", domain.ErrIllegalTransition, m.current, next)
	}
	prev := m.current
	m.current = next
	if m.notify != nil {
		m.notify(Transition{Flow: m.flow, From: string(prev), To: string(next), Err: cause})
	}
	return nil
}
