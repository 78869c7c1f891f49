// Package checkout turns a confirmed cart into an order through one of two
// protocols: a conversational hand-off or a hosted payment redirect. Each is
// its own state machine and the two never share a transition.
package checkout

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/go-playground/validator/v10"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
)

// Cart is the part of the cart facade checkout needs.
type Cart interface {
	EnsureLoaded(ctx context.Context) error
	Current() *domain.CartSnapshot
	ClearCart(ctx context.Context) (*domain.CartSnapshot, error)
}

type OrderCreator interface {
	Create(ctx context.Context, payload domain.OrderPayload) (*domain.Order, error)
}

type PaymentSource interface {
	CheckoutData(ctx context.Context, orderID string) (*domain.PaymentDescriptor, error)
}

type Config struct {
	WhatsAppNumber string
	PaymentPageURL string
	Currency       currency.Unit
	Language       language.Tag
	StoreName      string
}

// Deps are the collaborators of an Orchestrator.
type Deps struct {
	Cart      Cart
	Orders    OrderCreator
	Payments  PaymentSource
	Launcher  Launcher
	Navigator Navigator
	Logger    *slog.Logger
}

type Orchestrator struct {
	cfg       Config
	cart      Cart
	orders    OrderCreator
	payments  PaymentSource
	launcher  Launcher
	navigator Navigator
	logger    *slog.Logger
	validate  *validator.Validate

	mu        sync.RWMutex
	observers []func(Transition)
}

func New(cfg Config, deps Deps) *Orchestrator {
	if cfg.Language == language.Und {
		cfg.Language = language.LatinAmericanSpanish
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		cfg:       cfg,
		cart:      deps.Cart,
		orders:    deps.Orders,
		payments:  deps.Payments,
		launcher:  deps.Launcher,
		navigator: deps.Navigator,
		logger:    logger,
		validate:  newValidator(),
	}
}

// OnTransition registers fn to observe every state change of every flow.
func (o *Orchestrator) OnTransition(fn func(Transition)) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.observers = append(o.observers, fn)
}

func (o *Orchestrator) notify(t Transition) {
	if t.Err != nil {
		o.logger.Warn("checkout step failed", "flow", t.Flow, "from", t.From, "to", t.To, "error", t.Err)
	} else {
		o.logger.Debug("checkout step", "flow", t.Flow, "from", t.From, "to", t.To)
	}
	o.mu.RLock()
	observers := o.observers
	o.mu.RUnlock()
	for _, fn := range observers {
		fn(t)
	}
}

// Validate checks the draft and the current cart without any network call.
// UIs run it before enabling submission; both flows run it again on submit.
func (o *Orchestrator) Validate(draft domain.OrderDraft) error {
	_, _, err := o.prepare(draft)
	return err
}

// prepare normalizes the draft and pairs it with the cart it will be
// submitted against.
func (o *Orchestrator) prepare(draft domain.OrderDraft) (domain.OrderDraft, *domain.CartSnapshot, error) {
	draft = normalizeDraft(draft)
	cart := o.cart.Current()
	if err := validateDraft(o.validate, draft, cart); err != nil {
		return draft, cart, err
	}
	return draft, cart, nil
}

// PlaceOrder validates and submits an order without opening any channel or
// touching the cart. The hosted path starts from the returned order id.
func (o *Orchestrator) PlaceOrder(ctx context.Context, draft domain.OrderDraft) (*domain.Order, error) {
	if err := o.cart.EnsureLoaded(ctx); err != nil {
		return nil, err
	}
	draft, cart, err := o.prepare(draft)
	if err != nil {
		return nil, err
	}
	order, err := o.orders.Create(ctx, domain.NewOrderPayload(draft, cart))
	if err != nil {
		return nil, err
	}
	o.logger.InfoContext(ctx, "order placed", "order_number", order.OrderNumber, "total", order.Total)
	return order, nil
}

// HandoffResult is the outcome of one hand-off flow. State is always set.
type HandoffResult struct {
	State   HandoffState
	Order   *domain.Order
	Message string
	URL     string
}

// Handoff runs the conversational checkout: validate, submit the order, open
// the messaging channel with the order summary, then clear the cart. Calling
// it again after success places a second order.
//
// A validation failure leaves the flow in VALIDATING. A failed submission or
// channel leaves the cart untouched so the user can retry.
func (o *Orchestrator) Handoff(ctx context.Context, draft domain.OrderDraft) (*HandoffResult, error) {
	m := newMachine(FlowHandoff, HandoffIdle, handoffTransitions, o.notify)
	res := &HandoffResult{State: HandoffIdle}
	defer func() { res.State = m.state() }()

	if err := m.to(HandoffValidating); err != nil {
		return res, err
	}
	if err := o.cart.EnsureLoaded(ctx); err != nil {
		return res, m.fail(HandoffFailed, err)
	}
	draft, cart, err := o.prepare(draft)
	if err != nil {
		return res, err
	}

	if err := m.to(HandoffSubmittingOrder); err != nil {
		return res, err
	}
	order, err := o.orders.Create(ctx, domain.NewOrderPayload(draft, cart))
	if err != nil {
		return res, m.fail(HandoffFailed, err)
	}
	res.Order = order

	if err := m.to(HandoffOrderCreated); err != nil {
		return res, err
	}
	res.Message = o.summary(order, draft, cart)
	res.URL = whatsAppURL(o.cfg.WhatsAppNumber, res.Message)

	if err := o.launcher.Open(ctx, res.URL); err != nil {
		return res, m.fail(HandoffFailed, fmt.Errorf("open hand-off channel: %w", err))
	}
	if err := m.to(HandoffOpened); err != nil {
		return res, err
	}

	if _, err := o.cart.ClearCart(ctx); err != nil {
		o.logger.WarnContext(ctx, "cart not cleared after hand-off", "order_number", order.OrderNumber, "error", err)
		return res, fmt.Errorf("order %s placed but cart could not be cleared: %w", order.OrderNumber, err)
	}
	if err := m.to(HandoffCartCleared); err != nil {
		return res, err
	}
	o.logger.InfoContext(ctx, "hand-off checkout completed", "order_number", order.OrderNumber)
	return res, nil
}

// HostedResult is the outcome of one hosted payment flow. State is always set.
type HostedResult struct {
	State      HostedState
	Descriptor *domain.PaymentDescriptor
	Form       HostedForm
}

// Hosted fetches the signed descriptor for orderID and navigates to the
// hosted payment page. The payment outcome is reconciled elsewhere.
func (o *Orchestrator) Hosted(ctx context.Context, orderID string) (*HostedResult, error) {
	m := newMachine(FlowHosted, HostedIdle, hostedTransitions, o.notify)
	res := &HostedResult{State: HostedIdle}
	defer func() { res.State = m.state() }()

	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return res, m.fail(HostedFailed, domain.NewValidationError(nil, "orderId", "order is required"))
	}

	if err := m.to(HostedRequestingCheckoutData); err != nil {
		return res, err
	}
	d, err := o.payments.CheckoutData(ctx, orderID)
	if err != nil {
		return res, m.fail(HostedFailed, err)
	}
	res.Descriptor = d
	if missing := d.Missing(); len(missing) > 0 {
		return res, m.fail(HostedFailed, fmt.Errorf("%w: %s", domain.ErrMissingDescriptorFields, strings.Join(missing, ", ")))
	}

	res.Form = BuildHostedForm(o.cfg.PaymentPageURL, *d)
	if err := o.navigator.Navigate(ctx, res.Form); err != nil {
		return res, m.fail(HostedFailed, fmt.Errorf("navigate to payment page: %w", err))
	}
	if err := m.to(HostedNavigating); err != nil {
		return res, err
	}
	o.logger.InfoContext(ctx, "navigating to hosted payment", "reference", d.Reference, "amount_in_cents", d.AmountInCents)
	return res, nil
}
