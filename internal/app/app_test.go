package app

import (
	"context"
	"io"
	"log/slog"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/fjod/go_cart/storefront/internal/cart"
	"github.com/fjod/go_cart/storefront/internal/checkout"
	"github.com/fjod/go_cart/storefront/internal/config"
	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/gateway"
	"github.com/fjod/go_cart/storefront/internal/sandbox"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type launches struct {
	mu   sync.Mutex
	urls []string
}

func (l *launches) Open(_ context.Context, url string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.urls = append(l.urls, url)
	return nil
}

type StorefrontSuite struct {
	suite.Suite
	cfg      config.Config
	server   *httptest.Server
	app      *App
	launcher *launches
	forms    []checkout.HostedForm
}

func TestStorefrontSuite(t *testing.T) {
	suite.Run(t, new(StorefrontSuite))
}

func (s *StorefrontSuite) SetupTest() {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.cfg = config.Load()
	s.cfg.RequestTimeout = 5 * time.Second
	s.cfg.SessionID = gofakeit.UUID()
	s.cfg.Sandbox.IntegritySecret = "test_integrity"
	s.cfg.Sandbox.JWTSecret = "test-jwt"

	s.server = httptest.NewServer(sandbox.NewFromConfig(s.cfg, sandbox.NewMemoryRepository(), logger).Routes())
	s.cfg.APIBaseURL = s.server.URL + "/api"

	s.launcher = &launches{}
	s.forms = nil
	s.app = New(s.cfg, Options{
		Launcher: s.launcher,
		Navigator: checkout.NavigatorFunc(func(_ context.Context, f checkout.HostedForm) error {
			s.forms = append(s.forms, f)
			return nil
		}),
		HTTPClient: s.server.Client(),
		Logger:     logger,
	})
}

func (s *StorefrontSuite) TearDownTest() {
	s.server.Close()
}

func (s *StorefrontSuite) draft(method domain.PaymentMethod) domain.OrderDraft {
	return domain.OrderDraft{
		Customer: domain.Customer{
			Name:  gofakeit.Name(),
			Email: gofakeit.Email(),
			Phone: "3001234567",
		},
		Shipping: domain.ShippingAddress{
			Address:    gofakeit.Street(),
			City:       "Medellin",
			Department: "Antioquia",
		},
		PaymentMethod: method,
	}
}

func (s *StorefrontSuite) TestCartIntents() {
	ctx := context.Background()
	header := s.app.NewHook(nil)
	drawer := s.app.NewHook(nil)
	s.Require().NoError(header.Mount(ctx))
	s.Require().NoError(drawer.Mount(ctx))
	defer header.Unmount()
	defer drawer.Unmount()
	s.True(header.IsEmpty())

	snap, err := drawer.AddToCart(ctx, "P1", 2, cart.WithSize("7"), cart.WithCategory("anillos"))
	s.Require().NoError(err)
	s.Equal(int64(4000000), snap.Subtotal)
	lineID := snap.Items[0].ID
	s.Equal(2, header.Snapshot().TotalItems())

	snap, err = header.ChangeQuantity(ctx, lineID, 3)
	s.Require().NoError(err)
	s.Equal(3, snap.Items[0].Quantity)

	_, err = header.ChangeQuantity(ctx, lineID, 11)
	s.ErrorIs(err, domain.ErrQuantityOutOfRange)
	s.Equal(3, drawer.Quantity(lineID))

	_, err = drawer.ApplyCoupon(ctx, "SUMMER10")
	var rule *domain.BusinessRuleError
	s.Require().ErrorAs(err, &rule)
	s.Equal("coupon_expired", rule.Code)
	s.Equal("This coupon has expired", header.Notice(err).Message)

	_, err = drawer.AddToCart(ctx, "P4", 4)
	s.Require().ErrorAs(err, &rule)
	s.Equal(3, header.TotalItems(), "store keeps the last good cart")

	_, err = drawer.AddToCart(ctx, "P1", 2)
	s.Require().ErrorAs(err, &rule, "the service requires a size for rings")

	snap, err = drawer.AddToCart(ctx, "P1", 2, cart.WithSize("7"))
	s.Require().NoError(err)
	s.Require().Len(snap.Items, 1, "same product and size is one line")
	s.Equal(5, snap.Items[0].Quantity)

	snap, err = drawer.ApplyCoupon(ctx, "WELCOME15")
	s.Require().NoError(err)
	s.Equal(int64(10000000), snap.Subtotal)
	s.Equal(int64(1500000), snap.DiscountAmount)
	s.Equal(snap.Subtotal-snap.DiscountAmount+snap.ShippingAmount+snap.TaxAmount, snap.Total)

	snap, err = header.RemoveFromCart(ctx, lineID)
	s.Require().NoError(err)
	s.True(snap.IsEmpty())
	s.True(drawer.Snapshot().IsEmpty())
}

func (s *StorefrontSuite) TestHandoffCheckout() {
	ctx := context.Background()
	hook := s.app.NewHook(nil)
	s.Require().NoError(hook.Mount(ctx))
	defer hook.Unmount()

	_, err := hook.AddToCart(ctx, "P2", 1)
	s.Require().NoError(err)

	var steps []string
	s.app.Checkout.OnTransition(func(t checkout.Transition) { steps = append(steps, t.To) })

	res, err := s.app.Checkout.Handoff(ctx, s.draft(domain.PaymentMethodWhatsApp))
	s.Require().NoError(err)
	s.Equal(checkout.HandoffCartCleared, res.State)
	s.Contains(res.Message, res.Order.OrderNumber)
	s.Equal([]string{"VALIDATING", "SUBMITTING_ORDER", "ORDER_CREATED", "HANDOFF_OPENED", "CART_CLEARED"}, steps)
	s.Len(s.launcher.urls, 1)
	s.True(hook.IsEmpty())
	s.Zero(hook.Snapshot().TotalItems())

	res, err = s.app.Checkout.Handoff(ctx, s.draft(domain.PaymentMethodWhatsApp))
	s.ErrorIs(err, domain.ErrEmptyCart)
	s.Equal(checkout.HandoffValidating, res.State)
}

func (s *StorefrontSuite) TestHostedCheckout() {
	ctx := context.Background()
	_, err := s.app.Cart.AddToCart(ctx, "P3", 2, cart.WithSize("M"))
	s.Require().NoError(err)
	before := s.app.Cart.TotalItems()

	order, err := s.app.Checkout.PlaceOrder(ctx, s.draft(domain.PaymentMethodHosted))
	s.Require().NoError(err)
	s.Equal(before, s.app.Cart.TotalItems(), "cart stays until payment is reconciled")

	res, err := s.app.Checkout.Hosted(ctx, order.ID)
	s.Require().NoError(err)
	s.Equal(checkout.HostedNavigating, res.State)
	s.Require().Len(s.forms, 1)

	d := res.Descriptor
	s.Equal(order.OrderNumber, d.Reference)
	s.Equal(order.Total, d.AmountInCents)
	s.Equal(sandbox.IntegritySignature(d.Reference, d.AmountInCents, d.Currency, "test_integrity"), d.Signature)

	_, err = s.app.Checkout.Hosted(ctx, "unknown-order")
	var se *domain.ServiceError
	s.Require().ErrorAs(err, &se)
	s.Equal("Order not found", domain.Message(err))
	s.Len(s.forms, 1, "no navigation on failure")
}

func (s *StorefrontSuite) TestSignedInSessionHasItsOwnCart() {
	ctx := context.Background()
	token, err := sandbox.IssueToken("test-jwt", "customer-7", time.Hour)
	s.Require().NoError(err)

	signedIn := New(s.cfg, Options{Auth: gateway.StaticToken(token), HTTPClient: s.server.Client(), Logger: slog.New(slog.NewTextHandler(io.Discard, nil))})
	_, err = signedIn.Cart.AddToCart(ctx, "P2", 1)
	s.Require().NoError(err)

	s.Require().NoError(s.app.Cart.EnsureLoaded(ctx))
	s.True(s.app.Cart.IsEmpty())
	s.Equal(1, signedIn.Cart.TotalItems())
}

func TestNew_DefaultsAreUsable(t *testing.T) {
	a := New(config.Load(), Options{})
	require.NotNil(t, a.Store)
	require.NotNil(t, a.Pending)
	require.NotNil(t, a.Checkout)
	assert.True(t, a.Cart.IsEmpty())
	assert.Zero(t, a.Store.Subscribers())
}
