package sandbox

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/google/uuid"
	"golang.org/x/text/currency"
)

var ErrOrderNotFound = errors.New("order not found")

const orderStatusPending = "pending"

type storedOrder struct {
	domain.Order
	Owner     string
	Payload   domain.OrderPayload
	CreatedAt time.Time
}

// OrderService records orders in memory.
type OrderService struct {
	mu     sync.RWMutex
	orders map[string]storedOrder
}

func NewOrderService() *OrderService {
	return &OrderService{orders: make(map[string]storedOrder)}
}

func (s *OrderService) Create(_ context.Context, owner string, p domain.OrderPayload) (*domain.Order, error) {
	if len(p.Items) == 0 {
		return nil, &RuleError{Status: http.StatusBadRequest, Code: "empty_order", Message: "Order has no items"}
	}
	if p.Total <= 0 {
		return nil, &RuleError{Status: http.StatusBadRequest, Code: "invalid_total", Message: "Order total must be positive"}
	}

	id := uuid.New()
	order := domain.Order{
		ID:          id.String(),
		OrderNumber: "JY-" + strings.ToUpper(strings.ReplaceAll(id.String(), "-", "")[:8]),
		Total:       p.Total,
		Status:      orderStatusPending,
	}

	s.mu.Lock()
	s.orders[order.ID] = storedOrder{Order: order, Owner: owner, Payload: p, CreatedAt: time.Now()}
	s.mu.Unlock()
	return &order, nil
}

func (s *OrderService) Get(_ context.Context, id string) (*domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.orders[id]
	if !ok {
		return nil, ErrOrderNotFound
	}
	order := o.Order
	return &order, nil
}

// PaymentService signs hosted payment descriptors the way the Wompi widget
// expects: sha256 over reference, amount in cents, currency and the
// integrity secret, hex encoded.
type PaymentService struct {
	orders          *OrderService
	publicKey       string
	integritySecret string
	currency        currency.Unit
	redirectURL     string
}

// NewPaymentService signs amounts of unit. Order totals are in its minor units.
func NewPaymentService(orders *OrderService, publicKey, integritySecret string, unit currency.Unit, redirectURL string) *PaymentService {
	return &PaymentService{
		orders:          orders,
		publicKey:       publicKey,
		integritySecret: integritySecret,
		currency:        unit,
		redirectURL:     redirectURL,
	}
}

func (s *PaymentService) CheckoutData(ctx context.Context, orderID string) (*domain.PaymentDescriptor, error) {
	order, err := s.orders.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	d := &domain.PaymentDescriptor{
		PublicKey:     s.publicKey,
		Currency:      s.currency.String(),
		AmountInCents: domain.AmountInCents(order.Total, s.currency),
		Reference:     order.OrderNumber,
		RedirectURL:   s.redirectURL,
	}
	d.Signature = IntegritySignature(d.Reference, d.AmountInCents, d.Currency, s.integritySecret)
	return d, nil
}

func IntegritySignature(reference string, amountInCents int64, currencyCode, secret string) string {
	sum := sha256.Sum256([]byte(reference + strconv.FormatInt(amountInCents, 10) + currencyCode + secret))
	return hex.EncodeToString(sum[:])
}
