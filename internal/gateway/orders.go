package gateway

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/fjod/go_cart/storefront/internal/domain"
)

// OrderClient talks to the order-creation service.
type OrderClient struct {
	t *Transport
}

func NewOrderClient(t *Transport) *OrderClient {
	return &OrderClient{t: t}
}

func (c *OrderClient) Create(ctx context.Context, payload domain.OrderPayload) (*domain.Order, error) {
	const op = "orders.create"
	body, err := c.t.do(ctx, op, http.MethodPost, c.t.endpoints.Orders, payload)
	if err != nil {
		return nil, err
	}
	var resp struct {
		Order *domain.Order `json:"order"`
	}
	if err := json.Unmarshal(body, &resp); err != nil || resp.Order == nil || resp.Order.OrderNumber == "" {
		return nil, &domain.ServiceError{Op: op, Status: http.StatusOK, Message: "order service returned no order"}
	}
	return resp.Order, nil
}

// PaymentClient requests signed descriptors from the payments service.
type PaymentClient struct {
	t *Transport
}

func NewPaymentClient(t *Transport) *PaymentClient {
	return &PaymentClient{t: t}
}

func (c *PaymentClient) CheckoutData(ctx context.Context, orderID string) (*domain.PaymentDescriptor, error) {
	const op = "payments.checkoutData"
	body, err := c.t.do(ctx, op, http.MethodPost, c.t.endpoints.PaymentCheckout, map[string]string{"orderId": orderID})
	if err != nil {
		return nil, err
	}
	var d domain.PaymentDescriptor
	if err := json.Unmarshal(body, &d); err != nil {
		return nil, &domain.ServiceError{Op: op, Status: http.StatusOK, Message: "malformed payment descriptor"}
	}
	return &d, nil
}
