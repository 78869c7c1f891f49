package sandbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/fjod/go_cart/storefront/internal/config"
	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/golang-jwt/jwt/v5"
)

const maxRequestBodySize = 1 << 20 // 1MB

type ctxKey int

const ownerKey ctxKey = iota

// Server exposes the cart, orders and payments collaborators under /api.
type Server struct {
	carts     *CartService
	orders    *OrderService
	payments  *PaymentService
	jwtSecret []byte
	logger    *slog.Logger
}

func NewServer(carts *CartService, orders *OrderService, payments *PaymentService, jwtSecret string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{carts: carts, orders: orders, payments: payments, jwtSecret: []byte(jwtSecret), logger: logger}
}

// NewFromConfig wires the default catalog and the given repository.
func NewFromConfig(cfg config.Config, repo Repository, logger *slog.Logger) *Server {
	sb := cfg.Sandbox
	orders := NewOrderService()
	carts := NewCartService(repo, DefaultCatalog(), Pricing{ShippingFee: sb.ShippingFee, FreeShippingFrom: sb.FreeShippingFrom}, logger)
	payments := NewPaymentService(orders, sb.PublicKey, sb.IntegritySecret, cfg.Currency, sb.RedirectURL)
	return NewServer(carts, orders, payments, sb.JWTSecret, logger)
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(s.identify)
		r.Route("/cart", func(r chi.Router) {
			r.Get("/", s.getCart)
			r.Post("/items", s.addItem)
			r.Patch("/items/{lineId}", s.updateQuantity)
			r.Delete("/items/{lineId}", s.removeItem)
			r.Post("/coupon", s.applyCoupon)
			r.Delete("/coupon", s.removeCoupon)
			r.Post("/clear", s.clearCart)
		})
		r.Post("/orders", s.createOrder)
		r.Post("/payments/checkout", s.checkoutData)
	})
	return r
}

// identify resolves the cart owner: the bearer token's subject when one is
// sent, otherwise the anonymous X-Session-ID.
func (s *Server) identify(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var owner string
		if auth := r.Header.Get("Authorization"); auth != "" {
			tokenString, ok := strings.CutPrefix(auth, "Bearer ")
			if !ok {
				respondError(w, http.StatusUnauthorized, "unauthorized", "Authorization header must be a bearer token")
				return
			}
			sub, err := s.subject(tokenString)
			if err != nil {
				respondError(w, http.StatusUnauthorized, "unauthorized", "Invalid or expired token")
				return
			}
			owner = "user:" + sub
		} else if sid := strings.TrimSpace(r.Header.Get("X-Session-ID")); sid != "" {
			owner = "session:" + sid
		} else {
			respondError(w, http.StatusUnauthorized, "unauthorized", "missing session")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ownerKey, owner)))
	})
}

func (s *Server) subject(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(*jwt.Token) (any, error) {
		return s.jwtSecret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return "", fmt.Errorf("invalid token: %w", err)
	}
	sub, err := token.Claims.GetSubject()
	if err != nil || sub == "" {
		return "", errors.New("token has no subject")
	}
	return sub, nil
}

// IssueToken mints an HS256 bearer token for subject.
func IssueToken(secret, subject string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.InfoContext(r.Context(), "request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

func ownerFrom(ctx context.Context) string {
	owner, _ := ctx.Value(ownerKey).(string)
	return owner
}

type addItemRequest struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
	Size      string `json:"size"`
}

type quantityRequest struct {
	Quantity int `json:"quantity"`
}

type couponRequest struct {
	CartID string `json:"cartId"`
	Code   string `json:"code"`
}

type cartIDRequest struct {
	CartID string `json:"cartId"`
}

type checkoutRequest struct {
	OrderID string `json:"orderId"`
}

type cartResponse struct {
	Cart *domain.CartSnapshot `json:"cart"`
}

func (s *Server) getCart(w http.ResponseWriter, r *http.Request) {
	snap, err := s.carts.GetCart(r.Context(), ownerFrom(r.Context()))
	s.respondCart(w, r, http.StatusOK, snap, err)
}

func (s *Server) addItem(w http.ResponseWriter, r *http.Request) {
	var req addItemRequest
	if !decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.ProductID) == "" {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "productId is required")
		return
	}
	snap, err := s.carts.AddItem(r.Context(), ownerFrom(r.Context()), req.ProductID, req.Quantity, req.Size)
	s.respondCart(w, r, http.StatusCreated, snap, err)
}

func (s *Server) updateQuantity(w http.ResponseWriter, r *http.Request) {
	var req quantityRequest
	if !decode(w, r, &req) {
		return
	}
	snap, err := s.carts.UpdateQuantity(r.Context(), ownerFrom(r.Context()), chi.URLParam(r, "lineId"), req.Quantity)
	s.respondCart(w, r, http.StatusOK, snap, err)
}

func (s *Server) removeItem(w http.ResponseWriter, r *http.Request) {
	snap, err := s.carts.RemoveItem(r.Context(), ownerFrom(r.Context()), chi.URLParam(r, "lineId"))
	s.respondCart(w, r, http.StatusOK, snap, err)
}

func (s *Server) applyCoupon(w http.ResponseWriter, r *http.Request) {
	var req couponRequest
	if !decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Code) == "" {
		respondError(w, http.StatusBadRequest, "invalid_coupon", "code is required")
		return
	}
	snap, err := s.carts.ApplyCoupon(r.Context(), ownerFrom(r.Context()), req.CartID, req.Code)
	s.respondCart(w, r, http.StatusOK, snap, err)
}

func (s *Server) removeCoupon(w http.ResponseWriter, r *http.Request) {
	snap, err := s.carts.RemoveCoupon(r.Context(), ownerFrom(r.Context()), r.URL.Query().Get("cartId"))
	s.respondCart(w, r, http.StatusOK, snap, err)
}

func (s *Server) clearCart(w http.ResponseWriter, r *http.Request) {
	var req cartIDRequest
	if !decode(w, r, &req) {
		return
	}
	snap, err := s.carts.ClearCart(r.Context(), ownerFrom(r.Context()), req.CartID)
	s.respondCart(w, r, http.StatusOK, snap, err)
}

func (s *Server) createOrder(w http.ResponseWriter, r *http.Request) {
	var payload domain.OrderPayload
	if !decode(w, r, &payload) {
		return
	}
	order, err := s.orders.Create(r.Context(), ownerFrom(r.Context()), payload)
	if err != nil {
		s.respondFailure(w, r, err)
		return
	}
	s.logger.InfoContext(r.Context(), "order created", "order_number", order.OrderNumber, "total", order.Total, "payment_method", payload.PaymentMethod)
	respondJSON(w, http.StatusCreated, map[string]any{"order": order})
}

func (s *Server) checkoutData(w http.ResponseWriter, r *http.Request) {
	var req checkoutRequest
	if !decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.OrderID) == "" {
		respondError(w, http.StatusBadRequest, "missing_order_id", "orderId is required")
		return
	}
	d, err := s.payments.CheckoutData(r.Context(), req.OrderID)
	if err != nil {
		s.respondFailure(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, d)
}

func (s *Server) respondCart(w http.ResponseWriter, r *http.Request, status int, snap *domain.CartSnapshot, err error) {
	if err != nil {
		s.respondFailure(w, r, err)
		return
	}
	respondJSON(w, status, cartResponse{Cart: snap})
}

func (s *Server) respondFailure(w http.ResponseWriter, r *http.Request, err error) {
	var rule *RuleError
	switch {
	case errors.As(err, &rule):
		respondError(w, rule.Status, rule.Code, rule.Message)
	case errors.Is(err, ErrProductNotFound):
		respondError(w, http.StatusNotFound, "product_not_found", "Product not found")
	case errors.Is(err, ErrLineNotFound):
		respondError(w, http.StatusNotFound, "line_not_found", "That item is no longer in your cart")
	case errors.Is(err, ErrOrderNotFound):
		respondError(w, http.StatusNotFound, "order_not_found", "Order not found")
	default:
		s.logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "error", err)
		respondError(w, http.StatusInternalServerError, "internal", "Something went wrong, please try again")
	}
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return false
	}
	return true
}

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, ErrorResponse{Error: message, Code: code})
}
