package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/google/uuid"
	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	defaultTimeout = 10 * time.Second
	maxBodySize    = 1 << 20 // 1MB
	userAgent      = "storefront-client/1.0"
)

// AuthFunc supplies the session's bearer credential. ok is false for an
// anonymous session, in which case no Authorization header is sent.
type AuthFunc func(ctx context.Context) (token string, ok bool)

// StaticToken returns an AuthFunc that always yields token; an empty token is anonymous.
func StaticToken(token string) AuthFunc {
	return func(context.Context) (string, bool) {
		return token, token != ""
	}
}

// Endpoints is the path table of the collaborators, relative to BaseURL.
// Item holds a single %s verb for the line id.
type Endpoints struct {
	Cart            string
	Items           string
	Item            string
	Coupon          string
	Clear           string
	Orders          string
	PaymentCheckout string
}

func DefaultEndpoints() Endpoints {
	return Endpoints{
		Cart:            "/cart",
		Items:           "/cart/items",
		Item:            "/cart/items/%s",
		Coupon:          "/cart/coupon",
		Clear:           "/cart/clear",
		Orders:          "/orders",
		PaymentCheckout: "/payments/checkout",
	}
}

// Config is shared by every client built on one Transport.
type Config struct {
	BaseURL   string
	Endpoints Endpoints
	Timeout   time.Duration
	Auth      AuthFunc
	// SessionID identifies an anonymous cart; sent as X-Session-ID when set.
	SessionID string

	BreakerMaxFailures uint32
	BreakerOpenTimeout time.Duration

	// HTTPClient overrides the instrumented default client (tests).
	HTTPClient *http.Client
	Logger     *slog.Logger
}

type response struct {
	status int
	body   []byte
}

// Transport issues requests for all collaborators with one timeout policy,
// one auth factory and one circuit breaker.
type Transport struct {
	baseURL   string
	endpoints Endpoints
	timeout   time.Duration
	auth      AuthFunc
	sessionID string
	http      *http.Client
	breaker   *gobreaker.CircuitBreaker[*response]
	logger    *slog.Logger
}

func NewTransport(cfg Config) *Transport {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.Endpoints == (Endpoints{}) {
		cfg.Endpoints = DefaultEndpoints()
	}
	if cfg.Auth == nil {
		cfg.Auth = StaticToken("")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.BreakerMaxFailures == 0 {
		cfg.BreakerMaxFailures = 5
	}
	if cfg.BreakerOpenTimeout <= 0 {
		cfg.BreakerOpenTimeout = 30 * time.Second
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)}
	}

	logger := cfg.Logger.With(slog.String("component", "gateway"))
	maxFailures := cfg.BreakerMaxFailures
	breaker := gobreaker.NewCircuitBreaker[*response](gobreaker.Settings{
		Name:        "storefront-api",
		MaxRequests: 1,
		Timeout:     cfg.BreakerOpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		IsSuccessful: func(err error) bool {
			// only transport failures and 5xx trip the breaker
			return err == nil || !errors.Is(err, errUnavailable)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
		},
	})

	return &Transport{
		baseURL:   strings.TrimSuffix(cfg.BaseURL, "/"),
		endpoints: cfg.Endpoints,
		timeout:   cfg.Timeout,
		auth:      cfg.Auth,
		sessionID: cfg.SessionID,
		http:      client,
		breaker:   breaker,
		logger:    logger,
	}
}

var errUnavailable = errors.New("upstream unavailable")

// do performs one request and returns the body of a successful response.
// Failures come back as the domain error taxonomy.
func (t *Transport) do(ctx context.Context, op, method, path string, in any) ([]byte, error) {
	var payload []byte
	if in != nil {
		var err error
		if payload, err = json.Marshal(in); err != nil {
			return nil, fmt.Errorf("%s: marshal request: %w", op, err)
		}
	}

	reqCtx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, method, t.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("%s: create request: %w", op, err)
	}
	t.setHeaders(ctx, req, in != nil)

	start := time.Now()
	resp, err := t.breaker.Execute(func() (*response, error) {
		httpResp, err := t.http.Do(req)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", errUnavailable, err)
		}
		defer httpResp.Body.Close()

		body, err := io.ReadAll(io.LimitReader(httpResp.Body, maxBodySize))
		if err != nil {
			return nil, fmt.Errorf("%w: read body: %w", errUnavailable, err)
		}
		r := &response{status: httpResp.StatusCode, body: body}
		if r.status >= http.StatusInternalServerError {
			return r, errUnavailable
		}
		return r, nil
	})
	if err != nil && resp == nil {
		return nil, t.classify(ctx, reqCtx, op, err)
	}

	t.logger.DebugContext(ctx, "collaborator call",
		"op", op, "method", method, "path", path, "status", resp.status, "elapsed", time.Since(start))

	return parseResponse(op, resp)
}

func (t *Transport) setHeaders(ctx context.Context, req *http.Request, hasBody bool) {
	if hasBody {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("X-Request-ID", uuid.NewString())
	if t.sessionID != "" {
		req.Header.Set("X-Session-ID", t.sessionID)
	}
	if token, ok := t.auth(ctx); ok && token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
}

// classify maps transport-level failures to Timeout/Network errors. A caller
// cancelling its own context is reported as-is.
func (t *Transport) classify(parent, reqCtx context.Context, op string, err error) error {
	if parent.Err() != nil {
		return fmt.Errorf("%s: %w", op, parent.Err())
	}
	var netErr net.Error
	if errors.Is(reqCtx.Err(), context.DeadlineExceeded) ||
		(errors.As(err, &netErr) && netErr.Timeout()) {
		t.logger.Warn("collaborator call timed out", "op", op, "timeout", t.timeout)
		return &domain.TimeoutError{Op: op, Timeout: t.timeout, Err: err}
	}
	t.logger.Warn("collaborator unreachable", "op", op, "error", err)
	return &domain.NetworkError{Op: op, Err: err}
}

type errorBody struct {
	Success *bool  `json:"success,omitempty"`
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

func (b errorBody) text() string {
	if b.Error != "" {
		return b.Error
	}
	return b.Message
}

func parseResponse(op string, resp *response) ([]byte, error) {
	var eb errorBody
	_ = json.Unmarshal(resp.body, &eb) // best effort, bodies may be arrays or empty

	switch {
	case resp.status >= 200 && resp.status < 300:
		if (eb.Success != nil && !*eb.Success) || eb.Error != "" {
			msg := eb.text()
			if msg == "" {
				msg = "request was rejected"
			}
			return nil, &domain.BusinessRuleError{Op: op, Status: resp.status, Code: eb.Code, Message: msg}
		}
		return resp.body, nil
	case resp.status == http.StatusConflict || resp.status == http.StatusUnprocessableEntity:
		msg := eb.text()
		if msg == "" {
			msg = http.StatusText(resp.status)
		}
		return nil, &domain.BusinessRuleError{Op: op, Status: resp.status, Code: eb.Code, Message: msg}
	default:
		msg := eb.text()
		if msg == "" {
			msg = http.StatusText(resp.status)
		}
		return nil, &domain.ServiceError{Op: op, Status: resp.status, Message: msg}
	}
}
