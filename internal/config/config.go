package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"golang.org/x/text/currency"
)

// Config holds runtime configuration for the storefront client and the sandbox.
type Config struct {
	// Collaborators
	APIBaseURL     string
	RequestTimeout time.Duration
	SessionID      string

	// Checkout
	WhatsAppNumber string
	PaymentPageURL string
	Currency       currency.Unit
	StoreName      string

	// Circuit breaker
	BreakerMaxFailures uint32
	BreakerOpenTimeout time.Duration

	Sandbox Sandbox
}

// Sandbox configures the development collaborators server.
type Sandbox struct {
	HTTPPort         string
	RedisAddr        string
	RedisPassword    string
	JWTSecret        string
	PublicKey        string
	IntegritySecret  string
	RedirectURL      string
	ShutdownTimeout  time.Duration
	ShippingFee      int64
	FreeShippingFrom int64
}

// Load populates Config from environment variables.
func Load() Config {
	return Config{
		APIBaseURL:         getEnv("STOREFRONT_API_URL", "http://localhost:8090/api"),
		RequestTimeout:     parseDurationEnv("STOREFRONT_TIMEOUT", 10*time.Second),
		SessionID:          os.Getenv("STOREFRONT_SESSION_ID"),
		WhatsAppNumber:     getEnv("STOREFRONT_WHATSAPP_NUMBER", "573001234567"),
		PaymentPageURL:     getEnv("STOREFRONT_PAYMENT_PAGE_URL", "https://checkout.wompi.co/p/"),
		Currency:           parseCurrencyEnv("STOREFRONT_CURRENCY", domain.COP),
		StoreName:          getEnv("STOREFRONT_NAME", "Joyeria"),
		BreakerMaxFailures: uint32(parseIntEnv("BREAKER_MAX_FAILURES", 5)),
		BreakerOpenTimeout: parseDurationEnv("BREAKER_OPEN_TIMEOUT", 30*time.Second),
		Sandbox: Sandbox{
			HTTPPort:         getEnv("SANDBOX_HTTP_PORT", "8090"),
			RedisAddr:        os.Getenv("SANDBOX_REDIS_ADDR"),
			RedisPassword:    os.Getenv("SANDBOX_REDIS_PASSWORD"),
			JWTSecret:        getEnv("SANDBOX_JWT_SECRET", "sandbox-secret"),
			PublicKey:        getEnv("SANDBOX_WOMPI_PUBLIC_KEY", "pub_test_sandbox"),
			IntegritySecret:  getEnv("SANDBOX_WOMPI_INTEGRITY_SECRET", "test_integrity_sandbox"),
			RedirectURL:      getEnv("SANDBOX_REDIRECT_URL", "http://localhost:3000/checkout/result"),
			ShutdownTimeout:  parseDurationEnv("SANDBOX_SHUTDOWN_TIMEOUT", 10*time.Second),
			ShippingFee:      int64(parseIntEnv("SANDBOX_SHIPPING_FEE", 1500000)),
			FreeShippingFrom: int64(parseIntEnv("SANDBOX_FREE_SHIPPING_FROM", 30000000)),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseIntEnv(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil && i >= 0 {
			return i
		}
	}
	return def
}

func parseDurationEnv(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
		if i, err := strconv.Atoi(v); err == nil {
			return time.Duration(i) * time.Second
		}
	}
	return def
}

func parseCurrencyEnv(key string, def currency.Unit) currency.Unit {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if unit, err := currency.ParseISO(strings.ToUpper(v)); err == nil {
			return unit
		}
	}
	return def
}
