// Package app is the composition root: it builds the one shared cart store,
// request registry, cart service and checkout orchestrator of a running
// storefront.
package app

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/fjod/go_cart/storefront/internal/cart"
	"github.com/fjod/go_cart/storefront/internal/checkout"
	"github.com/fjod/go_cart/storefront/internal/config"
	"github.com/fjod/go_cart/storefront/internal/dedup"
	"github.com/fjod/go_cart/storefront/internal/gateway"
	"github.com/fjod/go_cart/storefront/internal/store"
	"golang.org/x/text/language"
)

type App struct {
	Store    *store.CartStore
	Pending  *dedup.Registry
	Cart     *cart.Service
	Checkout *checkout.Orchestrator
}

// Options carries the collaborators that differ per surface.
type Options struct {
	Auth       gateway.AuthFunc
	Launcher   checkout.Launcher
	Navigator  checkout.Navigator
	HTTPClient *http.Client
	Language   language.Tag
	Logger     *slog.Logger
}

func New(cfg config.Config, opts Options) *App {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Launcher == nil {
		opts.Launcher = checkout.LogLauncher{Logger: logger}
	}
	if opts.Navigator == nil {
		opts.Navigator = checkout.NavigatorFunc(func(ctx context.Context, form checkout.HostedForm) error {
			logger.InfoContext(ctx, "hosted payment page", "url", form.URL())
			return nil
		})
	}

	transport := gateway.NewTransport(gateway.Config{
		BaseURL:            cfg.APIBaseURL,
		Timeout:            cfg.RequestTimeout,
		Auth:               opts.Auth,
		SessionID:          cfg.SessionID,
		BreakerMaxFailures: cfg.BreakerMaxFailures,
		BreakerOpenTimeout: cfg.BreakerOpenTimeout,
		HTTPClient:         opts.HTTPClient,
		Logger:             logger,
	})

	st := store.New()
	pending := dedup.NewRegistry()
	svc := cart.NewService(gateway.NewCartGateway(transport), st, pending, cart.WithLogger(logger))

	orchestrator := checkout.New(checkout.Config{
		WhatsAppNumber: cfg.WhatsAppNumber,
		PaymentPageURL: cfg.PaymentPageURL,
		Currency:       cfg.Currency,
		Language:       opts.Language,
		StoreName:      cfg.StoreName,
	}, checkout.Deps{
		Cart:      svc,
		Orders:    gateway.NewOrderClient(transport),
		Payments:  gateway.NewPaymentClient(transport),
		Launcher:  opts.Launcher,
		Navigator: opts.Navigator,
		Logger:    logger,
	})

	return &App{Store: st, Pending: pending, Cart: svc, Checkout: orchestrator}
}

// NewHook returns a handle for one UI surface. Call Mount before use.
func (a *App) NewHook(onChange store.Listener) *cart.Hook {
	return cart.NewHook(a.Cart, onChange)
}
