package checkout

import (
	"context"
	"io"
	"log/slog"
)

// Launcher opens the external messaging channel. Nothing is read back from it.
type Launcher interface {
	Open(ctx context.Context, url string) error
}

// Navigator submits the hosted payment form, leaving the storefront.
type Navigator interface {
	Navigate(ctx context.Context, form HostedForm) error
}

// LogLauncher records the hand-off link instead of opening it; used by
// headless surfaces that show the link to the user themselves.
type LogLauncher struct {
	Logger *slog.Logger
}

func (l LogLauncher) Open(ctx context.Context, url string) error {
	logger := l.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.InfoContext(ctx, "hand-off channel opened", "url", url)
	return nil
}

// HTMLNavigator writes the auto-submitting form page to W, for example an
// http.ResponseWriter answering the checkout request.
type HTMLNavigator struct {
	W io.Writer
}

func (n HTMLNavigator) Navigate(_ context.Context, form HostedForm) error {
	page, err := form.HTML()
	if err != nil {
		return err
	}
	_, err = n.W.Write(page)
	return err
}

// LauncherFunc adapts a function to Launcher.
type LauncherFunc func(ctx context.Context, url string) error

func (f LauncherFunc) Open(ctx context.Context, url string) error { return f(ctx, url) }

// NavigatorFunc adapts a function to Navigator.
type NavigatorFunc func(ctx context.Context, form HostedForm) error

func (f NavigatorFunc) Navigate(ctx context.Context, form HostedForm) error { return f(ctx, form) }
