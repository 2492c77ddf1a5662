// Package observability wires sentry spans, metrics, and instrumented
// outbound HTTP for the checkout service.
package observability

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/getsentry/sentry-go"
	sentryhttpclient "github.com/getsentry/sentry-go/httpclient"
)

// Init configures the sentry SDK. A blank DSN disables reporting; spans and
// meters become no-ops without error.
func Init(dsn, environment string) error {
	if strings.TrimSpace(dsn) == "" {
		return nil
	}
	err := sentry.Init(sentry.ClientOptions{
		Dsn:              dsn,
		Environment:      environment,
		EnableTracing:    true,
		TracesSampleRate: 0.1,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize sentry: %w", err)
	}
	return nil
}

// Close flushes pending sentry events.
func Close() {
	sentry.Flush(2 * time.Second)
}

// NewHTTPClient builds an outbound client whose transport records spans and
// propagates traces to the given API hosts (the commerce platform plus the
// payment and email gateways).
func NewHTTPClient(timeout time.Duration, platformBaseURL string) *http.Client {
	targets := []string{"api.stripe.com", "api.resend.com"}
	if host := hostOf(platformBaseURL); host != "" {
		targets = append(targets, host)
	}

	client := &http.Client{
		Transport: sentryhttpclient.NewSentryRoundTripper(
			http.DefaultTransport,
			sentryhttpclient.WithTracePropagationTargets(targets),
		),
	}
	if timeout > 0 {
		client.Timeout = timeout
	}
	return client
}

func hostOf(rawURL string) string {
	parsed, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return ""
	}
	return parsed.Hostname()
}

type meterContextKey struct{}

// WithMeter returns a context carrying the provided meter.
func WithMeter(ctx context.Context, meter sentry.Meter) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if meter == nil {
		meter = sentry.NewMeter(ctx)
	}
	return context.WithValue(ctx, meterContextKey{}, meter.WithCtx(ctx))
}

// MeterFromContext returns the request-scoped meter from context or a new one.
func MeterFromContext(ctx context.Context) sentry.Meter {
	if ctx == nil {
		ctx = context.Background()
	}
	if meter, ok := ctx.Value(meterContextKey{}).(sentry.Meter); ok && meter != nil {
		return meter.WithCtx(ctx)
	}
	return sentry.NewMeter(ctx).WithCtx(ctx)
}
