package observability

import (
	"context"

	"github.com/getsentry/sentry-go"
	"github.com/getsentry/sentry-go/attribute"
)

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

// CountCheckout records one checkout attempt against the given gateway.
func CountCheckout(ctx context.Context, gateway string, ok bool) {
	MeterFromContext(ctx).Count("checkout.created", 1, sentry.WithAttributes(
		attribute.String("gateway", gateway),
		attribute.Bool("success", ok),
	))
}

// CountWebhook records one processed payment callback and its mapped outcome.
func CountWebhook(ctx context.Context, gateway, outcome string) {
	MeterFromContext(ctx).Count("webhook.processed", 1, sentry.WithAttributes(
		attribute.String("gateway", gateway),
		attribute.String("outcome", outcome),
	))
}

// CountEntries records how many raffle entries a paid order materialized.
func CountEntries(ctx context.Context, gateway string, entries int) {
	MeterFromContext(ctx).Count("entries.materialized", int64(entries), sentry.WithAttributes(
		attribute.String("gateway", gateway),
	))
}
