package metrics

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

type Metrics struct {
	checkoutsTotal         metric.Int64Counter
	checkoutDuration       metric.Float64Histogram
	stockReservationsTotal metric.Int64Counter
	couponRedemptionsTotal metric.Int64Counter
}

func NewMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}

	var err error

	m.checkoutsTotal, err = meter.Int64Counter(
		"checkouts_total",
		metric.WithDescription("Total number of checkout attempts"),
		metric.WithUnit("{checkout}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create checkouts_total counter: %w", err)
	}

	m.checkoutDuration, err = meter.Float64Histogram(
		"checkout_duration_seconds",
		metric.WithDescription("Duration of checkout operations"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("create checkout_duration histogram: %w", err)
	}

	m.stockReservationsTotal, err = meter.Int64Counter(
		"stock_reservations_total",
		metric.WithDescription("Stock reservation outcomes"),
		metric.WithUnit("{reservation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create stock_reservations_total counter: %w", err)
	}

	m.couponRedemptionsTotal, err = meter.Int64Counter(
		"coupon_redemptions_total",
		metric.WithDescription("Coupon redemption outcomes"),
		metric.WithUnit("{redemption}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create coupon_redemptions_total counter: %w", err)
	}

	return m, nil
}

func (m *Metrics) RecordCheckout(ctx context.Context, success bool) {
	status := "success"
	if !success {
		status = "error"
	}
	m.checkoutsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("status", status),
	))
}

func (m *Metrics) RecordCheckoutDuration(ctx context.Context, durationSeconds float64) {
	m.checkoutDuration.Record(ctx, durationSeconds)
}

func (m *Metrics) RecordStockReservation(ctx context.Context, success bool) {
	status := "success"
	if !success {
		status = "insufficient"
	}
	m.stockReservationsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("status", status),
	))
}

func (m *Metrics) RecordCouponRedemption(ctx context.Context, success bool) {
	status := "success"
	if !success {
		status = "rejected"
	}
	m.couponRedemptionsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("status", status),
	))
}
