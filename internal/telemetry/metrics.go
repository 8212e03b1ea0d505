package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds the counters recorded by the order, payment and refund
// services. The zero value is not usable; build it with NewMetrics.
type Metrics struct {
	ordersCreated      metric.Int64Counter
	inventoryConflicts metric.Int64Counter
	refundsProcessed   metric.Int64Counter
	refundedAmount     metric.Float64Counter
	paymentsRecorded   metric.Int64Counter
}

// NewMetrics creates the instruments on the global meter provider.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter(InstrumentationName)
	m := &Metrics{}
	var err error

	if m.ordersCreated, err = meter.Int64Counter("shop.orders.created",
		metric.WithDescription("Orders created")); err != nil {
		return nil, err
	}
	if m.inventoryConflicts, err = meter.Int64Counter("shop.inventory.conflicts",
		metric.WithDescription("Inventory commits rejected for insufficient stock")); err != nil {
		return nil, err
	}
	if m.refundsProcessed, err = meter.Int64Counter("shop.refunds.processed",
		metric.WithDescription("Refunds moved to processed")); err != nil {
		return nil, err
	}
	if m.refundedAmount, err = meter.Float64Counter("shop.refunds.amount",
		metric.WithDescription("Sum of processed refund amounts")); err != nil {
		return nil, err
	}
	if m.paymentsRecorded, err = meter.Int64Counter("shop.payments.recorded",
		metric.WithDescription("Payment transactions recorded")); err != nil {
		return nil, err
	}
	return m, nil
}

// MustMetrics is NewMetrics for wiring code and tests.
func MustMetrics() *Metrics {
	m, err := NewMetrics()
	if err != nil {
		panic(err)
	}
	return m
}

func (m *Metrics) OrderCreated(ctx context.Context, storeID string) {
	if m == nil {
		return
	}
	m.ordersCreated.Add(ctx, 1, metric.WithAttributes(attribute.String("store_id", storeID)))
}

func (m *Metrics) InventoryConflict(ctx context.Context, variantID string) {
	if m == nil {
		return
	}
	m.inventoryConflicts.Add(ctx, 1, metric.WithAttributes(attribute.String("variant_id", variantID)))
}

func (m *Metrics) RefundProcessed(ctx context.Context, amount float64) {
	if m == nil {
		return
	}
	m.refundsProcessed.Add(ctx, 1)
	m.refundedAmount.Add(ctx, amount)
}

func (m *Metrics) PaymentRecorded(ctx context.Context, status string) {
	if m == nil {
		return
	}
	m.paymentsRecorded.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status)))
}
