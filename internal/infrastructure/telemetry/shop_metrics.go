package telemetry

import (
	"context"
	"errors"
	"time"

	"github.com/shopcore/backend/internal/domain/security"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MeterName is the instrumentation scope of the shop's own metrics
const MeterName = "shopcore-backend"

// Metric attribute keys
const (
	AttrOutcome      = attribute.Key("outcome")
	AttrIdentityKind = attribute.Key("identity.kind")
	AttrQuotaScope   = attribute.Key("quota.scope")
)

// ConfirmationDurationBuckets cover the confirmation transaction including
// row lock waits, in seconds
var ConfirmationDurationBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5}

// ShopMetrics records order confirmation and abuse-protection metrics.
//
//	orders.confirmations          counter, outcome
//	orders.confirmation.duration  histogram (s), outcome
//	inventory.units_reserved      counter
//	security.blocks               counter, identity.kind
//	security.rate_limited         counter, quota.scope
type ShopMetrics struct {
	confirmations        metric.Int64Counter
	confirmationDuration metric.Float64Histogram
	unitsReserved        metric.Int64Counter
	blocks               metric.Int64Counter
	rateLimited          metric.Int64Counter
}

// NewShopMetrics registers the instruments on meter
func NewShopMetrics(meter metric.Meter) (*ShopMetrics, error) {
	counter := func(name, desc, unit string) (metric.Int64Counter, error) {
		return meter.Int64Counter(name, metric.WithDescription(desc), metric.WithUnit(unit))
	}

	var m ShopMetrics
	var errs [5]error
	m.confirmations, errs[0] = counter("orders.confirmations", "Order confirmation attempts by outcome", "{attempt}")
	m.confirmationDuration, errs[1] = meter.Float64Histogram("orders.confirmation.duration",
		metric.WithDescription("Time spent in the confirmation transaction"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(ConfirmationDurationBuckets...),
	)
	m.unitsReserved, errs[2] = counter("inventory.units_reserved", "Stock units reserved by confirmed orders", "{unit}")
	m.blocks, errs[3] = counter("security.blocks", "Identities temporarily blocked", "{block}")
	m.rateLimited, errs[4] = counter("security.rate_limited", "Requests rejected by a quota", "{request}")

	if err := errors.Join(errs[:]...); err != nil {
		return nil, err
	}
	return &m, nil
}

// RecordConfirmation counts one confirmation attempt and its duration
func (m *ShopMetrics) RecordConfirmation(ctx context.Context, outcome string, duration time.Duration) {
	attrs := metric.WithAttributes(AttrOutcome.String(outcome))
	m.confirmations.Add(ctx, 1, attrs)
	m.confirmationDuration.Record(ctx, duration.Seconds(), attrs)
}

// RecordStockReserved counts units taken from stock
func (m *ShopMetrics) RecordStockReserved(ctx context.Context, units int) {
	if units > 0 {
		m.unitsReserved.Add(ctx, int64(units))
	}
}

// RecordBlock counts a new temporary block
func (m *ShopMetrics) RecordBlock(ctx context.Context, kind security.IdentityKind) {
	m.blocks.Add(ctx, 1, metric.WithAttributes(AttrIdentityKind.String(string(kind))))
}

// RecordRateLimited counts a quota rejection
func (m *ShopMetrics) RecordRateLimited(ctx context.Context, scope string) {
	m.rateLimited.Add(ctx, 1, metric.WithAttributes(AttrQuotaScope.String(scope)))
}
