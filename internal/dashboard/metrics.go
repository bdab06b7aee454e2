package dashboard

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "gitlab.com/yelinaung/trackify/internal/dashboard"

// Mutation operations.
const (
	OpCreate = "create"
	OpUpdate = "update"
	OpDelete = "delete"
)

// Mutation outcomes.
const (
	OutcomeOK       = "ok"
	OutcomeInvalid  = "invalid"
	OutcomeRejected = "rejected"
)

// Metrics records expense mutations.
type Metrics struct {
	mutations metric.Int64Counter
}

// NewMetrics registers the instruments on meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	c, err := meter.Int64Counter("trackify.expense.mutations",
		metric.WithDescription("Expense create, update and delete attempts"),
		metric.WithUnit("{mutation}"))
	if err != nil {
		return nil, err
	}
	return &Metrics{mutations: c}, nil
}

// DefaultMetrics uses the global meter provider.
func DefaultMetrics() *Metrics {
	m, err := NewMetrics(otel.Meter(meterName))
	if err != nil {
		return nil
	}
	return m
}

func (m *Metrics) mutation(ctx context.Context, op, outcome string) {
	if m == nil {
		return
	}
	m.mutations.Add(ctx, 1, metric.WithAttributes(
		attribute.String("op", op),
		attribute.String("outcome", outcome),
	))
}
