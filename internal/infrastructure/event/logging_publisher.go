// Package event provides infrastructure for delivering domain events
// raised by aggregates.
package event

import (
	"context"

	"github.com/docuflow/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// LogPublisher writes domain events to the structured log. It stands in
// for a broker-backed publisher in deployments that do not consume
// events downstream.
type LogPublisher struct {
	logger *zap.Logger
}

// NewLogPublisher creates a new LogPublisher
func NewLogPublisher(logger *zap.Logger) *LogPublisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogPublisher{logger: logger}
}

// Publish logs each event at info level
func (p *LogPublisher) Publish(_ context.Context, events ...shared.DomainEvent) error {
	for _, e := range events {
		p.logger.Info("domain event",
			zap.String("event_id", e.EventID().String()),
			zap.String("event_type", e.EventType()),
			zap.String("aggregate_type", e.AggregateType()),
			zap.String("aggregate_id", e.AggregateID().String()),
			zap.String("tenant_id", e.TenantID().String()),
			zap.Time("occurred_at", e.OccurredAt()),
		)
	}
	return nil
}
