package shared

import "context"

// EventPublisher publishes domain events raised by aggregates.
// Publishing happens after the aggregate state is persisted; delivery
// is best effort and never fails the business operation.
type EventPublisher interface {
	// Publish publishes one or more domain events
	Publish(ctx context.Context, events ...DomainEvent) error
}
