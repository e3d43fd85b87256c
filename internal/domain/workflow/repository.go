package workflow

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// RuleRepository defines the persistence interface for approval rules
type RuleRepository interface {
	// Save creates or updates a rule
	Save(ctx context.Context, rule *ApprovalRule) error

	// FindByID finds a rule by ID for a tenant
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*ApprovalRule, error)

	// FindCandidates returns the active rules for a flow type whose
	// effective_from is not after the given time, ordered by
	// effective_from descending then created_at descending.
	FindCandidates(ctx context.Context, tenantID uuid.UUID, flowType FlowType, at time.Time) ([]ApprovalRule, error)

	// FindAllForTenant lists all rules for a tenant
	FindAllForTenant(ctx context.Context, tenantID uuid.UUID) ([]ApprovalRule, error)
}

// InstanceRepository defines the persistence interface for approval instances
type InstanceRepository interface {
	// Create inserts a new instance. When another caller already holds the
	// open slot for the same target, the store's uniqueness constraint
	// fires and Create returns shared.ErrAlreadyExists.
	Create(ctx context.Context, instance *ApprovalInstance) error

	// FindByID finds an instance by ID for a tenant
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*ApprovalInstance, error)

	// FindOpenByTarget returns the open instance for a target, or
	// shared.ErrNotFound when the target has no open instance.
	FindOpenByTarget(ctx context.Context, tenantID uuid.UUID, targetTable, targetID string) (*ApprovalInstance, error)

	// SaveWithLock persists a mutated instance with optimistic locking
	SaveWithLock(ctx context.Context, instance *ApprovalInstance) error

	// FindPendingForGroup lists open instances whose current step belongs
	// to the given approver group
	FindPendingForGroup(ctx context.Context, tenantID uuid.UUID, approverGroup string) ([]ApprovalInstance, error)
}
