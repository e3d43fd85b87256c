package workflow

import (
	"context"
	"errors"
	"time"

	"github.com/docuflow/backend/internal/domain/shared"
	"github.com/docuflow/backend/internal/domain/workflow"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// FallbackPolicy decides what happens when no approval rule matches a
// submission. The policy is explicit configuration, not an implicit
// default baked into the engine.
type FallbackPolicy string

const (
	// FallbackDefaultStep creates a null-rule instance with a single
	// default approval step
	FallbackDefaultStep FallbackPolicy = "DEFAULT_STEP"
	// FallbackReject fails the submission with ErrNoMatchingRule
	FallbackReject FallbackPolicy = "REJECT"
)

// IsValid checks if the policy is a valid FallbackPolicy
func (p FallbackPolicy) IsValid() bool {
	return p == FallbackDefaultStep || p == FallbackReject
}

// InstanceServiceConfig holds the fallback configuration for instance creation
type InstanceServiceConfig struct {
	Fallback FallbackPolicy
	// DefaultStep is the single step used by FallbackDefaultStep
	DefaultStep workflow.ApprovalStep
}

// DefaultInstanceServiceConfig returns the default fallback configuration
func DefaultInstanceServiceConfig() InstanceServiceConfig {
	return InstanceServiceConfig{
		Fallback: FallbackDefaultStep,
		DefaultStep: workflow.ApprovalStep{
			Name:          "Default approval",
			ApproverGroup: "FINANCE_MANAGER",
		},
	}
}

// CreateInstanceCommand carries everything the caller supplies for an
// idempotent instance creation: the target reference, the payload used
// for rule matching, the acting user and the current time.
type CreateInstanceCommand struct {
	TenantID    uuid.UUID
	FlowType    workflow.FlowType
	TargetTable string
	TargetID    string
	Payload     workflow.Payload
	CreatedBy   uuid.UUID
	Now         time.Time
}

// InstanceService creates and progresses approval instances. Creation is
// idempotent per target: concurrent submissions of the same record yield
// exactly one open instance, with the store's uniqueness constraint as
// the final authority.
type InstanceService struct {
	instances workflow.InstanceRepository
	matcher   *workflow.RuleMatcher
	config    InstanceServiceConfig
	events    shared.EventPublisher
	logger    *zap.Logger
}

// NewInstanceService creates a new InstanceService. The event publisher
// is optional; pass nil to disable event delivery.
func NewInstanceService(
	instances workflow.InstanceRepository,
	matcher *workflow.RuleMatcher,
	config InstanceServiceConfig,
	events shared.EventPublisher,
	logger *zap.Logger,
) *InstanceService {
	if !config.Fallback.IsValid() {
		config = DefaultInstanceServiceConfig()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InstanceService{
		instances: instances,
		matcher:   matcher,
		config:    config,
		events:    events,
		logger:    logger,
	}
}

// publishEvents publishes pending aggregate events after a successful
// write. Failures are logged, not propagated.
func (s *InstanceService) publishEvents(ctx context.Context, instance *workflow.ApprovalInstance) {
	if s.events == nil {
		return
	}
	events := instance.GetDomainEvents()
	if len(events) == 0 {
		return
	}
	if err := s.events.Publish(ctx, events...); err != nil {
		s.logger.Warn("Failed to publish domain events",
			zap.String("instance_id", instance.ID.String()),
			zap.Error(err),
		)
	}
	instance.ClearDomainEvents()
}

// CreateOrGetInstance returns the open approval instance for the target,
// creating one when none exists. The sequence is check, create, reconcile:
// the optimistic pre-check keeps the common path cheap, and a uniqueness
// violation on insert means a concurrent caller won the race, in which
// case the winner's committed row is re-read and returned.
func (s *InstanceService) CreateOrGetInstance(ctx context.Context, cmd CreateInstanceCommand) (*workflow.ApprovalInstance, error) {
	existing, err := s.instances.FindOpenByTarget(ctx, cmd.TenantID, cmd.TargetTable, cmd.TargetID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, shared.ErrNotFound) {
		return nil, err
	}

	rule, err := s.matcher.SelectRule(ctx, cmd.TenantID, cmd.FlowType, cmd.Payload, cmd.Now)
	if err != nil {
		return nil, err
	}

	var ruleID *uuid.UUID
	var steps workflow.ApprovalSteps
	switch {
	case rule != nil:
		id := rule.ID
		ruleID = &id
		steps = rule.Steps
	case s.config.Fallback == FallbackDefaultStep:
		steps = workflow.ApprovalSteps{s.config.DefaultStep}
	default:
		return nil, shared.ErrNoMatchingRule
	}

	instance, err := workflow.NewApprovalInstance(
		cmd.TenantID,
		cmd.FlowType,
		cmd.TargetTable,
		cmd.TargetID,
		ruleID,
		steps,
		cmd.CreatedBy,
		cmd.Now,
	)
	if err != nil {
		return nil, err
	}

	if err := s.instances.Create(ctx, instance); err != nil {
		if errors.Is(err, shared.ErrAlreadyExists) {
			// A concurrent caller committed between the pre-check and the
			// insert. The winner's row is visible once the conflict is
			// reported, so this re-read must succeed.
			s.logger.Debug("lost instance creation race, returning winner",
				zap.String("tenant_id", cmd.TenantID.String()),
				zap.String("target_table", cmd.TargetTable),
				zap.String("target_id", cmd.TargetID),
			)
			return s.instances.FindOpenByTarget(ctx, cmd.TenantID, cmd.TargetTable, cmd.TargetID)
		}
		return nil, err
	}

	s.logger.Info("approval instance created",
		zap.String("tenant_id", cmd.TenantID.String()),
		zap.String("instance_id", instance.ID.String()),
		zap.String("flow_type", cmd.FlowType.String()),
		zap.String("target_table", cmd.TargetTable),
		zap.String("target_id", cmd.TargetID),
		zap.Int("steps", len(instance.Steps)),
	)
	s.publishEvents(ctx, instance)

	return instance, nil
}

// GetInstance returns a single instance by ID
func (s *InstanceService) GetInstance(ctx context.Context, tenantID, instanceID uuid.UUID) (*workflow.ApprovalInstance, error) {
	return s.instances.FindByID(ctx, tenantID, instanceID)
}

// PendingForGroup lists open instances whose current step waits on the
// given approver group
func (s *InstanceService) PendingForGroup(ctx context.Context, tenantID uuid.UUID, approverGroup string) ([]workflow.ApprovalInstance, error) {
	return s.instances.FindPendingForGroup(ctx, tenantID, approverGroup)
}

// Approve advances the instance one step on behalf of the acting user
func (s *InstanceService) Approve(ctx context.Context, tenantID, instanceID, approvedBy uuid.UUID, remark string, now time.Time) (*workflow.ApprovalInstance, error) {
	instance, err := s.instances.FindByID(ctx, tenantID, instanceID)
	if err != nil {
		return nil, err
	}
	if err := instance.Approve(approvedBy, remark, now); err != nil {
		return nil, err
	}
	if err := s.instances.SaveWithLock(ctx, instance); err != nil {
		return nil, err
	}
	s.publishEvents(ctx, instance)
	return instance, nil
}

// Reject terminates the instance with a rejection
func (s *InstanceService) Reject(ctx context.Context, tenantID, instanceID, rejectedBy uuid.UUID, reason string, now time.Time) (*workflow.ApprovalInstance, error) {
	instance, err := s.instances.FindByID(ctx, tenantID, instanceID)
	if err != nil {
		return nil, err
	}
	if err := instance.Reject(rejectedBy, reason, now); err != nil {
		return nil, err
	}
	if err := s.instances.SaveWithLock(ctx, instance); err != nil {
		return nil, err
	}
	s.publishEvents(ctx, instance)
	return instance, nil
}

// Cancel withdraws an open submission
func (s *InstanceService) Cancel(ctx context.Context, tenantID, instanceID, cancelledBy uuid.UUID, reason string, now time.Time) (*workflow.ApprovalInstance, error) {
	instance, err := s.instances.FindByID(ctx, tenantID, instanceID)
	if err != nil {
		return nil, err
	}
	if err := instance.Cancel(cancelledBy, reason, now); err != nil {
		return nil, err
	}
	if err := s.instances.SaveWithLock(ctx, instance); err != nil {
		return nil, err
	}
	s.publishEvents(ctx, instance)
	return instance, nil
}
