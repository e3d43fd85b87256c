package workflow

import (
	"time"

	"github.com/docuflow/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// ApprovalRuleCreatedEvent is raised when a new approval rule is created
type ApprovalRuleCreatedEvent struct {
	shared.BaseDomainEvent
	RuleID        uuid.UUID `json:"rule_id"`
	FlowType      FlowType  `json:"flow_type"`
	Name          string    `json:"name"`
	EffectiveFrom time.Time `json:"effective_from"`
}

// EventType returns the event type name
func (e *ApprovalRuleCreatedEvent) EventType() string {
	return "ApprovalRuleCreated"
}

// NewApprovalRuleCreatedEvent creates a new ApprovalRuleCreatedEvent
func NewApprovalRuleCreatedEvent(rule *ApprovalRule, occurredAt time.Time) *ApprovalRuleCreatedEvent {
	return &ApprovalRuleCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("ApprovalRuleCreated", "ApprovalRule", rule.ID, rule.TenantID, occurredAt),
		RuleID:          rule.ID,
		FlowType:        rule.FlowType,
		Name:            rule.Name,
		EffectiveFrom:   rule.EffectiveFrom,
	}
}

// ApprovalRuleDeactivatedEvent is raised when a rule is removed from candidate selection
type ApprovalRuleDeactivatedEvent struct {
	shared.BaseDomainEvent
	RuleID   uuid.UUID `json:"rule_id"`
	FlowType FlowType  `json:"flow_type"`
}

// EventType returns the event type name
func (e *ApprovalRuleDeactivatedEvent) EventType() string {
	return "ApprovalRuleDeactivated"
}

// NewApprovalRuleDeactivatedEvent creates a new ApprovalRuleDeactivatedEvent
func NewApprovalRuleDeactivatedEvent(rule *ApprovalRule, occurredAt time.Time) *ApprovalRuleDeactivatedEvent {
	return &ApprovalRuleDeactivatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("ApprovalRuleDeactivated", "ApprovalRule", rule.ID, rule.TenantID, occurredAt),
		RuleID:          rule.ID,
		FlowType:        rule.FlowType,
	}
}

// ApprovalInstanceCreatedEvent is raised when a new approval instance is created
type ApprovalInstanceCreatedEvent struct {
	shared.BaseDomainEvent
	InstanceID  uuid.UUID  `json:"instance_id"`
	FlowType    FlowType   `json:"flow_type"`
	TargetTable string     `json:"target_table"`
	TargetID    string     `json:"target_id"`
	RuleID      *uuid.UUID `json:"rule_id,omitempty"`
	StepCount   int        `json:"step_count"`
}

// EventType returns the event type name
func (e *ApprovalInstanceCreatedEvent) EventType() string {
	return "ApprovalInstanceCreated"
}

// NewApprovalInstanceCreatedEvent creates a new ApprovalInstanceCreatedEvent
func NewApprovalInstanceCreatedEvent(instance *ApprovalInstance, occurredAt time.Time) *ApprovalInstanceCreatedEvent {
	return &ApprovalInstanceCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("ApprovalInstanceCreated", "ApprovalInstance", instance.ID, instance.TenantID, occurredAt),
		InstanceID:      instance.ID,
		FlowType:        instance.FlowType,
		TargetTable:     instance.TargetTable,
		TargetID:        instance.TargetID,
		RuleID:          instance.RuleID,
		StepCount:       len(instance.Steps),
	}
}

// ApprovalStepPassedEvent is raised when an intermediate step is approved
type ApprovalStepPassedEvent struct {
	shared.BaseDomainEvent
	InstanceID  uuid.UUID `json:"instance_id"`
	ApprovedBy  uuid.UUID `json:"approved_by"`
	CurrentStep int       `json:"current_step"`
	StepCount   int       `json:"step_count"`
}

// EventType returns the event type name
func (e *ApprovalStepPassedEvent) EventType() string {
	return "ApprovalStepPassed"
}

// NewApprovalStepPassedEvent creates a new ApprovalStepPassedEvent
func NewApprovalStepPassedEvent(instance *ApprovalInstance, approvedBy uuid.UUID, occurredAt time.Time) *ApprovalStepPassedEvent {
	return &ApprovalStepPassedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("ApprovalStepPassed", "ApprovalInstance", instance.ID, instance.TenantID, occurredAt),
		InstanceID:      instance.ID,
		ApprovedBy:      approvedBy,
		CurrentStep:     instance.CurrentStep,
		StepCount:       len(instance.Steps),
	}
}

// ApprovalInstanceApprovedEvent is raised when the final step is approved
type ApprovalInstanceApprovedEvent struct {
	shared.BaseDomainEvent
	InstanceID  uuid.UUID `json:"instance_id"`
	TargetTable string    `json:"target_table"`
	TargetID    string    `json:"target_id"`
	ApprovedBy  uuid.UUID `json:"approved_by"`
}

// EventType returns the event type name
func (e *ApprovalInstanceApprovedEvent) EventType() string {
	return "ApprovalInstanceApproved"
}

// NewApprovalInstanceApprovedEvent creates a new ApprovalInstanceApprovedEvent
func NewApprovalInstanceApprovedEvent(instance *ApprovalInstance, occurredAt time.Time) *ApprovalInstanceApprovedEvent {
	var approvedBy uuid.UUID
	if instance.ApprovedBy != nil {
		approvedBy = *instance.ApprovedBy
	}
	return &ApprovalInstanceApprovedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("ApprovalInstanceApproved", "ApprovalInstance", instance.ID, instance.TenantID, occurredAt),
		InstanceID:      instance.ID,
		TargetTable:     instance.TargetTable,
		TargetID:        instance.TargetID,
		ApprovedBy:      approvedBy,
	}
}

// ApprovalInstanceRejectedEvent is raised when an instance is rejected
type ApprovalInstanceRejectedEvent struct {
	shared.BaseDomainEvent
	InstanceID  uuid.UUID `json:"instance_id"`
	TargetTable string    `json:"target_table"`
	TargetID    string    `json:"target_id"`
	RejectedBy  uuid.UUID `json:"rejected_by"`
	Reason      string    `json:"reason"`
}

// EventType returns the event type name
func (e *ApprovalInstanceRejectedEvent) EventType() string {
	return "ApprovalInstanceRejected"
}

// NewApprovalInstanceRejectedEvent creates a new ApprovalInstanceRejectedEvent
func NewApprovalInstanceRejectedEvent(instance *ApprovalInstance, occurredAt time.Time) *ApprovalInstanceRejectedEvent {
	var rejectedBy uuid.UUID
	if instance.RejectedBy != nil {
		rejectedBy = *instance.RejectedBy
	}
	return &ApprovalInstanceRejectedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("ApprovalInstanceRejected", "ApprovalInstance", instance.ID, instance.TenantID, occurredAt),
		InstanceID:      instance.ID,
		TargetTable:     instance.TargetTable,
		TargetID:        instance.TargetID,
		RejectedBy:      rejectedBy,
		Reason:          instance.RejectionReason,
	}
}

// ApprovalInstanceCancelledEvent is raised when a submission is withdrawn
type ApprovalInstanceCancelledEvent struct {
	shared.BaseDomainEvent
	InstanceID uuid.UUID `json:"instance_id"`
	Reason     string    `json:"reason"`
}

// EventType returns the event type name
func (e *ApprovalInstanceCancelledEvent) EventType() string {
	return "ApprovalInstanceCancelled"
}

// NewApprovalInstanceCancelledEvent creates a new ApprovalInstanceCancelledEvent
func NewApprovalInstanceCancelledEvent(instance *ApprovalInstance, occurredAt time.Time) *ApprovalInstanceCancelledEvent {
	return &ApprovalInstanceCancelledEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("ApprovalInstanceCancelled", "ApprovalInstance", instance.ID, instance.TenantID, occurredAt),
		InstanceID:      instance.ID,
		Reason:          instance.CancelReason,
	}
}
