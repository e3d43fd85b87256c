package workflow

import (
	"fmt"
	"time"

	"github.com/docuflow/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// InstanceStatus represents the status of an approval instance
type InstanceStatus string

const (
	InstanceStatusPendingFirst InstanceStatus = "PENDING_FIRST_APPROVAL" // Awaiting an intermediate step
	InstanceStatusPendingFinal InstanceStatus = "PENDING_FINAL_APPROVAL" // Awaiting the last step
	InstanceStatusApproved     InstanceStatus = "APPROVED"
	InstanceStatusRejected     InstanceStatus = "REJECTED"
	InstanceStatusCancelled    InstanceStatus = "CANCELLED"
)

// IsValid checks if the status is a valid InstanceStatus
func (s InstanceStatus) IsValid() bool {
	switch s {
	case InstanceStatusPendingFirst, InstanceStatusPendingFinal,
		InstanceStatusApproved, InstanceStatusRejected, InstanceStatusCancelled:
		return true
	}
	return false
}

// String returns the string representation of InstanceStatus
func (s InstanceStatus) String() string {
	return string(s)
}

// IsOpen returns true if the instance still blocks new submissions of its target
func (s InstanceStatus) IsOpen() bool {
	return s == InstanceStatusPendingFirst || s == InstanceStatusPendingFinal
}

// IsTerminal returns true if the instance has reached a final state
func (s InstanceStatus) IsTerminal() bool {
	return s == InstanceStatusApproved || s == InstanceStatusRejected || s == InstanceStatusCancelled
}

// OpenStatuses returns the statuses counted as open.
// The store enforces at most one open instance per target through a partial
// unique index over exactly this set.
func OpenStatuses() []InstanceStatus {
	return []InstanceStatus{InstanceStatusPendingFirst, InstanceStatusPendingFinal}
}

// ApprovalInstance represents a live approval workflow bound to one
// business record. Steps are an immutable snapshot of the matched rule
// taken at creation time; RuleID is nil when the instance was created
// through the default fallback path.
type ApprovalInstance struct {
	shared.TenantAggregateRoot
	FlowType        FlowType       `json:"flow_type"`
	TargetTable     string         `json:"target_table"`
	TargetID        string         `json:"target_id"`
	RuleID          *uuid.UUID     `json:"rule_id"`
	Status          InstanceStatus `json:"status"`
	CurrentStep     int            `json:"current_step"` // 1-based index into Steps
	Steps           ApprovalSteps  `json:"steps"`
	ApprovedAt      *time.Time     `json:"approved_at"`
	ApprovedBy      *uuid.UUID     `json:"approved_by"`
	ApprovalRemark  string         `json:"approval_remark"`
	RejectedAt      *time.Time     `json:"rejected_at"`
	RejectedBy      *uuid.UUID     `json:"rejected_by"`
	RejectionReason string         `json:"rejection_reason"`
	CancelledAt     *time.Time     `json:"cancelled_at"`
	CancelledBy     *uuid.UUID     `json:"cancelled_by"`
	CancelReason    string         `json:"cancel_reason"`
}

// NewApprovalInstance creates a new approval instance with a snapshot of
// the given steps. ruleID is nil for the default fallback path.
func NewApprovalInstance(
	tenantID uuid.UUID,
	flowType FlowType,
	targetTable string,
	targetID string,
	ruleID *uuid.UUID,
	steps ApprovalSteps,
	createdBy uuid.UUID,
	now time.Time,
) (*ApprovalInstance, error) {
	if !flowType.IsValid() {
		return nil, shared.NewDomainError("INVALID_FLOW_TYPE", "Flow type is not valid")
	}
	if targetTable == "" {
		return nil, shared.NewDomainError("INVALID_TARGET", "Target table cannot be empty")
	}
	if targetID == "" {
		return nil, shared.NewDomainError("INVALID_TARGET", "Target ID cannot be empty")
	}
	if createdBy == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_USER", "Creator user ID cannot be empty")
	}
	if err := steps.Validate(); err != nil {
		return nil, err
	}

	status := InstanceStatusPendingFirst
	if len(steps) == 1 {
		status = InstanceStatusPendingFinal
	}

	instance := &ApprovalInstance{
		TenantAggregateRoot: shared.NewTenantAggregateRootWithCreator(tenantID, createdBy, now),
		FlowType:            flowType,
		TargetTable:         targetTable,
		TargetID:            targetID,
		RuleID:              ruleID,
		Status:              status,
		CurrentStep:         1,
		Steps:               steps.Clone(),
	}

	instance.AddDomainEvent(NewApprovalInstanceCreatedEvent(instance, now))

	return instance, nil
}

// CurrentApproverGroup returns the approver group for the current step
func (i *ApprovalInstance) CurrentApproverGroup() string {
	if i.CurrentStep < 1 || i.CurrentStep > len(i.Steps) {
		return ""
	}
	return i.Steps[i.CurrentStep-1].ApproverGroup
}

// IsOpen returns true if the instance has not reached a terminal state
func (i *ApprovalInstance) IsOpen() bool {
	return i.Status.IsOpen()
}

// Approve advances the instance one step, or completes it when the
// current step is the last one.
func (i *ApprovalInstance) Approve(approvedBy uuid.UUID, remark string, now time.Time) error {
	if !i.Status.IsOpen() {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot approve instance in %s status", i.Status))
	}
	if approvedBy == uuid.Nil {
		return shared.NewDomainError("INVALID_USER", "Approver user ID cannot be empty")
	}

	if i.CurrentStep >= len(i.Steps) {
		i.Status = InstanceStatusApproved
		i.ApprovedAt = &now
		i.ApprovedBy = &approvedBy
		i.ApprovalRemark = remark
		i.UpdatedAt = now
		i.IncrementVersion()

		i.AddDomainEvent(NewApprovalInstanceApprovedEvent(i, now))
		return nil
	}

	i.CurrentStep++
	if i.CurrentStep >= len(i.Steps) {
		i.Status = InstanceStatusPendingFinal
	}
	i.UpdatedAt = now
	i.IncrementVersion()

	i.AddDomainEvent(NewApprovalStepPassedEvent(i, approvedBy, now))
	return nil
}

// Reject terminates the instance with a rejection
func (i *ApprovalInstance) Reject(rejectedBy uuid.UUID, reason string, now time.Time) error {
	if !i.Status.IsOpen() {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot reject instance in %s status", i.Status))
	}
	if rejectedBy == uuid.Nil {
		return shared.NewDomainError("INVALID_USER", "Rejector user ID cannot be empty")
	}
	if reason == "" {
		return shared.NewDomainError("INVALID_REASON", "Rejection reason is required")
	}

	i.Status = InstanceStatusRejected
	i.RejectedAt = &now
	i.RejectedBy = &rejectedBy
	i.RejectionReason = reason
	i.UpdatedAt = now
	i.IncrementVersion()

	i.AddDomainEvent(NewApprovalInstanceRejectedEvent(i, now))
	return nil
}

// Cancel withdraws the submission, freeing the target for resubmission
func (i *ApprovalInstance) Cancel(cancelledBy uuid.UUID, reason string, now time.Time) error {
	if !i.Status.IsOpen() {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot cancel instance in %s status", i.Status))
	}
	if cancelledBy == uuid.Nil {
		return shared.NewDomainError("INVALID_USER", "Canceller user ID cannot be empty")
	}
	if reason == "" {
		return shared.NewDomainError("INVALID_REASON", "Cancel reason is required")
	}

	i.Status = InstanceStatusCancelled
	i.CancelledAt = &now
	i.CancelledBy = &cancelledBy
	i.CancelReason = reason
	i.UpdatedAt = now
	i.IncrementVersion()

	i.AddDomainEvent(NewApprovalInstanceCancelledEvent(i, now))
	return nil
}
