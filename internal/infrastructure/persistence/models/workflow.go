package models

import (
	"time"

	"github.com/docuflow/backend/internal/domain/shared"
	"github.com/docuflow/backend/internal/domain/workflow"
	"github.com/google/uuid"
)

// ApprovalRuleModel is the persistence model for the ApprovalRule aggregate root.
type ApprovalRuleModel struct {
	TenantAggregateModel
	FlowType      workflow.FlowType       `gorm:"type:varchar(30);not null;index:idx_approval_rules_tenant_flow,priority:2"`
	Name          string                  `gorm:"type:varchar(200);not null"`
	Conditions    workflow.RuleConditions `gorm:"type:jsonb;default:'{}'"`
	Steps         workflow.ApprovalSteps  `gorm:"type:jsonb;not null;default:'[]'"`
	IsActive      bool                    `gorm:"not null;default:true;index:idx_approval_rules_tenant_flow,priority:3"`
	EffectiveFrom time.Time               `gorm:"not null;index"`
}

// TableName returns the table name for GORM
func (ApprovalRuleModel) TableName() string {
	return "approval_rules"
}

// ToDomain converts the persistence model to a domain ApprovalRule
func (m *ApprovalRuleModel) ToDomain() *workflow.ApprovalRule {
	rule := &workflow.ApprovalRule{
		FlowType:      m.FlowType,
		Name:          m.Name,
		Conditions:    m.Conditions,
		Steps:         m.Steps,
		IsActive:      m.IsActive,
		EffectiveFrom: m.EffectiveFrom,
	}
	m.PopulateTenantAggregateRoot(&rule.TenantAggregateRoot)
	return rule
}

// FromDomain populates the persistence model from a domain ApprovalRule
func (m *ApprovalRuleModel) FromDomain(rule *workflow.ApprovalRule) {
	m.FromDomainTenantAggregateRoot(rule.TenantAggregateRoot)
	m.FlowType = rule.FlowType
	m.Name = rule.Name
	m.Conditions = rule.Conditions
	m.Steps = rule.Steps
	m.IsActive = rule.IsActive
	m.EffectiveFrom = rule.EffectiveFrom
}

// ApprovalRuleModelFromDomain creates a new persistence model from a domain ApprovalRule
func ApprovalRuleModelFromDomain(rule *workflow.ApprovalRule) *ApprovalRuleModel {
	m := &ApprovalRuleModel{}
	m.FromDomain(rule)
	return m
}

// ApprovalInstanceModel is the persistence model for the ApprovalInstance
// aggregate root. The at-most-one-open-instance-per-target invariant is
// enforced by a partial unique index on (tenant_id, target_table,
// target_id) over open statuses; GORM tags cannot express partial
// indexes, so it lives in the SQL migrations.
type ApprovalInstanceModel struct {
	TenantAggregateModel
	FlowType        workflow.FlowType       `gorm:"type:varchar(30);not null;index"`
	TargetTable     string                  `gorm:"type:varchar(100);not null;index:idx_approval_instances_target,priority:2"`
	TargetID        string                  `gorm:"type:varchar(100);not null;index:idx_approval_instances_target,priority:3"`
	RuleID          *uuid.UUID              `gorm:"type:uuid;index"`
	Status          workflow.InstanceStatus `gorm:"type:varchar(30);not null;index"`
	CurrentStep     int                     `gorm:"not null;default:1"`
	Steps           workflow.ApprovalSteps  `gorm:"type:jsonb;not null;default:'[]'"`
	ApprovedAt      *time.Time
	ApprovedBy      *uuid.UUID `gorm:"type:uuid"`
	ApprovalRemark  string     `gorm:"type:varchar(500)"`
	RejectedAt      *time.Time
	RejectedBy      *uuid.UUID `gorm:"type:uuid"`
	RejectionReason string     `gorm:"type:varchar(500)"`
	CancelledAt     *time.Time
	CancelledBy     *uuid.UUID `gorm:"type:uuid"`
	CancelReason    string     `gorm:"type:varchar(500)"`
}

// TableName returns the table name for GORM
func (ApprovalInstanceModel) TableName() string {
	return "approval_instances"
}

// ToDomain converts the persistence model to a domain ApprovalInstance
func (m *ApprovalInstanceModel) ToDomain() *workflow.ApprovalInstance {
	instance := &workflow.ApprovalInstance{
		FlowType:        m.FlowType,
		TargetTable:     m.TargetTable,
		TargetID:        m.TargetID,
		RuleID:          m.RuleID,
		Status:          m.Status,
		CurrentStep:     m.CurrentStep,
		Steps:           m.Steps,
		ApprovedAt:      m.ApprovedAt,
		ApprovedBy:      m.ApprovedBy,
		ApprovalRemark:  m.ApprovalRemark,
		RejectedAt:      m.RejectedAt,
		RejectedBy:      m.RejectedBy,
		RejectionReason: m.RejectionReason,
		CancelledAt:     m.CancelledAt,
		CancelledBy:     m.CancelledBy,
		CancelReason:    m.CancelReason,
	}
	m.PopulateTenantAggregateRoot(&instance.TenantAggregateRoot)
	return instance
}

// FromDomain populates the persistence model from a domain ApprovalInstance
func (m *ApprovalInstanceModel) FromDomain(instance *workflow.ApprovalInstance) {
	m.FromDomainTenantAggregateRoot(instance.TenantAggregateRoot)
	m.FlowType = instance.FlowType
	m.TargetTable = instance.TargetTable
	m.TargetID = instance.TargetID
	m.RuleID = instance.RuleID
	m.Status = instance.Status
	m.CurrentStep = instance.CurrentStep
	m.Steps = instance.Steps
	m.ApprovedAt = instance.ApprovedAt
	m.ApprovedBy = instance.ApprovedBy
	m.ApprovalRemark = instance.ApprovalRemark
	m.RejectedAt = instance.RejectedAt
	m.RejectedBy = instance.RejectedBy
	m.RejectionReason = instance.RejectionReason
	m.CancelledAt = instance.CancelledAt
	m.CancelledBy = instance.CancelledBy
	m.CancelReason = instance.CancelReason
}

// ApprovalInstanceModelFromDomain creates a new persistence model from a domain ApprovalInstance
func ApprovalInstanceModelFromDomain(instance *workflow.ApprovalInstance) *ApprovalInstanceModel {
	m := &ApprovalInstanceModel{}
	m.FromDomain(instance)
	return m
}

// ValidInstance checks a loaded model before handing it to the domain
func (m *ApprovalInstanceModel) ValidInstance() error {
	if !m.Status.IsValid() {
		return shared.NewDomainError("CORRUPT_INSTANCE", "Approval instance has an unknown status")
	}
	return nil
}
