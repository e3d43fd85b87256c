package workflow

import (
	"context"
	"time"

	"github.com/docuflow/backend/internal/domain/workflow"
	"github.com/google/uuid"
)

// CreateRuleRequest represents a request to create an approval rule
type CreateRuleRequest struct {
	FlowType      workflow.FlowType       `json:"flow_type" binding:"required"`
	Name          string                  `json:"name" binding:"required"`
	Conditions    workflow.RuleConditions `json:"conditions"`
	Steps         workflow.ApprovalSteps  `json:"steps" binding:"required"`
	EffectiveFrom time.Time               `json:"effective_from" binding:"required"`
	CreatedBy     uuid.UUID               `json:"-"` // Set from auth context, not from request body
}

// RuleService provides administration of approval rules. Rules are
// configuration data: the workflow engine only reads them.
type RuleService struct {
	rules workflow.RuleRepository
}

// NewRuleService creates a new RuleService
func NewRuleService(rules workflow.RuleRepository) *RuleService {
	return &RuleService{rules: rules}
}

// CreateRule creates a new approval rule
func (s *RuleService) CreateRule(ctx context.Context, tenantID uuid.UUID, req CreateRuleRequest, now time.Time) (*workflow.ApprovalRule, error) {
	rule, err := workflow.NewApprovalRule(
		tenantID,
		req.FlowType,
		req.Name,
		req.Conditions,
		req.Steps,
		req.EffectiveFrom,
		req.CreatedBy,
		now,
	)
	if err != nil {
		return nil, err
	}
	if err := s.rules.Save(ctx, rule); err != nil {
		return nil, err
	}
	return rule, nil
}

// DeactivateRule removes a rule from candidate selection. In-flight
// instances keep their snapshotted steps.
func (s *RuleService) DeactivateRule(ctx context.Context, tenantID, ruleID uuid.UUID, now time.Time) (*workflow.ApprovalRule, error) {
	rule, err := s.rules.FindByID(ctx, tenantID, ruleID)
	if err != nil {
		return nil, err
	}
	if err := rule.Deactivate(now); err != nil {
		return nil, err
	}
	if err := s.rules.Save(ctx, rule); err != nil {
		return nil, err
	}
	return rule, nil
}

// ListRules lists all rules for a tenant
func (s *RuleService) ListRules(ctx context.Context, tenantID uuid.UUID) ([]workflow.ApprovalRule, error) {
	return s.rules.FindAllForTenant(ctx, tenantID)
}
