package workflow

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/docuflow/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Payload carries the business-record attributes a rule is evaluated against.
// The caller extracts these from the document being submitted.
type Payload struct {
	Amount   decimal.Decimal `json:"amount"`
	Category string          `json:"category,omitempty"`
}

// RuleConditions is the predicate attached to an approval rule.
// Empty conditions match every payload, which makes the rule a catch-all.
type RuleConditions struct {
	AmountMin *decimal.Decimal `json:"amount_min,omitempty"`
	AmountMax *decimal.Decimal `json:"amount_max,omitempty"`
	Category  string           `json:"category,omitempty"`
}

// IsEmpty returns true if no condition is set
func (c RuleConditions) IsEmpty() bool {
	return c.AmountMin == nil && c.AmountMax == nil && c.Category == ""
}

// Matches evaluates the conditions against a payload
func (c RuleConditions) Matches(p Payload) bool {
	if c.AmountMin != nil && p.Amount.LessThan(*c.AmountMin) {
		return false
	}
	if c.AmountMax != nil && p.Amount.GreaterThan(*c.AmountMax) {
		return false
	}
	if c.Category != "" && c.Category != p.Category {
		return false
	}
	return true
}

// Validate checks the conditions are internally consistent
func (c RuleConditions) Validate() error {
	if c.AmountMin != nil && c.AmountMax != nil && c.AmountMin.GreaterThan(*c.AmountMax) {
		return shared.NewDomainError("INVALID_CONDITIONS", "Amount lower bound exceeds upper bound")
	}
	return nil
}

// Value implements driver.Valuer interface for GORM to store as JSONB
func (c RuleConditions) Value() (driver.Value, error) {
	return json.Marshal(c)
}

// Scan implements sql.Scanner interface for GORM to read from JSONB
func (c *RuleConditions) Scan(value interface{}) error {
	if value == nil {
		*c = RuleConditions{}
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return fmt.Errorf("failed to scan RuleConditions: expected []byte, got %T", value)
	}
	return json.Unmarshal(bytes, c)
}

// ApprovalStep is one stop in an approval chain, referencing the
// approver group responsible for it.
type ApprovalStep struct {
	Name          string `json:"name"`
	ApproverGroup string `json:"approver_group"`
}

// ApprovalSteps is an ordered approval chain stored as JSONB
type ApprovalSteps []ApprovalStep

// Clone returns an independent copy of the steps.
// Instances snapshot rule steps at creation time; later rule edits must
// never reach an in-flight instance.
func (s ApprovalSteps) Clone() ApprovalSteps {
	if s == nil {
		return nil
	}
	out := make(ApprovalSteps, len(s))
	copy(out, s)
	return out
}

// Validate checks every step references an approver group
func (s ApprovalSteps) Validate() error {
	if len(s) == 0 {
		return shared.NewDomainError("INVALID_STEPS", "Approval steps cannot be empty")
	}
	for i, step := range s {
		if step.ApproverGroup == "" {
			return shared.NewDomainError("INVALID_STEPS", fmt.Sprintf("Step %d has no approver group", i+1))
		}
	}
	return nil
}

// Value implements driver.Valuer interface for GORM to store as JSONB
func (s ApprovalSteps) Value() (driver.Value, error) {
	if s == nil {
		return "[]", nil
	}
	return json.Marshal(s)
}

// Scan implements sql.Scanner interface for GORM to read from JSONB
func (s *ApprovalSteps) Scan(value interface{}) error {
	if value == nil {
		*s = ApprovalSteps{}
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return fmt.Errorf("failed to scan ApprovalSteps: expected []byte, got %T", value)
	}
	return json.Unmarshal(bytes, s)
}

// ApprovalRule represents an approval rule aggregate root.
// Rules are configuration data maintained by administrators; the workflow
// engine only reads them. Candidate rules are ordered by effective_from
// descending then created_at descending, so newer configuration shadows
// older configuration for the same effective date. Catch-all rules should
// carry an earlier effective_from or created_at than specific rules.
type ApprovalRule struct {
	shared.TenantAggregateRoot
	FlowType      FlowType       `json:"flow_type"`
	Name          string         `json:"name"`
	Conditions    RuleConditions `json:"conditions"`
	Steps         ApprovalSteps  `json:"steps"`
	IsActive      bool           `json:"is_active"`
	EffectiveFrom time.Time      `json:"effective_from"`
}

// NewApprovalRule creates a new approval rule
func NewApprovalRule(
	tenantID uuid.UUID,
	flowType FlowType,
	name string,
	conditions RuleConditions,
	steps ApprovalSteps,
	effectiveFrom time.Time,
	createdBy uuid.UUID,
	now time.Time,
) (*ApprovalRule, error) {
	if !flowType.IsValid() {
		return nil, shared.NewDomainError("INVALID_FLOW_TYPE", "Flow type is not valid")
	}
	if name == "" {
		return nil, shared.NewDomainError("INVALID_NAME", "Rule name cannot be empty")
	}
	if len(name) > 200 {
		return nil, shared.NewDomainError("INVALID_NAME", "Rule name cannot exceed 200 characters")
	}
	if err := conditions.Validate(); err != nil {
		return nil, err
	}
	if err := steps.Validate(); err != nil {
		return nil, err
	}

	rule := &ApprovalRule{
		TenantAggregateRoot: shared.NewTenantAggregateRootWithCreator(tenantID, createdBy, now),
		FlowType:            flowType,
		Name:                name,
		Conditions:          conditions,
		Steps:               steps,
		IsActive:            true,
		EffectiveFrom:       effectiveFrom,
	}

	rule.AddDomainEvent(NewApprovalRuleCreatedEvent(rule, now))

	return rule, nil
}

// Deactivate removes the rule from candidate selection.
// In-flight instances keep their snapshotted steps.
func (r *ApprovalRule) Deactivate(now time.Time) error {
	if !r.IsActive {
		return shared.NewDomainError("INVALID_STATE", "Rule is already inactive")
	}
	r.IsActive = false
	r.UpdatedAt = now

	r.AddDomainEvent(NewApprovalRuleDeactivatedEvent(r, now))

	return nil
}

// IsEffectiveAt returns true if the rule is active and effective at the given time
func (r *ApprovalRule) IsEffectiveAt(at time.Time) bool {
	return r.IsActive && !r.EffectiveFrom.After(at)
}
