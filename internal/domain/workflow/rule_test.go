package workflow

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decimalPtr(f float64) *decimal.Decimal {
	d := decimal.NewFromFloat(f)
	return &d
}

func TestRuleConditionsMatches(t *testing.T) {
	t.Run("empty conditions match everything", func(t *testing.T) {
		c := RuleConditions{}
		assert.True(t, c.IsEmpty())
		assert.True(t, c.Matches(Payload{Amount: decimal.NewFromInt(0)}))
		assert.True(t, c.Matches(Payload{Amount: decimal.NewFromInt(1000000), Category: "travel"}))
	})

	t.Run("amount bounds are inclusive", func(t *testing.T) {
		c := RuleConditions{AmountMin: decimalPtr(100), AmountMax: decimalPtr(500)}

		assert.True(t, c.Matches(Payload{Amount: decimal.NewFromInt(100)}))
		assert.True(t, c.Matches(Payload{Amount: decimal.NewFromInt(500)}))
		assert.True(t, c.Matches(Payload{Amount: decimal.NewFromInt(250)}))
		assert.False(t, c.Matches(Payload{Amount: decimal.NewFromFloat(99.99)}))
		assert.False(t, c.Matches(Payload{Amount: decimal.NewFromFloat(500.01)}))
	})

	t.Run("category must match exactly when set", func(t *testing.T) {
		c := RuleConditions{Category: "travel"}

		assert.True(t, c.Matches(Payload{Amount: decimal.NewFromInt(10), Category: "travel"}))
		assert.False(t, c.Matches(Payload{Amount: decimal.NewFromInt(10), Category: "office"}))
		assert.False(t, c.Matches(Payload{Amount: decimal.NewFromInt(10)}))
	})

	t.Run("all set conditions must hold", func(t *testing.T) {
		c := RuleConditions{AmountMin: decimalPtr(100), Category: "travel"}

		assert.True(t, c.Matches(Payload{Amount: decimal.NewFromInt(200), Category: "travel"}))
		assert.False(t, c.Matches(Payload{Amount: decimal.NewFromInt(50), Category: "travel"}))
		assert.False(t, c.Matches(Payload{Amount: decimal.NewFromInt(200), Category: "office"}))
	})
}

func TestRuleConditionsValidate(t *testing.T) {
	t.Run("accepts empty conditions", func(t *testing.T) {
		assert.NoError(t, RuleConditions{}.Validate())
	})

	t.Run("rejects inverted amount bounds", func(t *testing.T) {
		c := RuleConditions{AmountMin: decimalPtr(500), AmountMax: decimalPtr(100)}
		err := c.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "lower bound exceeds upper bound")
	})

	t.Run("accepts equal bounds", func(t *testing.T) {
		c := RuleConditions{AmountMin: decimalPtr(100), AmountMax: decimalPtr(100)}
		assert.NoError(t, c.Validate())
	})
}

func TestApprovalStepsClone(t *testing.T) {
	steps := ApprovalSteps{
		{Name: "Manager review", ApproverGroup: "DEPT_MANAGER"},
		{Name: "Finance review", ApproverGroup: "FINANCE_MANAGER"},
	}

	cloned := steps.Clone()
	require.Equal(t, steps, cloned)

	cloned[0].ApproverGroup = "CHANGED"
	assert.Equal(t, "DEPT_MANAGER", steps[0].ApproverGroup)

	assert.Nil(t, ApprovalSteps(nil).Clone())
}

func TestApprovalStepsValidate(t *testing.T) {
	t.Run("rejects empty chain", func(t *testing.T) {
		err := ApprovalSteps{}.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "cannot be empty")
	})

	t.Run("rejects step without approver group", func(t *testing.T) {
		err := ApprovalSteps{{Name: "Review"}}.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no approver group")
	})

	t.Run("accepts valid chain", func(t *testing.T) {
		err := ApprovalSteps{{Name: "Review", ApproverGroup: "FINANCE_MANAGER"}}.Validate()
		assert.NoError(t, err)
	})
}

func TestNewApprovalRule(t *testing.T) {
	tenantID := uuid.New()
	createdBy := uuid.New()
	now := time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)
	steps := ApprovalSteps{{Name: "Finance review", ApproverGroup: "FINANCE_MANAGER"}}

	t.Run("creates active rule with valid inputs", func(t *testing.T) {
		effectiveFrom := now.AddDate(0, -1, 0)
		rule, err := NewApprovalRule(tenantID, FlowTypeExpense, "Standard expense", RuleConditions{}, steps, effectiveFrom, createdBy, now)
		require.NoError(t, err)
		require.NotNil(t, rule)

		assert.Equal(t, tenantID, rule.TenantID)
		assert.Equal(t, FlowTypeExpense, rule.FlowType)
		assert.True(t, rule.IsActive)
		assert.Equal(t, effectiveFrom, rule.EffectiveFrom)
		assert.NotEmpty(t, rule.ID)
		assert.Equal(t, 1, rule.GetVersion())
	})

	t.Run("publishes created event", func(t *testing.T) {
		rule, err := NewApprovalRule(tenantID, FlowTypeExpense, "Standard expense", RuleConditions{}, steps, now, createdBy, now)
		require.NoError(t, err)

		events := rule.GetDomainEvents()
		require.Len(t, events, 1)
		_, ok := events[0].(*ApprovalRuleCreatedEvent)
		assert.True(t, ok)
	})

	t.Run("fails with invalid flow type", func(t *testing.T) {
		_, err := NewApprovalRule(tenantID, FlowType("BOGUS"), "Rule", RuleConditions{}, steps, now, createdBy, now)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "Flow type")
	})

	t.Run("fails with empty name", func(t *testing.T) {
		_, err := NewApprovalRule(tenantID, FlowTypeExpense, "", RuleConditions{}, steps, now, createdBy, now)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "name cannot be empty")
	})

	t.Run("fails with name too long", func(t *testing.T) {
		_, err := NewApprovalRule(tenantID, FlowTypeExpense, strings.Repeat("x", 201), RuleConditions{}, steps, now, createdBy, now)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "cannot exceed 200 characters")
	})

	t.Run("fails with inconsistent conditions", func(t *testing.T) {
		bad := RuleConditions{AmountMin: decimalPtr(10), AmountMax: decimalPtr(1)}
		_, err := NewApprovalRule(tenantID, FlowTypeExpense, "Rule", bad, steps, now, createdBy, now)
		require.Error(t, err)
	})

	t.Run("fails with empty steps", func(t *testing.T) {
		_, err := NewApprovalRule(tenantID, FlowTypeExpense, "Rule", RuleConditions{}, ApprovalSteps{}, now, createdBy, now)
		require.Error(t, err)
	})
}

func TestApprovalRuleDeactivate(t *testing.T) {
	tenantID := uuid.New()
	now := time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)
	steps := ApprovalSteps{{Name: "Review", ApproverGroup: "FINANCE_MANAGER"}}

	rule, err := NewApprovalRule(tenantID, FlowTypeInvoice, "Rule", RuleConditions{}, steps, now, uuid.New(), now)
	require.NoError(t, err)

	later := now.Add(time.Hour)
	require.NoError(t, rule.Deactivate(later))
	assert.False(t, rule.IsActive)
	assert.Equal(t, later, rule.UpdatedAt)

	err = rule.Deactivate(later)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already inactive")
}

func TestApprovalRuleIsEffectiveAt(t *testing.T) {
	tenantID := uuid.New()
	now := time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)
	steps := ApprovalSteps{{Name: "Review", ApproverGroup: "FINANCE_MANAGER"}}

	rule, err := NewApprovalRule(tenantID, FlowTypeInvoice, "Rule", RuleConditions{}, steps, now, uuid.New(), now)
	require.NoError(t, err)

	assert.True(t, rule.IsEffectiveAt(now))
	assert.True(t, rule.IsEffectiveAt(now.Add(time.Hour)))
	assert.False(t, rule.IsEffectiveAt(now.Add(-time.Second)))

	require.NoError(t, rule.Deactivate(now.Add(time.Hour)))
	assert.False(t, rule.IsEffectiveAt(now.Add(2*time.Hour)))
}
