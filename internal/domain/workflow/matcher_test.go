package workflow

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubRuleRepository struct {
	candidates []ApprovalRule
	err        error
}

func (s *stubRuleRepository) Save(context.Context, *ApprovalRule) error { return nil }

func (s *stubRuleRepository) FindByID(context.Context, uuid.UUID, uuid.UUID) (*ApprovalRule, error) {
	return nil, nil
}

func (s *stubRuleRepository) FindCandidates(context.Context, uuid.UUID, FlowType, time.Time) ([]ApprovalRule, error) {
	return s.candidates, s.err
}

func (s *stubRuleRepository) FindAllForTenant(context.Context, uuid.UUID) ([]ApprovalRule, error) {
	return s.candidates, nil
}

func mustRule(t *testing.T, name string, conditions RuleConditions, effectiveFrom time.Time) ApprovalRule {
	t.Helper()
	steps := ApprovalSteps{{Name: "Review", ApproverGroup: "FINANCE_MANAGER"}}
	rule, err := NewApprovalRule(uuid.New(), FlowTypeExpense, name, conditions, steps, effectiveFrom, uuid.New(), effectiveFrom)
	require.NoError(t, err)
	return *rule
}

func TestRuleMatcherSelectRule(t *testing.T) {
	tenantID := uuid.New()
	now := time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)

	t.Run("picks the first matching candidate in repository order", func(t *testing.T) {
		// The repository returns candidates newest-effective first; the
		// matcher must honor that order, not re-sort or best-fit.
		highValue := mustRule(t, "High value", RuleConditions{AmountMin: decimalPtr(10000)}, now.AddDate(0, -1, 0))
		catchAll := mustRule(t, "Catch-all", RuleConditions{}, now.AddDate(0, -6, 0))
		repo := &stubRuleRepository{candidates: []ApprovalRule{highValue, catchAll}}

		matcher := NewRuleMatcher(repo)

		rule, err := matcher.SelectRule(context.Background(), tenantID, FlowTypeExpense, Payload{Amount: decimal.NewFromInt(20000)}, now)
		require.NoError(t, err)
		require.NotNil(t, rule)
		assert.Equal(t, "High value", rule.Name)

		rule, err = matcher.SelectRule(context.Background(), tenantID, FlowTypeExpense, Payload{Amount: decimal.NewFromInt(50)}, now)
		require.NoError(t, err)
		require.NotNil(t, rule)
		assert.Equal(t, "Catch-all", rule.Name)
	})

	t.Run("returns nil when no candidate matches", func(t *testing.T) {
		travelOnly := mustRule(t, "Travel only", RuleConditions{Category: "travel"}, now.AddDate(0, -1, 0))
		repo := &stubRuleRepository{candidates: []ApprovalRule{travelOnly}}

		matcher := NewRuleMatcher(repo)
		rule, err := matcher.SelectRule(context.Background(), tenantID, FlowTypeExpense, Payload{Amount: decimal.NewFromInt(50), Category: "office"}, now)
		require.NoError(t, err)
		assert.Nil(t, rule)
	})

	t.Run("returns nil when there are no candidates", func(t *testing.T) {
		matcher := NewRuleMatcher(&stubRuleRepository{})
		rule, err := matcher.SelectRule(context.Background(), tenantID, FlowTypeExpense, Payload{Amount: decimal.NewFromInt(50)}, now)
		require.NoError(t, err)
		assert.Nil(t, rule)
	})

	t.Run("propagates repository errors", func(t *testing.T) {
		repoErr := errors.New("connection lost")
		matcher := NewRuleMatcher(&stubRuleRepository{err: repoErr})

		_, err := matcher.SelectRule(context.Background(), tenantID, FlowTypeExpense, Payload{}, now)
		require.ErrorIs(t, err, repoErr)
	})
}
