package workflow

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// RuleMatcher selects the single applicable approval rule for a document.
// It is a read-only domain service: rules are re-fetched on every call so
// that effective_from and is_active changes are visible immediately.
type RuleMatcher struct {
	rules RuleRepository
}

// NewRuleMatcher creates a new RuleMatcher
func NewRuleMatcher(rules RuleRepository) *RuleMatcher {
	return &RuleMatcher{rules: rules}
}

// SelectRule returns the first candidate rule whose conditions match the
// payload, or nil when no rule matches. Candidates come back from the
// repository already ordered: most recently effective first, and among
// equally effective rules the most recently authored first.
func (m *RuleMatcher) SelectRule(ctx context.Context, tenantID uuid.UUID, flowType FlowType, payload Payload, now time.Time) (*ApprovalRule, error) {
	candidates, err := m.rules.FindCandidates(ctx, tenantID, flowType, now)
	if err != nil {
		return nil, err
	}

	for i := range candidates {
		if candidates[i].Conditions.Matches(payload) {
			return &candidates[i], nil
		}
	}
	return nil, nil
}
