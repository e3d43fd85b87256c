package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/docuflow/backend/internal/domain/shared"
	"github.com/docuflow/backend/internal/domain/workflow"
	"github.com/docuflow/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormApprovalRuleRepository implements workflow.RuleRepository using GORM
type GormApprovalRuleRepository struct {
	db *gorm.DB
}

// NewGormApprovalRuleRepository creates a new GormApprovalRuleRepository
func NewGormApprovalRuleRepository(db *gorm.DB) *GormApprovalRuleRepository {
	return &GormApprovalRuleRepository{db: db}
}

// Save creates or updates an approval rule
func (r *GormApprovalRuleRepository) Save(ctx context.Context, rule *workflow.ApprovalRule) error {
	model := models.ApprovalRuleModelFromDomain(rule)
	return r.db.WithContext(ctx).Save(model).Error
}

// FindByID finds a rule by ID for a tenant
func (r *GormApprovalRuleRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*workflow.ApprovalRule, error) {
	var model models.ApprovalRuleModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindCandidates returns active rules for a flow type effective at the
// given time. Ordering is the documented tie-break: the most recently
// effective rule first, and among equally effective rules the most
// recently authored first.
func (r *GormApprovalRuleRepository) FindCandidates(ctx context.Context, tenantID uuid.UUID, flowType workflow.FlowType, at time.Time) ([]workflow.ApprovalRule, error) {
	var ruleModels []models.ApprovalRuleModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND flow_type = ? AND is_active = ? AND effective_from <= ?", tenantID, flowType, true, at).
		Order("effective_from DESC").
		Order("created_at DESC").
		Find(&ruleModels).Error; err != nil {
		return nil, err
	}
	rules := make([]workflow.ApprovalRule, len(ruleModels))
	for i, model := range ruleModels {
		rules[i] = *model.ToDomain()
	}
	return rules, nil
}

// FindAllForTenant lists all rules for a tenant, newest first
func (r *GormApprovalRuleRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID) ([]workflow.ApprovalRule, error) {
	var ruleModels []models.ApprovalRuleModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("created_at DESC").
		Find(&ruleModels).Error; err != nil {
		return nil, err
	}
	rules := make([]workflow.ApprovalRule, len(ruleModels))
	for i, model := range ruleModels {
		rules[i] = *model.ToDomain()
	}
	return rules, nil
}
