package persistence

import (
	"context"
	"errors"

	"github.com/docuflow/backend/internal/domain/shared"
	"github.com/docuflow/backend/internal/domain/workflow"
	"github.com/docuflow/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormApprovalInstanceRepository implements workflow.InstanceRepository using GORM
type GormApprovalInstanceRepository struct {
	db *gorm.DB
}

// NewGormApprovalInstanceRepository creates a new GormApprovalInstanceRepository
func NewGormApprovalInstanceRepository(db *gorm.DB) *GormApprovalInstanceRepository {
	return &GormApprovalInstanceRepository{db: db}
}

// Create inserts a new approval instance. The partial unique index over
// open instances is the final authority on the single-open-instance
// invariant; when it fires, the violation is reported as
// shared.ErrAlreadyExists so the caller can reconcile.
func (r *GormApprovalInstanceRepository) Create(ctx context.Context, instance *workflow.ApprovalInstance) error {
	model := models.ApprovalInstanceModelFromDomain(instance)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		if IsUniqueViolation(err) {
			return shared.ErrAlreadyExists
		}
		return err
	}
	return nil
}

// FindByID finds an instance by ID for a tenant
func (r *GormApprovalInstanceRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*workflow.ApprovalInstance, error) {
	var model models.ApprovalInstanceModel
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

// FindOpenByTarget returns the open instance for a target record
func (r *GormApprovalInstanceRepository) FindOpenByTarget(ctx context.Context, tenantID uuid.UUID, targetTable, targetID string) (*workflow.ApprovalInstance, error) {
	var model models.ApprovalInstanceModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND target_table = ? AND target_id = ? AND status IN ?",
			tenantID, targetTable, targetID, workflow.OpenStatuses()).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// SaveWithLock persists a mutated instance with optimistic locking
func (r *GormApprovalInstanceRepository) SaveWithLock(ctx context.Context, instance *workflow.ApprovalInstance) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var current models.ApprovalInstanceModel
		if err := tx.Select("version").Where("id = ?", instance.GetID()).First(&current).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return shared.ErrNotFound
			}
			return err
		}

		// Domain operations already incremented the version
		expectedVersion := instance.GetVersion() - 1
		if current.Version != expectedVersion {
			return shared.ErrConcurrencyConflict
		}

		model := models.ApprovalInstanceModelFromDomain(instance)
		result := tx.Model(model).
			Where("id = ? AND version = ?", instance.GetID(), expectedVersion).
			Save(model)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.ErrConcurrencyConflict
		}
		return nil
	})
}

// FindPendingForGroup lists open instances whose current step belongs to
// the given approver group. current_step is 1-based, jsonb arrays are
// 0-based.
func (r *GormApprovalInstanceRepository) FindPendingForGroup(ctx context.Context, tenantID uuid.UUID, approverGroup string) ([]workflow.ApprovalInstance, error) {
	var instanceModels []models.ApprovalInstanceModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND status IN ?", tenantID, workflow.OpenStatuses()).
		Where("steps -> (current_step - 1) ->> 'approver_group' = ?", approverGroup).
		Order("created_at ASC").
		Find(&instanceModels).Error; err != nil {
		return nil, err
	}
	instances := make([]workflow.ApprovalInstance, len(instanceModels))
	for i, model := range instanceModels {
		instances[i] = *model.ToDomain()
	}
	return instances, nil
}
