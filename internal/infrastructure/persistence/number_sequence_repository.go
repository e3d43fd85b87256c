package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/docuflow/backend/internal/domain/numbering"
	"github.com/docuflow/backend/internal/domain/shared"
	"github.com/docuflow/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormNumberSequenceRepository implements numbering.SequenceRepository
// using GORM.
type GormNumberSequenceRepository struct {
	db *gorm.DB
}

// NewGormNumberSequenceRepository creates a new GormNumberSequenceRepository
func NewGormNumberSequenceRepository(db *gorm.DB) *GormNumberSequenceRepository {
	return &GormNumberSequenceRepository{db: db}
}

// NextSerial increments the counter for (tenant, kind, year, month) and
// returns the resulting serial. The upsert and read-back run inside one
// serializable transaction: a weaker level would let two concurrent
// callers read the same serial before either writes, while serializable
// isolation forces the store to abort one of them. Aborts surface as
// shared.ErrSerializationFailure for the allocator's retry loop; a serial
// above numbering.MaxSerial rolls the transaction back with
// shared.ErrSequenceOverflow, which must not be retried.
func (r *GormNumberSequenceRepository) NextSerial(ctx context.Context, tenantID uuid.UUID, kind numbering.DocumentKind, year, month int) (int, error) {
	var serial int

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now()
		row := models.NumberSequenceModel{
			TenantID:      tenantID,
			Kind:          kind,
			Year:          year,
			Month:         month,
			CurrentSerial: 1,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		if err := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{
				{Name: "tenant_id"}, {Name: "kind"}, {Name: "year"}, {Name: "month"},
			},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"current_serial": gorm.Expr("number_sequences.current_serial + 1"),
				"updated_at":     now,
			}),
		}).Create(&row).Error; err != nil {
			return err
		}

		var current models.NumberSequenceModel
		if err := tx.
			Where("tenant_id = ? AND kind = ? AND year = ? AND month = ?", tenantID, kind, year, month).
			First(&current).Error; err != nil {
			return err
		}
		if current.CurrentSerial > numbering.MaxSerial {
			return shared.ErrSequenceOverflow
		}
		serial = current.CurrentSerial
		return nil
	}, &sql.TxOptions{Isolation: sql.LevelSerializable})

	if err != nil {
		if errors.Is(err, shared.ErrSequenceOverflow) {
			return 0, err
		}
		if IsSerializationFailure(err) {
			return 0, fmt.Errorf("%w: %v", shared.ErrSerializationFailure, err)
		}
		return 0, err
	}
	return serial, nil
}

// CurrentSerial reads the counter without incrementing it
func (r *GormNumberSequenceRepository) CurrentSerial(ctx context.Context, tenantID uuid.UUID, kind numbering.DocumentKind, year, month int) (int, error) {
	var current models.NumberSequenceModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND kind = ? AND year = ? AND month = ?", tenantID, kind, year, month).
		First(&current).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, nil
		}
		return 0, err
	}
	return current.CurrentSerial, nil
}
