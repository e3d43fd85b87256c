package models

import (
	"time"

	"github.com/docuflow/backend/internal/domain/numbering"
	"github.com/google/uuid"
)

// NumberSequenceModel is the persistence model for the per-period document
// number counter. The composite primary key doubles as the uniqueness
// constraint the serializable upsert relies on.
type NumberSequenceModel struct {
	TenantID      uuid.UUID              `gorm:"type:uuid;primaryKey"`
	Kind          numbering.DocumentKind `gorm:"type:varchar(30);primaryKey"`
	Year          int                    `gorm:"primaryKey"`
	Month         int                    `gorm:"primaryKey"`
	CurrentSerial int                    `gorm:"not null;default:0"`
	CreatedAt     time.Time              `gorm:"not null"`
	UpdatedAt     time.Time              `gorm:"not null"`
}

// TableName returns the table name for GORM
func (NumberSequenceModel) TableName() string {
	return "number_sequences"
}

// ToDomain converts the persistence model to a domain NumberSequence
func (m *NumberSequenceModel) ToDomain() *numbering.NumberSequence {
	return &numbering.NumberSequence{
		TenantID:      m.TenantID,
		Kind:          m.Kind,
		Year:          m.Year,
		Month:         m.Month,
		CurrentSerial: m.CurrentSerial,
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}
}
