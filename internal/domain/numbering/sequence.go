package numbering

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// MaxSerial is the highest serial the 4-digit number format can carry.
// Exceeding it is a capacity fault for the period, not a race.
const MaxSerial = 9999

// NumberSequence is the per-(tenant, kind, year, month) counter row.
// It is created on first issuance, incremented by exactly one per
// successful issuance and never deleted.
type NumberSequence struct {
	TenantID      uuid.UUID
	Kind          DocumentKind
	Year          int
	Month         int
	CurrentSerial int
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// DocumentNumber is the result of one issuance
type DocumentNumber struct {
	Number string `json:"number"`
	Serial int    `json:"serial"`
}

// PeriodOf derives the sequence period from a date. UTC is used so the
// period a number belongs to does not drift with the server timezone.
func PeriodOf(date time.Time) (year int, month int) {
	utc := date.UTC()
	return utc.Year(), int(utc.Month())
}

// FormatNumber renders a document number as {prefix}{year}-{MM}-{NNNN}
func FormatNumber(prefix string, year, month, serial int) string {
	return fmt.Sprintf("%s%d-%02d-%04d", prefix, year, month, serial)
}

// SequenceRepository defines the persistence interface for number sequences.
type SequenceRepository interface {
	// NextSerial increments the counter for the given key inside a
	// serializable transaction, creating it at 1 if absent, and returns
	// the resulting serial. It returns shared.ErrSerializationFailure
	// (wrapped) when the store aborts the transaction due to a concurrent
	// issuance, and shared.ErrSequenceOverflow when the serial would
	// exceed MaxSerial.
	NextSerial(ctx context.Context, tenantID uuid.UUID, kind DocumentKind, year, month int) (int, error)

	// CurrentSerial reads the counter without incrementing it, returning
	// 0 when no issuance has happened for the key yet.
	CurrentSerial(ctx context.Context, tenantID uuid.UUID, kind DocumentKind, year, month int) (int, error)
}
