package numbering

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/docuflow/backend/internal/domain/numbering"
	"github.com/docuflow/backend/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	// DefaultMaxRetries is used when the caller passes maxRetries <= 0
	DefaultMaxRetries = 3
	// MaxRetryCap bounds caller-supplied retry counts
	MaxRetryCap = 10
)

// SequenceAllocator issues unique, gapless-within-period document numbers
// under concurrent callers. Uniqueness rests on the store running the
// counter upsert at serializable isolation; the allocator's only job on
// the racing path is to absorb the resulting aborts with a bounded retry
// loop. The loop has no cancellation hook of its own: a caller that needs
// bounded latency wraps the call in a context deadline honored by the
// store driver.
type SequenceAllocator struct {
	sequences numbering.SequenceRepository
	prefixes  numbering.PrefixRegistry
	backoff   Backoff
	logger    *zap.Logger
}

// NewSequenceAllocator creates a new SequenceAllocator
func NewSequenceAllocator(
	sequences numbering.SequenceRepository,
	prefixes numbering.PrefixRegistry,
	backoff Backoff,
	logger *zap.Logger,
) *SequenceAllocator {
	if backoff == nil {
		backoff = NoDelay{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SequenceAllocator{
		sequences: sequences,
		prefixes:  prefixes,
		backoff:   backoff,
		logger:    logger,
	}
}

// NextNumber mints the next document number for a kind and date. The
// period (year, month) is derived from the date in UTC. maxRetries bounds
// how often a serialization abort is retried; <= 0 selects the default
// and values above MaxRetryCap are clamped.
func (a *SequenceAllocator) NextNumber(ctx context.Context, tenantID uuid.UUID, kind numbering.DocumentKind, date time.Time, maxRetries int) (*numbering.DocumentNumber, error) {
	prefix, err := a.prefixes.PrefixFor(kind)
	if err != nil {
		return nil, err
	}

	if maxRetries <= 0 {
		maxRetries = DefaultMaxRetries
	}
	if maxRetries > MaxRetryCap {
		maxRetries = MaxRetryCap
	}

	year, month := numbering.PeriodOf(date)

	var lastErr error
	for attempt := 1; attempt <= maxRetries; attempt++ {
		serial, err := a.sequences.NextSerial(ctx, tenantID, kind, year, month)
		if err == nil {
			return &numbering.DocumentNumber{
				Number: numbering.FormatNumber(prefix, year, month, serial),
				Serial: serial,
			}, nil
		}
		if !errors.Is(err, shared.ErrSerializationFailure) {
			return nil, err
		}

		lastErr = err
		a.logger.Warn("sequence allocation aborted, retrying",
			zap.String("tenant_id", tenantID.String()),
			zap.String("kind", kind.String()),
			zap.Int("year", year),
			zap.Int("month", month),
			zap.Int("attempt", attempt),
			zap.Int("max_retries", maxRetries),
		)
		if delay := a.backoff.Delay(attempt); delay > 0 {
			time.Sleep(delay)
		}
	}

	return nil, fmt.Errorf("sequence allocation failed after %d attempts: %w", maxRetries, lastErr)
}

// CurrentSerial reads the serial the period counter stands at without
// consuming a number. Returns 0 when nothing has been allocated yet.
func (a *SequenceAllocator) CurrentSerial(ctx context.Context, tenantID uuid.UUID, kind numbering.DocumentKind, date time.Time) (int, error) {
	if _, err := a.prefixes.PrefixFor(kind); err != nil {
		return 0, err
	}
	year, month := numbering.PeriodOf(date)
	return a.sequences.CurrentSerial(ctx, tenantID, kind, year, month)
}
