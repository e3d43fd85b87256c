package integration

import (
	"context"
	"sync"
	"testing"
	"time"

	numberingapp "github.com/docuflow/backend/internal/application/numbering"
	"github.com/docuflow/backend/internal/domain/numbering"
	"github.com/docuflow/backend/internal/domain/shared"
	"github.com/docuflow/backend/internal/infrastructure/persistence"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func setupAllocator(t *testing.T, tdb *TestDB) *numberingapp.SequenceAllocator {
	t.Helper()
	repo := persistence.NewGormNumberSequenceRepository(tdb.DB)
	return numberingapp.NewSequenceAllocator(repo, numbering.DefaultPrefixes(),
		numberingapp.ExponentialBackoff{Base: 2 * time.Millisecond, Max: 20 * time.Millisecond}, zap.NewNop())
}

func TestConcurrentAllocationsAreDense(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	tdb := NewSharedTestDB(t)
	allocator := setupAllocator(t, tdb)
	tenantID := uuid.New()
	date := time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)

	// Serializable isolation aborts losers; the retry budget must be
	// generous enough for real contention.
	const n = 15
	numbers := make(chan *numbering.DocumentNumber, n)
	errs := make(chan error, n)

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			number, err := allocator.NextNumber(context.Background(), tenantID, numbering.DocumentKindExpense, date, 10)
			if err != nil {
				errs <- err
				return
			}
			numbers <- number
		}()
	}
	wg.Wait()
	close(numbers)
	close(errs)

	for err := range errs {
		t.Fatalf("allocation failed: %v", err)
	}

	// Serials must be exactly 1..n with no gaps and no duplicates
	seen := make(map[int]bool, n)
	for number := range numbers {
		assert.False(t, seen[number.Serial], "serial %d issued twice", number.Serial)
		seen[number.Serial] = true
	}
	for serial := 1; serial <= n; serial++ {
		assert.True(t, seen[serial], "serial %d missing", serial)
	}
}

func TestAllocationNumberFormat(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	tdb := NewSharedTestDB(t)
	allocator := setupAllocator(t, tdb)
	tenantID := uuid.New()
	date := time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)

	number, err := allocator.NextNumber(context.Background(), tenantID, numbering.DocumentKindInvoice, date, 3)
	require.NoError(t, err)
	assert.Equal(t, "IN2026-03-0001", number.Number)

	number, err = allocator.NextNumber(context.Background(), tenantID, numbering.DocumentKindInvoice, date, 3)
	require.NoError(t, err)
	assert.Equal(t, "IN2026-03-0002", number.Number)

	// A different kind and a different month start their own counters
	number, err = allocator.NextNumber(context.Background(), tenantID, numbering.DocumentKindPurchaseOrder, date, 3)
	require.NoError(t, err)
	assert.Equal(t, "PO2026-03-0001", number.Number)

	number, err = allocator.NextNumber(context.Background(), tenantID, numbering.DocumentKindInvoice, date.AddDate(0, 1, 0), 3)
	require.NoError(t, err)
	assert.Equal(t, "IN2026-04-0001", number.Number)
}

func TestSequenceOverflowIsTerminal(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	tdb := NewSharedTestDB(t)
	allocator := setupAllocator(t, tdb)
	tenantID := uuid.New()
	date := time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)

	now := time.Now().UTC()
	err := tdb.DB.Exec(`
		INSERT INTO number_sequences (tenant_id, kind, year, month, current_serial, created_at, updated_at)
		VALUES (?, 'EXPENSE', 2026, 3, ?, ?, ?)
	`, tenantID, numbering.MaxSerial, now, now).Error
	require.NoError(t, err)

	_, err = allocator.NextNumber(context.Background(), tenantID, numbering.DocumentKindExpense, date, 3)
	require.ErrorIs(t, err, shared.ErrSequenceOverflow)

	// The failed allocation must not have advanced the counter
	var serial int
	err = tdb.DB.Raw(`
		SELECT current_serial FROM number_sequences
		WHERE tenant_id = ? AND kind = 'EXPENSE' AND year = 2026 AND month = 3
	`, tenantID).Scan(&serial).Error
	require.NoError(t, err)
	assert.Equal(t, numbering.MaxSerial, serial)
}

func TestCurrentSerialDoesNotConsume(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	tdb := NewSharedTestDB(t)
	allocator := setupAllocator(t, tdb)
	tenantID := uuid.New()
	date := time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)

	current, err := allocator.CurrentSerial(context.Background(), tenantID, numbering.DocumentKindExpense, date)
	require.NoError(t, err)
	assert.Equal(t, 0, current)

	_, err = allocator.NextNumber(context.Background(), tenantID, numbering.DocumentKindExpense, date, 3)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		current, err = allocator.CurrentSerial(context.Background(), tenantID, numbering.DocumentKindExpense, date)
		require.NoError(t, err)
		assert.Equal(t, 1, current)
	}
}

func TestTenantsCountIndependently(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	tdb := NewSharedTestDB(t)
	allocator := setupAllocator(t, tdb)
	date := time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)

	tenantA := uuid.New()
	tenantB := uuid.New()

	a, err := allocator.NextNumber(context.Background(), tenantA, numbering.DocumentKindExpense, date, 3)
	require.NoError(t, err)
	b, err := allocator.NextNumber(context.Background(), tenantB, numbering.DocumentKindExpense, date, 3)
	require.NoError(t, err)

	assert.Equal(t, 1, a.Serial)
	assert.Equal(t, 1, b.Serial)
}
