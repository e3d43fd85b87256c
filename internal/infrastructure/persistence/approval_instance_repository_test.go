package persistence

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/docuflow/backend/internal/domain/shared"
	"github.com/docuflow/backend/internal/domain/workflow"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// newMockApprovalInstanceRepository creates a GormApprovalInstanceRepository with a mocked SQL connection
func newMockApprovalInstanceRepository(t *testing.T) (*GormApprovalInstanceRepository, sqlmock.Sqlmock, *sql.DB) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	dialector := postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	})

	gormDB, err := gorm.Open(dialector, &gorm.Config{
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	return NewGormApprovalInstanceRepository(gormDB), mock, mockDB
}

func instanceColumns() []string {
	return []string{
		"id", "created_at", "updated_at", "version", "tenant_id", "created_by",
		"flow_type", "target_table", "target_id", "rule_id", "status", "current_step", "steps",
		"approved_at", "approved_by", "approval_remark",
		"rejected_at", "rejected_by", "rejection_reason",
		"cancelled_at", "cancelled_by", "cancel_reason",
	}
}

func newPendingInstance(t *testing.T, tenantID uuid.UUID) *workflow.ApprovalInstance {
	t.Helper()
	steps := workflow.ApprovalSteps{
		{Name: "Manager review", ApproverGroup: "DEPT_MANAGER"},
		{Name: "Finance review", ApproverGroup: "FINANCE_MANAGER"},
	}
	instance, err := workflow.NewApprovalInstance(tenantID, workflow.FlowTypeExpense, "expense_records", uuid.NewString(), nil, steps, uuid.New(), time.Now())
	require.NoError(t, err)
	return instance
}

func TestGormApprovalInstanceRepository_Create(t *testing.T) {
	t.Run("inserts a new instance", func(t *testing.T) {
		repo, mock, mockDB := newMockApprovalInstanceRepository(t)
		defer mockDB.Close()

		instance := newPendingInstance(t, uuid.New())

		mock.ExpectExec(`INSERT INTO "approval_instances"`).
			WillReturnResult(sqlmock.NewResult(1, 1))

		err := repo.Create(context.Background(), instance)

		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("maps unique violation to ErrAlreadyExists", func(t *testing.T) {
		repo, mock, mockDB := newMockApprovalInstanceRepository(t)
		defer mockDB.Close()

		instance := newPendingInstance(t, uuid.New())

		mock.ExpectExec(`INSERT INTO "approval_instances"`).
			WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "uq_approval_instances_open_target"})

		err := repo.Create(context.Background(), instance)

		require.ErrorIs(t, err, shared.ErrAlreadyExists)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("passes through other database errors", func(t *testing.T) {
		repo, mock, mockDB := newMockApprovalInstanceRepository(t)
		defer mockDB.Close()

		instance := newPendingInstance(t, uuid.New())

		mock.ExpectExec(`INSERT INTO "approval_instances"`).
			WillReturnError(&pgconn.PgError{Code: "53300", Message: "too many connections"})

		err := repo.Create(context.Background(), instance)

		require.Error(t, err)
		assert.NotErrorIs(t, err, shared.ErrAlreadyExists)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormApprovalInstanceRepository_FindOpenByTarget(t *testing.T) {
	t.Run("finds the open instance", func(t *testing.T) {
		repo, mock, mockDB := newMockApprovalInstanceRepository(t)
		defer mockDB.Close()

		tenantID := uuid.New()
		instanceID := uuid.New()
		createdBy := uuid.New()
		now := time.Now()

		rows := sqlmock.NewRows(instanceColumns()).
			AddRow(instanceID, now, now, 1, tenantID, createdBy,
				"EXPENSE", "expense_records", "rec-1", nil, "PENDING_FIRST_APPROVAL", 1,
				[]byte(`[{"name":"Manager review","approver_group":"DEPT_MANAGER"},{"name":"Finance review","approver_group":"FINANCE_MANAGER"}]`),
				nil, nil, "", nil, nil, "", nil, nil, "")

		mock.ExpectQuery(`SELECT \* FROM "approval_instances" WHERE tenant_id = \$1 AND target_table = \$2 AND target_id = \$3 AND status IN \(\$4,\$5\) ORDER BY .* LIMIT .*`).
			WithArgs(tenantID, "expense_records", "rec-1", "PENDING_FIRST_APPROVAL", "PENDING_FINAL_APPROVAL", 1).
			WillReturnRows(rows)

		instance, err := repo.FindOpenByTarget(context.Background(), tenantID, "expense_records", "rec-1")

		require.NoError(t, err)
		require.NotNil(t, instance)
		assert.Equal(t, instanceID, instance.ID)
		assert.Equal(t, workflow.InstanceStatusPendingFirst, instance.Status)
		assert.Equal(t, "DEPT_MANAGER", instance.CurrentApproverGroup())
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("returns ErrNotFound when target has no open instance", func(t *testing.T) {
		repo, mock, mockDB := newMockApprovalInstanceRepository(t)
		defer mockDB.Close()

		tenantID := uuid.New()

		mock.ExpectQuery(`SELECT \* FROM "approval_instances"`).
			WithArgs(tenantID, "expense_records", "rec-1", "PENDING_FIRST_APPROVAL", "PENDING_FINAL_APPROVAL", 1).
			WillReturnError(gorm.ErrRecordNotFound)

		_, err := repo.FindOpenByTarget(context.Background(), tenantID, "expense_records", "rec-1")

		require.ErrorIs(t, err, shared.ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormApprovalInstanceRepository_SaveWithLock(t *testing.T) {
	t.Run("saves when the stored version matches", func(t *testing.T) {
		repo, mock, mockDB := newMockApprovalInstanceRepository(t)
		defer mockDB.Close()

		instance := newPendingInstance(t, uuid.New())
		require.NoError(t, instance.Approve(uuid.New(), "", time.Now()))

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT "version" FROM "approval_instances" WHERE id = \$1 ORDER BY .* LIMIT .*`).
			WithArgs(instance.ID, 1).
			WillReturnRows(sqlmock.NewRows([]string{"version"}).AddRow(1))
		mock.ExpectExec(`UPDATE "approval_instances" SET`).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		err := repo.SaveWithLock(context.Background(), instance)

		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("reports a concurrency conflict on version mismatch", func(t *testing.T) {
		repo, mock, mockDB := newMockApprovalInstanceRepository(t)
		defer mockDB.Close()

		instance := newPendingInstance(t, uuid.New())
		require.NoError(t, instance.Approve(uuid.New(), "", time.Now()))

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT "version" FROM "approval_instances" WHERE id = \$1 ORDER BY .* LIMIT .*`).
			WithArgs(instance.ID, 1).
			WillReturnRows(sqlmock.NewRows([]string{"version"}).AddRow(5))
		mock.ExpectRollback()

		err := repo.SaveWithLock(context.Background(), instance)

		require.ErrorIs(t, err, shared.ErrConcurrencyConflict)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("reports ErrNotFound for a missing instance", func(t *testing.T) {
		repo, mock, mockDB := newMockApprovalInstanceRepository(t)
		defer mockDB.Close()

		instance := newPendingInstance(t, uuid.New())
		require.NoError(t, instance.Approve(uuid.New(), "", time.Now()))

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT "version" FROM "approval_instances"`).
			WithArgs(instance.ID, 1).
			WillReturnError(gorm.ErrRecordNotFound)
		mock.ExpectRollback()

		err := repo.SaveWithLock(context.Background(), instance)

		require.ErrorIs(t, err, shared.ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormApprovalInstanceRepository_FindPendingForGroup(t *testing.T) {
	t.Run("filters by current step approver group", func(t *testing.T) {
		repo, mock, mockDB := newMockApprovalInstanceRepository(t)
		defer mockDB.Close()

		tenantID := uuid.New()
		instanceID := uuid.New()
		now := time.Now()

		rows := sqlmock.NewRows(instanceColumns()).
			AddRow(instanceID, now, now, 1, tenantID, uuid.New(),
				"EXPENSE", "expense_records", "rec-1", nil, "PENDING_FINAL_APPROVAL", 1,
				[]byte(`[{"name":"Finance review","approver_group":"FINANCE_MANAGER"}]`),
				nil, nil, "", nil, nil, "", nil, nil, "")

		mock.ExpectQuery(`SELECT \* FROM "approval_instances" WHERE \(tenant_id = \$1 AND status IN \(\$2,\$3\)\) AND steps -> \(current_step - 1\) ->> 'approver_group' = \$4 ORDER BY created_at ASC`).
			WithArgs(tenantID, "PENDING_FIRST_APPROVAL", "PENDING_FINAL_APPROVAL", "FINANCE_MANAGER").
			WillReturnRows(rows)

		instances, err := repo.FindPendingForGroup(context.Background(), tenantID, "FINANCE_MANAGER")

		require.NoError(t, err)
		require.Len(t, instances, 1)
		assert.Equal(t, instanceID, instances[0].ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
