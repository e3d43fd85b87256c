package integration

import (
	"context"
	"sync"
	"testing"
	"time"

	workflowapp "github.com/docuflow/backend/internal/application/workflow"
	"github.com/docuflow/backend/internal/domain/shared"
	"github.com/docuflow/backend/internal/domain/workflow"
	"github.com/docuflow/backend/internal/infrastructure/event"
	"github.com/docuflow/backend/internal/infrastructure/persistence"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func setupInstanceService(t *testing.T, tdb *TestDB, tenantID uuid.UUID) *workflowapp.InstanceService {
	t.Helper()

	ruleRepo := persistence.NewGormApprovalRuleRepository(tdb.DB)
	instanceRepo := persistence.NewGormApprovalInstanceRepository(tdb.DB)

	now := time.Now().UTC()
	rule, err := workflow.NewApprovalRule(tenantID, workflow.FlowTypeExpense, "Catch-all",
		workflow.RuleConditions{},
		workflow.ApprovalSteps{
			{Name: "Manager review", ApproverGroup: "DEPT_MANAGER"},
			{Name: "Finance review", ApproverGroup: "FINANCE_MANAGER"},
		},
		now.AddDate(0, -1, 0), uuid.New(), now)
	require.NoError(t, err)
	require.NoError(t, ruleRepo.Save(context.Background(), rule))

	matcher := workflow.NewRuleMatcher(ruleRepo)
	return workflowapp.NewInstanceService(instanceRepo, matcher, workflowapp.DefaultInstanceServiceConfig(), event.NewLogPublisher(zap.NewNop()), zap.NewNop())
}

func submitCommand(tenantID uuid.UUID, targetID string) workflowapp.CreateInstanceCommand {
	return workflowapp.CreateInstanceCommand{
		TenantID:    tenantID,
		FlowType:    workflow.FlowTypeExpense,
		TargetTable: "expense_records",
		TargetID:    targetID,
		Payload:     workflow.Payload{Amount: decimal.NewFromInt(500)},
		CreatedBy:   uuid.New(),
		Now:         time.Now().UTC(),
	}
}

func TestConcurrentSubmissionsSingleWinner(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	tdb := NewSharedTestDB(t)
	tenantID := uuid.New()
	service := setupInstanceService(t, tdb, tenantID)

	const n = 10
	results := make(chan *workflow.ApprovalInstance, n)
	errs := make(chan error, n)

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			instance, err := service.CreateOrGetInstance(context.Background(), submitCommand(tenantID, "rec-concurrent"))
			if err != nil {
				errs <- err
				return
			}
			results <- instance
		}()
	}
	wg.Wait()
	close(results)
	close(errs)

	for err := range errs {
		t.Fatalf("concurrent submission failed: %v", err)
	}

	// Every caller must see the same single open instance
	ids := make(map[uuid.UUID]bool)
	count := 0
	for instance := range results {
		ids[instance.ID] = true
		count++
	}
	assert.Equal(t, n, count)
	assert.Len(t, ids, 1)

	var openCount int64
	err := tdb.DB.Raw(`
		SELECT count(*) FROM approval_instances
		WHERE tenant_id = ? AND target_table = ? AND target_id = ?
		AND status IN ('PENDING_FIRST_APPROVAL', 'PENDING_FINAL_APPROVAL')
	`, tenantID, "expense_records", "rec-concurrent").Scan(&openCount).Error
	require.NoError(t, err)
	assert.Equal(t, int64(1), openCount)
}

func TestInstanceLifecyclePersistence(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	tdb := NewSharedTestDB(t)
	tenantID := uuid.New()
	service := setupInstanceService(t, tdb, tenantID)
	approver := uuid.New()

	instance, err := service.CreateOrGetInstance(context.Background(), submitCommand(tenantID, "rec-lifecycle"))
	require.NoError(t, err)
	assert.Equal(t, workflow.InstanceStatusPendingFirst, instance.Status)

	// First approval advances, second completes
	instance, err = service.Approve(context.Background(), tenantID, instance.ID, approver, "step one", time.Now().UTC())
	require.NoError(t, err)
	assert.Equal(t, workflow.InstanceStatusPendingFinal, instance.Status)

	instance, err = service.Approve(context.Background(), tenantID, instance.ID, approver, "done", time.Now().UTC())
	require.NoError(t, err)
	assert.Equal(t, workflow.InstanceStatusApproved, instance.Status)
	require.NotNil(t, instance.ApprovedBy)
	assert.Equal(t, approver, *instance.ApprovedBy)

	// The approved instance no longer blocks the target
	next, err := service.CreateOrGetInstance(context.Background(), submitCommand(tenantID, "rec-lifecycle"))
	require.NoError(t, err)
	assert.NotEqual(t, instance.ID, next.ID)
}

func TestCancelFreesTarget(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	tdb := NewSharedTestDB(t)
	tenantID := uuid.New()
	service := setupInstanceService(t, tdb, tenantID)

	cmd := submitCommand(tenantID, "rec-cancel")
	first, err := service.CreateOrGetInstance(context.Background(), cmd)
	require.NoError(t, err)

	_, err = service.Cancel(context.Background(), tenantID, first.ID, cmd.CreatedBy, "withdrawn", time.Now().UTC())
	require.NoError(t, err)

	second, err := service.CreateOrGetInstance(context.Background(), cmd)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)
	assert.True(t, second.IsOpen())
}

func TestTenantIsolationForTargets(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	tdb := NewSharedTestDB(t)
	tenantA := uuid.New()
	tenantB := uuid.New()
	serviceA := setupInstanceService(t, tdb, tenantA)
	serviceB := setupInstanceService(t, tdb, tenantB)

	// The same target reference in two tenants gets two open instances
	a, err := serviceA.CreateOrGetInstance(context.Background(), submitCommand(tenantA, "rec-shared-ref"))
	require.NoError(t, err)
	b, err := serviceB.CreateOrGetInstance(context.Background(), submitCommand(tenantB, "rec-shared-ref"))
	require.NoError(t, err)
	assert.NotEqual(t, a.ID, b.ID)

	// Tenant B cannot read tenant A's instance
	_, err = serviceB.GetInstance(context.Background(), tenantB, a.ID)
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestFindPendingForGroupQuery(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	tdb := NewSharedTestDB(t)
	tenantID := uuid.New()
	service := setupInstanceService(t, tdb, tenantID)
	approver := uuid.New()

	first, err := service.CreateOrGetInstance(context.Background(), submitCommand(tenantID, "rec-pending-1"))
	require.NoError(t, err)
	_, err = service.CreateOrGetInstance(context.Background(), submitCommand(tenantID, "rec-pending-2"))
	require.NoError(t, err)

	// Advance one instance to the finance step
	_, err = service.Approve(context.Background(), tenantID, first.ID, approver, "", time.Now().UTC())
	require.NoError(t, err)

	deptPending, err := service.PendingForGroup(context.Background(), tenantID, "DEPT_MANAGER")
	require.NoError(t, err)
	require.Len(t, deptPending, 1)

	financePending, err := service.PendingForGroup(context.Background(), tenantID, "FINANCE_MANAGER")
	require.NoError(t, err)
	require.Len(t, financePending, 1)
	assert.Equal(t, first.ID, financePending[0].ID)
}
