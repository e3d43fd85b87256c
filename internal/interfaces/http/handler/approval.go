package handler

import (
	"time"

	workflowapp "github.com/docuflow/backend/internal/application/workflow"
	"github.com/docuflow/backend/internal/domain/workflow"
	"github.com/docuflow/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ApprovalHandler handles approval instance API endpoints
type ApprovalHandler struct {
	BaseHandler
	service *workflowapp.InstanceService
}

// NewApprovalHandler creates a new ApprovalHandler
func NewApprovalHandler(service *workflowapp.InstanceService) *ApprovalHandler {
	return &ApprovalHandler{service: service}
}

// ApprovalStepResponse represents one step of an approval chain
type ApprovalStepResponse struct {
	Name          string `json:"name"`
	ApproverGroup string `json:"approver_group"`
}

// ApprovalInstanceResponse represents an approval instance in API responses
type ApprovalInstanceResponse struct {
	ID              string                 `json:"id"`
	TenantID        string                 `json:"tenant_id"`
	FlowType        string                 `json:"flow_type"`
	TargetTable     string                 `json:"target_table"`
	TargetID        string                 `json:"target_id"`
	RuleID          *string                `json:"rule_id,omitempty"`
	Status          string                 `json:"status"`
	CurrentStep     int                    `json:"current_step"`
	Steps           []ApprovalStepResponse `json:"steps"`
	ApprovedAt      *time.Time             `json:"approved_at,omitempty"`
	ApprovedBy      *string                `json:"approved_by,omitempty"`
	ApprovalRemark  string                 `json:"approval_remark,omitempty"`
	RejectedAt      *time.Time             `json:"rejected_at,omitempty"`
	RejectedBy      *string                `json:"rejected_by,omitempty"`
	RejectionReason string                 `json:"rejection_reason,omitempty"`
	CancelledAt     *time.Time             `json:"cancelled_at,omitempty"`
	CancelledBy     *string                `json:"cancelled_by,omitempty"`
	CancelReason    string                 `json:"cancel_reason,omitempty"`
	CreatedAt       time.Time              `json:"created_at"`
	UpdatedAt       time.Time              `json:"updated_at"`
	Version         int                    `json:"version"`
}

func toUUIDPtr(id *uuid.UUID) *string {
	if id == nil {
		return nil
	}
	s := id.String()
	return &s
}

func toInstanceResponse(instance *workflow.ApprovalInstance) ApprovalInstanceResponse {
	steps := make([]ApprovalStepResponse, len(instance.Steps))
	for i, step := range instance.Steps {
		steps[i] = ApprovalStepResponse{
			Name:          step.Name,
			ApproverGroup: step.ApproverGroup,
		}
	}
	return ApprovalInstanceResponse{
		ID:              instance.ID.String(),
		TenantID:        instance.TenantID.String(),
		FlowType:        instance.FlowType.String(),
		TargetTable:     instance.TargetTable,
		TargetID:        instance.TargetID,
		RuleID:          toUUIDPtr(instance.RuleID),
		Status:          instance.Status.String(),
		CurrentStep:     instance.CurrentStep,
		Steps:           steps,
		ApprovedAt:      instance.ApprovedAt,
		ApprovedBy:      toUUIDPtr(instance.ApprovedBy),
		ApprovalRemark:  instance.ApprovalRemark,
		RejectedAt:      instance.RejectedAt,
		RejectedBy:      toUUIDPtr(instance.RejectedBy),
		RejectionReason: instance.RejectionReason,
		CancelledAt:     instance.CancelledAt,
		CancelledBy:     toUUIDPtr(instance.CancelledBy),
		CancelReason:    instance.CancelReason,
		CreatedAt:       instance.CreatedAt,
		UpdatedAt:       instance.UpdatedAt,
		Version:         instance.Version,
	}
}

// SubmitApprovalRequest represents a request to submit a document for approval
type SubmitApprovalRequest struct {
	FlowType    string  `json:"flow_type" binding:"required"`
	TargetTable string  `json:"target_table" binding:"required"`
	TargetID    string  `json:"target_id" binding:"required"`
	Amount      float64 `json:"amount" binding:"required,gt=0"`
	Category    string  `json:"category"`
}

// ApprovalActionRequest carries the optional remark for approve actions
type ApprovalActionRequest struct {
	Remark string `json:"remark"`
}

// ApprovalReasonRequest carries the reason for reject and cancel actions
type ApprovalReasonRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// Submit creates the open approval instance for a document, or returns
// the existing one. Repeated submissions of the same target are
// idempotent.
func (h *ApprovalHandler) Submit(c *gin.Context) {
	var req SubmitApprovalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	flowType := workflow.FlowType(req.FlowType)
	if !flowType.IsValid() {
		h.Error(c, 400, dto.ErrCodeInvalidInput, "unknown flow type: "+req.FlowType)
		return
	}

	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Invalid tenant context")
		return
	}
	userID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "Invalid user context")
		return
	}

	instance, err := h.service.CreateOrGetInstance(c.Request.Context(), workflowapp.CreateInstanceCommand{
		TenantID:    tenantID,
		FlowType:    flowType,
		TargetTable: req.TargetTable,
		TargetID:    req.TargetID,
		Payload: workflow.Payload{
			Amount:   decimal.NewFromFloat(req.Amount),
			Category: req.Category,
		},
		CreatedBy: userID,
		Now:       time.Now(),
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, toInstanceResponse(instance))
}

// Get returns a single approval instance
func (h *ApprovalHandler) Get(c *gin.Context) {
	var idReq dto.IDRequest
	if err := c.ShouldBindUri(&idReq); err != nil {
		h.BadRequest(c, "Invalid instance ID")
		return
	}
	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Invalid tenant context")
		return
	}

	instance, err := h.service.GetInstance(c.Request.Context(), tenantID, uuid.MustParse(idReq.ID))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toInstanceResponse(instance))
}

// Approve advances the instance one step
func (h *ApprovalHandler) Approve(c *gin.Context) {
	var idReq dto.IDRequest
	if err := c.ShouldBindUri(&idReq); err != nil {
		h.BadRequest(c, "Invalid instance ID")
		return
	}
	var req ApprovalActionRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		h.BadRequest(c, err.Error())
		return
	}

	tenantID, userID, ok := h.identity(c)
	if !ok {
		return
	}

	instance, err := h.service.Approve(c.Request.Context(), tenantID, uuid.MustParse(idReq.ID), userID, req.Remark, time.Now())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toInstanceResponse(instance))
}

// Reject terminates the instance with a rejection
func (h *ApprovalHandler) Reject(c *gin.Context) {
	var idReq dto.IDRequest
	if err := c.ShouldBindUri(&idReq); err != nil {
		h.BadRequest(c, "Invalid instance ID")
		return
	}
	var req ApprovalReasonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	tenantID, userID, ok := h.identity(c)
	if !ok {
		return
	}

	instance, err := h.service.Reject(c.Request.Context(), tenantID, uuid.MustParse(idReq.ID), userID, req.Reason, time.Now())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toInstanceResponse(instance))
}

// Cancel withdraws an open submission
func (h *ApprovalHandler) Cancel(c *gin.Context) {
	var idReq dto.IDRequest
	if err := c.ShouldBindUri(&idReq); err != nil {
		h.BadRequest(c, "Invalid instance ID")
		return
	}
	var req ApprovalReasonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	tenantID, userID, ok := h.identity(c)
	if !ok {
		return
	}

	instance, err := h.service.Cancel(c.Request.Context(), tenantID, uuid.MustParse(idReq.ID), userID, req.Reason, time.Now())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toInstanceResponse(instance))
}

// PendingForGroup lists open instances waiting on an approver group
func (h *ApprovalHandler) PendingForGroup(c *gin.Context) {
	group := c.Query("group")
	if group == "" {
		h.BadRequest(c, "group query parameter is required")
		return
	}
	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Invalid tenant context")
		return
	}

	instances, err := h.service.PendingForGroup(c.Request.Context(), tenantID, group)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	responses := make([]ApprovalInstanceResponse, len(instances))
	for i := range instances {
		responses[i] = toInstanceResponse(&instances[i])
	}
	h.Success(c, responses)
}

// RegisterRoutes registers approval instance routes
func (h *ApprovalHandler) RegisterRoutes(rg *gin.RouterGroup) {
	approvals := rg.Group("/approvals")
	{
		approvals.POST("", h.Submit)
		approvals.GET("/pending", h.PendingForGroup)
		approvals.GET("/:id", h.Get)
		approvals.POST("/:id/approve", h.Approve)
		approvals.POST("/:id/reject", h.Reject)
		approvals.POST("/:id/cancel", h.Cancel)
	}
}

func (h *ApprovalHandler) identity(c *gin.Context) (uuid.UUID, uuid.UUID, bool) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Invalid tenant context")
		return uuid.Nil, uuid.Nil, false
	}
	userID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "Invalid user context")
		return uuid.Nil, uuid.Nil, false
	}
	return tenantID, userID, true
}
