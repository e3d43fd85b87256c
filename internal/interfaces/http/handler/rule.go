package handler

import (
	"time"

	workflowapp "github.com/docuflow/backend/internal/application/workflow"
	"github.com/docuflow/backend/internal/domain/workflow"
	"github.com/docuflow/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// RuleHandler handles approval rule administration endpoints
type RuleHandler struct {
	BaseHandler
	service *workflowapp.RuleService
}

// NewRuleHandler creates a new RuleHandler
func NewRuleHandler(service *workflowapp.RuleService) *RuleHandler {
	return &RuleHandler{service: service}
}

// ApprovalRuleResponse represents an approval rule in API responses
type ApprovalRuleResponse struct {
	ID            string                  `json:"id"`
	TenantID      string                  `json:"tenant_id"`
	FlowType      string                  `json:"flow_type"`
	Name          string                  `json:"name"`
	Conditions    workflow.RuleConditions `json:"conditions"`
	Steps         []ApprovalStepResponse  `json:"steps"`
	IsActive      bool                    `json:"is_active"`
	EffectiveFrom time.Time               `json:"effective_from"`
	CreatedAt     time.Time               `json:"created_at"`
	UpdatedAt     time.Time               `json:"updated_at"`
	Version       int                     `json:"version"`
}

func toRuleResponse(rule *workflow.ApprovalRule) ApprovalRuleResponse {
	steps := make([]ApprovalStepResponse, len(rule.Steps))
	for i, step := range rule.Steps {
		steps[i] = ApprovalStepResponse{
			Name:          step.Name,
			ApproverGroup: step.ApproverGroup,
		}
	}
	return ApprovalRuleResponse{
		ID:            rule.ID.String(),
		TenantID:      rule.TenantID.String(),
		FlowType:      rule.FlowType.String(),
		Name:          rule.Name,
		Conditions:    rule.Conditions,
		Steps:         steps,
		IsActive:      rule.IsActive,
		EffectiveFrom: rule.EffectiveFrom,
		CreatedAt:     rule.CreatedAt,
		UpdatedAt:     rule.UpdatedAt,
		Version:       rule.Version,
	}
}

// Create creates a new approval rule
func (h *RuleHandler) Create(c *gin.Context) {
	var req workflowapp.CreateRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
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
	req.CreatedBy = userID

	rule, err := h.service.CreateRule(c.Request.Context(), tenantID, req, time.Now())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, toRuleResponse(rule))
}

// Deactivate removes a rule from candidate selection
func (h *RuleHandler) Deactivate(c *gin.Context) {
	var idReq dto.IDRequest
	if err := c.ShouldBindUri(&idReq); err != nil {
		h.BadRequest(c, "Invalid rule ID")
		return
	}
	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Invalid tenant context")
		return
	}

	rule, err := h.service.DeactivateRule(c.Request.Context(), tenantID, uuid.MustParse(idReq.ID), time.Now())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toRuleResponse(rule))
}

// List lists all rules for the tenant
func (h *RuleHandler) List(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Invalid tenant context")
		return
	}

	rules, err := h.service.ListRules(c.Request.Context(), tenantID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	responses := make([]ApprovalRuleResponse, len(rules))
	for i := range rules {
		responses[i] = toRuleResponse(&rules[i])
	}
	h.Success(c, responses)
}

// RegisterRoutes registers approval rule routes
func (h *RuleHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rules := rg.Group("/approval-rules")
	{
		rules.POST("", h.Create)
		rules.GET("", h.List)
		rules.POST("/:id/deactivate", h.Deactivate)
	}
}
