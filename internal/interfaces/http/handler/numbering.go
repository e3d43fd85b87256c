package handler

import (
	"net/http"
	"time"

	numberingapp "github.com/docuflow/backend/internal/application/numbering"
	"github.com/docuflow/backend/internal/domain/numbering"
	"github.com/docuflow/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
)

// NumberingHandler handles document number allocation endpoints
type NumberingHandler struct {
	BaseHandler
	allocator  *numberingapp.SequenceAllocator
	maxRetries int
}

// NewNumberingHandler creates a new NumberingHandler. maxRetries bounds
// the allocator's retry loop for requests served by this handler.
func NewNumberingHandler(allocator *numberingapp.SequenceAllocator, maxRetries int) *NumberingHandler {
	return &NumberingHandler{allocator: allocator, maxRetries: maxRetries}
}

// AllocateNumberRequest represents a request to allocate a document number
type AllocateNumberRequest struct {
	Kind string     `json:"kind" binding:"required"`
	Date *time.Time `json:"date"`
}

// DocumentNumberResponse represents an allocated document number
type DocumentNumberResponse struct {
	Number string `json:"number"`
	Serial int    `json:"serial"`
	Kind   string `json:"kind"`
}

// SerialStateResponse represents the current state of a period counter
type SerialStateResponse struct {
	Kind    string `json:"kind"`
	Year    int    `json:"year"`
	Month   int    `json:"month"`
	Current int    `json:"current"`
}

// Allocate mints the next document number for a kind. The period defaults
// to the current month when no date is given.
func (h *NumberingHandler) Allocate(c *gin.Context) {
	var req AllocateNumberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	kind := numbering.DocumentKind(req.Kind)
	if !kind.IsValid() {
		h.Error(c, http.StatusBadRequest, dto.ErrCodeInvalidInput, "unknown document kind: "+req.Kind)
		return
	}

	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Invalid tenant context")
		return
	}

	date := time.Now()
	if req.Date != nil {
		date = *req.Date
	}

	number, err := h.allocator.NextNumber(c.Request.Context(), tenantID, kind, date, h.maxRetries)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, DocumentNumberResponse{
		Number: number.Number,
		Serial: number.Serial,
		Kind:   kind.String(),
	})
}

// CurrentSerial reads the period counter without consuming a number
func (h *NumberingHandler) CurrentSerial(c *gin.Context) {
	kind := numbering.DocumentKind(c.Query("kind"))
	if !kind.IsValid() {
		h.Error(c, http.StatusBadRequest, dto.ErrCodeInvalidInput, "unknown document kind: "+kind.String())
		return
	}

	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Invalid tenant context")
		return
	}

	date := time.Now()
	if raw := c.Query("date"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			h.BadRequest(c, "date must be RFC3339")
			return
		}
		date = parsed
	}

	current, err := h.allocator.CurrentSerial(c.Request.Context(), tenantID, kind, date)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	year, month := numbering.PeriodOf(date)
	h.Success(c, SerialStateResponse{
		Kind:    kind.String(),
		Year:    year,
		Month:   month,
		Current: current,
	})
}

// RegisterRoutes registers document numbering routes
func (h *NumberingHandler) RegisterRoutes(rg *gin.RouterGroup) {
	numbers := rg.Group("/document-numbers")
	{
		numbers.POST("", h.Allocate)
		numbers.GET("/current", h.CurrentSerial)
	}
}
