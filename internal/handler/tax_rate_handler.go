package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jengzang/ifta-backend-go/internal/service"
	"github.com/jengzang/ifta-backend-go/pkg/response"
)

// TaxRateHandler handles HTTP requests for jurisdiction tax rates
type TaxRateHandler struct {
	service *service.TaxRateService
	now     func() time.Time
}

// NewTaxRateHandler creates a new tax rate handler
func NewTaxRateHandler(service *service.TaxRateService) *TaxRateHandler {
	return &TaxRateHandler{service: service, now: time.Now}
}

// GetRates handles GET /api/v1/tax-rates, the rates in force for a quarter
func (h *TaxRateHandler) GetRates(c *gin.Context) {
	q, err := quarterFromQuery(c, h.now)
	if err != nil {
		response.BadRequest(c, "Invalid quarter", err)
		return
	}

	lines, err := h.service.SnapshotLines(c.Request.Context(), q)
	if err != nil {
		fail(c, "Failed to get tax rates", err)
		return
	}
	response.Success(c, gin.H{
		"quarter": q,
		"rates":   lines,
	})
}

// GetHistory handles GET /api/v1/tax-rates/:jurisdiction
func (h *TaxRateHandler) GetHistory(c *gin.Context) {
	rates, err := h.service.List(c.Request.Context(), c.Param("jurisdiction"))
	if err != nil {
		fail(c, "Failed to get tax rates", err)
		return
	}
	response.Success(c, rates)
}

// SetRate handles PUT /api/v1/tax-rates/:jurisdiction
func (h *TaxRateHandler) SetRate(c *gin.Context) {
	var req service.SetRateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body", err)
		return
	}

	rate, err := h.service.SetRate(c.Request.Context(), c.Param("jurisdiction"), req)
	if err != nil {
		fail(c, "Failed to set tax rate", err)
		return
	}
	response.Success(c, rate)
}
