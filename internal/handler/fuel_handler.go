package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/jengzang/ifta-backend-go/internal/models"
	"github.com/jengzang/ifta-backend-go/internal/service"
	"github.com/jengzang/ifta-backend-go/pkg/response"
)

// FuelHandler handles HTTP requests for fuel purchases
type FuelHandler struct {
	service *service.FuelService
}

// NewFuelHandler creates a new fuel purchase handler
func NewFuelHandler(service *service.FuelService) *FuelHandler {
	return &FuelHandler{service: service}
}

// CreatePurchase handles POST /api/v1/fuel-purchases
func (h *FuelHandler) CreatePurchase(c *gin.Context) {
	var req service.CreateFuelPurchaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body", err)
		return
	}

	purchase, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		fail(c, "Failed to create fuel purchase", err)
		return
	}
	response.Created(c, purchase)
}

// ListPurchases handles GET /api/v1/fuel-purchases
func (h *FuelHandler) ListPurchases(c *gin.Context) {
	var filter models.FuelFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		response.BadRequest(c, "Invalid query parameters", err)
		return
	}
	filter.Normalize()

	purchases, total, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		fail(c, "Failed to list fuel purchases", err)
		return
	}

	response.Success(c, gin.H{
		"data":       purchases,
		"total":      total,
		"page":       filter.Page,
		"pageSize":   filter.PageSize,
		"totalPages": models.TotalPages(total, filter.PageSize),
	})
}

// GetPurchase handles GET /api/v1/fuel-purchases/:id
func (h *FuelHandler) GetPurchase(c *gin.Context) {
	purchase, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, "Failed to get fuel purchase", err)
		return
	}
	response.Success(c, purchase)
}

// DeletePurchase handles DELETE /api/v1/fuel-purchases/:id
func (h *FuelHandler) DeletePurchase(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		fail(c, "Failed to delete fuel purchase", err)
		return
	}
	response.Success(c, gin.H{"message": "Fuel purchase deleted"})
}
