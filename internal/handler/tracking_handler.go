package handler

import (
	"errors"
	"io"

	"github.com/gin-gonic/gin"

	"github.com/jengzang/ifta-backend-go/internal/service"
	"github.com/jengzang/ifta-backend-go/pkg/response"
)

// TrackingHandler handles the live tracking endpoints
type TrackingHandler struct {
	service *service.TrackingService
}

// NewTrackingHandler creates a new tracking handler
func NewTrackingHandler(service *service.TrackingService) *TrackingHandler {
	return &TrackingHandler{service: service}
}

// StartTrip handles POST /api/v1/trips/start
func (h *TrackingHandler) StartTrip(c *gin.Context) {
	var req service.StartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body", err)
		return
	}

	result, err := h.service.Start(c.Request.Context(), req)
	if err != nil {
		fail(c, "Failed to start trip", err)
		return
	}
	response.Created(c, result)
}

// RecordFix handles POST /api/v1/trips/:id/fixes
func (h *TrackingHandler) RecordFix(c *gin.Context) {
	var raw service.RawFix
	if err := c.ShouldBindJSON(&raw); err != nil {
		response.BadRequest(c, "Invalid request body", err)
		return
	}

	result, err := h.service.RecordFix(c.Request.Context(), c.Param("id"), raw)
	if err != nil {
		fail(c, "Failed to record fix", err)
		return
	}
	response.Success(c, result)
}

// StopTrip handles POST /api/v1/trips/:id/stop. The body is optional.
func (h *TrackingHandler) StopTrip(c *gin.Context) {
	var req service.StopRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		response.BadRequest(c, "Invalid request body", err)
		return
	}

	trip, err := h.service.Stop(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		fail(c, "Failed to stop trip", err)
		return
	}
	response.Success(c, trip)
}
