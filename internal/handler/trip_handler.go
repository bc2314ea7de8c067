package handler

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jengzang/ifta-backend-go/internal/models"
	"github.com/jengzang/ifta-backend-go/internal/service"
	"github.com/jengzang/ifta-backend-go/pkg/response"
)

// TripHandler handles HTTP requests for recorded trips
type TripHandler struct {
	service  *service.TripService
	tracking *service.TrackingService
}

// NewTripHandler creates a new trip handler
func NewTripHandler(service *service.TripService, tracking *service.TrackingService) *TripHandler {
	return &TripHandler{service: service, tracking: tracking}
}

// GetTrips handles GET /api/v1/trips
func (h *TripHandler) GetTrips(c *gin.Context) {
	var filter models.TripFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		response.BadRequest(c, "Invalid query parameters", err)
		return
	}
	filter.Normalize()

	trips, total, err := h.service.GetTrips(c.Request.Context(), filter)
	if err != nil {
		fail(c, "Failed to get trips", err)
		return
	}

	response.Success(c, gin.H{
		"data":       trips,
		"total":      total,
		"page":       filter.Page,
		"pageSize":   filter.PageSize,
		"totalPages": models.TotalPages(total, filter.PageSize),
	})
}

// GetActiveTrip handles GET /api/v1/trips/active
func (h *TripHandler) GetActiveTrip(c *gin.Context) {
	trip, err := h.tracking.Active(c.Request.Context())
	if err != nil {
		fail(c, "Failed to get active trip", err)
		return
	}
	if trip == nil {
		response.NotFound(c, "No active trip")
		return
	}
	response.Success(c, trip)
}

// GetTripByID handles GET /api/v1/trips/:id
func (h *TripHandler) GetTripByID(c *gin.Context) {
	trip, err := h.service.GetTripByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, "Failed to get trip", err)
		return
	}
	response.Success(c, trip)
}

// GetRoute handles GET /api/v1/trips/:id/route
func (h *TripHandler) GetRoute(c *gin.Context) {
	var opts service.RouteOptions
	if err := c.ShouldBindQuery(&opts); err != nil {
		response.BadRequest(c, "Invalid route options", err)
		return
	}

	route, err := h.service.Route(c.Request.Context(), c.Param("id"), opts)
	if err != nil {
		fail(c, "Failed to build route", err)
		return
	}
	response.Success(c, route)
}

// GetRouteKML handles GET /api/v1/trips/:id/route.kml
func (h *TripHandler) GetRouteKML(c *gin.Context) {
	id := c.Param("id")

	var buf bytes.Buffer
	if err := h.service.WriteKML(c.Request.Context(), id, &buf); err != nil {
		fail(c, "Failed to export route", err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="trip_%s.kml"`, id))
	c.Data(http.StatusOK, "application/vnd.google-earth.kml+xml", buf.Bytes())
}

// DeleteTrip handles DELETE /api/v1/trips/:id
func (h *TripHandler) DeleteTrip(c *gin.Context) {
	if err := h.service.DeleteTrip(c.Request.Context(), c.Param("id")); err != nil {
		fail(c, "Failed to delete trip", err)
		return
	}
	response.Success(c, gin.H{"message": "Trip deleted"})
}
