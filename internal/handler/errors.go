package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jengzang/ifta-backend-go/internal/service"
	"github.com/jengzang/ifta-backend-go/pkg/response"
)

// statusFor maps service errors to HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrTripNotFound),
		errors.Is(err, service.ErrFuelPurchaseNotFound),
		errors.Is(err, service.ErrTaskNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrTripAlreadyActive),
		errors.Is(err, service.ErrNoActiveTrip),
		errors.Is(err, service.ErrTripStillActive):
		return http.StatusConflict
	case errors.Is(err, service.ErrInvalidFix),
		errors.Is(err, service.ErrInvalidRoute),
		errors.Is(err, service.ErrInvalidFuelPurchase),
		errors.Is(err, service.ErrInvalidTaxRate),
		errors.Is(err, service.ErrInvalidTask):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrInvalidSession):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// fail writes err with its mapped status. Internal errors keep the generic
// message; client errors use the error text.
func fail(c *gin.Context, message string, err error) {
	code := statusFor(err)
	if code != http.StatusInternalServerError {
		message = err.Error()
	}
	response.Error(c, code, message, err)
}
