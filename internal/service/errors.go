package service

import "errors"

// Service errors; handlers map them to HTTP status codes
var (
	ErrTripAlreadyActive    = errors.New("a trip is already active")
	ErrNoActiveTrip         = errors.New("trip is not active")
	ErrTripNotFound         = errors.New("trip not found")
	ErrTripStillActive      = errors.New("trip is still active")
	ErrInvalidRoute         = errors.New("invalid route options")
	ErrInvalidFix           = errors.New("invalid fix")
	ErrInvalidSession       = errors.New("invalid session")
	ErrInvalidFuelPurchase  = errors.New("invalid fuel purchase")
	ErrFuelPurchaseNotFound = errors.New("fuel purchase not found")
	ErrInvalidTaxRate       = errors.New("invalid tax rate")
	ErrTaskNotFound         = errors.New("analysis task not found")
	ErrInvalidTask          = errors.New("invalid analysis task")
)
