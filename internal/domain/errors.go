package domain

import "errors"

// Domain errors
var (
	// Booking errors
	ErrBookingNotFound   = errors.New("booking not found")
	ErrInvalidTransition = errors.New("invalid booking status transition")

	// Validation errors
	ErrInvalidRange       = errors.New("end date precedes start date")
	ErrBelowMinimumStay   = errors.New("date range shorter than minimum stay")
	ErrMissingSubTarget   = errors.New("slot category requires a sub target")
	ErrInvalidContentItem = errors.New("invalid content item id")
	ErrInvalidRequester   = errors.New("invalid requester id")

	// Contention errors
	ErrCapacityExceeded = errors.New("no remaining capacity for requested dates")

	// Catalog errors
	ErrCategoryNotFound = errors.New("slot category not found in pricing catalog")
	ErrCategoryInactive = errors.New("slot category is not open for booking")

	// Integration errors
	ErrCheckoutUnavailable = errors.New("checkout session could not be created")
)

// IsNotFoundError checks if the error is a not found error
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrBookingNotFound) ||
		errors.Is(err, ErrCategoryNotFound)
}

// IsValidationError checks if the error is a validation error
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidRange) ||
		errors.Is(err, ErrBelowMinimumStay) ||
		errors.Is(err, ErrMissingSubTarget) ||
		errors.Is(err, ErrInvalidContentItem) ||
		errors.Is(err, ErrInvalidRequester) ||
		errors.Is(err, ErrCategoryInactive)
}

// IsConflictError checks if the error is a contention error
func IsConflictError(err error) bool {
	return errors.Is(err, ErrCapacityExceeded) ||
		errors.Is(err, ErrInvalidTransition)
}
