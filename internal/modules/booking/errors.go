package booking

import "hotelbooking/internal/pkg/apperr"

var (
	ErrMissingTransactionID = apperr.Validation("payment event has no transaction id")
	ErrBookingNotFound      = apperr.NotFound("booking not found")
)
