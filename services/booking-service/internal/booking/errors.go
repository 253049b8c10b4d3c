package booking

import "errors"

// Expected outcomes of user input. Reported to the caller with a stable
// message, never retried. Anything else bubbling out of the engine is an
// infrastructure failure.
var (
	ErrValidation         = errors.New("missing or malformed booking fields")
	ErrSelfBooking        = errors.New("client and provider must be different users")
	ErrInvalidProvider    = errors.New("provider not found or not bookable")
	ErrPastDate           = errors.New("appointment time is in the past")
	ErrSlotTaken          = errors.New("slot unavailable")
	ErrUnauthorized       = errors.New("only admins and receptionists can cancel appointments")
	ErrNotFound           = errors.New("appointment not found")
	ErrAlreadyCanceled    = errors.New("appointment is already canceled")
	ErrCancellationWindow = errors.New("appointments can only be canceled up to the lead time before their start")
)
