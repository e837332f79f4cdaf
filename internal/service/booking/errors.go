package booking

import "errors"

var (
	// ErrInvalidRequest rejects malformed input before storage is touched.
	ErrInvalidRequest = errors.New("invalid reservation request")
	// ErrSlotNotFound covers a missing slot and a slot/experience mismatch.
	ErrSlotNotFound = errors.New("slot not found")
	// ErrInsufficientCapacity is a business outcome, not a fault: the slot
	// holds fewer spots than requested, or a concurrent booking won the race.
	ErrInsufficientCapacity = errors.New("not enough available spots")
	// ErrReservationFailed is a storage or transaction fault. Nothing was
	// committed, so retrying is safe.
	ErrReservationFailed = errors.New("reservation failed")
	ErrBookingNotFound   = errors.New("booking not found")
	ErrRateLimited       = errors.New("rate limited")
)
