package errors

import "errors"

var (
	ErrNotFound = errors.New("reservation not found")

	ErrInvalidID = errors.New("invalid reservation ID format")

	// ErrVersionConflict means the reservation changed between read and
	// write; the caller should reload and re-apply its guard.
	ErrVersionConflict = errors.New("reservation was modified concurrently")

	ErrRoomNotFound = errors.New("room not found")

	ErrGuestNotFound = errors.New("guest not found")
)
