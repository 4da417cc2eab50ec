// Package booking implements the conflict-detection core of the room
// booking service.  The Resolver validates a proposed or edited booking
// against room/user existence and against already-confirmed bookings,
// and decides atomically whether it may be committed.  It raises the
// tagged errors below and never logs, retries or swallows them; the
// HTTP layer owns the mapping to status codes.
package booking

import "errors"

// Domain errors raised by the Resolver.  Handlers dispatch on these
// sentinels with errors.Is; none of them carries a retry hint.
var (
	// ErrInvalidRoomID indicates a room id that is not a well-formed
	// identifier.  It is raised before any store access.
	ErrInvalidRoomID = errors.New("invalid room id")

	// ErrRoomNotFound indicates that no room exists for the given id.
	ErrRoomNotFound = errors.New("room not found")

	// ErrInvalidUserID indicates a user id that is not a well-formed
	// identifier.
	ErrInvalidUserID = errors.New("invalid user id")

	// ErrUserNotFound indicates that no user exists for the given id.
	ErrUserNotFound = errors.New("user not found")

	// ErrRoomAlreadyBooked indicates that a confirmed booking already
	// occupies an overlapping slice of the requested interval.  A
	// storage-level transaction abort caused by a racing writer is
	// surfaced under this same tag.
	ErrRoomAlreadyBooked = errors.New("room is booked")

	// ErrBookingNotFound indicates that the booking id does not resolve.
	ErrBookingNotFound = errors.New("booking not found")

	// ErrMissingTimeField indicates a patch that contains only one of
	// startTime/endTime.  A half-specified interval cannot be checked
	// for ordering or overlap, so partial time edits are rejected.
	ErrMissingTimeField = errors.New("missing time field")

	// ErrInvalidTimeRange indicates an interval whose end does not lie
	// strictly after its start.
	ErrInvalidTimeRange = errors.New("end time must be after start time")
)
