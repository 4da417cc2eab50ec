package model

import "time"

// Booking status values stored in bookings.status.  Only confirmed
// bookings participate in overlap checks; cancelled bookings keep their
// row but release the time slot.
const (
	BookingStatusConfirmed = "confirmed"
	BookingStatusCancelled = "cancelled"
)

// ValidBookingStatus reports whether s is a known booking status.
func ValidBookingStatus(s string) bool {
	return s == BookingStatusConfirmed || s == BookingStatusCancelled
}

// Attendee is one entry of a booking's attendee list.  The list is
// stored as a JSON array column; insertion order is preserved for
// display but carries no other meaning.
type Attendee struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Booking represents a row in the `bookings` table.  A booking reserves
// one room for the half-open interval [StartTime, EndTime) on behalf of
// its owning user.  Timestamps are stored in UTC.
//
// Fields:
//  ID        – primary key identifier.
//  RoomID    – the reserved room (references rooms.id).
//  UserID    – the booking's owner (references users.id).
//  Title     – free-text meeting title.
//  StartTime – start of the reserved interval (inclusive).
//  EndTime   – end of the reserved interval (exclusive), after StartTime.
//  Status    – "confirmed" or "cancelled".
//  Attendees – attendee list (JSON column).
//  CreatedAt – creation timestamp, maintained by the store.
//  UpdatedAt – last update timestamp, maintained by the store.
type Booking struct {
	ID        uint64     `json:"id"`         // bookings.id
	RoomID    uint64     `json:"room_id"`    // bookings.room_id
	UserID    uint64     `json:"user_id"`    // bookings.user_id
	Title     string     `json:"title"`      // bookings.title
	StartTime time.Time  `json:"start_time"` // bookings.start_time
	EndTime   time.Time  `json:"end_time"`   // bookings.end_time
	Status    string     `json:"status"`     // bookings.status
	Attendees []Attendee `json:"attendees"`  // bookings.attendees (JSON)
	CreatedAt time.Time  `json:"created_at"` // bookings.created_at
	UpdatedAt time.Time  `json:"updated_at"` // bookings.updated_at
}
