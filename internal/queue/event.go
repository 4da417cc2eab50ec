// Package queue defines the message payloads exchanged over the broker
// and the background consumers that process them.
package queue

// Queue names.  Both queues are declared durable and messages are
// published persistent, so confirmed bookings and account notifications
// survive a broker restart.
const (
	BookingConfirmedQueue = "booking.confirmed"
	UserCreatedQueue      = "user.created"
)

// BookingConfirmedEvent is published after a booking commits with
// status confirmed.  It carries enough denormalized detail for
// downstream consumers to log or notify without querying the primary
// database.  Times are RFC 3339 UTC strings.
type BookingConfirmedEvent struct {
	EventID       string `json:"event_id"`
	BookingID     uint64 `json:"booking_id"`
	RoomID        uint64 `json:"room_id"`
	RoomName      string `json:"room_name"`
	UserID        uint64 `json:"user_id"`
	UserEmail     string `json:"user_email"`
	Title         string `json:"title"`
	StartTime     string `json:"start_time"`
	EndTime       string `json:"end_time"`
	AttendeeCount int    `json:"attendee_count"`
	ConfirmedAt   string `json:"confirmed_at"`
}

// UserCreatedEvent is published when an admin provisions an account.
// The mail consumer turns it into a welcome message carrying the
// temporary password.
type UserCreatedEvent struct {
	EventID      string `json:"event_id"`
	UserID       uint64 `json:"user_id"`
	Name         string `json:"name"`
	Email        string `json:"email"`
	Role         string `json:"role"`
	TempPassword string `json:"temp_password"`
	CreatedAt    string `json:"created_at"`
}
