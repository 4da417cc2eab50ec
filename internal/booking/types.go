package booking

import (
	"context"
	"time"

	"github.com/roomdesk/room-booking-api/internal/model"
)

// CreateInput carries a validated create request into the Resolver.
// UserID is always the authenticated principal's id; it is never taken
// from the client payload.  The office-hours policy is assumed to have
// been applied to the time pair before the Resolver sees it.
type CreateInput struct {
	RoomID    uint64
	UserID    uint64
	Title     string
	StartTime time.Time
	EndTime   time.Time
	Attendees []model.Attendee
}

// Patch describes a partial booking update.  A nil pointer means the
// field is absent from the request and must be left untouched; this is
// distinct from a present-but-empty value.  Attendees is a pointer to a
// slice for the same reason: nil leaves the list alone, a pointer to an
// empty slice clears it.
type Patch struct {
	RoomID    *uint64
	Title     *string
	StartTime *time.Time
	EndTime   *time.Time
	Status    *string
	Attendees *[]model.Attendee
}

// Filter selects bookings for ListAll.  Nil pointers mean "no
// constraint".  StartFrom/StartTo bound start_time as a half-open
// window [StartFrom, StartTo).  Page and Limit are 1-based; values
// below 1 fall back to the defaults.
type Filter struct {
	BookingID *uint64
	UserID    *uint64
	RoomID    *uint64
	Status    *string
	StartFrom *time.Time
	StartTo   *time.Time
	Page      int
	Limit     int
}

// Pagination defaults applied by Filter.normalize.
const (
	DefaultPage  = 1
	DefaultLimit = 10
)

func (f *Filter) normalize() {
	if f.Page < 1 {
		f.Page = DefaultPage
	}
	if f.Limit < 1 {
		f.Limit = DefaultLimit
	}
}

// ListResult is the ListAll response: one page of bookings plus the
// pagination metadata callers need to fetch the rest.
type ListResult struct {
	Data  []model.Booking `json:"data"`
	Total int64           `json:"total"`
	Page  int             `json:"page"`
	Limit int             `json:"limit"`
}

// Store is the persistence contract the Resolver depends on.  The two
// mutating methods that can violate the no-overlap invariant,
// CreateIfNoOverlap and UpdateByID, must perform their conflict check
// and their write atomically with respect to concurrent calls for the
// same room, and must return ErrRoomAlreadyBooked when a confirmed
// overlapping booking exists (excluding the booking's own id on
// update).  Lookup methods return ErrBookingNotFound for unknown ids.
type Store interface {
	FindByID(ctx context.Context, id uint64) (*model.Booking, error)
	CreateIfNoOverlap(ctx context.Context, b *model.Booking) (*model.Booking, error)
	UpdateByID(ctx context.Context, id uint64, p Patch) (*model.Booking, error)
	DeleteByID(ctx context.Context, id uint64) (*model.Booking, error)
	FindAll(ctx context.Context, f Filter) ([]model.Booking, int64, error)
}

// RoomDirectory answers room-existence checks.  Rooms are read-only
// from the booking core's perspective.
type RoomDirectory interface {
	ExistsByID(ctx context.Context, id uint64) (bool, error)
}

// UserDirectory answers user-existence checks.
type UserDirectory interface {
	ExistsByID(ctx context.Context, id uint64) (bool, error)
}
