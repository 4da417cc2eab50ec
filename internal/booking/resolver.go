package booking

import (
	"context"

	"github.com/roomdesk/room-booking-api/internal/model"
)

// Resolver decides whether booking mutations may be committed.  All
// dependencies are injected so tests can substitute an in-memory store;
// there is no package-level state.
type Resolver struct {
	store Store
	rooms RoomDirectory
	users UserDirectory
}

// NewResolver constructs a Resolver.  All dependencies must be non-nil.
func NewResolver(store Store, rooms RoomDirectory, users UserDirectory) *Resolver {
	if store == nil || rooms == nil || users == nil {
		panic("nil dependency passed to NewResolver")
	}
	return &Resolver{store: store, rooms: rooms, users: users}
}

// Create validates a new booking and commits it with status confirmed.
// Validation order: room id format, room existence, user id format,
// user existence, interval ordering, then the atomic overlap check and
// insert.  On failure nothing is written.
//
// The overlap check and the insert are one storage transaction, so two
// racing creates for overlapping slots in the same room resolve to
// exactly one winner; the loser gets ErrRoomAlreadyBooked.
func (r *Resolver) Create(ctx context.Context, in CreateInput) (*model.Booking, error) {
	if in.RoomID == 0 {
		return nil, ErrInvalidRoomID
	}
	ok, err := r.rooms.ExistsByID(ctx, in.RoomID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrRoomNotFound
	}
	if in.UserID == 0 {
		return nil, ErrInvalidUserID
	}
	ok, err = r.users.ExistsByID(ctx, in.UserID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrUserNotFound
	}
	if !in.EndTime.After(in.StartTime) {
		return nil, ErrInvalidTimeRange
	}

	attendees := in.Attendees
	if attendees == nil {
		attendees = []model.Attendee{}
	}
	b := &model.Booking{
		RoomID:    in.RoomID,
		UserID:    in.UserID,
		Title:     in.Title,
		StartTime: in.StartTime.UTC(),
		EndTime:   in.EndTime.UTC(),
		Status:    model.BookingStatusConfirmed,
		Attendees: attendees,
	}
	return r.store.CreateIfNoOverlap(ctx, b)
}

// Update applies a partial edit to an existing booking.  Fields absent
// from the patch are left untouched.  startTime and endTime may only be
// changed together; a half-specified interval is rejected with
// ErrMissingTimeField before anything is written.
//
// The store re-reads the booking and re-runs the overlap check (with
// the booking's own id excluded) inside the update transaction whenever
// the patch can affect the no-overlap invariant: a time change, a room
// move, or a status flip back to confirmed.
func (r *Resolver) Update(ctx context.Context, id uint64, p Patch) (*model.Booking, error) {
	if id == 0 {
		return nil, ErrBookingNotFound
	}
	if _, err := r.store.FindByID(ctx, id); err != nil {
		return nil, err
	}
	if p.RoomID != nil {
		if *p.RoomID == 0 {
			return nil, ErrInvalidRoomID
		}
		ok, err := r.rooms.ExistsByID(ctx, *p.RoomID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, ErrRoomNotFound
		}
	}
	if (p.StartTime == nil) != (p.EndTime == nil) {
		return nil, ErrMissingTimeField
	}
	if p.StartTime != nil {
		if !p.EndTime.After(*p.StartTime) {
			return nil, ErrInvalidTimeRange
		}
		s, e := p.StartTime.UTC(), p.EndTime.UTC()
		p.StartTime, p.EndTime = &s, &e
	}
	return r.store.UpdateByID(ctx, id, p)
}

// DeleteByID physically removes a booking and returns its prior state.
// There is no soft delete.
func (r *Resolver) DeleteByID(ctx context.Context, id uint64) (*model.Booking, error) {
	if id == 0 {
		return nil, ErrBookingNotFound
	}
	return r.store.DeleteByID(ctx, id)
}

// ListAll returns one page of bookings matching the filter, newest-page
// semantics left to the caller: results are stable-ordered by creation
// (ascending id) so identical filters yield identical pages between
// writes.
func (r *Resolver) ListAll(ctx context.Context, f Filter) (*ListResult, error) {
	f.normalize()
	data, total, err := r.store.FindAll(ctx, f)
	if err != nil {
		return nil, err
	}
	if data == nil {
		data = []model.Booking{}
	}
	return &ListResult{Data: data, Total: total, Page: f.Page, Limit: f.Limit}, nil
}
