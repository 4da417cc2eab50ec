package booking

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roomdesk/room-booking-api/internal/model"
)

// fakeStore is an in-memory Store with the same atomicity contract as
// the SQL implementation: the overlap check and the write happen under
// one lock.
type fakeStore struct {
	mu     sync.Mutex
	nextID uint64
	rows   map[uint64]model.Booking
}

func newFakeStore() *fakeStore {
	return &fakeStore{nextID: 1, rows: map[uint64]model.Booking{}}
}

func (s *fakeStore) overlapLocked(roomID uint64, start, end time.Time, excludeID uint64) bool {
	for _, b := range s.rows {
		if b.ID == excludeID || b.RoomID != roomID || b.Status != model.BookingStatusConfirmed {
			continue
		}
		if Overlaps(b.StartTime, b.EndTime, start, end) {
			return true
		}
	}
	return false
}

func (s *fakeStore) FindByID(_ context.Context, id uint64) (*model.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.rows[id]
	if !ok {
		return nil, ErrBookingNotFound
	}
	return &b, nil
}

func (s *fakeStore) CreateIfNoOverlap(_ context.Context, b *model.Booking) (*model.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.overlapLocked(b.RoomID, b.StartTime, b.EndTime, 0) {
		return nil, ErrRoomAlreadyBooked
	}
	stored := *b
	stored.ID = s.nextID
	s.nextID++
	s.rows[stored.ID] = stored
	return &stored, nil
}

func (s *fakeStore) UpdateByID(_ context.Context, id uint64, p Patch) (*model.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.rows[id]
	if !ok {
		return nil, ErrBookingNotFound
	}
	next := cur
	if p.RoomID != nil {
		next.RoomID = *p.RoomID
	}
	if p.Title != nil {
		next.Title = *p.Title
	}
	if p.StartTime != nil {
		next.StartTime, next.EndTime = *p.StartTime, *p.EndTime
	}
	if p.Status != nil {
		next.Status = *p.Status
	}
	if p.Attendees != nil {
		next.Attendees = *p.Attendees
	}
	needsProbe := next.Status == model.BookingStatusConfirmed &&
		(p.StartTime != nil || p.RoomID != nil || (p.Status != nil && cur.Status != model.BookingStatusConfirmed))
	if needsProbe && s.overlapLocked(next.RoomID, next.StartTime, next.EndTime, id) {
		return nil, ErrRoomAlreadyBooked
	}
	s.rows[id] = next
	return &next, nil
}

func (s *fakeStore) DeleteByID(_ context.Context, id uint64) (*model.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.rows[id]
	if !ok {
		return nil, ErrBookingNotFound
	}
	delete(s.rows, id)
	return &b, nil
}

func (s *fakeStore) FindAll(_ context.Context, f Filter) ([]model.Booking, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var all []model.Booking
	for _, b := range s.rows {
		if f.BookingID != nil && b.ID != *f.BookingID {
			continue
		}
		if f.UserID != nil && b.UserID != *f.UserID {
			continue
		}
		if f.RoomID != nil && b.RoomID != *f.RoomID {
			continue
		}
		if f.Status != nil && b.Status != *f.Status {
			continue
		}
		if f.StartFrom != nil && b.StartTime.Before(*f.StartFrom) {
			continue
		}
		if f.StartTo != nil && !b.StartTime.Before(*f.StartTo) {
			continue
		}
		all = append(all, b)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	total := int64(len(all))
	off := (f.Page - 1) * f.Limit
	if off >= len(all) {
		return nil, total, nil
	}
	end := off + f.Limit
	if end > len(all) {
		end = len(all)
	}
	return all[off:end], total, nil
}

// fakeDirectory answers existence checks for rooms and users.
type fakeDirectory map[uint64]bool

func (d fakeDirectory) ExistsByID(_ context.Context, id uint64) (bool, error) {
	return d[id], nil
}

func at(h, m int) time.Time {
	return time.Date(2026, 9, 14, h, m, 0, 0, time.UTC)
}

func newTestResolver() (*Resolver, *fakeStore) {
	store := newFakeStore()
	rooms := fakeDirectory{1: true, 2: true}
	users := fakeDirectory{10: true, 11: true}
	return NewResolver(store, rooms, users), store
}

func mustCreate(t *testing.T, r *Resolver, roomID, userID uint64, start, end time.Time) *model.Booking {
	t.Helper()
	b, err := r.Create(context.Background(), CreateInput{
		RoomID: roomID, UserID: userID, Title: "standup",
		StartTime: start, EndTime: end,
	})
	require.NoError(t, err)
	return b
}

func TestCreateConfirmsFreeSlot(t *testing.T) {
	r, _ := newTestResolver()

	b := mustCreate(t, r, 1, 10, at(9, 0), at(10, 0))
	assert.Equal(t, model.BookingStatusConfirmed, b.Status)
	assert.NotZero(t, b.ID)
	assert.NotNil(t, b.Attendees, "attendees must default to an empty list")
}

func TestCreateValidationOrder(t *testing.T) {
	r, _ := newTestResolver()
	ctx := context.Background()

	_, err := r.Create(ctx, CreateInput{RoomID: 0, UserID: 10, StartTime: at(9, 0), EndTime: at(10, 0)})
	assert.ErrorIs(t, err, ErrInvalidRoomID)

	_, err = r.Create(ctx, CreateInput{RoomID: 99, UserID: 10, StartTime: at(9, 0), EndTime: at(10, 0)})
	assert.ErrorIs(t, err, ErrRoomNotFound)

	_, err = r.Create(ctx, CreateInput{RoomID: 1, UserID: 0, StartTime: at(9, 0), EndTime: at(10, 0)})
	assert.ErrorIs(t, err, ErrInvalidUserID)

	_, err = r.Create(ctx, CreateInput{RoomID: 1, UserID: 99, StartTime: at(9, 0), EndTime: at(10, 0)})
	assert.ErrorIs(t, err, ErrUserNotFound)

	_, err = r.Create(ctx, CreateInput{RoomID: 1, UserID: 10, StartTime: at(10, 0), EndTime: at(9, 0)})
	assert.ErrorIs(t, err, ErrInvalidTimeRange)
}

func TestCreateRejectsOverlap(t *testing.T) {
	r, _ := newTestResolver()
	ctx := context.Background()
	mustCreate(t, r, 1, 10, at(10, 0), at(11, 0))

	cases := []struct {
		name       string
		start, end time.Time
	}{
		{"identical interval", at(10, 0), at(11, 0)},
		{"starts inside", at(10, 30), at(11, 30)},
		{"ends inside", at(9, 30), at(10, 30)},
		{"fully contains", at(9, 0), at(12, 0)},
		{"fully contained", at(10, 15), at(10, 45)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := r.Create(ctx, CreateInput{
				RoomID: 1, UserID: 11, Title: "clash",
				StartTime: tc.start, EndTime: tc.end,
			})
			assert.ErrorIs(t, err, ErrRoomAlreadyBooked)
		})
	}
}

func TestCreateAllowsBackToBack(t *testing.T) {
	r, _ := newTestResolver()
	mustCreate(t, r, 1, 10, at(10, 0), at(11, 0))

	// Sharing an endpoint is not an overlap in either direction.
	mustCreate(t, r, 1, 11, at(11, 0), at(12, 0))
	mustCreate(t, r, 1, 11, at(9, 0), at(10, 0))
}

func TestCreateIgnoresOtherRoomsAndCancelled(t *testing.T) {
	r, store := newTestResolver()
	ctx := context.Background()
	b := mustCreate(t, r, 1, 10, at(10, 0), at(11, 0))

	// Same slot in another room is fine.
	mustCreate(t, r, 2, 11, at(10, 0), at(11, 0))

	// A cancelled booking does not block the slot.
	cancelled := model.BookingStatusCancelled
	_, err := store.UpdateByID(ctx, b.ID, Patch{Status: &cancelled})
	require.NoError(t, err)
	mustCreate(t, r, 1, 11, at(10, 0), at(11, 0))
}

func TestUpdateRejectsHalfSpecifiedInterval(t *testing.T) {
	r, _ := newTestResolver()
	ctx := context.Background()
	b := mustCreate(t, r, 1, 10, at(10, 0), at(11, 0))

	start := at(12, 0)
	_, err := r.Update(ctx, b.ID, Patch{StartTime: &start})
	assert.ErrorIs(t, err, ErrMissingTimeField)

	end := at(13, 0)
	_, err = r.Update(ctx, b.ID, Patch{EndTime: &end})
	assert.ErrorIs(t, err, ErrMissingTimeField)

	// Untouched after the rejected patches.
	got, err := r.store.FindByID(ctx, b.ID)
	require.NoError(t, err)
	assert.True(t, got.StartTime.Equal(at(10, 0)))
	assert.True(t, got.EndTime.Equal(at(11, 0)))
}

func TestUpdateExcludesOwnInterval(t *testing.T) {
	r, _ := newTestResolver()
	ctx := context.Background()
	b := mustCreate(t, r, 1, 10, at(10, 0), at(11, 0))

	// Shifting within (or equal to) its own slot must not self-conflict.
	start, end := at(10, 15), at(10, 45)
	got, err := r.Update(ctx, b.ID, Patch{StartTime: &start, EndTime: &end})
	require.NoError(t, err)
	assert.True(t, got.StartTime.Equal(start))
	assert.True(t, got.EndTime.Equal(end))
}

func TestUpdateRejectsMoveIntoOccupiedSlot(t *testing.T) {
	r, _ := newTestResolver()
	ctx := context.Background()
	mustCreate(t, r, 1, 10, at(10, 0), at(11, 0))
	b := mustCreate(t, r, 1, 11, at(14, 0), at(15, 0))

	start, end := at(10, 30), at(11, 30)
	_, err := r.Update(ctx, b.ID, Patch{StartTime: &start, EndTime: &end})
	assert.ErrorIs(t, err, ErrRoomAlreadyBooked)
}

func TestUpdateChecksRoomMove(t *testing.T) {
	r, _ := newTestResolver()
	ctx := context.Background()
	mustCreate(t, r, 2, 10, at(10, 0), at(11, 0))
	b := mustCreate(t, r, 1, 11, at(10, 0), at(11, 0))

	room := uint64(2)
	_, err := r.Update(ctx, b.ID, Patch{RoomID: &room})
	assert.ErrorIs(t, err, ErrRoomAlreadyBooked)

	unknown := uint64(99)
	_, err = r.Update(ctx, b.ID, Patch{RoomID: &unknown})
	assert.ErrorIs(t, err, ErrRoomNotFound)
}

func TestUpdateChecksReconfirmation(t *testing.T) {
	r, store := newTestResolver()
	ctx := context.Background()
	b := mustCreate(t, r, 1, 10, at(10, 0), at(11, 0))

	cancelled := model.BookingStatusCancelled
	_, err := store.UpdateByID(ctx, b.ID, Patch{Status: &cancelled})
	require.NoError(t, err)

	// The freed slot is taken by someone else.
	mustCreate(t, r, 1, 11, at(10, 0), at(11, 0))

	confirmed := model.BookingStatusConfirmed
	_, err = r.Update(ctx, b.ID, Patch{Status: &confirmed})
	assert.ErrorIs(t, err, ErrRoomAlreadyBooked)
}

func TestUpdateUnknownBooking(t *testing.T) {
	r, _ := newTestResolver()
	title := "renamed"
	_, err := r.Update(context.Background(), 0, Patch{Title: &title})
	assert.ErrorIs(t, err, ErrBookingNotFound)
	_, err = r.Update(context.Background(), 42, Patch{Title: &title})
	assert.ErrorIs(t, err, ErrBookingNotFound)
}

func TestDeleteReturnsPriorState(t *testing.T) {
	r, _ := newTestResolver()
	ctx := context.Background()
	b := mustCreate(t, r, 1, 10, at(10, 0), at(11, 0))

	got, err := r.DeleteByID(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, b.ID, got.ID)

	_, err = r.DeleteByID(ctx, b.ID)
	assert.ErrorIs(t, err, ErrBookingNotFound)
}

func TestListAllFiltersAndPaginates(t *testing.T) {
	r, _ := newTestResolver()
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		mustCreate(t, r, 1, 10, at(8+i, 0), at(8+i, 30))
	}
	mustCreate(t, r, 2, 11, at(9, 0), at(9, 30))

	user := uint64(10)
	res, err := r.ListAll(ctx, Filter{UserID: &user, Page: 1, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(5), res.Total)
	require.Len(t, res.Data, 2)
	assert.Less(t, res.Data[0].ID, res.Data[1].ID)

	res, err = r.ListAll(ctx, Filter{UserID: &user, Page: 3, Limit: 2})
	require.NoError(t, err)
	assert.Len(t, res.Data, 1)

	// Out-of-range pages return an empty list, not nil.
	res, err = r.ListAll(ctx, Filter{UserID: &user, Page: 9, Limit: 2})
	require.NoError(t, err)
	assert.NotNil(t, res.Data)
	assert.Empty(t, res.Data)

	// The booking_id filter pins the result to a single row.
	id := uint64(3)
	res, err = r.ListAll(ctx, Filter{BookingID: &id})
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.Total)
	require.Len(t, res.Data, 1)
	assert.Equal(t, id, res.Data[0].ID)
}

func TestConcurrentCreatesSingleWinner(t *testing.T) {
	r, _ := newTestResolver()
	const writers = 16

	var wg sync.WaitGroup
	errs := make([]error, writers)
	start := make(chan struct{})
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			_, errs[i] = r.Create(context.Background(), CreateInput{
				RoomID: 1, UserID: 10, Title: "race",
				StartTime: at(10, 0), EndTime: at(11, 0),
			})
		}(i)
	}
	close(start)
	wg.Wait()

	wins := 0
	for _, err := range errs {
		if err == nil {
			wins++
		} else {
			assert.ErrorIs(t, err, ErrRoomAlreadyBooked)
		}
	}
	assert.Equal(t, 1, wins, "exactly one concurrent create may commit")
}
