package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roomdesk/room-booking-api/internal/booking"
	"github.com/roomdesk/room-booking-api/internal/model"
)

var bookingCols = []string{
	"id", "room_id", "user_id", "title", "start_time", "end_time",
	"status", "attendees", "created_at", "updated_at",
}

func bookingRow(id, roomID, userID uint64, title string, start, end time.Time, status string) *sqlmock.Rows {
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	return sqlmock.NewRows(bookingCols).
		AddRow(id, roomID, userID, title, start, end, status, []byte(`[]`), now, now)
}

func newMockRepo(t *testing.T) (*BookingRepo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewBookingRepo(db), mock
}

func TestFindByIDMapsNoRows(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectQuery("SELECT .+ FROM bookings WHERE id").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByID(context.Background(), 42)
	assert.ErrorIs(t, err, booking.ErrBookingNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateIfNoOverlapCommitsWhenFree(t *testing.T) {
	repo, mock := newMockRepo(t)
	start := time.Date(2026, 9, 14, 10, 0, 0, 0, time.UTC)
	end := start.Add(time.Hour)

	mock.ExpectBegin()
	// Overlap probe holds the range lock until commit; arguments mirror
	// the strict comparison: start_time < end AND end_time > start.
	mock.ExpectQuery("SELECT id FROM bookings").
		WithArgs(uint64(1), model.BookingStatusConfirmed, end, start).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectExec("INSERT INTO bookings").
		WillReturnResult(sqlmock.NewResult(7, 1))
	mock.ExpectQuery("SELECT .+ FROM bookings WHERE id").
		WillReturnRows(bookingRow(7, 1, 10, "standup", start, end, model.BookingStatusConfirmed))
	mock.ExpectCommit()

	got, err := repo.CreateIfNoOverlap(context.Background(), &model.Booking{
		RoomID: 1, UserID: 10, Title: "standup",
		StartTime: start, EndTime: end,
		Status: model.BookingStatusConfirmed, Attendees: []model.Attendee{},
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(7), got.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateIfNoOverlapRejectsOccupiedSlot(t *testing.T) {
	repo, mock := newMockRepo(t)
	start := time.Date(2026, 9, 14, 10, 0, 0, 0, time.UTC)
	end := start.Add(time.Hour)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id FROM bookings").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(3))
	mock.ExpectRollback()

	_, err := repo.CreateIfNoOverlap(context.Background(), &model.Booking{
		RoomID: 1, UserID: 10, StartTime: start, EndTime: end,
		Status: model.BookingStatusConfirmed, Attendees: []model.Attendee{},
	})
	assert.ErrorIs(t, err, booking.ErrRoomAlreadyBooked)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateIfNoOverlapFoldsLockAborts(t *testing.T) {
	repo, mock := newMockRepo(t)
	start := time.Date(2026, 9, 14, 10, 0, 0, 0, time.UTC)

	// A deadlock rollback means a racing writer took the window first.
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id FROM bookings").
		WillReturnError(&mysql.MySQLError{Number: 1213, Message: "Deadlock found when trying to get lock"})
	mock.ExpectRollback()

	_, err := repo.CreateIfNoOverlap(context.Background(), &model.Booking{
		RoomID: 1, UserID: 10, StartTime: start, EndTime: start.Add(time.Hour),
		Status: model.BookingStatusConfirmed, Attendees: []model.Attendee{},
	})
	assert.ErrorIs(t, err, booking.ErrRoomAlreadyBooked)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateByIDTimePatchReprobesExcludingSelf(t *testing.T) {
	repo, mock := newMockRepo(t)
	oldStart := time.Date(2026, 9, 14, 10, 0, 0, 0, time.UTC)
	newStart := time.Date(2026, 9, 14, 14, 0, 0, 0, time.UTC)
	newEnd := newStart.Add(time.Hour)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT .+ FROM bookings WHERE id .+ FOR UPDATE").
		WillReturnRows(bookingRow(7, 1, 10, "standup", oldStart, oldStart.Add(time.Hour), model.BookingStatusConfirmed))
	mock.ExpectQuery("SELECT id FROM bookings").
		WithArgs(uint64(1), model.BookingStatusConfirmed, newEnd, newStart, uint64(7)).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectExec("UPDATE bookings SET start_time = \\?, end_time = \\?").
		WithArgs(newStart, newEnd, uint64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("SELECT .+ FROM bookings WHERE id").
		WillReturnRows(bookingRow(7, 1, 10, "standup", newStart, newEnd, model.BookingStatusConfirmed))
	mock.ExpectCommit()

	got, err := repo.UpdateByID(context.Background(), 7, booking.Patch{StartTime: &newStart, EndTime: &newEnd})
	require.NoError(t, err)
	assert.True(t, got.StartTime.Equal(newStart))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateByIDCancellationSkipsProbe(t *testing.T) {
	repo, mock := newMockRepo(t)
	start := time.Date(2026, 9, 14, 10, 0, 0, 0, time.UTC)
	cancelled := model.BookingStatusCancelled

	// No overlap probe between the row lock and the update: a cancelled
	// booking cannot conflict with anything.
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT .+ FROM bookings WHERE id .+ FOR UPDATE").
		WillReturnRows(bookingRow(7, 1, 10, "standup", start, start.Add(time.Hour), model.BookingStatusConfirmed))
	mock.ExpectExec("UPDATE bookings SET status = \\?").
		WithArgs(cancelled, uint64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("SELECT .+ FROM bookings WHERE id").
		WillReturnRows(bookingRow(7, 1, 10, "standup", start, start.Add(time.Hour), cancelled))
	mock.ExpectCommit()

	got, err := repo.UpdateByID(context.Background(), 7, booking.Patch{Status: &cancelled})
	require.NoError(t, err)
	assert.Equal(t, cancelled, got.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateByIDRowReadLockErrorIsNotConflict(t *testing.T) {
	repo, mock := newMockRepo(t)
	title := "renamed"

	// A lock wait while reading the target row happens before any
	// interval comparison; it must surface as a storage failure, not as
	// a booked slot.
	lockErr := &mysql.MySQLError{Number: 1205, Message: "Lock wait timeout exceeded"}
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT .+ FROM bookings WHERE id .+ FOR UPDATE").
		WillReturnError(lockErr)
	mock.ExpectRollback()

	_, err := repo.UpdateByID(context.Background(), 7, booking.Patch{Title: &title})
	assert.NotErrorIs(t, err, booking.ErrRoomAlreadyBooked)
	var me *mysql.MySQLError
	require.ErrorAs(t, err, &me)
	assert.Equal(t, uint16(1205), me.Number)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateByIDUnknownBooking(t *testing.T) {
	repo, mock := newMockRepo(t)
	title := "renamed"

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT .+ FROM bookings WHERE id .+ FOR UPDATE").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	_, err := repo.UpdateByID(context.Background(), 42, booking.Patch{Title: &title})
	assert.ErrorIs(t, err, booking.ErrBookingNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteByIDReturnsPriorState(t *testing.T) {
	repo, mock := newMockRepo(t)
	start := time.Date(2026, 9, 14, 10, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT .+ FROM bookings WHERE id .+ FOR UPDATE").
		WillReturnRows(bookingRow(7, 1, 10, "standup", start, start.Add(time.Hour), model.BookingStatusConfirmed))
	mock.ExpectExec("DELETE FROM bookings WHERE id").
		WithArgs(uint64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	got, err := repo.DeleteByID(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, uint64(7), got.ID)
	assert.Equal(t, "standup", got.Title)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindAllAppliesFiltersAndPagination(t *testing.T) {
	repo, mock := newMockRepo(t)
	start := time.Date(2026, 9, 14, 10, 0, 0, 0, time.UTC)
	user := uint64(10)
	status := model.BookingStatusConfirmed

	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM bookings WHERE user_id = \\? AND status = \\?").
		WithArgs(user, status).
		WillReturnRows(sqlmock.NewRows([]string{"COUNT(*)"}).AddRow(12))
	mock.ExpectQuery("SELECT .+ FROM bookings WHERE user_id = \\? AND status = \\? ORDER BY id ASC LIMIT \\? OFFSET \\?").
		WithArgs(user, status, 5, 5).
		WillReturnRows(bookingRow(6, 1, user, "standup", start, start.Add(time.Hour), status))

	rows, total, err := repo.FindAll(context.Background(), booking.Filter{
		UserID: &user, Status: &status, Page: 2, Limit: 5,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(12), total)
	require.Len(t, rows, 1)
	assert.Equal(t, uint64(6), rows[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindOverlappingUsesStrictBounds(t *testing.T) {
	repo, mock := newMockRepo(t)
	start := time.Date(2026, 9, 14, 10, 0, 0, 0, time.UTC)
	end := start.Add(time.Hour)

	mock.ExpectQuery("start_time < \\? AND end_time > \\?").
		WithArgs(uint64(1), model.BookingStatusConfirmed, end, start, uint64(9)).
		WillReturnRows(bookingRow(3, 1, 11, "retro", start, end, model.BookingStatusConfirmed))

	got, err := repo.FindOverlapping(context.Background(), 1, start, end, model.BookingStatusConfirmed, 9)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, uint64(3), got[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
