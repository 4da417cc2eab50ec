package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/roomdesk/room-booking-api/internal/booking"
	"github.com/roomdesk/room-booking-api/internal/model"
)

// bookingColumns is the canonical column list for booking reads; every
// SELECT in this file uses it so scanBooking stays the single scan path.
const bookingColumns = "id, room_id, user_id, title, start_time, end_time, status, attendees, created_at, updated_at"

// BookingRepo persists bookings in the 'bookings' table.  The two
// mutating entry points, CreateIfNoOverlap and UpdateByID, run their
// overlap check and their write inside one transaction with the checked
// rows locked (SELECT ... FOR UPDATE), so concurrent writers for the
// same room serialize on the storage engine's row locks and at most one
// of two overlapping requests commits.
type BookingRepo struct {
	db *sql.DB
}

// NewBookingRepo constructs a BookingRepo with the given DB handle.
func NewBookingRepo(db *sql.DB) *BookingRepo {
	return &BookingRepo{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

// scanBooking reads one row in bookingColumns order.  The attendees
// column holds a JSON array; NULL and empty both decode to an empty
// slice so callers never see a nil list.
func scanBooking(row rowScanner) (*model.Booking, error) {
	var (
		b   model.Booking
		raw []byte
	)
	err := row.Scan(&b.ID, &b.RoomID, &b.UserID, &b.Title, &b.StartTime, &b.EndTime,
		&b.Status, &raw, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return nil, err
	}
	b.Attendees = []model.Attendee{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &b.Attendees); err != nil {
			return nil, fmt.Errorf("decode attendees for booking %d: %w", b.ID, err)
		}
	}
	b.StartTime = b.StartTime.UTC()
	b.EndTime = b.EndTime.UTC()
	return &b, nil
}

// FindByID fetches one booking.  Unknown ids map to ErrBookingNotFound.
func (r *BookingRepo) FindByID(ctx context.Context, id uint64) (*model.Booking, error) {
	q := "SELECT " + bookingColumns + " FROM bookings WHERE id = ? LIMIT 1"
	b, err := scanBooking(r.db.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, booking.ErrBookingNotFound
	}
	return b, err
}

// FindOverlapping returns the bookings in roomID whose interval
// intersects [start, end) and whose status matches.  The comparison is
// strict on both sides (start_time < end AND end_time > start), so a
// booking that ends exactly when the window starts is not a hit.
// excludeID, when non-zero, drops that booking from the result; update
// paths pass the booking's own id here.
func (r *BookingRepo) FindOverlapping(ctx context.Context, roomID uint64, start, end time.Time, status string, excludeID uint64) ([]model.Booking, error) {
	q := "SELECT " + bookingColumns + ` FROM bookings
	      WHERE room_id = ? AND status = ? AND start_time < ? AND end_time > ?`
	args := []any{roomID, status, end.UTC(), start.UTC()}
	if excludeID != 0 {
		q += " AND id <> ?"
		args = append(args, excludeID)
	}
	q += " ORDER BY start_time"

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *b)
	}
	return out, rows.Err()
}

// overlapExistsTx runs the overlap probe inside tx with FOR UPDATE so
// the matched rows (and, on InnoDB, the scanned index range) stay
// locked until the transaction ends.  A second writer probing the same
// room and window blocks here until the first commits, then sees its
// row.
func overlapExistsTx(ctx context.Context, tx *sql.Tx, roomID uint64, start, end time.Time, excludeID uint64) (bool, error) {
	q := `SELECT id FROM bookings
	      WHERE room_id = ? AND status = ? AND start_time < ? AND end_time > ?`
	args := []any{roomID, model.BookingStatusConfirmed, end.UTC(), start.UTC()}
	if excludeID != 0 {
		q += " AND id <> ?"
		args = append(args, excludeID)
	}
	q += " LIMIT 1 FOR UPDATE"

	var id uint64
	err := tx.QueryRowContext(ctx, q, args...).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func findByIDForUpdateTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.Booking, error) {
	q := "SELECT " + bookingColumns + " FROM bookings WHERE id = ? LIMIT 1 FOR UPDATE"
	b, err := scanBooking(tx.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, booking.ErrBookingNotFound
	}
	return b, err
}

// CreateIfNoOverlap inserts b only if no confirmed booking in the same
// room intersects its interval.  Check and insert share one
// transaction; the loser of a race either observes the winner's row or
// hits a lock wait/deadlock abort, both of which surface as
// ErrRoomAlreadyBooked.
func (r *BookingRepo) CreateIfNoOverlap(ctx context.Context, b *model.Booking) (*model.Booking, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	taken, err := overlapExistsTx(ctx, tx, b.RoomID, b.StartTime, b.EndTime, 0)
	if err != nil {
		return nil, asBookedErr(err)
	}
	if taken {
		return nil, booking.ErrRoomAlreadyBooked
	}

	attendees, err := json.Marshal(b.Attendees)
	if err != nil {
		return nil, err
	}
	res, err := tx.ExecContext(ctx,
		"INSERT INTO bookings (room_id, user_id, title, start_time, end_time, status, attendees) VALUES (?,?,?,?,?,?,?)",
		b.RoomID, b.UserID, b.Title, b.StartTime, b.EndTime, b.Status, attendees)
	if err != nil {
		return nil, asBookedErr(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}

	// Read the row back inside the transaction so the caller gets the
	// DB-assigned timestamps.
	q := "SELECT " + bookingColumns + " FROM bookings WHERE id = ? LIMIT 1"
	created, err := scanBooking(tx.QueryRowContext(ctx, q, id))
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, asBookedErr(err)
	}
	committed = true
	return created, nil
}

// UpdateByID applies the present fields of p to booking id.  The row is
// re-read under lock, the patch is merged, and the overlap probe is
// re-run (excluding the booking's own id) whenever the merged result is
// a confirmed booking whose room, interval or status changed.  A patch
// that flips status to cancelled skips the probe: a cancelled booking
// cannot conflict.
func (r *BookingRepo) UpdateByID(ctx context.Context, id uint64, p booking.Patch) (*model.Booking, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	// Lock errors on this read are not conflicts: no interval has been
	// compared yet, so they propagate as plain storage failures.
	cur, err := findByIDForUpdateTx(ctx, tx, id)
	if err != nil {
		return nil, err
	}

	roomID, start, end, status := cur.RoomID, cur.StartTime, cur.EndTime, cur.Status
	if p.RoomID != nil {
		roomID = *p.RoomID
	}
	if p.StartTime != nil {
		start, end = *p.StartTime, *p.EndTime
	}
	if p.Status != nil {
		status = *p.Status
	}
	needsProbe := status == model.BookingStatusConfirmed &&
		(p.StartTime != nil || p.RoomID != nil || (p.Status != nil && cur.Status != model.BookingStatusConfirmed))
	if needsProbe {
		taken, err := overlapExistsTx(ctx, tx, roomID, start, end, id)
		if err != nil {
			return nil, asBookedErr(err)
		}
		if taken {
			return nil, booking.ErrRoomAlreadyBooked
		}
	}

	sets := make([]string, 0, 6)
	args := make([]any, 0, 7)
	if p.RoomID != nil {
		sets = append(sets, "room_id = ?")
		args = append(args, *p.RoomID)
	}
	if p.Title != nil {
		sets = append(sets, "title = ?")
		args = append(args, *p.Title)
	}
	if p.StartTime != nil {
		sets = append(sets, "start_time = ?", "end_time = ?")
		args = append(args, *p.StartTime, *p.EndTime)
	}
	if p.Status != nil {
		sets = append(sets, "status = ?")
		args = append(args, *p.Status)
	}
	if p.Attendees != nil {
		raw, err := json.Marshal(*p.Attendees)
		if err != nil {
			return nil, err
		}
		sets = append(sets, "attendees = ?")
		args = append(args, raw)
	}
	if len(sets) > 0 {
		args = append(args, id)
		q := "UPDATE bookings SET " + strings.Join(sets, ", ") + " WHERE id = ?"
		if _, err := tx.ExecContext(ctx, q, args...); err != nil {
			return nil, asBookedErr(err)
		}
	}

	q := "SELECT " + bookingColumns + " FROM bookings WHERE id = ? LIMIT 1"
	updated, err := scanBooking(tx.QueryRowContext(ctx, q, id))
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, asBookedErr(err)
	}
	committed = true
	return updated, nil
}

// DeleteByID removes a booking and returns its state as of deletion.
// The read and the delete share a transaction so the returned snapshot
// is exactly what was removed.
func (r *BookingRepo) DeleteByID(ctx context.Context, id uint64) (*model.Booking, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	b, err := findByIDForUpdateTx(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM bookings WHERE id = ?", id); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	committed = true
	return b, nil
}

// FindAll returns one page of bookings matching f plus the unpaged
// total.  Results are ordered by ascending id so identical filters
// yield identical pages between writes.
func (r *BookingRepo) FindAll(ctx context.Context, f booking.Filter) ([]model.Booking, int64, error) {
	where := make([]string, 0, 6)
	args := make([]any, 0, 6)
	if f.BookingID != nil {
		where = append(where, "id = ?")
		args = append(args, *f.BookingID)
	}
	if f.UserID != nil {
		where = append(where, "user_id = ?")
		args = append(args, *f.UserID)
	}
	if f.RoomID != nil {
		where = append(where, "room_id = ?")
		args = append(args, *f.RoomID)
	}
	if f.Status != nil {
		where = append(where, "status = ?")
		args = append(args, *f.Status)
	}
	if f.StartFrom != nil {
		where = append(where, "start_time >= ?")
		args = append(args, f.StartFrom.UTC())
	}
	if f.StartTo != nil {
		where = append(where, "start_time < ?")
		args = append(args, f.StartTo.UTC())
	}
	cond := ""
	if len(where) > 0 {
		cond = " WHERE " + strings.Join(where, " AND ")
	}

	var total int64
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM bookings"+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	q := "SELECT " + bookingColumns + " FROM bookings" + cond + " ORDER BY id ASC LIMIT ? OFFSET ?"
	args = append(args, f.Limit, (f.Page-1)*f.Limit)
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []model.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *b)
	}
	return out, total, rows.Err()
}

// asBookedErr folds the storage engine's concurrency aborts into the
// conflict error.  A lock wait timeout (1205) or deadlock rollback
// (1213) during the check-then-write sequence means a racing writer
// holds or took the same room window; reporting the slot as booked is
// the correct outcome for the loser.  Every other error passes through.
func asBookedErr(err error) error {
	var me *mysql.MySQLError
	if errors.As(err, &me) && (me.Number == 1205 || me.Number == 1213) {
		return booking.ErrRoomAlreadyBooked
	}
	return err
}
