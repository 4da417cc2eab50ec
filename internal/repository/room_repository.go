package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"

	"github.com/roomdesk/room-booking-api/internal/model"
)

// ErrRoomNotFound is returned when a room lookup fails.
var ErrRoomNotFound = errors.New("room not found")

// ErrRoomNameTaken is returned when a create collides with an existing
// room name.  Names are unique case-insensitively.
var ErrRoomNameTaken = errors.New("room name already exists")

// RoomRepo provides access to the 'rooms' table.  Rooms are managed by
// admins and read-only for everyone else; the booking core only ever
// asks ExistsByID.
type RoomRepo struct {
	db *sql.DB
}

// NewRoomRepo constructs a RoomRepo with the given DB handle.
func NewRoomRepo(db *sql.DB) *RoomRepo {
	return &RoomRepo{db: db}
}

const roomColumns = "id, name, capacity, equipment, created_at, updated_at"

func scanRoom(row rowScanner) (*model.Room, error) {
	var (
		rm  model.Room
		raw []byte
	)
	err := row.Scan(&rm.ID, &rm.Name, &rm.Capacity, &raw, &rm.CreatedAt, &rm.UpdatedAt)
	if err != nil {
		return nil, err
	}
	rm.Equipment = []string{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &rm.Equipment); err != nil {
			return nil, err
		}
	}
	return &rm, nil
}

// Create inserts a room.  The caller is expected to have canonicalized
// the name already; a duplicate (unique index on lower(name)) maps to
// ErrRoomNameTaken.
func (r *RoomRepo) Create(ctx context.Context, rm *model.Room) (*model.Room, error) {
	equipment, err := json.Marshal(rm.Equipment)
	if err != nil {
		return nil, err
	}
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO rooms (name, capacity, equipment) VALUES (?,?,?)",
		rm.Name, rm.Capacity, equipment)
	if err != nil {
		if strings.Contains(err.Error(), "1062") {
			return nil, ErrRoomNameTaken
		}
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return r.GetByID(ctx, uint64(id))
}

// GetByID fetches a room by id.
func (r *RoomRepo) GetByID(ctx context.Context, id uint64) (*model.Room, error) {
	q := "SELECT " + roomColumns + " FROM rooms WHERE id = ? LIMIT 1"
	rm, err := scanRoom(r.db.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRoomNotFound
	}
	return rm, err
}

// ExistsByID reports whether a room with the given id exists.
func (r *RoomRepo) ExistsByID(ctx context.Context, id uint64) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx, "SELECT 1 FROM rooms WHERE id = ? LIMIT 1", id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// List returns every room ordered by id.
func (r *RoomRepo) List(ctx context.Context) ([]model.Room, error) {
	q := "SELECT " + roomColumns + " FROM rooms ORDER BY id ASC"
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Room{}
	for rows.Next() {
		rm, err := scanRoom(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *rm)
	}
	return out, rows.Err()
}

// RoomPatch carries the optional fields of a room update; nil means
// leave the column alone.
type RoomPatch struct {
	Name      *string
	Capacity  *uint32
	Equipment *[]string
}

// UpdateByID applies the present fields of p and returns the updated
// row.  A rename onto an existing name (unique case-insensitively) maps
// to ErrRoomNameTaken.
func (r *RoomRepo) UpdateByID(ctx context.Context, id uint64, p RoomPatch) (*model.Room, error) {
	sets := make([]string, 0, 3)
	args := make([]any, 0, 4)
	if p.Name != nil {
		sets = append(sets, "name = ?")
		args = append(args, *p.Name)
	}
	if p.Capacity != nil {
		sets = append(sets, "capacity = ?")
		args = append(args, *p.Capacity)
	}
	if p.Equipment != nil {
		raw, err := json.Marshal(*p.Equipment)
		if err != nil {
			return nil, err
		}
		sets = append(sets, "equipment = ?")
		args = append(args, raw)
	}
	if len(sets) > 0 {
		args = append(args, id)
		q := "UPDATE rooms SET " + strings.Join(sets, ", ") + " WHERE id = ?"
		if _, err := r.db.ExecContext(ctx, q, args...); err != nil {
			if strings.Contains(err.Error(), "1062") {
				return nil, ErrRoomNameTaken
			}
			return nil, err
		}
	}
	return r.GetByID(ctx, id)
}

// DeleteByID removes a room.  Unknown ids map to ErrRoomNotFound.
func (r *RoomRepo) DeleteByID(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM rooms WHERE id = ?", id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrRoomNotFound
	}
	return nil
}
