package model

import (
	"strings"
	"time"
)

// Canonical room names.  The floor only has these two bookable rooms, so
// the name column is an enumeration rather than free text.  Names are
// unique case-insensitively; CanonicalRoomName folds any accepted
// spelling onto the stored form.
const (
	RoomNameBoard      = "Board Room"
	RoomNameConference = "Conference Room"
)

// Room represents a row in the `rooms` table.  Rooms are created by
// administrators and are read-only from the booking core's point of
// view: the conflict resolver only checks that a referenced room exists.
//
// Fields:
//  ID        – primary key identifier.
//  Name      – canonical room name, unique (case-insensitive).
//  Capacity  – number of people the room holds, always positive.
//  Equipment – installed equipment (stored as a JSON array column).
//  CreatedAt – creation timestamp.
//  UpdatedAt – last update timestamp.
type Room struct {
	ID        uint64    `json:"id"`         // rooms.id
	Name      string    `json:"name"`       // rooms.name
	Capacity  uint32    `json:"capacity"`   // rooms.capacity
	Equipment []string  `json:"equipment"`  // rooms.equipment (JSON)
	CreatedAt time.Time `json:"created_at"` // rooms.created_at
	UpdatedAt time.Time `json:"updated_at"` // rooms.updated_at
}

// CanonicalRoomName normalizes a user-supplied room name onto its stored
// form.  Matching is case-insensitive and ignores surrounding space.
// The second return value is false when the name is not one of the
// accepted room names.
func CanonicalRoomName(name string) (string, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "board room":
		return RoomNameBoard, true
	case "conference room":
		return RoomNameConference, true
	}
	return "", false
}
