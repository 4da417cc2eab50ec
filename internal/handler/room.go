package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/roomdesk/room-booking-api/internal/model"
	"github.com/roomdesk/room-booking-api/internal/repository"
)

// RoomHandler exposes room management.  Creation and deletion are
// admin-only; everyone authenticated may browse.
type RoomHandler struct {
	Rooms *repository.RoomRepo
}

func NewRoomHandler(r *repository.RoomRepo) *RoomHandler {
	return &RoomHandler{Rooms: r}
}

type createRoomReq struct {
	Name      string   `json:"name"`
	Capacity  uint32   `json:"capacity"`
	Equipment []string `json:"equipment"`
}

// Create adds a room.  Names come from a fixed set and are stored in
// canonical casing, so "board room" and "Board Room" are the same room
// and a duplicate is rejected with 409.
func (h *RoomHandler) Create(c echo.Context) error {
	var req createRoomReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	name, ok := model.CanonicalRoomName(req.Name)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid room name"})
	}
	if req.Capacity == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "capacity must be positive"})
	}
	if req.Equipment == nil {
		req.Equipment = []string{}
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	room, err := h.Rooms.Create(ctx, &model.Room{Name: name, Capacity: req.Capacity, Equipment: req.Equipment})
	if err != nil {
		if errors.Is(err, repository.ErrRoomNameTaken) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "room name already exists"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create room failed"})
	}
	return c.JSON(http.StatusCreated, room)
}

// Get returns one room by id.
func (h *RoomHandler) Get(c echo.Context) error {
	id := pathID(c)
	if id == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid room id"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	room, err := h.Rooms.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrRoomNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "room not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, room)
}

// List returns all rooms.
func (h *RoomHandler) List(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	rooms, err := h.Rooms.List(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, rooms)
}

type updateRoomReq struct {
	Name      *string   `json:"name"`
	Capacity  *uint32   `json:"capacity"`
	Equipment *[]string `json:"equipment"`
}

// Update edits a room.  Absent fields are left untouched; a present
// name must still be one of the accepted room names and is stored in
// canonical casing.
func (h *RoomHandler) Update(c echo.Context) error {
	id := pathID(c)
	if id == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid room id"})
	}
	var req updateRoomReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.Name != nil {
		name, ok := model.CanonicalRoomName(*req.Name)
		if !ok {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid room name"})
		}
		req.Name = &name
	}
	if req.Capacity != nil && *req.Capacity == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "capacity must be positive"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	room, err := h.Rooms.UpdateByID(ctx, id, repository.RoomPatch{
		Name: req.Name, Capacity: req.Capacity, Equipment: req.Equipment,
	})
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrRoomNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "room not found"})
		case errors.Is(err, repository.ErrRoomNameTaken):
			return c.JSON(http.StatusConflict, echo.Map{"error": "room name already exists"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}
	return c.JSON(http.StatusOK, room)
}

// Delete removes a room.  Existing bookings for the room keep their
// room_id; history is not rewritten.
func (h *RoomHandler) Delete(c echo.Context) error {
	id := pathID(c)
	if id == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid room id"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Rooms.DeleteByID(ctx, id); err != nil {
		if errors.Is(err, repository.ErrRoomNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "room not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete failed"})
	}
	return c.NoContent(http.StatusNoContent)
}
