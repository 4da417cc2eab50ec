package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/roomdesk/room-booking-api/internal/booking"
	"github.com/roomdesk/room-booking-api/internal/model"
	"github.com/roomdesk/room-booking-api/internal/queue"
	"github.com/roomdesk/room-booking-api/internal/repository"
)

// BookingHandler exposes the booking endpoints.  Conflict decisions
// live in the booking.Resolver; this layer owns request parsing, the
// office-hours gate, per-field edit permissions and the mapping of
// domain errors to HTTP statuses.
type BookingHandler struct {
	Resolver *booking.Resolver
	Policy   booking.Policy
	Bookings *repository.BookingRepo
	Rooms    *repository.RoomRepo
	Users    *repository.UserRepo
}

func NewBookingHandler(res *booking.Resolver, pol booking.Policy, b *repository.BookingRepo, r *repository.RoomRepo, u *repository.UserRepo) *BookingHandler {
	return &BookingHandler{Resolver: res, Policy: pol, Bookings: b, Rooms: r, Users: u}
}

type createBookingReq struct {
	RoomID    uint64           `json:"room_id"`
	Title     string           `json:"title"`
	StartTime string           `json:"start_time"`
	EndTime   string           `json:"end_time"`
	Attendees []model.Attendee `json:"attendees"`
}

// patchBookingReq mirrors booking.Patch at the JSON boundary.  UserID
// is bound only so a present value can be rejected: bookings never
// change owner.
type patchBookingReq struct {
	RoomID    *uint64           `json:"room_id"`
	Title     *string           `json:"title"`
	StartTime *string           `json:"start_time"`
	EndTime   *string           `json:"end_time"`
	Status    *string           `json:"status"`
	Attendees *[]model.Attendee `json:"attendees"`
	UserID    *uint64           `json:"user_id"`
}

// bookingErrStatus maps resolver errors to HTTP responses.  Unknown
// errors are storage failures and deliberately keep a generic message.
func bookingErrStatus(err error) (int, string) {
	switch {
	case errors.Is(err, booking.ErrInvalidRoomID):
		return http.StatusBadRequest, "invalid room id"
	case errors.Is(err, booking.ErrInvalidUserID):
		return http.StatusBadRequest, "invalid user id"
	case errors.Is(err, booking.ErrMissingTimeField):
		return http.StatusBadRequest, "missing time field"
	case errors.Is(err, booking.ErrInvalidTimeRange):
		return http.StatusBadRequest, "end time must be after start time"
	case errors.Is(err, booking.ErrRoomNotFound):
		return http.StatusNotFound, "room not found"
	case errors.Is(err, booking.ErrUserNotFound):
		return http.StatusNotFound, "user not found"
	case errors.Is(err, booking.ErrBookingNotFound):
		return http.StatusNotFound, "booking not found"
	case errors.Is(err, booking.ErrRoomAlreadyBooked):
		return http.StatusConflict, "room is booked"
	}
	return http.StatusInternalServerError, "internal error"
}

// Create books a room for the authenticated user.  The owner is always
// the principal; a client cannot book on someone else's behalf.
func (h *BookingHandler) Create(c echo.Context) error {
	uid, _ := principal(c)

	var req createBookingReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if strings.TrimSpace(req.Title) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "title required"})
	}
	if req.StartTime == "" || req.EndTime == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "missing time field"})
	}
	start, err := time.Parse(time.RFC3339, req.StartTime)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid start_time"})
	}
	end, err := time.Parse(time.RFC3339, req.EndTime)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid end_time"})
	}
	if err := h.Policy.Validate(time.Now().UTC(), start, end); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	b, err := h.Resolver.Create(ctx, booking.CreateInput{
		RoomID:    req.RoomID,
		UserID:    uid,
		Title:     strings.TrimSpace(req.Title),
		StartTime: start,
		EndTime:   end,
		Attendees: req.Attendees,
	})
	if err != nil {
		code, msg := bookingErrStatus(err)
		return c.JSON(code, echo.Map{"error": msg})
	}

	h.announceConfirmed(ctx, b)
	return c.JSON(http.StatusCreated, b)
}

// Get returns one booking.  Employees can read their own bookings only.
func (h *BookingHandler) Get(c echo.Context) error {
	uid, role := principal(c)
	id := pathID(c)
	if id == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	b, err := h.Bookings.FindByID(ctx, id)
	if err != nil {
		code, msg := bookingErrStatus(err)
		return c.JSON(code, echo.Map{"error": msg})
	}
	if !isAdmin(role) && b.UserID != uid {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	}
	return c.JSON(http.StatusOK, b)
}

// List returns a filtered, paginated page of bookings.  Admins see
// everything; employees are always scoped to their own bookings no
// matter what user_id filter they send.
func (h *BookingHandler) List(c echo.Context) error {
	uid, role := principal(c)

	var f booking.Filter
	var ok bool
	if f.BookingID, ok = queryUint(c, "booking_id"); !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking_id"})
	}
	if f.RoomID, ok = queryUint(c, "room_id"); !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid room_id"})
	}
	if f.UserID, ok = queryUint(c, "user_id"); !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid user_id"})
	}
	if f.StartFrom, ok = queryTime(c, "from"); !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid from"})
	}
	if f.StartTo, ok = queryTime(c, "to"); !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid to"})
	}
	if s := c.QueryParam("status"); s != "" {
		if !model.ValidBookingStatus(s) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid status"})
		}
		f.Status = &s
	}
	f.Page = queryInt(c, "page")
	f.Limit = queryInt(c, "limit")

	if !isAdmin(role) {
		f.UserID = &uid
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	res, err := h.Resolver.ListAll(ctx, f)
	if err != nil {
		code, msg := bookingErrStatus(err)
		return c.JSON(code, echo.Map{"error": msg})
	}
	return c.JSON(http.StatusOK, res)
}

// Update applies a partial edit.  Which fields a caller may touch
// depends on their relationship to the booking:
//
//   - the owner edits title, attendees, room and times
//   - an admin who is also the owner edits those plus status
//   - an admin who is not the owner edits status only
//   - anyone else is rejected outright
//
// The owner field itself is immutable for everyone.
func (h *BookingHandler) Update(c echo.Context) error {
	uid, role := principal(c)
	id := pathID(c)
	if id == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
	}

	var req patchBookingReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.UserID != nil {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "booking owner cannot be changed"})
	}
	if req.Status != nil && !model.ValidBookingStatus(*req.Status) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid status"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	cur, err := h.Bookings.FindByID(ctx, id)
	if err != nil {
		code, msg := bookingErrStatus(err)
		return c.JSON(code, echo.Map{"error": msg})
	}

	owner := cur.UserID == uid
	admin := isAdmin(role)
	switch {
	case !owner && !admin:
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	case !owner && admin:
		// Status moderation only.
		if req.RoomID != nil || req.Title != nil || req.StartTime != nil || req.EndTime != nil || req.Attendees != nil {
			return c.JSON(http.StatusForbidden, echo.Map{"error": "only status can be changed on another user's booking"})
		}
	case owner && !admin:
		if req.Status != nil {
			return c.JSON(http.StatusForbidden, echo.Map{"error": "status can only be changed by an admin"})
		}
	}

	p := booking.Patch{RoomID: req.RoomID, Title: req.Title, Status: req.Status, Attendees: req.Attendees}
	if (req.StartTime == nil) != (req.EndTime == nil) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "missing time field"})
	}
	if req.StartTime != nil {
		start, err := time.Parse(time.RFC3339, *req.StartTime)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid start_time"})
		}
		end, err := time.Parse(time.RFC3339, *req.EndTime)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid end_time"})
		}
		if err := h.Policy.Validate(time.Now().UTC(), start, end); err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
		}
		s, e := start.UTC(), end.UTC()
		p.StartTime, p.EndTime = &s, &e
	}

	b, err := h.Resolver.Update(ctx, id, p)
	if err != nil {
		code, msg := bookingErrStatus(err)
		return c.JSON(code, echo.Map{"error": msg})
	}

	// A reconfirmation claims the slot again, so it is announced like a
	// fresh booking.
	if req.Status != nil && *req.Status == model.BookingStatusConfirmed && cur.Status != model.BookingStatusConfirmed {
		h.announceConfirmed(ctx, b)
	}
	return c.JSON(http.StatusOK, b)
}

// Delete removes a booking and returns its final state.  Owners delete
// their own bookings; admins delete any.
func (h *BookingHandler) Delete(c echo.Context) error {
	uid, role := principal(c)
	id := pathID(c)
	if id == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	cur, err := h.Bookings.FindByID(ctx, id)
	if err != nil {
		code, msg := bookingErrStatus(err)
		return c.JSON(code, echo.Map{"error": msg})
	}
	if !isAdmin(role) && cur.UserID != uid {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	}

	b, err := h.Resolver.DeleteByID(ctx, id)
	if err != nil {
		code, msg := bookingErrStatus(err)
		return c.JSON(code, echo.Map{"error": msg})
	}
	return c.JSON(http.StatusOK, b)
}

// announceConfirmed publishes a BookingConfirmedEvent in the
// background.  The booking is already committed; a broker outage only
// costs the notification, never the booking.
func (h *BookingHandler) announceConfirmed(ctx context.Context, b *model.Booking) {
	ev := queue.BookingConfirmedEvent{
		EventID:       uuid.NewString(),
		BookingID:     b.ID,
		RoomID:        b.RoomID,
		UserID:        b.UserID,
		Title:         b.Title,
		StartTime:     b.StartTime.UTC().Format(time.RFC3339),
		EndTime:       b.EndTime.UTC().Format(time.RFC3339),
		AttendeeCount: len(b.Attendees),
		ConfirmedAt:   time.Now().UTC().Format(time.RFC3339),
	}
	if room, err := h.Rooms.GetByID(ctx, b.RoomID); err == nil {
		ev.RoomName = room.Name
	}
	if u, err := h.Users.GetByID(ctx, b.UserID); err == nil {
		ev.UserEmail = u.Email
	}
	go func() {
		pubCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = queue.PublishBookingConfirmed(pubCtx, ev)
	}()
}
