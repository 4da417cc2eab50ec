package handler

import (
	"net/http"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roomdesk/room-booking-api/internal/config"
	"github.com/roomdesk/room-booking-api/internal/model"
	"github.com/roomdesk/room-booking-api/internal/repository"
)

var userCols = []string{
	"id", "name", "email", "password_hash", "role", "created_at", "updated_at",
}

func userRowFor(id uint64, role string) *sqlmock.Rows {
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	return sqlmock.NewRows(userCols).
		AddRow(id, "Dana", "dana@example.com", "$2a$10$hash", role, now, now)
}

func newUserTestHandler(t *testing.T) (*UserHandler, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewUserHandler(config.Config{BcryptCost: 4},
		repository.NewUserRepo(db), repository.NewTokenRepo(db)), mock
}

func TestGetUserEmployeeReadsSelf(t *testing.T) {
	h, mock := newUserTestHandler(t)
	mock.ExpectQuery("SELECT .+ FROM users WHERE id").
		WillReturnRows(userRowFor(10, model.RoleEmployee))

	c, rec := request(http.MethodGet, "/v1/users/10", "", 10, model.RoleEmployee,
		map[string]string{"id": "10"})
	require.NoError(t, h.Get(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "dana@example.com")
	assert.NotContains(t, rec.Body.String(), "$2a$10$hash")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetUserEmployeeCannotReadOthers(t *testing.T) {
	h, mock := newUserTestHandler(t)

	// Rejected before any storage access.
	c, rec := request(http.MethodGet, "/v1/users/11", "", 10, model.RoleEmployee,
		map[string]string{"id": "11"})
	require.NoError(t, h.Get(c))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetUserAdminReadsAnyone(t *testing.T) {
	h, mock := newUserTestHandler(t)
	mock.ExpectQuery("SELECT .+ FROM users WHERE id").
		WillReturnRows(userRowFor(11, model.RoleEmployee))

	c, rec := request(http.MethodGet, "/v1/users/11", "", 99, model.RoleAdmin,
		map[string]string{"id": "11"})
	require.NoError(t, h.Get(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}
