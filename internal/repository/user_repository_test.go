package repository

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/user-management-api/internal/model"
)

func newUserRepoWithMock(t *testing.T) (*UserRepo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewUserRepo(db), mock
}

var userCols = []string{"id", "email", "password_hash", "first_name", "last_name", "role", "created_at", "updated_at"}

func TestUserRepo_Create(t *testing.T) {
	repo, mock := newUserRepoWithMock(t)

	mock.ExpectExec(`(?s)^INSERT\s+INTO\s+users\s*\(email,\s*password_hash,\s*first_name,\s*last_name,\s*role\)`).
		WithArgs("Alice@Example.com", "$2a$hash", "Alice", "Smith", model.RoleUser).
		WillReturnResult(sqlmock.NewResult(7, 1))

	got, err := repo.Create(context.Background(), model.User{
		Email: " Alice@Example.com ", PasswordHash: "$2a$hash", FirstName: "Alice", LastName: "Smith", Role: model.RoleUser,
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(7), got.ID)
	assert.Equal(t, "Alice@Example.com", got.Email)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepo_CreateDuplicate(t *testing.T) {
	repo, mock := newUserRepoWithMock(t)

	mock.ExpectExec(`INSERT\s+INTO\s+users`).
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry 'alice@example.com' for key 'uq_users_email_ci'"})

	_, err := repo.Create(context.Background(), model.User{Email: "alice@example.com"})
	assert.ErrorIs(t, err, ErrEmailExists)
}

func TestUserRepo_CreateDBError(t *testing.T) {
	repo, mock := newUserRepoWithMock(t)

	mock.ExpectExec(`INSERT\s+INTO\s+users`).WillReturnError(errors.New("db down"))

	_, err := repo.Create(context.Background(), model.User{Email: "alice@example.com"})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrEmailExists)
	assert.ErrorContains(t, err, "db down")
}

func TestUserRepo_GetByEmailLowercases(t *testing.T) {
	repo, mock := newUserRepoWithMock(t)
	now := time.Now().UTC().Truncate(time.Second)

	mock.ExpectQuery(`(?s)^SELECT\s+id,.*FROM\s+users\s+WHERE\s+email_ci=\?`).
		WithArgs("alice@example.com").
		WillReturnRows(sqlmock.NewRows(userCols).
			AddRow(3, "Alice@Example.com", "$2a$hash", "Alice", "Smith", "user", now, now))

	got, err := repo.GetByEmail(context.Background(), "  ALICE@example.COM")
	require.NoError(t, err)
	assert.Equal(t, uint64(3), got.ID)
	assert.Equal(t, "Alice@Example.com", got.Email)
	assert.Equal(t, now, got.CreatedAt)
}

func TestUserRepo_GetByIDNotFound(t *testing.T) {
	repo, mock := newUserRepoWithMock(t)

	mock.ExpectQuery(`FROM\s+users\s+WHERE\s+id=\?`).
		WithArgs(uint64(99)).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByID(context.Background(), 99)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestUserRepo_List(t *testing.T) {
	repo, mock := newUserRepoWithMock(t)
	now := time.Now().UTC()

	mock.ExpectQuery(`FROM\s+users\s+ORDER\s+BY\s+id`).
		WillReturnRows(sqlmock.NewRows(userCols).
			AddRow(1, "a@example.com", "h1", "A", "A", "admin", now, now).
			AddRow(2, "b@example.com", "h2", "B", "B", "user", now, now))

	got, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, model.RoleAdmin, got[0].Role)
	assert.Equal(t, "b@example.com", got[1].Email)
}

func TestUserRepo_ListEmpty(t *testing.T) {
	repo, mock := newUserRepoWithMock(t)

	mock.ExpectQuery(`FROM\s+users`).WillReturnRows(sqlmock.NewRows(userCols))

	got, err := repo.List(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestUserRepo_UpdateProfile(t *testing.T) {
	repo, mock := newUserRepoWithMock(t)
	u := model.User{ID: 5, Email: "new@example.com", PasswordHash: "stale", FirstName: "N", LastName: "L", Role: "user"}

	mock.ExpectExec(`^UPDATE\s+users\s+SET\s+email=\?,\s*first_name=\?,\s*last_name=\?,\s*role=\?\s+WHERE\s+id=\?$`).
		WithArgs("new@example.com", "N", "L", "user", uint64(5)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.UpdateProfile(context.Background(), u))

	mock.ExpectExec(`UPDATE\s+users`).WillReturnResult(sqlmock.NewResult(0, 0))
	assert.ErrorIs(t, repo.UpdateProfile(context.Background(), u), ErrUserNotFound)

	mock.ExpectExec(`UPDATE\s+users`).WillReturnError(&mysql.MySQLError{Number: 1062})
	assert.ErrorIs(t, repo.UpdateProfile(context.Background(), u), ErrEmailExists)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepo_UpdatePasswordHash(t *testing.T) {
	repo, mock := newUserRepoWithMock(t)

	mock.ExpectExec(`UPDATE\s+users\s+SET\s+password_hash=\?\s+WHERE\s+id=\?`).
		WithArgs("new-hash", uint64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.UpdatePasswordHash(context.Background(), 1, "new-hash"))

	mock.ExpectExec(`UPDATE\s+users\s+SET\s+password_hash=\?`).
		WithArgs("new-hash", uint64(2)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	assert.ErrorIs(t, repo.UpdatePasswordHash(context.Background(), 2, "new-hash"), ErrUserNotFound)
}

func TestUserRepo_Delete(t *testing.T) {
	repo, mock := newUserRepoWithMock(t)

	mock.ExpectExec(`DELETE\s+FROM\s+users\s+WHERE\s+id=\?`).
		WithArgs(uint64(4)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.Delete(context.Background(), 4))

	mock.ExpectExec(`DELETE\s+FROM\s+users`).
		WithArgs(uint64(4)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	assert.ErrorIs(t, repo.Delete(context.Background(), 4), ErrUserNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}
