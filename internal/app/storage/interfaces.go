package storage

import (
	"context"
	"errors"

	"github.com/questforge/tracker/internal/app/domain/task"
	"github.com/questforge/tracker/internal/app/domain/user"
)

// ErrNotFound is returned when a record does not exist. Implementations map
// their backend's sentinel (e.g. sql.ErrNoRows) onto it.
var ErrNotFound = errors.New("storage: record not found")

// ErrConflict is returned when a uniqueness constraint is violated.
var ErrConflict = errors.New("storage: conflict")

// UserFilter narrows user listings. The zero filter matches everything.
type UserFilter struct {
	// UsernameContains matches usernames case-insensitively by substring.
	UsernameContains string
}

// TaskFilter narrows and paginates task listings for one owner.
type TaskFilter struct {
	// Term matches title or description case-insensitively by substring.
	Term string
	// Offset/Limit paginate the result. Limit <= 0 means no limit.
	Offset int
	Limit  int
}

// UserStore persists user records. Listings are ordered by username
// ascending.
type UserStore interface {
	CreateUser(ctx context.Context, u user.User) (user.User, error)
	UpdateUser(ctx context.Context, u user.User) (user.User, error)
	GetUser(ctx context.Context, id string) (user.User, error)
	// GetUserByUsername resolves by exact, case-sensitive username.
	GetUserByUsername(ctx context.Context, username string) (user.User, error)
	ListUsers(ctx context.Context, filter UserFilter) ([]user.User, error)
	DeleteUser(ctx context.Context, id string) error
}

// TaskStore persists task records.
type TaskStore interface {
	CreateTask(ctx context.Context, t task.Task) (task.Task, error)
	UpdateTask(ctx context.Context, t task.Task) (task.Task, error)
	GetTask(ctx context.Context, id string) (task.Task, error)
	ListTasksByOwner(ctx context.Context, ownerID string, filter TaskFilter) ([]task.Task, error)
	DeleteTask(ctx context.Context, id string) error
}
