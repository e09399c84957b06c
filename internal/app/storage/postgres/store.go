// Package postgres implements the storage interfaces backed by PostgreSQL.
//
// Expected schema (migrations are managed outside this repository):
//
//	CREATE TABLE users (
//	    id               TEXT PRIMARY KEY,
//	    username         VARCHAR(140) NOT NULL UNIQUE,
//	    password_hash    TEXT NOT NULL,
//	    level            INTEGER NOT NULL DEFAULT 1,
//	    xp               INTEGER NOT NULL DEFAULT 0,
//	    xp_to_next_level INTEGER NOT NULL DEFAULT 100,
//	    created_at       TIMESTAMPTZ NOT NULL
//	);
//
//	CREATE TABLE user_tasks (
//	    id          TEXT PRIMARY KEY,
//	    title       VARCHAR(4000) NOT NULL,
//	    description VARCHAR(4000) NOT NULL DEFAULT '',
//	    difficulty  INTEGER NOT NULL,
//	    amount      INTEGER NOT NULL,
//	    completed   BOOLEAN NOT NULL DEFAULT FALSE,
//	    owner_id    TEXT NOT NULL REFERENCES users (id),
//	    created_at  TIMESTAMPTZ NOT NULL
//	);
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/questforge/tracker/internal/app/domain/task"
	"github.com/questforge/tracker/internal/app/domain/user"
	"github.com/questforge/tracker/internal/app/storage"
)

// Store implements the storage interfaces backed by PostgreSQL.
type Store struct {
	db *sqlx.DB
}

var _ storage.UserStore = (*Store)(nil)
var _ storage.TaskStore = (*Store)(nil)

// New creates a Store using the provided database handle.
func New(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// Open connects to the database at the given URL and verifies the
// connection.
func Open(url string) (*Store, error) {
	db, err := sqlx.Connect("postgres", url)
	if err != nil {
		return nil, err
	}
	return New(db), nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

// --- UserStore ---------------------------------------------------------------

func (s *Store) CreateUser(ctx context.Context, u user.User) (user.User, error) {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, username, password_hash, level, xp, xp_to_next_level, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, u.ID, u.Username, u.PasswordHash, u.Level, u.XP, u.XPToNextLevel, u.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return user.User{}, storage.ErrConflict
		}
		return user.User{}, err
	}
	return u, nil
}

func (s *Store) UpdateUser(ctx context.Context, u user.User) (user.User, error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE users
		SET username = $2, password_hash = $3, level = $4, xp = $5, xp_to_next_level = $6
		WHERE id = $1
	`, u.ID, u.Username, u.PasswordHash, u.Level, u.XP, u.XPToNextLevel)
	if err != nil {
		return user.User{}, err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return user.User{}, storage.ErrNotFound
	}
	return u, nil
}

func (s *Store) GetUser(ctx context.Context, id string) (user.User, error) {
	var u user.User
	err := s.db.GetContext(ctx, &u, `
		SELECT id, username, password_hash, level, xp, xp_to_next_level, created_at
		FROM users
		WHERE id = $1
	`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return user.User{}, storage.ErrNotFound
	}
	if err != nil {
		return user.User{}, err
	}
	return u, nil
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (user.User, error) {
	var u user.User
	err := s.db.GetContext(ctx, &u, `
		SELECT id, username, password_hash, level, xp, xp_to_next_level, created_at
		FROM users
		WHERE username = $1
	`, username)
	if errors.Is(err, sql.ErrNoRows) {
		return user.User{}, storage.ErrNotFound
	}
	if err != nil {
		return user.User{}, err
	}
	return u, nil
}

func (s *Store) ListUsers(ctx context.Context, filter storage.UserFilter) ([]user.User, error) {
	query := `
		SELECT id, username, password_hash, level, xp, xp_to_next_level, created_at
		FROM users
	`
	args := []interface{}{}
	if filter.UsernameContains != "" {
		query += ` WHERE username ILIKE '%' || $1 || '%'`
		args = append(args, filter.UsernameContains)
	}
	query += ` ORDER BY username`

	users := []user.User{}
	if err := s.db.SelectContext(ctx, &users, query, args...); err != nil {
		return nil, err
	}
	return users, nil
}

func (s *Store) DeleteUser(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// --- TaskStore ---------------------------------------------------------------

func (s *Store) CreateTask(ctx context.Context, t task.Task) (task.Task, error) {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO user_tasks (id, title, description, difficulty, amount, completed, owner_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, t.ID, t.Title, t.Description, t.Difficulty, t.Amount, t.Completed, t.OwnerID, t.CreatedAt)
	if err != nil {
		return task.Task{}, err
	}
	return t, nil
}

func (s *Store) UpdateTask(ctx context.Context, t task.Task) (task.Task, error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE user_tasks
		SET title = $2, description = $3, difficulty = $4, amount = $5, completed = $6
		WHERE id = $1
	`, t.ID, t.Title, t.Description, t.Difficulty, t.Amount, t.Completed)
	if err != nil {
		return task.Task{}, err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return task.Task{}, storage.ErrNotFound
	}
	return t, nil
}

func (s *Store) GetTask(ctx context.Context, id string) (task.Task, error) {
	var t task.Task
	err := s.db.GetContext(ctx, &t, `
		SELECT id, title, description, difficulty, amount, completed, owner_id, created_at
		FROM user_tasks
		WHERE id = $1
	`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return task.Task{}, storage.ErrNotFound
	}
	if err != nil {
		return task.Task{}, err
	}
	return t, nil
}

func (s *Store) ListTasksByOwner(ctx context.Context, ownerID string, filter storage.TaskFilter) ([]task.Task, error) {
	query := `
		SELECT id, title, description, difficulty, amount, completed, owner_id, created_at
		FROM user_tasks
		WHERE owner_id = $1
	`
	args := []interface{}{ownerID}
	if filter.Term != "" {
		query += ` AND (title ILIKE '%' || $2 || '%' OR description ILIKE '%' || $2 || '%')`
		args = append(args, filter.Term)
	}
	query += ` ORDER BY created_at, id`

	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += ` LIMIT $` + strconv.Itoa(len(args))
	}
	args = append(args, offset)
	query += ` OFFSET $` + strconv.Itoa(len(args))

	tasks := []task.Task{}
	if err := s.db.SelectContext(ctx, &tasks, query, args...); err != nil {
		return nil, err
	}
	return tasks, nil
}

func (s *Store) DeleteTask(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM user_tasks WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return storage.ErrNotFound
	}
	return nil
}
