// Package users implements registration, login and the read-only user
// queries.
package users

import (
	"context"
	stderrors "errors"
	"strings"

	"github.com/questforge/tracker/internal/app/domain/user"
	"github.com/questforge/tracker/internal/app/services/auth"
	"github.com/questforge/tracker/internal/app/storage"
	"github.com/questforge/tracker/internal/errors"
	"github.com/questforge/tracker/pkg/logger"
)

// RegisterStatus tags the outcome of a registration attempt.
type RegisterStatus string

const (
	RegisterOK            RegisterStatus = "ok"
	RegisterAlreadyExists RegisterStatus = "already_exists"
	// RegisterNotFound exists for symmetry with the login surface; a
	// registration itself never produces it.
	RegisterNotFound RegisterStatus = "not_found"
)

// RegisterResult is the tagged outcome of Register. User is only populated
// when Status is RegisterOK.
type RegisterResult struct {
	Status RegisterStatus
	User   user.User
}

// Service manages user records and the login flow.
type Service struct {
	store storage.UserStore
	auth  *auth.Service
	log   *logger.Logger
}

// New constructs a user service.
func New(store storage.UserStore, authService *auth.Service, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("users")
	}
	return &Service{store: store, auth: authService, log: log}
}

// Register creates a user with the progression defaults. The uniqueness
// check is an exact, case-sensitive username match.
func (s *Service) Register(ctx context.Context, username, password string) (RegisterResult, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return RegisterResult{}, errors.Validation("username is required")
	}
	if password == "" {
		return RegisterResult{}, errors.Validation("password is required")
	}

	if _, err := s.store.GetUserByUsername(ctx, username); err == nil {
		return RegisterResult{Status: RegisterAlreadyExists}, nil
	} else if !stderrors.Is(err, storage.ErrNotFound) {
		return RegisterResult{}, errors.Persistence(err)
	}

	hash, err := s.auth.HashPassword(password)
	if err != nil {
		return RegisterResult{}, errors.Internal("hash password", err)
	}

	created, err := s.store.CreateUser(ctx, user.New(username, hash))
	if err != nil {
		// The store enforces uniqueness too, closing the window between
		// the check above and the insert.
		if stderrors.Is(err, storage.ErrConflict) {
			return RegisterResult{Status: RegisterAlreadyExists}, nil
		}
		return RegisterResult{}, errors.Persistence(err)
	}

	s.log.WithField("user_id", created.ID).
		WithField("username", created.Username).
		Info("user registered")
	return RegisterResult{Status: RegisterOK, User: created}, nil
}

// Login verifies credentials and issues a bearer token. Existence is
// checked before the password, in that order.
func (s *Service) Login(ctx context.Context, username, password string) (string, error) {
	u, err := s.store.GetUserByUsername(ctx, username)
	if stderrors.Is(err, storage.ErrNotFound) {
		return "", errors.UserNotFound()
	}
	if err != nil {
		return "", errors.Persistence(err)
	}

	if !s.auth.VerifyPassword(password, u.PasswordHash) {
		return "", errors.WrongPassword()
	}

	token, err := s.auth.IssueToken(u.ID)
	if err != nil {
		return "", errors.Internal("issue token", err)
	}
	s.log.WithField("user_id", u.ID).Info("user logged in")
	return token, nil
}

// Get resolves a user by id.
func (s *Service) Get(ctx context.Context, id string) (user.User, error) {
	u, err := s.store.GetUser(ctx, id)
	if stderrors.Is(err, storage.ErrNotFound) {
		return user.User{}, errors.UserNotFound()
	}
	if err != nil {
		return user.User{}, errors.Persistence(err)
	}
	return u, nil
}

// List returns all users ordered by username.
func (s *Service) List(ctx context.Context) ([]user.User, error) {
	users, err := s.store.ListUsers(ctx, storage.UserFilter{})
	if err != nil {
		return nil, errors.Persistence(err)
	}
	return users, nil
}

// Search returns users whose username contains term, case-insensitively,
// ordered by username. An empty term lists everyone.
func (s *Service) Search(ctx context.Context, term string) ([]user.User, error) {
	users, err := s.store.ListUsers(ctx, storage.UserFilter{UsernameContains: term})
	if err != nil {
		return nil, errors.Persistence(err)
	}
	return users, nil
}
