// Package tasks implements the task lifecycle: creation, updates, deletion
// and listing. Completed tasks are immutable; every mutation re-verifies
// ownership against the authenticated user before writing.
package tasks

import (
	"context"
	stderrors "errors"
	"strings"

	"github.com/questforge/tracker/internal/app/domain/task"
	"github.com/questforge/tracker/internal/app/storage"
	"github.com/questforge/tracker/internal/errors"
	"github.com/questforge/tracker/pkg/logger"
)

// DefaultPageSize is the task listing page size when the caller does not
// supply one.
const DefaultPageSize = 4

// Service manages task records.
type Service struct {
	users storage.UserStore
	store storage.TaskStore
	log   *logger.Logger
}

// New constructs a task service.
func New(users storage.UserStore, store storage.TaskStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("tasks")
	}
	return &Service{users: users, store: store, log: log}
}

// Create validates the difficulty, derives the reward amount and persists a
// pending task owned by ownerID.
func (s *Service) Create(ctx context.Context, ownerID, title, description string, difficulty task.Difficulty) (task.Task, error) {
	amount, ok := difficulty.Reward()
	if !ok {
		return task.Task{}, errors.InvalidDifficulty(int(difficulty))
	}
	if strings.TrimSpace(title) == "" {
		return task.Task{}, errors.Validation("title is required")
	}

	if _, err := s.users.GetUser(ctx, ownerID); err != nil {
		if stderrors.Is(err, storage.ErrNotFound) {
			return task.Task{}, errors.UserNotFound()
		}
		return task.Task{}, errors.Persistence(err)
	}

	created, err := s.store.CreateTask(ctx, task.Task{
		Title:       title,
		Description: description,
		Difficulty:  difficulty,
		Amount:      amount,
		Completed:   false,
		OwnerID:     ownerID,
	})
	if err != nil {
		return task.Task{}, errors.Persistence(err)
	}

	s.log.WithField("task_id", created.ID).
		WithField("owner_id", ownerID).
		WithField("difficulty", int(difficulty)).
		Info("task created")
	return created, nil
}

// Update overwrites title, description and difficulty (and the derived
// amount) of a pending task. Completed tasks cannot be changed.
func (s *Service) Update(ctx context.Context, userID, taskID, title, description string, difficulty task.Difficulty) (task.Task, error) {
	t, err := s.load(ctx, userID, taskID)
	if err != nil {
		return task.Task{}, err
	}
	if t.Completed {
		return task.Task{}, errors.TaskAlreadyCompleted(taskID)
	}

	amount, ok := difficulty.Reward()
	if !ok {
		return task.Task{}, errors.InvalidDifficulty(int(difficulty))
	}
	if strings.TrimSpace(title) == "" {
		return task.Task{}, errors.Validation("title is required")
	}

	t.Title = title
	t.Description = description
	t.Difficulty = difficulty
	t.Amount = amount

	updated, err := s.store.UpdateTask(ctx, t)
	if err != nil {
		return task.Task{}, errors.Persistence(err)
	}
	s.log.WithField("task_id", taskID).WithField("owner_id", userID).Info("task updated")
	return updated, nil
}

// Delete removes a task permanently and returns its final state. Completed
// tasks may be deleted.
func (s *Service) Delete(ctx context.Context, userID, taskID string) (task.Task, error) {
	t, err := s.load(ctx, userID, taskID)
	if err != nil {
		return task.Task{}, err
	}

	if err := s.store.DeleteTask(ctx, taskID); err != nil {
		if stderrors.Is(err, storage.ErrNotFound) {
			return task.Task{}, errors.TaskNotFound(taskID)
		}
		return task.Task{}, errors.Persistence(err)
	}
	s.log.WithField("task_id", taskID).WithField("owner_id", userID).Info("task deleted")
	return t, nil
}

// List returns the owner's tasks, optionally filtered by a term matched
// case-insensitively against title or description, paginated.
func (s *Service) List(ctx context.Context, ownerID, term string, offset, limit int) ([]task.Task, error) {
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if offset < 0 {
		offset = 0
	}
	tasks, err := s.store.ListTasksByOwner(ctx, ownerID, storage.TaskFilter{Term: term, Offset: offset, Limit: limit})
	if err != nil {
		return nil, errors.Persistence(err)
	}
	return tasks, nil
}

// ListAll returns every task owned by ownerID, unpaginated. Used to embed
// the full aggregate in user responses.
func (s *Service) ListAll(ctx context.Context, ownerID string) ([]task.Task, error) {
	tasks, err := s.store.ListTasksByOwner(ctx, ownerID, storage.TaskFilter{})
	if err != nil {
		return nil, errors.Persistence(err)
	}
	return tasks, nil
}

// load fetches a task and verifies ownership.
func (s *Service) load(ctx context.Context, userID, taskID string) (task.Task, error) {
	t, err := s.store.GetTask(ctx, taskID)
	if stderrors.Is(err, storage.ErrNotFound) {
		return task.Task{}, errors.TaskNotFound(taskID)
	}
	if err != nil {
		return task.Task{}, errors.Persistence(err)
	}
	if t.OwnerID != userID {
		return task.Task{}, errors.NotOwner()
	}
	return t, nil
}
