// Package progression implements the gamification engine: XP gain with
// cascading level-ups, explicit level-up, and task completion.
//
// All mutations for a given user are serialized through a per-user mutex so
// two concurrent XP gains cannot both read a stale base and lose one of the
// updates. Each cascade step is persisted as a single atomic user update.
package progression

import (
	"context"
	stderrors "errors"
	"sync"

	"github.com/questforge/tracker/internal/app/domain/user"
	"github.com/questforge/tracker/internal/app/metrics"
	"github.com/questforge/tracker/internal/app/storage"
	"github.com/questforge/tracker/internal/errors"
	"github.com/questforge/tracker/pkg/logger"
)

// Service applies progression state transitions to the user aggregate.
type Service struct {
	users storage.UserStore
	tasks storage.TaskStore
	log   *logger.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// New constructs a progression service.
func New(users storage.UserStore, tasks storage.TaskStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("progression")
	}
	return &Service{
		users: users,
		tasks: tasks,
		log:   log,
		locks: make(map[string]*sync.Mutex),
	}
}

// userLock returns the mutex serializing mutations for the given user.
func (s *Service) userLock(userID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()

	lock, exists := s.locks[userID]
	if !exists {
		lock = &sync.Mutex{}
		s.locks[userID] = lock
	}
	return lock
}

// GainXP credits amount XP to the user, then resolves the level-up cascade:
// while xp >= xp_to_next_level the user levels up, carrying the residual
// (xp - threshold at the moment of crossing, floored at zero) into the next
// level. Negative amounts are rejected; there is no level-down transition.
func (s *Service) GainXP(ctx context.Context, userID string, amount int) (user.User, error) {
	if amount < 0 {
		return user.User{}, errors.InvalidAmount(amount)
	}

	lock := s.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	u, err := s.loadUser(ctx, userID)
	if err != nil {
		return user.User{}, err
	}

	u.XP += amount
	u, err = s.persist(ctx, u)
	if err != nil {
		return user.User{}, err
	}
	metrics.RecordXPGain(amount)

	// A large gain can cross several thresholds in one call; each step is
	// committed before the next so an interrupted cascade leaves a
	// consistent aggregate behind.
	for u.XP >= u.XPToNextLevel {
		residual := u.XP - u.XPToNextLevel
		if residual < 0 {
			residual = 0
		}
		u.Level++
		u.XP = residual
		u.XPToNextLevel = user.NextLevelThreshold(u.Level)

		u, err = s.persist(ctx, u)
		if err != nil {
			return user.User{}, err
		}
		metrics.RecordLevelUp()
		s.log.WithField("user_id", u.ID).
			WithField("level", u.Level).
			WithField("xp", u.XP).
			Info("level up")
	}

	return u, nil
}

// LevelUp forces a level-up: level+1, xp reset to zero, threshold
// recomputed from the new level, persisted as one update.
func (s *Service) LevelUp(ctx context.Context, userID string) (user.User, error) {
	lock := s.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	u, err := s.loadUser(ctx, userID)
	if err != nil {
		return user.User{}, err
	}

	u.Level++
	u.XP = 0
	u.XPToNextLevel = user.NextLevelThreshold(u.Level)

	u, err = s.persist(ctx, u)
	if err != nil {
		return user.User{}, err
	}
	metrics.RecordLevelUp()
	s.log.WithField("user_id", u.ID).WithField("level", u.Level).Info("level up")
	return u, nil
}

// CompleteTask marks the task completed. The task's owner is verified
// against userID before anything is written. Completing an already
// completed task is a no-op: no error, no second reward opportunity.
// Reward XP is not credited here; callers issue an explicit GainXP.
func (s *Service) CompleteTask(ctx context.Context, userID, taskID string) (user.User, error) {
	lock := s.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	u, err := s.loadUser(ctx, userID)
	if err != nil {
		return user.User{}, err
	}

	t, err := s.tasks.GetTask(ctx, taskID)
	if stderrors.Is(err, storage.ErrNotFound) {
		return user.User{}, errors.TaskNotFound(taskID)
	}
	if err != nil {
		return user.User{}, errors.Persistence(err)
	}
	if t.OwnerID != userID {
		return user.User{}, errors.NotOwner()
	}

	if t.Completed {
		return u, nil
	}

	t.Completed = true
	if _, err := s.tasks.UpdateTask(ctx, t); err != nil {
		return user.User{}, errors.Persistence(err)
	}
	metrics.RecordTaskCompletion()
	s.log.WithField("user_id", userID).WithField("task_id", taskID).Info("task completed")
	return u, nil
}

func (s *Service) loadUser(ctx context.Context, userID string) (user.User, error) {
	u, err := s.users.GetUser(ctx, userID)
	if stderrors.Is(err, storage.ErrNotFound) {
		return user.User{}, errors.UserNotFound()
	}
	if err != nil {
		return user.User{}, errors.Persistence(err)
	}
	return u, nil
}

func (s *Service) persist(ctx context.Context, u user.User) (user.User, error) {
	updated, err := s.users.UpdateUser(ctx, u)
	if stderrors.Is(err, storage.ErrNotFound) {
		return user.User{}, errors.UserNotFound()
	}
	if err != nil {
		return user.User{}, errors.Persistence(err)
	}
	return updated, nil
}
