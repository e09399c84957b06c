// Package app wires the domain services to their stores and manages their
// lifecycle.
package app

import (
	"context"
	"fmt"

	"github.com/questforge/tracker/internal/app/services/auth"
	"github.com/questforge/tracker/internal/app/services/progression"
	"github.com/questforge/tracker/internal/app/services/tasks"
	"github.com/questforge/tracker/internal/app/services/users"
	"github.com/questforge/tracker/internal/app/storage"
	"github.com/questforge/tracker/internal/app/storage/memory"
	"github.com/questforge/tracker/internal/app/system"
	"github.com/questforge/tracker/pkg/logger"
)

// Stores encapsulates persistence dependencies. Nil stores default to the
// in-memory implementation.
type Stores struct {
	Users storage.UserStore
	Tasks storage.TaskStore
}

// Config carries the application-level settings services need at
// construction time.
type Config struct {
	Auth auth.Config
}

// Application ties domain services together and manages their lifecycle.
type Application struct {
	manager *system.Manager
	log     *logger.Logger

	Auth        *auth.Service
	Users       *users.Service
	Tasks       *tasks.Service
	Progression *progression.Service
}

// New builds a fully initialised application with the provided stores.
func New(cfg Config, stores Stores, log *logger.Logger) (*Application, error) {
	if log == nil {
		log = logger.NewDefault("app")
	}

	mem := memory.New()
	if stores.Users == nil {
		stores.Users = mem
	}
	if stores.Tasks == nil {
		stores.Tasks = mem
	}

	authService, err := auth.New(cfg.Auth, log)
	if err != nil {
		return nil, fmt.Errorf("configure auth service: %w", err)
	}
	userService := users.New(stores.Users, authService, log)
	taskService := tasks.New(stores.Users, stores.Tasks, log)
	progressionService := progression.New(stores.Users, stores.Tasks, log)

	manager := system.NewManager()
	for _, name := range []string{"auth", "users", "tasks", "progression"} {
		if err := manager.Register(system.NoopService{ServiceName: name}); err != nil {
			return nil, fmt.Errorf("register %s service: %w", name, err)
		}
	}

	return &Application{
		manager:     manager,
		log:         log,
		Auth:        authService,
		Users:       userService,
		Tasks:       taskService,
		Progression: progressionService,
	}, nil
}

// Attach registers an additional lifecycle-managed service. Call before Start.
func (a *Application) Attach(service system.Service) error {
	return a.manager.Register(service)
}

// Start begins all registered services.
func (a *Application) Start(ctx context.Context) error {
	return a.manager.Start(ctx)
}

// Stop stops all services.
func (a *Application) Stop(ctx context.Context) error {
	return a.manager.Stop(ctx)
}
