// Package httpapi exposes the application services over HTTP.
package httpapi

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/questforge/tracker/internal/app"
	"github.com/questforge/tracker/internal/app/domain/task"
	"github.com/questforge/tracker/internal/app/domain/user"
	"github.com/questforge/tracker/internal/app/services/users"
	"github.com/questforge/tracker/internal/errors"
	"github.com/questforge/tracker/internal/httputil"
	"github.com/questforge/tracker/internal/middleware"
	"github.com/questforge/tracker/pkg/logger"
)

// PublicPaths lists the endpoints reachable without a bearer token.
var PublicPaths = []string{
	"/healthz",
	"/auth/register",
	"/auth/login",
	"/users",
	"/users/search",
}

// handler bundles HTTP endpoints for the application services.
type handler struct {
	app *app.Application
	log *logger.Logger
}

// NewHandler returns the router exposing the core API. Authentication is
// layered on by the caller (see middleware.AuthMiddleware) so tests can
// compose it explicitly.
func NewHandler(application *app.Application, log *logger.Logger) http.Handler {
	if log == nil {
		log = logger.NewDefault("httpapi")
	}
	h := &handler{app: application, log: log}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/healthz", h.health)

	router.POST("/auth/register", h.register)
	router.POST("/auth/login", h.login)

	router.GET("/users", h.listUsers)
	router.GET("/users/search", h.searchUsers)
	router.GET("/me", h.currentUser)

	router.GET("/tasks", h.listTasks)
	router.POST("/tasks", h.createTask)
	router.PUT("/tasks/:id", h.updateTask)
	router.DELETE("/tasks/:id", h.deleteTask)
	router.POST("/tasks/:id/complete", h.completeTask)

	router.POST("/progression/xp", h.gainXP)
	router.POST("/progression/levelup", h.levelUp)

	return router
}

func (h *handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// --- auth --------------------------------------------------------------------

func (h *handler) register(c *gin.Context) {
	var payload struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		h.writeError(c, errors.Validation("invalid request body"))
		return
	}

	result, err := h.app.Users.Register(c.Request.Context(), payload.Username, payload.Password)
	if err != nil {
		h.writeError(c, err)
		return
	}
	if result.Status != users.RegisterOK {
		h.writeError(c, errors.UserExists(payload.Username))
		return
	}
	c.JSON(http.StatusCreated, result.User)
}

func (h *handler) login(c *gin.Context) {
	var payload struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		h.writeError(c, errors.Validation("invalid request body"))
		return
	}

	token, err := h.app.Users.Login(c.Request.Context(), payload.Username, payload.Password)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token})
}

// --- users -------------------------------------------------------------------

func (h *handler) listUsers(c *gin.Context) {
	users, err := h.app.Users.List(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, users)
}

func (h *handler) searchUsers(c *gin.Context) {
	users, err := h.app.Users.Search(c.Request.Context(), c.Query("term"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, users)
}

// userResponse embeds the user's tasks so callers get the full aggregate.
type userResponse struct {
	user.User
	Tasks []task.Task `json:"tasks"`
}

func (h *handler) currentUser(c *gin.Context) {
	userID, ok := h.authedUser(c)
	if !ok {
		return
	}

	u, err := h.app.Users.Get(c.Request.Context(), userID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	tasks, err := h.app.Tasks.ListAll(c.Request.Context(), userID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, userResponse{User: u, Tasks: tasks})
}

// --- tasks -------------------------------------------------------------------

func (h *handler) listTasks(c *gin.Context) {
	userID, ok := h.authedUser(c)
	if !ok {
		return
	}

	offset := queryInt(c, "offset", 0)
	limit := queryInt(c, "limit", 0)
	tasks, err := h.app.Tasks.List(c.Request.Context(), userID, c.Query("term"), offset, limit)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, tasks)
}

type taskPayload struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Difficulty  int    `json:"difficulty"`
	// Amount is accepted for wire compatibility and ignored; the reward is
	// always derived from the difficulty server-side.
	Amount *int `json:"amount"`
}

func (h *handler) createTask(c *gin.Context) {
	userID, ok := h.authedUser(c)
	if !ok {
		return
	}

	var payload taskPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		h.writeError(c, errors.Validation("invalid request body"))
		return
	}

	created, err := h.app.Tasks.Create(c.Request.Context(), userID, payload.Title, payload.Description, task.Difficulty(payload.Difficulty))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

func (h *handler) updateTask(c *gin.Context) {
	userID, ok := h.authedUser(c)
	if !ok {
		return
	}

	var payload taskPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		h.writeError(c, errors.Validation("invalid request body"))
		return
	}

	updated, err := h.app.Tasks.Update(c.Request.Context(), userID, c.Param("id"), payload.Title, payload.Description, task.Difficulty(payload.Difficulty))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

func (h *handler) deleteTask(c *gin.Context) {
	userID, ok := h.authedUser(c)
	if !ok {
		return
	}

	deleted, err := h.app.Tasks.Delete(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, deleted)
}

func (h *handler) completeTask(c *gin.Context) {
	userID, ok := h.authedUser(c)
	if !ok {
		return
	}

	u, err := h.app.Progression.CompleteTask(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, u)
}

// --- progression -------------------------------------------------------------

func (h *handler) gainXP(c *gin.Context) {
	userID, ok := h.authedUser(c)
	if !ok {
		return
	}

	var payload struct {
		Amount int `json:"amount"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		h.writeError(c, errors.Validation("invalid request body"))
		return
	}

	u, err := h.app.Progression.GainXP(c.Request.Context(), userID, payload.Amount)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, u)
}

func (h *handler) levelUp(c *gin.Context) {
	userID, ok := h.authedUser(c)
	if !ok {
		return
	}

	u, err := h.app.Progression.LevelUp(c.Request.Context(), userID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, u)
}

// --- helpers -----------------------------------------------------------------

func (h *handler) authedUser(c *gin.Context) (string, bool) {
	userID := middleware.GetUserID(c.Request.Context())
	if userID == "" {
		h.writeError(c, errors.Unauthorized(""))
		return "", false
	}
	return userID, true
}

func (h *handler) writeError(c *gin.Context, err error) {
	serviceErr := errors.GetServiceError(err)
	if serviceErr == nil {
		h.log.WithError(err).Error("unhandled error")
		serviceErr = errors.Internal("request failed", err)
	}
	c.JSON(serviceErr.HTTPStatus, httputil.ErrorBody{Error: httputil.ErrorDetail{
		Code:    string(serviceErr.Code),
		Message: serviceErr.Message,
		Details: serviceErr.Details,
	}})
}

func queryInt(c *gin.Context, name string, fallback int) int {
	raw := c.Query(name)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}
