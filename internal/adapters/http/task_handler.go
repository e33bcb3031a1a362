package http

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/questmaster/core/internal/application/services"
	"github.com/questmaster/core/internal/domain/entities"
	"github.com/questmaster/core/internal/infrastructure/logger"
	"github.com/questmaster/core/internal/ports"
)

// AuthHandler handles authentication-related requests
type AuthHandler struct {
	authService *services.AuthService
	logger      *logger.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService *services.AuthService, logger *logger.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		logger:      logger,
	}
}

// Login handles user login
func (h *AuthHandler) Login(c echo.Context) error {
	var req ports.LoginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}

	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	response, err := h.authService.Login(c.Request().Context(), req)
	if err != nil {
		h.logger.Warnw("Login failed", "error", err, "email", req.Email)
		return echo.NewHTTPError(http.StatusUnauthorized, "Invalid credentials")
	}

	return c.JSON(http.StatusOK, response)
}

// TaskHandler handles task CRUD. Every mutation flows through TaskService
// so deadline reminders stay in sync with the task's state.
type TaskHandler struct {
	taskService *services.TaskService
	logger      *logger.Logger
}

// NewTaskHandler creates a new task handler
func NewTaskHandler(taskService *services.TaskService, logger *logger.Logger) *TaskHandler {
	return &TaskHandler{
		taskService: taskService,
		logger:      logger,
	}
}

// CreateTask handles task creation
func (h *TaskHandler) CreateTask(c echo.Context) error {
	ownerID := getUserIDFromContext(c)

	var req ports.CreateTaskRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}

	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	task, err := h.taskService.CreateTask(c.Request().Context(), ownerID, req)
	if err != nil {
		if errors.Is(err, entities.ErrInvalidRecurrence) {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		h.logger.Errorw("Create task failed", "error", err, "owner_id", ownerID)
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to create task")
	}

	return c.JSON(http.StatusCreated, task)
}

// GetTask handles getting a task by ID
func (h *TaskHandler) GetTask(c echo.Context) error {
	ownerID := getUserIDFromContext(c)

	taskID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid task ID")
	}

	task, err := h.taskService.GetTask(c.Request().Context(), taskID, ownerID)
	if err != nil {
		if errors.Is(err, entities.ErrTaskNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "Task not found")
		}
		h.logger.Errorw("Get task failed", "error", err, "task_id", taskID)
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to retrieve task")
	}

	return c.JSON(http.StatusOK, task)
}

// UpdateTask handles partial task updates
func (h *TaskHandler) UpdateTask(c echo.Context) error {
	ownerID := getUserIDFromContext(c)

	taskID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid task ID")
	}

	var req ports.UpdateTaskRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}

	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	task, err := h.taskService.UpdateTask(c.Request().Context(), taskID, ownerID, req)
	if err != nil {
		if errors.Is(err, entities.ErrTaskNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "Task not found")
		}
		h.logger.Errorw("Update task failed", "error", err, "task_id", taskID)
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to update task")
	}

	return c.JSON(http.StatusOK, task)
}

// DeleteTask handles task deletion
func (h *TaskHandler) DeleteTask(c echo.Context) error {
	ownerID := getUserIDFromContext(c)

	taskID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid task ID")
	}

	if err := h.taskService.DeleteTask(c.Request().Context(), taskID, ownerID); err != nil {
		if errors.Is(err, entities.ErrTaskNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "Task not found")
		}
		h.logger.Errorw("Delete task failed", "error", err, "task_id", taskID)
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to delete task")
	}

	return c.JSON(http.StatusOK, MessageResponse{Message: "Task deleted"})
}

// ListTasks handles listing the caller's tasks
func (h *TaskHandler) ListTasks(c echo.Context) error {
	ownerID := getUserIDFromContext(c)

	tasks, err := h.taskService.ListTasks(c.Request().Context(), ownerID)
	if err != nil {
		h.logger.Errorw("List tasks failed", "error", err, "owner_id", ownerID)
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to retrieve tasks")
	}

	return c.JSON(http.StatusOK, tasks)
}

// Utility functions and helper types

func getUserIDFromContext(c echo.Context) uuid.UUID {
	user := c.Get("user")
	if user == nil {
		return uuid.Nil
	}

	if userStr, ok := user.(string); ok {
		userID, _ := uuid.Parse(userStr)
		return userID
	}

	return uuid.Nil
}

// Request/Response types

type MessageResponse struct {
	Message string `json:"message"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
