package handler

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	apperrors "taskmanager/internal/errors"
	"taskmanager/internal/service"
)

// TaskHandler handles task endpoints. Every route acts on the
// authenticated user's tasks only.
type TaskHandler struct {
	taskService service.TaskService
}

// NewTaskHandler creates a new task handler.
func NewTaskHandler(taskService service.TaskService) *TaskHandler {
	return &TaskHandler{taskService: taskService}
}

// CreateTaskRequest represents a task creation request.
type CreateTaskRequest struct {
	Description string `json:"description" validate:"required"`
	Completed   bool   `json:"completed"`
}

// UpdateTaskRequest lists the updatable task fields.
type UpdateTaskRequest struct {
	Description string `json:"description,omitempty"`
	Completed   bool   `json:"completed,omitempty"`
}

// Create godoc
// @Summary Create task
// @Tags tasks
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CreateTaskRequest true "Task"
// @Success 201 {object} model.Task
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Router /tasks [post]
func (h *TaskHandler) Create(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}

	var req CreateTaskRequest
	if err := c.Bind(&req); err != nil {
		return badRequest("invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return badRequest("%s", err.Error())
	}

	task, err := h.taskService.Create(c.Request().Context(), user.ID, req.Description, req.Completed)
	if err != nil {
		return fail(err)
	}
	return c.JSON(http.StatusCreated, task)
}

// List godoc
// @Summary List own tasks
// @Tags tasks
// @Produce json
// @Security BearerAuth
// @Param completed query bool false "Filter by completion"
// @Param limit query int false "Page size"
// @Param skip query int false "Offset"
// @Param sortBy query string false "createdAt|updatedAt|description|completed, optionally :asc or :desc"
// @Success 200 {array} model.Task
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Router /tasks [get]
func (h *TaskHandler) List(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}

	tasks, err := h.taskService.List(c.Request().Context(), user.ID, service.TaskQuery{
		Completed: c.QueryParam("completed"),
		Limit:     c.QueryParam("limit"),
		Skip:      c.QueryParam("skip"),
		SortBy:    c.QueryParam("sortBy"),
	})
	if err != nil {
		return fail(err)
	}
	return c.JSON(http.StatusOK, tasks)
}

// Get godoc
// @Summary Get task
// @Tags tasks
// @Produce json
// @Security BearerAuth
// @Param id path string true "Task ID"
// @Success 200 {object} model.Task
// @Failure 401 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /tasks/{id} [get]
func (h *TaskHandler) Get(c echo.Context) error {
	owner, id, err := h.target(c)
	if err != nil {
		return err
	}

	task, err := h.taskService.Get(c.Request().Context(), owner, id)
	if err != nil {
		return fail(err)
	}
	return c.JSON(http.StatusOK, task)
}

// Update godoc
// @Summary Update task
// @Description Only description and completed may be sent.
// @Tags tasks
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Task ID"
// @Param request body UpdateTaskRequest true "Fields to change"
// @Success 200 {object} model.Task
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /tasks/{id} [patch]
func (h *TaskHandler) Update(c echo.Context) error {
	owner, id, err := h.target(c)
	if err != nil {
		return err
	}
	fields, err := bindFields(c)
	if err != nil {
		return err
	}

	task, err := h.taskService.Update(c.Request().Context(), owner, id, fields)
	if err != nil {
		return fail(err)
	}
	return c.JSON(http.StatusOK, task)
}

// Delete godoc
// @Summary Delete task
// @Tags tasks
// @Produce json
// @Security BearerAuth
// @Param id path string true "Task ID"
// @Success 200 {object} model.Task
// @Failure 401 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /tasks/{id} [delete]
func (h *TaskHandler) Delete(c echo.Context) error {
	owner, id, err := h.target(c)
	if err != nil {
		return err
	}

	task, err := h.taskService.Delete(c.Request().Context(), owner, id)
	if err != nil {
		return fail(err)
	}
	return c.JSON(http.StatusOK, task)
}

// target resolves the owner and the task id from the request. A malformed
// id cannot name an existing task.
func (h *TaskHandler) target(c echo.Context) (uuid.UUID, uuid.UUID, error) {
	user, err := currentUser(c)
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, uuid.Nil, fail(apperrors.ErrNotFound)
	}
	return user.ID, id, nil
}
