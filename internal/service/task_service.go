package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"taskmanager/internal/model"
	"taskmanager/internal/repository"
)

// sortable maps the public sort keys onto columns.
var sortable = map[string]string{
	"createdAt":   "created_at",
	"updatedAt":   "updated_at",
	"description": "description",
	"completed":   "completed",
}

// TaskQuery holds raw list parameters as received from the client.
type TaskQuery struct {
	Completed string
	Limit     string
	Skip      string
	SortBy    string
}

// TaskService handles owner-scoped task operations.
type TaskService interface {
	Create(ctx context.Context, ownerID uuid.UUID, description string, completed bool) (*model.Task, error)
	List(ctx context.Context, ownerID uuid.UUID, query TaskQuery) ([]model.Task, error)
	Get(ctx context.Context, ownerID, id uuid.UUID) (*model.Task, error)
	Update(ctx context.Context, ownerID, id uuid.UUID, fields map[string]any) (*model.Task, error)
	Delete(ctx context.Context, ownerID, id uuid.UUID) (*model.Task, error)
}

type taskService struct {
	repo repository.TaskRepository
}

// NewTaskService creates a new task service.
func NewTaskService(repo repository.TaskRepository) TaskService {
	return &taskService{repo: repo}
}

func (s *taskService) Create(ctx context.Context, ownerID uuid.UUID, description string, completed bool) (*model.Task, error) {
	description = strings.TrimSpace(description)
	if description == "" {
		return nil, invalidField("description is required")
	}

	task := &model.Task{
		ID:          uuid.New(),
		Description: description,
		Completed:   completed,
		OwnerID:     ownerID,
	}
	if err := s.repo.Create(ctx, task); err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}
	return task, nil
}

func (s *taskService) List(ctx context.Context, ownerID uuid.UUID, query TaskQuery) ([]model.Task, error) {
	filter, err := ParseTaskQuery(query)
	if err != nil {
		return nil, err
	}
	return s.repo.List(ctx, ownerID, filter)
}

func (s *taskService) Get(ctx context.Context, ownerID, id uuid.UUID) (*model.Task, error) {
	return s.repo.FindByID(ctx, ownerID, id)
}

// Update changes description and/or completed. Any other key rejects the
// whole update.
func (s *taskService) Update(ctx context.Context, ownerID, id uuid.UUID, fields map[string]any) (*model.Task, error) {
	if err := checkAllowed(fields, "description", "completed"); err != nil {
		return nil, err
	}

	task, err := s.repo.FindByID(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}

	if raw, ok := fields["description"]; ok {
		v, err := stringField("description", raw)
		if err != nil {
			return nil, err
		}
		if v = strings.TrimSpace(v); v == "" {
			return nil, invalidField("description is required")
		}
		task.Description = v
	}
	if raw, ok := fields["completed"]; ok {
		v, err := boolField("completed", raw)
		if err != nil {
			return nil, err
		}
		task.Completed = v
	}

	if err := s.repo.Update(ctx, task); err != nil {
		return nil, fmt.Errorf("update task: %w", err)
	}
	return task, nil
}

func (s *taskService) Delete(ctx context.Context, ownerID, id uuid.UUID) (*model.Task, error) {
	return s.repo.Delete(ctx, ownerID, id)
}

// ParseTaskQuery validates list parameters. Empty values mean no filter,
// no paging and creation order.
func ParseTaskQuery(q TaskQuery) (model.TaskFilter, error) {
	var f model.TaskFilter

	switch q.Completed {
	case "":
	case "true":
		v := true
		f.Completed = &v
	case "false":
		v := false
		f.Completed = &v
	default:
		return f, invalidField("completed must be true or false")
	}

	var err error
	if f.Limit, err = nonNegative("limit", q.Limit); err != nil {
		return f, err
	}
	if f.Skip, err = nonNegative("skip", q.Skip); err != nil {
		return f, err
	}

	if q.SortBy != "" {
		field, dir, _ := strings.Cut(q.SortBy, ":")
		column, ok := sortable[field]
		if !ok {
			return f, invalidField("cannot sort by %s", field)
		}
		switch dir {
		case "", "asc":
		case "desc":
			f.SortDesc = true
		default:
			return f, invalidField("sort order must be asc or desc")
		}
		f.SortBy = column
	}
	return f, nil
}

func nonNegative(key, raw string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, invalidField("%s must be a non-negative integer", key)
	}
	return n, nil
}
