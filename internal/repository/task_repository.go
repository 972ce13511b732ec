package repository

import (
	"context"
	"fmt"
	"math"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	apperrors "taskmanager/internal/errors"
	"taskmanager/internal/model"
)

// TaskRepository defines task persistence operations. Every lookup is
// scoped to the owning user.
type TaskRepository interface {
	Create(ctx context.Context, task *model.Task) error
	Update(ctx context.Context, task *model.Task) error
	FindByID(ctx context.Context, ownerID, id uuid.UUID) (*model.Task, error)
	List(ctx context.Context, ownerID uuid.UUID, filter model.TaskFilter) ([]model.Task, error)
	Delete(ctx context.Context, ownerID, id uuid.UUID) (*model.Task, error)
}

type taskRepository struct {
	db *gorm.DB
}

// NewTaskRepository creates a new task repository.
func NewTaskRepository(db *gorm.DB) TaskRepository {
	return &taskRepository{db: db}
}

// Create creates a new task.
func (r *taskRepository) Create(ctx context.Context, task *model.Task) error {
	return r.db.WithContext(ctx).Create(task).Error
}

// Update writes all task columns.
func (r *taskRepository) Update(ctx context.Context, task *model.Task) error {
	res := r.db.WithContext(ctx).Model(task).
		Where("owner_id = ?", task.OwnerID).
		Select("description", "completed", "updated_at").
		Updates(task)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// FindByID finds a task by ID for the given owner.
func (r *taskRepository) FindByID(ctx context.Context, ownerID, id uuid.UUID) (*model.Task, error) {
	var task model.Task
	if err := r.db.WithContext(ctx).Where("id = ? AND owner_id = ?", id, ownerID).First(&task).Error; err != nil {
		return nil, translate(err)
	}
	return &task, nil
}

// List lists the owner's tasks matching filter.
func (r *taskRepository) List(ctx context.Context, ownerID uuid.UUID, filter model.TaskFilter) ([]model.Task, error) {
	q := r.db.WithContext(ctx).Where("owner_id = ?", ownerID)
	if filter.Completed != nil {
		q = q.Where("completed = ?", *filter.Completed)
	}
	if filter.SortBy != "" {
		q = q.Order(clause.OrderByColumn{Column: clause.Column{Name: filter.SortBy}, Desc: filter.SortDesc})
	} else {
		q = q.Order("created_at ASC")
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}
	if filter.Skip > 0 {
		// MySQL has no OFFSET without LIMIT
		if filter.Limit == 0 {
			q = q.Limit(math.MaxInt32)
		}
		q = q.Offset(filter.Skip)
	}

	tasks := []model.Task{}
	if err := q.Find(&tasks).Error; err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return tasks, nil
}

// Delete removes a task and returns it.
func (r *taskRepository) Delete(ctx context.Context, ownerID, id uuid.UUID) (*model.Task, error) {
	var deleted *model.Task
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var task model.Task
		if err := tx.Where("id = ? AND owner_id = ?", id, ownerID).First(&task).Error; err != nil {
			return translate(err)
		}
		if err := tx.Delete(&task).Error; err != nil {
			return err
		}
		deleted = &task
		return nil
	})
	if err != nil {
		return nil, err
	}
	return deleted, nil
}
