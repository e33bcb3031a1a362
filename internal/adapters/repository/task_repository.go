package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/questmaster/core/internal/domain/entities"
	"github.com/questmaster/core/internal/ports"
)

// TaskRepositoryImpl implements the TaskRepository interface
type TaskRepositoryImpl struct {
	db *sqlx.DB
}

// NewTaskRepository creates a new task repository
func NewTaskRepository(db *sqlx.DB) ports.TaskRepository {
	return &TaskRepositoryImpl{db: db}
}

const taskColumns = `id, owner_id, text, icon, category, deadline, completed, recurring,
		recurrence_type, progress, progress_current, progress_target, created_at, updated_at`

func (r *TaskRepositoryImpl) Create(ctx context.Context, task *entities.Task) error {
	query := `
		INSERT INTO tasks (id, owner_id, text, icon, category, deadline, completed, recurring,
			recurrence_type, progress, progress_current, progress_target)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING created_at, updated_at`

	if task.ID == uuid.Nil {
		task.ID = uuid.New()
	}

	err := r.db.QueryRowContext(ctx, query,
		task.ID, task.OwnerID, task.Text, task.Icon, task.Category,
		task.Deadline, task.Completed, task.Recurring, task.RecurrenceType,
		task.Progress, task.ProgressCurrent, task.ProgressTarget,
	).Scan(&task.CreatedAt, &task.UpdatedAt)

	if err != nil {
		return fmt.Errorf("create task: %w", err)
	}

	return nil
}

func (r *TaskRepositoryImpl) GetByID(ctx context.Context, id uuid.UUID) (*entities.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = $1`

	var task entities.Task
	err := r.db.GetContext(ctx, &task, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, entities.ErrTaskNotFound
		}
		return nil, fmt.Errorf("get task by id: %w", err)
	}

	return &task, nil
}

func (r *TaskRepositoryImpl) GetForOwner(ctx context.Context, id, ownerID uuid.UUID) (*entities.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = $1 AND owner_id = $2`

	var task entities.Task
	err := r.db.GetContext(ctx, &task, query, id, ownerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, entities.ErrTaskNotFound
		}
		return nil, fmt.Errorf("get task for owner: %w", err)
	}

	return &task, nil
}

func (r *TaskRepositoryImpl) Update(ctx context.Context, task *entities.Task) error {
	query := `
		UPDATE tasks
		SET text = $2, icon = $3, category = $4, deadline = $5, completed = $6,
			recurring = $7, recurrence_type = $8, progress = $9, progress_current = $10,
			progress_target = $11, updated_at = CURRENT_TIMESTAMP
		WHERE id = $1
		RETURNING updated_at`

	err := r.db.QueryRowContext(ctx, query,
		task.ID, task.Text, task.Icon, task.Category, task.Deadline,
		task.Completed, task.Recurring, task.RecurrenceType,
		task.Progress, task.ProgressCurrent, task.ProgressTarget,
	).Scan(&task.UpdatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return entities.ErrTaskNotFound
		}
		return fmt.Errorf("update task: %w", err)
	}

	return nil
}

func (r *TaskRepositoryImpl) Delete(ctx context.Context, id, ownerID uuid.UUID) error {
	query := `DELETE FROM tasks WHERE id = $1 AND owner_id = $2`

	result, err := r.db.ExecContext(ctx, query, id, ownerID)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return entities.ErrTaskNotFound
	}

	return nil
}

func (r *TaskRepositoryImpl) List(ctx context.Context, filter ports.TaskFilter) ([]*entities.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE 1=1`
	args := []interface{}{}
	argn := 0

	next := func(v interface{}) string {
		argn++
		args = append(args, v)
		return fmt.Sprintf("$%d", argn)
	}

	if filter.OwnerID != nil {
		query += ` AND owner_id = ` + next(*filter.OwnerID)
	}
	if filter.Completed != nil {
		query += ` AND completed = ` + next(*filter.Completed)
	}
	if filter.Recurring != nil {
		query += ` AND recurring = ` + next(*filter.Recurring)
	}
	if filter.HasDeadline != nil {
		if *filter.HasDeadline {
			query += ` AND deadline IS NOT NULL`
		} else {
			query += ` AND deadline IS NULL`
		}
	}
	if filter.DeadlineBefore != nil {
		query += ` AND deadline < ` + next(*filter.DeadlineBefore)
	}

	query += ` ORDER BY created_at DESC`

	if filter.Limit > 0 {
		query += ` LIMIT ` + next(filter.Limit)
	}
	if filter.Offset > 0 {
		query += ` OFFSET ` + next(filter.Offset)
	}

	var tasks []*entities.Task
	if err := r.db.SelectContext(ctx, &tasks, query, args...); err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}

	return tasks, nil
}

func (r *TaskRepositoryImpl) ListPendingWithDeadline(ctx context.Context, ownerID uuid.UUID) ([]*entities.Task, error) {
	query := `
		SELECT ` + taskColumns + `
		FROM tasks
		WHERE owner_id = $1 AND completed = false AND deadline IS NOT NULL
		ORDER BY deadline`

	var tasks []*entities.Task
	if err := r.db.SelectContext(ctx, &tasks, query, ownerID); err != nil {
		return nil, fmt.Errorf("list pending tasks: %w", err)
	}

	return tasks, nil
}

func (r *TaskRepositoryImpl) ListRecurringOverdue(ctx context.Context, before time.Time) ([]*entities.Task, error) {
	query := `
		SELECT ` + taskColumns + `
		FROM tasks
		WHERE recurring = true AND completed = false
			AND deadline IS NOT NULL AND deadline < $1
		ORDER BY deadline`

	var tasks []*entities.Task
	if err := r.db.SelectContext(ctx, &tasks, query, before); err != nil {
		return nil, fmt.Errorf("list recurring overdue tasks: %w", err)
	}

	return tasks, nil
}

func (r *TaskRepositoryImpl) SetDeadline(ctx context.Context, id uuid.UUID, deadline time.Time, resetProgress bool) error {
	query := `
		UPDATE tasks
		SET deadline = $2,
			progress = CASE WHEN $3 THEN 0 ELSE progress END,
			progress_current = CASE WHEN $3 THEN 0 ELSE progress_current END,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id, deadline, resetProgress)
	if err != nil {
		return fmt.Errorf("set deadline: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return entities.ErrTaskNotFound
	}

	return nil
}
