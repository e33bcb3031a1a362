package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/questmaster/core/internal/domain/entities"
	"github.com/questmaster/core/internal/infrastructure/logger"
	"github.com/questmaster/core/internal/ports"
)

// TaskService owns the task lifecycle and invokes the notification
// scheduler at the trigger points: create with deadline schedules,
// completion and deletion cancel, a deadline change cancels and
// reschedules.
type TaskService struct {
	taskRepo  ports.TaskRepository
	scheduler ports.NotificationScheduler
	rollover  *RolloverService
	logger    *logger.Logger
}

// NewTaskService creates a new task service
func NewTaskService(taskRepo ports.TaskRepository, scheduler ports.NotificationScheduler, rollover *RolloverService, logger *logger.Logger) *TaskService {
	return &TaskService{
		taskRepo:  taskRepo,
		scheduler: scheduler,
		rollover:  rollover,
		logger:    logger,
	}
}

// CreateTask creates a new task and, when it carries a future deadline,
// schedules its reminders.
func (s *TaskService) CreateTask(ctx context.Context, ownerID uuid.UUID, req ports.CreateTaskRequest) (*entities.Task, error) {
	task := &entities.Task{
		ID:             uuid.New(),
		OwnerID:        ownerID,
		Text:           req.Text,
		Icon:           req.Icon,
		Category:       req.Category,
		Deadline:       req.Deadline,
		Recurring:      req.Recurring,
		ProgressTarget: req.ProgressTarget,
		CreatedAt:      time.Now(),
		UpdatedAt:      time.Now(),
	}

	if req.Recurring {
		if req.RecurrenceType == nil {
			return nil, entities.ErrInvalidRecurrence
		}
		rt := entities.RecurrenceType(*req.RecurrenceType)
		if !rt.IsValid() {
			return nil, entities.ErrInvalidRecurrence
		}
		task.RecurrenceType = &rt
	}

	if err := s.taskRepo.Create(ctx, task); err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	s.logger.Infow("Task created", "task_id", task.ID, "owner_id", ownerID)

	if task.HasDeadline() {
		if err := s.scheduler.ScheduleDeadlineNotification(ctx, task.ID, ownerID); err != nil {
			s.logger.Errorw("Scheduling after create failed", "task_id", task.ID, "error", err)
		}
	}

	return task, nil
}

// UpdateTask applies a partial patch. Completion cancels pending reminders
// (and spawns the next occurrence of a recurring task); a deadline change
// cancels and reschedules.
func (s *TaskService) UpdateTask(ctx context.Context, id, ownerID uuid.UUID, req ports.UpdateTaskRequest) (*entities.Task, error) {
	task, err := s.taskRepo.GetForOwner(ctx, id, ownerID)
	if err != nil {
		return nil, err
	}

	wasCompleted := task.Completed
	oldDeadline := task.Deadline

	if req.Text != nil {
		task.Text = *req.Text
	}
	if req.Icon != nil {
		task.Icon = *req.Icon
	}
	if req.Category != nil {
		task.Category = req.Category
	}
	if req.ClearDeadline {
		task.Deadline = nil
	} else if req.Deadline != nil {
		task.Deadline = req.Deadline
	}
	if req.Completed != nil {
		task.Completed = *req.Completed
	}
	if req.Progress != nil {
		task.Progress = *req.Progress
	}
	if req.ProgressCurrent != nil {
		task.ProgressCurrent = *req.ProgressCurrent
	}

	task.UpdatedAt = time.Now()

	if err := s.taskRepo.Update(ctx, task); err != nil {
		return nil, fmt.Errorf("failed to update task: %w", err)
	}

	justCompleted := task.Completed && !wasCompleted
	deadlineChanged := !equalDeadlines(oldDeadline, task.Deadline)

	switch {
	case justCompleted:
		if err := s.scheduler.CancelTaskNotifications(ctx, task.ID); err != nil {
			s.logger.Errorw("Cancel after completion failed", "task_id", task.ID, "error", err)
		}
		if task.Recurring {
			s.spawnNextOccurrence(ctx, task)
		}

	case deadlineChanged:
		if err := s.scheduler.CancelTaskNotifications(ctx, task.ID); err != nil {
			s.logger.Errorw("Cancel after deadline change failed", "task_id", task.ID, "error", err)
		}
		if task.HasDeadline() && !task.Completed {
			if err := s.scheduler.ScheduleDeadlineNotification(ctx, task.ID, ownerID); err != nil {
				s.logger.Errorw("Reschedule after deadline change failed", "task_id", task.ID, "error", err)
			}
		}
	}

	return task, nil
}

// DeleteTask removes a task and cancels its pending reminders.
func (s *TaskService) DeleteTask(ctx context.Context, id, ownerID uuid.UUID) error {
	if err := s.taskRepo.Delete(ctx, id, ownerID); err != nil {
		return err
	}

	if err := s.scheduler.CancelTaskNotifications(ctx, id); err != nil {
		s.logger.Errorw("Cancel after delete failed", "task_id", id, "error", err)
	}

	s.logger.Infow("Task deleted", "task_id", id, "owner_id", ownerID)
	return nil
}

// ListTasks returns the owner's tasks, rolling overdue recurring deadlines
// forward first so no stale deadline ever reaches a reader.
func (s *TaskService) ListTasks(ctx context.Context, ownerID uuid.UUID) ([]*entities.Task, error) {
	filter := ports.TaskFilter{OwnerID: &ownerID}
	tasks, err := s.taskRepo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}

	s.rollover.RunForOwner(ctx, ownerID, tasks, time.Now())

	return tasks, nil
}

// GetTask retrieves one task scoped to its owner.
func (s *TaskService) GetTask(ctx context.Context, id, ownerID uuid.UUID) (*entities.Task, error) {
	return s.taskRepo.GetForOwner(ctx, id, ownerID)
}

// spawnNextOccurrence creates the follow-up task when a recurring task is
// completed: same text and category, deadline advanced by one period,
// progress back to zero.
func (s *TaskService) spawnNextOccurrence(ctx context.Context, task *entities.Task) {
	if task.RecurrenceType == nil {
		return
	}

	base := time.Now()
	if task.Deadline != nil {
		base = *task.Deadline
	}

	next, ok := entities.NextOccurrence(base, *task.RecurrenceType)
	if !ok {
		s.logger.Warnw("Unknown recurrence type, no next occurrence", "task_id", task.ID)
		return
	}

	successor := &entities.Task{
		ID:             uuid.New(),
		OwnerID:        task.OwnerID,
		Text:           task.Text,
		Icon:           task.Icon,
		Category:       task.Category,
		Deadline:       &next,
		Recurring:      true,
		RecurrenceType: task.RecurrenceType,
		ProgressTarget: task.ProgressTarget,
		CreatedAt:      time.Now(),
		UpdatedAt:      time.Now(),
	}

	if err := s.taskRepo.Create(ctx, successor); err != nil {
		s.logger.Errorw("Failed to create next occurrence", "task_id", task.ID, "error", err)
		return
	}

	s.logger.Infow("Next occurrence created",
		"task_id", task.ID,
		"successor_id", successor.ID,
		"deadline", next,
	)

	if err := s.scheduler.ScheduleDeadlineNotification(ctx, successor.ID, successor.OwnerID); err != nil {
		s.logger.Errorw("Scheduling for next occurrence failed", "task_id", successor.ID, "error", err)
	}
}

func equalDeadlines(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}
