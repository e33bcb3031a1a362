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

// RolloverService advances the deadlines of recurring tasks that were never
// completed past their occurrence, so no reader or scheduler ever observes
// a stale past deadline on an active recurring task.
//
// It runs lazily on the task-list read path and again at the start of every
// delivery-worker tick; both entry points converge on rollTask.
type RolloverService struct {
	taskRepo ports.TaskRepository
	maxSteps int
	metrics  *Metrics
	logger   *logger.Logger
}

// NewRolloverService creates a new rollover service. maxSteps bounds the
// per-task advancement loop against pathological data or clock skew.
func NewRolloverService(taskRepo ports.TaskRepository, maxSteps int, metrics *Metrics, logger *logger.Logger) *RolloverService {
	if maxSteps <= 0 {
		maxSteps = 1000
	}
	return &RolloverService{
		taskRepo: taskRepo,
		maxSteps: maxSteps,
		metrics:  metrics,
		logger:   logger,
	}
}

// Run advances every overdue recurring task in the store. A failure on one
// task is logged and does not stop the sweep.
func (s *RolloverService) Run(ctx context.Context, now time.Time) error {
	tasks, err := s.taskRepo.ListRecurringOverdue(ctx, entities.StartOfDay(now))
	if err != nil {
		return fmt.Errorf("list overdue recurring tasks: %w", err)
	}

	for _, task := range tasks {
		if err := s.rollTask(ctx, task, now); err != nil {
			s.logger.Errorw("Rollover failed", "task_id", task.ID, "error", err)
		}
	}

	return nil
}

// RunForOwner advances the owner's overdue recurring tasks in place. The
// passed slice is mutated so callers can return the freshened tasks without
// a second read.
func (s *RolloverService) RunForOwner(ctx context.Context, ownerID uuid.UUID, tasks []*entities.Task, now time.Time) {
	for _, task := range tasks {
		if task.OwnerID != ownerID {
			continue
		}
		if err := s.rollTask(ctx, task, now); err != nil {
			s.logger.Errorw("Rollover failed", "task_id", task.ID, "owner_id", ownerID, "error", err)
		}
	}
}

// rollTask advances one task's deadline until its calendar day reaches
// today. When the deadline moved, the new value is written back and the
// progress counters are reset.
func (s *RolloverService) rollTask(ctx context.Context, task *entities.Task, now time.Time) error {
	if !task.NeedsRollover(now) {
		return nil
	}

	// RecurrenceType is guaranteed non-nil only by convention; data written
	// before the recurring flag existed can miss it.
	if task.RecurrenceType == nil {
		s.logger.Warnw("Recurring task without recurrence type, skipping rollover", "task_id", task.ID)
		return nil
	}

	today := entities.StartOfDay(now)
	deadline := *task.Deadline
	original := deadline

	steps := 0
	for entities.StartOfDay(deadline).Before(today) {
		if steps >= s.maxSteps {
			// Data anomaly, not an error: leave the deadline where the
			// loop got to rather than hanging the request.
			s.logger.Errorw("Rollover iteration cap reached",
				"task_id", task.ID,
				"steps", steps,
				"deadline", deadline,
			)
			break
		}

		next, ok := entities.NextOccurrence(deadline, *task.RecurrenceType)
		if !ok {
			s.logger.Warnw("Unknown recurrence type, rollover stopped",
				"task_id", task.ID,
				"recurrence_type", *task.RecurrenceType,
			)
			break
		}

		deadline = next
		steps++
	}

	if deadline.Equal(original) {
		return nil
	}

	if err := s.taskRepo.SetDeadline(ctx, task.ID, deadline, true); err != nil {
		return fmt.Errorf("persist rolled deadline: %w", err)
	}

	task.Deadline = &deadline
	task.ResetProgress()

	s.metrics.RolloversApplied.Inc()
	s.logger.Infow("Recurring task rolled forward",
		"task_id", task.ID,
		"from", original,
		"to", deadline,
		"steps", steps,
	)

	return nil
}
