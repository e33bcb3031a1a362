package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/questmaster/core/internal/domain/entities"
	"github.com/questmaster/core/internal/infrastructure/logger"
	"github.com/questmaster/core/internal/ports"
)

// NotificationService schedules and cancels deadline reminders. Scheduling
// is idempotent: calling it any number of times for the same task yields at
// most one unsent record per qualifying device.
type NotificationService struct {
	taskRepo         ports.TaskRepository
	deviceRepo       ports.DeviceRepository
	notificationRepo ports.NotificationRepository
	metrics          *Metrics
	logger           *logger.Logger

	// now is swappable for tests.
	now func() time.Time
}

// NewNotificationService creates a new notification service
func NewNotificationService(taskRepo ports.TaskRepository, deviceRepo ports.DeviceRepository, notificationRepo ports.NotificationRepository, metrics *Metrics, logger *logger.Logger) *NotificationService {
	return &NotificationService{
		taskRepo:         taskRepo,
		deviceRepo:       deviceRepo,
		notificationRepo: notificationRepo,
		metrics:          metrics,
		logger:           logger,
		now:              time.Now,
	}
}

// ScheduleDeadlineNotification creates a pending reminder for each of the
// owner's alert-enabled devices whose notice window has not already passed.
// A task that is missing, completed, or without a deadline is a logged
// no-op, not an error.
func (s *NotificationService) ScheduleDeadlineNotification(ctx context.Context, taskID, ownerID uuid.UUID) error {
	task, err := s.taskRepo.GetForOwner(ctx, taskID, ownerID)
	if err != nil {
		if errors.Is(err, entities.ErrTaskNotFound) {
			s.logger.Warnw("Task not found, nothing to schedule", "task_id", taskID, "owner_id", ownerID)
			return nil
		}
		return fmt.Errorf("load task: %w", err)
	}

	if !task.HasDeadline() || task.Completed {
		s.logger.Debugw("Task has no deadline or is completed, nothing to schedule", "task_id", taskID)
		return nil
	}

	devices, err := s.deviceRepo.ListAlertable(ctx, ownerID)
	if err != nil {
		return fmt.Errorf("load devices: %w", err)
	}

	if len(devices) == 0 {
		s.logger.Debugw("No alert-enabled devices for owner", "owner_id", ownerID)
		return nil
	}

	now := s.now()
	deadline := *task.Deadline

	for _, device := range devices {
		scheduledTime := deadline.Add(-device.NoticeWindow())

		// Too late to usefully schedule; the worker would skip it anyway.
		if !scheduledTime.After(now) {
			s.logger.Debugw("Notification time already passed, skipping device",
				"task_id", taskID,
				"device", device.DeviceToken,
				"scheduled_time", scheduledTime,
			)
			continue
		}

		exists, err := s.notificationRepo.UnsentExists(ctx, taskID, ownerID, device.DeviceToken)
		if err != nil {
			return fmt.Errorf("check pending notification: %w", err)
		}
		if exists {
			continue
		}

		advance := device.AdvanceNotice
		if advance <= 0 {
			advance = entities.DefaultAdvanceNotice
		}

		record := &entities.ScheduledNotification{
			ID:               uuid.New(),
			OwnerID:          ownerID,
			TaskID:           taskID,
			DeviceToken:      device.DeviceToken,
			NotificationType: entities.NotificationDeadline,
			ScheduledTime:    scheduledTime,
			AdvanceNotice:    advance,
			Sent:             false,
			CreatedAt:        now,
		}

		if err := s.notificationRepo.Create(ctx, record); err != nil {
			return fmt.Errorf("persist notification: %w", err)
		}

		s.metrics.NotificationsScheduled.Inc()
		s.logger.LogNotificationScheduled(taskID.String(), ownerID.String(), device.DeviceToken, scheduledTime.Format(time.RFC3339))
	}

	return nil
}

// ScheduleForOwner batch-schedules reminders for every incomplete task of
// the owner that has a deadline. Used when a device registers or its
// settings change, so existing tasks get coverage.
func (s *NotificationService) ScheduleForOwner(ctx context.Context, ownerID uuid.UUID) error {
	tasks, err := s.taskRepo.ListPendingWithDeadline(ctx, ownerID)
	if err != nil {
		return fmt.Errorf("list pending tasks: %w", err)
	}

	s.logger.Debugw("Scheduling notifications for owner", "owner_id", ownerID, "tasks", len(tasks))

	for _, task := range tasks {
		if err := s.ScheduleDeadlineNotification(ctx, task.ID, ownerID); err != nil {
			s.logger.Errorw("Scheduling failed for task", "task_id", task.ID, "error", err)
		}
	}

	return nil
}

// CancelTaskNotifications removes every unsent reminder for the task,
// regardless of owner or device. Sent records are historical and untouched.
func (s *NotificationService) CancelTaskNotifications(ctx context.Context, taskID uuid.UUID) error {
	removed, err := s.notificationRepo.DeleteUnsentForTask(ctx, taskID)
	if err != nil {
		return fmt.Errorf("cancel notifications: %w", err)
	}

	if removed > 0 {
		s.metrics.NotificationsCanceled.Add(float64(removed))
		s.logger.Infow("Cancelled pending notifications", "task_id", taskID, "count", removed)
	}

	return nil
}
