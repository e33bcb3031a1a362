package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/questmaster/core/internal/domain/entities"
	"github.com/questmaster/core/internal/infrastructure/logger"
	"github.com/questmaster/core/internal/ports"
)

const deadlineReminderTitle = "Task Deadline Reminder"

// DeliveryService processes due scheduled notifications once per tick.
// Every selected record leaves the tick marked sent, whatever happened to
// it: the design accepts a silently dropped push over a duplicate one, so
// there is exactly one delivery attempt per record.
type DeliveryService struct {
	taskRepo         ports.TaskRepository
	notificationRepo ports.NotificationRepository
	push             ports.PushSender
	rollover         *RolloverService
	lookahead        time.Duration
	retention        time.Duration
	metrics          *Metrics
	logger           *logger.Logger

	// now is swappable for tests.
	now func() time.Time
}

// NewDeliveryService creates a new delivery service
func NewDeliveryService(taskRepo ports.TaskRepository, notificationRepo ports.NotificationRepository, push ports.PushSender, rollover *RolloverService, lookahead, retention time.Duration, metrics *Metrics, logger *logger.Logger) *DeliveryService {
	if lookahead <= 0 {
		lookahead = 5 * time.Minute
	}
	if retention <= 0 {
		retention = 7 * 24 * time.Hour
	}
	return &DeliveryService{
		taskRepo:         taskRepo,
		notificationRepo: notificationRepo,
		push:             push,
		rollover:         rollover,
		lookahead:        lookahead,
		retention:        retention,
		metrics:          metrics,
		logger:           logger,
		now:              time.Now,
	}
}

// RunTick executes one delivery pass: roll overdue recurring deadlines
// forward, deliver every record due within the lookahead horizon, then
// prune sent records past the retention window. Per-record failures never
// abort the tick; a storage failure abandons it and the next tick retries
// since unsent records stay unsent.
func (s *DeliveryService) RunTick(ctx context.Context) error {
	// Without a configured provider there is nothing useful to do; records
	// accumulate and drain once credentials appear.
	if !s.push.IsConfigured() {
		return nil
	}

	s.metrics.WorkerTicks.Inc()
	now := s.now()

	// Deadlines must be current before reminders are resolved against them.
	if err := s.rollover.Run(ctx, now); err != nil {
		s.logger.Errorw("Pre-delivery rollover failed", "error", err)
	}

	horizon := now.Add(s.lookahead)
	due, err := s.notificationRepo.ListDue(ctx, horizon)
	if err != nil {
		return fmt.Errorf("list due notifications: %w", err)
	}

	if len(due) > 0 {
		s.logger.Infow("Processing pending notifications", "count", len(due))

		for _, n := range due {
			s.deliver(ctx, n, now)
		}
	}

	pruned, err := s.notificationRepo.DeleteSentBefore(ctx, now.Add(-s.retention))
	if err != nil {
		return fmt.Errorf("retention sweep: %w", err)
	}
	if pruned > 0 {
		s.metrics.NotificationsPruned.Add(float64(pruned))
		s.logger.Infow("Pruned old sent notifications", "count", pruned)
	}

	return nil
}

// deliver handles one record end to end. On return the record is marked
// sent, with either a result summary or an error note.
func (s *DeliveryService) deliver(ctx context.Context, n *entities.ScheduledNotification, now time.Time) {
	task, err := s.taskRepo.GetByID(ctx, n.TaskID)
	switch {
	case errors.Is(err, entities.ErrTaskNotFound):
		// The task vanished after scheduling; without it there is no
		// message to render and never will be.
		note := "task not found"
		n.Error = &note
		s.finish(ctx, n, now, "task_missing")
		return
	case err != nil:
		// Storage hiccup: leave the record unsent so the next tick can
		// retry resolution.
		s.logger.Errorw("Task lookup failed", "notification_id", n.ID, "task_id", n.TaskID, "error", err)
		return
	}

	// Completed between scheduling and delivery: suppress the push.
	if task.Completed {
		s.finish(ctx, n, now, "task_completed")
		return
	}

	body := renderDeadlineBody(task, now)
	payload := map[string]interface{}{
		"taskId": n.TaskID.String(),
		"type":   string(n.NotificationType),
	}
	if task.Deadline != nil {
		payload["deadline"] = task.Deadline.Format(time.RFC3339)
	}

	result, err := s.push.Send(ctx, n.DeviceToken, deadlineReminderTitle, body, payload)
	if err != nil {
		// At-most-one attempt: a transport failure is recorded on the
		// record, which is still marked sent. No retry by design.
		n.RecordError(err)
		s.logger.LogNotificationProcessed(n.ID.String(), n.TaskID.String(), err)
		s.finish(ctx, n, now, "error")
		return
	}

	n.RecordResult(result)
	s.logger.LogNotificationProcessed(n.ID.String(), n.TaskID.String(), nil)

	outcome := "sent"
	if len(result.Sent) == 0 {
		outcome = "rejected"
	}
	s.finish(ctx, n, now, outcome)
}

// finish marks a record sent and persists it. A record is never left
// unsent once an attempt has been made against it.
func (s *DeliveryService) finish(ctx context.Context, n *entities.ScheduledNotification, now time.Time, outcome string) {
	n.MarkSent(now)
	s.metrics.NotificationsDelivered.WithLabelValues(outcome).Inc()

	if err := s.notificationRepo.MarkSent(ctx, n); err != nil {
		s.logger.Errorw("Failed to persist sent flag",
			"notification_id", n.ID,
			"outcome", outcome,
			"error", err,
		)
	}
}

// renderDeadlineBody builds the push text from delivery-time now, so the
// minutes shown match when the user actually receives the alert.
func renderDeadlineBody(task *entities.Task, now time.Time) string {
	icon := task.DisplayIcon()

	if task.Deadline == nil {
		return fmt.Sprintf("%s %s is due now!", icon, task.Text)
	}

	minutes := int(math.Round(task.Deadline.Sub(now).Minutes()))
	switch {
	case minutes <= 0:
		return fmt.Sprintf("%s %s is due now!", icon, task.Text)
	case minutes < 60:
		return fmt.Sprintf("%s %s is due in %d %s!", icon, task.Text, minutes, plural(minutes, "minute"))
	default:
		hours := int(math.Round(float64(minutes) / 60))
		return fmt.Sprintf("%s %s is due in %d %s!", icon, task.Text, hours, plural(hours, "hour"))
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return unit
	}
	return unit + "s"
}
