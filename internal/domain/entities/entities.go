package entities

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Common errors
var (
	ErrTaskNotFound         = errors.New("task not found")
	ErrUserNotFound         = errors.New("user not found")
	ErrDeviceNotFound       = errors.New("device not found")
	ErrNotificationNotFound = errors.New("notification not found")
	ErrUnauthorized         = errors.New("unauthorized")
	ErrInvalidRecurrence    = errors.New("invalid recurrence type")
	ErrPushNotConfigured    = errors.New("push provider not configured")
)

// RecurrenceType identifies how often a recurring task repeats.
type RecurrenceType string

const (
	RecurrenceDaily   RecurrenceType = "daily"
	RecurrenceWeekly  RecurrenceType = "weekly"
	RecurrenceMonthly RecurrenceType = "monthly"
	RecurrenceYearly  RecurrenceType = "yearly"
)

// NotificationType identifies what kind of push a scheduled notification
// carries. Deadline reminders are the only kind produced today.
type NotificationType string

const (
	NotificationDeadline NotificationType = "deadline"
)

// User represents an account that owns tasks and devices.
type User struct {
	ID           uuid.UUID  `json:"id" db:"id"`
	Email        string     `json:"email" db:"email"`
	Username     string     `json:"username" db:"username"`
	PasswordHash string     `json:"-" db:"password_hash"`
	IsActive     bool       `json:"is_active" db:"is_active"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at" db:"updated_at"`
	DeletedAt    *time.Time `json:"deleted_at" db:"deleted_at"`
}

// Task represents a single to-do item. Deadline, recurrence and progress
// are all optional; the notification pipeline only cares about tasks that
// carry a deadline.
type Task struct {
	ID              uuid.UUID       `json:"id" db:"id"`
	OwnerID         uuid.UUID       `json:"owner_id" db:"owner_id"`
	Text            string          `json:"text" db:"text"`
	Icon            string          `json:"icon" db:"icon"`
	Category        *string         `json:"category" db:"category"`
	Deadline        *time.Time      `json:"deadline" db:"deadline"`
	Completed       bool            `json:"completed" db:"completed"`
	Recurring       bool            `json:"recurring" db:"recurring"`
	RecurrenceType  *RecurrenceType `json:"recurrence_type" db:"recurrence_type"`
	Progress        int             `json:"progress" db:"progress"`
	ProgressCurrent int             `json:"progress_current" db:"progress_current"`
	ProgressTarget  int             `json:"progress_target" db:"progress_target"`
	CreatedAt       time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at" db:"updated_at"`
}

// DeviceRegistration represents a push-capable device owned by a user.
// One row per device token.
type DeviceRegistration struct {
	DeviceToken    string    `json:"device_token" db:"device_token"`
	OwnerID        uuid.UUID `json:"owner_id" db:"owner_id"`
	Platform       string    `json:"platform" db:"platform"`
	Enabled        bool      `json:"enabled" db:"enabled"`
	DeadlineAlerts bool      `json:"deadline_alerts" db:"deadline_alerts"`
	TaskReminders  bool      `json:"task_reminders" db:"task_reminders"`
	DailyDigest    bool      `json:"daily_digest" db:"daily_digest"`
	AdvanceNotice  int       `json:"advance_notice" db:"advance_notice"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time `json:"updated_at" db:"updated_at"`
}

// DefaultAdvanceNotice is the advance-notice window, in minutes, applied
// when a device registers without one.
const DefaultAdvanceNotice = 30

// ScheduledNotification is a pending or delivered deadline reminder for one
// (task, owner, device) tuple. At most one unsent row may exist per tuple.
type ScheduledNotification struct {
	ID               uuid.UUID        `json:"id" db:"id"`
	OwnerID          uuid.UUID        `json:"owner_id" db:"owner_id"`
	TaskID           uuid.UUID        `json:"task_id" db:"task_id"`
	DeviceToken      string           `json:"device_token" db:"device_token"`
	NotificationType NotificationType `json:"notification_type" db:"notification_type"`
	ScheduledTime    time.Time        `json:"scheduled_time" db:"scheduled_time"`
	// AdvanceNotice is copied from the device at schedule time; later
	// settings changes do not retroactively move the reminder.
	AdvanceNotice int        `json:"advance_notice" db:"advance_notice"`
	Sent          bool       `json:"sent" db:"sent"`
	SentAt        *time.Time `json:"sent_at" db:"sent_at"`
	ResultSent    *int       `json:"result_sent" db:"result_sent"`
	ResultFailed  *int       `json:"result_failed" db:"result_failed"`
	Error         *string    `json:"error" db:"error"`
	CreatedAt     time.Time  `json:"created_at" db:"created_at"`
}

// PushResult summarizes one push-provider send call.
type PushResult struct {
	Sent   []string      `json:"sent"`
	Failed []PushFailure `json:"failed"`
}

// PushFailure describes a device the provider rejected.
type PushFailure struct {
	Device string `json:"device"`
	Reason string `json:"reason"`
}

// Business logic methods for Task

// HasDeadline reports whether the task carries a deadline at all.
func (t *Task) HasDeadline() bool {
	return t.Deadline != nil
}

// IsOverdue reports whether the deadline has passed on an open task.
func (t *Task) IsOverdue(now time.Time) bool {
	if t.Deadline == nil || t.Completed {
		return false
	}
	return now.After(*t.Deadline)
}

// NeedsRollover reports whether a recurring task's deadline day has fallen
// behind today and the deadline must be advanced before the task is shown
// or scheduled.
func (t *Task) NeedsRollover(now time.Time) bool {
	if !t.Recurring || t.Completed || t.Deadline == nil {
		return false
	}
	return StartOfDay(*t.Deadline).Before(StartOfDay(now))
}

// ResetProgress zeroes both the legacy flat progress field and the
// progress-tracking counter.
func (t *Task) ResetProgress() {
	t.Progress = 0
	t.ProgressCurrent = 0
}

// DisplayIcon returns the task icon, falling back to a pin.
func (t *Task) DisplayIcon() string {
	if t.Icon == "" {
		return "📌"
	}
	return t.Icon
}

// StartOfDay truncates a timestamp to midnight in its own location.
func StartOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// Business logic methods for DeviceRegistration

// WantsDeadlineAlerts reports whether deadline reminders may be scheduled
// for this device. A disabled device or one with alerts switched off never
// receives them.
func (d *DeviceRegistration) WantsDeadlineAlerts() bool {
	return d.Enabled && d.DeadlineAlerts
}

// NoticeWindow returns the advance notice as a duration, applying the
// default when the stored value is unset.
func (d *DeviceRegistration) NoticeWindow() time.Duration {
	minutes := d.AdvanceNotice
	if minutes <= 0 {
		minutes = DefaultAdvanceNotice
	}
	return time.Duration(minutes) * time.Minute
}

// Business logic methods for ScheduledNotification

// MarkSent stamps the record as processed. Once sent a record is immutable
// except for retention deletion.
func (n *ScheduledNotification) MarkSent(at time.Time) {
	n.Sent = true
	n.SentAt = &at
}

// RecordResult attaches the provider's per-device counts.
func (n *ScheduledNotification) RecordResult(result *PushResult) {
	sent := len(result.Sent)
	failed := len(result.Failed)
	n.ResultSent = &sent
	n.ResultFailed = &failed
}

// RecordError attaches a transport error string.
func (n *ScheduledNotification) RecordError(err error) {
	msg := err.Error()
	n.Error = &msg
}

// Expired reports whether a sent record has aged past the retention cutoff.
func (n *ScheduledNotification) Expired(cutoff time.Time) bool {
	return n.Sent && n.SentAt != nil && n.SentAt.Before(cutoff)
}

// Utility methods

func (rt RecurrenceType) IsValid() bool {
	switch rt {
	case RecurrenceDaily, RecurrenceWeekly, RecurrenceMonthly, RecurrenceYearly:
		return true
	default:
		return false
	}
}
