package ports

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/questmaster/core/internal/domain/entities"
)

// PushSender is the push-delivery collaborator. The delivery worker treats
// an unconfigured sender as a signal to skip the whole tick.
type PushSender interface {
	IsConfigured() bool
	Send(ctx context.Context, deviceToken, title, body string, payload map[string]interface{}) (*entities.PushResult, error)
}

// NotificationScheduler covers scheduling and cancellation of deadline
// reminders. Both operations are safe to call repeatedly.
type NotificationScheduler interface {
	ScheduleDeadlineNotification(ctx context.Context, taskID, ownerID uuid.UUID) error
	ScheduleForOwner(ctx context.Context, ownerID uuid.UUID) error
	CancelTaskNotifications(ctx context.Context, taskID uuid.UUID) error
}

// Request/response types shared by the HTTP adapter and services.

// CreateTaskRequest carries a new task. Deadline and recurrence are
// optional; a recurrence type is only meaningful on a recurring task.
type CreateTaskRequest struct {
	Text           string     `json:"text" validate:"required,max=500"`
	Icon           string     `json:"icon"`
	Category       *string    `json:"category"`
	Deadline       *time.Time `json:"deadline"`
	Recurring      bool       `json:"recurring"`
	RecurrenceType *string    `json:"recurrence_type" validate:"omitempty,oneof=daily weekly monthly yearly"`
	ProgressTarget int        `json:"progress_target"`
}

// UpdateTaskRequest is a partial patch; nil fields are left untouched.
type UpdateTaskRequest struct {
	Text            *string    `json:"text" validate:"omitempty,max=500"`
	Icon            *string    `json:"icon"`
	Category        *string    `json:"category"`
	Deadline        *time.Time `json:"deadline"`
	ClearDeadline   bool       `json:"clear_deadline"`
	Completed       *bool      `json:"completed"`
	Progress        *int       `json:"progress" validate:"omitempty,min=0,max=100"`
	ProgressCurrent *int       `json:"progress_current" validate:"omitempty,min=0"`
}

// RegisterDeviceRequest carries a device token with its notification
// settings. Settings default to enabled deadline alerts at 30 minutes.
type RegisterDeviceRequest struct {
	DeviceToken string                 `json:"device_token" validate:"required"`
	Platform    string                 `json:"platform"`
	Settings    *DeviceSettingsRequest `json:"settings"`
}

// DeviceSettingsRequest is a partial patch of a device's settings.
type DeviceSettingsRequest struct {
	Enabled        *bool `json:"enabled"`
	DeadlineAlerts *bool `json:"deadline_alerts"`
	TaskReminders  *bool `json:"task_reminders"`
	DailyDigest    *bool `json:"daily_digest"`
	AdvanceNotice  *int  `json:"advance_notice" validate:"omitempty,min=1,max=10080"`
}

// LoginRequest authenticates a user by email.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// AuthResponse carries an issued access token.
type AuthResponse struct {
	AccessToken string         `json:"access_token"`
	TokenType   string         `json:"token_type"`
	ExpiresIn   int64          `json:"expires_in"`
	User        *entities.User `json:"user"`
}

// Claims is the authenticated identity surfaced to handlers.
type Claims struct {
	UserID string
	Email  string
}
