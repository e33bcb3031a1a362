package ports

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/questmaster/core/internal/domain/entities"
)

// TaskRepository defines the interface for task data operations
type TaskRepository interface {
	Create(ctx context.Context, task *entities.Task) error
	GetByID(ctx context.Context, id uuid.UUID) (*entities.Task, error)
	GetForOwner(ctx context.Context, id, ownerID uuid.UUID) (*entities.Task, error)
	Update(ctx context.Context, task *entities.Task) error
	Delete(ctx context.Context, id, ownerID uuid.UUID) error
	List(ctx context.Context, filter TaskFilter) ([]*entities.Task, error)
	// ListPendingWithDeadline returns every incomplete task of the owner
	// that carries a deadline, for batch rescheduling.
	ListPendingWithDeadline(ctx context.Context, ownerID uuid.UUID) ([]*entities.Task, error)
	// ListRecurringOverdue returns recurring, incomplete tasks whose
	// deadline day is before the given day, the rollover working set.
	ListRecurringOverdue(ctx context.Context, before time.Time) ([]*entities.Task, error)
	// SetDeadline writes back a rolled-over deadline and zeroes the
	// progress counters in one statement.
	SetDeadline(ctx context.Context, id uuid.UUID, deadline time.Time, resetProgress bool) error
}

// DeviceRepository defines the interface for device-registration data
// operations. Registrations are keyed by device token.
type DeviceRepository interface {
	Upsert(ctx context.Context, device *entities.DeviceRegistration) error
	GetByToken(ctx context.Context, token string) (*entities.DeviceRegistration, error)
	Delete(ctx context.Context, token string) error
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*entities.DeviceRegistration, error)
	// ListAlertable returns the owner's devices that are enabled and have
	// deadline alerts switched on.
	ListAlertable(ctx context.Context, ownerID uuid.UUID) ([]*entities.DeviceRegistration, error)
	// ListEnabled returns the owner's enabled devices regardless of the
	// per-category alert flags (used by the test-push endpoint).
	ListEnabled(ctx context.Context, ownerID uuid.UUID) ([]*entities.DeviceRegistration, error)
}

// NotificationRepository defines the interface for scheduled-notification
// data operations. This store is owned by the notification core.
type NotificationRepository interface {
	Create(ctx context.Context, n *entities.ScheduledNotification) error
	// UnsentExists reports whether an unsent record already exists for the
	// (task, owner, device) tuple.
	UnsentExists(ctx context.Context, taskID, ownerID uuid.UUID, deviceToken string) (bool, error)
	// ListDue returns unsent records with scheduled_time at or before the
	// horizon, in no particular order.
	ListDue(ctx context.Context, horizon time.Time) ([]*entities.ScheduledNotification, error)
	// MarkSent persists the sent flag, timestamp and result fields of a
	// processed record.
	MarkSent(ctx context.Context, n *entities.ScheduledNotification) error
	// DeleteUnsentForTask removes every unsent record for the task, any
	// owner or device. Sent records are history and stay.
	DeleteUnsentForTask(ctx context.Context, taskID uuid.UUID) (int64, error)
	// DeleteSentBefore prunes sent records older than the cutoff.
	DeleteSentBefore(ctx context.Context, cutoff time.Time) (int64, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*entities.ScheduledNotification, error)
}

// UserRepository defines the interface for user data operations
type UserRepository interface {
	Create(ctx context.Context, user *entities.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*entities.User, error)
	GetByEmail(ctx context.Context, email string) (*entities.User, error)
}

// TaskFilter narrows task listings.
type TaskFilter struct {
	OwnerID        *uuid.UUID
	Completed      *bool
	Recurring      *bool
	HasDeadline    *bool
	DeadlineBefore *time.Time
	Limit          int
	Offset         int
}
