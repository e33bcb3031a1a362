package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/questmaster/core/internal/domain/entities"
	"github.com/questmaster/core/internal/ports"
)

// NotificationRepositoryImpl implements the NotificationRepository interface
type NotificationRepositoryImpl struct {
	db *sqlx.DB
}

// NewNotificationRepository creates a new scheduled-notification repository
func NewNotificationRepository(db *sqlx.DB) ports.NotificationRepository {
	return &NotificationRepositoryImpl{db: db}
}

const notificationColumns = `id, owner_id, task_id, device_token, notification_type,
		scheduled_time, advance_notice, sent, sent_at, result_sent, result_failed, error, created_at`

func (r *NotificationRepositoryImpl) Create(ctx context.Context, n *entities.ScheduledNotification) error {
	query := `
		INSERT INTO scheduled_notifications (id, owner_id, task_id, device_token,
			notification_type, scheduled_time, advance_notice, sent)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at`

	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}

	err := r.db.QueryRowContext(ctx, query,
		n.ID, n.OwnerID, n.TaskID, n.DeviceToken,
		n.NotificationType, n.ScheduledTime, n.AdvanceNotice, n.Sent,
	).Scan(&n.CreatedAt)

	if err != nil {
		return fmt.Errorf("create notification: %w", err)
	}

	return nil
}

func (r *NotificationRepositoryImpl) UnsentExists(ctx context.Context, taskID, ownerID uuid.UUID, deviceToken string) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM scheduled_notifications
			WHERE task_id = $1 AND owner_id = $2 AND device_token = $3 AND sent = false
		)`

	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, taskID, ownerID, deviceToken); err != nil {
		return false, fmt.Errorf("check unsent notification: %w", err)
	}

	return exists, nil
}

func (r *NotificationRepositoryImpl) ListDue(ctx context.Context, horizon time.Time) ([]*entities.ScheduledNotification, error) {
	query := `SELECT ` + notificationColumns + `
		FROM scheduled_notifications
		WHERE sent = false AND scheduled_time <= $1`

	var notifications []*entities.ScheduledNotification
	if err := r.db.SelectContext(ctx, &notifications, query, horizon); err != nil {
		return nil, fmt.Errorf("list due notifications: %w", err)
	}

	return notifications, nil
}

func (r *NotificationRepositoryImpl) MarkSent(ctx context.Context, n *entities.ScheduledNotification) error {
	query := `
		UPDATE scheduled_notifications
		SET sent = $2, sent_at = $3, result_sent = $4, result_failed = $5, error = $6
		WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query,
		n.ID, n.Sent, n.SentAt, n.ResultSent, n.ResultFailed, n.Error)
	if err != nil {
		return fmt.Errorf("mark notification sent: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return entities.ErrNotificationNotFound
	}

	return nil
}

func (r *NotificationRepositoryImpl) DeleteUnsentForTask(ctx context.Context, taskID uuid.UUID) (int64, error) {
	query := `DELETE FROM scheduled_notifications WHERE task_id = $1 AND sent = false`

	result, err := r.db.ExecContext(ctx, query, taskID)
	if err != nil {
		return 0, fmt.Errorf("delete unsent notifications: %w", err)
	}

	removed, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("get rows affected: %w", err)
	}

	return removed, nil
}

func (r *NotificationRepositoryImpl) DeleteSentBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `DELETE FROM scheduled_notifications WHERE sent = true AND sent_at < $1`

	result, err := r.db.ExecContext(ctx, query, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete old sent notifications: %w", err)
	}

	removed, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("get rows affected: %w", err)
	}

	return removed, nil
}

func (r *NotificationRepositoryImpl) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*entities.ScheduledNotification, error) {
	query := `SELECT ` + notificationColumns + `
		FROM scheduled_notifications
		WHERE owner_id = $1
		ORDER BY scheduled_time`

	var notifications []*entities.ScheduledNotification
	if err := r.db.SelectContext(ctx, &notifications, query, ownerID); err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}

	return notifications, nil
}
