package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/questmaster/core/internal/domain/entities"
	"github.com/questmaster/core/internal/ports"
)

// DeviceRepositoryImpl implements the DeviceRepository interface
type DeviceRepositoryImpl struct {
	db *sqlx.DB
}

// NewDeviceRepository creates a new device repository
func NewDeviceRepository(db *sqlx.DB) ports.DeviceRepository {
	return &DeviceRepositoryImpl{db: db}
}

const deviceColumns = `device_token, owner_id, platform, enabled, deadline_alerts,
		task_reminders, daily_digest, advance_notice, created_at, updated_at`

func (r *DeviceRepositoryImpl) Upsert(ctx context.Context, device *entities.DeviceRegistration) error {
	query := `
		INSERT INTO device_registrations (device_token, owner_id, platform, enabled,
			deadline_alerts, task_reminders, daily_digest, advance_notice)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (device_token) DO UPDATE SET
			owner_id = EXCLUDED.owner_id,
			platform = EXCLUDED.platform,
			enabled = EXCLUDED.enabled,
			deadline_alerts = EXCLUDED.deadline_alerts,
			task_reminders = EXCLUDED.task_reminders,
			daily_digest = EXCLUDED.daily_digest,
			advance_notice = EXCLUDED.advance_notice,
			updated_at = CURRENT_TIMESTAMP
		RETURNING created_at, updated_at`

	err := r.db.QueryRowContext(ctx, query,
		device.DeviceToken, device.OwnerID, device.Platform, device.Enabled,
		device.DeadlineAlerts, device.TaskReminders, device.DailyDigest,
		device.AdvanceNotice,
	).Scan(&device.CreatedAt, &device.UpdatedAt)

	if err != nil {
		return fmt.Errorf("upsert device: %w", err)
	}

	return nil
}

func (r *DeviceRepositoryImpl) GetByToken(ctx context.Context, token string) (*entities.DeviceRegistration, error) {
	query := `SELECT ` + deviceColumns + ` FROM device_registrations WHERE device_token = $1`

	var device entities.DeviceRegistration
	err := r.db.GetContext(ctx, &device, query, token)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, entities.ErrDeviceNotFound
		}
		return nil, fmt.Errorf("get device by token: %w", err)
	}

	return &device, nil
}

func (r *DeviceRepositoryImpl) Delete(ctx context.Context, token string) error {
	query := `DELETE FROM device_registrations WHERE device_token = $1`

	result, err := r.db.ExecContext(ctx, query, token)
	if err != nil {
		return fmt.Errorf("delete device: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return entities.ErrDeviceNotFound
	}

	return nil
}

func (r *DeviceRepositoryImpl) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*entities.DeviceRegistration, error) {
	query := `SELECT ` + deviceColumns + `
		FROM device_registrations
		WHERE owner_id = $1
		ORDER BY created_at`

	var devices []*entities.DeviceRegistration
	if err := r.db.SelectContext(ctx, &devices, query, ownerID); err != nil {
		return nil, fmt.Errorf("list devices: %w", err)
	}

	return devices, nil
}

func (r *DeviceRepositoryImpl) ListAlertable(ctx context.Context, ownerID uuid.UUID) ([]*entities.DeviceRegistration, error) {
	query := `SELECT ` + deviceColumns + `
		FROM device_registrations
		WHERE owner_id = $1 AND enabled = true AND deadline_alerts = true
		ORDER BY created_at`

	var devices []*entities.DeviceRegistration
	if err := r.db.SelectContext(ctx, &devices, query, ownerID); err != nil {
		return nil, fmt.Errorf("list alertable devices: %w", err)
	}

	return devices, nil
}

func (r *DeviceRepositoryImpl) ListEnabled(ctx context.Context, ownerID uuid.UUID) ([]*entities.DeviceRegistration, error) {
	query := `SELECT ` + deviceColumns + `
		FROM device_registrations
		WHERE owner_id = $1 AND enabled = true
		ORDER BY created_at`

	var devices []*entities.DeviceRegistration
	if err := r.db.SelectContext(ctx, &devices, query, ownerID); err != nil {
		return nil, fmt.Errorf("list enabled devices: %w", err)
	}

	return devices, nil
}
