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

// DeviceService manages device registrations and keeps scheduled reminders
// in sync with their settings.
type DeviceService struct {
	deviceRepo ports.DeviceRepository
	scheduler  ports.NotificationScheduler
	push       ports.PushSender
	logger     *logger.Logger
}

// NewDeviceService creates a new device service
func NewDeviceService(deviceRepo ports.DeviceRepository, scheduler ports.NotificationScheduler, push ports.PushSender, logger *logger.Logger) *DeviceService {
	return &DeviceService{
		deviceRepo: deviceRepo,
		scheduler:  scheduler,
		push:       push,
		logger:     logger,
	}
}

// Register upserts a device token for the owner and back-fills reminders
// for the owner's existing tasks, so a freshly registered device gets
// coverage for deadlines that were created before it appeared.
func (s *DeviceService) Register(ctx context.Context, ownerID uuid.UUID, req ports.RegisterDeviceRequest) (*entities.DeviceRegistration, error) {
	platform := req.Platform
	if platform == "" {
		platform = "ios"
	}

	device := &entities.DeviceRegistration{
		DeviceToken:    req.DeviceToken,
		OwnerID:        ownerID,
		Platform:       platform,
		Enabled:        true,
		DeadlineAlerts: true,
		TaskReminders:  true,
		DailyDigest:    false,
		AdvanceNotice:  entities.DefaultAdvanceNotice,
		CreatedAt:      time.Now(),
		UpdatedAt:      time.Now(),
	}
	applySettings(device, req.Settings)

	if err := s.deviceRepo.Upsert(ctx, device); err != nil {
		return nil, fmt.Errorf("failed to register device: %w", err)
	}

	s.logger.Infow("Device registered", "owner_id", ownerID, "platform", platform)

	if err := s.scheduler.ScheduleForOwner(ctx, ownerID); err != nil {
		s.logger.Errorw("Back-fill scheduling after registration failed", "owner_id", ownerID, "error", err)
	}

	return device, nil
}

// Unregister removes a device token.
func (s *DeviceService) Unregister(ctx context.Context, deviceToken string) error {
	if err := s.deviceRepo.Delete(ctx, deviceToken); err != nil {
		return err
	}

	s.logger.Infow("Device unregistered")
	return nil
}

// ListDevices returns all of the owner's registered devices.
func (s *DeviceService) ListDevices(ctx context.Context, ownerID uuid.UUID) ([]*entities.DeviceRegistration, error) {
	return s.deviceRepo.ListByOwner(ctx, ownerID)
}

// GetDevice returns one device scoped to its owner.
func (s *DeviceService) GetDevice(ctx context.Context, ownerID uuid.UUID, deviceToken string) (*entities.DeviceRegistration, error) {
	device, err := s.deviceRepo.GetByToken(ctx, deviceToken)
	if err != nil {
		return nil, err
	}
	if device.OwnerID != ownerID {
		return nil, entities.ErrDeviceNotFound
	}
	return device, nil
}

// UpdateSettings patches one device's settings. When the patch touches
// deadline alerts or advance notice, reminders for the owner are
// recomputed so new preferences take effect on existing tasks.
func (s *DeviceService) UpdateSettings(ctx context.Context, ownerID uuid.UUID, deviceToken string, req ports.DeviceSettingsRequest) (*entities.DeviceRegistration, error) {
	device, err := s.deviceRepo.GetByToken(ctx, deviceToken)
	if err != nil {
		return nil, err
	}

	if device.OwnerID != ownerID {
		return nil, entities.ErrDeviceNotFound
	}

	applySettings(device, &req)
	device.UpdatedAt = time.Now()

	if err := s.deviceRepo.Upsert(ctx, device); err != nil {
		return nil, fmt.Errorf("failed to update device settings: %w", err)
	}

	if req.DeadlineAlerts != nil || req.AdvanceNotice != nil {
		if err := s.scheduler.ScheduleForOwner(ctx, ownerID); err != nil {
			s.logger.Errorw("Rescheduling after settings change failed", "owner_id", ownerID, "error", err)
		}
	}

	return device, nil
}

// SendTest pushes an immediate test message to every enabled device of the
// owner. Returns the number of devices targeted.
func (s *DeviceService) SendTest(ctx context.Context, ownerID uuid.UUID, message string) (int, error) {
	if !s.push.IsConfigured() {
		return 0, entities.ErrPushNotConfigured
	}

	devices, err := s.deviceRepo.ListEnabled(ctx, ownerID)
	if err != nil {
		return 0, fmt.Errorf("load devices: %w", err)
	}

	if len(devices) == 0 {
		return 0, entities.ErrDeviceNotFound
	}

	if message == "" {
		message = "Quest Master notifications are working! 🎉"
	}

	for _, device := range devices {
		if _, err := s.push.Send(ctx, device.DeviceToken, "Test Notification", message, map[string]interface{}{"type": "test"}); err != nil {
			s.logger.Errorw("Test push failed", "owner_id", ownerID, "error", err)
		}
	}

	return len(devices), nil
}

func applySettings(device *entities.DeviceRegistration, settings *ports.DeviceSettingsRequest) {
	if settings == nil {
		return
	}
	if settings.Enabled != nil {
		device.Enabled = *settings.Enabled
	}
	if settings.DeadlineAlerts != nil {
		device.DeadlineAlerts = *settings.DeadlineAlerts
	}
	if settings.TaskReminders != nil {
		device.TaskReminders = *settings.TaskReminders
	}
	if settings.DailyDigest != nil {
		device.DailyDigest = *settings.DailyDigest
	}
	if settings.AdvanceNotice != nil {
		device.AdvanceNotice = *settings.AdvanceNotice
	}
}
