package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/questmaster/core/internal/domain/entities"
	"github.com/questmaster/core/internal/infrastructure/logger"
	"github.com/questmaster/core/internal/ports"
)

func newDeviceFixture() (*DeviceService, *fakeDeviceRepo, *fakeScheduler, *fakePushSender) {
	deviceRepo := newFakeDeviceRepo()
	scheduler := &fakeScheduler{}
	push := &fakePushSender{configured: true}
	svc := NewDeviceService(deviceRepo, scheduler, push, logger.NewNop())
	return svc, deviceRepo, scheduler, push
}

func TestRegisterAppliesDefaults(t *testing.T) {
	svc, _, _, _ := newDeviceFixture()
	ownerID := uuid.New()

	device, err := svc.Register(context.Background(), ownerID, ports.RegisterDeviceRequest{
		DeviceToken: "token-1",
	})
	require.NoError(t, err)

	assert.Equal(t, "ios", device.Platform)
	assert.True(t, device.Enabled)
	assert.True(t, device.DeadlineAlerts)
	assert.True(t, device.TaskReminders)
	assert.False(t, device.DailyDigest)
	assert.Equal(t, entities.DefaultAdvanceNotice, device.AdvanceNotice)
}

func TestRegisterBackfillsExistingTasks(t *testing.T) {
	svc, _, scheduler, _ := newDeviceFixture()
	ownerID := uuid.New()

	_, err := svc.Register(context.Background(), ownerID, ports.RegisterDeviceRequest{
		DeviceToken: "token-1",
	})
	require.NoError(t, err)

	assert.Equal(t, []uuid.UUID{ownerID}, scheduler.backfills)
}

func TestRegisterHonorsProvidedSettings(t *testing.T) {
	svc, _, _, _ := newDeviceFixture()
	enabled := false
	advance := 120

	device, err := svc.Register(context.Background(), uuid.New(), ports.RegisterDeviceRequest{
		DeviceToken: "token-1",
		Platform:    "ipados",
		Settings: &ports.DeviceSettingsRequest{
			Enabled:       &enabled,
			AdvanceNotice: &advance,
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "ipados", device.Platform)
	assert.False(t, device.Enabled)
	assert.Equal(t, 120, device.AdvanceNotice)
}

func TestUpdateSettingsReschedulesOnlyWhenRelevant(t *testing.T) {
	svc, _, scheduler, _ := newDeviceFixture()
	ownerID := uuid.New()

	_, err := svc.Register(context.Background(), ownerID, ports.RegisterDeviceRequest{DeviceToken: "token-1"})
	require.NoError(t, err)
	require.Len(t, scheduler.backfills, 1)

	// Daily digest does not affect deadline reminders.
	digest := true
	_, err = svc.UpdateSettings(context.Background(), ownerID, "token-1", ports.DeviceSettingsRequest{
		DailyDigest: &digest,
	})
	require.NoError(t, err)
	assert.Len(t, scheduler.backfills, 1)

	advance := 60
	device, err := svc.UpdateSettings(context.Background(), ownerID, "token-1", ports.DeviceSettingsRequest{
		AdvanceNotice: &advance,
	})
	require.NoError(t, err)
	assert.Equal(t, 60, device.AdvanceNotice)
	assert.Len(t, scheduler.backfills, 2)
}

func TestUpdateSettingsRejectsForeignDevice(t *testing.T) {
	svc, _, _, _ := newDeviceFixture()

	_, err := svc.Register(context.Background(), uuid.New(), ports.RegisterDeviceRequest{DeviceToken: "token-1"})
	require.NoError(t, err)

	enabled := false
	_, err = svc.UpdateSettings(context.Background(), uuid.New(), "token-1", ports.DeviceSettingsRequest{
		Enabled: &enabled,
	})
	assert.ErrorIs(t, err, entities.ErrDeviceNotFound)
}

func TestGetDeviceScopedToOwner(t *testing.T) {
	svc, _, _, _ := newDeviceFixture()
	ownerID := uuid.New()

	_, err := svc.Register(context.Background(), ownerID, ports.RegisterDeviceRequest{DeviceToken: "token-1"})
	require.NoError(t, err)

	device, err := svc.GetDevice(context.Background(), ownerID, "token-1")
	require.NoError(t, err)
	assert.Equal(t, "token-1", device.DeviceToken)

	_, err = svc.GetDevice(context.Background(), uuid.New(), "token-1")
	assert.ErrorIs(t, err, entities.ErrDeviceNotFound)
}

func TestUnregisterRemovesDevice(t *testing.T) {
	svc, deviceRepo, _, _ := newDeviceFixture()
	ownerID := uuid.New()

	_, err := svc.Register(context.Background(), ownerID, ports.RegisterDeviceRequest{DeviceToken: "token-1"})
	require.NoError(t, err)

	require.NoError(t, svc.Unregister(context.Background(), "token-1"))

	devices, err := deviceRepo.ListByOwner(context.Background(), ownerID)
	require.NoError(t, err)
	assert.Empty(t, devices)

	assert.ErrorIs(t, svc.Unregister(context.Background(), "token-1"), entities.ErrDeviceNotFound)
}

func TestSendTestRequiresConfiguredPush(t *testing.T) {
	svc, _, _, push := newDeviceFixture()
	push.configured = false

	_, err := svc.SendTest(context.Background(), uuid.New(), "")
	assert.ErrorIs(t, err, entities.ErrPushNotConfigured)
}

func TestSendTestTargetsEnabledDevices(t *testing.T) {
	svc, _, _, push := newDeviceFixture()
	ownerID := uuid.New()

	_, err := svc.Register(context.Background(), ownerID, ports.RegisterDeviceRequest{DeviceToken: "token-on"})
	require.NoError(t, err)

	disabled := false
	_, err = svc.Register(context.Background(), ownerID, ports.RegisterDeviceRequest{
		DeviceToken: "token-off",
		Settings:    &ports.DeviceSettingsRequest{Enabled: &disabled},
	})
	require.NoError(t, err)

	sent, err := svc.SendTest(context.Background(), ownerID, "")
	require.NoError(t, err)

	assert.Equal(t, 1, sent)
	require.Len(t, push.calls, 1)
	assert.Equal(t, "token-on", push.calls[0].DeviceToken)
	assert.Equal(t, "Test Notification", push.calls[0].Title)
	assert.NotEmpty(t, push.calls[0].Body)
}
