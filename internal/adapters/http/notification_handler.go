package http

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/questmaster/core/internal/application/services"
	"github.com/questmaster/core/internal/domain/entities"
	"github.com/questmaster/core/internal/infrastructure/logger"
	"github.com/questmaster/core/internal/ports"
)

// NotificationHandler covers the device-registration surface plus the
// test-push and history endpoints.
type NotificationHandler struct {
	deviceService    *services.DeviceService
	notificationRepo ports.NotificationRepository
	logger           *logger.Logger
}

// NewNotificationHandler creates a new notification handler
func NewNotificationHandler(deviceService *services.DeviceService, notificationRepo ports.NotificationRepository, logger *logger.Logger) *NotificationHandler {
	return &NotificationHandler{
		deviceService:    deviceService,
		notificationRepo: notificationRepo,
		logger:           logger,
	}
}

// RegisterDevice handles device token registration. Registering an
// already-known token updates its settings in place.
func (h *NotificationHandler) RegisterDevice(c echo.Context) error {
	ownerID := getUserIDFromContext(c)

	var req ports.RegisterDeviceRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}

	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	device, err := h.deviceService.Register(c.Request().Context(), ownerID, req)
	if err != nil {
		h.logger.Errorw("Device registration failed", "error", err, "owner_id", ownerID)
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to register device")
	}

	return c.JSON(http.StatusOK, device)
}

// UnregisterDevice handles device token removal
func (h *NotificationHandler) UnregisterDevice(c echo.Context) error {
	token := c.Param("token")
	if token == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Device token is required")
	}

	if err := h.deviceService.Unregister(c.Request().Context(), token); err != nil {
		if errors.Is(err, entities.ErrDeviceNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "Device not found")
		}
		h.logger.Errorw("Device unregistration failed", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to unregister device")
	}

	return c.JSON(http.StatusOK, MessageResponse{Message: "Device unregistered"})
}

// ListDevices handles listing the caller's registered devices
func (h *NotificationHandler) ListDevices(c echo.Context) error {
	ownerID := getUserIDFromContext(c)

	devices, err := h.deviceService.ListDevices(c.Request().Context(), ownerID)
	if err != nil {
		h.logger.Errorw("List devices failed", "error", err, "owner_id", ownerID)
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to retrieve devices")
	}

	return c.JSON(http.StatusOK, devices)
}

// GetDeviceSettings handles fetching one device with its settings
func (h *NotificationHandler) GetDeviceSettings(c echo.Context) error {
	ownerID := getUserIDFromContext(c)

	token := c.Param("token")
	if token == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Device token is required")
	}

	device, err := h.deviceService.GetDevice(c.Request().Context(), ownerID, token)
	if err != nil {
		if errors.Is(err, entities.ErrDeviceNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "Device not found")
		}
		h.logger.Errorw("Get device settings failed", "error", err, "owner_id", ownerID)
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to retrieve device")
	}

	return c.JSON(http.StatusOK, device)
}

// UpdateDeviceSettings handles partial settings updates on a device
func (h *NotificationHandler) UpdateDeviceSettings(c echo.Context) error {
	ownerID := getUserIDFromContext(c)

	token := c.Param("token")
	if token == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Device token is required")
	}

	var req ports.DeviceSettingsRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}

	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	device, err := h.deviceService.UpdateSettings(c.Request().Context(), ownerID, token, req)
	if err != nil {
		if errors.Is(err, entities.ErrDeviceNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "Device not found")
		}
		h.logger.Errorw("Update device settings failed", "error", err, "owner_id", ownerID)
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to update settings")
	}

	return c.JSON(http.StatusOK, device)
}

// SendTestNotification pushes a test message to the caller's enabled devices
func (h *NotificationHandler) SendTestNotification(c echo.Context) error {
	ownerID := getUserIDFromContext(c)

	var req TestNotificationRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}

	sent, err := h.deviceService.SendTest(c.Request().Context(), ownerID, req.Message)
	if err != nil {
		if errors.Is(err, entities.ErrPushNotConfigured) {
			return echo.NewHTTPError(http.StatusServiceUnavailable, "Push notifications are not configured")
		}
		h.logger.Errorw("Test notification failed", "error", err, "owner_id", ownerID)
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to send test notification")
	}

	return c.JSON(http.StatusOK, TestNotificationResponse{Sent: sent})
}

// ListNotifications handles listing the caller's notification history
func (h *NotificationHandler) ListNotifications(c echo.Context) error {
	ownerID := getUserIDFromContext(c)

	notifications, err := h.notificationRepo.ListByOwner(c.Request().Context(), ownerID)
	if err != nil {
		h.logger.Errorw("List notifications failed", "error", err, "owner_id", ownerID)
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to retrieve notifications")
	}

	return c.JSON(http.StatusOK, notifications)
}

// Request/Response types

type TestNotificationRequest struct {
	Message string `json:"message"`
}

type TestNotificationResponse struct {
	Sent int `json:"sent"`
}
