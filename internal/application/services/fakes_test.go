package services

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/questmaster/core/internal/domain/entities"
	"github.com/questmaster/core/internal/ports"
)

// In-memory collaborators shared by the service tests.

type fakeTaskRepo struct {
	mu    sync.Mutex
	tasks map[uuid.UUID]*entities.Task

	getErr error
}

func newFakeTaskRepo() *fakeTaskRepo {
	return &fakeTaskRepo{tasks: make(map[uuid.UUID]*entities.Task)}
}

func (r *fakeTaskRepo) Create(_ context.Context, task *entities.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tasks[task.ID] = task
	return nil
}

func (r *fakeTaskRepo) GetByID(_ context.Context, id uuid.UUID) (*entities.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.getErr != nil {
		return nil, r.getErr
	}
	task, ok := r.tasks[id]
	if !ok {
		return nil, entities.ErrTaskNotFound
	}
	return task, nil
}

func (r *fakeTaskRepo) GetForOwner(ctx context.Context, id, ownerID uuid.UUID) (*entities.Task, error) {
	task, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if task.OwnerID != ownerID {
		return nil, entities.ErrTaskNotFound
	}
	return task, nil
}

func (r *fakeTaskRepo) Update(_ context.Context, task *entities.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tasks[task.ID]; !ok {
		return entities.ErrTaskNotFound
	}
	r.tasks[task.ID] = task
	return nil
}

func (r *fakeTaskRepo) Delete(_ context.Context, id, ownerID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	task, ok := r.tasks[id]
	if !ok || task.OwnerID != ownerID {
		return entities.ErrTaskNotFound
	}
	delete(r.tasks, id)
	return nil
}

func (r *fakeTaskRepo) List(_ context.Context, filter ports.TaskFilter) ([]*entities.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entities.Task
	for _, task := range r.tasks {
		if filter.OwnerID != nil && task.OwnerID != *filter.OwnerID {
			continue
		}
		out = append(out, task)
	}
	return out, nil
}

func (r *fakeTaskRepo) ListPendingWithDeadline(_ context.Context, ownerID uuid.UUID) ([]*entities.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entities.Task
	for _, task := range r.tasks {
		if task.OwnerID == ownerID && !task.Completed && task.Deadline != nil {
			out = append(out, task)
		}
	}
	return out, nil
}

func (r *fakeTaskRepo) ListRecurringOverdue(_ context.Context, before time.Time) ([]*entities.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entities.Task
	for _, task := range r.tasks {
		if task.Recurring && !task.Completed && task.Deadline != nil &&
			entities.StartOfDay(*task.Deadline).Before(before) {
			out = append(out, task)
		}
	}
	return out, nil
}

func (r *fakeTaskRepo) SetDeadline(_ context.Context, id uuid.UUID, deadline time.Time, resetProgress bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	task, ok := r.tasks[id]
	if !ok {
		return entities.ErrTaskNotFound
	}
	d := deadline
	task.Deadline = &d
	if resetProgress {
		task.ResetProgress()
	}
	return nil
}

type fakeDeviceRepo struct {
	mu      sync.Mutex
	devices map[string]*entities.DeviceRegistration
}

func newFakeDeviceRepo() *fakeDeviceRepo {
	return &fakeDeviceRepo{devices: make(map[string]*entities.DeviceRegistration)}
}

func (r *fakeDeviceRepo) Upsert(_ context.Context, device *entities.DeviceRegistration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.devices[device.DeviceToken] = device
	return nil
}

func (r *fakeDeviceRepo) GetByToken(_ context.Context, token string) (*entities.DeviceRegistration, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	device, ok := r.devices[token]
	if !ok {
		return nil, entities.ErrDeviceNotFound
	}
	return device, nil
}

func (r *fakeDeviceRepo) Delete(_ context.Context, token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.devices[token]; !ok {
		return entities.ErrDeviceNotFound
	}
	delete(r.devices, token)
	return nil
}

func (r *fakeDeviceRepo) ListByOwner(_ context.Context, ownerID uuid.UUID) ([]*entities.DeviceRegistration, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entities.DeviceRegistration
	for _, device := range r.devices {
		if device.OwnerID == ownerID {
			out = append(out, device)
		}
	}
	return out, nil
}

func (r *fakeDeviceRepo) ListAlertable(_ context.Context, ownerID uuid.UUID) ([]*entities.DeviceRegistration, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entities.DeviceRegistration
	for _, device := range r.devices {
		if device.OwnerID == ownerID && device.WantsDeadlineAlerts() {
			out = append(out, device)
		}
	}
	return out, nil
}

func (r *fakeDeviceRepo) ListEnabled(_ context.Context, ownerID uuid.UUID) ([]*entities.DeviceRegistration, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entities.DeviceRegistration
	for _, device := range r.devices {
		if device.OwnerID == ownerID && device.Enabled {
			out = append(out, device)
		}
	}
	return out, nil
}

type fakeNotificationRepo struct {
	mu      sync.Mutex
	records []*entities.ScheduledNotification
}

func newFakeNotificationRepo() *fakeNotificationRepo {
	return &fakeNotificationRepo{}
}

func (r *fakeNotificationRepo) Create(_ context.Context, n *entities.ScheduledNotification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, n)
	return nil
}

func (r *fakeNotificationRepo) UnsentExists(_ context.Context, taskID, ownerID uuid.UUID, deviceToken string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, n := range r.records {
		if !n.Sent && n.TaskID == taskID && n.OwnerID == ownerID && n.DeviceToken == deviceToken {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeNotificationRepo) ListDue(_ context.Context, horizon time.Time) ([]*entities.ScheduledNotification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entities.ScheduledNotification
	for _, n := range r.records {
		if !n.Sent && !n.ScheduledTime.After(horizon) {
			out = append(out, n)
		}
	}
	return out, nil
}

func (r *fakeNotificationRepo) MarkSent(_ context.Context, n *entities.ScheduledNotification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, existing := range r.records {
		if existing.ID == n.ID {
			r.records[i] = n
			return nil
		}
	}
	return entities.ErrNotificationNotFound
}

func (r *fakeNotificationRepo) DeleteUnsentForTask(_ context.Context, taskID uuid.UUID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var kept []*entities.ScheduledNotification
	var removed int64
	for _, n := range r.records {
		if !n.Sent && n.TaskID == taskID {
			removed++
			continue
		}
		kept = append(kept, n)
	}
	r.records = kept
	return removed, nil
}

func (r *fakeNotificationRepo) DeleteSentBefore(_ context.Context, cutoff time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var kept []*entities.ScheduledNotification
	var removed int64
	for _, n := range r.records {
		if n.Expired(cutoff) {
			removed++
			continue
		}
		kept = append(kept, n)
	}
	r.records = kept
	return removed, nil
}

func (r *fakeNotificationRepo) ListByOwner(_ context.Context, ownerID uuid.UUID) ([]*entities.ScheduledNotification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entities.ScheduledNotification
	for _, n := range r.records {
		if n.OwnerID == ownerID {
			out = append(out, n)
		}
	}
	return out, nil
}

func (r *fakeNotificationRepo) all() []*entities.ScheduledNotification {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*entities.ScheduledNotification, len(r.records))
	copy(out, r.records)
	return out
}

type pushCall struct {
	DeviceToken string
	Title       string
	Body        string
	Payload     map[string]interface{}
}

type fakePushSender struct {
	mu         sync.Mutex
	configured bool
	sendErr    error
	reject     bool
	calls      []pushCall
}

func (p *fakePushSender) IsConfigured() bool {
	return p.configured
}

func (p *fakePushSender) Send(_ context.Context, deviceToken, title, body string, payload map[string]interface{}) (*entities.PushResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, pushCall{DeviceToken: deviceToken, Title: title, Body: body, Payload: payload})
	if p.sendErr != nil {
		return nil, p.sendErr
	}
	if p.reject {
		return &entities.PushResult{Failed: []entities.PushFailure{{Device: deviceToken, Reason: "BadDeviceToken"}}}, nil
	}
	return &entities.PushResult{Sent: []string{deviceToken}}, nil
}

type fakeScheduler struct {
	mu        sync.Mutex
	scheduled []uuid.UUID
	canceled  []uuid.UUID
	backfills []uuid.UUID
}

func (s *fakeScheduler) ScheduleDeadlineNotification(_ context.Context, taskID, _ uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scheduled = append(s.scheduled, taskID)
	return nil
}

func (s *fakeScheduler) ScheduleForOwner(_ context.Context, ownerID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.backfills = append(s.backfills, ownerID)
	return nil
}

func (s *fakeScheduler) CancelTaskNotifications(_ context.Context, taskID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.canceled = append(s.canceled, taskID)
	return nil
}

var _ ports.TaskRepository = (*fakeTaskRepo)(nil)
var _ ports.DeviceRepository = (*fakeDeviceRepo)(nil)
var _ ports.NotificationRepository = (*fakeNotificationRepo)(nil)
var _ ports.PushSender = (*fakePushSender)(nil)
var _ ports.NotificationScheduler = (*fakeScheduler)(nil)
