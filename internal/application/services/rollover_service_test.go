package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/questmaster/core/internal/domain/entities"
	"github.com/questmaster/core/internal/infrastructure/logger"
)

func newRolloverFixture(maxSteps int) (*RolloverService, *fakeTaskRepo) {
	taskRepo := newFakeTaskRepo()
	svc := NewRolloverService(taskRepo, maxSteps, NewMetrics(nil), logger.NewNop())
	return svc, taskRepo
}

func recurringTask(ownerID uuid.UUID, kind entities.RecurrenceType, deadline time.Time) *entities.Task {
	return &entities.Task{
		ID:              uuid.New(),
		OwnerID:         ownerID,
		Text:            "Water the plants",
		Deadline:        &deadline,
		Recurring:       true,
		RecurrenceType:  &kind,
		Progress:        60,
		ProgressCurrent: 3,
		ProgressTarget:  5,
	}
}

func TestRolloverAdvancesDailyTaskToToday(t *testing.T) {
	svc, taskRepo := newRolloverFixture(0)
	now := time.Date(2025, 6, 10, 14, 0, 0, 0, time.UTC)

	// Three days behind; the time of day must survive the catch-up.
	task := recurringTask(uuid.New(), entities.RecurrenceDaily, time.Date(2025, 6, 7, 20, 30, 0, 0, time.UTC))
	require.NoError(t, taskRepo.Create(context.Background(), task))

	require.NoError(t, svc.Run(context.Background(), now))

	assert.Equal(t, time.Date(2025, 6, 10, 20, 30, 0, 0, time.UTC), *task.Deadline)
	assert.Equal(t, 0, task.Progress)
	assert.Equal(t, 0, task.ProgressCurrent)

	stored, err := taskRepo.GetByID(context.Background(), task.ID)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 6, 10, 20, 30, 0, 0, time.UTC), *stored.Deadline)
}

func TestRolloverWeeklyLandsOnOrAfterToday(t *testing.T) {
	svc, taskRepo := newRolloverFixture(0)
	now := time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC)

	// Ten days behind a weekly cadence: one step lands on June 7, still in
	// the past, so a second step is needed.
	task := recurringTask(uuid.New(), entities.RecurrenceWeekly, time.Date(2025, 5, 31, 8, 0, 0, 0, time.UTC))
	require.NoError(t, taskRepo.Create(context.Background(), task))

	require.NoError(t, svc.Run(context.Background(), now))

	assert.Equal(t, time.Date(2025, 6, 14, 8, 0, 0, 0, time.UTC), *task.Deadline)
}

func TestRolloverStopsAtIterationCap(t *testing.T) {
	svc, taskRepo := newRolloverFixture(5)
	now := time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC)

	task := recurringTask(uuid.New(), entities.RecurrenceDaily, time.Date(2025, 5, 20, 8, 0, 0, 0, time.UTC))
	require.NoError(t, taskRepo.Create(context.Background(), task))

	require.NoError(t, svc.Run(context.Background(), now))

	// Five steps forward from May 20, still short of today, but persisted.
	assert.Equal(t, time.Date(2025, 5, 25, 8, 0, 0, 0, time.UTC), *task.Deadline)
}

func TestRolloverLeavesCurrentTaskAlone(t *testing.T) {
	svc, taskRepo := newRolloverFixture(0)
	now := time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC)

	deadline := time.Date(2025, 6, 10, 23, 0, 0, 0, time.UTC)
	task := recurringTask(uuid.New(), entities.RecurrenceDaily, deadline)
	task.ProgressCurrent = 2
	require.NoError(t, taskRepo.Create(context.Background(), task))

	require.NoError(t, svc.Run(context.Background(), now))

	assert.Equal(t, deadline, *task.Deadline)
	assert.Equal(t, 2, task.ProgressCurrent, "no rollover, no progress reset")
}

func TestRolloverSkipsTaskWithoutRecurrenceType(t *testing.T) {
	svc, taskRepo := newRolloverFixture(0)
	now := time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC)

	deadline := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	task := &entities.Task{
		ID:        uuid.New(),
		OwnerID:   uuid.New(),
		Text:      "Legacy recurring task",
		Deadline:  &deadline,
		Recurring: true,
	}
	require.NoError(t, taskRepo.Create(context.Background(), task))

	require.NoError(t, svc.Run(context.Background(), now))

	assert.Equal(t, deadline, *task.Deadline)
}

func TestRunForOwnerOnlyTouchesOwnTasks(t *testing.T) {
	svc, taskRepo := newRolloverFixture(0)
	now := time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC)

	ownerID := uuid.New()
	mine := recurringTask(ownerID, entities.RecurrenceDaily, time.Date(2025, 6, 8, 8, 0, 0, 0, time.UTC))
	theirs := recurringTask(uuid.New(), entities.RecurrenceDaily, time.Date(2025, 6, 8, 8, 0, 0, 0, time.UTC))
	require.NoError(t, taskRepo.Create(context.Background(), mine))
	require.NoError(t, taskRepo.Create(context.Background(), theirs))

	svc.RunForOwner(context.Background(), ownerID, []*entities.Task{mine, theirs}, now)

	assert.Equal(t, time.Date(2025, 6, 10, 8, 0, 0, 0, time.UTC), *mine.Deadline)
	assert.Equal(t, time.Date(2025, 6, 8, 8, 0, 0, 0, time.UTC), *theirs.Deadline)
}
