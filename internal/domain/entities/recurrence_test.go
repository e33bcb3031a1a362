package entities

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNextOccurrence(t *testing.T) {
	base := time.Date(2025, 6, 10, 18, 30, 0, 0, time.UTC)

	tests := []struct {
		name string
		last time.Time
		kind RecurrenceType
		want time.Time
	}{
		{
			name: "daily",
			last: base,
			kind: RecurrenceDaily,
			want: time.Date(2025, 6, 11, 18, 30, 0, 0, time.UTC),
		},
		{
			name: "weekly",
			last: base,
			kind: RecurrenceWeekly,
			want: time.Date(2025, 6, 17, 18, 30, 0, 0, time.UTC),
		},
		{
			name: "monthly",
			last: base,
			kind: RecurrenceMonthly,
			want: time.Date(2025, 7, 10, 18, 30, 0, 0, time.UTC),
		},
		{
			name: "monthly end of month normalizes forward",
			last: time.Date(2025, 1, 31, 9, 0, 0, 0, time.UTC),
			kind: RecurrenceMonthly,
			want: time.Date(2025, 3, 3, 9, 0, 0, 0, time.UTC),
		},
		{
			name: "monthly end of month in leap year",
			last: time.Date(2024, 1, 31, 9, 0, 0, 0, time.UTC),
			kind: RecurrenceMonthly,
			want: time.Date(2024, 3, 2, 9, 0, 0, 0, time.UTC),
		},
		{
			name: "yearly",
			last: base,
			kind: RecurrenceYearly,
			want: time.Date(2026, 6, 10, 18, 30, 0, 0, time.UTC),
		},
		{
			name: "yearly from leap day",
			last: time.Date(2024, 2, 29, 8, 0, 0, 0, time.UTC),
			kind: RecurrenceYearly,
			want: time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := NextOccurrence(tt.last, tt.kind)
			assert.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNextOccurrenceUnknownKind(t *testing.T) {
	_, ok := NextOccurrence(time.Now(), RecurrenceType("fortnightly"))
	assert.False(t, ok)
}

func TestNeedsRollover(t *testing.T) {
	now := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)
	yesterday := now.AddDate(0, 0, -1)
	tomorrow := now.AddDate(0, 0, 1)
	earlierToday := time.Date(2025, 6, 10, 1, 0, 0, 0, time.UTC)
	daily := RecurrenceDaily

	tests := []struct {
		name string
		task Task
		want bool
	}{
		{
			name: "recurring with past deadline",
			task: Task{Recurring: true, RecurrenceType: &daily, Deadline: &yesterday},
			want: true,
		},
		{
			name: "deadline earlier today does not roll",
			task: Task{Recurring: true, RecurrenceType: &daily, Deadline: &earlierToday},
			want: false,
		},
		{
			name: "future deadline",
			task: Task{Recurring: true, RecurrenceType: &daily, Deadline: &tomorrow},
			want: false,
		},
		{
			name: "non-recurring",
			task: Task{Recurring: false, Deadline: &yesterday},
			want: false,
		},
		{
			name: "completed",
			task: Task{Recurring: true, RecurrenceType: &daily, Deadline: &yesterday, Completed: true},
			want: false,
		},
		{
			name: "no deadline",
			task: Task{Recurring: true, RecurrenceType: &daily},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.task.NeedsRollover(now))
		})
	}
}

func TestNoticeWindow(t *testing.T) {
	d := DeviceRegistration{AdvanceNotice: 45}
	assert.Equal(t, 45*time.Minute, d.NoticeWindow())

	unset := DeviceRegistration{}
	assert.Equal(t, 30*time.Minute, unset.NoticeWindow())
}

func TestExpired(t *testing.T) {
	cutoff := time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)
	old := cutoff.AddDate(0, 0, -1)
	recent := cutoff.AddDate(0, 0, 1)

	expired := ScheduledNotification{Sent: true, SentAt: &old}
	assert.True(t, expired.Expired(cutoff))

	fresh := ScheduledNotification{Sent: true, SentAt: &recent}
	assert.False(t, fresh.Expired(cutoff))

	unsent := ScheduledNotification{}
	assert.False(t, unsent.Expired(cutoff))
}
