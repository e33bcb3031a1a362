package entities

import "time"

// NextOccurrence advances a recurring task's timestamp by one period of the
// given kind. It returns false for an unknown kind so callers never loop on
// a recurrence they cannot advance.
//
// Monthly and yearly steps use time.Time.AddDate, which normalizes
// out-of-range days instead of clamping: Jan 31 + 1 month lands on
// March 3 (March 2 in a leap year). Day-of-month therefore drifts for
// end-of-month deadlines; the drift is consistent across repeated calls.
func NextOccurrence(last time.Time, kind RecurrenceType) (time.Time, bool) {
	switch kind {
	case RecurrenceDaily:
		return last.AddDate(0, 0, 1), true
	case RecurrenceWeekly:
		return last.AddDate(0, 0, 7), true
	case RecurrenceMonthly:
		return last.AddDate(0, 1, 0), true
	case RecurrenceYearly:
		return last.AddDate(1, 0, 0), true
	default:
		return time.Time{}, false
	}
}
