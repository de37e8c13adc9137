package utils

import "time"

// BeginningOfDay returns t truncated to midnight in t's location.
func BeginningOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// ReportWindow computes the [since, until] time window for a report that
// looks back the given number of days. The lower bound is normalized to
// local midnight so a "1 day" report covers yesterday 00:00 until now.
func ReportWindow(now time.Time, days int) (since, until time.Time) {
	return BeginningOfDay(now.AddDate(0, 0, -days)), now
}

// WithinWindow reports whether t falls inside [since, until] inclusive.
func WithinWindow(t, since, until time.Time) bool {
	return !t.Before(since) && !t.After(until)
}
