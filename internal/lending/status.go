// Package lending implements the loan lifecycle rules: how a loan's status
// is derived from its dates, how late days are counted, and how fines are
// computed. Everything here is a pure function of its inputs so the same
// rules apply on every read path without touching the database.
package lending

import "time"

// Status is the lifecycle state of a loan. Transitions are one-way:
// active -> late happens purely with the passage of time, and both active
// and late loans move to returned exactly once. Returned is terminal.
type Status string

const (
	StatusActive   Status = "active"
	StatusLate     Status = "late"
	StatusReturned Status = "returned"
)

// Book availability values, derived from the loan set: a book is rented
// iff it has a loan with no return date.
const (
	BookAvailable = "available"
	BookRented    = "rented"
)

// BookStatus maps the "has an open loan" fact onto the book status value.
func BookStatus(onLoan bool) string {
	if onLoan {
		return BookRented
	}
	return BookAvailable
}

// StatusOf derives a loan's status. A returned loan is returned regardless
// of its dates; an open loan is late once today is past the due date.
// All comparisons are at day granularity.
func StatusOf(endDate time.Time, returnDate *time.Time, today time.Time) Status {
	if returnDate != nil {
		return StatusReturned
	}
	if dateOnly(today).After(dateOnly(endDate)) {
		return StatusLate
	}
	return StatusActive
}

// LateDays derives how many days past the due date a loan is. For a
// returned loan the figure is final (days between due date and return,
// floored at zero). For an open loan it is a running figure against
// today, zero while the loan is still on time.
func LateDays(endDate time.Time, returnDate *time.Time, today time.Time) int {
	ref := today
	if returnDate != nil {
		ref = *returnDate
	}
	days := daysBetween(endDate, ref)
	if days < 0 {
		return 0
	}
	return days
}

// Policy holds the configurable fine policy. The rate is a deployment
// decision, never baked into the derivation rules.
type Policy struct {
	FineRatePerDay float64
}

// Fine computes the fine for the given number of late days.
func (p Policy) Fine(lateDays int) float64 {
	if lateDays <= 0 {
		return 0
	}
	return float64(lateDays) * p.FineRatePerDay
}

// Assess derives status, late days and fine in one call.
func (p Policy) Assess(endDate time.Time, returnDate *time.Time, today time.Time) (Status, int, float64) {
	status := StatusOf(endDate, returnDate, today)
	lateDays := LateDays(endDate, returnDate, today)
	return status, lateDays, p.Fine(lateDays)
}

// daysBetween counts whole calendar days from a to b, negative when b is
// before a. Both are normalized to midnight UTC first so wall-clock time
// and zone offsets cannot skew the count.
func daysBetween(a, b time.Time) int {
	return int(dateOnly(b).Sub(dateOnly(a)).Hours() / 24)
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
