package lending

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestStatusOf(t *testing.T) {
	end := date(2023, 1, 8)
	returned := date(2023, 1, 5)

	tests := []struct {
		name       string
		returnDate *time.Time
		today      time.Time
		want       Status
	}{
		{"open before due date", nil, date(2023, 1, 3), StatusActive},
		{"open on due date", nil, date(2023, 1, 8), StatusActive},
		{"open one day past due", nil, date(2023, 1, 9), StatusLate},
		{"open long past due", nil, date(2023, 3, 1), StatusLate},
		{"returned early", &returned, date(2023, 1, 3), StatusReturned},
		{"returned and past due", &returned, date(2023, 6, 1), StatusReturned},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StatusOf(end, tt.returnDate, tt.today))
		})
	}
}

func TestStatusIgnoresTimeOfDay(t *testing.T) {
	end := date(2023, 1, 8)

	// Late in the evening of the due date is still on time.
	onDue := time.Date(2023, 1, 8, 23, 59, 0, 0, time.UTC)
	assert.Equal(t, StatusActive, StatusOf(end, nil, onDue))

	// One minute into the next day is late.
	pastDue := time.Date(2023, 1, 9, 0, 1, 0, 0, time.UTC)
	assert.Equal(t, StatusLate, StatusOf(end, nil, pastDue))
}

func TestLateDays(t *testing.T) {
	end := date(2023, 1, 8)

	t.Run("open and on time", func(t *testing.T) {
		assert.Equal(t, 0, LateDays(end, nil, date(2023, 1, 8)))
	})

	t.Run("open and overdue is a running figure", func(t *testing.T) {
		assert.Equal(t, 1, LateDays(end, nil, date(2023, 1, 9)))
		assert.Equal(t, 7, LateDays(end, nil, date(2023, 1, 15)))
	})

	t.Run("returned on time is zero even if read later", func(t *testing.T) {
		early := date(2023, 1, 6)
		assert.Equal(t, 0, LateDays(end, &early, date(2023, 9, 1)))
	})

	t.Run("returned late is frozen at the return date", func(t *testing.T) {
		lateReturn := date(2023, 1, 12)
		assert.Equal(t, 4, LateDays(end, &lateReturn, date(2023, 9, 1)))
	})
}

func TestPolicyFine(t *testing.T) {
	p := Policy{FineRatePerDay: 2.50}

	assert.Equal(t, 0.0, p.Fine(0))
	assert.Equal(t, 2.50, p.Fine(1))
	assert.Equal(t, 17.50, p.Fine(7))
	assert.Equal(t, 0.0, p.Fine(-3))
}

// Scenario from the lending rules: a week-long loan read a week after its
// due date is late by 7 days; returning that day freezes the same figures.
func TestOverdueLoanScenario(t *testing.T) {
	p := Policy{FineRatePerDay: 2.00}
	end := date(2023, 1, 8)
	today := date(2023, 1, 15)

	status, lateDays, fine := p.Assess(end, nil, today)
	require.Equal(t, StatusLate, status)
	require.Equal(t, 7, lateDays)
	require.Equal(t, 14.00, fine)

	returnDate := today
	status, lateDays, fine = p.Assess(end, &returnDate, today)
	require.Equal(t, StatusReturned, status)
	require.Equal(t, 7, lateDays)
	require.Equal(t, 14.00, fine)
}

func TestDerivationProperties(t *testing.T) {
	base := date(2020, 1, 1)

	drawDate := func(t *rapid.T, label string) time.Time {
		return base.AddDate(0, 0, rapid.IntRange(-2000, 2000).Draw(t, label))
	}

	t.Run("returned loans are returned regardless of dates", func(t *testing.T) {
		rapid.Check(t, func(t *rapid.T) {
			end := drawDate(t, "end")
			ret := drawDate(t, "ret")
			today := drawDate(t, "today")
			if StatusOf(end, &ret, today) != StatusReturned {
				t.Fatalf("returned loan not reported as returned")
			}
		})
	})

	t.Run("open loans flip to late exactly when today passes the due date", func(t *testing.T) {
		rapid.Check(t, func(t *rapid.T) {
			end := drawDate(t, "end")
			today := drawDate(t, "today")
			got := StatusOf(end, nil, today)
			if today.After(end) {
				if got != StatusLate {
					t.Fatalf("today %v after end %v: got %v", today, end, got)
				}
			} else if got != StatusActive {
				t.Fatalf("today %v not after end %v: got %v", today, end, got)
			}
		})
	})

	t.Run("late days are never negative and fine follows the rate", func(t *testing.T) {
		rapid.Check(t, func(t *rapid.T) {
			p := Policy{FineRatePerDay: float64(rapid.IntRange(0, 100).Draw(t, "rate"))}
			end := drawDate(t, "end")
			today := drawDate(t, "today")

			var ret *time.Time
			if rapid.Bool().Draw(t, "returned") {
				r := drawDate(t, "ret")
				ret = &r
			}

			_, lateDays, fine := p.Assess(end, ret, today)
			if lateDays < 0 {
				t.Fatalf("negative late days %d", lateDays)
			}
			if want := float64(lateDays) * p.FineRatePerDay; fine != want {
				t.Fatalf("fine %v, want %v", fine, want)
			}
		})
	})

	t.Run("returning on or before the due date costs nothing", func(t *testing.T) {
		rapid.Check(t, func(t *rapid.T) {
			p := Policy{FineRatePerDay: 5}
			end := drawDate(t, "end")
			ret := end.AddDate(0, 0, -rapid.IntRange(0, 500).Draw(t, "early"))
			_, lateDays, fine := p.Assess(end, &ret, drawDate(t, "today"))
			if lateDays != 0 || fine != 0 {
				t.Fatalf("on-time return charged: lateDays=%d fine=%v", lateDays, fine)
			}
		})
	})
}

func TestBookStatus(t *testing.T) {
	assert.Equal(t, BookRented, BookStatus(true))
	assert.Equal(t, BookAvailable, BookStatus(false))
}
