package store

import (
	"regexp"
	"strings"
)

// DateLayout is the calendar date format used by every date field.
const DateLayout = "2006-01-02"

var isoDate = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// NormalizeDate trims v and returns it if it looks like YYYY-MM-DD, or ""
// otherwise.
func NormalizeDate(v string) string {
	v = strings.TrimSpace(v)
	if !isoDate.MatchString(v) {
		return ""
	}
	return v
}

// BookingsOn matches bookings on exactly date. An empty date matches all.
func BookingsOn(date string) func(Booking) bool {
	if date == "" {
		return nil
	}
	return func(b Booking) bool { return b.Date == date }
}

// ReservationsOn matches reservations on exactly date. An empty date
// matches all.
func ReservationsOn(date string) func(Reservation) bool {
	if date == "" {
		return nil
	}
	return func(r Reservation) bool { return r.Date == date }
}

// DateRange is an inclusive range of business dates. Empty bounds are open.
type DateRange struct {
	From string
	To   string
}

// ParseDateRange builds a range from raw query values, ignoring any bound
// that is not a YYYY-MM-DD date.
func ParseDateRange(from, to string) DateRange {
	return DateRange{From: NormalizeDate(from), To: NormalizeDate(to)}
}

func (r DateRange) IsZero() bool { return r.From == "" && r.To == "" }

// Contains compares against the sale's business date, or the date part of
// its creation timestamp when it has none. Sales with neither never match.
func (r DateRange) Contains(s Sale) bool {
	d := NormalizeDate(s.BusinessDate)
	if d == "" && len(s.CreatedAt) >= len(DateLayout) {
		d = NormalizeDate(s.CreatedAt[:len(DateLayout)])
	}
	if d == "" {
		return false
	}
	if r.From != "" && d < r.From {
		return false
	}
	if r.To != "" && d > r.To {
		return false
	}
	return true
}
