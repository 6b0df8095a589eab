// Package calendar maps calendar dates to service weeks.
//
// A service week is identified by its Friday. Every date maps to exactly one service week:
// the latest Friday on or before it.
package calendar

import (
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/kanisa/core"
)

// ServiceDay is the weekday the institution gathers on.
const ServiceDay = time.Friday

var errInvalidWeekCount = errors.New("week count must be at least 1")

// MostRecentServiceWeek returns the latest Friday on or before ref.
func MostRecentServiceWeek(ref Date) Date {
	var daysBack int
	switch dow := ref.Weekday(); dow {
	case time.Friday:
		daysBack = 0
	case time.Saturday:
		daysBack = 1
	default: // Sunday..Thursday: back to the previous week's Friday
		daysBack = (int(dow) + 2) % 7
	}
	return ref.AddDays(-daysBack)
}

// Weeks is a finite sequence of service weeks, most recent first, each 7 days before the previous.
// It is a value: iterating it twice yields the same dates.
type Weeks struct {
	first Date
	count int
}

// ServiceWeeksBack returns count consecutive service weeks ending at MostRecentServiceWeek(ref).
func ServiceWeeksBack(ref Date, count int) (Weeks, error) {
	if count < 1 {
		return Weeks{}, core.NewValidationError(errInvalidWeekCount, core.FieldError{Field: "lookbackWeeks", Error: errInvalidWeekCount.Error()})
	}
	return Weeks{first: MostRecentServiceWeek(ref), count: count}, nil
}

func (w Weeks) Len() int { return w.count }

// At returns the i-th week; 0 is the most recent.
func (w Weeks) At(i int) Date {
	if i < 0 || i >= w.count {
		panic("calendar: week index out of range")
	}
	return w.first.AddDays(-7 * i)
}

func (w Weeks) First() Date { return w.first }

// Last returns the oldest week of the sequence.
func (w Weeks) Last() Date {
	if w.count == 0 {
		return Date{}
	}
	return w.At(w.count - 1)
}

// Each calls fn for every week, most recent first, until fn returns false.
func (w Weeks) Each(fn func(i int, week Date) bool) {
	for i := 0; i < w.count; i++ {
		if !fn(i, w.At(i)) {
			return
		}
	}
}

func (w Weeks) Dates() []Date {
	dates := make([]Date, 0, w.count)
	w.Each(func(_ int, week Date) bool {
		dates = append(dates, week)
		return true
	})
	return dates
}

// Calendar ties service-week arithmetic to the institution's time zone and clock.
type Calendar struct {
	loc     *time.Location
	nowFunc func() time.Time
}

// New returns a Calendar in loc. nowFunc defaults to time.Now.
func New(loc *time.Location, nowFunc ...func() time.Time) *Calendar {
	if loc == nil {
		loc = time.UTC
	}
	now := time.Now
	if len(nowFunc) > 0 && nowFunc[0] != nil {
		now = nowFunc[0]
	}
	return &Calendar{loc: loc, nowFunc: now}
}

func (c *Calendar) Location() *time.Location { return c.loc }

func (c *Calendar) Now() time.Time { return c.nowFunc() }

// Today returns the current calendar date in the institution's zone.
func (c *Calendar) Today() Date {
	return DateOf(c.nowFunc(), c.loc)
}

// DateOf returns the calendar date of t in the institution's zone.
func (c *Calendar) DateOf(t time.Time) Date {
	return DateOf(t, c.loc)
}

// ServiceWeekOf returns the service week t belongs to, in the institution's zone.
func (c *Calendar) ServiceWeekOf(t time.Time) Date {
	return MostRecentServiceWeek(c.DateOf(t))
}
