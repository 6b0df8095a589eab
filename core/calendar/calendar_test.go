package calendar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/kanisa/core"
)

func TestMostRecentServiceWeek(t *testing.T) {
	tests := []struct {
		name string
		ref  Date
		want Date
	}{
		{name: "friday maps to itself", ref: NewDate(2024, time.May, 3), want: NewDate(2024, time.May, 3)},
		{name: "saturday", ref: NewDate(2024, time.May, 4), want: NewDate(2024, time.May, 3)},
		{name: "sunday", ref: NewDate(2024, time.May, 5), want: NewDate(2024, time.May, 3)},
		{name: "monday", ref: NewDate(2024, time.May, 6), want: NewDate(2024, time.May, 3)},
		{name: "thursday", ref: NewDate(2024, time.May, 9), want: NewDate(2024, time.May, 3)},
		{name: "next friday", ref: NewDate(2024, time.May, 10), want: NewDate(2024, time.May, 10)},
		{name: "across new year", ref: NewDate(2025, time.January, 1), want: NewDate(2024, time.December, 27)},
		{name: "across leap day", ref: NewDate(2024, time.March, 2), want: NewDate(2024, time.March, 1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MostRecentServiceWeek(tt.ref))
		})
	}
}

func TestMostRecentServiceWeek_properties(t *testing.T) {
	start := NewDate(2023, time.January, 1)
	for i := 0; i < 800; i++ {
		d := start.AddDays(i)
		got := MostRecentServiceWeek(d)

		if got.Weekday() != time.Friday {
			t.Fatalf("MostRecentServiceWeek(%s) = %s, a %s", d, got, got.Weekday())
		}
		if got.After(d) {
			t.Fatalf("MostRecentServiceWeek(%s) = %s, after the reference", d, got)
		}
		if diff := d.DaysSince(got); diff >= 7 {
			t.Fatalf("MostRecentServiceWeek(%s) = %s, %d days back", d, got, diff)
		}
		if again := MostRecentServiceWeek(got); again != got {
			t.Fatalf("MostRecentServiceWeek not idempotent: %s -> %s", got, again)
		}
	}
}

func TestServiceWeeksBack(t *testing.T) {
	ref := NewDate(2024, time.May, 8)

	weeks, err := ServiceWeeksBack(ref, 5)
	require.NoError(t, err)
	require.Equal(t, 5, weeks.Len())

	dates := weeks.Dates()
	require.Len(t, dates, 5)
	assert.Equal(t, MostRecentServiceWeek(ref), dates[0])
	for i := 1; i < len(dates); i++ {
		assert.Equal(t, 7, dates[i-1].DaysSince(dates[i]), "step %d", i)
	}
	assert.Equal(t, NewDate(2024, time.April, 5), weeks.Last())

	// restartable: same inputs, same sequence
	again, err := ServiceWeeksBack(ref, 5)
	require.NoError(t, err)
	assert.Equal(t, dates, again.Dates())
	assert.Equal(t, dates, weeks.Dates())
}

func TestServiceWeeksBack_invalidCount(t *testing.T) {
	for _, n := range []int{0, -3} {
		_, err := ServiceWeeksBack(NewDate(2024, time.May, 8), n)
		var vErr *core.ValidationError
		assert.ErrorAs(t, err, &vErr, "count %d", n)
	}
}

func TestWeeks_Each_stops(t *testing.T) {
	weeks, err := ServiceWeeksBack(NewDate(2024, time.May, 3), 10)
	require.NoError(t, err)

	var seen int
	weeks.Each(func(i int, _ Date) bool {
		seen++
		return i < 2
	})
	assert.Equal(t, 3, seen)
}

func TestCalendar_timeZone(t *testing.T) {
	// Thursday 23:30 UTC is already Friday in UTC+3.
	instant := time.Date(2024, time.May, 2, 23, 30, 0, 0, time.UTC)
	nowFunc := func() time.Time { return instant }

	local := New(time.FixedZone("EEST", 3*60*60), nowFunc)
	utc := New(time.UTC, nowFunc)

	assert.Equal(t, NewDate(2024, time.May, 3), local.Today())
	assert.Equal(t, NewDate(2024, time.May, 3), local.ServiceWeekOf(instant))
	assert.Equal(t, NewDate(2024, time.May, 2), utc.Today())
	assert.Equal(t, NewDate(2024, time.April, 26), utc.ServiceWeekOf(instant))
}
