package attendance

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/kanisa/core/calendar"
	"github.com/trezcool/kanisa/core/person"
)

// WeekStatus is a person's attendance for one service week.
// Record is nil when nothing was recorded that week.
type WeekStatus struct {
	Week    calendar.Date `json:"week"`
	Present bool          `json:"present"`
	Record  *Record       `json:"record"`
}

// Presence returns the present flags of statuses, in the same order.
func Presence(statuses []WeekStatus) []bool {
	presence := make([]bool, len(statuses))
	for i, st := range statuses {
		presence[i] = st.Present
	}
	return presence
}

// Ledger reads attendance per service week. It never writes.
type Ledger struct {
	repo Repository
}

func NewLedger(repo Repository) *Ledger {
	return &Ledger{repo: repo}
}

// WeeklyStatus returns one person's status for each of weeks, most recent first.
func (l *Ledger) WeeklyStatus(ctx context.Context, personID string, t person.Type, weeks calendar.Weeks) ([]WeekStatus, error) {
	sheet, err := l.load(ctx, RangeFilter{PersonType: t, PersonID: personID}, weeks)
	if err != nil {
		return nil, err
	}
	return sheet.WeeklyStatus(personID), nil
}

// Load reads the records of a whole population over weeks with a single range query.
func (l *Ledger) Load(ctx context.Context, t person.Type, weeks calendar.Weeks) (*Sheet, error) {
	return l.load(ctx, RangeFilter{PersonType: t}, weeks)
}

// LastPresentDates returns, per person, the latest service week they were marked present in, up to weeks.First().
func (l *Ledger) LastPresentDates(ctx context.Context, t person.Type, weeks calendar.Weeks) (map[string]calendar.Date, error) {
	// records dated later in the current service week still belong to it
	dates, err := l.repo.LastPresentDates(ctx, t, weeks.First().AddDays(6))
	if err != nil {
		return nil, errors.Wrap(err, "reading last attendance dates")
	}
	return dates, nil
}

func (l *Ledger) load(ctx context.Context, filter RangeFilter, weeks calendar.Weeks) (*Sheet, error) {
	if weeks.Len() == 0 {
		return newSheet(weeks, nil), nil
	}
	// a week spans from its Friday up to the following Thursday
	filter.From = weeks.Last()
	filter.To = weeks.First().AddDays(6)

	records, err := l.repo.RecordsInRange(ctx, filter)
	if err != nil {
		return nil, errors.Wrap(err, "reading attendance records")
	}
	return newSheet(weeks, records), nil
}

// Sheet holds a population's records indexed by person and service week.
type Sheet struct {
	weeks   calendar.Weeks
	records map[string]map[calendar.Date]*Record // {personID: {week: record}}
}

func newSheet(weeks calendar.Weeks, records []Record) *Sheet {
	s := &Sheet{
		weeks:   weeks,
		records: make(map[string]map[calendar.Date]*Record),
	}
	for i := range records {
		s.add(&records[i])
	}
	return s
}

func (s *Sheet) add(rec *Record) {
	week := calendar.MostRecentServiceWeek(rec.Date)
	byWeek, ok := s.records[rec.PersonID]
	if !ok {
		byWeek = make(map[calendar.Date]*Record)
		s.records[rec.PersonID] = byWeek
	}
	if curr, ok := byWeek[week]; ok && !supersedes(rec, curr) {
		return
	}
	byWeek[week] = rec
}

// supersedes decides which of two records landing in the same week wins: present beats absent,
// then the later date, then the later update.
func supersedes(rec, curr *Record) bool {
	if rec.IsPresent() != curr.IsPresent() {
		return rec.IsPresent()
	}
	if c := rec.Date.Compare(curr.Date); c != 0 {
		return c > 0
	}
	return rec.UpdatedAt.After(curr.UpdatedAt)
}

func (s *Sheet) Weeks() calendar.Weeks { return s.weeks }

// WeeklyStatus returns the person's status for each week of the sheet, most recent first.
// Weeks without a record take MissingRecordStatus.
func (s *Sheet) WeeklyStatus(personID string) []WeekStatus {
	byWeek := s.records[personID]
	statuses := make([]WeekStatus, 0, s.weeks.Len())
	s.weeks.Each(func(_ int, week calendar.Date) bool {
		st := WeekStatus{Week: week, Present: MissingRecordStatus == StatusPresent}
		if rec, ok := byWeek[week]; ok {
			st.Present = rec.IsPresent()
			st.Record = rec
		}
		statuses = append(statuses, st)
		return true
	})
	return statuses
}

// NormalizeRecord moves a record's date to its service week and stamps it.
func NormalizeRecord(rec Record, now time.Time) (Record, error) {
	if !rec.Status.Valid() {
		return Record{}, ErrInvalidStatus
	}
	if !rec.PersonType.Valid() {
		return Record{}, person.ErrInvalidType
	}
	rec.Date = calendar.MostRecentServiceWeek(rec.Date)
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now.UTC()
	}
	rec.UpdatedAt = now.UTC()
	return rec, nil
}
