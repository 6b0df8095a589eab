package inmemdb

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/trezcool/kanisa/core"
	"github.com/trezcool/kanisa/core/attendance"
	"github.com/trezcool/kanisa/core/calendar"
	"github.com/trezcool/kanisa/core/person"
)

type attendanceRepository struct {
	db *attendanceTable
}

var _ attendance.Repository = (*attendanceRepository)(nil) // interface compliance check

func NewAttendanceRepository(db *DB) *attendanceRepository {
	return &attendanceRepository{db: db.attendance}
}

func (repo *attendanceRepository) RecordsInRange(_ context.Context, filter attendance.RangeFilter) ([]attendance.Record, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	records := make([]attendance.Record, 0)
	for _, rec := range repo.db.table {
		if rec.PersonType != filter.PersonType || rec.Date.Before(filter.From) || rec.Date.After(filter.To) {
			continue
		}
		if filter.PersonID != "" && rec.PersonID != filter.PersonID {
			continue
		}
		records = append(records, *rec)
	}
	sort.Slice(records, func(i, j int) bool {
		if records[i].PersonID != records[j].PersonID {
			return records[i].PersonID < records[j].PersonID
		}
		return records[i].Date.Before(records[j].Date)
	})
	return records, nil
}

func (repo *attendanceRepository) LastPresentDates(_ context.Context, t person.Type, onOrBefore calendar.Date) (map[string]calendar.Date, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	dates := make(map[string]calendar.Date)
	for _, rec := range repo.db.table {
		if rec.PersonType != t || !rec.IsPresent() || rec.Date.After(onOrBefore) {
			continue
		}
		if last, ok := dates[rec.PersonID]; !ok || rec.Date.After(last) {
			dates[rec.PersonID] = rec.Date
		}
	}
	return dates, nil
}

func (repo *attendanceRepository) SaveRecord(_ context.Context, rec attendance.Record) (attendance.Record, error) {
	rec, err := attendance.NormalizeRecord(rec, time.Now())
	if err != nil {
		return attendance.Record{}, core.NewValidationError(err, core.FieldError{Field: "record", Error: err.Error()})
	}

	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	// one record per (person, date)
	for _, orig := range repo.db.table {
		if orig.PersonID == rec.PersonID && orig.Date == rec.Date {
			orig.Status = rec.Status
			orig.Notes = rec.Notes
			orig.RecordedBy = rec.RecordedBy
			orig.UpdatedAt = rec.UpdatedAt
			return *orig, nil
		}
	}
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	repo.db.table[rec.ID] = &rec
	return rec, nil
}
