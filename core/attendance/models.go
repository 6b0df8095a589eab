package attendance

import (
	"context"
	"errors"
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/trezcool/kanisa/core/calendar"
	"github.com/trezcool/kanisa/core/person"
)

type Status string

const (
	StatusPresent Status = "present"
	StatusAbsent  Status = "absent"
)

// MissingRecordStatus is the status assumed for a service week in which a person has no record.
// A missing record counts exactly like an explicit absence.
const MissingRecordStatus = StatusAbsent

var ErrInvalidStatus = errors.New("invalid attendance status")

func (s Status) Valid() bool {
	return s == StatusPresent || s == StatusAbsent
}

// Record is one person's attendance on one service date.
// There is at most one Record per (PersonID, Date).
type Record struct {
	ID         string        `json:"id"`
	PersonID   string        `json:"personId"`
	PersonType person.Type   `json:"personType"`
	Date       calendar.Date `json:"date"`
	Status     Status        `json:"status"`
	Notes      null.String   `json:"notes"`
	RecordedBy null.String   `json:"recordedBy"`
	CreatedAt  time.Time     `json:"createdAt"`
	UpdatedAt  time.Time     `json:"updatedAt"`
}

func (r Record) IsPresent() bool { return r.Status == StatusPresent }

// RangeFilter selects records of one population with From <= Date <= To.
// PersonID optionally narrows it to one person.
type RangeFilter struct {
	PersonType person.Type
	PersonID   string
	From       calendar.Date
	To         calendar.Date
}

type Repository interface {
	// RecordsInRange returns the matching records ordered by person and date.
	RecordsInRange(ctx context.Context, filter RangeFilter) ([]Record, error)
	// LastPresentDates returns, per person ID, the latest date on or before onOrBefore with a present record.
	LastPresentDates(ctx context.Context, t person.Type, onOrBefore calendar.Date) (map[string]calendar.Date, error)
	// SaveRecord inserts the record or updates the existing one for the same (PersonID, Date).
	SaveRecord(ctx context.Context, rec Record) (Record, error)
}
