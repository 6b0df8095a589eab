package sqlxrepos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/kanisa/core"
	"github.com/trezcool/kanisa/core/attendance"
	"github.com/trezcool/kanisa/core/calendar"
	"github.com/trezcool/kanisa/core/person"
)

type recordRow struct {
	ID         string        `db:"id"`
	PersonID   string        `db:"person_id"`
	PersonType string        `db:"person_type"`
	Date       calendar.Date `db:"service_date"`
	Status     string        `db:"status"`
	Notes      null.String   `db:"notes"`
	RecordedBy null.String   `db:"recorded_by"`
	CreatedAt  time.Time     `db:"created_at"`
	UpdatedAt  time.Time     `db:"updated_at"`
}

func (row recordRow) record() attendance.Record {
	return attendance.Record{
		ID:         row.ID,
		PersonID:   row.PersonID,
		PersonType: person.Type(row.PersonType),
		Date:       row.Date,
		Status:     attendance.Status(row.Status),
		Notes:      row.Notes,
		RecordedBy: row.RecordedBy,
		CreatedAt:  row.CreatedAt.UTC(),
		UpdatedAt:  row.UpdatedAt.UTC(),
	}
}

const selectRecords = `
SELECT id, person_id, person_type, service_date, status, notes, recorded_by, created_at, updated_at
FROM attendance_record`

type attendanceRepository struct {
	repository
}

var _ attendance.Repository = (*attendanceRepository)(nil) // interface compliance check

func NewAttendanceRepository(db *sqlx.DB) *attendanceRepository {
	return &attendanceRepository{repository{db: db}}
}

func (repo attendanceRepository) RecordsInRange(ctx context.Context, filter attendance.RangeFilter) ([]attendance.Record, error) {
	q := selectRecords + ` WHERE person_type = ? AND service_date >= ? AND service_date <= ?`
	args := []interface{}{string(filter.PersonType), filter.From, filter.To}
	if filter.PersonID != "" {
		q += ` AND person_id = ?`
		args = append(args, filter.PersonID)
	}
	q += ` ORDER BY person_id, service_date`

	var rows []recordRow
	if err := repo.db.SelectContext(ctx, &rows, repo.q(q), args...); err != nil {
		return nil, core.NewDataAccessError(err, "reading attendance records")
	}
	records := make([]attendance.Record, 0, len(rows))
	for _, row := range rows {
		records = append(records, row.record())
	}
	return records, nil
}

func (repo attendanceRepository) LastPresentDates(ctx context.Context, t person.Type, onOrBefore calendar.Date) (map[string]calendar.Date, error) {
	q := `
SELECT person_id, MAX(service_date) AS last_present
FROM attendance_record
WHERE person_type = ? AND status = ? AND service_date <= ?
GROUP BY person_id`

	rows, err := repo.db.QueryxContext(ctx, repo.q(q), string(t), string(attendance.StatusPresent), onOrBefore)
	if err != nil {
		return nil, core.NewDataAccessError(err, "reading last attendance dates")
	}
	defer func() { _ = rows.Close() }()

	dates := make(map[string]calendar.Date)
	for rows.Next() {
		var (
			personID string
			date     calendar.Date
		)
		if err := rows.Scan(&personID, &date); err != nil {
			return nil, core.NewDataAccessError(err, "reading last attendance dates")
		}
		dates[personID] = date
	}
	if err := rows.Err(); err != nil {
		return nil, core.NewDataAccessError(err, "reading last attendance dates")
	}
	return dates, nil
}

func (repo attendanceRepository) SaveRecord(ctx context.Context, rec attendance.Record) (attendance.Record, error) {
	rec, err := attendance.NormalizeRecord(rec, time.Now())
	if err != nil {
		return attendance.Record{}, core.NewValidationError(err, core.FieldError{Field: "record", Error: err.Error()})
	}
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}

	q := `
INSERT INTO attendance_record (id, person_id, person_type, service_date, status, notes, recorded_by, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (person_id, service_date) DO UPDATE SET
    status = excluded.status,
    notes = excluded.notes,
    recorded_by = excluded.recorded_by,
    updated_at = excluded.updated_at`

	var row recordRow
	err = repo.inTx(func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, repo.q(q),
			rec.ID, rec.PersonID, string(rec.PersonType), rec.Date, string(rec.Status),
			rec.Notes, rec.RecordedBy, rec.CreatedAt, rec.UpdatedAt,
		)
		if err != nil {
			return core.NewDataAccessError(err, "saving attendance record")
		}
		err = tx.GetContext(ctx, &row, repo.q(selectRecords+` WHERE person_id = ? AND service_date = ?`), rec.PersonID, rec.Date)
		return core.NewDataAccessError(err, "reading saved attendance record")
	})
	if err != nil {
		return attendance.Record{}, err
	}
	return row.record(), nil
}
