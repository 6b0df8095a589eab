package attendance_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/kanisa/core"
	"github.com/trezcool/kanisa/core/attendance"
	"github.com/trezcool/kanisa/core/calendar"
	"github.com/trezcool/kanisa/core/person"
	"github.com/trezcool/kanisa/storage/database/inmem"
	"github.com/trezcool/kanisa/tests"
)

// stubRepository serves fixed records, whatever their dates.
type stubRepository struct {
	records []attendance.Record
	filters []attendance.RangeFilter
	err     error
}

func (repo *stubRepository) RecordsInRange(_ context.Context, filter attendance.RangeFilter) ([]attendance.Record, error) {
	repo.filters = append(repo.filters, filter)
	return repo.records, repo.err
}

func (repo *stubRepository) LastPresentDates(context.Context, person.Type, calendar.Date) (map[string]calendar.Date, error) {
	return nil, repo.err
}

func (repo *stubRepository) SaveRecord(_ context.Context, rec attendance.Record) (attendance.Record, error) {
	return rec, repo.err
}

func weeks(t *testing.T, n int) calendar.Weeks {
	w, err := calendar.ServiceWeeksBack(testutil.Friday(0), n)
	require.NoError(t, err)
	return w
}

func TestLedger_WeeklyStatus(t *testing.T) {
	db := inmemdb.Open()
	people := inmemdb.NewPersonRepository(db)
	records := inmemdb.NewAttendanceRepository(db)
	ledger := attendance.NewLedger(records)

	kid := testutil.CreatePerson(t, people, person.TypeChild, "Amani", "0811111111")
	other := testutil.CreatePerson(t, people, person.TypeChild, "Baraka", "0822222222")
	testutil.Mark(t, records, kid, testutil.Friday(0), attendance.StatusAbsent, "travelling")
	testutil.Mark(t, records, kid, testutil.Friday(2), attendance.StatusPresent)
	testutil.Mark(t, records, other, testutil.Friday(1), attendance.StatusPresent)

	statuses, err := ledger.WeeklyStatus(context.Background(), kid.ID, person.TypeChild, weeks(t, 4))
	require.NoError(t, err)
	require.Len(t, statuses, 4)

	assert.Equal(t, []bool{false, false, true, false}, attendance.Presence(statuses))
	for i, st := range statuses {
		assert.Equal(t, testutil.Friday(i), st.Week)
	}

	// explicit absence keeps its record
	require.NotNil(t, statuses[0].Record)
	assert.Equal(t, "travelling", statuses[0].Record.Notes.String)
	// no record: absent by default
	assert.Nil(t, statuses[1].Record)
	assert.Equal(t, attendance.MissingRecordStatus == attendance.StatusPresent, statuses[1].Present)
	assert.Nil(t, statuses[3].Record)
}

func TestLedger_Load(t *testing.T) {
	db := inmemdb.Open()
	people := inmemdb.NewPersonRepository(db)
	records := inmemdb.NewAttendanceRepository(db)
	ledger := attendance.NewLedger(records)

	kid := testutil.CreatePerson(t, people, person.TypeChild, "Amani", "")
	servant := testutil.CreatePerson(t, people, person.TypeServant, "Neema", "")
	testutil.Mark(t, records, kid, testutil.Friday(0), attendance.StatusPresent)
	testutil.Mark(t, records, servant, testutil.Friday(0), attendance.StatusPresent)
	// outside the window
	testutil.Mark(t, records, kid, testutil.Friday(5), attendance.StatusPresent)

	sheet, err := ledger.Load(context.Background(), person.TypeChild, weeks(t, 3))
	require.NoError(t, err)

	assert.Equal(t, []bool{true, false, false}, attendance.Presence(sheet.WeeklyStatus(kid.ID)))
	// other population is not loaded
	assert.Equal(t, []bool{false, false, false}, attendance.Presence(sheet.WeeklyStatus(servant.ID)))
	assert.Equal(t, []bool{false, false, false}, attendance.Presence(sheet.WeeklyStatus("unknown")))
}

func TestLedger_Load_batchesOneRangeQuery(t *testing.T) {
	repo := &stubRepository{}
	ledger := attendance.NewLedger(repo)

	_, err := ledger.Load(context.Background(), person.TypeServant, weeks(t, 12))
	require.NoError(t, err)

	require.Len(t, repo.filters, 1)
	f := repo.filters[0]
	assert.Equal(t, person.TypeServant, f.PersonType)
	assert.Empty(t, f.PersonID)
	assert.Equal(t, testutil.Friday(11), f.From)
	assert.Equal(t, testutil.Friday(0).AddDays(6), f.To)
}

func TestLedger_Load_bucketsRecordsToTheirServiceWeek(t *testing.T) {
	sunday := testutil.Friday(1).AddDays(2)
	thursday := testutil.Friday(0).AddDays(6)
	tests := []struct {
		name    string
		records []attendance.Record
		want    []bool
	}{
		{
			name: "record dated after friday",
			records: []attendance.Record{
				{PersonID: "p1", Date: sunday, Status: attendance.StatusPresent},
				{PersonID: "p1", Date: thursday, Status: attendance.StatusPresent},
			},
			want: []bool{true, true, false},
		},
		{
			name: "present wins over absent in the same week",
			records: []attendance.Record{
				{PersonID: "p1", Date: testutil.Friday(1), Status: attendance.StatusPresent},
				{PersonID: "p1", Date: sunday, Status: attendance.StatusAbsent},
			},
			want: []bool{false, true, false},
		},
		{
			name: "absent then present in the same week",
			records: []attendance.Record{
				{PersonID: "p1", Date: testutil.Friday(1), Status: attendance.StatusAbsent},
				{PersonID: "p1", Date: sunday, Status: attendance.StatusPresent},
			},
			want: []bool{false, true, false},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ledger := attendance.NewLedger(&stubRepository{records: tt.records})
			sheet, err := ledger.Load(context.Background(), person.TypeChild, weeks(t, 3))
			require.NoError(t, err)
			assert.Equal(t, tt.want, attendance.Presence(sheet.WeeklyStatus("p1")))
		})
	}
}

func TestLedger_dataAccessErrorIsPropagated(t *testing.T) {
	repoErr := core.NewDataAccessError(errors.New("connection refused"), "reading attendance records")
	ledger := attendance.NewLedger(&stubRepository{err: repoErr})

	_, err := ledger.Load(context.Background(), person.TypeChild, weeks(t, 3))
	require.Error(t, err)
	assert.True(t, core.IsDataAccess(err))

	_, err = ledger.WeeklyStatus(context.Background(), "p1", person.TypeChild, weeks(t, 3))
	assert.True(t, core.IsDataAccess(err))
}

func TestNormalizeRecord(t *testing.T) {
	now := time.Date(2024, time.May, 8, 10, 0, 0, 0, time.UTC)
	tuesday := testutil.Friday(0).AddDays(4)

	rec, err := attendance.NormalizeRecord(attendance.Record{
		PersonID:   "p1",
		PersonType: person.TypeChild,
		Date:       tuesday,
		Status:     attendance.StatusAbsent,
		Notes:      null.StringFrom("sick"),
	}, now)
	require.NoError(t, err)
	assert.Equal(t, testutil.Friday(0), rec.Date)
	assert.Equal(t, now, rec.CreatedAt)
	assert.Equal(t, now, rec.UpdatedAt)

	_, err = attendance.NormalizeRecord(attendance.Record{PersonType: person.TypeChild, Status: "late"}, now)
	assert.Equal(t, attendance.ErrInvalidStatus, err)

	_, err = attendance.NormalizeRecord(attendance.Record{PersonType: "parent", Status: attendance.StatusPresent}, now)
	assert.Equal(t, person.ErrInvalidType, err)
}

func TestSaveRecord_updatesTheRecordOfTheSameWeek(t *testing.T) {
	db := inmemdb.Open()
	people := inmemdb.NewPersonRepository(db)
	records := inmemdb.NewAttendanceRepository(db)

	kid := testutil.CreatePerson(t, people, person.TypeChild, "Amani", "")
	first := testutil.Mark(t, records, kid, testutil.Friday(0), attendance.StatusAbsent)
	second := testutil.Mark(t, records, kid, testutil.Friday(0).AddDays(1), attendance.StatusPresent)

	assert.Equal(t, first.ID, second.ID)
	all, err := records.RecordsInRange(context.Background(), attendance.RangeFilter{
		PersonType: person.TypeChild,
		From:       testutil.Friday(1),
		To:         testutil.Friday(0).AddDays(6),
	})
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, attendance.StatusPresent, all[0].Status)
}
