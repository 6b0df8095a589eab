package testutil

import (
	"context"
	"testing"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3" // sqlite driver
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/kanisa/core"
	"github.com/trezcool/kanisa/core/attendance"
	"github.com/trezcool/kanisa/core/calendar"
	"github.com/trezcool/kanisa/core/person"
	"github.com/trezcool/kanisa/core/staff"
)

// sqlite rendition of fs/migrations
const schema = `
CREATE TABLE class (
    id         TEXT PRIMARY KEY,
    name       TEXT NOT NULL UNIQUE,
    created_at TIMESTAMP NOT NULL
);
CREATE TABLE person (
    id          TEXT PRIMARY KEY,
    type        TEXT NOT NULL,
    name        TEXT NOT NULL,
    phone       TEXT,
    parent_name TEXT,
    class_id    TEXT REFERENCES class (id),
    is_active   BOOLEAN NOT NULL DEFAULT 1,
    created_at  TIMESTAMP NOT NULL,
    updated_at  TIMESTAMP NOT NULL
);
CREATE TABLE attendance_record (
    id           TEXT PRIMARY KEY,
    person_id    TEXT NOT NULL REFERENCES person (id),
    person_type  TEXT NOT NULL,
    service_date DATE NOT NULL,
    status       TEXT NOT NULL,
    notes        TEXT,
    recorded_by  TEXT,
    created_at   TIMESTAMP NOT NULL,
    updated_at   TIMESTAMP NOT NULL,
    UNIQUE (person_id, service_date)
);
CREATE TABLE followup_ignore (
    id         TEXT PRIMARY KEY,
    person_id  TEXT NOT NULL UNIQUE REFERENCES person (id),
    ignored_by TEXT NOT NULL,
    created_at TIMESTAMP NOT NULL,
    expires_at TIMESTAMP
);
CREATE TABLE staff (
    id            TEXT PRIMARY KEY,
    name          TEXT NOT NULL,
    username      TEXT UNIQUE,
    email         TEXT UNIQUE,
    is_active     BOOLEAN NOT NULL DEFAULT 1,
    roles         TEXT NOT NULL DEFAULT '{}',
    password_hash BLOB NOT NULL,
    created_at    TIMESTAMP NOT NULL,
    updated_at    TIMESTAMP NOT NULL,
    last_login    TIMESTAMP
);`

// PrepareDB opens a fresh in-memory SQLite database holding the application schema.
func PrepareDB(t *testing.T) *sqlx.DB {
	t.Helper()
	db, err := sqlx.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("PrepareDB() failed: %v", err)
	}
	db.SetMaxOpenConns(1) // every connection would get its own in-memory database
	if _, err := db.Exec(schema); err != nil {
		t.Fatalf("PrepareDB() failed: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

// NewConfig returns the default configuration in test mode.
func NewConfig() *core.Config {
	conf := core.NewConfig()
	conf.TestMode = true
	conf.Database.Engine = "memory"
	return conf
}

// NewValidator returns a validator with every application validator registered.
func NewValidator() (*validator.Validate, ut.Translator) {
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	person.InitValidators(validate, translator)
	staff.InitValidators(validate, translator)
	return validate, translator
}

// Friday returns the n-th service week before 2024-05-03, a Friday. Friday(0) is 2024-05-03.
func Friday(n int) calendar.Date {
	return calendar.NewDate(2024, time.May, 3).AddDays(-7 * n)
}

func CreateStaff(
	t *testing.T,
	repo staff.Repository,
	name, uname, email, pwd string,
	roles []string,
	isActive bool,
	createdAt ...time.Time,
) staff.Staff {
	t.Helper()
	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	s := staff.Staff{
		Name:      name,
		Username:  uname,
		Email:     email,
		Roles:     roles,
		IsActive:  isActive,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	if pwd != "" {
		if err := s.SetPassword(pwd); err != nil {
			t.Fatalf("CreateStaff() failed: %v", err)
		}
	}
	s, err := repo.CreateStaff(context.Background(), s)
	if err != nil {
		t.Fatalf("CreateStaff() failed: %v", err)
	}
	return s
}

func CreateClass(t *testing.T, repo person.Repository, name string) person.Class {
	t.Helper()
	c, err := repo.SaveClass(context.Background(), person.Class{Name: name})
	if err != nil {
		t.Fatalf("CreateClass() failed: %v", err)
	}
	return c
}

func CreatePerson(t *testing.T, repo person.Repository, typ person.Type, name, phone string, class ...person.Class) person.Person {
	t.Helper()
	p := person.Person{
		Type:     typ,
		Name:     name,
		Phone:    phone,
		IsActive: true,
	}
	if typ == person.TypeChild {
		p.ParentName = "Parent of " + name
	}
	if len(class) > 0 {
		c := class[0]
		p.Class = &c
	}
	p, err := repo.SavePerson(context.Background(), p)
	if err != nil {
		t.Fatalf("CreatePerson() failed: %v", err)
	}
	return p
}

// Mark records p's attendance on date.
func Mark(t *testing.T, repo attendance.Repository, p person.Person, date calendar.Date, status attendance.Status, notes ...string) attendance.Record {
	t.Helper()
	rec := attendance.Record{
		PersonID:   p.ID,
		PersonType: p.Type,
		Date:       date,
		Status:     status,
	}
	if len(notes) > 0 {
		rec.Notes = null.StringFrom(notes[0])
	}
	rec, err := repo.SaveRecord(context.Background(), rec)
	if err != nil {
		t.Fatalf("Mark() failed: %v", err)
	}
	return rec
}
