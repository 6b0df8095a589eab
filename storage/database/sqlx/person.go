package sqlxrepos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/kanisa/core"
	"github.com/trezcool/kanisa/core/person"
)

type personRow struct {
	ID         string      `db:"id"`
	Type       string      `db:"type"`
	Name       string      `db:"name"`
	Phone      null.String `db:"phone"`
	ParentName null.String `db:"parent_name"`
	ClassID    null.String `db:"class_id"`
	ClassName  null.String `db:"class_name"`
	IsActive   bool        `db:"is_active"`
	CreatedAt  time.Time   `db:"created_at"`
	UpdatedAt  time.Time   `db:"updated_at"`
}

func (row personRow) person() person.Person {
	p := person.Person{
		ID:         row.ID,
		Type:       person.Type(row.Type),
		Name:       row.Name,
		Phone:      row.Phone.String,
		ParentName: row.ParentName.String,
		IsActive:   row.IsActive,
		CreatedAt:  row.CreatedAt.UTC(),
		UpdatedAt:  row.UpdatedAt.UTC(),
	}
	if row.ClassID.Valid {
		p.Class = &person.Class{ID: row.ClassID.String, Name: row.ClassName.String}
	}
	return p
}

const selectPeople = `
SELECT p.id, p.type, p.name, p.phone, p.parent_name, p.class_id, c.name AS class_name, p.is_active, p.created_at, p.updated_at
FROM person p
LEFT JOIN class c ON c.id = p.class_id`

type personRepository struct {
	repository
}

var _ person.Repository = (*personRepository)(nil) // interface compliance check

func NewPersonRepository(db *sqlx.DB) *personRepository {
	return &personRepository{repository{db: db}}
}

func (repo personRepository) ListActivePeople(ctx context.Context, t person.Type) ([]person.Person, error) {
	var rows []personRow
	q := selectPeople + ` WHERE p.type = ? AND p.is_active = ? ORDER BY p.name, p.id`
	if err := repo.db.SelectContext(ctx, &rows, repo.q(q), string(t), true); err != nil {
		return nil, core.NewDataAccessError(err, "listing active people")
	}
	people := make([]person.Person, 0, len(rows))
	for _, row := range rows {
		people = append(people, row.person())
	}
	return people, nil
}

func (repo personRepository) GetPerson(ctx context.Context, id string) (person.Person, error) {
	var row personRow
	if err := repo.db.GetContext(ctx, &row, repo.q(selectPeople+` WHERE p.id = ?`), id); err != nil {
		return person.Person{}, trapNoRowsErr(err, person.ErrNotFound, "getting person")
	}
	return row.person(), nil
}

func (repo personRepository) SavePerson(ctx context.Context, p person.Person) (person.Person, error) {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	var classID null.String
	if p.Class != nil && p.Class.ID != "" {
		classID = null.StringFrom(p.Class.ID)
	}
	now := time.Now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now

	q := `
INSERT INTO person (id, type, name, phone, parent_name, class_id, is_active, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (id) DO UPDATE SET
    type = excluded.type,
    name = excluded.name,
    phone = excluded.phone,
    parent_name = excluded.parent_name,
    class_id = excluded.class_id,
    is_active = excluded.is_active,
    updated_at = excluded.updated_at`
	_, err := repo.db.ExecContext(ctx, repo.q(q),
		p.ID, string(p.Type), p.Name,
		null.NewString(p.Phone, p.Phone != ""),
		null.NewString(p.ParentName, p.ParentName != ""),
		classID, p.IsActive, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return person.Person{}, core.NewDataAccessError(err, "saving person")
	}
	return repo.GetPerson(ctx, p.ID)
}

func (repo personRepository) SaveClass(ctx context.Context, c person.Class) (person.Class, error) {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	q := `
INSERT INTO class (id, name, created_at) VALUES (?, ?, ?)
ON CONFLICT (id) DO UPDATE SET name = excluded.name`
	if _, err := repo.db.ExecContext(ctx, repo.q(q), c.ID, c.Name, time.Now().UTC()); err != nil {
		return person.Class{}, core.NewDataAccessError(err, "saving class")
	}
	return c, nil
}

func (repo personRepository) GetClassByName(ctx context.Context, name string) (person.Class, error) {
	var c person.Class
	err := repo.db.QueryRowxContext(ctx, repo.q(`SELECT id, name FROM class WHERE name = ?`), name).Scan(&c.ID, &c.Name)
	if err != nil {
		return person.Class{}, trapNoRowsErr(err, person.ErrClassNotFound, "getting class")
	}
	return c, nil
}
