package sqlxrepos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/kanisa/core"
	"github.com/trezcool/kanisa/core/staff"
)

type staffRow struct {
	ID           string         `db:"id"`
	Name         string         `db:"name"`
	Username     null.String    `db:"username"`
	Email        null.String    `db:"email"`
	IsActive     bool           `db:"is_active"`
	Roles        pq.StringArray `db:"roles"`
	PasswordHash []byte         `db:"password_hash"`
	CreatedAt    time.Time      `db:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at"`
	LastLogin    null.Time      `db:"last_login"`
}

func newStaffRow(s staff.Staff) staffRow {
	roles := pq.StringArray(s.Roles)
	if roles == nil {
		roles = pq.StringArray{}
	}
	return staffRow{
		ID:           s.ID,
		Name:         s.Name,
		Username:     null.NewString(s.Username, s.Username != ""),
		Email:        null.NewString(s.Email, s.Email != ""),
		IsActive:     s.IsActive,
		Roles:        roles,
		PasswordHash: s.PasswordHash,
		CreatedAt:    s.CreatedAt.UTC(),
		UpdatedAt:    s.UpdatedAt.UTC(),
		LastLogin:    s.LastLogin,
	}
}

func (row staffRow) staff() staff.Staff {
	s := staff.Staff{
		ID:           row.ID,
		Name:         row.Name,
		Username:     row.Username.String,
		Email:        row.Email.String,
		IsActive:     row.IsActive,
		Roles:        []string(row.Roles),
		PasswordHash: row.PasswordHash,
		CreatedAt:    row.CreatedAt.UTC(),
		UpdatedAt:    row.UpdatedAt.UTC(),
		LastLogin:    row.LastLogin,
	}
	if s.LastLogin.Valid {
		s.LastLogin.Time = s.LastLogin.Time.UTC()
	}
	return s
}

const selectStaff = `
SELECT id, name, username, email, is_active, roles, password_hash, created_at, updated_at, last_login
FROM staff`

type staffRepository struct {
	repository
}

var _ staff.Repository = (*staffRepository)(nil) // interface compliance check

func NewStaffRepository(db *sqlx.DB) *staffRepository {
	return &staffRepository{repository{db: db}}
}

func (repo staffRepository) CheckUsernameUniqueness(ctx context.Context, username, email string, excludedIDs ...string) error {
	q := `SELECT username, email FROM staff WHERE (username = ? OR email = ?)`
	args := []interface{}{username, email}
	if len(excludedIDs) > 0 {
		q += ` AND id NOT IN (?)`
		args = append(args, excludedIDs)
	}
	q, args, err := sqlx.In(q, args...)
	if err != nil {
		return core.NewDataAccessError(err, "checking staff uniqueness")
	}

	var matches []struct {
		Username null.String `db:"username"`
		Email    null.String `db:"email"`
	}
	if err := repo.db.SelectContext(ctx, &matches, repo.q(q), args...); err != nil {
		return core.NewDataAccessError(err, "checking staff uniqueness")
	}
	for _, m := range matches {
		if username != "" && m.Username.String == username {
			return staff.ErrUsernameExists
		}
		if email != "" && m.Email.String == email {
			return staff.ErrEmailExists
		}
	}
	return nil
}

func (repo staffRepository) CreateStaff(ctx context.Context, s staff.Staff) (staff.Staff, error) {
	s.ID = uuid.New().String()
	q := `
INSERT INTO staff (id, name, username, email, is_active, roles, password_hash, created_at, updated_at, last_login)
VALUES (:id, :name, :username, :email, :is_active, :roles, :password_hash, :created_at, :updated_at, :last_login)`
	if _, err := repo.db.NamedExecContext(ctx, q, newStaffRow(s)); err != nil {
		return staff.Staff{}, core.NewDataAccessError(err, "inserting staff")
	}
	return repo.GetStaffByID(ctx, s.ID)
}

func (repo staffRepository) ListStaff(ctx context.Context) ([]staff.Staff, error) {
	var rows []staffRow
	if err := repo.db.SelectContext(ctx, &rows, selectStaff+` ORDER BY name, id`); err != nil {
		return nil, core.NewDataAccessError(err, "listing staff")
	}
	all := make([]staff.Staff, 0, len(rows))
	for _, row := range rows {
		all = append(all, row.staff())
	}
	return all, nil
}

func (repo staffRepository) GetStaffByID(ctx context.Context, id string) (staff.Staff, error) {
	var row staffRow
	if err := repo.db.GetContext(ctx, &row, repo.q(selectStaff+` WHERE id = ?`), id); err != nil {
		return staff.Staff{}, trapNoRowsErr(err, staff.ErrNotFound, "getting staff")
	}
	return row.staff(), nil
}

func (repo staffRepository) GetStaffByUsernameOrEmail(ctx context.Context, username string) (staff.Staff, error) {
	var row staffRow
	q := selectStaff + ` WHERE username = ? OR email = ? ORDER BY username LIMIT 1`
	if err := repo.db.GetContext(ctx, &row, repo.q(q), username, username); err != nil {
		return staff.Staff{}, trapNoRowsErr(err, staff.ErrNotFound, "getting staff")
	}
	return row.staff(), nil
}

func (repo staffRepository) UpdateStaff(ctx context.Context, s staff.Staff) (staff.Staff, error) {
	q := `
UPDATE staff SET
    name = :name,
    username = :username,
    email = :email,
    is_active = :is_active,
    roles = :roles,
    password_hash = :password_hash,
    updated_at = :updated_at,
    last_login = :last_login
WHERE id = :id`
	res, err := repo.db.NamedExecContext(ctx, q, newStaffRow(s))
	if err != nil {
		return staff.Staff{}, core.NewDataAccessError(err, "updating staff")
	}
	if n, err := res.RowsAffected(); err != nil {
		return staff.Staff{}, core.NewDataAccessError(err, "updating staff")
	} else if n == 0 {
		return staff.Staff{}, staff.ErrNotFound
	}
	return repo.GetStaffByID(ctx, s.ID)
}
