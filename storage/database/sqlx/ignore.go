package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/kanisa/core"
	"github.com/trezcool/kanisa/core/followup"
)

type ignoreRow struct {
	ID        string    `db:"id"`
	PersonID  string    `db:"person_id"`
	IgnoredBy string    `db:"ignored_by"`
	CreatedAt time.Time `db:"created_at"`
	ExpiresAt null.Time `db:"expires_at"`
}

func (row ignoreRow) entry() followup.IgnoreEntry {
	entry := followup.IgnoreEntry{
		ID:        row.ID,
		PersonID:  row.PersonID,
		IgnoredBy: row.IgnoredBy,
		CreatedAt: row.CreatedAt.UTC(),
		ExpiresAt: row.ExpiresAt,
	}
	if entry.ExpiresAt.Valid {
		entry.ExpiresAt.Time = entry.ExpiresAt.Time.UTC()
	}
	return entry
}

const selectIgnores = `SELECT id, person_id, ignored_by, created_at, expires_at FROM followup_ignore`

type ignoreRepository struct {
	repository
}

var _ followup.IgnoreRepository = (*ignoreRepository)(nil) // interface compliance check

func NewIgnoreRepository(db *sqlx.DB) *ignoreRepository {
	return &ignoreRepository{repository{db: db}}
}

func (repo ignoreRepository) ListIgnores(ctx context.Context) ([]followup.IgnoreEntry, error) {
	var rows []ignoreRow
	if err := repo.db.SelectContext(ctx, &rows, selectIgnores+` ORDER BY created_at, person_id`); err != nil {
		return nil, core.NewDataAccessError(err, "listing ignore entries")
	}
	entries := make([]followup.IgnoreEntry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, row.entry())
	}
	return entries, nil
}

func (repo ignoreRepository) GetIgnore(ctx context.Context, personID string) (followup.IgnoreEntry, error) {
	var row ignoreRow
	if err := repo.db.GetContext(ctx, &row, repo.q(selectIgnores+` WHERE person_id = ?`), personID); err != nil {
		return followup.IgnoreEntry{}, trapNoRowsErr(err, followup.ErrIgnoreNotFound, "getting ignore entry")
	}
	return row.entry(), nil
}

func (repo ignoreRepository) CreateIgnore(ctx context.Context, entry followup.IgnoreEntry) (followup.IgnoreEntry, error) {
	q := `
INSERT INTO followup_ignore (id, person_id, ignored_by, created_at, expires_at)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT (person_id) DO NOTHING`
	res, err := repo.db.ExecContext(ctx, repo.q(q), entry.ID, entry.PersonID, entry.IgnoredBy, entry.CreatedAt.UTC(), entry.ExpiresAt)
	if err != nil {
		return followup.IgnoreEntry{}, core.NewDataAccessError(err, "creating ignore entry")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return followup.IgnoreEntry{}, core.NewDataAccessError(err, "creating ignore entry")
	}
	if n == 0 {
		return followup.IgnoreEntry{}, followup.ErrIgnoreExists
	}
	return repo.GetIgnore(ctx, entry.PersonID)
}

func (repo ignoreRepository) DeleteIgnore(ctx context.Context, personID string) error {
	if _, err := repo.db.ExecContext(ctx, repo.q(`DELETE FROM followup_ignore WHERE person_id = ?`), personID); err != nil {
		return core.NewDataAccessError(err, "deleting ignore entry")
	}
	return nil
}
