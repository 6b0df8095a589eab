package database

import (
	"database/sql"
	"errors"
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"

	appfs "github.com/trezcool/kanisa/fs"
	"github.com/trezcool/kanisa/tests"
)

func TestMigrate(t *testing.T) {
	db := testutil.PrepareDB(t)
	origRun := gooseRunFunc
	defer func() { gooseRunFunc = origRun }()

	var calls []string
	gooseRunFunc = func(command string, sqlDB *sql.DB, fsys fs.FS, dir string, args ...string) error {
		assert.Same(t, db.DB, sqlDB)
		assert.Equal(t, appfs.MigrationsDir, dir)
		if _, err := fs.Stat(fsys, dir+"/00001_create_class_person.sql"); err != nil {
			return err
		}
		calls = append(calls, command)
		if command == "lol" {
			return errors.New("no such command")
		}
		return nil
	}

	assert.NoError(t, Migrate(db, "up"))
	assert.NoError(t, Migrate(db, "down-to", "1"))
	err := Migrate(db, "lol")
	assert.EqualError(t, err, "migrating database: no such command")
	assert.Equal(t, []string{"up", "down-to", "lol"}, calls)
}
