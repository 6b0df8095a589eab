package main

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"io"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/kanisa/core"
	"github.com/trezcool/kanisa/core/calendar"
	"github.com/trezcool/kanisa/core/followup"
	"github.com/trezcool/kanisa/core/person"
	"github.com/trezcool/kanisa/core/staff"
	appfs "github.com/trezcool/kanisa/fs"
	"github.com/trezcool/kanisa/services/email"
	"github.com/trezcool/kanisa/services/logger"
	"github.com/trezcool/kanisa/storage/database/sqlx"
	"github.com/trezcool/kanisa/tests"
)

// 2024-05-08 is a Wednesday; its service week is 2024-05-03.
var now = time.Date(2024, time.May, 8, 12, 0, 0, 0, time.UTC)

type testCLI struct {
	*commandLine
	mail   *emailsvc.ConsoleServiceMock
	output *bytes.Buffer
}

func setup(t *testing.T) *testCLI {
	conf := testutil.NewConfig()
	conf.FollowUp.TimeZone = "UTC"

	// set up DB & repos
	db := testutil.PrepareDB(t)
	output := new(bytes.Buffer)
	cli := &commandLine{
		out:       output,
		db:        db,
		people:    sqlxrepos.NewPersonRepository(db),
		records:   sqlxrepos.NewAttendanceRepository(db),
		ignores:   sqlxrepos.NewIgnoreRepository(db),
		staffRepo: sqlxrepos.NewStaffRepository(db),
	}

	// set up services
	logger := logsvc.NewRollbarLogger(log.New(io.Discard, "", 0), conf)
	renderer, err := core.NewEmailRenderer(appfs.FS, appfs.EmailTemplatesDir, conf)
	require.NoError(t, err)
	mailSvc := emailsvc.NewConsoleServiceMock(renderer, logger, conf)
	validate, translator := testutil.NewValidator()
	cal := calendar.New(time.UTC, func() time.Time { return now })

	cli.staffSvc = staff.NewService(cli.staffRepo, validate, translator)
	cli.followUpSvc = followup.NewService(cli.people, cli.records, cli.ignores, cal, conf, validate, translator, mailSvc)
	return &testCLI{commandLine: cli, mail: mailSvc, output: output}
}

type cliTest struct {
	name       string
	args       []string // without program name
	wantErr    error
	wantErrStr string
	extra      interface{}
}

func checkErr(t *testing.T, tt cliTest, err error) {
	switch {
	case tt.wantErr != nil:
		if err != tt.wantErr {
			t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
		}
	case tt.wantErrStr != "":
		if err == nil || err.Error() != tt.wantErrStr {
			t.Errorf("cli.run() error = %v, wantErrStr %s", err, tt.wantErrStr)
		}
	case err != nil:
		t.Errorf("cli.run() unexpected error = %v", err)
	}
}

func isValidationErr(t *testing.T, err error) {
	var vErr *core.ValidationError
	assert.ErrorAs(t, err, &vErr)
}

func Test_commandLine_help(t *testing.T) {
	cli := setup(t)

	tests := []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			checkErr(t, tt, cli.run(args))
			assert.Contains(t, cli.output.String(), "Available Commands")
		})
	}
}

func Test_commandLine_migrate(t *testing.T) {
	cli := setup(t)

	gooseRunFunc = func(command string, db *sql.DB, fsys fs.FS, dir string, args ...string) error {
		if db == nil || fsys == nil || dir != appfs.MigrationsDir {
			return fmt.Errorf("bad goose setup")
		}
		switch command {
		case "up", "up-by-one", "down", "fix", "redo", "reset", "status", "version": // pass
		case "up-to":
			if len(args) == 0 {
				return fmt.Errorf("up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION")
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		case "down-to":
			if len(args) == 0 {
				return fmt.Errorf("down-to must be of form: goose [OPTIONS] DRIVER DBSTRING down-to VERSION")
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		default:
			return fmt.Errorf("%q: no such command", command)
		}
		return nil
	}

	tests := []cliTest{
		{name: "no subcommand", args: []string{"migrate"}, wantErr: errHelp},
		{name: "unknown subcommand", args: []string{"migrate", "lol"}, wantErrStr: "\"lol\": no such command"},
		{name: "up-to: no args", args: []string{"migrate", "up-to"}, wantErrStr: "up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION"},
		{name: "up-to: non-int arg", args: []string{"migrate", "up-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "down-to: no args", args: []string{"migrate", "down-to"}, wantErrStr: "down-to must be of form: goose [OPTIONS] DRIVER DBSTRING down-to VERSION"},
		{name: "down-to: non-int arg", args: []string{"migrate", "down-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "up", args: []string{"migrate", "up"}},
		{name: "up-by-one", args: []string{"migrate", "up-by-one"}},
		{name: "up-to", args: []string{"migrate", "up-to", "2"}},
		{name: "down", args: []string{"migrate", "down"}},
		{name: "down-to", args: []string{"migrate", "down-to", "1"}},
		{name: "redo", args: []string{"migrate", "redo"}},
		{name: "reset", args: []string{"migrate", "reset"}},
		{name: "status", args: []string{"migrate", "status"}},
		{name: "version", args: []string{"migrate", "version"}},
		{name: "fix", args: []string{"migrate", "fix"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			checkErr(t, tt, cli.run(args))
		})
	}

	t.Run("memory engine", func(t *testing.T) {
		noDB := *cli.commandLine
		noDB.db = nil
		assert.Equal(t, errNoDatabase, noDB.run([]string{"admin", "migrate", "up"}))
	})
}

func Test_commandLine_resetPassword(t *testing.T) {
	cli := setup(t)

	s := testutil.CreateStaff(t, cli.staffRepo, "Staff", "awe", "awe@test.eg", "Secret1234", nil, true)

	type extra struct {
		pwd string
	}
	tests := []cliTest{
		{name: "no args", args: []string{"resetpassword"}, wantErr: errHelp},
		{name: "username but no password", args: []string{"resetpassword", "--username", "lol"}, wantErr: errHelp},
		{name: "staff not found", args: []string{"resetpassword", "--username", "lol"}, extra: extra{pwd: "New-pass-1"}, wantErr: staff.ErrNotFound},
		{name: "reset with username", args: []string{"resetpassword", "--username", s.Username}, extra: extra{pwd: "New-pass-1"}},
		{name: "reset with email", args: []string{"resetpassword", "-u", s.Email}, extra: extra{pwd: "New-pass-2"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		readPasswordFunc = func(fd int) ([]byte, error) {
			if extra, ok := tt.extra.(extra); ok {
				return []byte(extra.pwd), nil
			}
			return nil, nil
		}

		t.Run(tt.name, func(t *testing.T) {
			err := cli.run(args)
			checkErr(t, tt, err)
			if err == nil {
				refreshed, err := cli.staffRepo.GetStaffByID(context.Background(), s.ID)
				require.NoError(t, err)
				assert.NoError(t, refreshed.CheckPassword(tt.extra.(extra).pwd))
			}
		})
	}

	t.Run("weak password", func(t *testing.T) {
		readPasswordFunc = func(int) ([]byte, error) { return []byte("12345678"), nil }
		isValidationErr(t, cli.run([]string{"admin", "resetpassword", "--username", s.Username}))
	})
}

func Test_commandLine_addStaff(t *testing.T) {
	cli := setup(t)
	readPasswordFunc = func(int) ([]byte, error) { return []byte("Secret1234"), nil }
	ctx := context.Background()

	tests := []cliTest{
		{name: "no username nor email", args: []string{"addstaff", "--name", "Amani"}, wantErr: errHelp},
		{name: "create", args: []string{"addstaff", "--username", "Amani", "--name", "Amani K.", "--role", staff.RoleClassTeacher}},
		{name: "update by email", args: []string{"addstaff", "-e", "amani@test.eg", "-u", "amani", "-r", "leader:service,leader:class"}},
		{name: "create admin", args: []string{"addstaff", "--email", "root@test.eg", "--admin"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			checkErr(t, tt, cli.run(args))
		})
	}

	amani, err := cli.staffSvc.GetByUsernameOrEmail(ctx, "amani")
	require.NoError(t, err)
	assert.Equal(t, "Amani K.", amani.Name)
	assert.Equal(t, "amani@test.eg", amani.Email)
	assert.ElementsMatch(t, []string{staff.RoleServiceLeader, staff.RoleClassTeacher}, amani.Roles)
	assert.NoError(t, amani.CheckPassword("Secret1234"))

	root, err := cli.staffSvc.GetByUsernameOrEmail(ctx, "root@test.eg")
	require.NoError(t, err)
	assert.True(t, root.IsAdmin())
	assert.True(t, root.IsActive)

	all, err := cli.staffSvc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	t.Run("unknown role", func(t *testing.T) {
		isValidationErr(t, cli.run([]string{"admin", "addstaff", "-u", "x", "-r", "pope:"}))
	})
	t.Run("weak password", func(t *testing.T) {
		readPasswordFunc = func(int) ([]byte, error) { return []byte("short"), nil }
		isValidationErr(t, cli.run([]string{"admin", "addstaff", "-u", "weak"}))
	})
}

const rosterYAML = `
classes:
  - name: Grade 3
people:
  - id: c-amani
    type: child
    name: Amani
    phone: "0811000001"
    parentName: Mama Amani
    class: Grade 3
  - id: c-baraka
    type: children
    name: Baraka
    phone: "0811000002"
  - id: c-eshe
    type: child
    name: Eshe
  - id: s-faraji
    type: servant
    name: Faraji
    phone: "0811000006"
attendance:
  - {person: c-amani, date: 2024-05-03, status: present}
  - {person: c-baraka, date: 2024-05-04, status: absent, notes: sick}
  - {person: c-baraka, date: 2024-04-19, status: present}
  - {person: s-faraji, date: 2024-05-03, status: present, recordedBy: leader}
`

func Test_commandLine_import(t *testing.T) {
	cli := setup(t)
	ctx := context.Background()

	path := filepath.Join(t.TempDir(), "roster.yaml")
	require.NoError(t, os.WriteFile(path, []byte(rosterYAML), 0o600))

	tests := []cliTest{
		{name: "no file", args: []string{"import"}, wantErr: errHelp},
		{name: "import", args: []string{"import", "--file", path}},
		{name: "import again (upsert)", args: []string{"import", "-f", path}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			checkErr(t, tt, cli.run(args))
		})
	}
	assert.Contains(t, cli.output.String(), "imported 1 classes, 4 people, 4 attendance marks")

	amani, err := cli.people.GetPerson(ctx, "c-amani")
	require.NoError(t, err)
	assert.Equal(t, "Mama Amani", amani.ParentName)
	require.NotNil(t, amani.Class)
	assert.Equal(t, "Grade 3", amani.Class.Name)

	children, err := cli.people.ListActivePeople(ctx, person.TypeChild)
	require.NoError(t, err)
	assert.Len(t, children, 3)

	report, err := cli.followUpSvc.Compute(ctx, person.TypeChild, cli.followUpSvc.DefaultOptions(person.TypeChild))
	require.NoError(t, err)
	assert.Equal(t, 2, report.Summary.Total) // Baraka (2 weeks), Eshe (never)
	require.Len(t, report.Groups, 2)
	assert.Equal(t, 12, report.Groups[0].ConsecutiveWeeks)
	assert.Equal(t, 2, report.Groups[1].ConsecutiveWeeks)
	require.Len(t, report.Groups[1].Members, 1)
	assert.Equal(t, "sick", report.Groups[1].Members[0].Notes) // the 2024-05-04 record belongs to the 2024-05-03 week

	badRosters := []struct {
		name string
		yaml string
	}{
		{name: "unknown field", yaml: "people:\n  - id: x\n    age: 3\n"},
		{name: "unknown type", yaml: "people:\n  - {id: x, type: parent, name: X}\n"},
		{name: "missing name", yaml: "people:\n  - {id: x, type: child}\n"},
		{name: "bad status", yaml: "attendance:\n  - {person: c-amani, date: 2024-05-03, status: late}\n"},
	}
	for _, tt := range badRosters {
		t.Run(tt.name, func(t *testing.T) {
			isValidationErr(t, cli.importRoster(strings.NewReader(tt.yaml)))
		})
	}

	t.Run("unknown person", func(t *testing.T) {
		err := cli.importRoster(strings.NewReader("attendance:\n  - {person: nobody, date: 2024-05-03, status: present}\n"))
		assert.ErrorIs(t, err, person.ErrNotFound)
	})
}

func Test_commandLine_digest(t *testing.T) {
	cli := setup(t)
	require.NoError(t, cli.importRoster(strings.NewReader(rosterYAML)))

	tests := []cliTest{
		{name: "no type", args: []string{"digest", "--to", "leader@test.eg"}, wantErr: errHelp},
		{name: "no recipients", args: []string{"digest", "--type", "child"}, wantErr: errHelp},
		{name: "children", args: []string{"digest", "--type", "child", "--to", "leader@test.eg,Head <head@test.eg>"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			checkErr(t, tt, cli.run(args))
		})
	}

	require.Len(t, cli.mail.SentMessages, 1)
	msg := cli.mail.SentMessages[0]
	require.Len(t, msg.To, 2)
	assert.Equal(t, "head@test.eg", msg.To[1].Address)
	assert.Contains(t, msg.Subject, "2 to contact")
	assert.Contains(t, cli.output.String(), "sent: 2 children in 2 groups")

	t.Run("unknown type", func(t *testing.T) {
		isValidationErr(t, cli.run([]string{"admin", "digest", "--type", "parent", "--to", "leader@test.eg"}))
	})
	t.Run("bad address", func(t *testing.T) {
		isValidationErr(t, cli.run([]string{"admin", "digest", "--type", "servant", "--to", "not an address"}))
	})
}

func Test_commandLine_digest_consoleService(t *testing.T) {
	cli := setup(t)
	require.NoError(t, cli.importRoster(strings.NewReader(rosterYAML)))

	conf := testutil.NewConfig()
	conf.FollowUp.TimeZone = "UTC"
	mailLog := new(bytes.Buffer)
	logger := logsvc.NewRollbarLogger(log.New(mailLog, "", 0), conf)
	renderer, err := core.NewEmailRenderer(appfs.FS, appfs.EmailTemplatesDir, conf)
	require.NoError(t, err)
	validate, translator := testutil.NewValidator()
	cal := calendar.New(time.UTC, func() time.Time { return now })
	cli.followUpSvc = followup.NewService(cli.people, cli.records, cli.ignores, cal, conf, validate, translator,
		emailsvc.NewConsoleService(renderer, logger, conf))

	require.NoError(t, cli.run([]string{"admin", "digest", "--type", "child", "--to", "leader@test.eg"}))

	// the message is out by the time the command returns
	assert.Contains(t, mailLog.String(), "Subject: [Kanisa] Follow-up children: 2 to contact (week of 2024-05-03)")
	assert.Contains(t, mailLog.String(), "followup-children-2024-05-03.csv")
	assert.Contains(t, cli.output.String(), "sent: 2 children in 2 groups")
}
