package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"

	"github.com/trezcool/kanisa/core"
	"github.com/trezcool/kanisa/core/calendar"
	"github.com/trezcool/kanisa/core/followup"
	"github.com/trezcool/kanisa/core/person"
	"github.com/trezcool/kanisa/core/staff"
	appfs "github.com/trezcool/kanisa/fs"
	emailsvc "github.com/trezcool/kanisa/services/email"
	logsvc "github.com/trezcool/kanisa/services/logger"
	"github.com/trezcool/kanisa/storage/database"
	inmemdb "github.com/trezcool/kanisa/storage/database/inmem"
	sqlxrepos "github.com/trezcool/kanisa/storage/database/sqlx"
)

const dbPingTimeout = 30 * time.Second

func main() {
	conf := core.NewConfig()
	logger := logsvc.NewRollbarLogger(log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile), conf)

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	person.InitValidators(validate, translator)
	staff.InitValidators(validate, translator)

	if err := conf.FollowUp.Validate(validate); err != nil {
		logger.Fatal("invalid follow-up configuration", err)
	}
	loc, err := conf.FollowUp.Location()
	errAndDie(logger, err)

	renderer, err := core.NewEmailRenderer(appfs.FS, appfs.EmailTemplatesDir, conf)
	errAndDie(logger, err)
	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(renderer, logger, conf)
	} else {
		mailSvc = emailsvc.NewSendgridService(renderer, logger, conf)
	}

	cli := &commandLine{out: os.Stdout}
	if conf.Database.Engine == "memory" {
		mem := inmemdb.Open()
		cli.people = inmemdb.NewPersonRepository(mem)
		cli.records = inmemdb.NewAttendanceRepository(mem)
		cli.ignores = inmemdb.NewIgnoreRepository(mem)
		cli.staffRepo = inmemdb.NewStaffRepository(mem)
	} else {
		// set up DB
		var db *sqlx.DB
		db, err = database.Open(conf)
		errAndDie(logger, err)
		defer func() { _ = db.Close() }()

		ctx, cancel := context.WithTimeout(context.Background(), dbPingTimeout)
		err = database.Ping(ctx, db)
		cancel()
		errAndDie(logger, err)

		cli.db = db
		cli.people = sqlxrepos.NewPersonRepository(db)
		cli.records = sqlxrepos.NewAttendanceRepository(db)
		cli.ignores = sqlxrepos.NewIgnoreRepository(db)
		cli.staffRepo = sqlxrepos.NewStaffRepository(db)
	}
	cli.staffSvc = staff.NewService(cli.staffRepo, validate, translator)
	cli.followUpSvc = followup.NewService(cli.people, cli.records, cli.ignores, calendar.New(loc), conf, validate, translator, mailSvc)

	// start CLI
	if err = cli.run(os.Args); err != nil {
		if err != errHelp {
			logger.Error("admin command failed", err)
		}
		os.Exit(1)
	}
}

func errAndDie(logger core.Logger, err error) {
	if err != nil {
		logger.Fatal(err.Error(), err)
	}
}
