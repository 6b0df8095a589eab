package dig_container

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/dig"

	echoapi "github.com/trezcool/kanisa/apps/api/echo"
	"github.com/trezcool/kanisa/core"
	"github.com/trezcool/kanisa/core/attendance"
	"github.com/trezcool/kanisa/core/calendar"
	"github.com/trezcool/kanisa/core/followup"
	"github.com/trezcool/kanisa/core/person"
	"github.com/trezcool/kanisa/core/staff"
	appfs "github.com/trezcool/kanisa/fs"
	emailsvc "github.com/trezcool/kanisa/services/email"
	logsvc "github.com/trezcool/kanisa/services/logger"
	metricsvc "github.com/trezcool/kanisa/services/metrics"
	"github.com/trezcool/kanisa/storage/database"
	inmemdb "github.com/trezcool/kanisa/storage/database/inmem"
	sqlxrepos "github.com/trezcool/kanisa/storage/database/sqlx"
)

const (
	engineMemory   = "memory"
	dbSetUpTimeout = 30 * time.Second
	metricsPrefix  = "kanisa"
)

type (
	DBLoggerParam struct {
		dig.In
		Logger core.Logger `name:"dbLogger"`
	}

	// Repositories are backed by Postgres, or by memory when database.engine is "memory".
	Repositories struct {
		dig.Out
		People  person.Repository
		Records attendance.Repository
		Ignores followup.IgnoreRepository
		Staff   staff.Repository
	}

	followUpRepos struct {
		dig.In
		People  person.Repository
		Records attendance.Repository
		Ignores followup.IgnoreRepository
	}
)

func newLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "API : ", log.LstdFlags)
	return logsvc.NewRollbarLogger(stdLogger, conf)
}

func newDBLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	return logsvc.NewRollbarLogger(stdLogger, conf)
}

func newValidator() (*validator.Validate, ut.Translator) {
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	person.InitValidators(validate, translator)
	staff.InitValidators(validate, translator)
	return validate, translator
}

// newDB returns nil with the memory engine.
func newDB(conf *core.Config, loggerParam DBLoggerParam) *sqlx.DB {
	if conf.Database.Engine == engineMemory {
		loggerParam.Logger.Warn("using the in-memory database: data is lost on shutdown")
		return nil
	}

	setUp := func() (*sqlx.DB, error) {
		ctx, cancel := context.WithTimeout(context.Background(), dbSetUpTimeout)
		defer cancel()

		if err := database.CreateIfNotExist(ctx, conf); err != nil {
			return nil, err
		}

		db, err := database.Open(conf)
		if err != nil {
			return nil, err
		}
		if err = database.Ping(ctx, db); err != nil {
			return nil, err
		}

		if err = database.Migrate(db, "up"); err != nil {
			return nil, err
		}
		return db, nil
	}

	db, err := setUp()
	if err != nil {
		loggerParam.Logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	return db
}

func newRepositories(db *sqlx.DB) Repositories {
	if db == nil {
		mem := inmemdb.Open()
		return Repositories{
			People:  inmemdb.NewPersonRepository(mem),
			Records: inmemdb.NewAttendanceRepository(mem),
			Ignores: inmemdb.NewIgnoreRepository(mem),
			Staff:   inmemdb.NewStaffRepository(mem),
		}
	}
	return Repositories{
		People:  sqlxrepos.NewPersonRepository(db),
		Records: sqlxrepos.NewAttendanceRepository(db),
		Ignores: sqlxrepos.NewIgnoreRepository(db),
		Staff:   sqlxrepos.NewStaffRepository(db),
	}
}

// newCalendar loads the institution's time zone. Startup aborts on an invalid follow-up configuration.
func newCalendar(conf *core.Config, validate *validator.Validate, logger core.Logger) *calendar.Calendar {
	if err := conf.FollowUp.Validate(validate); err != nil {
		logger.Fatal(fmt.Sprintf("invalid follow-up configuration: %v", err), err)
	}
	loc, err := conf.FollowUp.Location()
	if err != nil {
		logger.Fatal(fmt.Sprintf("loading time zone: %v", err), err)
	}
	return calendar.New(loc)
}

func newEmailService(conf *core.Config, logger core.Logger) core.EmailService {
	renderer, err := core.NewEmailRenderer(appfs.FS, appfs.EmailTemplatesDir, conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("parsing email templates: %v", err), err)
	}
	if conf.Debug {
		return emailsvc.NewConsoleService(renderer, logger, conf)
	}
	return emailsvc.NewSendgridService(renderer, logger, conf)
}

func newMetricsRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(prometheus.NewGoCollector())
	reg.MustRegister(prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))
	return reg
}

func newFollowUpService(
	repos followUpRepos,
	cal *calendar.Calendar,
	conf *core.Config,
	validate *validator.Validate,
	translator ut.Translator,
	mailSvc core.EmailService,
	reg *prometheus.Registry,
) (*followup.Service, error) {
	observer, err := metricsvc.NewFollowUpObserver(reg, metricsPrefix)
	if err != nil {
		return nil, errors.Wrap(err, "registering follow-up metrics")
	}
	return followup.NewService(repos.People, repos.Records, repos.Ignores, cal, conf, validate, translator, mailSvc, observer), nil
}

func newServer(
	conf *core.Config,
	logger core.Logger,
	followUpSvc *followup.Service,
	staffSvc *staff.Service,
	validate *validator.Validate,
	translator ut.Translator,
) *echoapi.Server {
	return echoapi.NewServer(conf, logger, &echoapi.Deps{
		FollowUpSvc: followUpSvc,
		StaffSvc:    staffSvc,
		Validate:    validate,
		Translator:  translator,
	})
}

// New returns a new dependency injection dig.Container
func New() *dig.Container {
	c := dig.New()

	must(c.Provide(core.NewConfig))
	must(c.Provide(newLogger))
	must(c.Provide(newDBLogger, dig.Name("dbLogger")))
	must(c.Provide(newValidator))
	must(c.Provide(newDB))
	must(c.Provide(newRepositories))
	must(c.Provide(newCalendar))
	must(c.Provide(newEmailService))
	must(c.Provide(newMetricsRegistry))
	must(c.Provide(newFollowUpService))
	must(c.Provide(staff.NewService))
	must(c.Provide(newServer))

	return c
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}
