package di

import (
	"context"
	"fmt"
	"log"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"go.uber.org/dig"
	"go.uber.org/zap"

	echoapi "github.com/trezcool/masomo-portal/apps/api/echo"
	"github.com/trezcool/masomo-portal/core"
	"github.com/trezcool/masomo-portal/core/classroom"
	"github.com/trezcool/masomo-portal/core/user"
	emailsvc "github.com/trezcool/masomo-portal/services/email"
	logsvc "github.com/trezcool/masomo-portal/services/logger"
	"github.com/trezcool/masomo-portal/storage/database"
	sqlxrepos "github.com/trezcool/masomo-portal/storage/database/sqlx"
	inmemdb "github.com/trezcool/masomo-portal/storage/inmem"
)

type DBLoggerParam struct {
	dig.In
	Logger core.Logger `name:"dbLogger"`
}

// DBCloser releases the storage connections. It is a no-op for the in-memory engine.
type DBCloser func() error

type repositories struct {
	dig.Out
	Users     user.Repository
	Classroom classroom.Repository
	Closer    DBCloser
}

type serverParams struct {
	dig.In
	Conf         *core.Config
	Logger       core.Logger
	Validate     *validator.Validate
	Translator   ut.Translator
	UserSvc      *user.Service
	ClassroomSvc *classroom.Service
}

func newZap(conf *core.Config) (*zap.Logger, error) {
	zl, err := logsvc.NewZap(conf)
	return zl, errors.Wrap(err, "building zap logger")
}

func newLogger(zl *zap.Logger, conf *core.Config) core.Logger {
	logger := logsvc.NewRollbarLogger(zl.Named("api"), conf)
	logger.Enable(!conf.Debug && conf.RollbarToken != "")
	return logger
}

func newDBLogger(zl *zap.Logger, conf *core.Config) core.Logger {
	return logsvc.NewRollbarLogger(zl.Named("db"), conf)
}

func newRepositories(conf *core.Config, loggerParam DBLoggerParam) (repositories, error) {
	logger := loggerParam.Logger

	switch conf.Database.Engine {
	case "inmem", "":
		logger.Info("using in-memory storage")
		db := inmemdb.Open()
		return repositories{
			Users:     inmemdb.NewUserRepository(db),
			Classroom: inmemdb.NewClassroomRepository(db),
			Closer:    func() error { return nil },
		}, nil

	case "postgres":
		ctx := context.Background()
		if err := database.CreateIfNotExist(ctx, conf); err != nil {
			return repositories{}, errors.Wrap(err, "creating database")
		}
		db, err := database.Open(ctx, conf)
		if err != nil {
			return repositories{}, errors.Wrap(err, "opening database")
		}
		if err = database.Migrate(db.DB, "up"); err != nil {
			_ = db.Close()
			return repositories{}, errors.Wrap(err, "migrating database")
		}
		logger.Info(fmt.Sprintf("connected to postgres at %s", conf.Database.Address()))
		return repositories{
			Users:     sqlxrepos.NewUserRepository(db),
			Classroom: sqlxrepos.NewClassroomRepository(db),
			Closer:    db.Close,
		}, nil

	default:
		return repositories{}, errors.Errorf("unknown database engine %q", conf.Database.Engine)
	}
}

func newValidator() (*validator.Validate, ut.Translator) {
	return core.NewValidator(user.RegisterValidators)
}

func newUserGetter(svc *user.Service) classroom.UserGetter {
	return svc
}

func newServer(p serverParams) *echoapi.Server {
	return echoapi.NewServer(&echoapi.Options{
		Conf:         p.Conf,
		Logger:       p.Logger,
		Validate:     p.Validate,
		Translator:   p.Translator,
		UserSvc:      p.UserSvc,
		ClassroomSvc: p.ClassroomSvc,
	})
}

// New returns a new dependency injection dig.Container.
// conf is provided as is when not nil, otherwise it is read from the environment.
func New(conf *core.Config) *dig.Container {
	c := dig.New()

	if conf != nil {
		must(c.Provide(func() *core.Config { return conf }))
	} else {
		must(c.Provide(core.NewConfig))
	}
	must(c.Provide(newZap))
	must(c.Provide(newLogger))
	must(c.Provide(newDBLogger, dig.Name("dbLogger")))
	must(c.Provide(newRepositories))
	must(c.Provide(emailsvc.New))
	must(c.Provide(newValidator))
	must(c.Provide(user.NewService))
	must(c.Provide(newUserGetter))
	must(c.Provide(classroom.NewService))
	must(c.Provide(newServer))

	return c
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}
