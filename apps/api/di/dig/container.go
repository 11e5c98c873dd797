package dig_container

import (
	"fmt"
	"log"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"go.uber.org/dig"
	"go.uber.org/zap"

	echoapi "github.com/estetika/academy/apps/api/echo"
	"github.com/estetika/academy/core"
	"github.com/estetika/academy/core/billing"
	"github.com/estetika/academy/core/client"
	"github.com/estetika/academy/core/learning"
	"github.com/estetika/academy/core/program"
	"github.com/estetika/academy/core/support"
	"github.com/estetika/academy/core/user"
	emailsvc "github.com/estetika/academy/services/email"
	logsvc "github.com/estetika/academy/services/logger"
	"github.com/estetika/academy/storage/database"
	sqlxrepos "github.com/estetika/academy/storage/database/sqlx"
)

type DBLoggerParam struct {
	dig.In
	Logger core.Logger `name:"dbLogger"`
}

type serverParams struct {
	dig.In

	Conf        *core.Config
	Logger      core.Logger
	UserSvc     user.Service
	ProgramSvc  *program.Service
	LearningSvc *learning.Service
	SupportSvc  *support.Service
	BillingSvc  *billing.Service
	ClientSvc   *client.Service
	Validate    *validator.Validate
	Translator  ut.Translator
}

func newZapLogger(conf *core.Config) *zap.Logger {
	zl, err := logsvc.NewZapLogger(conf)
	if err != nil {
		log.Fatal(errors.Wrap(err, "building zap logger").Error())
	}
	return zl
}

func newLogger(conf *core.Config, zl *zap.Logger) core.Logger {
	logger := logsvc.NewRollbarLogger(zl.Named("api"), conf)
	logger.Enable(!conf.Debug)
	return logger
}

func newDBLogger(conf *core.Config, zl *zap.Logger) core.Logger {
	logger := logsvc.NewRollbarLogger(zl.Named("db"), conf)
	logger.Enable(!conf.Debug)
	return logger
}

func newDB(conf *core.Config, loggerParam DBLoggerParam) (*sqlx.DB, core.Transactor) {
	setUp := func() (*sqlx.DB, error) {
		if err := database.CreateIfNotExist(conf); err != nil {
			return nil, err
		}

		db, err := database.Open(conf)
		if err != nil {
			return nil, err
		}

		if err = database.Migrate(db.DB, conf.Database.Engine); err != nil {
			return nil, err
		}
		return db, nil
	}

	db, err := setUp()
	if err != nil {
		loggerParam.Logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	return db, core.SQLTransactor{DB: db}
}

func newEmailService(conf *core.Config, logger core.Logger) core.EmailService {
	if conf.Debug {
		return emailsvc.NewConsoleService(logger, conf)
	}
	return emailsvc.NewSendgridService(logger, conf)
}

func newTranslator() ut.Translator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	return translator
}

func newLearningService(
	db core.Transactor,
	repo learning.Repository,
	programs *program.Service,
	users user.Service,
	mailSvc core.EmailService,
	logger core.Logger,
	conf *core.Config,
) *learning.Service {
	return learning.NewService(db, repo, programs, users, mailSvc, logger, conf)
}

func newSupportService(
	repo support.Repository,
	users user.Service,
	mailSvc core.EmailService,
	logger core.Logger,
	conf *core.Config,
) *support.Service {
	return support.NewService(repo, users, mailSvc, logger, conf)
}

func newBillingService(repo billing.Repository, users user.Service, programs *program.Service, logger core.Logger) *billing.Service {
	return billing.NewService(repo, users, programs, logger)
}

func newClientService(repo client.Repository, users user.Service, logger core.Logger) *client.Service {
	return client.NewService(repo, users, logger)
}

func newServer(p serverParams) *echoapi.Server {
	return echoapi.NewServer(echoapi.ServerDeps{
		Conf:        p.Conf,
		Logger:      p.Logger,
		UserSvc:     p.UserSvc,
		ProgramSvc:  p.ProgramSvc,
		LearningSvc: p.LearningSvc,
		SupportSvc:  p.SupportSvc,
		BillingSvc:  p.BillingSvc,
		ClientSvc:   p.ClientSvc,
		Validate:    p.Validate,
		Translator:  p.Translator,
	})
}

// New returns a new dependency injection dig.Container
func New() *dig.Container {
	c := dig.New()

	must(c.Provide(core.NewConfig))
	must(c.Provide(newZapLogger))
	must(c.Provide(newLogger))
	must(c.Provide(newDBLogger, dig.Name("dbLogger")))
	must(c.Provide(newDB))
	must(c.Provide(newEmailService))
	must(c.Provide(sqlxrepos.NewUserRepository))
	must(c.Provide(sqlxrepos.NewProgramRepository))
	must(c.Provide(sqlxrepos.NewLearningRepository))
	must(c.Provide(sqlxrepos.NewSupportRepository))
	must(c.Provide(sqlxrepos.NewBillingRepository))
	must(c.Provide(sqlxrepos.NewClientRepository))
	must(c.Provide(validator.New))
	must(c.Provide(newTranslator))
	must(c.Provide(user.NewService))
	must(c.Provide(program.NewService))
	must(c.Provide(newLearningService))
	must(c.Provide(newSupportService))
	must(c.Provide(newBillingService))
	must(c.Provide(newClientService))
	must(c.Provide(newServer))

	return c
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}
