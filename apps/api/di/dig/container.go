package dig_container

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/dig"

	echoapi "github.com/trezcool/campus/apps/api/echo"
	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/core/access"
	"github.com/trezcool/campus/core/attendance"
	"github.com/trezcool/campus/core/catalog"
	"github.com/trezcool/campus/core/complaint"
	"github.com/trezcool/campus/core/user"
	cachesvc "github.com/trezcool/campus/services/cache"
	emailsvc "github.com/trezcool/campus/services/email"
	logsvc "github.com/trezcool/campus/services/logger"
	"github.com/trezcool/campus/storage/database"
	"github.com/trezcool/campus/storage/database/mongodb"
)

type DBLoggerParam struct {
	dig.In
	Logger core.Logger `name:"dbLogger"`
}

// ServerParams are the dependencies of the API server.
type ServerParams struct {
	dig.In

	Conf       *core.Config
	Logger     core.Logger
	Validate   *validator.Validate
	Translator ut.Translator
	Authorizer *access.Authorizer
	Cache      core.Cache
	Shutdown   chan os.Signal

	UserSvc       *user.Service
	ComplaintSvc  *complaint.Service
	AttendanceSvc *attendance.Service
	Catalog       echoapi.CatalogServices
}

func newLogger(conf *core.Config) core.Logger {
	return logsvc.NewRollbarLogger(logsvc.NewStdLogger(conf), conf)
}

func newDBLogger(conf *core.Config) core.Logger {
	std := logsvc.NewStdLogger(conf)
	std.SetReportCaller(true)
	return logsvc.NewRollbarLogger(std, conf)
}

func newDB(conf *core.Config, loggerParam DBLoggerParam) (*mongo.Client, *mongo.Database) {
	setUp := func() (*mongo.Client, *mongo.Database, error) {
		ctx, cancel := context.WithTimeout(context.Background(), conf.Mongo.Timeout)
		defer cancel()

		client, db, err := mongodb.Open(ctx, conf.Mongo)
		if err != nil {
			return nil, nil, err
		}
		if err := mongodb.EnsureIndexes(ctx, db); err != nil {
			_ = client.Disconnect(ctx)
			return nil, nil, err
		}
		return client, db, nil
	}

	client, db, err := setUp()
	if err != nil {
		loggerParam.Logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	return client, db
}

// newCache uses Redis when configured; a single-instance deployment gets an in-process cache.
func newCache(conf *core.Config, logger core.Logger) core.Cache {
	if conf.Redis.URL == "" {
		return cachesvc.NewMemoryCache(conf.Redis.CacheTTL, conf.Redis.CacheTTL)
	}
	c, err := cachesvc.NewRedisCache(context.Background(), conf.Redis)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up cache: %v", err), err)
	}
	return c
}

func newEmailService(conf *core.Config, logger core.Logger) core.EmailService {
	if conf.Debug {
		return emailsvc.NewConsoleService(conf, logger)
	}
	return emailsvc.NewSendgridService(conf, logger)
}

func newTranslator() ut.Translator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	return translator
}

func newValidator(translator ut.Translator) *validator.Validate {
	validate := validator.New()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	attendance.InitValidators(validate, translator)
	catalog.InitValidators(validate, translator)
	return validate
}

func newAuthorizer() *access.Authorizer {
	return access.NewAuthorizer(access.DefaultPolicy)
}

func newShutdownChannel() chan os.Signal {
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
	return shutdown
}

func newUserService(repos database.Repositories, mailSvc core.EmailService, conf *core.Config) *user.Service {
	return user.NewService(repos.Accounts, repos.Profiles, mailSvc, conf)
}

func newComplaintService(repos database.Repositories) *complaint.Service {
	return complaint.NewService(repos.Complaints)
}

func newAttendanceService(repos database.Repositories) *attendance.Service {
	return attendance.NewService(repos.Attendance)
}

func newServer(p ServerParams) *echoapi.Server {
	return echoapi.NewServer(p.Conf.Server.Address, p.Shutdown, &echoapi.Deps{
		Conf:          p.Conf,
		Logger:        p.Logger,
		Validate:      p.Validate,
		Translator:    p.Translator,
		Authorizer:    p.Authorizer,
		Cache:         p.Cache,
		UserSvc:       p.UserSvc,
		ComplaintSvc:  p.ComplaintSvc,
		AttendanceSvc: p.AttendanceSvc,
		Catalog:       p.Catalog,
	})
}

// New returns a new dependency injection dig.Container
func New() *dig.Container {
	c := dig.New()

	must(c.Provide(core.NewConfig))
	must(c.Provide(newLogger))
	must(c.Provide(newDBLogger, dig.Name("dbLogger")))
	must(c.Provide(newDB))
	must(c.Provide(mongodb.NewRepositories))
	must(c.Provide(newCache))
	must(c.Provide(newEmailService))
	must(c.Provide(newTranslator))
	must(c.Provide(newValidator))
	must(c.Provide(newAuthorizer))
	must(c.Provide(newShutdownChannel))
	must(c.Provide(newUserService))
	must(c.Provide(newComplaintService))
	must(c.Provide(newAttendanceService))
	must(c.Provide(echoapi.NewCatalogServices))
	must(c.Provide(newServer))

	return c
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}
