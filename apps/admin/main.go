package main

import (
	"context"
	"os"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/core/attendance"
	"github.com/trezcool/campus/core/catalog"
	"github.com/trezcool/campus/core/user"
	emailsvc "github.com/trezcool/campus/services/email"
	logsvc "github.com/trezcool/campus/services/logger"
	"github.com/trezcool/campus/storage/database/mongodb"
)

var logger *logrus.Entry

func main() {
	conf := core.NewConfig()
	logger = logsvc.NewStdLogger(conf).WithField("app", "admin")

	// set up DB
	ctx, cancel := context.WithTimeout(context.Background(), conf.Mongo.Timeout)
	client, db, err := mongodb.Open(ctx, conf.Mongo)
	cancel()
	errAndDie(err)
	defer func() { _ = client.Disconnect(context.Background()) }()

	// admins are created verified: no email is ever sent from here
	mailSvc := emailsvc.NewConsoleService(conf, logsvc.NewRollbarLogger(logsvc.NewStdLogger(conf), conf))
	repos := mongodb.NewRepositories(db)
	validate, translator := newValidator()

	// start CLI
	cli := commandLine{
		db:         db,
		usrSvc:     user.NewService(repos.Accounts, repos.Profiles, mailSvc, conf),
		validate:   validate,
		translator: translator,
	}
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			logger.Errorf("error: %s", err)
		}
		_ = client.Disconnect(context.Background())
		os.Exit(1)
	}
}

func newValidator() (*validator.Validate, ut.Translator) {
	_en := en.New()
	translator, _ := ut.New(_en, _en).GetTranslator("en")
	validate := validator.New()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	attendance.InitValidators(validate, translator)
	catalog.InitValidators(validate, translator)
	return validate, translator
}

func errAndDie(err error) {
	if err != nil {
		logger.Fatal(err)
	}
}
