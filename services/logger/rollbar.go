package logsvc

import (
	"context"
	"os"
	"strings"

	"github.com/rollbar/rollbar-go"
	"github.com/rollbar/rollbar-go/errors"
	"github.com/sirupsen/logrus"

	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/core/user"
)

// NewStdLogger returns the local sink: text logs in debug, JSON otherwise.
func NewStdLogger(conf *core.Config) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stdout)

	level, err := logrus.ParseLevel(conf.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
		if conf.Debug {
			level = logrus.DebugLevel
		}
	}
	l.SetLevel(level)

	if strings.EqualFold(conf.LogFormat, "json") || (conf.LogFormat == "" && !conf.Debug) {
		l.SetFormatter(&logrus.JSONFormatter{})
	}
	return l
}

// RollbarLogger logs locally through logrus and forwards to Rollbar when enabled.
type RollbarLogger struct {
	std *logrus.Logger
}

var _ core.Logger = (*RollbarLogger)(nil)

func NewRollbarLogger(std *logrus.Logger, conf *core.Config) *RollbarLogger {
	rollbar.SetToken(conf.RollbarToken)
	rollbar.SetEnvironment(conf.Env)
	rollbar.SetServerHost(conf.Server.Address)
	rollbar.SetCodeVersion(conf.Build)
	rollbar.SetStackTracer(errors.StackTracer)
	rollbar.SetEnabled(conf.RollbarToken != "" && !conf.Debug && !conf.TestMode)
	return &RollbarLogger{std: std}
}

func (l *RollbarLogger) Enable(enabled bool) {
	rollbar.SetEnabled(enabled)
}

// expected args: error, map[string]interface{}, user.Profile
func (l *RollbarLogger) prepare(msg string, args []interface{}) ([]interface{}, *logrus.Entry) {
	entry := logrus.NewEntry(l.std)
	rbArgs := make([]interface{}, 0, len(args)+1)
	rbArgs = append(rbArgs, msg)
	var profileSet bool
	for _, arg := range args {
		switch val := arg.(type) {
		case user.Profile:
			if profileSet { // only one requester
				continue
			}
			profileSet = true
			entry = entry.WithFields(logrus.Fields{"profileId": val.ID.Hex(), "role": val.Role})
			rbArgs = append(rbArgs, rollbar.NewPersonContext(context.Background(), &rollbar.Person{
				Id:       val.ID.Hex(),
				Username: val.Name,
				Email:    val.Email,
			}))
		case error:
			entry = entry.WithError(val)
			rbArgs = append(rbArgs, val)
		case map[string]interface{}:
			entry = entry.WithFields(val)
			rbArgs = append(rbArgs, val)
		default:
			entry = entry.WithField("extra", val)
		}
	}
	return rbArgs, entry
}

func (l *RollbarLogger) Debug(msg string, args ...interface{}) {
	rbArgs, entry := l.prepare(msg, args)
	rollbar.Debug(rbArgs...)
	entry.Debug(msg)
}

func (l *RollbarLogger) Info(msg string, args ...interface{}) {
	rbArgs, entry := l.prepare(msg, args)
	rollbar.Info(rbArgs...)
	entry.Info(msg)
}

func (l *RollbarLogger) Warn(msg string, args ...interface{}) {
	rbArgs, entry := l.prepare(msg, args)
	rollbar.Warning(rbArgs...)
	entry.Warn(msg)
}

func (l *RollbarLogger) Error(msg string, args ...interface{}) {
	rbArgs, entry := l.prepare(msg, args)
	rollbar.Error(rbArgs...)
	entry.Error(msg)
}

func (l *RollbarLogger) Fatal(msg string, args ...interface{}) {
	rbArgs, entry := l.prepare(msg, args)
	rollbar.Critical(rbArgs...)
	rollbar.Wait()
	entry.Fatal(msg)
}
