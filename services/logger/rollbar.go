package logsvc

import (
	"log"

	"github.com/rollbar/rollbar-go"
	"github.com/rollbar/rollbar-go/errors"

	"github.com/minuum/qr-prayer-check/core"
)

// RollbarLogger mirrors every entry to std and reports it to rollbar when a
// token is configured outside debug and test runs.
type RollbarLogger struct {
	std *log.Logger
}

var _ core.Logger = (*RollbarLogger)(nil)

func NewRollbarLogger(std *log.Logger, conf *core.Config) *RollbarLogger {
	rollbar.SetToken(conf.RollbarToken)
	rollbar.SetEnvironment(conf.Env)
	rollbar.SetServerHost(conf.Server.Host)
	rollbar.SetCodeVersion(conf.Build)
	rollbar.SetStackTracer(errors.StackTracer)
	rollbar.SetEnabled(conf.RollbarToken != "" && !conf.Debug && !conf.TestMode)
	return &RollbarLogger{std: std}
}

// extract pulls the acting admin out of args. The first Identity wins and
// none of them reach the rollbar payload.
func extract(args []interface{}) (*core.Identity, []interface{}) {
	var actor *core.Identity
	rest := make([]interface{}, 0, len(args))
	for _, arg := range args {
		id, ok := arg.(core.Identity)
		switch {
		case !ok:
			rest = append(rest, arg)
		case actor == nil:
			actor = &id
		}
	}
	return actor, rest
}

func (l *RollbarLogger) log(level, msg string, args []interface{}) {
	actor, rest := extract(args)
	if actor != nil {
		rollbar.SetPerson(actor.ID, actor.Username, actor.Email)
	} else {
		rollbar.ClearPerson()
	}
	rollbar.Log(level, append([]interface{}{msg}, rest...)...)

	l.std.Println(msg)
	for _, arg := range args {
		l.std.Printf("%+v\n", arg)
	}
}

func (l *RollbarLogger) Debug(msg string, args ...interface{}) { l.log(rollbar.DEBUG, msg, args) }
func (l *RollbarLogger) Info(msg string, args ...interface{})  { l.log(rollbar.INFO, msg, args) }
func (l *RollbarLogger) Warn(msg string, args ...interface{})  { l.log(rollbar.WARN, msg, args) }
func (l *RollbarLogger) Error(msg string, args ...interface{}) { l.log(rollbar.ERR, msg, args) }

// Fatal flushes pending rollbar items before exiting.
func (l *RollbarLogger) Fatal(msg string, args ...interface{}) {
	l.log(rollbar.CRIT, msg, args)
	rollbar.Wait()
	l.std.Fatal(msg)
}
