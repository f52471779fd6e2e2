// Package testutil wires the services on the in-memory database and creates fixtures.
package testutil

import (
	"context"
	"io"
	"log"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/minuum/qr-prayer-check/core"
	"github.com/minuum/qr-prayer-check/core/attendance"
	"github.com/minuum/qr-prayer-check/core/attendee"
	"github.com/minuum/qr-prayer-check/core/setting"
	emailsvc "github.com/minuum/qr-prayer-check/services/email"
	logsvc "github.com/minuum/qr-prayer-check/services/logger"
	inmemdb "github.com/minuum/qr-prayer-check/storage/database/inmem"
)

// Clock is a settable time source.
type Clock struct {
	Now time.Time
}

func (c *Clock) Time() time.Time { return c.Now }

func (c *Clock) Add(d time.Duration) { c.Now = c.Now.Add(d) }

// Env bundles the services wired on a fresh in-memory database.
type Env struct {
	Conf   *core.Config
	DB     *inmemdb.DB
	Clock  *Clock
	Logger core.Logger
	Mailer core.EmailService

	AttendeeRepo   attendee.Repository
	AttendanceRepo attendance.Repository
	SettingRepo    setting.Repository

	AttendeeSvc   *attendee.Service
	AttendanceSvc *attendance.Service
	SettingSvc    *setting.Service
}

// NewEnv wires an Env. The clock starts at now.
func NewEnv(now time.Time) *Env {
	conf := core.NewTestConfig()
	db := inmemdb.Open()
	env := &Env{
		Conf:           conf,
		DB:             db,
		Clock:          &Clock{Now: now},
		Logger:         logsvc.NewRollbarLogger(log.New(io.Discard, "", 0), conf),
		Mailer:         emailsvc.NewConsoleServiceMock(conf),
		AttendeeRepo:   inmemdb.NewAttendeeRepository(db),
		AttendanceRepo: inmemdb.NewAttendanceRepository(db),
		SettingRepo:    inmemdb.NewSettingRepository(db),
	}
	env.AttendeeSvc = attendee.NewService(env.AttendeeRepo, env.Clock.Time)
	env.SettingSvc = setting.NewService(env.SettingRepo, conf)
	env.AttendanceSvc = attendance.NewService(attendance.Options{
		Repo:        env.AttendanceRepo,
		Tx:          db,
		AttendeeSvc: env.AttendeeSvc,
		SettingSvc:  env.SettingSvc,
		Mailer:      env.Mailer,
		Logger:      env.Logger,
		Conf:        conf,
		Clock:       env.Clock.Time,
	})
	return env
}

func CreateAttendee(t *testing.T, repo attendee.Repository, name, phone string, createdAt ...time.Time) attendee.Attendee {
	t.Helper()
	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	att, err := repo.Upsert(context.Background(), attendee.Attendee{Name: name, Phone: phone, CreatedAt: tstamp, UpdatedAt: tstamp})
	if err != nil {
		t.Fatalf("CreateAttendee() failed: %v", err)
	}
	return att
}

// CreateLog inserts a self check-in of att at createdAt, bypassing every gate.
func CreateLog(t *testing.T, repo attendance.Repository, att attendee.Attendee, createdAt time.Time) attendance.Log {
	t.Helper()
	log, err := repo.CreateLog(context.Background(), attendance.Log{
		AttendeeID: null.StringFrom(att.ID),
		Name:       att.Name,
		Phone:      att.Phone,
		Source:     attendance.SourceSelf,
		CreatedAt:  createdAt.UTC(),
	})
	if err != nil {
		t.Fatalf("CreateLog() failed: %v", err)
	}
	return log
}

// KST returns the instant of the given Seoul wall clock time.
func KST(year int, month time.Month, day, hour, min int) time.Time {
	return time.Date(year, month, day, hour, min, 0, 0, time.FixedZone("KST", 9*60*60))
}

func Ptr[T any](v T) *T { return &v }

// ErrorField returns the first invalid field of a validation error, or "" for any other error.
func ErrorField(err error) string {
	switch e := errors.Cause(err).(type) {
	case validator.ValidationErrors:
		if len(e) > 0 {
			return e[0].Field()
		}
	case *core.ValidationError:
		if len(e.Fields) > 0 {
			return e.Fields[0].Field
		}
	}
	return ""
}
