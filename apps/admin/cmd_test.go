package main

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/minuum/qr-prayer-check/core"
	"github.com/minuum/qr-prayer-check/core/attendance"
	emailsvc "github.com/minuum/qr-prayer-check/services/email"
	testutil "github.com/minuum/qr-prayer-check/tests"
)

var env *testutil.Env

func setup(t *testing.T) (*commandLine, *bytes.Buffer) {
	t.Helper()
	env = testutil.NewEnv(testutil.KST(2026, time.March, 6, 21, 0))
	out := new(bytes.Buffer)
	return &commandLine{
		conf:          env.Conf,
		out:           out,
		attendanceSvc: env.AttendanceSvc,
		settingSvc:    env.SettingSvc,
		mailer:        env.Mailer,
	}, out
}

type cliTest struct {
	name       string
	args       []string // without program name
	wantErr    error
	wantErrStr string
	extra      interface{}
}

func checkErr(t *testing.T, tt cliTest, err error) {
	t.Helper()
	if err != nil {
		if tt.wantErr != nil {
			if err != tt.wantErr {
				t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
			}
		} else if tt.wantErrStr != "" {
			if err.Error() != tt.wantErrStr {
				t.Errorf("cli.run() error.Error() = %s, wantErrStr %s", err.Error(), tt.wantErrStr)
			}
		} else {
			t.Errorf("cli.run() unexpected error = %v", err)
		}
	} else if tt.wantErr != nil || tt.wantErrStr != "" {
		t.Errorf("cli.run() error = nil, want an error")
	}
}

func Test_commandLine_usage(t *testing.T) {
	cli, _ := setup(t)

	tests := []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)
		t.Run(tt.name, func(t *testing.T) {
			checkErr(t, tt, cli.run(args))
		})
	}
}

func Test_commandLine_migrate(t *testing.T) {
	cli, _ := setup(t)

	gooseRunFunc = func(db *sql.DB, command string, args ...string) error {
		switch command {
		case "up", "up-by-one", "down", "fix", "redo", "reset", "status", "version": // pass
		case "up-to":
			if len(args) == 0 {
				return fmt.Errorf("up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION")
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		case "create":
			if len(args) == 0 {
				return fmt.Errorf("create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]")
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
		{name: "create: no args", args: []string{"migrate", "create"}, wantErrStr: "create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]"},
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
		{name: "create", args: []string{"migrate", "create", "add_notes", "sql"}},
		{name: "fix", args: []string{"migrate", "fix"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)
		t.Run(tt.name, func(t *testing.T) {
			checkErr(t, tt, cli.run(args))
		})
	}
}

func Test_commandLine_hashPassword(t *testing.T) {
	type extra struct {
		pwd string
	}
	tests := []cliTest{
		{name: "no password", args: []string{"hashpassword"}, wantErr: errHelp},
		{name: "hash", args: []string{"hashpassword"}, extra: extra{pwd: "2026prayer"}},
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
			cli, out := setup(t)
			err := cli.run(args)
			checkErr(t, tt, err)
			if err != nil {
				return
			}
			lines := strings.Split(strings.TrimSpace(out.String()), "\n")
			hash := lines[len(lines)-1]
			if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(tt.extra.(extra).pwd)); err != nil {
				t.Errorf("printed hash %q does not match the password: %v", hash, err)
			}
		})
	}
}

func Test_commandLine_session(t *testing.T) {
	cli, out := setup(t)
	ctx := context.Background()

	tests := []struct {
		cliTest
		wantOut    string
		wantActive bool
	}{
		{cliTest: cliTest{name: "status", args: []string{"session"}}, wantOut: "check-in session: open\n", wantActive: true},
		{cliTest: cliTest{name: "off", args: []string{"session", "off"}}, wantOut: "check-in session: closed\n", wantActive: false},
		{cliTest: cliTest{name: "bad arg", args: []string{"session", "maybe"}, wantErr: errHelp}, wantActive: false},
		{cliTest: cliTest{name: "on", args: []string{"session", "on"}}, wantOut: "check-in session: open\n", wantActive: true},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)
		t.Run(tt.name, func(t *testing.T) {
			out.Reset()
			checkErr(t, tt.cliTest, cli.run(args))
			if tt.wantOut != "" && out.String() != tt.wantOut {
				t.Errorf("output = %q, want %q", out.String(), tt.wantOut)
			}
			st, err := env.SettingSvc.Get(ctx)
			if err != nil {
				t.Fatalf("SettingSvc.Get() failed: %v", err)
			}
			if st.SessionActive != tt.wantActive {
				t.Errorf("SessionActive = %v, want %v", st.SessionActive, tt.wantActive)
			}
		})
	}
}

func seedLogs(t *testing.T) {
	t.Helper()
	hong := testutil.CreateAttendee(t, env.AttendeeRepo, "홍길동", "1111")
	kim := testutil.CreateAttendee(t, env.AttendeeRepo, "김철수", "2222")
	for _, day := range []int{2, 3, 4} {
		testutil.CreateLog(t, env.AttendanceRepo, hong, testutil.KST(2026, time.March, day, 19, 30))
	}
	testutil.CreateLog(t, env.AttendanceRepo, kim, testutil.KST(2026, time.March, 4, 19, 40))
}

func Test_commandLine_report(t *testing.T) {
	cli, out := setup(t)
	seedLogs(t)

	tests := []cliTest{
		{name: "bad from", args: []string{"report", "-from", "03/02/2026"}, wantErrStr: "-from must be formatted as YYYY-MM-DD (got '03/02/2026')"},
		{name: "bad to", args: []string{"report", "-to", "lol"}, wantErrStr: "-to must be formatted as YYYY-MM-DD (got 'lol')"},
		{name: "to before from", args: []string{"report", "-from", "2026-03-04", "-to", "2026-03-02"}, wantErrStr: "-to must not be before -from"},
		{name: "unknown flag", args: []string{"report", "-lol"}, wantErr: errHelp},
		{name: "no recipients", args: []string{"report", "-email", "admins"}, wantErr: attendance.ErrNoRecipients},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)
		t.Run(tt.name, func(t *testing.T) {
			checkErr(t, tt, cli.run(args))
		})
	}

	t.Run("print", func(t *testing.T) {
		out.Reset()
		if err := cli.run([]string{"admin", "report", "-from", "2026-03-02", "-to", "2026-03-06"}); err != nil {
			t.Fatalf("cli.run() unexpected error = %v", err)
		}
		want := "period: 2026-03-02 ~ 2026-03-06\n" +
			"check-ins: 4, attendees: 2, session days: 3\n" +
			"  1. 홍길동 (1111) days=3 streak=3 best=3\n" +
			"  2. 김철수 (2222) days=1 streak=1 best=1\n"
		if out.String() != want {
			t.Errorf("output = %q, want %q", out.String(), want)
		}
	})

	t.Run("email", func(t *testing.T) {
		emailsvc.ResetSentMessages()
		out.Reset()
		if err := cli.run([]string{"admin", "report", "-top", "1", "-email", "pastor@church.kr, admin@church.kr"}); err != nil {
			t.Fatalf("cli.run() unexpected error = %v", err)
		}
		if !strings.HasSuffix(out.String(), "report sent\n") {
			t.Errorf("output = %q, want a confirmation", out.String())
		}
		sent := emailsvc.GetSentMessages()
		if len(sent) != 1 {
			t.Fatalf("sent %d messages, want 1", len(sent))
		}
		if len(sent[0].To) != 2 || sent[0].To[0].Address != "pastor@church.kr" {
			t.Errorf("recipients = %v", sent[0].To)
		}
		if !sent[0].HasAttachments() {
			t.Error("report sent without the CSV attachment")
		}
	})

	t.Run("bad email", func(t *testing.T) {
		err := cli.run([]string{"admin", "report", "-email", "lol"})
		if _, ok := err.(*core.ValidationError); !ok {
			t.Errorf("cli.run() error = %v, want a *core.ValidationError", err)
		}
	})
}

func Test_commandLine_report_waitsForMailer(t *testing.T) {
	cli, out := setup(t)
	seedLogs(t)

	mailer := emailsvc.NewConsoleService(env.Conf, env.Logger)
	cli.mailer = mailer
	cli.attendanceSvc = attendance.NewService(attendance.Options{
		Repo:        env.AttendanceRepo,
		Tx:          env.DB,
		AttendeeSvc: env.AttendeeSvc,
		SettingSvc:  env.SettingSvc,
		Mailer:      mailer,
		Logger:      env.Logger,
		Conf:        env.Conf,
		Clock:       env.Clock.Time,
	})
	emailsvc.ResetSentMessages()

	if err := cli.run([]string{"admin", "report", "-email", "pastor@church.kr"}); err != nil {
		t.Fatalf("cli.run() unexpected error = %v", err)
	}
	if !strings.HasSuffix(out.String(), "report sent\n") {
		t.Errorf("output = %q, want a confirmation", out.String())
	}
	// no sleeping: run must only return once the message is out
	if sent := emailsvc.GetSentMessages(); len(sent) != 1 {
		t.Fatalf("sent %d messages when run returned, want 1", len(sent))
	}
}

func Test_commandLine_clearHistory(t *testing.T) {
	cli, out := setup(t)
	seedLogs(t)

	checkErr(t, cliTest{wantErr: errHelp}, cli.run([]string{"admin", "clearhistory"}))

	if err := cli.run([]string{"admin", "clearhistory", "-yes"}); err != nil {
		t.Fatalf("cli.run() unexpected error = %v", err)
	}
	if !strings.HasSuffix(out.String(), "deleted 4 attendance logs\n") {
		t.Errorf("output = %q", out.String())
	}
	_, n, err := env.AttendanceSvc.QueryLogs(context.Background(), nil, nil, core.Page{})
	if err != nil {
		t.Fatalf("QueryLogs() failed: %v", err)
	}
	if n != 0 {
		t.Errorf("%d logs left, want 0", n)
	}
}
