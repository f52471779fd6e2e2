package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
	"syscall"
	"time"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/term"

	"github.com/minuum/qr-prayer-check/core"
	"github.com/minuum/qr-prayer-check/core/attendance"
	"github.com/minuum/qr-prayer-check/core/setting"
	"github.com/minuum/qr-prayer-check/storage/database"
)

var (
	readPasswordFunc = term.ReadPassword      // mockable
	gooseRunFunc     = database.RunMigrations // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	db            *sql.DB
	conf          *core.Config
	out           io.Writer
	attendanceSvc *attendance.Service
	settingSvc    *setting.Service
	mailer        core.EmailService
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  migrate COMMAND [ARGS] - run a goose command (up, down, status, version, redo...)")
	fmt.Fprintln(cli.out, "  hashpassword - print the bcrypt hash of the admin password (prompted)")
	fmt.Fprintln(cli.out, "  session [on|off] - show or toggle the check-in session")
	fmt.Fprintln(cli.out, "  report [-from YYYY-MM-DD] [-to YYYY-MM-DD] [-top N] [-email a@b.c,...] - print (or email) the attendance report")
	fmt.Fprintln(cli.out, "  clearhistory -yes - delete every attendance log")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	reportCmd := flag.NewFlagSet("report", flag.ContinueOnError)
	reportCmd.SetOutput(cli.out)
	reportFrom := reportCmd.String("from", "", "First day of the period (YYYY-MM-DD). Defaults to the last 90 days.")
	reportTo := reportCmd.String("to", "", "Last day of the period (YYYY-MM-DD).")
	reportTop := reportCmd.Int("top", 10, "Number of attendees ranked (0 for all).")
	reportEmail := reportCmd.String("email", "", "Comma separated recipients. The configured admin emails are used with -email=admins.")

	clearCmd := flag.NewFlagSet("clearhistory", flag.ContinueOnError)
	clearCmd.SetOutput(cli.out)
	clearYes := clearCmd.Bool("yes", false, "Confirm the deletion.")

	ctx := context.Background()

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])
	case "hashpassword":
		fmt.Fprint(cli.out, "Enter password:")
		pwd, err := readPasswordFunc(int(syscall.Stdin))
		fmt.Fprintln(cli.out)
		if err != nil {
			return err
		}
		if len(pwd) == 0 {
			cli.printUsage()
			return errHelp
		}
		return cli.hashPassword(pwd)
	case "session":
		return cli.session(ctx, args[2:])
	case "report":
		if err := reportCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		return cli.report(ctx, *reportFrom, *reportTo, *reportTop, *reportEmail)
	case "clearhistory":
		if err := clearCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		if !*clearYes {
			clearCmd.Usage()
			return errHelp
		}
		return cli.clearHistory(ctx)
	default:
		cli.printUsage()
		return errHelp
	}
}

func (cli *commandLine) hashPassword(pwd []byte) error {
	hash, err := bcrypt.GenerateFromPassword(pwd, bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	fmt.Fprintln(cli.out, string(hash))
	return nil
}

func (cli *commandLine) session(ctx context.Context, args []string) error {
	var (
		st  setting.Settings
		err error
	)
	switch {
	case len(args) == 0:
		st, err = cli.settingSvc.Get(ctx)
	case args[0] == "on":
		st, err = cli.settingSvc.SetSessionActive(ctx, true)
	case args[0] == "off":
		st, err = cli.settingSvc.SetSessionActive(ctx, false)
	default:
		cli.printUsage()
		return errHelp
	}
	if err != nil {
		return err
	}

	state := "closed"
	if st.SessionActive {
		state = "open"
	}
	fmt.Fprintf(cli.out, "check-in session: %s\n", state)
	return nil
}

func (cli *commandLine) clearHistory(ctx context.Context) error {
	n, err := cli.attendanceSvc.ClearHistory(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "deleted %d attendance logs\n", n)
	return nil
}

func (cli *commandLine) report(ctx context.Context, fromStr, toStr string, top int, emails string) error {
	loc := cli.conf.Location()
	var from, to time.Time
	var err error
	if fromStr != "" {
		if from, err = attendance.ParseDate(fromStr, loc); err != nil {
			return fmt.Errorf("-from must be formatted as YYYY-MM-DD (got '%s')", fromStr)
		}
	}
	if toStr != "" {
		if to, err = attendance.ParseDate(toStr, loc); err != nil {
			return fmt.Errorf("-to must be formatted as YYYY-MM-DD (got '%s')", toStr)
		}
	}
	if from.IsZero() && to.IsZero() {
		from, to = cli.attendanceSvc.DefaultPeriod()
	}
	if !from.IsZero() && !to.IsZero() && to.Before(from) {
		return fmt.Errorf("-to must not be before -from")
	}

	rep, err := cli.attendanceSvc.BuildReport(ctx, from, to, top)
	if err != nil {
		return err
	}
	cli.printReport(rep)

	if emails == "" {
		return nil
	}
	var recipients []string
	if emails != "admins" {
		for _, e := range strings.Split(emails, ",") {
			if e = strings.TrimSpace(e); e != "" {
				recipients = append(recipients, e)
			}
		}
	}
	if err := cli.attendanceSvc.SendReport(ctx, rep, recipients...); err != nil {
		return err
	}
	// the mailer sends in the background, the process must not exit before it is done
	cli.mailer.Wait()
	fmt.Fprintln(cli.out, "report sent")
	return nil
}

func (cli *commandLine) printReport(rep attendance.Report) {
	fmt.Fprintf(cli.out, "period: %s\n", rep.Period)
	fmt.Fprintf(cli.out, "check-ins: %d, attendees: %d, session days: %d\n", rep.TotalCheckIns, rep.UniqueAttendees, rep.SessionDays)
	for _, r := range rep.Rankings {
		fmt.Fprintf(cli.out, "%3d. %s (%s) days=%d streak=%d best=%d\n", r.Rank, r.Name, r.Phone, r.Days, r.CurrentStreak, r.LongestStreak)
	}
}
