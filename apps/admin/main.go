package main

import (
	"log"
	"os"
	_ "time/tzdata" // Asia/Seoul without a system tz database

	"github.com/minuum/qr-prayer-check/core"
	"github.com/minuum/qr-prayer-check/core/attendance"
	"github.com/minuum/qr-prayer-check/core/attendee"
	"github.com/minuum/qr-prayer-check/core/setting"
	emailsvc "github.com/minuum/qr-prayer-check/services/email"
	logsvc "github.com/minuum/qr-prayer-check/services/logger"
	"github.com/minuum/qr-prayer-check/storage/database"
	sqlxrepos "github.com/minuum/qr-prayer-check/storage/database/sqlx"
)

var logger core.Logger

func main() {
	defer os.Exit(0)

	conf := core.NewConfig()
	logger = logsvc.NewRollbarLogger(log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile), conf)

	// hashpassword needs no database
	if len(os.Args) > 1 && os.Args[1] == "hashpassword" {
		cli := commandLine{conf: conf, out: os.Stdout}
		exit(cli.run(os.Args))
		return
	}

	// set up DB
	db, err := database.Open(conf)
	errAndDie(err)
	defer db.Close()

	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(conf, logger)
	} else {
		mailSvc = emailsvc.NewSendgridService(conf, logger)
	}
	attendeeSvc := attendee.NewService(sqlxrepos.NewAttendeeRepository(db), nil)
	settingSvc := setting.NewService(sqlxrepos.NewSettingRepository(db), conf)

	// start CLI
	cli := commandLine{
		db:   db.DB,
		conf: conf,
		out:  os.Stdout,
		attendanceSvc: attendance.NewService(attendance.Options{
			Repo:        sqlxrepos.NewAttendanceRepository(db),
			Tx:          database.NewTransactor(db),
			AttendeeSvc: attendeeSvc,
			SettingSvc:  settingSvc,
			Mailer:      mailSvc,
			Logger:      logger,
			Conf:        conf,
		}),
		settingSvc: settingSvc,
		mailer:     mailSvc,
	}
	exit(cli.run(os.Args))
}

func exit(err error) {
	if err != nil {
		if err != errHelp {
			logger.Error("command failed", err)
		}
		os.Exit(1)
	}
}

func errAndDie(err error) {
	if err != nil {
		logger.Fatal("setting up", err)
	}
}
