package main

import (
	"context"
	"expvar"
	"fmt"
	"log"
	"net/http"
	"os"
	_ "time/tzdata" // Asia/Seoul without a system tz database

	"github.com/jmoiron/sqlx"

	echoapi "github.com/minuum/qr-prayer-check/apps/api/echo"
	"github.com/minuum/qr-prayer-check/core"
	"github.com/minuum/qr-prayer-check/core/attendance"
	"github.com/minuum/qr-prayer-check/core/attendee"
	"github.com/minuum/qr-prayer-check/core/setting"
	emailsvc "github.com/minuum/qr-prayer-check/services/email"
	logsvc "github.com/minuum/qr-prayer-check/services/logger"
	metricsvc "github.com/minuum/qr-prayer-check/services/metrics"
	qrsvc "github.com/minuum/qr-prayer-check/services/qrcode"
	"github.com/minuum/qr-prayer-check/storage/database"
	sqlxrepos "github.com/minuum/qr-prayer-check/storage/database/sqlx"
)

func main() {
	// =========================================================================
	// Set up Dependencies

	conf := core.NewConfig()

	// set up loggers
	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	dbLogger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)

	// set up DB
	db, err := setUpDB(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	defer func() {
		if err = db.Close(); err != nil {
			dbLogger.Fatal("Failed to close", err)
		}
	}()

	// set up services
	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(conf, logger)
	} else {
		mailSvc = emailsvc.NewSendgridService(conf, logger)
	}
	attendeeSvc := attendee.NewService(sqlxrepos.NewAttendeeRepository(db), nil)
	settingSvc := setting.NewService(sqlxrepos.NewSettingRepository(db), conf)
	attendanceSvc := attendance.NewService(attendance.Options{
		Repo:        sqlxrepos.NewAttendanceRepository(db),
		Tx:          database.NewTransactor(db),
		AttendeeSvc: attendeeSvc,
		SettingSvc:  settingSvc,
		Mailer:      mailSvc,
		Logger:      logger,
		Conf:        conf,
	})
	metrics := metricsvc.New("prayercheck")

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : %s", conf))
	defer logger.Info("Application stopped")

	// =========================================================================
	// Start Debug Service
	//
	// /debug/vars - Added to the default mux by importing the expvar package.
	// /metrics - Prometheus scrape endpoint.

	// Expose important info under /debug/vars.
	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)
	http.Handle("/metrics", metrics.Handler())

	go func() {
		if err := http.ListenAndServe(conf.Server.DebugAddress, http.DefaultServeMux); err != nil {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()

	// =========================================================================
	// Start API Service

	server := echoapi.NewServer(echoapi.Options{
		Conf:          conf,
		Logger:        logger,
		Metrics:       metrics,
		QR:            qrsvc.NewEncoder(),
		AttendeeSvc:   attendeeSvc,
		AttendanceSvc: attendanceSvc,
		SettingSvc:    settingSvc,
	})

	go server.Start()

	// =========================================================================
	// Shutdown

	select {
	case err = <-server.Errors():
		logger.Fatal(fmt.Sprintf("server error: %v", err), err)

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		// asking listener to shutdown and shed load
		if err = server.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err = server.Close(); err != nil {
				logger.Fatal(fmt.Sprintf("could not force stop server: %v", err), err)
			}
		}
		// let queued report emails go out
		mailSvc.Wait()
	}
}

func setUpDB(conf *core.Config) (*sqlx.DB, error) {
	if err := database.CreateIfNotExist(conf); err != nil {
		return nil, err
	}

	db, err := database.Open(conf)
	if err != nil {
		return nil, err
	}

	if err = database.Migrate(db.DB); err != nil {
		return nil, err
	}
	return db, nil
}
