package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/jmoiron/sqlx"

	echoapi "github.com/CreatesRahul-Lab/IKGPTU-sub000/apps/api/echo"
	"github.com/CreatesRahul-Lab/IKGPTU-sub000/core"
	"github.com/CreatesRahul-Lab/IKGPTU-sub000/core/attendance"
	"github.com/CreatesRahul-Lab/IKGPTU-sub000/core/marks"
	"github.com/CreatesRahul-Lab/IKGPTU-sub000/core/user"
	cachesvc "github.com/CreatesRahul-Lab/IKGPTU-sub000/services/cache"
	emailsvc "github.com/CreatesRahul-Lab/IKGPTU-sub000/services/email"
	logsvc "github.com/CreatesRahul-Lab/IKGPTU-sub000/services/logger"
	"github.com/CreatesRahul-Lab/IKGPTU-sub000/storage/database"
	sqlxrepos "github.com/CreatesRahul-Lab/IKGPTU-sub000/storage/database/sqlx"
)

func main() {
	// =========================================================================
	// Set up Dependencies

	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		core.Conf,
	)
	logger.Enable(!core.Conf.Debug)

	// set up DB
	db, err := setUpDB()
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	defer func() {
		if err = db.Close(); err != nil {
			logger.Error("closing database", err)
		}
	}()

	// set up cache
	var cache core.Cache
	if core.Conf.Redis.Addr != "" {
		cache = cachesvc.NewRedisCache(core.Conf.Redis, logger)
	} else {
		cache = cachesvc.NewMemoryCache(logger)
	}

	// set up services
	var mailSvc core.EmailService
	if core.Conf.Debug {
		mailSvc = emailsvc.NewConsoleService()
	} else {
		mailSvc = emailsvc.NewSendgridService(logger)
	}

	usrRepo := sqlxrepos.NewUserRepository(db)
	usrSvc := user.NewService(usrRepo, mailSvc, logger)
	attSvc := attendance.NewService(sqlxrepos.NewAttendanceRepository(db), usrRepo, cache, mailSvc, logger)
	marksSvc := marks.NewService(sqlxrepos.NewMarksRepository(db), usrRepo, cache)

	// =========================================================================
	// Start API Service

	logger.Info(fmt.Sprintf("Application initializing : version %q", core.Conf.Build))
	defer logger.Info("Application stopped")

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	app := echoapi.NewServer(
		core.Conf.Server.Addr,
		shutdown,
		&echoapi.Deps{
			UserSvc:       usrSvc,
			AttendanceSvc: attSvc,
			MarksSvc:      marksSvc,
			Logger:        logger,
		},
	)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.Start()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err = <-serverErrors:
		logger.Fatal(fmt.Sprintf("server error: %v", err), err)

	case sig := <-shutdown:
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), core.Conf.Server.ShutdownTimeout)
		defer cancel()

		if err = app.Stop(ctx); err != nil {
			logger.Fatal(fmt.Sprintf("could not stop server gracefully: %v", err), err)
		}
	}
}

func setUpDB() (*sqlx.DB, error) {
	if err := database.CreateIfNotExist(core.Conf); err != nil {
		return nil, err
	}

	db, err := database.Open(core.Conf)
	if err != nil {
		return nil, err
	}

	if err = database.Migrate(db.DB); err != nil {
		return nil, err
	}
	return db, nil
}
