package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jmoiron/sqlx"

	echoapi "github.com/trezcool/shule/apps/api/echo"
	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/notification"
	"github.com/trezcool/shule/core/relation"
	"github.com/trezcool/shule/core/school"
	"github.com/trezcool/shule/core/user"
	emailsvc "github.com/trezcool/shule/services/email"
	logsvc "github.com/trezcool/shule/services/logger"
	"github.com/trezcool/shule/storage/database"
	sqlxrepos "github.com/trezcool/shule/storage/database/sqlx"
)

func main() {
	// =========================================================================
	// Set up Dependencies

	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		core.Conf,
	)
	logger.Enable(!core.Conf.Debug)

	db, err := setUpDB(core.Conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	defer func() {
		if err = db.Close(); err != nil {
			logger.Error("closing database", err)
		}
	}()

	var mailSvc core.EmailService
	if core.Conf.Debug {
		mailSvc = emailsvc.NewConsoleService()
	} else {
		mailSvc = emailsvc.NewSendgridService(logger)
	}

	// repositories
	usrRepo := sqlxrepos.NewUserRepository(db)
	schoolRepo := sqlxrepos.NewSchoolRepository(db)
	relRepo := sqlxrepos.NewRelationRepository(db)
	notifRepo := sqlxrepos.NewNotificationRepository(db)

	// services; the relation service doubles as the visibility ledger.
	// relation -> user -> school -> relation is a cycle at the value level,
	// so the user service is handed out through a late-bound getter.
	var usrSvc *user.Service
	users := userGetter{&usrSvc}

	relSvc := relation.NewService(relRepo, users, mailSvc)
	notifSvc := notification.NewService(notifRepo)

	dispatcher := notification.NewDispatcher(notifRepo, relSvc, users, mailSvc, logger)
	defer dispatcher.Close()

	schoolSvc := school.NewService(schoolRepo, relSvc, dispatcher)
	usrSvc = user.NewService(usrRepo, schoolSvc, mailSvc, logger)

	// =========================================================================
	// Start API Service

	logger.Info(fmt.Sprintf("Application initializing : version %q", core.Conf.Build))
	defer logger.Info("Application stopped")

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	app := echoapi.NewServer(&echoapi.Options{
		Address:         core.Conf.Server.Addr,
		UserSvc:         usrSvc,
		SchoolSvc:       schoolSvc,
		RelationSvc:     relSvc,
		NotificationSvc: notifSvc,
		Logger:          logger,
		SignalShutdown:  func() { shutdown <- syscall.SIGTERM },
	})

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.Start()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err = <-serverErrors:
		if err != nil && err != http.ErrServerClosed {
			logger.Fatal(fmt.Sprintf("server error: %v", err), err)
		}

	case sig := <-shutdown:
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), core.Conf.Server.ShutdownTimeout)
		defer cancel()

		if err = app.Stop(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)
		}
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

	if err = database.Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

// userGetter defers to the user service once it is wired; breaks the
// construction cycle between the user service and its consumers.
type userGetter struct {
	svc **user.Service
}

func (g userGetter) FilterByID(ctx context.Context, ids []string) ([]user.User, error) {
	return (*g.svc).FilterByID(ctx, ids)
}

func (g userGetter) GetByEmail(ctx context.Context, email string) (user.User, error) {
	return (*g.svc).GetByEmail(ctx, email)
}
