package main

import (
	"context"
	"expvar"
	"flag"
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof"
	"os"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"

	"github.com/trezcool/pondok/apps"
	"github.com/trezcool/pondok/apps/api/echo"
	"github.com/trezcool/pondok/core"
	"github.com/trezcool/pondok/core/report"
	"github.com/trezcool/pondok/fs"
	"github.com/trezcool/pondok/services/email"
	"github.com/trezcool/pondok/services/logger"
	"github.com/trezcool/pondok/services/report"
	"github.com/trezcool/pondok/storage/database"
	"github.com/trezcool/pondok/storage/database/inmem"
)

func main() {
	inMem := flag.Bool("inmem", false, "keep the data in memory instead of the database")
	flag.Parse()

	// =========================================================================
	// Set up Dependencies

	conf := core.NewConfig()

	// set up loggers
	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	logger.Enable(!conf.Debug)

	dbLogger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	dbLogger.Enable(!conf.Debug)

	// set up storage
	var storage apps.Storage
	if *inMem {
		logger.Info("Using the in-memory store, data is lost on exit")
		storage = apps.InMemStorage(inmemdb.NewDB())
	} else {
		db, err := setUpDB(conf)
		if err != nil {
			dbLogger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
		}
		defer func() {
			if err = db.Close(); err != nil {
				dbLogger.Fatal("Failed to close", err)
			}
		}()
		storage = apps.SQLStorage(db)
	}
	services := apps.NewServices(conf, storage)

	// set up email
	tmpls, err := core.LoadEmailTemplates(conf, fs.EmailTemplates, fs.EmailTemplatesDir, !conf.Debug)
	if err != nil {
		logger.Fatal(fmt.Sprintf("loading email templates: %v", err), err)
	}
	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(conf, tmpls, logger)
	} else {
		mailSvc = emailsvc.NewSendgridService(conf, tmpls, logger)
	}

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	validate := validator.New()
	translator := newTranslator()
	core.InitValidators(validate, translator)

	// make sure the current semester exists before the first request
	if _, err = services.Semesters.Ensure(context.Background()); err != nil {
		logger.Fatal(fmt.Sprintf("ensuring semester: %v", err), err)
	}

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.

	// Expose important info under /debug/vars.
	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)

	go func() {
		if err := http.ListenAndServe(conf.Server.DebugHost, http.DefaultServeMux); err != nil {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()

	// =========================================================================
	// Start API Service

	server := echoapi.NewServer(
		echoapi.ServerDeps{
			Conf:       conf,
			Logger:     logger,
			Validate:   validate,
			Translator: translator,
			Auth:       services.Auth,
			Students:   services.Students,
			Teachers:   services.Teachers,
			Schools:    services.Schools,
			Semesters:  services.Semesters,
			Curriculum: services.Curriculum,
			Grading:    services.Grading,
			Families:   services.Families,
			Addresses:  services.Addresses,
			Profiles:   services.Profiles,
			Reports:    report.NewBuilder(services.Students, services.Schools, services.Semesters, services.Grading),
			Mailer:     report.NewMailer(mailSvc),
			Renderers: report.Renderers{
				"pdf":  reportsvc.NewPDFRenderer(conf),
				"xlsx": reportsvc.NewXLSXRenderer(),
			},
		},
	)

	go func() {
		server.Start()
	}()

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

	if err = database.Migrate(db.DB, "up"); err != nil {
		return nil, err
	}
	return db, nil
}

func newTranslator() ut.Translator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	return translator
}
