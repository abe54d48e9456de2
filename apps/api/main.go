package main

import (
	"context"
	"expvar"
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof"
	"os"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	echoapi "github.com/trezcool/umahiri/apps/api/echo"
	"github.com/trezcool/umahiri/core"
	"github.com/trezcool/umahiri/core/session"
	insightsvc "github.com/trezcool/umahiri/services/insight"
	dummyinsight "github.com/trezcool/umahiri/services/insight/dummy"
	logsvc "github.com/trezcool/umahiri/services/logger"
	"github.com/trezcool/umahiri/storage/database"
	inmemdb "github.com/trezcool/umahiri/storage/database/inmem"
	sqlxrepos "github.com/trezcool/umahiri/storage/database/sqlx"
	"github.com/trezcool/umahiri/storage/filekv"
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
	logger.Enable(!conf.Debug)

	dbLogger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	dbLogger.Enable(!conf.Debug)

	// set up storage
	repo, err := setUpRepository(conf, dbLogger)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up storage: %v", err), err)
	}

	// set up services
	var insightSvc core.InsightService
	if conf.Insight.ApiKey == "" {
		insightSvc = dummyinsight.NewService("Try concrete manipulatives before moving to abstract notation.")
	} else {
		insightSvc = insightsvc.NewGeminiService(conf)
	}
	sessionSvc := session.NewService(repo, insightSvc, logger)
	defer func() {
		if err = sessionSvc.Close(); err != nil {
			dbLogger.Error("Failed to close", err)
		}
	}()

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	validate := validator.New()
	translator := newTranslator()
	core.InitValidators(validate, translator)
	session.InitValidators(validate, translator)

	if err = sessionSvc.Start(context.Background()); err != nil {
		logger.Fatal(fmt.Sprintf("starting session service: %v", err), err)
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
		if err = http.ListenAndServe(conf.Server.DebugHost, http.DefaultServeMux); err != nil {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()

	// =========================================================================
	// Start API Service

	server := echoapi.NewServer(
		echoapi.ServerDeps{
			Conf:       conf,
			Logger:     logger,
			SessionSvc: sessionSvc,
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

func setUpRepository(conf *core.Config, logger core.Logger) (session.Repository, error) {
	switch conf.Storage.Backend {
	case core.StorageInMem:
		db, err := inmemdb.Open()
		if err != nil {
			return nil, err
		}
		return inmemdb.NewSessionRepository(db), nil

	case core.StorageFile:
		return filekv.NewSessionRepository(conf.Storage.Path), nil

	case core.StoragePostgres:
		if err := database.CreateIfNotExist(conf); err != nil {
			return nil, err
		}
		db, err := database.Open(conf)
		if err != nil {
			return nil, err
		}
		if err = database.Ping(db); err != nil {
			return nil, err
		}
		if err = database.Migrate(db.DB); err != nil {
			return nil, err
		}
		return sqlxrepos.NewSessionRepository(db, database.DSN(conf), logger), nil
	}
	return nil, fmt.Errorf("unsupported storage backend %q", conf.Storage.Backend)
}

func newTranslator() ut.Translator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	return translator
}
