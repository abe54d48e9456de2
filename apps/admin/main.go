package main

import (
	"log"
	"os"

	"github.com/trezcool/umahiri/core"
	emailsvc "github.com/trezcool/umahiri/services/email"
	logsvc "github.com/trezcool/umahiri/services/logger"
	"github.com/trezcool/umahiri/storage/database"
	inmemdb "github.com/trezcool/umahiri/storage/database/inmem"
	sqlxrepos "github.com/trezcool/umahiri/storage/database/sqlx"
	"github.com/trezcool/umahiri/storage/filekv"
)

var logger *log.Logger // todo: logger service

func main() {
	defer os.Exit(0)

	logger = log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)

	conf := core.NewConfig()

	cli := commandLine{conf: conf}

	// set up storage
	switch conf.Storage.Backend {
	case core.StorageInMem:
		db, err := inmemdb.Open()
		errAndDie(err)
		repo := inmemdb.NewSessionRepository(db)
		cli.repo, cli.atomRepo = repo, repo

	case core.StorageFile:
		cli.repo = filekv.NewSessionRepository(conf.Storage.Path)

	case core.StoragePostgres:
		errAndDie(database.CreateIfNotExist(conf))
		db, err := database.Open(conf)
		errAndDie(err)
		defer db.Close()
		errAndDie(database.Ping(db))
		cli.db = db
		repo := sqlxrepos.NewSessionRepository(db, database.DSN(conf), nil)
		cli.repo, cli.atomRepo = repo, repo

	default:
		logger.Fatalf("unsupported storage backend %q", conf.Storage.Backend)
	}

	// set up services
	svcLogger := logsvc.NewRollbarLogger(logger, conf)
	svcLogger.Enable(!conf.Debug)
	if conf.Debug {
		cli.mailSvc = emailsvc.NewConsoleService(conf)
	} else {
		cli.mailSvc = emailsvc.NewSendgridService(conf, svcLogger)
	}
	core.ParseEmailTemplates(conf, svcLogger)

	// start CLI
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			logger.Printf("\nerror: %s\n", err)
		}
		os.Exit(1)
	}
}

func errAndDie(err error) {
	if err != nil {
		logger.Fatal(err)
	}
}
