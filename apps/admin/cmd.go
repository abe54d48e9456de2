package main

import (
	"context"
	"errors"
	"flag"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/trezcool/umahiri/core"
	"github.com/trezcool/umahiri/core/session"
)

var errHelp = errors.New("help provided")

type commandLine struct {
	conf     *core.Config
	db       *sqlx.DB // nil unless the postgres backend is active
	repo     session.Repository
	atomRepo session.AtomRepository // nil when the backend has no atom catalog
	mailSvc  core.EmailService
}

func (cli *commandLine) printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  migrate COMMAND [args]    - run database migrations (postgres backend only)")
	fmt.Println("  seed                      - sync the session and atom catalogs into storage")
	fmt.Println("  senddigest -to EMAIL      - email a mastery progress digest")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	sendDigestCmd := flag.NewFlagSet("senddigest", flag.ExitOnError)
	sendDigestTo := sendDigestCmd.String("to", "", "The recipient's email address.")

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])
	case "seed":
		return cli.seed(context.Background())
	case "senddigest":
		if err := sendDigestCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *sendDigestTo == "" {
			sendDigestCmd.Usage()
			return errHelp
		}
		return cli.sendDigest(context.Background(), *sendDigestTo)
	default:
		cli.printUsage()
		return errHelp
	}
}
