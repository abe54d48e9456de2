package main

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"log"
	"os"
	"strings"
	"testing"

	"github.com/jmoiron/sqlx"

	"github.com/trezcool/umahiri/core/catalog"
	"github.com/trezcool/umahiri/core/session"
	emailsvc "github.com/trezcool/umahiri/services/email"
	inmemdb "github.com/trezcool/umahiri/storage/database/inmem"
	testutil "github.com/trezcool/umahiri/tests"
)

func setup(t *testing.T) *commandLine {
	logger = log.New(os.Stdout, "ADMIN : ", log.LstdFlags)

	conf := testutil.NewConfig()

	db, err := inmemdb.Open()
	if err != nil {
		t.Fatalf("inmemdb.Open(): %v", err)
	}
	repo := inmemdb.NewSessionRepository(db)

	return &commandLine{
		conf:     conf,
		repo:     repo,
		atomRepo: repo,
		mailSvc:  emailsvc.NewConsoleServiceMock(conf),
	}
}

type cliTest struct {
	name       string
	args       []string // without program name
	wantErr    error
	wantErrStr string
	extra      interface{}
}

func Test_commandLine_run(t *testing.T) {
	cli := setup(t)

	tests := []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
		{name: "migrate: no subcommand", args: []string{"migrate"}, wantErr: errHelp},
		{name: "senddigest: no recipient", args: []string{"senddigest"}, wantErr: errHelp},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			if err := cli.run(args); err != tt.wantErr {
				t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func Test_commandLine_migrate(t *testing.T) {
	cli := setup(t)

	t.Run("requires the postgres backend", func(t *testing.T) {
		if err := cli.run([]string{"admin", "migrate", "up"}); err != errMigrateNeedsPostgres {
			t.Errorf("cli.run() error = %v, wantErr %v", err, errMigrateNeedsPostgres)
		}
	})

	// sql.Open is lazy; no server is contacted since goose is mocked out
	sqlDB, err := sql.Open("postgres", "")
	if err != nil {
		t.Fatalf("sql.Open(): %v", err)
	}
	cli.db = sqlx.NewDb(sqlDB, "postgres")

	gooseRunFunc = func(command string, db *sql.DB, fsys fs.FS, dir string, args ...string) error {
		switch command {
		case "up", "up-by-one", "down", "redo", "reset", "status", "version": // pass
		case "up-to", "down-to":
			if len(args) == 0 {
				return fmt.Errorf("%s must be of form: goose [OPTIONS] DRIVER DBSTRING %s VERSION", command, command)
			}
		default:
			return fmt.Errorf("%q: no such command", command)
		}
		return nil
	}

	tests := []cliTest{
		{name: "unknown subcommand", args: []string{"migrate", "lol"}, wantErrStr: "\"lol\": no such command"},
		{name: "up", args: []string{"migrate", "up"}},
		{name: "up-to: no args", args: []string{"migrate", "up-to"}, wantErrStr: "up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION"},
		{name: "up-to", args: []string{"migrate", "up-to", "2"}},
		{name: "down", args: []string{"migrate", "down"}},
		{name: "status", args: []string{"migrate", "status"}},
		{name: "version", args: []string{"migrate", "version"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			if err := cli.run(args); err != nil {
				if tt.wantErrStr == "" || err.Error() != tt.wantErrStr {
					t.Errorf("cli.run() error = %v, wantErrStr %s", err, tt.wantErrStr)
				}
			} else if tt.wantErrStr != "" {
				t.Errorf("cli.run() error = nil, wantErrStr %s", tt.wantErrStr)
			}
		})
	}
}

func Test_commandLine_seed(t *testing.T) {
	cli := setup(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ { // re-running converges on the same state
		if err := cli.run([]string{"admin", "seed"}); err != nil {
			t.Fatalf("cli.run() #%d: %v", i+1, err)
		}

		sessions, err := cli.repo.QueryAllSessions(ctx)
		if err != nil {
			t.Fatalf("QueryAllSessions(): %v", err)
		}
		if len(sessions) != len(session.MasterSessions()) {
			t.Errorf("seeded %d sessions, want %d", len(sessions), len(session.MasterSessions()))
		}

		atoms, err := cli.repo.(interface {
			QueryAllAtoms(context.Context) ([]catalog.Atom, error)
		}).QueryAllAtoms(ctx)
		if err != nil {
			t.Fatalf("QueryAllAtoms(): %v", err)
		}
		if len(atoms) != len(catalog.MasterAtoms) {
			t.Errorf("seeded %d atoms, want %d", len(atoms), len(catalog.MasterAtoms))
		}
	}
}

func Test_commandLine_sendDigest(t *testing.T) {
	cli := setup(t)
	emailsvc.ResetSentMessages()

	t.Run("empty store", func(t *testing.T) {
		err := cli.run([]string{"admin", "senddigest", "-to", "head@school.test"})
		if err == nil || !strings.Contains(err.Error(), "no session records") {
			t.Errorf("cli.run() error = %v, want no session records", err)
		}
	})

	if err := cli.seed(context.Background()); err != nil {
		t.Fatalf("seed(): %v", err)
	}
	if _, err := cli.repo.UpdateSession(
		context.Background(),
		session.Key{Strand: catalog.StrandPlaceValue, Number: 1},
		session.UpdateSession{Status: statusPtr(session.StatusMastered)},
	); err != nil {
		t.Fatalf("UpdateSession(): %v", err)
	}

	t.Run("sends a templated digest", func(t *testing.T) {
		if err := cli.run([]string{"admin", "senddigest", "-to", "head@school.test"}); err != nil {
			t.Fatalf("cli.run(): %v", err)
		}

		if len(emailsvc.SentMessages) != 1 {
			t.Fatalf("sent %d messages, want 1", len(emailsvc.SentMessages))
		}
		msg := emailsvc.SentMessages[0]
		if msg.To[0].Address != "head@school.test" {
			t.Errorf("To = %v", msg.To)
		}
		for _, want := range []string{
			catalog.StrandPlaceValue + ": 1/2 mastered",
			catalog.StrandTimesTables + ": 0/2 mastered",
			"Next up: session 2",
		} {
			if !strings.Contains(msg.TextContent, want) {
				t.Errorf("digest missing %q in:\n%s", want, msg.TextContent)
			}
		}
	})
}

func statusPtr(s session.Status) *session.Status { return &s }
