package testutil

import (
	"context"
	"testing"

	"github.com/trezcool/umahiri/core"
	"github.com/trezcool/umahiri/core/session"
)

// NewConfig returns a minimal test-mode config; no env files, no network.
func NewConfig() *core.Config {
	return &core.Config{
		TestMode: true,
		Env:      "TEST",
		AppName:  "Umahiri",
	}
}

// SeedSessions populates a repository with the master session catalog.
func SeedSessions(t *testing.T, repo session.Repository) []session.Session {
	t.Helper()

	seed := session.MasterSessions()
	if err := repo.SeedSessions(context.Background(), seed); err != nil {
		t.Fatalf("SeedSessions(): %v", err)
	}
	return seed
}
