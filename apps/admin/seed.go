package main

import (
	"context"
	"fmt"

	"github.com/trezcool/umahiri/core/catalog"
	"github.com/trezcool/umahiri/core/session"
)

// seed syncs the shipped catalogs into storage. Existing records are
// overwritten with catalog content so re-running always converges on the
// same state. Per-record failures are logged, not fatal.
func (cli *commandLine) seed(ctx context.Context) error {
	var nAtoms int
	if cli.atomRepo != nil {
		for _, a := range catalog.MasterAtoms {
			if err := cli.atomRepo.UpsertAtom(ctx, a); err != nil {
				logger.Printf("upserting atom %s: %v", a.ID, err)
				continue
			}
			nAtoms++
		}
	}

	var nSessions int
	for _, s := range session.MasterSessions() {
		if err := cli.repo.UpsertSession(ctx, s); err != nil {
			logger.Printf("upserting session %s: %v", s.Key(), err)
			continue
		}
		nSessions++
	}

	if cli.atomRepo == nil {
		fmt.Printf("seeded %d sessions (backend has no atom catalog, %d atoms skipped)\n", nSessions, len(catalog.MasterAtoms))
	} else {
		fmt.Printf("seeded %d sessions and %d atoms\n", nSessions, nAtoms)
	}
	return nil
}
