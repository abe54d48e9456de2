package inmemdb

import (
	"sync"

	"github.com/trezcool/umahiri/core/catalog"
	"github.com/trezcool/umahiri/core/session"
)

type (
	DB struct {
		sessions *sessionTable
		atoms    *atomTable
	}

	sessionTable struct {
		sync.RWMutex
		table map[session.Key]*session.Session
	}

	atomTable struct {
		sync.RWMutex
		table map[string]*catalog.Atom
	}
)

func Open() (*DB, error) {
	db := &DB{
		sessions: &sessionTable{table: make(map[session.Key]*session.Session)},
		atoms:    &atomTable{table: make(map[string]*catalog.Atom)},
	}
	return db, nil
}
