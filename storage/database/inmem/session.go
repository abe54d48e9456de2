package inmemdb

import (
	"context"

	"github.com/trezcool/umahiri/core/catalog"
	"github.com/trezcool/umahiri/core/session"
)

type sessionRepository struct {
	db *DB
}

var (
	_ session.Repository     = (*sessionRepository)(nil)
	_ session.AtomRepository = (*sessionRepository)(nil)
)

func NewSessionRepository(db *DB) *sessionRepository {
	return &sessionRepository{db: db}
}

func (repo *sessionRepository) query() []session.Session {
	sessions := make([]session.Session, 0, len(repo.db.sessions.table))
	for _, s := range repo.db.sessions.table {
		sessions = append(sessions, s.Clone())
	}
	return sessions
}

func (repo *sessionRepository) QueryAllSessions(_ context.Context) ([]session.Session, error) {
	repo.db.sessions.RLock()
	defer repo.db.sessions.RUnlock()
	return repo.query(), nil
}

func (repo *sessionRepository) GetSession(_ context.Context, key session.Key) (session.Session, error) {
	repo.db.sessions.RLock()
	defer repo.db.sessions.RUnlock()

	if s, ok := repo.db.sessions.table[key]; ok {
		return s.Clone(), nil
	}
	return session.Session{}, session.ErrNotFound
}

func (repo *sessionRepository) SeedSessions(_ context.Context, sessions []session.Session) error {
	repo.db.sessions.Lock()
	defer repo.db.sessions.Unlock()

	for _, s := range sessions {
		s := s.Clone()
		repo.db.sessions.table[s.Key()] = &s
	}
	return nil
}

func (repo *sessionRepository) UpdateSession(_ context.Context, key session.Key, patch session.UpdateSession) (session.Session, error) {
	repo.db.sessions.Lock()
	defer repo.db.sessions.Unlock()

	s, ok := repo.db.sessions.table[key]
	if !ok {
		return session.Session{}, session.ErrNotFound
	}
	patch.Apply(s)
	return s.Clone(), nil
}

func (repo *sessionRepository) UpsertSession(_ context.Context, s session.Session) error {
	repo.db.sessions.Lock()
	defer repo.db.sessions.Unlock()

	s = s.Clone()
	repo.db.sessions.table[s.Key()] = &s
	return nil
}

func (repo *sessionRepository) UpsertAtom(_ context.Context, a catalog.Atom) error {
	repo.db.atoms.Lock()
	defer repo.db.atoms.Unlock()
	repo.db.atoms.table[a.ID] = &a
	return nil
}

// QueryAllAtoms returns the seeded atom records; test helper.
func (repo *sessionRepository) QueryAllAtoms(_ context.Context) ([]catalog.Atom, error) {
	repo.db.atoms.RLock()
	defer repo.db.atoms.RUnlock()

	atoms := make([]catalog.Atom, 0, len(repo.db.atoms.table))
	for _, a := range repo.db.atoms.table {
		atoms = append(atoms, *a)
	}
	return atoms, nil
}

// Watch: the in-memory backend has no external writers, hence no feed.
func (repo *sessionRepository) Watch(_ context.Context) (<-chan struct{}, error) {
	return nil, nil
}

func (repo *sessionRepository) Close() error { return nil }
