// Package sqlxrepos stores each session as a JSONB document keyed by its
// composite identity, with NOTIFY/LISTEN as the cross-client change feed.
package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	gojson "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/trezcool/umahiri/core"
	"github.com/trezcool/umahiri/core/catalog"
	"github.com/trezcool/umahiri/core/session"
)

// notifyChannel carries change pulses for the sessions collection; the
// payload is the writing repository's origin id so a handle can skip its
// own echoes.
const notifyChannel = "umahiri_sessions"

type sessionRepository struct {
	db     *sqlx.DB
	dsn    string
	origin string
	logger core.Logger
}

var (
	_ session.Repository     = (*sessionRepository)(nil)
	_ session.AtomRepository = (*sessionRepository)(nil)
)

func NewSessionRepository(db *sqlx.DB, dsn string, logger core.Logger) *sessionRepository {
	return &sessionRepository{
		db:     db,
		dsn:    dsn,
		origin: uuid.New().String(),
		logger: logger,
	}
}

func decodeSession(doc []byte) (session.Session, error) {
	var s session.Session
	if err := gojson.Unmarshal(doc, &s); err != nil {
		return session.Session{}, errors.Wrap(err, "decoding session document")
	}
	return s, nil
}

func (repo *sessionRepository) QueryAllSessions(ctx context.Context) ([]session.Session, error) {
	var docs [][]byte
	if err := repo.db.SelectContext(ctx, &docs, `SELECT doc FROM sessions ORDER BY strand, number`); err != nil {
		return nil, errors.Wrap(err, "querying sessions")
	}

	sessions := make([]session.Session, 0, len(docs))
	for _, doc := range docs {
		s, err := decodeSession(doc)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}
	return sessions, nil
}

func (repo *sessionRepository) GetSession(ctx context.Context, key session.Key) (session.Session, error) {
	var doc []byte
	err := repo.db.GetContext(ctx, &doc, `SELECT doc FROM sessions WHERE strand = $1 AND number = $2`, key.Strand, key.Number)
	if err == sql.ErrNoRows {
		return session.Session{}, session.ErrNotFound
	}
	if err != nil {
		return session.Session{}, errors.Wrap(err, "querying session")
	}
	return decodeSession(doc)
}

func (repo *sessionRepository) SeedSessions(ctx context.Context, sessions []session.Session) error {
	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "beginning seed transaction")
	}
	defer func() { _ = tx.Rollback() }()

	for _, s := range sessions {
		if err = upsertSessionTx(ctx, tx, s); err != nil {
			return err
		}
	}
	if err = tx.Commit(); err != nil {
		return errors.Wrap(err, "committing seed transaction")
	}

	repo.notify(ctx)
	return nil
}

// UpdateSession does a read-modify-write on the one matching document.
// The row lock only covers this record; two clients racing on the same
// record still end up last-write-wins at the field level, which is the
// accepted contract.
func (repo *sessionRepository) UpdateSession(ctx context.Context, key session.Key, patch session.UpdateSession) (session.Session, error) {
	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return session.Session{}, errors.Wrap(err, "beginning update transaction")
	}
	defer func() { _ = tx.Rollback() }()

	var doc []byte
	err = tx.GetContext(ctx, &doc, `SELECT doc FROM sessions WHERE strand = $1 AND number = $2 FOR UPDATE`, key.Strand, key.Number)
	if err == sql.ErrNoRows {
		return session.Session{}, session.ErrNotFound
	}
	if err != nil {
		return session.Session{}, errors.Wrap(err, "querying session")
	}

	s, err := decodeSession(doc)
	if err != nil {
		return session.Session{}, err
	}
	patch.Apply(&s)

	if doc, err = gojson.Marshal(s); err != nil {
		return session.Session{}, errors.Wrap(err, "encoding session document")
	}
	_, err = tx.ExecContext(ctx,
		`UPDATE sessions SET doc = $1, updated_at = now() WHERE strand = $2 AND number = $3`,
		doc, key.Strand, key.Number,
	)
	if err != nil {
		return session.Session{}, errors.Wrap(err, "updating session")
	}
	if err = tx.Commit(); err != nil {
		return session.Session{}, errors.Wrap(err, "committing update transaction")
	}

	repo.notify(ctx)
	return s, nil
}

func upsertSessionTx(ctx context.Context, tx *sqlx.Tx, s session.Session) error {
	doc, err := gojson.Marshal(s)
	if err != nil {
		return errors.Wrap(err, "encoding session document")
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO sessions (id, strand, number, doc)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (id) DO UPDATE SET strand = $2, number = $3, doc = $4, updated_at = now()`,
		s.Key().ID(), s.Strand, s.Number, doc,
	)
	return errors.Wrap(err, "upserting session")
}

func (repo *sessionRepository) UpsertSession(ctx context.Context, s session.Session) error {
	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "beginning upsert transaction")
	}
	defer func() { _ = tx.Rollback() }()

	if err = upsertSessionTx(ctx, tx, s); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return errors.Wrap(err, "committing upsert transaction")
	}

	repo.notify(ctx)
	return nil
}

func (repo *sessionRepository) UpsertAtom(ctx context.Context, a catalog.Atom) error {
	doc, err := gojson.Marshal(a)
	if err != nil {
		return errors.Wrap(err, "encoding atom document")
	}
	_, err = repo.db.ExecContext(ctx,
		`INSERT INTO atoms (id, doc)
		 VALUES ($1, $2)
		 ON CONFLICT (id) DO UPDATE SET doc = $2, updated_at = now()`,
		a.ID, doc,
	)
	return errors.Wrap(err, "upserting atom")
}

// notify is best effort: a missed pulse degrades freshness for other
// clients, never correctness of the write that already committed.
func (repo *sessionRepository) notify(ctx context.Context) {
	if _, err := repo.db.ExecContext(ctx, `SELECT pg_notify($1, $2)`, notifyChannel, repo.origin); err != nil {
		if repo.logger != nil {
			repo.logger.Warn("notifying session change", err)
		}
	}
}

// Watch listens on the sessions NOTIFY channel with a dedicated
// connection. Pulses from this repository's own writes are skipped; local
// callers are notified synchronously by the service layer.
func (repo *sessionRepository) Watch(ctx context.Context) (<-chan struct{}, error) {
	listener := pq.NewListener(repo.dsn, 10*time.Second, time.Minute, func(ev pq.ListenerEventType, err error) {
		if err != nil && repo.logger != nil {
			repo.logger.Warn("session change listener", err)
		}
	})
	if err := listener.Listen(notifyChannel); err != nil {
		_ = listener.Close()
		return nil, errors.Wrap(err, "listening for session changes")
	}

	out := make(chan struct{}, 1)
	go func() {
		defer close(out)
		defer func() { _ = listener.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case n, ok := <-listener.Notify:
				if !ok {
					return
				}
				// n is nil on reconnection; treat it as a potential missed change
				if n != nil && n.Extra == repo.origin {
					continue
				}
				select { // coalesce bursts
				case out <- struct{}{}:
				default:
				}
			}
		}
	}()
	return out, nil
}

func (repo *sessionRepository) Close() error {
	return repo.db.Close()
}
