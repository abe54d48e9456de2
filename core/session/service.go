package session

import (
	"context"
	goerrors "errors"
	"fmt"
	"sync"

	"github.com/pkg/errors"

	"github.com/trezcool/umahiri/core"
	"github.com/trezcool/umahiri/core/catalog"
)

var (
	// errors
	ErrNotFound = goerrors.New("session not found")
)

type (
	// Repository is the persistence contract for the session collection.
	// Backends provide last-write-wins semantics at record (or whole
	// collection) granularity; there is no transactional guarantee across
	// records and no optimistic-concurrency token.
	Repository interface {
		QueryAllSessions(ctx context.Context) ([]Session, error)
		GetSession(ctx context.Context, key Key) (Session, error)
		// SeedSessions writes the initial collection; only called when the
		// backend holds no session records.
		SeedSessions(ctx context.Context, sessions []Session) error
		// UpdateSession merges the set patch fields into the matching
		// record and persists it. Returns ErrNotFound when no record
		// matches the key.
		UpdateSession(ctx context.Context, key Key, patch UpdateSession) (Session, error)
		// UpsertSession creates or overwrites a record wholesale; used by
		// the seeder to re-sync the backend with the catalog.
		UpsertSession(ctx context.Context, s Session) error
		// Watch returns a channel pulsing whenever the backing collection
		// changes outside this repository handle (eg. another process).
		// A nil channel means the backend has no external change feed.
		Watch(ctx context.Context) (<-chan struct{}, error)
		Close() error
	}

	// AtomRepository is implemented by backends that also persist the atom
	// catalog (the seeder's target).
	AtomRepository interface {
		UpsertAtom(ctx context.Context, a catalog.Atom) error
	}

	Service struct {
		repo       Repository
		insightSvc core.InsightService
		logger     core.Logger

		mu          sync.Mutex
		subs        map[int]func([]Session)
		nextSub     int
		cancelWatch context.CancelFunc
	}
)

func NewService(repo Repository, insightSvc core.InsightService, logger core.Logger) *Service {
	return &Service{
		repo:       repo,
		insightSvc: insightSvc,
		logger:     logger,
		subs:       make(map[int]func([]Session)),
	}
}

// Start hooks the service up to the backend's external change feed, if it
// has one. Local writes notify subscribers regardless.
func (svc *Service) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)

	ch, err := svc.repo.Watch(ctx)
	if err != nil {
		cancel()
		return errors.Wrap(err, "watching session storage")
	}

	svc.mu.Lock()
	svc.cancelWatch = cancel
	svc.mu.Unlock()

	if ch == nil {
		return nil
	}
	go func() {
		for range ch {
			svc.notifyAll(ctx)
		}
	}()
	return nil
}

// Close detaches all subscribers, stops the change feed and closes the
// underlying repository.
func (svc *Service) Close() error {
	svc.mu.Lock()
	if svc.cancelWatch != nil {
		svc.cancelWatch()
		svc.cancelWatch = nil
	}
	svc.subs = make(map[int]func([]Session))
	svc.mu.Unlock()
	return svc.repo.Close()
}

// Load returns all session records, seeding the backend from the catalog
// first if it is empty. Calling it repeatedly without intervening writes
// returns identical data.
func (svc *Service) Load(ctx context.Context) ([]Session, error) {
	sessions, err := svc.repo.QueryAllSessions(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "querying sessions")
	}
	if len(sessions) > 0 {
		return sessions, nil
	}

	if err = svc.repo.SeedSessions(ctx, MasterSessions()); err != nil {
		return nil, errors.Wrap(err, "seeding sessions")
	}
	if sessions, err = svc.repo.QueryAllSessions(ctx); err != nil {
		return nil, errors.Wrap(err, "querying sessions")
	}
	return sessions, nil
}

// Subscribe registers a callback invoked with a full collection snapshot
// whenever the collection changes, via this process or the backend's
// change feed. Delivery is at-least-once with no cross-writer ordering.
// The returned handle detaches the callback; no invocations happen after
// it returns.
func (svc *Service) Subscribe(fn func([]Session)) (unsubscribe func()) {
	svc.mu.Lock()
	id := svc.nextSub
	svc.nextSub++
	svc.subs[id] = fn
	svc.mu.Unlock()

	return func() {
		svc.mu.Lock()
		delete(svc.subs, id)
		svc.mu.Unlock()
	}
}

// Update merges the set patch fields into the matching record and
// persists it. Unknown identities return ErrNotFound; the UI treats that
// as a no-op but other callers may care.
func (svc *Service) Update(ctx context.Context, key Key, patch UpdateSession) (Session, error) {
	if patch.Status != nil && !patch.Status.Valid() {
		return Session{}, core.NewValidationError(
			fmt.Errorf("invalid status %q", *patch.Status),
			core.FieldError{Field: "status", Error: "unknown status value"},
		)
	}

	s, err := svc.repo.UpdateSession(ctx, key, patch)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return Session{}, ErrNotFound
		}
		return Session{}, errors.Wrapf(err, "updating session %s", key)
	}

	svc.notifyAll(ctx)
	return s, nil
}

// notifyAll pushes a fresh snapshot to all subscribers. Best effort: a
// failing read is logged and swallowed, subscribers simply keep their
// last-known state.
func (svc *Service) notifyAll(ctx context.Context) {
	sessions, err := svc.repo.QueryAllSessions(ctx)
	if err != nil {
		if svc.logger != nil {
			svc.logger.Warn(fmt.Sprintf("refreshing sessions for subscribers: %v", err), err)
		}
		return
	}

	svc.mu.Lock()
	subs := make([]func([]Session), 0, len(svc.subs))
	for _, fn := range svc.subs {
		subs = append(subs, fn)
	}
	svc.mu.Unlock()

	for _, fn := range subs {
		fn(sessions)
	}
}
