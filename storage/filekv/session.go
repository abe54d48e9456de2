// Package filekv persists the session collection as a single JSON blob in
// one file, the way a browser keeps it under one localStorage key. Writes
// replace the whole blob (last write wins); other processes sharing the
// file are told about changes through filesystem notifications.
package filekv

import (
	"context"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	gojson "github.com/goccy/go-json"
	"github.com/pkg/errors"

	"github.com/trezcool/umahiri/core/session"
)

type sessionRepository struct {
	path string

	mu      sync.Mutex
	watcher *fsnotify.Watcher
}

var _ session.Repository = (*sessionRepository)(nil)

func NewSessionRepository(path string) *sessionRepository {
	return &sessionRepository{path: path}
}

func (repo *sessionRepository) readAll() ([]session.Session, error) {
	data, err := os.ReadFile(repo.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "reading collection blob")
	}
	var sessions []session.Session
	if err = gojson.Unmarshal(data, &sessions); err != nil {
		return nil, errors.Wrap(err, "decoding collection blob")
	}
	return sessions, nil
}

// writeAll atomically replaces the whole blob (write to temp + rename) so
// a concurrent reader never sees a partial collection.
func (repo *sessionRepository) writeAll(sessions []session.Session) error {
	data, err := gojson.Marshal(sessions)
	if err != nil {
		return errors.Wrap(err, "encoding collection blob")
	}

	tmp := repo.path + ".tmp"
	if err = os.WriteFile(tmp, data, 0o644); err != nil {
		return errors.Wrap(err, "writing collection blob")
	}
	if err = os.Rename(tmp, repo.path); err != nil {
		return errors.Wrap(err, "replacing collection blob")
	}
	return nil
}

func (repo *sessionRepository) QueryAllSessions(_ context.Context) ([]session.Session, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	return repo.readAll()
}

func (repo *sessionRepository) GetSession(_ context.Context, key session.Key) (session.Session, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	sessions, err := repo.readAll()
	if err != nil {
		return session.Session{}, err
	}
	for _, s := range sessions {
		if s.Key() == key {
			return s, nil
		}
	}
	return session.Session{}, session.ErrNotFound
}

func (repo *sessionRepository) SeedSessions(_ context.Context, sessions []session.Session) error {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	return repo.writeAll(sessions)
}

func (repo *sessionRepository) UpdateSession(_ context.Context, key session.Key, patch session.UpdateSession) (session.Session, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	sessions, err := repo.readAll()
	if err != nil {
		return session.Session{}, err
	}
	for i := range sessions {
		if sessions[i].Key() != key {
			continue
		}
		patch.Apply(&sessions[i])
		if err = repo.writeAll(sessions); err != nil {
			return session.Session{}, err
		}
		return sessions[i], nil
	}
	return session.Session{}, session.ErrNotFound
}

func (repo *sessionRepository) UpsertSession(_ context.Context, s session.Session) error {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	sessions, err := repo.readAll()
	if err != nil {
		return err
	}
	replaced := false
	for i := range sessions {
		if sessions[i].Key() == s.Key() {
			sessions[i] = s
			replaced = true
			break
		}
	}
	if !replaced {
		sessions = append(sessions, s)
	}
	return repo.writeAll(sessions)
}

// Watch pulses whenever the blob file changes on disk; this covers writes
// from other processes sharing the file. Our own writes pulse too, which
// is fine under at-least-once delivery.
func (repo *sessionRepository) Watch(ctx context.Context) (<-chan struct{}, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "creating file watcher")
	}
	// watch the directory: atomic renames replace the file inode
	if err = watcher.Add(filepath.Dir(repo.path)); err != nil {
		_ = watcher.Close()
		return nil, errors.Wrap(err, "watching collection blob")
	}

	repo.mu.Lock()
	repo.watcher = watcher
	repo.mu.Unlock()

	out := make(chan struct{}, 1)
	name := filepath.Base(repo.path)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Base(event.Name) != name {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
					continue
				}
				select { // coalesce bursts
				case out <- struct{}{}:
				default:
				}
			case <-watcher.Errors:
				// transient watch errors drop notifications, never data
			}
		}
	}()
	return out, nil
}

func (repo *sessionRepository) Close() error {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	if repo.watcher != nil {
		err := repo.watcher.Close()
		repo.watcher = nil
		return err
	}
	return nil
}
