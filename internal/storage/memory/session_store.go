// Package memory provides in-memory store implementations for tests and
// local development. They mirror the Postgres stores' semantics, including
// the snapshot version check.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/nichelabs/discovery-engine/internal/discovery"
)

// SessionStore keeps session snapshots in a map guarded by a mutex.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]discovery.Session
}

// NewSessionStore constructs an empty SessionStore.
func NewSessionStore() *SessionStore {
	return &SessionStore{sessions: make(map[string]discovery.Session)}
}

// CreateSession stores a brand new session document.
func (s *SessionStore) CreateSession(_ context.Context, sess discovery.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[sess.ID]; ok {
		return fmt.Errorf("session %s already exists", sess.ID)
	}
	s.sessions[sess.ID] = cloneSession(sess)
	return nil
}

// SaveSnapshot replaces the stored snapshot when the caller's version matches,
// then advances the stored version by one.
func (s *SessionStore) SaveSnapshot(_ context.Context, sess discovery.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.sessions[sess.ID]
	if !ok {
		return discovery.ErrSessionNotFound
	}
	if stored.Version != sess.Version {
		return fmt.Errorf("stored version %d, caller version %d: %w",
			stored.Version, sess.Version, discovery.ErrVersionConflict)
	}
	next := cloneSession(sess)
	next.Version = sess.Version + 1
	s.sessions[sess.ID] = next
	return nil
}

// GetSession returns the last stored snapshot.
func (s *SessionStore) GetSession(_ context.Context, id string) (discovery.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	if !ok {
		return discovery.Session{}, discovery.ErrSessionNotFound
	}
	return cloneSession(sess), nil
}

func cloneSession(sess discovery.Session) discovery.Session {
	out := sess
	out.Grids = append([]discovery.Grid(nil), sess.Grids...)
	out.Errors = append([]string(nil), sess.Errors...)
	return out
}
