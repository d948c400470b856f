// Package postgres provides Postgres-backed persistence implementations.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nichelabs/discovery-engine/internal/discovery"
)

// querier is the subset of pgxpool.Pool the stores use; pgxmock satisfies it.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// SessionStoreConfig controls the connection pool for the session store.
type SessionStoreConfig struct {
	DSN             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

// SessionStore persists discovery sessions as one JSONB document per session
// plus indexed scalar columns. Snapshot writes are guarded by an optimistic
// version check so two drivers of one session cannot silently interleave.
type SessionStore struct {
	pool querier
}

// NewSessionStore connects a pool using the provided config.
func NewSessionStore(ctx context.Context, cfg SessionStoreConfig) (*SessionStore, error) {
	if cfg.DSN == "" {
		return nil, errors.New("database.dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &SessionStore{pool: pool}, nil
}

// NewSessionStoreWithPool constructs a store from an existing pool (primarily
// for testing).
func NewSessionStoreWithPool(pool querier) (*SessionStore, error) {
	if pool == nil {
		return nil, errors.New("pool is required")
	}
	return &SessionStore{pool: pool}, nil
}

// Close releases the underlying pool resources.
func (s *SessionStore) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// CreateSession inserts a brand new session document.
func (s *SessionStore) CreateSession(ctx context.Context, sess discovery.Session) error {
	doc, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	query := `
		INSERT INTO discovery_sessions (id, status, version, document, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6);
	`
	if _, err := s.pool.Exec(ctx, query, sess.ID, sess.Status, sess.Version, doc, sess.CreatedAt, sess.UpdatedAt); err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

// SaveSnapshot replaces the full session document. The write succeeds only if
// the stored version equals the caller's version; the stored version then
// advances by one. A stale caller gets ErrVersionConflict.
func (s *SessionStore) SaveSnapshot(ctx context.Context, sess discovery.Session) error {
	doc, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	query := `
		UPDATE discovery_sessions
		SET status = $1, version = version + 1, document = $2, updated_at = $3
		WHERE id = $4 AND version = $5;
	`
	tag, err := s.pool.Exec(ctx, query, sess.Status, doc, sess.UpdatedAt, sess.ID, sess.Version)
	if err != nil {
		return fmt.Errorf("update session snapshot: %w", err)
	}
	if tag.RowsAffected() == 0 {
		var stored int64
		err := s.pool.QueryRow(ctx, `SELECT version FROM discovery_sessions WHERE id = $1;`, sess.ID).Scan(&stored)
		if errors.Is(err, pgx.ErrNoRows) {
			return discovery.ErrSessionNotFound
		}
		if err != nil {
			return fmt.Errorf("check session version: %w", err)
		}
		return fmt.Errorf("stored version %d, caller version %d: %w", stored, sess.Version, discovery.ErrVersionConflict)
	}
	return nil
}

// GetSession loads the last persisted snapshot. The version column is
// authoritative over whatever version the document was serialized with.
func (s *SessionStore) GetSession(ctx context.Context, id string) (discovery.Session, error) {
	query := `SELECT document, version FROM discovery_sessions WHERE id = $1;`
	var (
		doc     []byte
		version int64
	)
	if err := s.pool.QueryRow(ctx, query, id).Scan(&doc, &version); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return discovery.Session{}, discovery.ErrSessionNotFound
		}
		return discovery.Session{}, fmt.Errorf("get session: %w", err)
	}
	var sess discovery.Session
	if err := json.Unmarshal(doc, &sess); err != nil {
		return discovery.Session{}, fmt.Errorf("unmarshal session document: %w", err)
	}
	sess.Version = version
	return sess, nil
}
