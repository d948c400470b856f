package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nichelabs/discovery-engine/internal/discovery"
)

func TestSessionStoreVersionCheck(t *testing.T) {
	t.Parallel()

	s := NewSessionStore()
	sess := discovery.Session{
		ID:      "sess-1",
		Status:  discovery.SessionStatusCreated,
		Version: 1,
		Grids:   []discovery.Grid{{ID: "grid-0000"}},
	}
	require.NoError(t, s.CreateSession(context.Background(), sess))

	// A matching version writes and bumps the stored version.
	sess.Status = discovery.SessionStatusRunning
	require.NoError(t, s.SaveSnapshot(context.Background(), sess))

	got, err := s.GetSession(context.Background(), sess.ID)
	require.NoError(t, err)
	require.Equal(t, int64(2), got.Version)
	require.Equal(t, discovery.SessionStatusRunning, got.Status)

	// Replaying the old version is a conflict.
	err = s.SaveSnapshot(context.Background(), sess)
	require.ErrorIs(t, err, discovery.ErrVersionConflict)

	_, err = s.GetSession(context.Background(), "missing")
	require.ErrorIs(t, err, discovery.ErrSessionNotFound)
}

func TestSessionStoreReturnsCopies(t *testing.T) {
	t.Parallel()

	s := NewSessionStore()
	sess := discovery.Session{
		ID:      "sess-1",
		Version: 1,
		Grids:   []discovery.Grid{{ID: "grid-0000", Status: discovery.GridStatusPending}},
	}
	require.NoError(t, s.CreateSession(context.Background(), sess))

	got, err := s.GetSession(context.Background(), sess.ID)
	require.NoError(t, err)
	got.Grids[0].Status = discovery.GridStatusError

	again, err := s.GetSession(context.Background(), sess.ID)
	require.NoError(t, err)
	require.Equal(t, discovery.GridStatusPending, again.Grids[0].Status)
}
