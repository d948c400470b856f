package progress

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/nichelabs/discovery-engine/internal/discovery"
)

// TestHubBatchBySize verifies the hub flushes immediately once the batch size limit is reached.
func TestHubBatchBySize(t *testing.T) {
	t.Parallel()

	sink := newStubSink()
	hub := NewHub(Config{
		BufferSize:     8,
		MaxBatchEvents: 2,
		MaxBatchWait:   time.Minute,
	}, sink)
	defer func() {
		require.NoError(t, hub.Close(context.Background()))
	}()

	evt := sampleEvent(StageSessionStart)
	hub.Emit(evt)
	hub.Emit(evt)
	require.Eventually(t, func() bool {
		return len(sink.Batches()) == 1 && len(sink.Batches()[0]) == 2
	}, time.Second, 10*time.Millisecond)
}

// TestHubBatchByTimer verifies the timer-based flush kicks in when the batch is small.
func TestHubBatchByTimer(t *testing.T) {
	t.Parallel()

	sink := newStubSink()
	hub := NewHub(Config{
		BufferSize:     4,
		MaxBatchEvents: 10,
		MaxBatchWait:   25 * time.Millisecond,
	}, sink)
	defer func() {
		require.NoError(t, hub.Close(context.Background()))
	}()

	hub.Emit(sampleEvent(StageSessionStart))
	require.Eventually(t, func() bool {
		return len(sink.Batches()) == 1
	}, time.Second, 5*time.Millisecond)
}

// TestHubEmitNonBlockingWithoutConsumers asserts Emit never blocks callers, even without sinks.
func TestHubEmitNonBlockingWithoutConsumers(t *testing.T) {
	t.Parallel()

	hub := &Hub{
		cfg:    Config{},
		events: make(chan Event),
		logger: zap.NewNop(),
	}
	start := time.Now()
	hub.Emit(sampleEvent(StageSessionStart))
	require.Less(t, time.Since(start), 50*time.Millisecond)
}

// TestHubFlushOnClose ensures Close drains any buffered events before returning.
func TestHubFlushOnClose(t *testing.T) {
	t.Parallel()

	sink := newStubSink()
	hub := NewHub(Config{
		BufferSize:     4,
		MaxBatchEvents: 100,
		MaxBatchWait:   time.Minute,
	}, sink)

	hub.Emit(sampleEvent(StageGridDone))

	require.NoError(t, hub.Close(context.Background()))
	require.Len(t, sink.Batches(), 1)
	require.Len(t, sink.Batches()[0], 1)
}

// TestHubDropsInvalidEvents ensures events failing validation never reach sinks.
func TestHubDropsInvalidEvents(t *testing.T) {
	t.Parallel()

	sink := newStubSink()
	hub := NewHub(Config{MaxBatchWait: 10 * time.Millisecond}, sink)

	hub.Emit(Event{Stage: StageSessionStart})

	require.NoError(t, hub.Close(context.Background()))
	require.Empty(t, sink.Batches())
}

func TestTakeSnapshotETA(t *testing.T) {
	t.Parallel()

	s := discovery.Session{
		Status: discovery.SessionStatusRunning,
		Config: discovery.Config{TargetCount: 100},
		Grids: []discovery.Grid{
			{ID: "grid-0000", Status: discovery.GridStatusCompleted},
			{ID: "grid-0001", Status: discovery.GridStatusError},
			{ID: "grid-0002", Status: discovery.GridStatusPending},
			{ID: "grid-0003", Status: discovery.GridStatusPending},
		},
		Found:    37,
		Imported: 30,
	}

	snap := TakeSnapshot(s, 10*time.Minute)
	require.Equal(t, 2, snap.CompletedGrids)
	require.Equal(t, 1, snap.ErroredGrids)
	require.Equal(t, 50.0, snap.PercentComplete)
	// Two grids took ten minutes, two remain.
	require.Equal(t, 10*time.Minute, snap.ETA)

	// A terminal session reports zero ETA regardless of pending grids.
	s.Status = discovery.SessionStatusStopped
	require.Zero(t, TakeSnapshot(s, 10*time.Minute).ETA)

	// No completed grids yet means no estimate.
	for i := range s.Grids {
		s.Grids[i].Status = discovery.GridStatusPending
	}
	s.Status = discovery.SessionStatusRunning
	require.Zero(t, TakeSnapshot(s, time.Minute).ETA)
}

type stubSink struct {
	mu      sync.Mutex
	batches [][]Event
}

func newStubSink() *stubSink {
	return &stubSink{batches: [][]Event{}}
}

func (s *stubSink) Consume(_ context.Context, batch []Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copyBatch := append([]Event(nil), batch...)
	s.batches = append(s.batches, copyBatch)
	return nil
}

func (s *stubSink) Close(context.Context) error {
	return nil
}

func (s *stubSink) Batches() [][]Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([][]Event, len(s.batches))
	for i, b := range s.batches {
		out[i] = append([]Event(nil), b...)
	}
	return out
}

func sampleEvent(stage Stage) Event {
	id := uuid.New()
	evt := Event{
		SessionID: SessionIDBytes(id.String()),
		TS:        time.Now(),
		Stage:     stage,
	}
	if stage == StageGridDone {
		evt.GridID = "grid-0000"
	}
	return evt
}
