package progress

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/nichelabs/discovery-engine/internal/discovery"
)

// Stage denotes the type of milestone represented by an Event.
type Stage string

// Supported progress stages.
const (
	StageSessionStart  Stage = "SESSION_START"
	StageSessionResume Stage = "SESSION_RESUME"
	StageSessionPause  Stage = "SESSION_PAUSE"
	StageSessionDone   Stage = "SESSION_DONE"
	StageSessionError  Stage = "SESSION_ERROR"
	StageGridDone      Stage = "GRID_DONE"
)

// Snapshot is the full progress picture attached to every event after a grid
// completes. It is recomputed from the session rather than accumulated so a
// consumer can miss events without drifting.
type Snapshot struct {
	Status          discovery.SessionStatus
	TotalGrids      int
	CompletedGrids  int
	ErroredGrids    int
	Found           int
	Imported        int
	TargetCount     int
	PercentComplete float64
	Elapsed         time.Duration
	ETA             time.Duration
}

// TakeSnapshot derives a Snapshot from a session and the wall time elapsed
// since the run started. The ETA is elapsed-per-grid times remaining grids,
// zero once the session reaches a terminal status.
func TakeSnapshot(s discovery.Session, elapsed time.Duration) Snapshot {
	snap := Snapshot{
		Status:      s.Status,
		TotalGrids:  len(s.Grids),
		Found:       s.Found,
		Imported:    s.Imported,
		TargetCount: s.Config.TargetCount,
		Elapsed:     elapsed,
	}
	for _, g := range s.Grids {
		switch g.Status {
		case discovery.GridStatusCompleted:
			snap.CompletedGrids++
		case discovery.GridStatusError:
			snap.CompletedGrids++
			snap.ErroredGrids++
		}
	}
	if snap.TotalGrids > 0 {
		snap.PercentComplete = 100 * float64(snap.CompletedGrids) / float64(snap.TotalGrids)
	}
	remaining := snap.TotalGrids - snap.CompletedGrids
	if !s.Terminal() && snap.CompletedGrids > 0 && remaining > 0 && elapsed > 0 {
		perGrid := elapsed / time.Duration(snap.CompletedGrids)
		snap.ETA = perGrid * time.Duration(remaining)
	}
	return snap
}

// Event captures a single component of discovery progress.
type Event struct {
	// SessionID uniquely identifies a session using the 16-byte UUID form.
	SessionID [16]byte
	// TS is the UTC timestamp recorded by the emitter.
	TS time.Time
	// Stage denotes which lifecycle milestone occurred.
	Stage Stage
	// GridID scopes grid events to one tile.
	GridID string
	// Snapshot carries the full session progress at emit time.
	Snapshot Snapshot
	// Dur captures grid search latency and final session runtime.
	Dur time.Duration
	// Note lets emitters attach low-volume debug context (e.g. error text).
	Note string
}

// Validate performs coarse validation on Event payloads.
func (e Event) Validate() error {
	if e.SessionID == [16]byte{} {
		return errors.New("session id is required")
	}
	if e.TS.IsZero() {
		return errors.New("timestamp is required")
	}
	switch e.Stage {
	case StageSessionStart, StageSessionResume, StageSessionPause, StageSessionDone, StageSessionError:
	case StageGridDone:
		if e.GridID == "" {
			return errors.New("grid done requires grid id")
		}
	default:
		return fmt.Errorf("unknown stage %q", e.Stage)
	}
	if e.Dur < 0 {
		return errors.New("duration must be >= 0")
	}
	return nil
}

// SessionUUID converts the binary session ID to uuid.UUID for repositories.
func (e Event) SessionUUID() uuid.UUID {
	return uuid.UUID(e.SessionID)
}

// SessionIDBytes encodes a session ID string into the Event form. Unparseable
// IDs return the zero value, which Validate rejects.
func SessionIDBytes(id string) [16]byte {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return [16]byte{}
	}
	var dest [16]byte
	copy(dest[:], parsed[:])
	return dest
}
