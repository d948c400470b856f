package discovery

import "errors"

// Sentinel errors shared across store implementations and the orchestrator.
var (
	// ErrSessionNotFound signals that the requested session does not exist.
	ErrSessionNotFound = errors.New("session not found")
	// ErrVersionConflict signals a stale snapshot write: another driver has
	// persisted a newer version of the session.
	ErrVersionConflict = errors.New("session snapshot version conflict")
	// ErrRecordNotFound signals that the requested business record does not exist.
	ErrRecordNotFound = errors.New("business record not found")
	// ErrSessionTerminal signals an attempt to drive a completed/stopped/error session.
	ErrSessionTerminal = errors.New("session is in a terminal state")
	// ErrSessionNotRunning signals a pause/stop request for a session no
	// orchestrator is currently driving.
	ErrSessionNotRunning = errors.New("session is not running")
	// ErrSessionAlreadyRunning signals a second Run call for a session this
	// process is already driving.
	ErrSessionAlreadyRunning = errors.New("session is already running")
)
