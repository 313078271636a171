package session

import "errors"

var (
	// ErrNoActiveSession is returned by Stop when no session is capturing.
	ErrNoActiveSession = errors.New("no active session")

	// ErrSessionActive is returned by Start while a session is capturing.
	ErrSessionActive = errors.New("a session is already active")

	// ErrSessionNotFound is returned for ids with no live or stored session.
	ErrSessionNotFound = errors.New("session not found")

	// ErrFinalizeInFlight is returned when Stop is called while a finalize
	// for the same session is still running.
	ErrFinalizeInFlight = errors.New("finalize already in progress")
)
