package auth

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors for auth operations.
var (
	ErrInvalidPIN      = errors.New("invalid PIN")
	ErrLockedOut       = errors.New("too many failed attempts")
	ErrTokenGeneration = errors.New("generating session token")
	ErrInvalidConfig   = errors.New("auth: invalid configuration")
	ErrNoCredential    = errors.New("no bearer credential")
)

// User-facing failure reasons.
const (
	reasonLockedOut  = "Too many failed attempts. Wait for PIN refresh."
	reasonInvalidPIN = "Invalid PIN. %d attempts remaining. PIN changes in %ds"
)

// VerifyError describes a rejected PIN submission. It unwraps to
// ErrInvalidPIN or ErrLockedOut.
type VerifyError struct {
	Err error

	// Reason is the message shown to the user.
	Reason string

	// AttemptsRemaining is the number of failures left before lockout.
	// Zero for lockouts.
	AttemptsRemaining int

	// RetryIn is the time left on the current PIN.
	RetryIn time.Duration
}

func (e *VerifyError) Error() string {
	return fmt.Sprintf("%v: %s", e.Err, e.Reason)
}

func (e *VerifyError) Unwrap() error {
	return e.Err
}

// EventKind classifies an Event.
type EventKind string

// Event kinds.
const (
	EventLogin      EventKind = "login"
	EventInvalidPIN EventKind = "invalid_pin"
	EventLockedOut  EventKind = "locked_out"
	EventLogoutAll  EventKind = "logout_all"
)

// Event is emitted to observers after every Verify and LogoutAll.
// It never carries the PIN or a token.
type Event struct {
	Kind              EventKind `json:"kind"`
	ClientID          string    `json:"client_id,omitempty"`
	Generation        uint64    `json:"generation"`
	AttemptsRemaining int       `json:"attempts_remaining,omitempty"`
	Revoked           int       `json:"revoked,omitempty"`
	Sessions          int       `json:"sessions"`
	Time              time.Time `json:"time"`
}

// Observer receives auth events. Observers run outside the service lock
// and must not block for long.
type Observer interface {
	OnAuthEvent(e Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(e Event)

// OnAuthEvent calls f(e).
func (f ObserverFunc) OnAuthEvent(e Event) { f(e) }

// ChallengeInfo feeds the PIN info endpoint.
type ChallengeInfo struct {
	PIN           string `json:"pin,omitempty"`
	TimeRemaining int    `json:"time_remaining"`
	Duration      int    `json:"duration"`
	Message       string `json:"message"`
}

// Stats is a snapshot of service state for status reporting.
type Stats struct {
	ActiveSessions   int    `json:"active_sessions"`
	TrackedClients   int    `json:"tracked_clients"`
	LockedOutClients int    `json:"locked_out_clients"`
	ChallengeGen     uint64 `json:"challenge_generation"`
	PINTimeRemaining int    `json:"pin_time_remaining"`
	PINDuration      int    `json:"pin_duration"`
}
