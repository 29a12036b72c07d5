package auth

import (
	"crypto/subtle"
	"fmt"
	"sync"
	"time"

	"github.com/stagetwo/webgate/internal/challenge"
)

// Defaults applied by NewService for zero Config fields.
const (
	DefaultMaxAttempts = 5
	DefaultTokenLength = 32

	// minTokenLength keeps tokens out of brute-force range.
	minTokenLength = 16

	// unknownClient stands in for an empty client id.
	unknownClient = "unknown"
)

// Challenger is the PIN source the service verifies against.
// *challenge.Generator implements it.
//
// Next rotates without presenting; the service calls Announce for a
// rotated challenge only after releasing its own lock, so a slow display
// never stalls token checks.
type Challenger interface {
	Next() (c challenge.Challenge, age time.Duration, rotated bool)
	Announce(c challenge.Challenge)
	TimeRemaining() time.Duration
	Expired() bool
	Generation() uint64
	Duration() time.Duration
}

// Config controls lockout and token size.
type Config struct {
	MaxAttempts int
	TokenLength int
}

// Option configures a Service.
type Option func(*Service)

// WithTokenSource replaces GenerateToken.
func WithTokenSource(source func(n int) (string, error)) Option {
	return func(s *Service) { s.tokenSource = source }
}

// WithObserver registers an event observer. May be given more than once.
func WithObserver(o Observer) Option {
	return func(s *Service) { s.observers = append(s.observers, o) }
}

// WithClock sets the time stamped on events.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// Service verifies PINs and tracks issued session tokens.
//
// Thread Safety:
//   - Every method takes one mutex, so concurrent requests see the same
//     ordering a single request loop would.
type Service struct {
	mu   sync.Mutex
	pins Challenger
	cfg  Config

	// attempts holds failures against challenge generation attemptsGen.
	attempts    map[string]int
	attemptsGen uint64
	tokens      map[string]struct{}

	tokenSource func(n int) (string, error)
	observers   []Observer
	now         func() time.Time
}

// NewService returns a Service verifying against pins.
func NewService(pins Challenger, cfg Config, opts ...Option) (*Service, error) {
	if cfg.MaxAttempts == 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.TokenLength == 0 {
		cfg.TokenLength = DefaultTokenLength
	}
	if cfg.MaxAttempts < 1 {
		return nil, fmt.Errorf("%w: max attempts %d", ErrInvalidConfig, cfg.MaxAttempts)
	}
	if cfg.TokenLength < minTokenLength {
		return nil, fmt.Errorf("%w: token length %d below %d", ErrInvalidConfig, cfg.TokenLength, minTokenLength)
	}

	s := &Service{
		pins:        pins,
		cfg:         cfg,
		attempts:    make(map[string]int),
		attemptsGen: pins.Generation(),
		tokens:      make(map[string]struct{}),
		tokenSource: GenerateToken,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Verify checks pin for clientID and returns a new session token on success.
//
// A locked-out client is rejected before the PIN is looked at. Failures
// are returned as *VerifyError; token generation failures wrap
// ErrTokenGeneration.
func (s *Service) Verify(pin, clientID string) (string, error) {
	if clientID == "" {
		clientID = unknownClient
	}

	s.mu.Lock()
	token, ev, rotated, err := s.verifyLocked(pin, clientID)
	s.mu.Unlock()

	if rotated != nil {
		s.pins.Announce(*rotated)
	}
	if ev != nil {
		s.emit(*ev)
	}
	return token, err
}

// verifyLocked returns the rotated challenge, if any, for the caller to
// announce once s.mu is released.
func (s *Service) verifyLocked(pin, clientID string) (string, *Event, *challenge.Challenge, error) {
	s.syncAttemptsLocked()

	// Past the window the counters belong to a PIN about to be replaced.
	if !s.pins.Expired() && s.attempts[clientID] >= s.cfg.MaxAttempts {
		remaining := s.pins.TimeRemaining()
		return "", s.event(EventLockedOut, clientID, 0), nil, &VerifyError{
			Err:     ErrLockedOut,
			Reason:  reasonLockedOut,
			RetryIn: remaining,
		}
	}

	current, _, didRotate := s.pins.Next()
	s.syncAttemptsLocked()

	var rotated *challenge.Challenge
	if didRotate {
		rotated = &current
	}

	if subtle.ConstantTimeCompare([]byte(pin), []byte(current.PIN)) == 1 {
		token, err := s.mintLocked()
		if err != nil {
			return "", nil, rotated, err
		}
		delete(s.attempts, clientID)
		s.tokens[token] = struct{}{}
		return token, s.event(EventLogin, clientID, 0), rotated, nil
	}

	s.attempts[clientID]++
	left := max(s.cfg.MaxAttempts-s.attempts[clientID], 0)
	remaining := s.pins.TimeRemaining()
	return "", s.event(EventInvalidPIN, clientID, left), rotated, &VerifyError{
		Err:               ErrInvalidPIN,
		Reason:            fmt.Sprintf(reasonInvalidPIN, left, challenge.Seconds(remaining)),
		AttemptsRemaining: left,
		RetryIn:           remaining,
	}
}

// VerifyToken reports whether token was issued and not revoked.
func (s *Service) VerifyToken(token string) bool {
	if token == "" {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.tokens[token]
	return ok
}

// LogoutAll revokes every session token and returns how many there were.
// Failure counters are left alone.
func (s *Service) LogoutAll() int {
	s.mu.Lock()
	n := len(s.tokens)
	s.tokens = make(map[string]struct{})
	ev := s.event(EventLogoutAll, "", 0)
	ev.Revoked = n
	s.mu.Unlock()

	s.emit(*ev)
	return n
}

// Info returns the active PIN and its remaining time, rotating first if
// the window has ended. Callers decide whether to expose the PIN.
func (s *Service) Info() ChallengeInfo {
	s.mu.Lock()
	current, _, rotated := s.pins.Next()
	s.syncAttemptsLocked()
	remaining := challenge.Seconds(s.pins.TimeRemaining())
	duration := challenge.Seconds(s.pins.Duration())
	s.mu.Unlock()

	if rotated {
		s.pins.Announce(current)
	}
	return ChallengeInfo{
		PIN:           current.PIN,
		TimeRemaining: remaining,
		Duration:      duration,
		Message:       fmt.Sprintf("Enter PIN from display. Changes in %ds", remaining),
	}
}

// Stats returns counts for status reporting. It never rotates the PIN.
func (s *Service) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := Stats{
		ActiveSessions:   len(s.tokens),
		ChallengeGen:     s.pins.Generation(),
		PINTimeRemaining: challenge.Seconds(s.pins.TimeRemaining()),
		PINDuration:      challenge.Seconds(s.pins.Duration()),
	}

	if s.pins.Generation() != s.attemptsGen || s.pins.Expired() {
		return st
	}
	st.TrackedClients = len(s.attempts)
	for _, n := range s.attempts {
		if n >= s.cfg.MaxAttempts {
			st.LockedOutClients++
		}
	}
	return st
}

// syncAttemptsLocked drops counters left over from an earlier PIN.
func (s *Service) syncAttemptsLocked() {
	if gen := s.pins.Generation(); gen != s.attemptsGen {
		s.attempts = make(map[string]int)
		s.attemptsGen = gen
	}
}

func (s *Service) mintLocked() (string, error) {
	for {
		token, err := s.tokenSource(s.cfg.TokenLength)
		if err != nil {
			return "", err
		}
		if _, dup := s.tokens[token]; !dup {
			return token, nil
		}
	}
}

// event must be called with s.mu held.
func (s *Service) event(kind EventKind, clientID string, left int) *Event {
	return &Event{
		Kind:              kind,
		ClientID:          clientID,
		Generation:        s.pins.Generation(),
		AttemptsRemaining: left,
		Sessions:          len(s.tokens),
		Time:              s.now().UTC(),
	}
}

func (s *Service) emit(e Event) {
	for _, o := range s.observers {
		o.OnAuthEvent(e)
	}
}
