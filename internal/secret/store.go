package secret

import (
	"crypto/rand"
	"fmt"
	"io"
	mathrand "math/rand/v2"
	"sync"
	"time"

	"github.com/stagetwo/webgate/internal/nvm"
)

// Secret is the raw device secret.
type Secret []byte

// String returns the secret as text. Generated secrets are base32 characters.
func (s Secret) String() string {
	return string(s)
}

// Config places the frame inside the region.
type Config struct {
	// Offset is the frame's byte offset in the region.
	Offset int64

	// Length is the secret length in bytes (1-255).
	Length int
}

// Info is a diagnostic snapshot of the store.
type Info struct {
	Stored      bool   `json:"stored"`
	Length      int    `json:"length"`
	Secret      string `json:"secret,omitempty"`
	Offset      int64  `json:"offset"`
	Degraded    bool   `json:"degraded"`
	WeakEntropy bool   `json:"weak_entropy"`
	Message     string `json:"message"`
}

// Logger is the optional logging surface used by Store.
// Compatible with logging.Logger and slog.Logger.
type Logger interface {
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Option configures a Store.
type Option func(*Store)

// WithRandom replaces crypto/rand as the entropy source.
func WithRandom(r io.Reader) Option {
	return func(s *Store) { s.random = r }
}

// WithLogger sets the logger for storage failures and weak entropy.
func WithLogger(l Logger) Option {
	return func(s *Store) { s.logger = l }
}

// WithClock sets the time source used to seed the fallback generator.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// Store reads and writes the secret frame.
//
// Thread Safety:
//   - All methods are safe for concurrent use.
type Store struct {
	mu     sync.Mutex
	region nvm.Region
	cfg    Config

	cached   Secret
	degraded bool
	weak     bool

	random io.Reader
	now    func() time.Time
	logger Logger
}

// New validates cfg against region and returns a Store. Nothing is read
// until the first Load.
func New(region nvm.Region, cfg Config, opts ...Option) (*Store, error) {
	if cfg.Length < 1 || cfg.Length > MaxLength {
		return nil, fmt.Errorf("%w: length %d outside 1..%d", ErrInvalidConfig, cfg.Length, MaxLength)
	}
	if cfg.Offset < 0 {
		return nil, fmt.Errorf("%w: negative offset %d", ErrInvalidConfig, cfg.Offset)
	}
	if need := cfg.Offset + int64(HeaderSize+cfg.Length); need > region.Size() {
		return nil, fmt.Errorf("%w: frame needs %d bytes, region has %d", ErrInvalidConfig, need, region.Size())
	}

	s := &Store{
		region: region,
		cfg:    cfg,
		random: rand.Reader,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Load returns the secret, generating and persisting one when the region
// holds no valid frame. It never fails; see Info for the degraded state.
func (s *Store) Load() Secret {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cached != nil {
		return clone(s.cached)
	}

	if payload, ok := s.readLocked(); ok {
		s.cached = payload
		return clone(payload)
	}

	fresh := s.generateLocked()
	if err := s.writeLocked(fresh); err != nil {
		s.degraded = true
		s.warn(true, "secret could not be persisted, holding it in memory only", "error", err)
	}
	s.cached = fresh
	return clone(fresh)
}

// Save normalises secret to the configured length and writes it. It
// returns false on storage failure, leaving the cached value untouched.
func (s *Store) Save(secret Secret) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	padded := normalise(secret, s.cfg.Length)
	if err := s.writeLocked(padded); err != nil {
		s.warn(true, "saving secret failed", "error", err)
		return false
	}

	s.cached = padded
	s.degraded = false
	s.weak = false
	return true
}

// Clear zero-fills the frame range. The next Load generates a new secret.
func (s *Store) Clear() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	zero := make([]byte, HeaderSize+s.cfg.Length)
	if _, err := s.region.WriteAt(zero, s.cfg.Offset); err != nil {
		s.warn(true, "clearing secret failed", "error", err)
		return false
	}

	s.cached = nil
	s.degraded = false
	s.weak = false
	return true
}

// Regenerate replaces the secret with a fresh one. The new secret is
// returned even when it could not be persisted; ok reports persistence.
func (s *Store) Regenerate() (secret Secret, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	fresh := s.generateLocked()
	err := s.writeLocked(fresh)
	if err != nil {
		s.warn(true, "regenerated secret could not be persisted, holding it in memory only", "error", err)
	}

	s.cached = fresh
	s.degraded = err != nil
	return clone(fresh), err == nil
}

// Info reports what the region holds without changing any state.
func (s *Store) Info() Info {
	s.mu.Lock()
	defer s.mu.Unlock()

	info := Info{
		Offset:      s.cfg.Offset,
		Degraded:    s.degraded,
		WeakEntropy: s.weak,
	}

	payload, ok := s.readLocked()
	switch {
	case ok:
		info.Stored = true
		info.Length = len(payload)
		info.Secret = string(payload)
		info.Message = "Secret stored"
	case s.degraded && s.cached != nil:
		info.Length = len(s.cached)
		info.Message = "Secret held in memory only; storage write failed"
	default:
		info.Message = "No secret stored"
	}

	if s.weak {
		info.Message += "; generated without a hardware random source"
	}
	return info
}

// Degraded reports whether the active secret exists only in memory.
func (s *Store) Degraded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.degraded
}

// readLocked reads and decodes the frame. Read errors count as absent.
func (s *Store) readLocked() (Secret, bool) {
	buf := make([]byte, HeaderSize+s.cfg.Length)
	if _, err := s.region.ReadAt(buf, s.cfg.Offset); err != nil {
		s.warn(false, "reading secret frame failed", "error", err)
		return nil, false
	}
	return decodeFrame(buf, s.cfg.Length)
}

func (s *Store) writeLocked(payload []byte) error {
	if _, err := s.region.WriteAt(encodeFrame(payload), s.cfg.Offset); err != nil {
		return fmt.Errorf("writing secret frame: %w", err)
	}
	return nil
}

// generateLocked draws Length characters from Alphabet. 256 is a multiple
// of 32, so masking a uniform byte keeps the distribution uniform.
func (s *Store) generateLocked() Secret {
	raw := make([]byte, s.cfg.Length)
	if _, err := io.ReadFull(s.random, raw); err != nil {
		s.weak = true
		s.warn(false, "random source failed, falling back to time-seeded generator", "error", err)

		seed := uint64(s.now().UnixNano()) //nolint:gosec // fallback only, flagged as weak
		fallback := mathrand.New(mathrand.NewPCG(seed, seed>>1|1))
		for i := range raw {
			raw[i] = byte(fallback.UintN(256))
		}
	} else {
		s.weak = false
	}

	out := make(Secret, len(raw))
	for i, b := range raw {
		out[i] = Alphabet[b&0x1F]
	}
	return out
}

func (s *Store) warn(isError bool, msg string, args ...any) {
	if s.logger == nil {
		return
	}
	if isError {
		s.logger.Error(msg, args...)
		return
	}
	s.logger.Warn(msg, args...)
}

func clone(s Secret) Secret {
	out := make(Secret, len(s))
	copy(out, s)
	return out
}
