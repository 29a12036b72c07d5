package challenge

import (
	"crypto/rand"
	"fmt"
	"math/big"
	mathrand "math/rand/v2"
	"strconv"
	"sync"
	"time"
)

// PIN format.
const (
	// Digits is the PIN length.
	Digits = 6

	// pinSpace is 10^Digits.
	pinSpace = 1_000_000

	// DefaultDuration is the rotation window used when Config.Duration is zero.
	DefaultDuration = 120 * time.Second

	// maxRedraws bounds attempts to draw a PIN different from the previous one.
	maxRedraws = 16
)

// Challenge is one generation of the PIN.
type Challenge struct {
	PIN         string
	GeneratedAt time.Time
	Duration    time.Duration
	Generation  uint64
}

// ExpiresAt returns the end of the challenge's validity window.
func (c Challenge) ExpiresAt() time.Time {
	return c.GeneratedAt.Add(c.Duration)
}

// Presenter shows a challenge on a local output surface.
type Presenter interface {
	Present(c Challenge) error
}

// PresenterFunc adapts a function to Presenter.
type PresenterFunc func(c Challenge) error

// Present calls f(c).
func (f PresenterFunc) Present(c Challenge) error { return f(c) }

// Logger is the optional logging surface for presenter failures.
type Logger interface {
	Warn(msg string, args ...any)
}

// Config controls the rotation window.
type Config struct {
	// Duration is the validity window. Zero means DefaultDuration.
	Duration time.Duration
}

// Option configures a Generator.
type Option func(*Generator)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(g *Generator) { g.now = now }
}

// WithPINSource replaces the random PIN source. Values are used as given.
func WithPINSource(source func() string) Option {
	return func(g *Generator) { g.source = source }
}

// WithPresenter registers a presenter. May be given more than once.
func WithPresenter(p Presenter) Option {
	return func(g *Generator) { g.presenters = append(g.presenters, p) }
}

// WithLogger sets the logger used for presenter failures.
func WithLogger(l Logger) Option {
	return func(g *Generator) { g.logger = l }
}

// Generator holds the single active challenge.
//
// Thread Safety:
//   - All methods are safe for concurrent use.
type Generator struct {
	mu       sync.Mutex
	duration time.Duration
	current  Challenge

	now        func() time.Time
	source     func() string
	presenters []Presenter
	logger     Logger
}

// New draws the first PIN and returns the generator.
func New(cfg Config, opts ...Option) (*Generator, error) {
	if cfg.Duration < 0 {
		return nil, fmt.Errorf("%w: duration %s", ErrInvalidConfig, cfg.Duration)
	}
	if cfg.Duration == 0 {
		cfg.Duration = DefaultDuration
	}

	g := &Generator{
		duration: cfg.Duration,
		now:      time.Now,
		source:   RandomPIN,
	}
	for _, opt := range opts {
		opt(g)
	}

	g.mu.Lock()
	c := g.rotateLocked(g.now())
	g.mu.Unlock()

	g.present(c)
	return g, nil
}

// Current returns the active challenge and its age, rotating first when
// the window has ended. At most one rotation happens per call. A new
// challenge is presented before Current returns.
func (g *Generator) Current() (Challenge, time.Duration) {
	c, age, rotated := g.Next()
	if rotated {
		g.Announce(c)
	}
	return c, age
}

// Next is Current without presentation. When rotated is true the caller
// owns presenting c through Announce, and must not hold locks that
// request handlers need while doing so.
func (g *Generator) Next() (c Challenge, age time.Duration, rotated bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	age = g.ageLocked(now)
	if age >= g.duration {
		g.rotateLocked(now)
		return g.current, 0, true
	}
	return g.current, age, false
}

// Announce hands c to every presenter. Presenter failures are logged.
func (g *Generator) Announce(c Challenge) {
	g.present(c)
}

// TimeRemaining returns how long the active PIN stays valid. It never
// rotates and never goes below zero.
func (g *Generator) TimeRemaining() time.Duration {
	g.mu.Lock()
	defer g.mu.Unlock()

	remaining := g.duration - g.ageLocked(g.now())
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Expired reports whether the next Current or Next call will rotate.
func (g *Generator) Expired() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.ageLocked(g.now()) >= g.duration
}

// Generation returns the active challenge's generation number. It
// increases by one on every rotation.
func (g *Generator) Generation() uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.current.Generation
}

// Duration returns the rotation window.
func (g *Generator) Duration() time.Duration {
	return g.duration
}

// ageLocked clamps to zero when the clock steps backwards.
func (g *Generator) ageLocked(now time.Time) time.Duration {
	age := now.Sub(g.current.GeneratedAt)
	if age < 0 {
		return 0
	}
	return age
}

func (g *Generator) rotateLocked(now time.Time) Challenge {
	prev := g.current.PIN
	pin := g.source()
	for i := 0; pin == prev && i < maxRedraws; i++ {
		pin = g.source()
	}
	if pin == prev {
		pin = nextPIN(prev)
	}

	g.current = Challenge{
		PIN:         pin,
		GeneratedAt: now,
		Duration:    g.duration,
		Generation:  g.current.Generation + 1,
	}
	return g.current
}

func (g *Generator) present(c Challenge) {
	for _, p := range g.presenters {
		if err := p.Present(c); err != nil && g.logger != nil {
			g.logger.Warn("presenting PIN failed", "generation", c.Generation, "error", err)
		}
	}
}

// RandomPIN draws a uniform 6-digit PIN from crypto/rand, falling back to
// math/rand/v2 if the system source fails.
func RandomPIN() string {
	n, err := rand.Int(rand.Reader, big.NewInt(pinSpace))
	if err != nil {
		return FormatPIN(mathrand.IntN(pinSpace)) //nolint:gosec // fallback when crypto/rand is unavailable
	}
	return FormatPIN(int(n.Int64()))
}

// FormatPIN zero-pads n to Digits characters.
func FormatPIN(n int) string {
	return fmt.Sprintf("%0*d", Digits, n%pinSpace)
}

// IsPIN reports whether s has the PIN shape: exactly Digits ASCII digits.
func IsPIN(s string) bool {
	if len(s) != Digits {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// nextPIN returns a PIN guaranteed to differ from prev.
func nextPIN(prev string) string {
	n, err := strconv.Atoi(prev)
	if err != nil {
		return FormatPIN(0)
	}
	return FormatPIN(n + 1)
}

// Seconds rounds d up to whole seconds, the unit shown to users.
func Seconds(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int((d + time.Second - 1) / time.Second)
}
