package audit

import (
	"context"
	"sync"

	"github.com/stagetwo/webgate/internal/auth"
)

// Actions recorded in the audit trail.
const (
	ActionLogin            = "login"
	ActionInvalidPIN       = "invalid_pin"
	ActionLockedOut        = "locked_out"
	ActionLogoutAll        = "logout_all"
	ActionSecretClear      = "secret_clear"
	ActionSecretRegenerate = "secret_regenerate"
	ActionFactoryReset     = "factory_reset"
)

// Entity types.
const (
	EntitySession = "session"
	EntitySecret  = "secret"
)

// Sources.
const (
	SourceAPI  = "api"
	SourceMQTT = "mqtt"
)

// DefaultQueueSize is the buffer size of the recorder queue.
// Entries beyond this are dropped to avoid back-pressure on requests.
const DefaultQueueSize = 256

// Logger is the subset of logging.Logger the recorder uses.
type Logger interface {
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Recorder queues audit entries and writes them serially.
type Recorder struct {
	repo   Repository
	logger Logger
	ch     chan *AuditLog
	done   chan struct{}
	once   sync.Once
}

// NewRecorder creates a recorder over repo. Call Run to start writing.
func NewRecorder(repo Repository, logger Logger, queueSize int) *Recorder {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	return &Recorder{
		repo:   repo,
		logger: logger,
		ch:     make(chan *AuditLog, queueSize),
		done:   make(chan struct{}),
	}
}

// Record enqueues an entry (best-effort). If the queue is full the entry
// is dropped and a warning is logged.
func (r *Recorder) Record(entry *AuditLog) {
	if r == nil || entry == nil {
		return
	}
	if entry.Source == "" {
		entry.Source = SourceAPI
	}

	select {
	case r.ch <- entry:
	default:
		r.logger.Warn("audit queue full, dropping entry",
			"action", entry.Action,
			"entity_type", entry.EntityType,
		)
	}
}

// OnAuthEvent implements auth.Observer.
func (r *Recorder) OnAuthEvent(e auth.Event) {
	entry := &AuditLog{
		Action:     string(e.Kind),
		EntityType: EntitySession,
		ClientID:   e.ClientID,
		Source:     SourceAPI,
		CreatedAt:  e.Time,
		Details:    map[string]any{"generation": e.Generation},
	}

	switch e.Kind {
	case auth.EventInvalidPIN:
		entry.Details["attempts_remaining"] = e.AttemptsRemaining
	case auth.EventLogoutAll:
		entry.Details["revoked"] = e.Revoked
	}

	r.Record(entry)
}

// Run writes queued entries until ctx is cancelled, then drains what is
// left and returns.
func (r *Recorder) Run(ctx context.Context) {
	defer r.once.Do(func() { close(r.done) })

	for {
		select {
		case entry := <-r.ch:
			r.write(entry)
		case <-ctx.Done():
			for {
				select {
				case entry := <-r.ch:
					r.write(entry)
				default:
					return
				}
			}
		}
	}
}

// Done is closed when Run has returned.
func (r *Recorder) Done() <-chan struct{} {
	return r.done
}

func (r *Recorder) write(entry *AuditLog) {
	// The request that produced the entry may already be gone.
	if err := r.repo.Create(context.Background(), entry); err != nil {
		r.logger.Error("audit log write failed",
			"action", entry.Action,
			"entity_type", entry.EntityType,
			"error", err,
		)
	}
}
