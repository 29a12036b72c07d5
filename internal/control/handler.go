package control

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/stagetwo/webgate/internal/audit"
	"github.com/stagetwo/webgate/internal/infrastructure/mqtt"
	"github.com/stagetwo/webgate/internal/secret"
)

// Commands understood by the handler.
const (
	CommandLogoutAll        = "logout_all"
	CommandRegenerateSecret = "regenerate_secret"
	CommandFactoryReset     = "factory_reset"
)

// Errors returned by Handle.
var (
	ErrMalformedCommand = errors.New("control: malformed command")
	ErrUnknownCommand   = errors.New("control: unknown command")
	ErrSecretWrite      = errors.New("control: secret storage write failed")
)

// Sessions revokes session tokens.
type Sessions interface {
	LogoutAll() int
}

// Secrets is the subset of secret.Store the handler drives.
type Secrets interface {
	Clear() bool
	Regenerate() (secret.Secret, bool)
}

// Subscriber is the subset of the MQTT client the handler needs.
type Subscriber interface {
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
	Unsubscribe(topic string) error
}

// Recorder receives audit entries.
type Recorder interface {
	Record(entry *audit.AuditLog)
}

// Logger is the subset of logging.Logger the handler uses.
type Logger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
}

// Message is the command payload.
type Message struct {
	Command string `json:"command"`
}

// Handler executes maintenance commands.
type Handler struct {
	sessions Sessions
	secrets  Secrets
	recorder Recorder
	logger   Logger
	topic    string
	sub      Subscriber
}

// New creates a handler. recorder may be nil.
func New(sessions Sessions, secrets Secrets, recorder Recorder, logger Logger) *Handler {
	return &Handler{
		sessions: sessions,
		secrets:  secrets,
		recorder: recorder,
		logger:   logger,
	}
}

// Start subscribes to topic and handles every message received on it.
func (h *Handler) Start(sub Subscriber, topic string, qos byte) error {
	if err := sub.Subscribe(topic, qos, h.HandleMessage); err != nil {
		return fmt.Errorf("subscribing to %s: %w", topic, err)
	}
	h.sub = sub
	h.topic = topic
	return nil
}

// Stop removes the subscription made by Start.
func (h *Handler) Stop() error {
	if h.sub == nil {
		return nil
	}
	sub := h.sub
	h.sub = nil
	return sub.Unsubscribe(h.topic)
}

// HandleMessage decodes a payload and runs the command. It satisfies
// mqtt.MessageHandler; returned errors are logged by the MQTT client.
func (h *Handler) HandleMessage(_ string, payload []byte) error {
	var msg Message
	if err := json.Unmarshal(payload, &msg); err != nil {
		return fmt.Errorf("%w: %w", ErrMalformedCommand, err)
	}
	return h.Handle(msg.Command)
}

// Handle runs one command.
func (h *Handler) Handle(command string) error {
	switch command {
	case CommandLogoutAll:
		n := h.sessions.LogoutAll()
		h.logger.Info("sessions revoked by command", "revoked", n)
		return nil

	case CommandRegenerateSecret:
		s, ok := h.secrets.Regenerate()
		h.record(audit.ActionSecretRegenerate, map[string]any{"length": len(s), "persisted": ok})
		if !ok {
			return ErrSecretWrite
		}
		h.logger.Info("secret regenerated by command", "length", len(s))
		return nil

	case CommandFactoryReset:
		ok := h.secrets.Clear()
		n := h.sessions.LogoutAll()
		h.record(audit.ActionFactoryReset, map[string]any{"revoked": n, "persisted": ok})
		h.logger.Warn("factory reset", "revoked", n, "secret_cleared", ok)
		if !ok {
			return ErrSecretWrite
		}
		return nil

	default:
		return fmt.Errorf("%w: %q", ErrUnknownCommand, command)
	}
}

func (h *Handler) record(action string, details map[string]any) {
	if h.recorder == nil {
		return
	}
	h.recorder.Record(&audit.AuditLog{
		Action:     action,
		EntityType: audit.EntitySecret,
		Source:     audit.SourceMQTT,
		Details:    details,
		CreatedAt:  time.Now().UTC(),
	})
}
