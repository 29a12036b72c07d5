package display

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/stagetwo/webgate/internal/challenge"
)

// Frame is what a screen needs to render the auth prompt.
type Frame struct {
	PIN        string    `json:"pin"`
	Generation uint64    `json:"generation"`
	ExpiresAt  time.Time `json:"expires_at"`
	Duration   int       `json:"duration"`
	QuickURL   string    `json:"quick_url,omitempty"`
}

// NewFrame builds the frame for c. host, when set, adds a quick-access URL.
func NewFrame(c challenge.Challenge, host string) Frame {
	return Frame{
		PIN:        c.PIN,
		Generation: c.Generation,
		ExpiresAt:  c.ExpiresAt().UTC(),
		Duration:   challenge.Seconds(c.Duration),
		QuickURL:   QuickURL(host, c.PIN),
	}
}

// QuickURL returns http://host/?pin=<pin>, or "" when host is empty.
func QuickURL(host, pin string) string {
	if host == "" {
		return ""
	}
	u := url.URL{
		Scheme:   "http",
		Host:     host,
		Path:     "/",
		RawQuery: url.Values{"pin": {pin}}.Encode(),
	}
	return u.String()
}

// Logger is the surface Console writes to.
type Logger interface {
	Info(msg string, args ...any)
}

// Console logs every new PIN.
type Console struct {
	logger Logger
	host   string
}

// NewConsole returns a console presenter.
func NewConsole(logger Logger, quickAccessHost string) *Console {
	return &Console{logger: logger, host: quickAccessHost}
}

// Present logs the PIN and its expiry.
func (c *Console) Present(ch challenge.Challenge) error {
	f := NewFrame(ch, c.host)
	args := []any{"pin", f.PIN, "generation", f.Generation, "expires_at", f.ExpiresAt.Format(time.RFC3339)}
	if f.QuickURL != "" {
		args = append(args, "quick_url", f.QuickURL)
	}
	c.logger.Info("CONSOLE PIN", args...)
	return nil
}

// Publisher sends retained messages. *mqtt.Client implements it.
type Publisher interface {
	PublishRetained(topic string, payload []byte) error
}

// MQTT publishes frames to the screen process.
type MQTT struct {
	pub   Publisher
	topic string
	host  string
}

// NewMQTT returns a presenter publishing to topic.
func NewMQTT(pub Publisher, topic, quickAccessHost string) *MQTT {
	return &MQTT{pub: pub, topic: topic, host: quickAccessHost}
}

// Present publishes the frame as retained JSON so a screen that starts
// later still shows the live PIN.
func (m *MQTT) Present(ch challenge.Challenge) error {
	payload, err := json.Marshal(NewFrame(ch, m.host))
	if err != nil {
		return fmt.Errorf("encoding display frame: %w", err)
	}
	if err := m.pub.PublishRetained(m.topic, payload); err != nil {
		return fmt.Errorf("publishing display frame: %w", err)
	}
	return nil
}

// Multi fans a challenge out to several presenters. Every presenter runs;
// their errors are joined.
type Multi []challenge.Presenter

// Present calls every presenter in order.
func (m Multi) Present(ch challenge.Challenge) error {
	var errs []error
	for _, p := range m {
		if err := p.Present(ch); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
