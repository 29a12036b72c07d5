package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stagetwo/webgate/internal/infrastructure/config"
)

// testConfig returns a configuration for a broker at 127.0.0.1:1883.
func testConfig() config.MQTTConfig {
	return config.MQTTConfig{
		Enabled: true,
		Broker: config.MQTTBrokerConfig{
			Host:     "127.0.0.1",
			Port:     1883,
			ClientID: "webgate-test",
		},
		QoS: 1,
		Reconnect: config.MQTTReconnectConfig{
			InitialDelay: 1,
			MaxDelay:     5,
		},
	}
}

// connectOrSkip connects to the local broker, skipping the test when none is running.
func connectOrSkip(t *testing.T, clientID string) *Client {
	t.Helper()
	conn, err := net.DialTimeout("tcp", "127.0.0.1:1883", 500*time.Millisecond)
	if err != nil {
		t.Skipf("no MQTT broker at 127.0.0.1:1883: %v", err)
	}
	conn.Close()

	cfg := testConfig()
	cfg.Broker.ClientID = clientID
	client, err := Connect(cfg)
	if err != nil {
		t.Skipf("no MQTT broker at 127.0.0.1:1883: %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return client
}

// =============================================================================
// Broker-free tests
// =============================================================================

func TestConnectInvalidBroker(t *testing.T) {
	cfg := testConfig()
	cfg.Broker.Port = 19999

	_, err := Connect(cfg)
	if err == nil {
		t.Fatal("Connect() expected error for invalid broker")
	}
	if !errors.Is(err, ErrConnectionFailed) {
		t.Errorf("Connect() error = %v, want ErrConnectionFailed", err)
	}
}

func TestCloseNil(t *testing.T) {
	client := &Client{}
	if err := client.Close(); err != nil {
		t.Errorf("Close() on nil client error = %v, want nil", err)
	}
}

func TestIsConnected_InitialState(t *testing.T) {
	client := &Client{}
	if client.IsConnected() {
		t.Error("IsConnected() should be false for uninitialised client")
	}
}

func TestTopicBuilders(t *testing.T) {
	topics := Topics{}
	tests := []struct {
		name string
		got  string
		want string
	}{
		{"SystemStatus", topics.SystemStatus(), "stagetwo/system/status"},
		{"DisplayAuth", topics.DisplayAuth(), "stagetwo/ui/display/auth"},
		{"AuthEvent", topics.AuthEvent("login"), "stagetwo/core/auth/event/login"},
		{"Command", topics.Command(), "stagetwo/core/command"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("%s = %q, want %q", tt.name, tt.got, tt.want)
			}
		})
	}
}

func TestStatusPayloads(t *testing.T) {
	tests := []struct {
		name       string
		payload    string
		wantStatus string
		wantReason string
	}{
		{"online", buildOnlinePayload("webgate-1"), "online", ""},
		{"offline", buildOfflinePayload("webgate-1"), "offline", "graceful_shutdown"},
		{"will", statusPayload("offline", "webgate-1", "unexpected_disconnect"), "offline", "unexpected_disconnect"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var msg statusMessage
			if err := json.Unmarshal([]byte(tt.payload), &msg); err != nil {
				t.Fatalf("payload is not JSON: %v", err)
			}
			if msg.Status != tt.wantStatus {
				t.Errorf("Status = %q, want %q", msg.Status, tt.wantStatus)
			}
			if msg.Reason != tt.wantReason {
				t.Errorf("Reason = %q, want %q", msg.Reason, tt.wantReason)
			}
			if msg.ClientID != "webgate-1" {
				t.Errorf("ClientID = %q, want webgate-1", msg.ClientID)
			}
			if _, err := time.Parse(time.RFC3339, msg.Timestamp); err != nil {
				t.Errorf("Timestamp %q not RFC3339: %v", msg.Timestamp, err)
			}
		})
	}
}

func TestBuildClientOptions(t *testing.T) {
	cfg := testConfig()
	cfg.Auth.Username = "core"
	cfg.Auth.Password = "secret"

	opts := buildClientOptions(cfg)
	configureLWT(opts, cfg.Broker.ClientID)

	if opts.ClientID != "webgate-test" {
		t.Errorf("ClientID = %q, want webgate-test", opts.ClientID)
	}
	if opts.Username != "core" {
		t.Errorf("Username = %q, want core", opts.Username)
	}
	if len(opts.Servers) != 1 || opts.Servers[0].String() != "tcp://127.0.0.1:1883" {
		t.Errorf("Servers = %v, want [tcp://127.0.0.1:1883]", opts.Servers)
	}
	if !opts.WillEnabled || opts.WillTopic != (Topics{}).SystemStatus() || !opts.WillRetained {
		t.Errorf("LWT = enabled:%v topic:%q retained:%v", opts.WillEnabled, opts.WillTopic, opts.WillRetained)
	}
}

// =============================================================================
// Broker tests
// =============================================================================

func TestConnectAndClose(t *testing.T) {
	client := connectOrSkip(t, "webgate-test-close")

	if !client.IsConnected() {
		t.Fatal("IsConnected() = false, want true")
	}
	if err := client.HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck() error = %v", err)
	}
	if err := client.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	if !errors.Is(client.HealthCheck(context.Background()), ErrNotConnected) {
		t.Error("HealthCheck() after Close() want ErrNotConnected")
	}
}

func TestPublishValidation(t *testing.T) {
	client := connectOrSkip(t, "webgate-test-validate")

	if err := client.Publish("", []byte("x"), 1, false); err == nil {
		t.Error("Publish() with empty topic should fail")
	}
	if err := client.Publish("stagetwo/test", []byte("x"), 3, false); err == nil {
		t.Error("Publish() with QoS 3 should fail")
	}
	if err := client.Subscribe("stagetwo/test", 1, nil); err == nil {
		t.Error("Subscribe() with nil handler should fail")
	}
}

func TestPublishJSONRoundtrip(t *testing.T) {
	sub := connectOrSkip(t, "webgate-test-sub")
	pub := connectOrSkip(t, "webgate-test-pub")

	topic := Topics{}.AuthEvent("test")
	received := make(chan []byte, 1)
	if err := sub.Subscribe(topic, 1, func(_ string, payload []byte) error {
		received <- payload
		return nil
	}); err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	sub.subMu.RLock()
	_, tracked := sub.subscriptions[topic]
	sub.subMu.RUnlock()
	if !tracked {
		t.Fatalf("subscription not tracked for reconnect")
	}

	time.Sleep(100 * time.Millisecond)

	if err := pub.PublishJSON(topic, map[string]string{"kind": "test"}, false); err != nil {
		t.Fatalf("PublishJSON() error = %v", err)
	}

	select {
	case payload := <-received:
		var got map[string]string
		if err := json.Unmarshal(payload, &got); err != nil || got["kind"] != "test" {
			t.Errorf("payload = %s, want kind=test", payload)
		}
	case <-time.After(5 * time.Second):
		t.Error("timeout waiting for message")
	}

	if err := sub.Unsubscribe(topic); err != nil {
		t.Errorf("Unsubscribe() error = %v", err)
	}
	sub.subMu.RLock()
	_, tracked = sub.subscriptions[topic]
	sub.subMu.RUnlock()
	if tracked {
		t.Error("subscription still tracked after Unsubscribe()")
	}
}

func TestHandlerErrorIsLogged(t *testing.T) {
	client := connectOrSkip(t, "webgate-test-handler-err")
	logger := &mockLogger{}
	client.SetLogger(logger)

	topic := "stagetwo/test/handler-error"
	called := make(chan struct{}, 1)
	if err := client.Subscribe(topic, 1, func(string, []byte) error {
		called <- struct{}{}
		return errors.New("handler error")
	}); err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}

	time.Sleep(100 * time.Millisecond)
	if err := client.Publish(topic, []byte("x"), 1, false); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	select {
	case <-called:
	case <-time.After(2 * time.Second):
		t.Fatal("handler was not called")
	}
}

type mockLogger struct {
	mu     sync.Mutex
	errors []string
	warns  []string
}

func (l *mockLogger) Error(msg string, _ ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.errors = append(l.errors, msg)
}

func (l *mockLogger) Warn(msg string, _ ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.warns = append(l.warns, msg)
}
