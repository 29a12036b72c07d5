package mqtt

import (
	"fmt"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
)

// Subscribe routes messages on topic to handler. WebGate subscribes only to
// its maintenance command topic; the subscription is replayed after every
// reconnect, and handler panics are recovered and logged.
func (c *Client) Subscribe(topic string, qos byte, handler MessageHandler) error {
	switch {
	case topic == "":
		return ErrInvalidTopic
	case qos > maxQoS:
		return ErrInvalidQoS
	case handler == nil:
		return fmt.Errorf("%w: nil handler for %s", ErrSubscribeFailed, topic)
	case !c.IsConnected():
		return ErrNotConnected
	}

	c.track(subscription{topic: topic, qos: qos, handler: handler})
	if err := wait(c.client.Subscribe(topic, qos, c.wrapHandler(handler)), ErrSubscribeFailed, defaultPublishTimeout); err != nil {
		c.untrack(topic)
		return err
	}
	return nil
}

// Unsubscribe stops delivery on topic. Messages already in flight may
// still reach the handler.
func (c *Client) Unsubscribe(topic string) error {
	if topic == "" {
		return ErrInvalidTopic
	}
	if !c.IsConnected() {
		return ErrNotConnected
	}

	c.untrack(topic)
	if err := wait(c.client.Unsubscribe(topic), ErrSubscribeFailed, defaultPublishTimeout); err != nil {
		return fmt.Errorf("unsubscribing %s: %w", topic, err)
	}
	return nil
}

func (c *Client) track(s subscription) {
	c.subMu.Lock()
	defer c.subMu.Unlock()
	c.subscriptions[s.topic] = s
}

func (c *Client) untrack(topic string) {
	c.subMu.Lock()
	defer c.subMu.Unlock()
	delete(c.subscriptions, topic)
}

// wait blocks for token up to timeout and wraps any failure in sentinel.
func wait(token pahomqtt.Token, sentinel error, timeout time.Duration) error {
	if !token.WaitTimeout(timeout) {
		return fmt.Errorf("%w: timeout after %v", sentinel, timeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %w", sentinel, err)
	}
	return nil
}
