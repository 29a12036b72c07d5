package mqtt

import (
	"encoding/json"
	"fmt"
)

// maxPayloadSize bounds a single message. Display frames and auth events
// are a few hundred bytes.
const maxPayloadSize = 1 << 20

// Publish sends payload on topic and waits for the broker to acknowledge
// it. Display frames are retained so a restarted screen process picks up
// the current PIN; auth events are not.
func (c *Client) Publish(topic string, payload []byte, qos byte, retained bool) error {
	switch {
	case topic == "":
		return ErrInvalidTopic
	case qos > maxQoS:
		return ErrInvalidQoS
	case len(payload) > maxPayloadSize:
		return fmt.Errorf("%w: payload of %d bytes exceeds %d", ErrPublishFailed, len(payload), maxPayloadSize)
	case !c.IsConnected():
		return ErrNotConnected
	}
	return wait(c.client.Publish(topic, qos, retained, payload), ErrPublishFailed, defaultPublishTimeout)
}

// PublishRetained publishes a retained message at the configured QoS.
// The MQTT display presenter uses it for the PIN frame.
func (c *Client) PublishRetained(topic string, payload []byte) error {
	return c.Publish(topic, payload, byte(c.cfg.QoS), true)
}

// PublishJSON encodes v as JSON and publishes it at the configured QoS.
func (c *Client) PublishJSON(topic string, v any, retained bool) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("%w: encoding payload: %w", ErrPublishFailed, err)
	}
	return c.Publish(topic, payload, byte(c.cfg.QoS), retained)
}
