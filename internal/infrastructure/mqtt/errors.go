package mqtt

import "errors"

// Sentinels for callers that branch on the failure. Broker errors are
// wrapped beneath them.
var (
	// ErrNotConnected means the broker link is down; publishes are dropped.
	ErrNotConnected = errors.New("mqtt: client not connected")

	// ErrConnectionFailed is returned by Connect.
	ErrConnectionFailed = errors.New("mqtt: connection failed")

	// ErrPublishFailed covers display frames and auth events the broker
	// did not acknowledge in time.
	ErrPublishFailed = errors.New("mqtt: publish failed")

	// ErrSubscribeFailed covers the command topic subscription and its removal.
	ErrSubscribeFailed = errors.New("mqtt: subscribe failed")

	ErrInvalidQoS   = errors.New("mqtt: QoS must be 0, 1 or 2")
	ErrInvalidTopic = errors.New("mqtt: empty topic")
)
