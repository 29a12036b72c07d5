package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// Measurement names.
const (
	MeasurementAuthAttempts = "auth_attempts"
	MeasurementChallenge    = "challenge_rotations"
	MeasurementSessions     = "sessions"
)

// WriteAuthAttempt records one auth outcome.
//
// The outcome is a tag (low cardinality); the client id is a field so
// the series count does not grow with the number of browsers.
//
// Example:
//
//	client.WriteAuthAttempt("invalid_pin", "192.168.4.2", 7, 2)
func (c *Client) WriteAuthAttempt(outcome, clientID string, generation uint64, attemptsRemaining int) {
	fields := map[string]any{
		"count":      1,
		"generation": int64(generation), // #nosec G115 -- rotation count never approaches 2^63
	}
	if clientID != "" {
		fields["client_id"] = clientID
	}
	if attemptsRemaining > 0 {
		fields["attempts_remaining"] = attemptsRemaining
	}

	c.queue(MeasurementAuthAttempts, map[string]string{"outcome": outcome}, fields)
}

// WriteChallengeRotation records a PIN rotation. The PIN itself is never written.
func (c *Client) WriteChallengeRotation(generation uint64, duration time.Duration) {
	c.queue(MeasurementChallenge, nil, map[string]any{
		"generation":       int64(generation), // #nosec G115 -- see WriteAuthAttempt
		"duration_seconds": duration.Seconds(),
	})
}

// WriteSessionCount records the number of live session tokens.
func (c *Client) WriteSessionCount(active int) {
	c.queue(MeasurementSessions, nil, map[string]any{"active": active})
}

// queue adds one point stamped with the client clock. It is a no-op once
// the client is closed.
func (c *Client) queue(measurement string, tags map[string]string, fields map[string]any) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.open {
		return
	}
	c.writeAPI.WritePoint(write.NewPoint(measurement, tags, fields, c.now()))
}
