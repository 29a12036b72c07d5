// Package influxdb provides InfluxDB connectivity for WebGate.
//
// It wraps the official influxdb-client-go v2 library for connection
// management, batched point writing, and health monitoring.
//
// # Purpose
//
// This package records auth telemetry:
//   - Login, failed PIN, lockout and revocation counts
//   - PIN rotations (never the PIN value)
//   - Live session counts
//
// # Usage
//
//	cfg := config.InfluxDBConfig{
//	    Enabled: true,
//	    URL:     "http://localhost:8086",
//	    Token:   "your-token",
//	    Org:     "stagetwo",
//	    Bucket:  "webgate",
//	}
//
//	client, err := influxdb.Connect(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	client.WriteAuthAttempt("login", "192.168.4.2", 3, 0)
//
// # Error Handling
//
// Write operations are non-blocking and batch errors are delivered to the
// SetOnError callback. Connection and health check errors are returned directly.
package influxdb
