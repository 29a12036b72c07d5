// Package metrics exposes WebGate counters in Prometheus format.
//
// A Metrics value is an auth.Observer (auth outcomes), a
// challenge.Presenter (PIN rotations) and an HTTP middleware (request
// counts and latency by route). Session and lockout gauges are read from
// the auth service at scrape time.
package metrics
