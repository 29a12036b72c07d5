// Package audit records auth and secret-management activity in the
// audit_logs table.
//
// Writes go through a Recorder, which queues entries on a bounded channel
// and persists them from a single goroutine so request handlers never wait
// on SQLite. Entries are best-effort: when the queue is full they are
// dropped with a warning.
//
// The Recorder also implements auth.Observer, turning login, failed PIN,
// lockout and revocation events into audit entries. Entries never contain
// a PIN, a session token or the device secret.
package audit
