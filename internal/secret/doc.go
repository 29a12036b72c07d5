// Package secret persists the device secret in an NVM region.
//
// The secret is stored as a self-describing frame at a fixed offset:
//
//	+0..+3     magic, ASCII "TOTP"
//	+4         payload length n, 0 < n <= configured length
//	+5..+5+n   payload
//
// A frame with the wrong magic, a zero length, or a length above the
// configured one is treated as absent. Load never fails: an absent or
// unreadable frame is replaced by a freshly generated secret. When that
// secret cannot be written back, the store keeps it in memory for the
// process lifetime and reports itself as degraded through Info.
package secret
