// Package discovery advertises the admin interface over mDNS/DNS-SD so a
// browser on the same network can find the unit by name.
//
// The record carries the HTTP port and a few TXT keys (path, version and
// whether a PIN is required). It never carries the PIN.
package discovery
