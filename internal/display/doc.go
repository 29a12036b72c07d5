// Package display puts the current PIN on the device's local output
// surfaces.
//
// Console writes the PIN to the service log for headless units. MQTT
// publishes a retained frame on the device-local broker, where the screen
// process renders it (optionally with a quick-access QR code).
package display
