// Package control handles maintenance commands sent to the core over MQTT
// by other processes on the unit (the settings menu on the local screen,
// the factory-reset button handler).
//
// Commands arrive as JSON on the command topic:
//
//	{"command": "logout_all"}
//	{"command": "regenerate_secret"}
//	{"command": "factory_reset"}
//
// A factory reset clears the device secret and revokes every session.
package control
