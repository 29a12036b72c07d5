package mqtt

import "fmt"

// Topic prefixes for the device-local broker.
const (
	// TopicPrefix is the root of every WebGate topic.
	TopicPrefix = "stagetwo"

	// TopicPrefixCore is the base for topics published by the core.
	TopicPrefixCore = TopicPrefix + "/core"

	// TopicPrefixSystem is the base for system topics.
	TopicPrefixSystem = TopicPrefix + "/system"

	// TopicPrefixUI is the base for topics consumed by the screen process.
	TopicPrefixUI = TopicPrefix + "/ui"
)

// Topics provides builders for WebGate MQTT topics.
//
//	topic := mqtt.Topics{}.DisplayAuth()
//	// Returns: "stagetwo/ui/display/auth"
type Topics struct{}

// SystemStatus returns the online/offline status topic (also the LWT topic).
//
// Example: stagetwo/system/status
func (Topics) SystemStatus() string {
	return TopicPrefixSystem + "/status"
}

// DisplayAuth returns the retained topic carrying the current PIN frame
// for the screen process.
//
// Example: stagetwo/ui/display/auth
func (Topics) DisplayAuth() string {
	return TopicPrefixUI + "/display/auth"
}

// AuthEvent returns the topic for one kind of auth outcome.
//
// Example: stagetwo/core/auth/event/login
func (Topics) AuthEvent(kind string) string {
	return fmt.Sprintf("%s/auth/event/%s", TopicPrefixCore, kind)
}

// Command returns the topic local processes use to send maintenance
// commands (session revocation, factory reset) to the core.
//
// Example: stagetwo/core/command
func (Topics) Command() string {
	return TopicPrefixCore + "/command"
}
