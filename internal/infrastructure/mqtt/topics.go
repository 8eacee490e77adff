package mqtt

import "fmt"

// Topic prefixes for MoIP Manager MQTT traffic.
//
// Events flow out under moip/event/{name}; commands flow in under
// moip/command/{name}. The system status topic carries the manager's
// online/offline state (retained, with LWT for crash detection).
const (
	// TopicPrefix is the base for all MoIP Manager topics.
	TopicPrefix = "moip"

	// TopicPrefixEvent is the base for outbound event topics.
	TopicPrefixEvent = "moip/event"

	// TopicPrefixCommand is the base for inbound command topics.
	TopicPrefixCommand = "moip/command"

	// TopicPrefixSystem is the base for system topics.
	TopicPrefixSystem = "moip/system"
)

// Topics provides builders for MoIP Manager MQTT topics.
// Using these helpers ensures consistent topic naming across the codebase.
//
//	topics := mqtt.Topics{}
//	eventTopic := topics.Event("routing.changed")
//	// Returns: "moip/event/routing.changed"
type Topics struct{}

// Event returns the topic an outbound event is published on.
//
// Example: moip/event/routing.changed
func (Topics) Event(name string) string {
	return fmt.Sprintf("%s/%s", TopicPrefixEvent, name)
}

// CommandSwitch returns the topic for inbound routing switch commands.
// Payload: {"tx": n, "rx": n} with tx = 0 meaning unassign.
//
// Topic: moip/command/switch
func (Topics) CommandSwitch() string {
	return TopicPrefixCommand + "/switch"
}

// CommandCEC returns the topic for inbound CEC commands.
// Payload: {"rx": n, "command": "power_on"}.
//
// Topic: moip/command/cec
func (Topics) CommandCEC() string {
	return TopicPrefixCommand + "/cec"
}

// SystemStatus returns the manager status topic.
//
// Example: moip/system/status
func (Topics) SystemStatus() string {
	return TopicPrefixSystem + "/status"
}

// AllEvents returns a pattern matching all outbound events.
//
// Pattern: moip/event/+
func (Topics) AllEvents() string {
	return TopicPrefixEvent + "/+"
}

// AllCommands returns a pattern matching all inbound commands.
//
// Pattern: moip/command/+
func (Topics) AllCommands() string {
	return TopicPrefixCommand + "/+"
}

// AllTopics returns a pattern matching all MoIP Manager topics.
// Use with caution - this receives ALL traffic.
//
// Pattern: moip/#
func (Topics) AllTopics() string {
	return "moip/#"
}
