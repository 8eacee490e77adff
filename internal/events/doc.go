// Package events fans manager events out to MQTT and WebSocket clients and
// accepts inbound matrix commands over MQTT.
//
// Outbound events are published on moip/event/{name} and mirrored to the
// WebSocket broadcast channel of the same name. Both sinks are optional:
// a Bus built without an MQTT client or broadcast function simply skips
// that sink. Inbound commands arrive on moip/command/switch and
// moip/command/cec so home-automation systems can drive the matrix without
// touching the HTTP API.
package events
