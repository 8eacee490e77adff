// Package mqtt provides MQTT client connectivity for MoIP Manager.
//
// This package manages:
//   - Broker connection with automatic reconnection
//   - Message publishing with QoS and retained message support
//   - Topic subscriptions with automatic restoration on reconnect
//   - Last Will and Testament for offline detection
//   - Consistent topic naming via the Topics builders
//
// MQTT is the manager's home-automation integration surface: matrix
// events (routing changes, sync results, snapshot restores) are published
// under moip/event/..., and the matrix can be driven from external systems
// through moip/command/... topics.
//
//	MoIP Manager ↔ MQTT Broker ↔ Home automation / external controllers
//
// The integration is optional: when mqtt.enabled is false, the manager
// runs with the events bus publishing to WebSocket clients only.
//
// Usage:
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	topic := mqtt.Topics{}.Event("routing.changed")
//	err = client.Publish(topic, payload, 1, false)
package mqtt
