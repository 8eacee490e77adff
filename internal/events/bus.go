package events

import (
	"encoding/json"
	"fmt"

	"github.com/bbellwfu/moip-manager/internal/infrastructure/logging"
	"github.com/bbellwfu/moip-manager/internal/infrastructure/mqtt"
	"github.com/bbellwfu/moip-manager/internal/reconcile"
	"github.com/bbellwfu/moip-manager/internal/snapshot"
)

// Event channel names. The same name is used as the MQTT topic suffix
// (moip/event/{name}) and the WebSocket subscription channel.
const (
	EventRoutingChanged    = "routing.changed"
	EventSyncCompleted     = "sync.completed"
	EventSnapshotRestored  = "snapshot.restored"
	EventDeviceNameChanged = "device.name_changed"
)

// Broker is the subset of the MQTT client the bus needs.
type Broker interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
}

// BroadcastFunc delivers an event payload to WebSocket subscribers of a channel.
type BroadcastFunc func(channel string, payload any)

// Bus publishes manager events to the configured sinks. Either sink may be
// nil; publishing to an absent sink is a no-op.
type Bus struct {
	broker    Broker
	qos       byte
	broadcast BroadcastFunc
	logger    *logging.Logger
}

// New creates an event bus. broker and broadcast are both optional.
func New(broker Broker, qos byte, broadcast BroadcastFunc, logger *logging.Logger) *Bus {
	return &Bus{
		broker:    broker,
		qos:       qos,
		broadcast: broadcast,
		logger:    logger,
	}
}

// SetBroadcast installs the WebSocket broadcast sink after construction.
// The API server's hub is built later in startup than the bus.
func (b *Bus) SetBroadcast(fn BroadcastFunc) {
	b.broadcast = fn
}

// RoutingChangedEvent is published when a receiver's source assignment changes.
// Tx is 0 when the receiver was unassigned.
type RoutingChangedEvent struct {
	Tx     int    `json:"tx"`
	Rx     int    `json:"rx"`
	Source string `json:"source"`
}

// DeviceNameChangedEvent is published when a device's display name is updated.
type DeviceNameChangedEvent struct {
	DeviceType string `json:"device_type"`
	Index      int    `json:"index"`
	Name       string `json:"name"`
}

// SnapshotRestoredEvent carries the outcome of a snapshot restore.
type SnapshotRestoredEvent struct {
	SnapshotID string                  `json:"snapshot_id"`
	Result     *snapshot.RestoreResult `json:"result"`
}

// RoutingChanged announces a routing switch. source identifies what drove the
// change ("api", "mqtt", "restore").
func (b *Bus) RoutingChanged(tx, rx int, source string) {
	b.publish(EventRoutingChanged, RoutingChangedEvent{Tx: tx, Rx: rx, Source: source})
}

// SyncCompleted announces a finished reconciliation pass.
func (b *Bus) SyncCompleted(result reconcile.Result) {
	b.publish(EventSyncCompleted, result)
}

// SnapshotRestored announces a completed snapshot restore, including any
// per-item failures collected along the way.
func (b *Bus) SnapshotRestored(id string, result *snapshot.RestoreResult) {
	b.publish(EventSnapshotRestored, SnapshotRestoredEvent{SnapshotID: id, Result: result})
}

// DeviceNameChanged announces a device rename.
func (b *Bus) DeviceNameChanged(deviceType string, index int, name string) {
	b.publish(EventDeviceNameChanged, DeviceNameChangedEvent{
		DeviceType: deviceType,
		Index:      index,
		Name:       name,
	})
}

// publish delivers an event to both sinks. Failures are logged, never
// propagated: event delivery must not fail the operation that produced it.
func (b *Bus) publish(name string, payload any) {
	if b.broker != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			b.logger.Error("failed to marshal event", "event", name, "error", err)
			return
		}
		topic := mqtt.Topics{}.Event(name)
		if err := b.broker.Publish(topic, data, b.qos, false); err != nil {
			b.logger.Warn("mqtt event publish failed", "topic", topic, "error", err)
		}
	}

	if b.broadcast != nil {
		b.broadcast(name, payload)
	}
}

// SwitchCommand is the payload accepted on moip/command/switch.
// Tx 0 unassigns the receiver.
type SwitchCommand struct {
	Tx int `json:"tx"`
	Rx int `json:"rx"`
}

// CECCommand is the payload accepted on moip/command/cec.
type CECCommand struct {
	Rx      int    `json:"rx"`
	Command string `json:"command"`
}

// SubscribeCommands registers MQTT handlers for inbound matrix commands.
// Handler errors are logged and absorbed; a malformed payload or failed
// switch must not tear down the subscription. Returns an error only if the
// subscriptions themselves cannot be established, and is a no-op without
// a broker.
func (b *Bus) SubscribeCommands(onSwitch func(tx, rx int) error, onCEC func(rx int, command string) error) error {
	if b.broker == nil {
		return nil
	}

	topics := mqtt.Topics{}

	err := b.broker.Subscribe(topics.CommandSwitch(), b.qos, func(topic string, payload []byte) error {
		var cmd SwitchCommand
		if err := json.Unmarshal(payload, &cmd); err != nil {
			b.logger.Warn("malformed switch command", "topic", topic, "error", err)
			return nil
		}
		if cmd.Rx <= 0 {
			b.logger.Warn("switch command missing rx", "topic", topic)
			return nil
		}
		if err := onSwitch(cmd.Tx, cmd.Rx); err != nil {
			b.logger.Warn("mqtt switch command failed", "tx", cmd.Tx, "rx", cmd.Rx, "error", err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("subscribing to switch commands: %w", err)
	}

	err = b.broker.Subscribe(topics.CommandCEC(), b.qos, func(topic string, payload []byte) error {
		var cmd CECCommand
		if err := json.Unmarshal(payload, &cmd); err != nil {
			b.logger.Warn("malformed cec command", "topic", topic, "error", err)
			return nil
		}
		if cmd.Rx <= 0 || cmd.Command == "" {
			b.logger.Warn("cec command missing rx or command", "topic", topic)
			return nil
		}
		if err := onCEC(cmd.Rx, cmd.Command); err != nil {
			b.logger.Warn("mqtt cec command failed", "rx", cmd.Rx, "command", cmd.Command, "error", err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("subscribing to cec commands: %w", err)
	}

	return nil
}
