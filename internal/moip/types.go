package moip

import "fmt"

// Kind identifies which side of the matrix an endpoint sits on.
type Kind string

// Endpoint kinds. The string values match the device_type column in the
// inventory and the tx/rx naming used across the management API.
const (
	KindTransmitter Kind = "tx"
	KindReceiver    Kind = "rx"
)

// Valid reports whether k is a known endpoint kind.
func (k Kind) Valid() bool {
	return k == KindTransmitter || k == KindReceiver
}

// Side returns the numeric side selector the line protocol uses in name
// queries: 1 for transmitters, 0 for receivers.
func (k Kind) Side() int {
	if k == KindTransmitter {
		return 1
	}
	return 0
}

// ParseKind converts a string into a Kind, accepting the long-form aliases
// used in API paths.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "tx", "transmitter", "transmitters":
		return KindTransmitter, nil
	case "rx", "receiver", "receivers":
		return KindReceiver, nil
	default:
		return "", fmt.Errorf("moip: unknown device kind %q", s)
	}
}

// DeviceCounts holds the number of endpoints the controller reports on each
// side of the matrix. Counts are queried live and never persisted.
type DeviceCounts struct {
	Transmitters int `json:"transmitters"`
	Receivers    int `json:"receivers"`
}

// RoutingAssignment maps one receiver to the transmitter it is consuming.
// Tx == 0 means the receiver is unassigned. A receiver has at most one
// assignment at any time.
type RoutingAssignment struct {
	Tx int `json:"tx"`
	Rx int `json:"rx"`
}

// Unassigned reports whether the receiver has no transmitter routed to it.
func (a RoutingAssignment) Unassigned() bool {
	return a.Tx == 0
}

// Subtype classifies what an endpoint carries: full audio/video, audio only,
// or membership in a video wall.
type Subtype string

// Endpoint subtypes.
const (
	SubtypeAV        Subtype = "av"
	SubtypeAudio     Subtype = "audio"
	SubtypeVideoWall Subtype = "videowall"
)

// CEC user-control codes sent to a display or AVR through a receiver.
// Multi-code commands are key-press followed by key-release; the controller
// forwards each code verbatim over the HDMI CEC line.
const (
	cecPowerOn    = "04"
	cecPowerOff   = "36"
	cecVolumeUp   = "44 41"
	cecVolumeDown = "44 42"
	cecMute       = "44 43"
	cecKeyRelease = "45"
)

// cecCommands maps a command name to the code sequence it sends.
var cecCommands = map[string][]string{
	"power_on":    {cecPowerOn},
	"power_off":   {cecPowerOff},
	"volume_up":   {cecVolumeUp, cecKeyRelease},
	"volume_down": {cecVolumeDown, cecKeyRelease},
	"mute":        {cecMute, cecKeyRelease},
}

// CECCodes returns the hex code sequence for a named remote-control command.
func CECCodes(command string) ([]string, error) {
	codes, ok := cecCommands[command]
	if !ok {
		return nil, fmt.Errorf("moip: unknown CEC command %q", command)
	}
	return codes, nil
}

// CECCommandNames returns the names of all supported CEC commands.
func CECCommandNames() []string {
	names := make([]string, 0, len(cecCommands))
	for name := range cecCommands {
		names = append(names, name)
	}
	return names
}
