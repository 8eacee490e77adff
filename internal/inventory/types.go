package inventory

import (
	"time"

	"github.com/bbellwfu/moip-manager/internal/moip"
)

// Device is one persistent inventory record for a matrix endpoint.
//
// GroupID is the stable identity: it comes from the controller's structured
// API and follows the logical endpoint even when hardware is swapped into a
// different slot. DeviceIndex is the protocol-visible 1-based slot the
// device currently occupies; it is transient and never used as a storage key.
//
// Nullable metadata fields are pointers so that reconciliation can express
// "unknown this pass" (nil, preserve the stored value) distinctly from an
// explicit value.
type Device struct {
	GroupID     int          `json:"group_id"`
	DeviceType  moip.Kind    `json:"device_type"`
	DeviceIndex int          `json:"device_index"`
	Subtype     moip.Subtype `json:"subtype"`

	Name     *string `json:"name,omitempty"`
	IconType *string `json:"icon_type,omitempty"`
	MAC      *string `json:"mac_address,omitempty"`
	IP       *string `json:"ip_address,omitempty"`
	Model    *string `json:"model,omitempty"`
	Firmware *string `json:"firmware,omitempty"`
	UnitID   *int    `json:"unit_id,omitempty"`

	// Receiver output cache, refreshed whenever receiver video settings
	// are read or written through the management API.
	Resolution *string `json:"resolution,omitempty"`
	HDCP       *string `json:"hdcp,omitempty"`

	LastSeen  time.Time `json:"last_seen"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DisplayName returns the stored name, or empty when none is set.
func (d *Device) DisplayName() string {
	if d.Name == nil {
		return ""
	}
	return *d.Name
}

// StringPtr returns a pointer to s, or nil when s is empty. Incoming
// protocol data uses empty strings for absent fields; the merge policy
// needs them as nils.
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// IntPtr returns a pointer to v.
func IntPtr(v int) *int {
	return &v
}
