package device

import (
	"fmt"
	"time"
)

// Address is a Bluetooth hardware address in canonical form ("AA:BB:CC:DD:EE:FF").
type Address = string

// Device is a registered personal device.
type Device struct {
	// Address is the canonical hardware address and the registry key.
	Address Address `yaml:"address" json:"address"`

	// Name is a human label shown in approval prompts. Optional.
	Name string `yaml:"name,omitempty" json:"name,omitempty"`

	// RSSIReference is the weakest signal strength (dBm) at which the device
	// counts as present. Zero disables the check.
	RSSIReference int `yaml:"rssi_reference,omitempty" json:"rssi_reference,omitempty"`

	CreatedAt time.Time `yaml:"-" json:"created_at,omitzero"`
}

// Key returns the registry identity of the device.
func (d Device) Key() Address {
	return d.Address
}

// String formats the device for prompts and logs: "name/address (rssi)".
func (d Device) String() string {
	name := d.Name
	if name == "" {
		name = "unnamed"
	}
	return fmt.Sprintf("%s/%s (%d)", name, d.Address, d.RSSIReference)
}

// InRange reports whether a sighting with the given signal strength satisfies
// the device's RSSI reference. Sightings without a reading (rssi == 0) always
// match, as do devices without a reference.
func (d Device) InRange(rssi int) bool {
	if d.RSSIReference == 0 || rssi == 0 {
		return true
	}
	return rssi >= d.RSSIReference
}
