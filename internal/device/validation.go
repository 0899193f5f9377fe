package device

import (
	"fmt"
	"regexp"
	"strings"
)

// Validation constants.
const (
	maxNameLength = 100

	// Bluetooth RSSI readings are reported in dBm within [-127, 20].
	minRSSI = -127
	maxRSSI = 20
)

var addressRegex = regexp.MustCompile(`^[0-9A-F]{2}(:[0-9A-F]{2}){5}$`)

// NormalizeAddress converts a hardware address into canonical form.
// Dashes are accepted as separators and letters are upper-cased.
func NormalizeAddress(addr string) (Address, error) {
	a := strings.ToUpper(strings.TrimSpace(addr))
	a = strings.ReplaceAll(a, "-", ":")
	if !addressRegex.MatchString(a) {
		return "", fmt.Errorf("%w: %q", ErrInvalidAddress, addr)
	}
	return a, nil
}

// ValidateName checks that a device name fits in prompts.
// An empty name is allowed.
func ValidateName(name string) error {
	if len(strings.TrimSpace(name)) > maxNameLength {
		return fmt.Errorf("%w: name exceeds %d characters", ErrInvalidName, maxNameLength)
	}
	return nil
}

// ValidateRSSI checks that a reference lies within the range a radio reports.
func ValidateRSSI(rssi int) error {
	if rssi < minRSSI || rssi > maxRSSI {
		return fmt.Errorf("%w: %d outside [%d, %d]", ErrInvalidRSSI, rssi, minRSSI, maxRSSI)
	}
	return nil
}

// Normalize validates d and returns it with a canonical address and trimmed name.
func Normalize(d Device) (Device, error) {
	addr, err := NormalizeAddress(d.Address)
	if err != nil {
		return Device{}, fmt.Errorf("%w: %w", ErrInvalidDevice, err)
	}
	if err := ValidateName(d.Name); err != nil {
		return Device{}, fmt.Errorf("%w: %w", ErrInvalidDevice, err)
	}
	if err := ValidateRSSI(d.RSSIReference); err != nil {
		return Device{}, fmt.Errorf("%w: %w", ErrInvalidDevice, err)
	}

	d.Address = addr
	d.Name = strings.TrimSpace(d.Name)
	return d, nil
}
