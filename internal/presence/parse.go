package presence

import (
	"encoding/json"
	"fmt"
)

// ParseSighting decodes a JSON sighting such as {"address":"AA:..","rssi":-60}.
func ParseSighting(payload []byte) (Sighting, error) {
	var s Sighting
	if err := json.Unmarshal(payload, &s); err != nil {
		return Sighting{}, fmt.Errorf("%w: %w", ErrInvalidSighting, err)
	}
	if s.Address == "" {
		return Sighting{}, fmt.Errorf("%w: missing address", ErrInvalidSighting)
	}
	return s, nil
}
