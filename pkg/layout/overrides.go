package layout

import (
	"encoding/json"
	"maps"
)

// Overrides holds positions the user placed by hand. They are applied by
// [Merge] after the automatic layout and never influence it.
//
// Pins can only be added or cleared all at once; there is no per-node
// reset. The zero value is empty and ready to use.
type Overrides struct {
	pins map[string]Point
}

// Pin fixes node id at top-left corner p.
func (o *Overrides) Pin(id string, p Point) {
	if o.pins == nil {
		o.pins = make(map[string]Point)
	}
	o.pins[id] = p
}

// Clear removes every pin.
func (o *Overrides) Clear() { o.pins = nil }

// Lookup returns the pinned position of id. It is safe on a nil receiver.
func (o *Overrides) Lookup(id string) (Point, bool) {
	if o == nil {
		return Point{}, false
	}
	p, ok := o.pins[id]
	return p, ok
}

// Len returns the number of pins. It is safe on a nil receiver.
func (o *Overrides) Len() int {
	if o == nil {
		return 0
	}
	return len(o.pins)
}

// MarshalJSON encodes the pins as an object of id to point.
func (o *Overrides) MarshalJSON() ([]byte, error) {
	if o == nil || o.pins == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(o.pins)
}

// UnmarshalJSON replaces the pins with the decoded object.
func (o *Overrides) UnmarshalJSON(data []byte) error {
	var pins map[string]Point
	if err := json.Unmarshal(data, &pins); err != nil {
		return err
	}
	o.pins = pins
	return nil
}

// Merge returns auto with every pinned position substituted. Pins for IDs
// that are not part of auto (deleted nodes, options that lost their
// target) are ignored. Neither argument is modified.
func Merge(auto Positions, overrides *Overrides) Positions {
	out := maps.Clone(auto)
	if out == nil {
		out = Positions{}
	}
	for id := range out {
		if p, ok := overrides.Lookup(id); ok {
			out[id] = p
		}
	}
	return out
}
