package city

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"sort"

	"github.com/talgya/metro/internal/geometry"
)

// UnmarshalJSON decodes a district, resolving its tagged shape. A district
// without a shape gets a square block of its size.
func (d *District) UnmarshalJSON(data []byte) error {
	type plain District
	var raw struct {
		plain
		Shape json.RawMessage `json:"shape"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*d = District(raw.plain)

	if isNull(raw.Shape) {
		d.Shape = geometry.Rectangle{Width: d.Size, Height: d.Size}
		return nil
	}
	shape, err := geometry.Decode(raw.Shape)
	if err != nil {
		return fmt.Errorf("district %s: %w", d.ID, err)
	}
	d.Shape = shape
	return nil
}

// DecodeSnapshot reads a serialized snapshot. Roads, utilities and services
// are accepted either as lists or, from older exports, as objects mapping a
// sub-type to a list; the latter are flattened in key order so the result
// always holds plain lists. Lists found at the top level instead of under
// "infrastructure" are accepted too.
func DecodeSnapshot(data []byte) (*Snapshot, error) {
	type plain Snapshot
	type lists struct {
		Roads     json.RawMessage `json:"roads"`
		Utilities json.RawMessage `json:"utilities"`
		Services  json.RawMessage `json:"services"`
	}
	var raw struct {
		plain
		Infrastructure lists `json:"infrastructure"`
		lists
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decoding snapshot: %w", err)
	}

	snap := Snapshot(raw.plain)
	var err error
	snap.Infrastructure.Roads, err = decodeList(either(raw.Infrastructure.Roads, raw.Roads), func(r *Road, k string) {
		if r.Kind == "" {
			r.Kind = k
		}
	})
	if err != nil {
		return nil, fmt.Errorf("decoding roads: %w", err)
	}
	snap.Infrastructure.Utilities, err = decodeList(either(raw.Infrastructure.Utilities, raw.Utilities), func(u *Utility, k string) {
		if u.Type == "" {
			u.Type = k
		}
	})
	if err != nil {
		return nil, fmt.Errorf("decoding utilities: %w", err)
	}
	snap.Infrastructure.Services, err = decodeList(either(raw.Infrastructure.Services, raw.Services), func(s *Service, k string) {
		if s.Type == "" {
			s.Type = k
		}
	})
	if err != nil {
		return nil, fmt.Errorf("decoding services: %w", err)
	}

	if snap.CitySize == 0 && snap.Area > 0 {
		snap.CitySize = math.Sqrt(snap.Area)
	}
	if err := ValidatePopulation(snap.Population); err != nil {
		return nil, err
	}
	if err := ValidateCitySize(snap.CitySize); err != nil {
		return nil, err
	}
	if snap.Districts == nil {
		snap.Districts = []District{}
	}
	if snap.Zones == nil {
		snap.Zones = AggregateZones(snap.Districts)
	}
	return &snap, nil
}

func either(a, b json.RawMessage) json.RawMessage {
	if !isNull(a) {
		return a
	}
	return b
}

func isNull(raw json.RawMessage) bool {
	t := bytes.TrimSpace(raw)
	return len(t) == 0 || bytes.Equal(t, []byte("null"))
}

// decodeList accepts a JSON list or an object of lists. For the object form
// each element is passed to label with its key.
func decodeList[T any](raw json.RawMessage, label func(*T, string)) ([]T, error) {
	out := make([]T, 0)
	if isNull(raw) {
		return out, nil
	}

	switch bytes.TrimSpace(raw)[0] {
	case '[':
		if err := json.Unmarshal(raw, &out); err != nil {
			return nil, err
		}
		if out == nil {
			out = make([]T, 0)
		}
		return out, nil
	case '{':
		var grouped map[string][]T
		if err := json.Unmarshal(raw, &grouped); err != nil {
			return nil, err
		}
		keys := make([]string, 0, len(grouped))
		for k := range grouped {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			for _, item := range grouped[k] {
				label(&item, k)
				out = append(out, item)
			}
		}
		return out, nil
	default:
		return nil, fmt.Errorf("expected list or object, got %.20s", raw)
	}
}
