package geometry

import (
	"encoding/json"
	"fmt"
)

func (r Rectangle) MarshalJSON() ([]byte, error) {
	type plain Rectangle
	return json.Marshal(struct {
		Type Kind `json:"type"`
		plain
	}{KindRectangle, plain(r)})
}

func (c Circle) MarshalJSON() ([]byte, error) {
	type plain Circle
	return json.Marshal(struct {
		Type Kind `json:"type"`
		plain
	}{KindCircle, plain(c)})
}

func (p Polygon) MarshalJSON() ([]byte, error) {
	type plain Polygon
	return json.Marshal(struct {
		Type Kind `json:"type"`
		plain
	}{KindPolygon, plain(p)})
}

// Decode reads a serialized shape using its "type" tag.
func Decode(data []byte) (Shape, error) {
	var head struct {
		Type Kind `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, fmt.Errorf("decoding shape: %w", err)
	}

	switch head.Type {
	case KindRectangle:
		type plain Rectangle
		var r plain
		if err := json.Unmarshal(data, &r); err != nil {
			return nil, fmt.Errorf("decoding rectangle: %w", err)
		}
		return Rectangle(r), nil
	case KindCircle:
		type plain Circle
		var c plain
		if err := json.Unmarshal(data, &c); err != nil {
			return nil, fmt.Errorf("decoding circle: %w", err)
		}
		return Circle(c), nil
	case KindPolygon:
		type plain Polygon
		var p plain
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("decoding polygon: %w", err)
		}
		if p.Sides < 3 {
			return nil, fmt.Errorf("decoding polygon: %d sides", p.Sides)
		}
		return Polygon(p), nil
	default:
		return nil, fmt.Errorf("unknown shape type %q", head.Type)
	}
}
