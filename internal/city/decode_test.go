package city

import (
	"encoding/json"
	"reflect"
	"testing"

	"github.com/talgya/metro/internal/geometry"
)

func TestDecodeSnapshotRoundTrip(t *testing.T) {
	snap := mustGenerate(t, Params{Population: 250_000, CitySize: 15, Seed: 2944957927})
	data, err := json.Marshal(snap)
	if err != nil {
		t.Fatal(err)
	}
	got, err := DecodeSnapshot(data)
	if err != nil {
		t.Fatalf("DecodeSnapshot: %v", err)
	}
	if !reflect.DeepEqual(got.Districts, snap.Districts) {
		t.Error("districts changed across round trip")
	}
	if !reflect.DeepEqual(got.Infrastructure, snap.Infrastructure) {
		t.Error("infrastructure changed across round trip")
	}
	if !reflect.DeepEqual(got.Zones, snap.Zones) {
		t.Error("zones changed across round trip")
	}
}

func TestDecodeLegacyGroupedServices(t *testing.T) {
	legacy := `{
		"population": 1000,
		"area": 4,
		"districts": [
			{"id": "district_0", "name": "Old Town", "position": {"x": 1, "y": 1}, "size": 1, "type": "mixed", "population": 1000}
		],
		"infrastructure": {
			"roads": null,
			"services": {
				"school": [{"x": 1.5, "y": 0.5, "capacity": 300}],
				"hospital": [{"x": 0.5, "y": 1.5, "capacity": 80, "beds": 80}]
			}
		},
		"utilities": {"power_station": [{"x": 1, "y": 1, "capacity": 900}]}
	}`
	snap, err := DecodeSnapshot([]byte(legacy))
	if err != nil {
		t.Fatalf("DecodeSnapshot: %v", err)
	}

	if snap.CitySize != 2 {
		t.Errorf("expected city size derived from area, got %f", snap.CitySize)
	}
	if snap.Infrastructure.Roads == nil || len(snap.Infrastructure.Roads) != 0 {
		t.Errorf("expected empty road list, got %#v", snap.Infrastructure.Roads)
	}

	services := snap.Infrastructure.Services
	if len(services) != 2 {
		t.Fatalf("expected 2 services, got %d", len(services))
	}
	// Keys are flattened in sorted order.
	if services[0].Type != "hospital" || services[1].Type != "school" {
		t.Errorf("unexpected service order %v", services)
	}
	if services[0].Beds != 80 {
		t.Errorf("expected 80 beds, got %d", services[0].Beds)
	}

	if len(snap.Infrastructure.Utilities) != 1 || snap.Infrastructure.Utilities[0].Type != "power_station" {
		t.Errorf("expected top-level utilities to be picked up, got %v", snap.Infrastructure.Utilities)
	}

	d := snap.Districts[0]
	if d.Shape != (geometry.Rectangle{Width: 1, Height: 1}) {
		t.Errorf("expected default square shape, got %#v", d.Shape)
	}
	if z := snap.Zones[ZoneMixed]; z.Count != 1 || z.TotalPopulation != 1000 {
		t.Errorf("expected zones to be rebuilt, got %+v", snap.Zones)
	}
}

func TestDecodeSnapshotErrors(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"not json", `{`},
		{"bad services", `{"population": 10, "city_size": 1, "infrastructure": {"services": 5}}`},
		{"bad shape", `{"population": 10, "city_size": 1, "districts": [{"id": "d", "shape": {"type": "blob"}}]}`},
		{"no population", `{"city_size": 1}`},
		{"no size", `{"population": 10}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := DecodeSnapshot([]byte(tt.in)); err == nil {
				t.Error("expected error")
			}
		})
	}
}
