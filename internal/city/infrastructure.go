package city

import (
	"fmt"
	"math"

	"github.com/talgya/metro/internal/entropy"
	"github.com/talgya/metro/internal/geometry"
)

// Road kinds. Importance runs from 1 (local) to 5 (founding axes).
const (
	RoadArterial  = "arterial"
	RoadDiagonal  = "diagonal"
	RoadLocal     = "local"
	RoadCardo     = "cardo"
	RoadDecumanus = "decumanus"
	RoadSecondary = "secondary"
	RoadRing      = "ring"
)

var arterialDirections = []string{"horizontal", "vertical", "diagonal"}

// generateRoads lays arterial roads across the whole city, then a few local
// streets around every district.
func generateRoads(p Params, districts []District, s *entropy.Stream) ([]Road, error) {
	size := p.CitySize
	roads := make([]Road, 0)

	for i := 0; i < max(2, len(districts)/3); i++ {
		dir, err := entropy.Choice(s, arterialDirections)
		if err != nil {
			return nil, fmt.Errorf("choosing arterial direction: %w", err)
		}
		width := s.Uniform(20, 40)
		switch dir {
		case "horizontal":
			y := s.Uniform(0, size)
			roads = append(roads, Road{Kind: RoadArterial, X1: 0, Y1: y, X2: size, Y2: y, Width: width, Importance: 3})
		case "vertical":
			x := s.Uniform(0, size)
			roads = append(roads, Road{Kind: RoadArterial, X1: x, Y1: 0, X2: x, Y2: size, Width: width, Importance: 3})
		default:
			y1, y2 := s.Uniform(0, size), s.Uniform(0, size)
			roads = append(roads, Road{Kind: RoadDiagonal, X1: 0, Y1: y1, X2: size, Y2: y2, Width: width, Importance: 2})
		}
	}

	for _, d := range districts {
		for j, n := 0, s.Randint(2, 5); j < n; j++ {
			length := s.Uniform(0.5, 1.0) * d.Size
			offset := s.Uniform(-d.Size/2, d.Size/2)
			width := s.Uniform(8, 16)
			var r Road
			if s.Chance(0.5) {
				y := Clamp(d.Position.Y+offset, 0, size)
				r = Road{X1: d.Position.X - length/2, Y1: y, X2: d.Position.X + length/2, Y2: y}
			} else {
				x := Clamp(d.Position.X+offset, 0, size)
				r = Road{X1: x, Y1: d.Position.Y - length/2, X2: x, Y2: d.Position.Y + length/2}
			}
			r.X1, r.X2 = Clamp(r.X1, 0, size), Clamp(r.X2, 0, size)
			r.Y1, r.Y2 = Clamp(r.Y1, 0, size), Clamp(r.Y2, 0, size)
			r.Kind, r.Width, r.Importance = RoadLocal, width, 1
			roads = append(roads, r)
		}
	}
	return roads, nil
}

// generateUtilities places power, water and waste plants sized to serve an
// even share of the population with some headroom.
func generateUtilities(p Params, districts []District, s *entropy.Stream) []Utility {
	n := len(districts)
	plan := []struct {
		kind  string
		count int
	}{
		{"power_station", max(1, n/4)},
		{"water_treatment", max(1, n/6)},
		{"waste_management", max(1, n/8)},
	}

	utilities := make([]Utility, 0)
	for _, u := range plan {
		share := float64(p.Population) / float64(u.count)
		for i := 0; i < u.count; i++ {
			utilities = append(utilities, Utility{
				Type:     u.kind,
				X:        s.Uniform(0, p.CitySize),
				Y:        s.Uniform(0, p.CitySize),
				Capacity: int(math.Round(share * s.Uniform(1.1, 1.5))),
			})
		}
	}
	return utilities
}

// generateServices places hospitals, schools, police and fire stations near
// randomly chosen districts.
func generateServices(p Params, districts []District, s *entropy.Stream) ([]Service, error) {
	n := len(districts)
	plan := []struct {
		kind  string
		count int
	}{
		{"hospital", max(1, n/8)},
		{"school", max(2, n/2)},
		{"police", max(1, n/5)},
		{"fire", max(1, n/5)},
	}

	services := make([]Service, 0)
	for _, sv := range plan {
		for i := 0; i < sv.count; i++ {
			d, err := entropy.Choice(s, districts)
			if err != nil {
				return nil, fmt.Errorf("placing %s: %w", sv.kind, err)
			}
			pos := jitter(d.Position, d.Size/2, p.CitySize, s)
			svc := Service{Type: sv.kind, X: pos.X, Y: pos.Y}
			switch sv.kind {
			case "hospital":
				svc.Beds = s.Randint(50, 300)
				svc.Capacity = svc.Beds
			case "school":
				svc.Capacity = s.Randint(200, 1500)
			case "police":
				svc.Capacity = s.Randint(20, 100)
			default:
				svc.Capacity = s.Randint(10, 60)
			}
			services = append(services, svc)
		}
	}
	return services, nil
}

// jitter moves p by up to radius on each axis, staying inside the city.
func jitter(p geometry.Point, radius, size float64, s *entropy.Stream) geometry.Point {
	return geometry.Pt(
		Clamp(p.X+s.Uniform(-radius, radius), 0, size),
		Clamp(p.Y+s.Uniform(-radius, radius), 0, size),
	)
}
