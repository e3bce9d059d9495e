// Package city generates a static city snapshot from a population, a city
// size and a master seed. The same inputs always produce the same snapshot.
package city

import (
	"time"

	"github.com/talgya/metro/internal/geometry"
)

// ZoneType classifies the land use of a district.
type ZoneType string

const (
	ZoneResidential ZoneType = "residential"
	ZoneCommercial  ZoneType = "commercial"
	ZoneIndustrial  ZoneType = "industrial"
	ZoneMixed       ZoneType = "mixed"
	ZonePark        ZoneType = "park"
)

// ZoneTypes lists every zone type in display order.
var ZoneTypes = []ZoneType{ZoneResidential, ZoneCommercial, ZoneIndustrial, ZoneMixed, ZonePark}

// District is one contiguous area of a single zone type.
type District struct {
	ID         string         `json:"id"`
	Name       string         `json:"name"`
	Position   geometry.Point `json:"position"` // km from the city origin
	Size       float64        `json:"size"`     // km
	Type       ZoneType       `json:"type"`
	Shape      geometry.Shape `json:"shape"` // centred on Position
	Population int            `json:"population"`
	Density    float64        `json:"density"` // people per km²
}

// Area returns the footprint area of the district in km².
func (d District) Area() float64 {
	if d.Shape == nil {
		return d.Size * d.Size
	}
	return d.Shape.Area()
}

// Zone aggregates all districts of one type.
type Zone struct {
	Type            ZoneType `json:"type"`
	Count           int      `json:"count"`
	TotalArea       float64  `json:"total_area"`
	TotalPopulation int      `json:"total_population"`
}

// Road is a straight segment. Coordinates are km, width is metres.
type Road struct {
	Kind       string  `json:"kind"`
	X1         float64 `json:"x1"`
	Y1         float64 `json:"y1"`
	X2         float64 `json:"x2"`
	Y2         float64 `json:"y2"`
	Width      float64 `json:"width"`
	Importance int     `json:"importance"`
}

// Length returns the segment length in km.
func (r Road) Length() float64 {
	return geometry.Pt(r.X1, r.Y1).Distance(geometry.Pt(r.X2, r.Y2))
}

// Utility is a point facility such as a power station.
type Utility struct {
	Type     string  `json:"type"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Capacity int     `json:"capacity"`
}

// Service is a point facility serving residents.
type Service struct {
	Type     string  `json:"type"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Capacity int     `json:"capacity"`
	Beds     int     `json:"beds,omitempty"`
}

// Infrastructure groups the networked parts of a city. All three fields are
// always lists, never nil, so they serialize as [] rather than null.
type Infrastructure struct {
	Roads     []Road    `json:"roads"`
	Utilities []Utility `json:"utilities"`
	Services  []Service `json:"services"`
}

// Demographics summarises the population of a static snapshot.
type Demographics struct {
	Tier       string         `json:"tier"`
	AgeGroups  map[string]int `json:"age_groups"`
	Income     map[string]int `json:"income"`
	Households int            `json:"households"`
}

// Snapshot is one generated state of a city. A snapshot is never modified
// after it is returned.
type Snapshot struct {
	Population     int               `json:"population"`
	Area           float64           `json:"area"`
	CitySize       float64           `json:"city_size"`
	Districts      []District        `json:"districts"`
	Zones          map[ZoneType]Zone `json:"zones"`
	Infrastructure Infrastructure    `json:"infrastructure"`
	Demographics   *Demographics     `json:"demographics,omitempty"`
	Seed           uint32            `json:"seed"`
	GeneratedAt    *time.Time        `json:"generated_at,omitempty"`
}

// Stamped returns a copy of s carrying the given generation time.
func (s Snapshot) Stamped(t time.Time) Snapshot {
	t = t.UTC()
	s.GeneratedAt = &t
	return s
}

// DistrictPopulation sums the populations of all districts.
func (s *Snapshot) DistrictPopulation() int {
	total := 0
	for _, d := range s.Districts {
		total += d.Population
	}
	return total
}
