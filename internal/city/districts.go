package city

import (
	"fmt"
	"math"
	"strconv"

	opensimplex "github.com/ojrac/opensimplex-go"

	"github.com/talgya/metro/internal/entropy"
	"github.com/talgya/metro/internal/geometry"
)

// Zone weights for static district typing. Parks are never drawn directly.
var zoneWeights = []entropy.Weighted[ZoneType]{
	{Value: ZoneResidential, Weight: 0.40},
	{Value: ZoneCommercial, Weight: 0.25},
	{Value: ZoneIndustrial, Weight: 0.20},
	{Value: ZoneMixed, Weight: 0.15},
}

// Relative people per unit of district weight.
var zoneDensity = map[ZoneType]float64{
	ZoneResidential: 1.2,
	ZoneCommercial:  0.8,
	ZoneIndustrial:  0.6,
	ZoneMixed:       1.0,
	ZonePark:        0.3,
}

// ZoneDensity returns the population multiplier of a zone type.
func ZoneDensity(z ZoneType) float64 {
	if d, ok := zoneDensity[z]; ok {
		return d
	}
	return 1.0
}

const (
	minDistrictSize = 0.5
	maxDistrictSize = 2.0
)

// DistrictCount is the static district rule: max(1, floor(sqrt(pop/10000)) + 2).
func DistrictCount(population int) int {
	return max(1, int(math.Floor(math.Sqrt(float64(population)/10000)))+2)
}

// DistrictID formats the id of the i-th district.
func DistrictID(i int) string {
	return "district_" + strconv.Itoa(i)
}

var namePrefixes = []string{
	"North", "South", "East", "West", "Central", "Old", "New", "Upper",
	"Lower", "River", "Harbor", "Market", "Garden", "Stone", "Iron", "Oak",
	"Mill", "Bridge", "Castle", "Chapel",
}

var nameSuffixes = []string{
	"Heights", "Hills", "Park", "Gate", "Quarter", "Village", "Town",
	"Fields", "Side", "Cross", "End", "Green", "Square", "Row", "Wharf",
}

// Names draws n district names from s, two draws per name. Names are unique
// within the result; a repeated combination gets a numeric suffix.
func Names(s *entropy.Stream, n int) []string {
	seen := make(map[string]int)
	names := make([]string, 0, n)
	for len(names) < n {
		// Both tables are non-empty.
		prefix, _ := entropy.Choice(s, namePrefixes)
		suffix, _ := entropy.Choice(s, nameSuffixes)
		base := prefix + " " + suffix
		seen[base]++
		if seen[base] > 1 {
			base = fmt.Sprintf("%s %d", base, seen[base])
		}
		names = append(names, base)
	}
	return names
}

// DensityField is a smooth noise field that modulates district population.
type DensityField struct {
	noise opensimplex.Noise
}

// NewDensityField seeds a field from a derived sub-seed.
func NewDensityField(seed uint32) DensityField {
	return DensityField{noise: opensimplex.NewNormalized(int64(seed))}
}

// Factor returns a multiplier in [0.7, 1.3] for a position in km.
func (f DensityField) Factor(p geometry.Point) float64 {
	return 0.7 + 0.6*octaveNoise(f.noise, p.X, p.Y, 3, 0.35, 0.5)
}

// octaveNoise layers several noise frequencies; the result stays in [0,1]
// for a normalized source.
func octaveNoise(noise opensimplex.Noise, x, y float64, octaves int, frequency, persistence float64) float64 {
	total := 0.0
	amplitude := 1.0
	maxVal := 0.0

	for i := 0; i < octaves; i++ {
		total += noise.Eval2(x*frequency, y*frequency) * amplitude
		maxVal += amplitude
		amplitude *= persistence
		frequency *= 2
	}

	return total / maxVal
}

// Populate splits population across districts by zone density and the noise
// field, then fills in each district's density. The district sum always
// equals population.
func Populate(districts []District, population int, field DensityField) {
	weights := make([]float64, len(districts))
	for i, d := range districts {
		weights[i] = ZoneDensity(d.Type) * field.Factor(d.Position) * d.Area()
	}
	shares := Allocate(population, weights)
	for i := range districts {
		districts[i].Population = shares[i]
		if a := districts[i].Area(); a > 0 {
			districts[i].Density = float64(shares[i]) / a
		}
	}
}

// AggregateZones builds the zone summary. Every zone type that occurs gets
// an entry; types with no districts are omitted.
func AggregateZones(districts []District) map[ZoneType]Zone {
	zones := make(map[ZoneType]Zone)
	for _, d := range districts {
		z := zones[d.Type]
		z.Type = d.Type
		z.Count++
		z.TotalArea += d.Area()
		z.TotalPopulation += d.Population
		zones[d.Type] = z
	}
	return zones
}

// generateDistricts places, types, shapes and names the static districts.
// Each concern reads its own stream: positions and sizes from "districts",
// zone types from "zones", shapes from "districts.shapes" and names from
// "districts.names".
func generateDistricts(p Params, streams *entropy.Streams) ([]District, error) {
	n := DistrictCount(p.Population)
	place := streams.Get(entropy.CategoryDistricts)
	zones := streams.Get(entropy.CategoryZones)
	shapes := streams.Get(entropy.Child(entropy.CategoryDistricts, "shapes"))
	names := Names(streams.Get(entropy.Child(entropy.CategoryDistricts, "names")), n)

	districts := make([]District, n)
	for i := range districts {
		pos := geometry.Pt(place.Uniform(0, p.CitySize), place.Uniform(0, p.CitySize))
		size := place.Uniform(minDistrictSize, maxDistrictSize)
		zt, err := entropy.WeightedChoice(zones, zoneWeights, ZoneResidential)
		if err != nil {
			return nil, fmt.Errorf("choosing zone for district %d: %w", i, err)
		}
		districts[i] = District{
			ID:       DistrictID(i),
			Name:     names[i],
			Position: pos,
			Size:     size,
			Type:     zt,
			Shape:    ChooseShape(StageModern, zt, size, shapes),
		}
	}

	field := NewDensityField(streams.Seed(entropy.Child(entropy.CategoryDemographics, "density")))
	Populate(districts, p.Population, field)
	return districts, nil
}
