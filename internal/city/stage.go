package city

import (
	"math"

	"github.com/talgya/metro/internal/entropy"
	"github.com/talgya/metro/internal/geometry"
)

// Stage is the development stage of a city. Stages are ordered; each one
// keeps everything the previous stage allowed.
type Stage string

const (
	StageFounding  Stage = "founding"
	StageGrowth    Stage = "growth"
	StageExpansion Stage = "expansion"
	StageModern    Stage = "modern"
)

// Stages lists the stages in historical order.
var Stages = []Stage{StageFounding, StageGrowth, StageExpansion, StageModern}

// Rank returns the position of s in Stages, or -1 for an unknown stage.
func (s Stage) Rank() int {
	for i, st := range Stages {
		if st == s {
			return i
		}
	}
	return -1
}

// Valid reports whether s is a known stage.
func (s Stage) Valid() bool { return s.Rank() >= 0 }

var stageServices = [][]string{
	{"market", "temple"},
	{"hospital", "school"},
	{"police", "fire", "monument"},
	{"airport", "stadium"},
}

var stageUtilities = [][]string{
	{"well"},
	{"aqueduct"},
	{"water_treatment", "waste_management"},
	{"power_station"},
}

func cumulative(table [][]string, s Stage) []string {
	rank := s.Rank()
	if rank < 0 {
		return nil
	}
	var out []string
	for _, names := range table[:rank+1] {
		out = append(out, names...)
	}
	return out
}

// ServiceTypes returns the service vocabulary available at stage s. The
// vocabulary of a later stage always contains that of an earlier one.
func ServiceTypes(s Stage) []string { return cumulative(stageServices, s) }

// UtilityTypes returns the utility vocabulary available at stage s.
func UtilityTypes(s Stage) []string { return cumulative(stageUtilities, s) }

// shapeOdds holds the probability of a circle and of a polygon; the rest of
// the mass is a rectangle.
type shapeOdds struct {
	circle  float64
	polygon float64
}

var shapeTable = map[Stage]map[ZoneType]shapeOdds{
	StageGrowth: {
		ZoneCommercial: {circle: 0.2},
		ZonePark:       {polygon: 0.2},
	},
	StageExpansion: {
		ZoneCommercial: {circle: 0.35},
		ZoneIndustrial: {polygon: 0.3},
		ZonePark:       {polygon: 0.4},
		ZoneMixed:      {circle: 0.15},
	},
	StageModern: {
		ZoneCommercial:  {circle: 0.5},
		ZoneIndustrial:  {polygon: 0.45},
		ZonePark:        {polygon: 0.5},
		ZoneMixed:       {circle: 0.25},
		ZoneResidential: {polygon: 0.1},
	},
}

// ChooseShape picks the footprint of a district of the given zone type and
// size at stage. Founding districts are always square blocks and consume no
// draws. Later stages consume one draw for the shape kind, plus two more
// (sides, rotation) for a polygon. Shapes are always centred on the district.
func ChooseShape(stage Stage, zone ZoneType, size float64, s *entropy.Stream) geometry.Shape {
	if stage == StageFounding || !stage.Valid() {
		return geometry.Rectangle{Width: size, Height: size}
	}

	odds := shapeTable[stage][zone]
	r := s.Next()
	switch {
	case r < odds.circle:
		return geometry.Circle{Radius: size / 2}
	case r < odds.circle+odds.polygon:
		return geometry.Polygon{
			Sides:    s.Randint(4, 8),
			Radius:   size / 2,
			Rotation: s.Uniform(0, 2*math.Pi),
		}
	default:
		return geometry.Rectangle{Width: size, Height: size}
	}
}
