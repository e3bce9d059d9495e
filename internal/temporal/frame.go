package temporal

import (
	"fmt"
	"math"

	"github.com/talgya/metro/internal/city"
	"github.com/talgya/metro/internal/entropy"
	"github.com/talgya/metro/internal/geometry"
)

// Frame is the city as it stood in one sampled year.
type Frame struct {
	Year  int        `json:"year"`
	Era   string     `json:"era"`
	Stage city.Stage `json:"stage"`
	city.Snapshot
}

// EraPopulation interpolates linearly across the era's population range and
// caps the result at target.
func EraPopulation(e Era, year, target int) int {
	progress := float64(year-e.YearStart) / float64(e.YearEnd-e.YearStart)
	progress = city.Clamp(progress, 0, 1)
	pop := int(math.Round(float64(e.PopulationMin) + float64(e.PopulationMax-e.PopulationMin)*progress))
	return max(1, min(pop, target))
}

// DistrictCount is the per-year rule: max(1, floor(sqrt(pop/5000)) + 1).
func DistrictCount(population int) int {
	return max(1, int(math.Floor(math.Sqrt(float64(population)/5000)))+1)
}

// Zone weights by distance from the centre, as a fraction of the half size.
var (
	innerZones = []entropy.Weighted[city.ZoneType]{
		{Value: city.ZoneCommercial, Weight: 0.4},
		{Value: city.ZoneResidential, Weight: 0.3},
		{Value: city.ZoneMixed, Weight: 0.3},
	}
	midZones = []entropy.Weighted[city.ZoneType]{
		{Value: city.ZoneResidential, Weight: 0.5},
		{Value: city.ZoneCommercial, Weight: 0.3},
		{Value: city.ZoneMixed, Weight: 0.2},
	}
	outerZones = []entropy.Weighted[city.ZoneType]{
		{Value: city.ZoneResidential, Weight: 0.6},
		{Value: city.ZoneIndustrial, Weight: 0.3},
		{Value: city.ZonePark, Weight: 0.1},
	}
)

// zoneFor picks a zone type from the ring a position falls in. The founding
// core is always mixed-use and draws nothing.
func zoneFor(stage city.Stage, ring float64, s *entropy.Stream) (city.ZoneType, error) {
	switch {
	case ring < 0.3:
		if stage == city.StageFounding {
			return city.ZoneMixed, nil
		}
		return entropy.WeightedChoice(s, innerZones, city.ZoneMixed)
	case ring < 0.6:
		return entropy.WeightedChoice(s, midZones, city.ZoneResidential)
	default:
		return entropy.WeightedChoice(s, outerZones, city.ZoneResidential)
	}
}

// yearState carries the inputs shared by one year's generation steps.
type yearState struct {
	opts       Options
	era        Era
	year       int
	population int
	center     geometry.Point
	bounds     geometry.Rect // developed area
	stream     *entropy.Stream
}

// generateFrame builds the frame for one year from its own derived stream.
// It reads nothing from other years.
func generateFrame(opts Options, year int) (Frame, error) {
	era, ok := opts.Eras.Find(year)
	if !ok {
		return Frame{}, &EraCoverageError{Year: year, Reason: "no era contains this year"}
	}

	streams := entropy.NewStreams(opts.Seed)
	category := entropy.YearCategory(year)
	pop := EraPopulation(era, year, opts.Population)
	extent := opts.CitySize * city.Clamp(math.Sqrt(float64(pop)/float64(opts.Population)), 0.2, 1.0)
	center := geometry.Pt(opts.CitySize/2, opts.CitySize/2)

	ys := &yearState{
		opts:       opts,
		era:        era,
		year:       year,
		population: pop,
		center:     center,
		bounds:     geometry.RectAround(center, extent/2, extent/2),
		stream:     streams.Get(category),
	}

	districts, err := ys.districts(streams.Seed(entropy.Child(category, "density")))
	if err != nil {
		return Frame{}, fmt.Errorf("year %d districts: %w", year, err)
	}
	roads := ys.roads()
	utilities, err := ys.utilities(len(districts))
	if err != nil {
		return Frame{}, fmt.Errorf("year %d utilities: %w", year, err)
	}
	services, err := ys.services(len(districts))
	if err != nil {
		return Frame{}, fmt.Errorf("year %d services: %w", year, err)
	}

	return Frame{
		Year:  year,
		Era:   era.Name,
		Stage: era.Stage,
		Snapshot: city.Snapshot{
			Population: pop,
			Area:       extent * extent,
			CitySize:   opts.CitySize,
			Districts:  districts,
			Zones:      city.AggregateZones(districts),
			Infrastructure: city.Infrastructure{
				Roads:     roads,
				Utilities: utilities,
				Services:  services,
			},
			Seed: opts.Seed,
		},
	}, nil
}

func (ys *yearState) districts(densitySeed uint32) ([]city.District, error) {
	s := ys.stream
	n := DistrictCount(ys.population)
	half := ys.opts.CitySize / 2

	districts := make([]city.District, n)
	for i := range districts {
		pos := geometry.Pt(
			s.Uniform(ys.bounds.Min.X, ys.bounds.Max.X),
			s.Uniform(ys.bounds.Min.Y, ys.bounds.Max.Y),
		)
		size := s.Uniform(0.3, 1.2)
		zt, err := zoneFor(ys.era.Stage, pos.Distance(ys.center)/half, s)
		if err != nil {
			return nil, err
		}
		districts[i] = city.District{
			ID:       city.DistrictID(i),
			Position: pos,
			Size:     size,
			Type:     zt,
			Shape:    city.ChooseShape(ys.era.Stage, zt, size, s),
		}
	}

	for i, name := range city.Names(s, n) {
		districts[i].Name = name
	}
	city.Populate(districts, ys.population, city.NewDensityField(densitySeed))
	return districts, nil
}

// roads accumulates road layers by stage: the cardo and decumanus always,
// secondary streets from growth, diagonals from expansion and two ring roads
// in the modern stage.
func (ys *yearState) roads() []city.Road {
	s := ys.stream
	b := ys.bounds
	size := ys.opts.CitySize
	rank := ys.era.Stage.Rank()

	roads := []city.Road{
		{Kind: city.RoadCardo, X1: ys.center.X, Y1: b.Min.Y, X2: ys.center.X, Y2: b.Max.Y, Width: s.Uniform(15, 25), Importance: 5},
		{Kind: city.RoadDecumanus, X1: b.Min.X, Y1: ys.center.Y, X2: b.Max.X, Y2: ys.center.Y, Width: s.Uniform(15, 25), Importance: 5},
	}

	if rank >= 1 {
		for i, n := 0, s.Randint(2, 3); i < n; i++ {
			at := s.Uniform(0.2, 0.8) * size
			width := s.Uniform(8, 15)
			if s.Chance(0.5) {
				roads = append(roads, city.Road{Kind: city.RoadSecondary, X1: b.Min.X, Y1: at, X2: b.Max.X, Y2: at, Width: width, Importance: 3})
			} else {
				roads = append(roads, city.Road{Kind: city.RoadSecondary, X1: at, Y1: b.Min.Y, X2: at, Y2: b.Max.Y, Width: width, Importance: 3})
			}
		}
	}

	if rank >= 2 {
		for i, n := 0, s.Randint(1, 2); i < n; i++ {
			width := s.Uniform(10, 20)
			if s.Chance(0.5) {
				roads = append(roads, city.Road{Kind: city.RoadDiagonal, X1: b.Min.X, Y1: b.Min.Y, X2: b.Max.X, Y2: b.Max.Y, Width: width, Importance: 2})
			} else {
				roads = append(roads, city.Road{Kind: city.RoadDiagonal, X1: b.Min.X, Y1: b.Max.Y, X2: b.Max.X, Y2: b.Min.Y, Width: width, Importance: 2})
			}
		}
	}

	if rank >= 3 {
		for _, frac := range []float64{0.3, 0.45} {
			roads = append(roads, ringRoad(ys.center, frac*size, s.Randint(8, 12), s.Uniform(10, 20))...)
		}
	}
	return roads
}

// ringRoad approximates a circle of the given radius with n straight segments.
func ringRoad(c geometry.Point, radius float64, n int, width float64) []city.Road {
	ring := geometry.Polygon{Sides: n, Radius: radius}
	vs := ring.Vertices(c)
	out := make([]city.Road, len(vs))
	for i, v := range vs {
		next := vs[(i+1)%len(vs)]
		out[i] = city.Road{Kind: city.RoadRing, X1: v.X, Y1: v.Y, X2: next.X, Y2: next.Y, Width: width, Importance: 4}
	}
	return out
}

func (ys *yearState) utilities(districts int) ([]city.Utility, error) {
	s := ys.stream
	kinds := city.UtilityTypes(ys.era.Stage)
	n := max(1, districts/3)
	share := float64(ys.population) / float64(n)

	out := make([]city.Utility, 0, n)
	for i := 0; i < n; i++ {
		kind, err := entropy.Choice(s, kinds)
		if err != nil {
			return nil, fmt.Errorf("stage %s: %w", ys.era.Stage, err)
		}
		out = append(out, city.Utility{
			Type:     kind,
			X:        s.Uniform(ys.bounds.Min.X, ys.bounds.Max.X),
			Y:        s.Uniform(ys.bounds.Min.Y, ys.bounds.Max.Y),
			Capacity: int(math.Round(share * s.Uniform(1.1, 1.5))),
		})
	}
	return out, nil
}

func (ys *yearState) services(districts int) ([]city.Service, error) {
	s := ys.stream
	kinds := city.ServiceTypes(ys.era.Stage)
	n := max(1, districts/2)

	out := make([]city.Service, 0, n)
	for i := 0; i < n; i++ {
		kind, err := entropy.Choice(s, kinds)
		if err != nil {
			return nil, fmt.Errorf("stage %s: %w", ys.era.Stage, err)
		}
		svc := city.Service{
			Type:     kind,
			X:        s.Uniform(ys.bounds.Min.X, ys.bounds.Max.X),
			Y:        s.Uniform(ys.bounds.Min.Y, ys.bounds.Max.Y),
			Capacity: s.Randint(50, 500),
		}
		if kind == "hospital" {
			svc.Beds = s.Randint(50, 300)
			svc.Capacity = svc.Beds
		}
		out = append(out, svc)
	}
	return out, nil
}
