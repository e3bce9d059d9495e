package temporal

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/talgya/metro/internal/city"
)

// Metadata records the inputs a timeline was generated from.
type Metadata struct {
	ID         string  `json:"id"`
	Population int     `json:"population"`
	CitySize   float64 `json:"city_size"`
	MasterSeed uint32  `json:"master_seed"`
	YearStep   int     `json:"year_step"`
	TotalYears int     `json:"total_years"`
}

// Timeline is a city's sampled history in year order.
type Timeline struct {
	Eras      EraTable   `json:"eras"`
	Frames    []Frame    `json:"frames"`
	KeyPoints []KeyPoint `json:"key_points"`
	Grid      RoadGrid   `json:"grid"`
	Metadata  Metadata   `json:"metadata"`
}

// ID returns the reproducible identifier of the timeline generated from opts.
func ID(opts Options) string {
	return city.KeyID("timeline;" + opts.Key())
}

// Generate validates opts, then builds every sampled year. Years run in
// parallel on up to opts.Workers goroutines; frames are placed by index so
// the result is the same for any worker count.
func Generate(ctx context.Context, opts Options) (*Timeline, error) {
	opts = opts.withDefaults()
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	years := opts.Years()
	frames := make([]Frame, len(years))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Workers)
	for i, year := range years {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			f, err := generateFrame(opts, year)
			if err != nil {
				return err
			}
			frames[i] = f
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("generating timeline: %w", err)
	}

	slog.Debug("timeline generated",
		"seed", opts.Seed,
		"frames", len(frames),
		"workers", opts.Workers,
	)

	return &Timeline{
		Eras:      opts.Eras,
		Frames:    frames,
		KeyPoints: KeyPoints(opts.CitySize),
		Grid:      NewRoadGrid(opts.CitySize),
		Metadata: Metadata{
			ID:         ID(opts),
			Population: opts.Population,
			CitySize:   opts.CitySize,
			MasterSeed: opts.Seed,
			YearStep:   opts.YearStep,
			TotalYears: opts.TotalYears,
		},
	}, nil
}

// At returns the frame for year, or the closest frame when year was not
// sampled. Ties go to the earlier frame.
func (t *Timeline) At(year int) (*Frame, bool) {
	if len(t.Frames) == 0 {
		return nil, false
	}
	best := 0
	for i, f := range t.Frames {
		if absInt(f.Year-year) < absInt(t.Frames[best].Year-year) {
			best = i
		}
	}
	return &t.Frames[best], true
}

// ActiveKeyPoints returns the landmarks standing in year.
func (t *Timeline) ActiveKeyPoints(year int) []KeyPoint {
	out := make([]KeyPoint, 0, len(t.KeyPoints))
	for _, k := range t.KeyPoints {
		if k.Active(year) {
			out = append(out, k)
		}
	}
	return out
}

func absInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
