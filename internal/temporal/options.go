package temporal

import (
	"fmt"
	"runtime"
	"strconv"

	"github.com/talgya/metro/internal/city"
)

// Defaults for timeline sampling.
const (
	DefaultYearStep   = 50
	DefaultTotalYears = 1500
	MaxFrames         = 10_000
	MaxTotalYears     = 100_000
)

// Options are the inputs of a timeline run.
type Options struct {
	Population int      // target population, reached at most
	CitySize   float64  // km
	Seed       uint32   // master seed
	Eras       EraTable // nil means DefaultEras
	YearStep   int      // 0 means DefaultYearStep
	TotalYears int      // last sampled year
	Workers    int      // parallel years; 0 means GOMAXPROCS
}

// withDefaults fills zero fields. TotalYears is only defaulted when both it
// and YearStep are unset, so an explicit zero-length timeline stays possible.
func (o Options) withDefaults() Options {
	if o.Eras == nil {
		o.Eras = DefaultEras()
	}
	if o.YearStep == 0 && o.TotalYears == 0 {
		o.TotalYears = DefaultTotalYears
	}
	if o.YearStep == 0 {
		o.YearStep = DefaultYearStep
	}
	if o.Workers <= 0 {
		o.Workers = runtime.GOMAXPROCS(0)
	}
	return o
}

// Validate checks the options, with defaults applied, before any frame is
// generated.
func (o Options) Validate() error {
	o = o.withDefaults()
	if err := city.ValidatePopulation(o.Population); err != nil {
		return err
	}
	if err := city.ValidateCitySize(o.CitySize); err != nil {
		return err
	}
	if o.YearStep <= 0 {
		return &city.InvalidParameterError{Field: "year_step", Value: o.YearStep, Reason: "must be positive"}
	}
	if o.TotalYears < 0 {
		return &city.InvalidParameterError{Field: "total_years", Value: o.TotalYears, Reason: "must not be negative"}
	}
	if o.TotalYears > MaxTotalYears {
		return &city.InvalidParameterError{Field: "total_years", Value: o.TotalYears, Reason: fmt.Sprintf("must not exceed %d", MaxTotalYears)}
	}
	if o.TotalYears/o.YearStep+1 > MaxFrames {
		return &city.InvalidParameterError{Field: "year_step", Value: o.YearStep, Reason: "too many frames"}
	}
	return o.Eras.Validate(o.TotalYears)
}

// Years returns the sampled years: 0, step, 2*step, ... up to TotalYears,
// always ending with TotalYears itself.
func (o Options) Years() []int {
	o = o.withDefaults()
	steps := o.TotalYears / o.YearStep
	years := make([]int, 0, steps+2)
	for i := 0; i <= steps; i++ {
		years = append(years, i*o.YearStep)
	}
	if years[len(years)-1] != o.TotalYears {
		years = append(years, o.TotalYears)
	}
	return years
}

// Key is the canonical form of the options that affect output.
func (o Options) Key() string {
	o = o.withDefaults()
	key := city.Params{Population: o.Population, CitySize: o.CitySize, Seed: o.Seed}.Key() +
		";step=" + strconv.Itoa(o.YearStep) + ";years=" + strconv.Itoa(o.TotalYears)
	for _, e := range o.Eras {
		key += ";" + e.Name + ":" + string(e.Stage) + ":" + strconv.Itoa(e.YearStart) + "-" + strconv.Itoa(e.YearEnd) +
			":" + strconv.Itoa(e.PopulationMin) + "-" + strconv.Itoa(e.PopulationMax)
	}
	return key
}
