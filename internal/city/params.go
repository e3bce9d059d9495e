package city

import (
	"fmt"
	"math"
	"strconv"

	"github.com/cespare/xxhash/v2"
)

// Input bounds accepted by the generators.
const (
	MaxPopulation = 100_000_000
	MaxCitySize   = 10_000 // km
)

// Params are the inputs of a static generation run.
type Params struct {
	Population int     `json:"population"`
	CitySize   float64 `json:"city_size"` // side of the square city, km
	Seed       uint32  `json:"seed"`
}

// InvalidParameterError reports a generation input rejected before any work
// was done.
type InvalidParameterError struct {
	Field  string
	Value  any
	Reason string
}

func (e *InvalidParameterError) Error() string {
	return fmt.Sprintf("invalid %s %v: %s", e.Field, e.Value, e.Reason)
}

// ValidatePopulation rejects non-positive or oversized populations.
func ValidatePopulation(population int) error {
	if population <= 0 {
		return &InvalidParameterError{Field: "population", Value: population, Reason: "must be positive"}
	}
	if population > MaxPopulation {
		return &InvalidParameterError{Field: "population", Value: population, Reason: fmt.Sprintf("must not exceed %d", MaxPopulation)}
	}
	return nil
}

// ValidateCitySize rejects non-finite, non-positive or oversized sizes.
func ValidateCitySize(size float64) error {
	if math.IsNaN(size) || math.IsInf(size, 0) {
		return &InvalidParameterError{Field: "city_size", Value: size, Reason: "must be finite"}
	}
	if size <= 0 {
		return &InvalidParameterError{Field: "city_size", Value: size, Reason: "must be positive"}
	}
	if size > MaxCitySize {
		return &InvalidParameterError{Field: "city_size", Value: size, Reason: fmt.Sprintf("must not exceed %d km", MaxCitySize)}
	}
	return nil
}

// Validate checks p before generation.
func (p Params) Validate() error {
	if err := ValidatePopulation(p.Population); err != nil {
		return err
	}
	return ValidateCitySize(p.CitySize)
}

// Key is the canonical string form of p, used for ids and cache keys.
func (p Params) Key() string {
	return "pop=" + strconv.Itoa(p.Population) +
		";size=" + strconv.FormatFloat(p.CitySize, 'g', -1, 64) +
		";seed=" + strconv.FormatUint(uint64(p.Seed), 10)
}

// ID returns a reproducible identifier for the city generated from p.
func ID(p Params) string {
	return KeyID(p.Key())
}

// KeyID hashes an arbitrary canonical key into a "metro_" identifier.
func KeyID(key string) string {
	return fmt.Sprintf("metro_%012x", xxhash.Sum64String(key)&0xffffffffffff)
}
