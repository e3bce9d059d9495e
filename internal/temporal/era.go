// Package temporal generates a city's history as a series of yearly frames.
// Every sampled year draws from its own derived stream, so years can be
// generated in any order or in parallel and still assemble into the same
// timeline.
package temporal

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/talgya/metro/internal/city"
)

// Era is one span of development history. Years are [YearStart, YearEnd).
type Era struct {
	Name          string     `yaml:"name" json:"name"`
	Stage         city.Stage `yaml:"stage" json:"stage"`
	YearStart     int        `yaml:"year_start" json:"year_start"`
	YearEnd       int        `yaml:"year_end" json:"year_end"`
	PopulationMin int        `yaml:"population_min" json:"population_min"`
	PopulationMax int        `yaml:"population_max" json:"population_max"`
	Features      []string   `yaml:"features,omitempty" json:"features,omitempty"`
}

// EraTable is an ordered list of contiguous eras. The last era is treated as
// open-ended.
type EraTable []Era

// DefaultEras returns the standard four-era history.
func DefaultEras() EraTable {
	return EraTable{
		{Name: "Founding", Stage: city.StageFounding, YearStart: 0, YearEnd: 50, PopulationMin: 100, PopulationMax: 1000,
			Features: []string{"Roman grid", "Mixed-use core", "Basic infrastructure"}},
		{Name: "Growth", Stage: city.StageGrowth, YearStart: 50, YearEnd: 200, PopulationMin: 1000, PopulationMax: 10000,
			Features: []string{"Zone differentiation", "Secondary roads", "First monuments"}},
		{Name: "Expansion", Stage: city.StageExpansion, YearStart: 200, YearEnd: 500, PopulationMin: 10000, PopulationMax: 50000,
			Features: []string{"Diagonal roads", "Key monuments", "Specialized zones"}},
		{Name: "Modernization", Stage: city.StageModern, YearStart: 500, YearEnd: 2000, PopulationMin: 50000, PopulationMax: 1000000,
			Features: []string{"Complex infrastructure", "Modern zones", "Transportation hubs"}},
	}
}

// EraCoverageError reports an era table that does not assign exactly one era
// to some year.
type EraCoverageError struct {
	Year   int
	Reason string
}

func (e *EraCoverageError) Error() string {
	return fmt.Sprintf("era table invalid at year %d: %s", e.Year, e.Reason)
}

// Validate checks that every year in [0, totalYears] falls into exactly one
// era and that stages never regress.
func (t EraTable) Validate(totalYears int) error {
	if totalYears < 0 {
		return &EraCoverageError{Year: totalYears, Reason: "total years is negative"}
	}
	if len(t) == 0 {
		return &EraCoverageError{Year: 0, Reason: "era table is empty"}
	}
	if t[0].YearStart > 0 {
		return &EraCoverageError{Year: 0, Reason: fmt.Sprintf("first era %q starts at %d", t[0].Name, t[0].YearStart)}
	}

	prevRank := -1
	for i, e := range t {
		if e.YearEnd <= e.YearStart {
			return &EraCoverageError{Year: e.YearStart, Reason: fmt.Sprintf("era %q has an empty range", e.Name)}
		}
		if i > 0 {
			prev := t[i-1]
			switch {
			case e.YearStart > prev.YearEnd:
				return &EraCoverageError{Year: prev.YearEnd, Reason: fmt.Sprintf("gap between %q and %q", prev.Name, e.Name)}
			case e.YearStart < prev.YearEnd:
				return &EraCoverageError{Year: e.YearStart, Reason: fmt.Sprintf("%q overlaps %q", e.Name, prev.Name)}
			}
		}
		rank := e.Stage.Rank()
		if rank < 0 {
			return &EraCoverageError{Year: e.YearStart, Reason: fmt.Sprintf("era %q has unknown stage %q", e.Name, e.Stage)}
		}
		if rank < prevRank {
			return &EraCoverageError{Year: e.YearStart, Reason: fmt.Sprintf("era %q regresses to stage %q", e.Name, e.Stage)}
		}
		prevRank = rank
		if e.PopulationMin < 0 || e.PopulationMax < e.PopulationMin {
			return &EraCoverageError{Year: e.YearStart, Reason: fmt.Sprintf("era %q has population range %d..%d", e.Name, e.PopulationMin, e.PopulationMax)}
		}
	}
	return nil
}

// Find returns the era containing year. The last era also holds every year
// after its end.
func (t EraTable) Find(year int) (Era, bool) {
	for i, e := range t {
		if year < e.YearStart {
			break
		}
		if year < e.YearEnd || i == len(t)-1 {
			return e, true
		}
	}
	return Era{}, false
}

// LoadEras reads an era table from a YAML file with a top-level "eras" list.
func LoadEras(path string) (EraTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading era table: %w", err)
	}
	return ParseEras(data)
}

// ParseEras decodes a YAML era table.
func ParseEras(data []byte) (EraTable, error) {
	var doc struct {
		Eras EraTable `yaml:"eras"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing era table: %w", err)
	}
	if len(doc.Eras) == 0 {
		return nil, &EraCoverageError{Year: 0, Reason: "era table is empty"}
	}
	return doc.Eras, nil
}
