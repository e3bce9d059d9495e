// Hierarchical seed derivation: a master seed plus a dotted category label
// ("zones", "infrastructure.roads", "temporal.350") maps to an independent
// sub-seed, so unrelated generation concerns never share random state.
package entropy

import (
	"fmt"
	"unicode/utf16"
)

// Standard top-level categories used by the city generators.
const (
	CategoryZones          = "zones"
	CategoryDistricts      = "districts"
	CategoryInfrastructure = "infrastructure"
	CategoryDemographics   = "demographics"
	CategoryTemporal       = "temporal"
	CategoryEvolution      = "evolution"
)

// DeriveSeed folds category into a hash initialised with master and returns
// its non-negative magnitude. Each UTF-16 code unit c updates the hash as
// hash = (hash<<5) - hash + c in 32-bit two's complement arithmetic.
//
// Distinct categories may collide; the polynomial hash makes that unlikely
// but not impossible, and no caller relies on the absence of collisions.
func DeriveSeed(master uint32, category string) uint32 {
	hash := int32(master)
	for _, c := range utf16.Encode([]rune(category)) {
		hash = (hash << 5) - hash + int32(c)
	}
	if hash < 0 {
		return uint32(-int64(hash))
	}
	return uint32(hash)
}

// Child joins a parent category and a child label with a dot.
func Child(parent, name string) string {
	if parent == "" {
		return name
	}
	return parent + "." + name
}

// YearCategory returns the per-year category used by temporal generation.
func YearCategory(year int) string {
	return fmt.Sprintf("%s.%d", CategoryTemporal, year)
}

var commonBranches = map[string][]string{
	CategoryDistricts:      {"north", "south", "east", "west", "central"},
	CategoryZones:          {"commercial", "residential", "industrial", "mixed"},
	CategoryInfrastructure: {"roads", "utilities", "parks", "services"},
	CategoryDemographics:   {"age_groups", "occupations", "income_levels"},
}

// BranchSeeds returns the sub-seeds of the well-known children of parent.
// Unknown parents get primary/secondary/tertiary branches.
func BranchSeeds(master uint32, parent string) map[string]uint32 {
	names, ok := commonBranches[parent]
	if !ok {
		names = []string{"primary", "secondary", "tertiary"}
	}
	out := make(map[string]uint32, len(names))
	for _, n := range names {
		out[n] = DeriveSeed(master, Child(parent, n))
	}
	return out
}

// Variation derives a new master seed from base by mixing in a named variant,
// e.g. Variation(seed, "master", "density.high").
func Variation(master uint32, base, name string) uint32 {
	baseSeed := DeriveSeed(master, base)
	variant := DeriveSeed(master, Child(base, "variations."+name))
	return baseSeed + variant // wraps mod 2^32
}

// PopulationTier buckets a population for tier-specific seeding and reporting.
func PopulationTier(population int) string {
	switch {
	case population < 10_000:
		return "small"
	case population < 100_000:
		return "medium"
	case population < 500_000:
		return "large"
	case population < 1_000_000:
		return "metropolitan"
	default:
		return "megalopolis"
	}
}
