package city

import (
	"fmt"
	"log/slog"

	"github.com/talgya/metro/internal/entropy"
)

// Generate builds the static snapshot for p. Invalid parameters are rejected
// with an *InvalidParameterError before any stream is drawn.
func Generate(p Params) (*Snapshot, error) {
	snap, _, err := GenerateWithSeeds(p)
	return snap, err
}

// GenerateWithSeeds is Generate that also reports every derived seed used.
func GenerateWithSeeds(p Params) (*Snapshot, entropy.SeedTree, error) {
	if err := p.Validate(); err != nil {
		return nil, entropy.SeedTree{}, err
	}

	streams := entropy.NewStreams(p.Seed)

	districts, err := generateDistricts(p, streams)
	if err != nil {
		return nil, entropy.SeedTree{}, fmt.Errorf("generating districts: %w", err)
	}

	roads, err := generateRoads(p, districts, streams.Get(entropy.Child(entropy.CategoryInfrastructure, "roads")))
	if err != nil {
		return nil, entropy.SeedTree{}, fmt.Errorf("generating roads: %w", err)
	}
	utilities := generateUtilities(p, districts, streams.Get(entropy.Child(entropy.CategoryInfrastructure, "utilities")))
	services, err := generateServices(p, districts, streams.Get(entropy.Child(entropy.CategoryInfrastructure, "services")))
	if err != nil {
		return nil, entropy.SeedTree{}, fmt.Errorf("generating services: %w", err)
	}

	snap := &Snapshot{
		Population: p.Population,
		Area:       p.CitySize * p.CitySize,
		CitySize:   p.CitySize,
		Districts:  districts,
		Zones:      AggregateZones(districts),
		Infrastructure: Infrastructure{
			Roads:     roads,
			Utilities: utilities,
			Services:  services,
		},
		Demographics: generateDemographics(p, streams.Get(entropy.CategoryDemographics)),
		Seed:         p.Seed,
	}

	slog.Debug("city generated",
		"seed", p.Seed,
		"population", p.Population,
		"districts", len(districts),
		"roads", len(roads),
		"services", len(services),
	)
	return snap, streams.Tree(), nil
}
