package city

import (
	"math"

	"github.com/talgya/metro/internal/entropy"
)

// Base shares of each age bracket and income level before jitter.
var (
	ageBrackets = []string{"0-17", "18-34", "35-54", "55-64", "65+"}
	ageShares   = []float64{0.22, 0.24, 0.27, 0.12, 0.15}

	incomeLevels = []string{"low", "medium", "high"}
	incomeShares = []float64{0.30, 0.50, 0.20}
)

func jitteredSplit(total int, labels []string, shares []float64, s *entropy.Stream) map[string]int {
	weights := make([]float64, len(shares))
	for i, w := range shares {
		weights[i] = w * s.Uniform(0.9, 1.1)
	}
	counts := Allocate(total, weights)
	out := make(map[string]int, len(labels))
	for i, l := range labels {
		out[l] = counts[i]
	}
	return out
}

// generateDemographics splits the population by age bracket and income. Each
// split sums to the population exactly.
func generateDemographics(p Params, s *entropy.Stream) *Demographics {
	d := &Demographics{
		Tier:      entropy.PopulationTier(p.Population),
		AgeGroups: jitteredSplit(p.Population, ageBrackets, ageShares, s),
		Income:    jitteredSplit(p.Population, incomeLevels, incomeShares, s),
	}
	d.Households = max(1, int(math.Round(float64(p.Population)/s.Uniform(2.2, 2.8))))
	return d
}
