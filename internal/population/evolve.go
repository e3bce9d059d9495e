package population

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/talgya/metro/internal/city"
	"github.com/talgya/metro/internal/entropy"
)

// Summary reports one simulated year.
type Summary struct {
	Year       int       `json:"year"`
	Population int       `json:"population"`
	Births     int       `json:"births"`
	Deaths     int       `json:"deaths"`
	AgedOut    int       `json:"aged_out"`
	Workforce  Workforce `json:"workforce"`
}

// YearCategory names the stream root of simulated year n.
func YearCategory(n int) string {
	return fmt.Sprintf("%s.year_%d", entropy.CategoryEvolution, n)
}

// Step runs simulated year n: aging, then deaths, then births, each from its
// own sub-stream of "evolution.year_<n>".
func Step(st *State, model GrowthModel, seed uint32, n int) Summary {
	streams := entropy.NewStreams(seed)
	root := YearCategory(n)

	agedOut := st.Age(streams.Get(entropy.Child(root, "aging")))
	deaths := model.Deaths(st, streams.Get(entropy.Child(root, "deaths")))
	births := model.Births(st, streams.Get(entropy.Child(root, "births")))

	return Summary{
		Year:       n,
		Population: st.Population,
		Births:     births,
		Deaths:     deaths,
		AgedOut:    agedOut,
		Workforce:  st.Workforce(),
	}
}

// Evolve advances st by years simulated years, numbered from 1. It stops
// early if ctx is cancelled.
func Evolve(ctx context.Context, st *State, model GrowthModel, seed uint32, years int) ([]Summary, error) {
	if years < 0 {
		return nil, &city.InvalidParameterError{Field: "years", Value: years, Reason: "must not be negative"}
	}
	out := make([]Summary, 0, years)
	for n := 1; n <= years; n++ {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		out = append(out, Step(st, model, seed, n))
	}
	slog.Debug("population evolved", "years", years, "population", st.Population)
	return out, nil
}
