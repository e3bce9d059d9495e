// Package population evolves a city's age and sex structure year by year.
// Ages are held in twenty five-year buckets; the last bucket is 95 and over.
package population

import (
	"fmt"

	"github.com/talgya/metro/internal/city"
	"github.com/talgya/metro/internal/entropy"
)

// Buckets is the number of five-year age brackets.
const Buckets = 20

// Bucket holds the people of one age bracket.
type Bucket struct {
	Male   int `json:"m"`
	Female int `json:"f"`
}

// Total returns everyone in the bracket.
func (b Bucket) Total() int { return b.Male + b.Female }

// State is the demographic state of a city at one moment.
type State struct {
	Population int             `json:"population"`
	Histogram  [Buckets]Bucket `json:"histogram"`
}

// Workforce counts people aged 15 to 59 (buckets 3 through 11).
type Workforce struct {
	Male   int `json:"m"`
	Female int `json:"f"`
	Total  int `json:"t"`
}

// Workforce returns the working-age population.
func (st *State) Workforce() Workforce {
	var w Workforce
	for _, b := range st.Histogram[3:12] {
		w.Male += b.Male
		w.Female += b.Female
	}
	w.Total = w.Male + w.Female
	return w
}

// Sum adds up the histogram. It always equals Population.
func (st *State) Sum() int {
	total := 0
	for _, b := range st.Histogram {
		total += b.Total()
	}
	return total
}

// BucketLabel returns the age range of bucket i, e.g. "15-19" or "95+".
func BucketLabel(i int) string {
	if i == Buckets-1 {
		return fmt.Sprintf("%d+", i*5)
	}
	return fmt.Sprintf("%d-%d", i*5, i*5+4)
}

// New draws an initial age distribution for population people from the
// "population.initial_distribution" stream. Men are placed around bucket 4
// (sigma 7), women around bucket 3.5 (sigma 8); draws outside the histogram
// are redrawn. Above half a million remaining people are placed a thousand
// at a time.
func New(seed uint32, population int) (*State, error) {
	if err := city.ValidatePopulation(population); err != nil {
		return nil, err
	}

	s := entropy.NewStreams(seed).Get("population.initial_distribution")
	st := &State{Population: population}

	for placed := 0; placed < population; {
		male := s.Randint(0, 1) == 1
		mu, sigma := 3.5, 8.0
		if male {
			mu, sigma = 4, 7
		}

		pos := int(s.Normal(mu, sigma))
		for pos < 1 || pos > Buckets {
			pos = int(s.Normal(mu, sigma))
		}

		scale := 1
		if population-placed > 500_000 {
			scale = 1000
		}
		if male {
			st.Histogram[pos-1].Male += scale
		} else {
			st.Histogram[pos-1].Female += scale
		}
		placed += scale
	}
	return st, nil
}

// Age moves a fifth of every bucket up one bracket, drawing from s to round
// the fractional remainder. People aging out of the last bracket leave the
// population; their count is returned.
func (st *State) Age(s *entropy.Stream) int {
	var upM, upF [Buckets]int
	for i, b := range st.Histogram {
		upM[i] = b.Male / 5
		if s.Next() < float64(b.Male%5)/5 {
			upM[i]++
		}
		upF[i] = b.Female / 5
		if s.Next() < float64(b.Female%5)/5 {
			upF[i]++
		}
	}

	agedOut := upM[Buckets-1] + upF[Buckets-1]
	for i := Buckets - 1; i > 0; i-- {
		st.Histogram[i].Male += upM[i-1] - upM[i]
		st.Histogram[i].Female += upF[i-1] - upF[i]
	}
	st.Histogram[0].Male -= upM[0]
	st.Histogram[0].Female -= upF[0]
	st.Population -= agedOut
	return agedOut
}
