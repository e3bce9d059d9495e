package population

import (
	"fmt"

	"github.com/talgya/metro/internal/entropy"
)

// GrowthModel applies one year of deaths and births to a state.
type GrowthModel interface {
	Deaths(st *State, s *entropy.Stream) int
	Births(st *State, s *entropy.Stream) int
}

// ModelByName returns "default" or "static" growth.
func ModelByName(name string) (GrowthModel, error) {
	switch name {
	case "", "default":
		return DefaultGrowth{}, nil
	case "static":
		return DefaultStaticGrowth(), nil
	default:
		return nil, fmt.Errorf("unknown growth model %q", name)
	}
}

// Per-mille rates by age bucket.
var (
	mortality = [Buckets]float64{5, 0.5, 0.5, 0.7, 1, 1.5, 2, 3, 4, 6, 9, 15, 25, 40, 60, 100, 150, 220, 300, 500}
	fertility = []float64{50, 90, 120, 100, 60, 20, 5} // buckets 3 (15-19) through 9 (45-49)
)

const (
	fertileFirst = 3
	maleBirth    = 105.0 / 205.0
)

// DefaultGrowth uses age-specific mortality and fertility tables.
type DefaultGrowth struct{}

// round draws once to round expected up with probability of its fraction.
func round(expected float64, s *entropy.Stream) int {
	n := int(expected)
	if s.Next() < expected-float64(n) {
		n++
	}
	return n
}

func (DefaultGrowth) Deaths(st *State, s *entropy.Stream) int {
	total := 0
	for i := range st.Histogram {
		rate := mortality[i] / 1000
		b := &st.Histogram[i]
		dm := min(round(float64(b.Male)*rate, s), b.Male)
		df := min(round(float64(b.Female)*rate, s), b.Female)
		b.Male -= dm
		b.Female -= df
		total += dm + df
	}
	st.Population -= total
	return total
}

func (DefaultGrowth) Births(st *State, s *entropy.Stream) int {
	total := 0
	for j, rate := range fertility {
		women := st.Histogram[fertileFirst+j].Female
		total += round(float64(women)*rate/1000, s)
	}
	addNewborns(st, total, s)
	return total
}

// addNewborns splits births by the 105:100 sex ratio, one draw per child.
func addNewborns(st *State, births int, s *entropy.Stream) {
	for i := 0; i < births; i++ {
		if s.Next() < maleBirth {
			st.Histogram[0].Male++
		} else {
			st.Histogram[0].Female++
		}
	}
	st.Population += births
}

// StaticGrowth applies flat per-mille birth and death rates.
type StaticGrowth struct {
	BirthRate float64
	DeathRate float64
}

// DefaultStaticGrowth is 20 births and 8 deaths per thousand a year.
func DefaultStaticGrowth() StaticGrowth {
	return StaticGrowth{BirthRate: 20, DeathRate: 8}
}

func (g StaticGrowth) Births(st *State, s *entropy.Stream) int {
	total := round(float64(st.Population)*g.BirthRate/1000, s)
	addNewborns(st, total, s)
	return total
}

// Deaths removes people chosen uniformly across the whole population.
func (g StaticGrowth) Deaths(st *State, s *entropy.Stream) int {
	total := min(round(float64(st.Population)*g.DeathRate/1000, s), st.Population)
	for i := 0; i < total; i++ {
		idx := s.Randint(0, st.Population-1)
		for j := range st.Histogram {
			b := &st.Histogram[j]
			if idx < b.Male {
				b.Male--
				break
			}
			idx -= b.Male
			if idx < b.Female {
				b.Female--
				break
			}
			idx -= b.Female
		}
		st.Population--
	}
	return total
}
