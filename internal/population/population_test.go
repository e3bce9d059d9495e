package population

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/talgya/metro/internal/city"
	"github.com/talgya/metro/internal/entropy"
)

func mustNew(t *testing.T, seed uint32, pop int) *State {
	t.Helper()
	st, err := New(seed, pop)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return st
}

func TestNewDistribution(t *testing.T) {
	for _, pop := range []int{1, 999, 25_000, 600_000} {
		st := mustNew(t, 42, pop)
		if st.Sum() != pop || st.Population != pop {
			t.Errorf("pop %d: histogram holds %d, population %d", pop, st.Sum(), st.Population)
		}
	}

	a := mustNew(t, 7, 10_000)
	b := mustNew(t, 7, 10_000)
	if !reflect.DeepEqual(a, b) {
		t.Error("initial distribution not deterministic")
	}

	if _, err := New(1, 0); err == nil {
		t.Error("expected error for zero population")
	}
}

func TestNewSkewsYoung(t *testing.T) {
	st := mustNew(t, 3, 50_000)
	young, old := 0, 0
	for i, b := range st.Histogram {
		if i < 5 {
			young += b.Total()
		}
		if i >= 15 {
			old += b.Total()
		}
	}
	if young <= old {
		t.Errorf("expected more young (%d) than old (%d)", young, old)
	}
}

func TestAgeConserves(t *testing.T) {
	st := mustNew(t, 11, 20_000)
	before := st.Sum()
	out := st.Age(entropy.NewStream(5))
	if st.Sum() != before-out {
		t.Errorf("expected %d after aging, got %d", before-out, st.Sum())
	}
	if st.Population != st.Sum() {
		t.Errorf("population %d != histogram %d", st.Population, st.Sum())
	}
}

func TestAgeMovesFifth(t *testing.T) {
	st := &State{Population: 100}
	st.Histogram[0] = Bucket{Male: 50, Female: 50}
	st.Age(entropy.NewStream(1))
	if st.Histogram[1] != (Bucket{Male: 10, Female: 10}) {
		t.Errorf("expected 10/10 to move up, got %+v", st.Histogram[1])
	}
	if st.Histogram[0] != (Bucket{Male: 40, Female: 40}) {
		t.Errorf("expected 40/40 to remain, got %+v", st.Histogram[0])
	}
}

func TestStepKeepsInvariant(t *testing.T) {
	for _, model := range []GrowthModel{DefaultGrowth{}, DefaultStaticGrowth()} {
		st := mustNew(t, 9, 30_000)
		for n := 1; n <= 25; n++ {
			sum := Step(st, model, 9, n)
			if st.Sum() != st.Population {
				t.Fatalf("%T year %d: histogram %d != population %d", model, n, st.Sum(), st.Population)
			}
			if sum.Population != st.Population {
				t.Fatalf("%T year %d: summary population mismatch", model, n)
			}
			for i, b := range st.Histogram {
				if b.Male < 0 || b.Female < 0 {
					t.Fatalf("%T year %d: negative bucket %d", model, n, i)
				}
			}
		}
	}
}

func TestStaticGrowthRates(t *testing.T) {
	st := mustNew(t, 2, 100_000)
	sum := Step(st, DefaultStaticGrowth(), 2, 1)
	// 20 and 8 per thousand of the post-aging population.
	if sum.Births < 1900 || sum.Births > 2010 {
		t.Errorf("expected about 2000 births, got %d", sum.Births)
	}
	if sum.Deaths < 700 || sum.Deaths > 810 {
		t.Errorf("expected about 800 deaths, got %d", sum.Deaths)
	}
}

func TestEvolveDeterministic(t *testing.T) {
	a := mustNew(t, 5, 10_000)
	b := mustNew(t, 5, 10_000)
	sa, err := Evolve(context.Background(), a, DefaultGrowth{}, 5, 10)
	if err != nil {
		t.Fatal(err)
	}
	sb, _ := Evolve(context.Background(), b, DefaultGrowth{}, 5, 10)
	if !reflect.DeepEqual(sa, sb) {
		t.Error("evolution not deterministic")
	}
	if len(sa) != 10 || sa[9].Year != 10 {
		t.Errorf("unexpected summaries %+v", sa)
	}
}

func TestEvolveCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	st := mustNew(t, 1, 100)
	out, err := Evolve(ctx, st, DefaultGrowth{}, 1, 5)
	if !errors.Is(err, context.Canceled) || len(out) != 0 {
		t.Errorf("expected immediate cancellation, got %d summaries, %v", len(out), err)
	}
}

func TestEvolveYears(t *testing.T) {
	tests := []struct {
		name    string
		years   int
		want    int
		wantErr bool
	}{
		{"none", 0, 0, false},
		{"some", 3, 3, false},
		{"negative", -1, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := mustNew(t, 9, 1000)
			out, err := Evolve(context.Background(), st, DefaultGrowth{}, 9, tt.years)
			if tt.wantErr {
				var ipe *city.InvalidParameterError
				if !errors.As(err, &ipe) || ipe.Field != "years" {
					t.Fatalf("expected years InvalidParameterError, got %v", err)
				}
				if st.Population != 1000 {
					t.Errorf("state changed on rejected input: %d", st.Population)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if len(out) != tt.want {
				t.Errorf("expected %d summaries, got %d", tt.want, len(out))
			}
		})
	}
}

func TestWorkforce(t *testing.T) {
	st := &State{}
	for i := range st.Histogram {
		st.Histogram[i] = Bucket{Male: 1, Female: 2}
	}
	w := st.Workforce()
	if w != (Workforce{Male: 9, Female: 18, Total: 27}) {
		t.Errorf("unexpected workforce %+v", w)
	}
}

func TestModelByName(t *testing.T) {
	if m, err := ModelByName("static"); err != nil || m != (StaticGrowth{BirthRate: 20, DeathRate: 8}) {
		t.Errorf("unexpected static model %v, %v", m, err)
	}
	if m, err := ModelByName(""); err != nil || m != (DefaultGrowth{}) {
		t.Errorf("unexpected default model %v, %v", m, err)
	}
	if _, err := ModelByName("logistic"); err == nil {
		t.Error("expected error for unknown model")
	}
}

func TestBucketLabel(t *testing.T) {
	if BucketLabel(3) != "15-19" || BucketLabel(19) != "95+" {
		t.Errorf("unexpected labels %s %s", BucketLabel(3), BucketLabel(19))
	}
	if YearCategory(12) != "evolution.year_12" {
		t.Errorf("unexpected category %s", YearCategory(12))
	}
}
