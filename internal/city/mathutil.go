package city

import (
	"math"
	"sort"

	"golang.org/x/exp/constraints"
)

// Clamp limits v to [lo, hi].
func Clamp[T constraints.Ordered](v, lo, hi T) T {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Allocate splits total into integer shares proportional to weights using
// largest-remainder rounding. The shares always sum to total; ties go to the
// lower index. Non-positive weights receive nothing unless every weight is
// non-positive, in which case the split is even.
func Allocate(total int, weights []float64) []int {
	out := make([]int, len(weights))
	if len(weights) == 0 || total <= 0 {
		return out
	}

	sum := 0.0
	for _, w := range weights {
		if w > 0 {
			sum += w
		}
	}
	norm := make([]float64, len(weights))
	for i, w := range weights {
		switch {
		case sum == 0:
			norm[i] = 1 / float64(len(weights))
		case w > 0:
			norm[i] = w / sum
		}
	}

	type rem struct {
		idx  int
		frac float64
	}
	rems := make([]rem, len(weights))
	assigned := 0
	for i, n := range norm {
		exact := float64(total) * n
		whole := math.Floor(exact)
		out[i] = int(whole)
		assigned += out[i]
		rems[i] = rem{i, exact - whole}
	}

	sort.SliceStable(rems, func(a, b int) bool {
		return rems[a].frac > rems[b].frac
	})
	for i := 0; assigned < total; i = (i + 1) % len(rems) {
		out[rems[i].idx]++
		assigned++
	}
	return out
}
