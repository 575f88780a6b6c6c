package fusion

import (
	"sort"

	"github.com/kailas-cloud/lanefuse/internal/domain/run"
)

// Frontier sweeps the cutoff grid over π′ values listed in rank order.
// Each k is clamped to len(pis); duplicates after clamping are dropped and
// points come back in ascending k.
func Frontier(pis []float64, grid []int, beta float64) []run.FrontierPoint {
	ks := clampGrid(grid, len(pis))
	if len(ks) == 0 {
		return []run.FrontierPoint{}
	}

	prefix := make([]float64, len(pis)+1)
	for i, p := range pis {
		prefix[i+1] = prefix[i] + p
	}
	total := prefix[len(pis)]
	b2 := beta * beta

	points := make([]run.FrontierPoint, 0, len(ks))
	for _, k := range ks {
		pt := run.FrontierPoint{K: k}
		if k > 0 {
			pt.PStar = prefix[k] / float64(k)
		}
		if total > 0 {
			pt.RStar = prefix[k] / total
		}
		pt.FBeta = fBeta(pt.PStar, pt.RStar, b2)
		points = append(points, pt)
	}
	return points
}

// fBeta is (1+β²)PR / (β²P + R), 0 when the denominator is 0.
func fBeta(p, r, b2 float64) float64 {
	den := b2*p + r
	if den == 0 {
		return 0
	}
	return (1 + b2) * p * r / den
}

func clampGrid(grid []int, n int) []int {
	ks := make([]int, 0, len(grid))
	for _, k := range grid {
		if k > n {
			k = n
		}
		if k < 0 {
			k = 0
		}
		ks = append(ks, k)
	}
	sort.Ints(ks)

	out := ks[:0]
	for i, k := range ks {
		if i > 0 && k == ks[i-1] {
			continue
		}
		out = append(out, k)
	}
	return out
}
