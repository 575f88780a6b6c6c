package fusion

import (
	"math"
	"sort"

	"github.com/kailas-cloud/lanefuse/internal/domain/document"
	"github.com/kailas-cloud/lanefuse/internal/domain/lane"
	"github.com/kailas-cloud/lanefuse/internal/domain/run"
	"github.com/kailas-cloud/lanefuse/internal/domain/taxonomy"
)

// LAS is the mean pairwise Jaccard similarity of the lanes' own top-k doc
// sets. Lanes with empty lists do not count; fewer than two leaves LAS at 0.
func LAS(lanes []lane.Run, k int) float64 {
	sets := make([]map[string]struct{}, 0, len(lanes))
	for i := range lanes {
		if lanes[i].Len() == 0 {
			continue
		}
		top := lanes[i].Top(k)
		s := make(map[string]struct{}, len(top))
		for _, id := range top {
			s[id] = struct{}{}
		}
		sets = append(sets, s)
	}
	if len(sets) < 2 {
		return 0
	}

	sum, pairs := 0.0, 0
	for i := 0; i < len(sets); i++ {
		for j := i + 1; j < len(sets); j++ {
			sum += jaccard(sets[i], sets[j])
			pairs++
		}
	}
	return sum / float64(pairs)
}

func jaccard(a, b map[string]struct{}) float64 {
	inter := 0
	for id := range a {
		if _, ok := b[id]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

// CCW is 1 minus the normalized Shannon entropy of the primary normalized
// codes of the given documents. No codes gives 0, a single distinct code 1.
func CCW(docIDs []string, docs map[string]document.Document, tax taxonomy.Name) float64 {
	freq := make(map[string]int)
	n := 0
	for _, id := range docIDs {
		d, ok := docs[id]
		if !ok {
			continue
		}
		code, ok := d.PrimaryCode(tax)
		if !ok {
			continue
		}
		freq[code]++
		n++
	}
	switch len(freq) {
	case 0:
		return 0
	case 1:
		return 1
	}

	codes := make([]string, 0, len(freq))
	for c := range freq {
		codes = append(codes, c)
	}
	sort.Strings(codes)

	h := 0.0
	for _, c := range codes {
		p := float64(freq[c]) / float64(n)
		h -= p * math.Log(p)
	}
	ccw := 1 - h/math.Log(float64(len(freq)))
	return clamp01(ccw)
}

// SShape is the share of the top-3 final scores in the top-k total.
func SShape(scores []float64, k int) float64 {
	if len(scores) == 0 {
		return 0
	}
	if k > len(scores) || k <= 0 {
		k = len(scores)
	}
	head, total := 0.0, 0.0
	for i := 0; i < k; i++ {
		if i < 3 {
			head += scores[i]
		}
		total += scores[i]
	}
	if total <= 0 {
		return 0
	}
	return head / total
}

// FStruct is the F1 of LAS and CCW.
func FStruct(las, ccw float64) float64 {
	return fBeta(las, ccw, 1)
}

// FProxy penalizes a top-heavy score shape: fStruct x (1 - λ·sShape),
// clamped to [0, fStruct].
func FProxy(fStruct, sShape, lambda float64) float64 {
	v := fStruct * (1 - lambda*sShape)
	if v < 0 {
		return 0
	}
	if v > fStruct {
		return fStruct
	}
	return v
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}

// structuralMetrics computes all five metrics over the fused top-k.
func structuralMetrics(
	lanes []lane.Run, entries []run.Entry, docs map[string]document.Document,
	k int, lambda float64, tax taxonomy.Name,
) run.Metrics {
	top := entries
	if k < len(top) {
		top = top[:k]
	}
	ids := make([]string, len(top))
	scores := make([]float64, len(top))
	for i, e := range top {
		ids[i] = e.DocID
		scores[i] = e.Score
	}

	m := run.Metrics{
		LAS:    LAS(lanes, k),
		CCW:    CCW(ids, docs, tax),
		SShape: SShape(scores, k),
	}
	m.FStruct = FStruct(m.LAS, m.CCW)
	m.FProxy = FProxy(m.FStruct, m.SShape, lambda)
	return m
}
