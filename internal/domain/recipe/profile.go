package recipe

import (
	"sort"

	"github.com/kailas-cloud/lanefuse/internal/domain/lane"
	"github.com/kailas-cloud/lanefuse/internal/domain/taxonomy"
)

// ProfileFromSummary builds a primary target profile from a lane's code
// summary. Codes are normalized, frequencies of codes that collapse onto the
// same normalized code are added, and each taxonomy keeps its topN codes
// weighted by frequency relative to the most frequent one. topN <= 0 keeps all.
func ProfileFromSummary(summary lane.CodeSummary, topN int) TargetProfile {
	primary := make(CodeWeights, len(summary))
	for tax, codes := range summary {
		counts := make(map[string]int, len(codes))
		for code, n := range codes {
			if n <= 0 {
				continue
			}
			norm := taxonomy.Normalize(code)
			if norm == "" {
				continue
			}
			counts[norm] += n
		}
		if len(counts) == 0 {
			continue
		}

		type entry struct {
			code string
			n    int
		}
		entries := make([]entry, 0, len(counts))
		for code, n := range counts {
			entries = append(entries, entry{code, n})
		}
		sort.Slice(entries, func(i, j int) bool {
			if entries[i].n != entries[j].n {
				return entries[i].n > entries[j].n
			}
			return entries[i].code < entries[j].code
		})
		if topN > 0 && len(entries) > topN {
			entries = entries[:topN]
		}

		maxN := float64(entries[0].n)
		weights := make(map[string]float64, len(entries))
		for _, e := range entries {
			weights[e.code] = float64(e.n) / maxN
		}
		primary[tax] = weights
	}
	if len(primary) == 0 {
		return TargetProfile{}
	}
	return TargetProfile{Primary: primary}
}
