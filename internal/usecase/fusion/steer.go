package fusion

import (
	"strings"

	"github.com/kailas-cloud/lanefuse/internal/domain/document"
	"github.com/kailas-cloud/lanefuse/internal/domain/recipe"
	"github.com/kailas-cloud/lanefuse/internal/domain/run"
)

// SteerFacetWeights derives facet weights from labelled representatives. Each
// facet weight becomes the mean of label strength x facet coverage over the
// representatives whose document text is known. A facet none of them covers
// keeps its current weight.
func SteerFacetWeights(
	rcp *recipe.Recipe, reps []run.Representative, docs map[string]document.Document,
) map[string]float64 {
	m := NewFacetMatcher(rcp)
	out := make(map[string]float64, len(m.names))
	for _, name := range m.names {
		out[name] = rcp.FacetWeight(name)
	}

	sums := make(map[string]float64, len(m.names))
	covered := make(map[string]bool, len(m.names))
	n := 0
	for _, rep := range reps {
		doc, ok := docs[rep.DocID]
		if !ok || strings.TrimSpace(doc.Text()) == "" {
			continue
		}
		n++
		strength := rep.Label.Strength()
		for name, cov := range m.Coverage(&doc) {
			if cov > 0 {
				covered[name] = true
			}
			sums[name] += strength * cov
		}
	}
	if n == 0 {
		return out
	}
	for _, name := range m.names {
		if covered[name] {
			out[name] = sums[name] / float64(n)
		}
	}
	return out
}
