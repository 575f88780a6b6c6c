package fusion

import (
	"strings"

	"github.com/kailas-cloud/lanefuse/internal/domain/document"
	"github.com/kailas-cloud/lanefuse/internal/domain/recipe"
)

// FacetMatcher scores term coverage of caller-defined facets.
type FacetMatcher struct {
	names   []string
	terms   [][]string
	weights []float64
}

// NewFacetMatcher prepares lower-cased facet terms from a recipe.
func NewFacetMatcher(rcp *recipe.Recipe) *FacetMatcher {
	names := rcp.FacetNames()
	m := &FacetMatcher{
		names:   names,
		terms:   make([][]string, len(names)),
		weights: make([]float64, len(names)),
	}
	for i, name := range names {
		terms := rcp.FacetTerms[name]
		lowered := make([]string, len(terms))
		for j, t := range terms {
			lowered[j] = strings.ToLower(strings.TrimSpace(t))
		}
		m.terms[i] = lowered
		m.weights[i] = rcp.FacetWeight(name)
	}
	return m
}

// Score is the mean over facets of weight x fraction of the facet's terms
// found in the document text. No facets, or no text, scores 0.
func (m *FacetMatcher) Score(doc *document.Document) float64 {
	if len(m.names) == 0 {
		return 0
	}
	text := strings.ToLower(doc.Text())
	if strings.TrimSpace(text) == "" {
		return 0
	}
	total := 0.0
	for i := range m.names {
		total += m.weights[i] * coverage(text, m.terms[i])
	}
	return total / float64(len(m.names))
}

// Coverage returns, per facet name, the fraction of its terms found in doc.
func (m *FacetMatcher) Coverage(doc *document.Document) map[string]float64 {
	out := make(map[string]float64, len(m.names))
	text := strings.ToLower(doc.Text())
	for i, name := range m.names {
		out[name] = coverage(text, m.terms[i])
	}
	return out
}

func coverage(text string, terms []string) float64 {
	if len(terms) == 0 {
		return 0
	}
	hits := 0
	for _, t := range terms {
		if strings.Contains(text, t) {
			hits++
		}
	}
	return float64(hits) / float64(len(terms))
}

// LaneConsistency is the fraction of fused lanes a document appears in.
func LaneConsistency(present, lanes int) float64 {
	if lanes <= 0 || present <= 0 {
		return 0
	}
	if present >= lanes {
		return 1
	}
	return float64(present) / float64(lanes)
}

// Pi blends the sub-scores into π′. The weights are a tuning knob and are
// not forced to sum to 1.
func Pi(code, facet, laneConsistency float64, w recipe.PiWeights) float64 {
	return w.Code*code + w.Facet*facet + w.Lane*laneConsistency
}
