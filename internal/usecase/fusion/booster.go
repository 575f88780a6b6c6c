package fusion

import (
	"sort"

	"github.com/kailas-cloud/lanefuse/internal/domain/document"
	"github.com/kailas-cloud/lanefuse/internal/domain/recipe"
	"github.com/kailas-cloud/lanefuse/internal/domain/taxonomy"
)

// Booster scores documents against a target profile in two stages: normalized
// codes at full weight, full codes at secondaryFactor x weight.
type Booster struct {
	profile         recipe.TargetProfile
	secondaryFactor float64
	maxScore        float64
}

// NewBooster precomputes the maximum attainable score of a profile.
func NewBooster(profile recipe.TargetProfile, secondaryFactor float64) *Booster {
	maxScore := 0.0
	for _, tax := range sortedTaxonomies(profile.Primary) {
		maxScore += sumWeights(profile.Primary[tax])
	}
	for _, tax := range sortedTaxonomies(profile.Secondary) {
		maxScore += secondaryFactor * sumWeights(profile.Secondary[tax])
	}
	return &Booster{profile: profile, secondaryFactor: secondaryFactor, maxScore: maxScore}
}

// Score returns the code match of doc in [0, 1]. Documents without codes, and
// any document when the profile carries no weight, score 0.
func (b *Booster) Score(doc *document.Document) float64 {
	if b.maxScore <= 0 || len(doc.Codes) == 0 {
		return 0
	}

	score := 0.0
	for _, tax := range sortedTaxonomies(b.profile.Primary) {
		weights := b.profile.Primary[tax]
		for _, code := range doc.NormalizedCodes(tax) {
			score += weights[code]
		}
	}
	for _, tax := range sortedTaxonomies(b.profile.Secondary) {
		weights := b.profile.Secondary[tax]
		for _, code := range doc.FullCodes(tax) {
			score += b.secondaryFactor * weights[code]
		}
	}

	s := score / b.maxScore
	if s > 1 {
		return 1
	}
	return s
}

// CodeScore is a one-shot Booster.Score.
func CodeScore(doc *document.Document, profile recipe.TargetProfile, secondaryFactor float64) float64 {
	return NewBooster(profile, secondaryFactor).Score(doc)
}

func sortedTaxonomies(cw recipe.CodeWeights) []taxonomy.Name {
	names := make([]taxonomy.Name, 0, len(cw))
	for tax := range cw {
		names = append(names, tax)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	return names
}

func sumWeights(m map[string]float64) float64 {
	codes := make([]string, 0, len(m))
	for code := range m {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	total := 0.0
	for _, code := range codes {
		total += m[code]
	}
	return total
}
