// Package recipe holds the tunable parameters that deterministically produce
// one fusion run from a fixed set of lane runs.
package recipe

import (
	"fmt"
	"maps"
	"math"
	"slices"
	"sort"
	"strings"

	"github.com/kailas-cloud/lanefuse/internal/domain"
	"github.com/kailas-cloud/lanefuse/internal/domain/lane"
	"github.com/kailas-cloud/lanefuse/internal/domain/taxonomy"
)

// Default parameter values.
const (
	DefaultRRFK            = 60
	DefaultBetaFuse        = 0.5
	DefaultKEval           = 50
	DefaultLambda          = 0.5
	DefaultSecondaryFactor = 0.1
)

// DefaultKGrid is the cutoff sweep used when a recipe names none.
var DefaultKGrid = []int{10, 20, 50, 100}

// CodeWeights maps taxonomy -> code -> weight.
type CodeWeights map[taxonomy.Name]map[string]float64

// TargetProfile is the weighted code profile documents are matched against.
// Primary keys are normalized codes, Secondary keys are full codes.
type TargetProfile struct {
	Primary   CodeWeights `json:"primary,omitempty" cbor:"primary,omitempty" yaml:"primary,omitempty"`
	Secondary CodeWeights `json:"secondary,omitempty" cbor:"secondary,omitempty" yaml:"secondary,omitempty"`
}

// IsEmpty reports whether the profile has no weighted codes.
func (p TargetProfile) IsEmpty() bool {
	return len(p.Primary) == 0 && len(p.Secondary) == 0
}

// PiWeights blends the three π′ sub-scores.
type PiWeights struct {
	Code  float64 `json:"code" cbor:"code" yaml:"code"`
	Facet float64 `json:"facet" cbor:"facet" yaml:"facet"`
	Lane  float64 `json:"lane" cbor:"lane" yaml:"lane"`
}

// Recipe is the full parameter set of a fusion.
type Recipe struct {
	Weights         map[lane.Type]float64 `json:"weights,omitempty" cbor:"weights,omitempty" yaml:"weights,omitempty"`
	RRFK            int                   `json:"rrf_k" cbor:"rrf_k" yaml:"rrf_k"`
	BetaFuse        float64               `json:"beta_fuse" cbor:"beta_fuse" yaml:"beta_fuse"`
	BetaFrontier    *float64              `json:"beta_frontier,omitempty" cbor:"beta_frontier,omitempty" yaml:"beta_frontier,omitempty"`
	TargetProfile   TargetProfile         `json:"target_profile" cbor:"target_profile" yaml:"target_profile"`
	FacetTerms      map[string][]string   `json:"facet_terms,omitempty" cbor:"facet_terms,omitempty" yaml:"facet_terms,omitempty"`
	FacetWeights    map[string]float64    `json:"facet_weights,omitempty" cbor:"facet_weights,omitempty" yaml:"facet_weights,omitempty"`
	PiWeights       PiWeights             `json:"pi_weights" cbor:"pi_weights" yaml:"pi_weights"`
	KGrid           []int                 `json:"k_grid" cbor:"k_grid" yaml:"k_grid"`
	KEval           int                   `json:"k_eval" cbor:"k_eval" yaml:"k_eval"`
	Lambda          float64               `json:"lambda" cbor:"lambda" yaml:"lambda"`
	SecondaryFactor float64               `json:"secondary_factor" cbor:"secondary_factor" yaml:"secondary_factor"`
	ClassTaxonomy   taxonomy.Name         `json:"class_taxonomy" cbor:"class_taxonomy" yaml:"class_taxonomy"`
}

// Default returns the baseline recipe new fusions start from.
func Default() Recipe {
	return Recipe{
		RRFK:            DefaultRRFK,
		BetaFuse:        DefaultBetaFuse,
		PiWeights:       PiWeights{Code: 0.5, Facet: 0.3, Lane: 0.2},
		KGrid:           append([]int(nil), DefaultKGrid...),
		KEval:           DefaultKEval,
		Lambda:          DefaultLambda,
		SecondaryFactor: DefaultSecondaryFactor,
		ClassTaxonomy:   taxonomy.CPC,
	}
}

// LaneWeight returns the recipe multiplier for a lane type (1.0 when unset).
func (r *Recipe) LaneWeight(t lane.Type) float64 {
	if w, ok := r.Weights[t]; ok {
		return w
	}
	return 1.0
}

// FrontierBeta is the β of the frontier Fβ. It falls back to BetaFuse, which
// historically served both purposes.
func (r *Recipe) FrontierBeta() float64 {
	if r.BetaFrontier != nil {
		return *r.BetaFrontier
	}
	return r.BetaFuse
}

// FacetWeight returns the weight of a facet (1.0 when unset).
func (r *Recipe) FacetWeight(name string) float64 {
	if w, ok := r.FacetWeights[name]; ok {
		return w
	}
	return 1.0
}

// FacetNames returns facet names in sorted order.
func (r *Recipe) FacetNames() []string {
	names := make([]string, 0, len(r.FacetTerms))
	for name := range r.FacetTerms {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Validate checks every field and reports the first offending one. Map
// fields are checked in sorted key order so the reported field is stable.
func (r *Recipe) Validate() error {
	if r.RRFK <= 0 {
		return domain.NewRecipeError("rrf_k", fmt.Sprintf("must be positive, got %d", r.RRFK))
	}
	for _, t := range sortedKeys(r.Weights) {
		if !t.IsValid() {
			return domain.NewRecipeError("weights", fmt.Sprintf("unknown lane type %q", t))
		}
		if err := checkWeight("weights."+string(t), r.Weights[t]); err != nil {
			return err
		}
	}
	if err := checkWeight("beta_fuse", r.BetaFuse); err != nil {
		return err
	}
	if r.BetaFrontier != nil {
		if err := checkWeight("beta_frontier", *r.BetaFrontier); err != nil {
			return err
		}
	}
	if err := validateCodeWeights("target_profile.primary", r.TargetProfile.Primary); err != nil {
		return err
	}
	if err := validateCodeWeights("target_profile.secondary", r.TargetProfile.Secondary); err != nil {
		return err
	}
	for _, name := range sortedKeys(r.FacetTerms) {
		if strings.TrimSpace(name) == "" {
			return domain.NewRecipeError("facet_terms", "facet name is required")
		}
		terms := r.FacetTerms[name]
		if len(terms) == 0 {
			return domain.NewRecipeError("facet_terms."+name, "at least one term is required")
		}
		for _, term := range terms {
			if strings.TrimSpace(term) == "" {
				return domain.NewRecipeError("facet_terms."+name, "empty term")
			}
		}
	}
	for _, name := range sortedKeys(r.FacetWeights) {
		if err := checkWeight("facet_weights."+name, r.FacetWeights[name]); err != nil {
			return err
		}
	}
	if err := checkWeight("pi_weights.code", r.PiWeights.Code); err != nil {
		return err
	}
	if err := checkWeight("pi_weights.facet", r.PiWeights.Facet); err != nil {
		return err
	}
	if err := checkWeight("pi_weights.lane", r.PiWeights.Lane); err != nil {
		return err
	}
	for _, k := range r.KGrid {
		if k <= 0 {
			return domain.NewRecipeError("k_grid", fmt.Sprintf("cutoffs must be positive, got %d", k))
		}
	}
	if r.KEval <= 0 {
		return domain.NewRecipeError("k_eval", fmt.Sprintf("must be positive, got %d", r.KEval))
	}
	if err := checkWeight("lambda", r.Lambda); err != nil {
		return err
	}
	if err := checkWeight("secondary_factor", r.SecondaryFactor); err != nil {
		return err
	}
	if !r.ClassTaxonomy.IsValid() {
		return domain.NewRecipeError("class_taxonomy", fmt.Sprintf("unknown taxonomy %q", r.ClassTaxonomy))
	}
	return nil
}

func validateCodeWeights(field string, cw CodeWeights) error {
	for _, tax := range sortedKeys(cw) {
		if !tax.IsValid() {
			return domain.NewRecipeError(field, fmt.Sprintf("unknown taxonomy %q", tax))
		}
		codes := cw[tax]
		for _, code := range sortedKeys(codes) {
			if strings.TrimSpace(code) == "" {
				return domain.NewRecipeError(field+"."+string(tax), "empty code")
			}
			if err := checkWeight(field+"."+string(tax)+"."+code, codes[code]); err != nil {
				return err
			}
		}
	}
	return nil
}

// checkWeight rejects negative, NaN and infinite values.
func checkWeight(field string, w float64) error {
	if math.IsNaN(w) || math.IsInf(w, 0) {
		return domain.NewRecipeError(field, fmt.Sprintf("must be finite, got %v", w))
	}
	if w < 0 {
		return domain.NewRecipeError(field, fmt.Sprintf("must be non-negative, got %v", w))
	}
	return nil
}

func sortedKeys[K ~string, V any](m map[K]V) []K {
	return slices.Sorted(maps.Keys(m))
}

// Clone returns a deep copy.
func (r *Recipe) Clone() Recipe {
	c := *r
	if r.Weights != nil {
		c.Weights = make(map[lane.Type]float64, len(r.Weights))
		for k, v := range r.Weights {
			c.Weights[k] = v
		}
	}
	if r.BetaFrontier != nil {
		b := *r.BetaFrontier
		c.BetaFrontier = &b
	}
	c.TargetProfile = TargetProfile{
		Primary:   cloneCodeWeights(r.TargetProfile.Primary),
		Secondary: cloneCodeWeights(r.TargetProfile.Secondary),
	}
	c.FacetTerms = cloneFacetTerms(r.FacetTerms)
	if r.FacetWeights != nil {
		c.FacetWeights = make(map[string]float64, len(r.FacetWeights))
		for k, v := range r.FacetWeights {
			c.FacetWeights[k] = v
		}
	}
	if r.KGrid != nil {
		c.KGrid = append([]int(nil), r.KGrid...)
	}
	return c
}

func cloneCodeWeights(cw CodeWeights) CodeWeights {
	if cw == nil {
		return nil
	}
	out := make(CodeWeights, len(cw))
	for tax, codes := range cw {
		m := make(map[string]float64, len(codes))
		for code, w := range codes {
			m[code] = w
		}
		out[tax] = m
	}
	return out
}

func cloneFacetTerms(ft map[string][]string) map[string][]string {
	if ft == nil {
		return nil
	}
	out := make(map[string][]string, len(ft))
	for name, terms := range ft {
		out[name] = append([]string(nil), terms...)
	}
	return out
}
