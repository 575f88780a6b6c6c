package recipe

import (
	"sort"

	"github.com/kailas-cloud/lanefuse/internal/domain/lane"
	"github.com/kailas-cloud/lanefuse/internal/domain/taxonomy"
)

// Override carries recipe fields to replace. A present field replaces the base
// value outright (maps included, they are not merged key-by-key); an absent
// field is inherited.
type Override struct {
	Weights         *map[lane.Type]float64 `json:"weights,omitempty" yaml:"weights,omitempty"`
	RRFK            *int                   `json:"rrf_k,omitempty" yaml:"rrf_k,omitempty"`
	BetaFuse        *float64               `json:"beta_fuse,omitempty" yaml:"beta_fuse,omitempty"`
	BetaFrontier    *float64               `json:"beta_frontier,omitempty" yaml:"beta_frontier,omitempty"`
	TargetProfile   *TargetProfile         `json:"target_profile,omitempty" yaml:"target_profile,omitempty"`
	FacetTerms      *map[string][]string   `json:"facet_terms,omitempty" yaml:"facet_terms,omitempty"`
	FacetWeights    *map[string]float64    `json:"facet_weights,omitempty" yaml:"facet_weights,omitempty"`
	PiWeights       *PiWeights             `json:"pi_weights,omitempty" yaml:"pi_weights,omitempty"`
	KGrid           *[]int                 `json:"k_grid,omitempty" yaml:"k_grid,omitempty"`
	KEval           *int                   `json:"k_eval,omitempty" yaml:"k_eval,omitempty"`
	Lambda          *float64               `json:"lambda,omitempty" yaml:"lambda,omitempty"`
	SecondaryFactor *float64               `json:"secondary_factor,omitempty" yaml:"secondary_factor,omitempty"`
	ClassTaxonomy   *taxonomy.Name         `json:"class_taxonomy,omitempty" yaml:"class_taxonomy,omitempty"`

	// SteerFromRepresentatives re-derives facet weights from the labelled
	// representatives of the run being mutated. Resolved by the run service
	// into FacetWeights before Apply.
	SteerFromRepresentatives bool `json:"steer_from_representatives,omitempty" yaml:"steer_from_representatives,omitempty"`
}

// IsEmpty reports whether no field is set.
func (o *Override) IsEmpty() bool {
	return len(o.Fields()) == 0
}

// Fields lists the recipe fields the override sets, sorted.
func (o *Override) Fields() []string {
	var f []string
	add := func(set bool, name string) {
		if set {
			f = append(f, name)
		}
	}
	add(o.Weights != nil, "weights")
	add(o.RRFK != nil, "rrf_k")
	add(o.BetaFuse != nil, "beta_fuse")
	add(o.BetaFrontier != nil, "beta_frontier")
	add(o.TargetProfile != nil, "target_profile")
	add(o.FacetTerms != nil, "facet_terms")
	add(o.FacetWeights != nil || o.SteerFromRepresentatives, "facet_weights")
	add(o.PiWeights != nil, "pi_weights")
	add(o.KGrid != nil, "k_grid")
	add(o.KEval != nil, "k_eval")
	add(o.Lambda != nil, "lambda")
	add(o.SecondaryFactor != nil, "secondary_factor")
	add(o.ClassTaxonomy != nil, "class_taxonomy")
	sort.Strings(f)
	return f
}

// Apply returns a copy of base with every present override field replacing
// the base value. base is not modified.
func (o *Override) Apply(base Recipe) Recipe {
	r := base.Clone()
	if o == nil {
		return r
	}
	if o.Weights != nil {
		r.Weights = make(map[lane.Type]float64, len(*o.Weights))
		for k, v := range *o.Weights {
			r.Weights[k] = v
		}
	}
	if o.RRFK != nil {
		r.RRFK = *o.RRFK
	}
	if o.BetaFuse != nil {
		r.BetaFuse = *o.BetaFuse
	}
	if o.BetaFrontier != nil {
		b := *o.BetaFrontier
		r.BetaFrontier = &b
	}
	if o.TargetProfile != nil {
		r.TargetProfile = TargetProfile{
			Primary:   cloneCodeWeights(o.TargetProfile.Primary),
			Secondary: cloneCodeWeights(o.TargetProfile.Secondary),
		}
	}
	if o.FacetTerms != nil {
		r.FacetTerms = cloneFacetTerms(*o.FacetTerms)
	}
	if o.FacetWeights != nil {
		r.FacetWeights = make(map[string]float64, len(*o.FacetWeights))
		for k, v := range *o.FacetWeights {
			r.FacetWeights[k] = v
		}
	}
	if o.PiWeights != nil {
		r.PiWeights = *o.PiWeights
	}
	if o.KGrid != nil {
		r.KGrid = append([]int(nil), (*o.KGrid)...)
	}
	if o.KEval != nil {
		r.KEval = *o.KEval
	}
	if o.Lambda != nil {
		r.Lambda = *o.Lambda
	}
	if o.SecondaryFactor != nil {
		r.SecondaryFactor = *o.SecondaryFactor
	}
	if o.ClassTaxonomy != nil {
		r.ClassTaxonomy = *o.ClassTaxonomy
	}
	return r
}
