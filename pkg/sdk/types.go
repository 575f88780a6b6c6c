package lanefuse

import (
	"github.com/kailas-cloud/lanefuse/internal/domain/document"
	"github.com/kailas-cloud/lanefuse/internal/domain/lane"
	"github.com/kailas-cloud/lanefuse/internal/domain/recipe"
	domrun "github.com/kailas-cloud/lanefuse/internal/domain/run"
	"github.com/kailas-cloud/lanefuse/internal/domain/taxonomy"
	laneuc "github.com/kailas-cloud/lanefuse/internal/usecase/lane"
)

// Public aliases of the engine's value types.
type (
	LaneType         = lane.Type
	RankedDoc        = lane.RankedDoc
	CodeSummary      = lane.CodeSummary
	Document         = document.Document
	Taxonomy         = taxonomy.Name
	Code             = taxonomy.Code
	Recipe           = recipe.Recipe
	Override         = recipe.Override
	TargetProfile    = recipe.TargetProfile
	CodeWeights      = recipe.CodeWeights
	PiWeights        = recipe.PiWeights
	Run              = domrun.Run
	Entry            = domrun.Entry
	Metrics          = domrun.Metrics
	FrontierPoint    = domrun.FrontierPoint
	LaneContribution = domrun.LaneContribution
	Representative   = domrun.Representative
	Label            = domrun.Label
)

// Lane types.
const (
	Lexical  = lane.Lexical
	Semantic = lane.Semantic
	CodeOnly = lane.CodeOnly
	Citation = lane.Citation
	Hybrid   = lane.Hybrid
)

// Taxonomies.
const (
	CPC   = taxonomy.CPC
	IPC   = taxonomy.IPC
	FI    = taxonomy.FI
	FTerm = taxonomy.FTerm
	USPC  = taxonomy.USPC
)

// Representative labels.
const (
	LabelA = domrun.LabelA
	LabelB = domrun.LabelB
	LabelC = domrun.LabelC
)

// Lane is one retrieval lane's output to ingest.
type Lane struct {
	Type LaneType
	// Weight defaults to 1 when nil.
	Weight *float64
	Docs   []RankedDoc
	// CodeSummary is derived from Documents when empty.
	CodeSummary CodeSummary
	// Documents carries metadata for boosting, facets and family folding.
	Documents []Document
}

// DefaultRecipe returns the built-in recipe.
func DefaultRecipe() Recipe { return recipe.Default() }

// NewCode builds a code, deriving the normalized form from the full one.
func NewCode(full string) Code { return taxonomy.NewCode(full, "") }

func (l *Lane) toRequest() laneuc.IngestRequest {
	return laneuc.IngestRequest{
		Type:        l.Type,
		Weight:      l.Weight,
		Docs:        l.Docs,
		CodeSummary: l.CodeSummary,
		Documents:   l.Documents,
	}
}
