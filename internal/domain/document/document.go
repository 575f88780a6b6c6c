// Package document holds the read-only document reference supplied by the
// search backend alongside lane results.
package document

import (
	"fmt"

	"github.com/kailas-cloud/lanefuse/internal/domain/taxonomy"
)

// Document is per-document metadata used for boosting, facet scoring and
// family folding. A document without codes or text is valid; its sub-scores
// degrade to zero.
type Document struct {
	ID       string                            `json:"doc_id" cbor:"doc_id" yaml:"doc_id"`
	FamilyID string                            `json:"family_id,omitempty" cbor:"family_id,omitempty" yaml:"family_id,omitempty"`
	Title    string                            `json:"title,omitempty" cbor:"title,omitempty" yaml:"title,omitempty"`
	Abstract string                            `json:"abstract,omitempty" cbor:"abstract,omitempty" yaml:"abstract,omitempty"`
	Claims   string                            `json:"claims,omitempty" cbor:"claims,omitempty" yaml:"claims,omitempty"`
	Codes    map[taxonomy.Name][]taxonomy.Code `json:"codes,omitempty" cbor:"codes,omitempty" yaml:"codes,omitempty"`
}

// Validate checks the identifier and re-derives normalized codes from full
// ones. The codes are rebuilt into a fresh map, so documents copied from a
// shared value can be validated concurrently.
func (d *Document) Validate() error {
	if d.ID == "" {
		return fmt.Errorf("doc_id is required")
	}
	if d.Codes == nil {
		return nil
	}
	codes := make(map[taxonomy.Name][]taxonomy.Code, len(d.Codes))
	for tax, in := range d.Codes {
		if !tax.IsValid() {
			return fmt.Errorf("doc %q: unknown taxonomy %q", d.ID, tax)
		}
		out := make([]taxonomy.Code, len(in))
		for i, c := range in {
			out[i] = taxonomy.NewCode(c.Full, c.Normalized)
			if out[i].Normalized == "" {
				return fmt.Errorf("doc %q: empty %s code at position %d", d.ID, tax, i)
			}
		}
		codes[tax] = out
	}
	d.Codes = codes
	return nil
}

// Family returns the family identifier, falling back to the document id so a
// document without a family is its own family.
func (d *Document) Family() string {
	if d.FamilyID != "" {
		return d.FamilyID
	}
	return d.ID
}

// Text returns the concatenated text fields used for facet matching.
func (d *Document) Text() string {
	return d.Title + "\n" + d.Abstract + "\n" + d.Claims
}

// NormalizedCodes returns the distinct normalized codes for a taxonomy in
// their original order.
func (d *Document) NormalizedCodes(tax taxonomy.Name) []string {
	return distinct(d.Codes[tax], func(c taxonomy.Code) string { return c.Normalized })
}

// FullCodes returns the distinct non-empty full codes for a taxonomy.
func (d *Document) FullCodes(tax taxonomy.Name) []string {
	return distinct(d.Codes[tax], func(c taxonomy.Code) string { return c.Full })
}

// PrimaryCode returns the first normalized code of a taxonomy, if any.
func (d *Document) PrimaryCode(tax taxonomy.Name) (string, bool) {
	for _, c := range d.Codes[tax] {
		if c.Normalized != "" {
			return c.Normalized, true
		}
	}
	return "", false
}

func distinct(codes []taxonomy.Code, key func(taxonomy.Code) string) []string {
	if len(codes) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(codes))
	out := make([]string, 0, len(codes))
	for _, c := range codes {
		k := key(c)
		if k == "" {
			continue
		}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	return out
}
