package fusion

import "github.com/kailas-cloud/lanefuse/internal/domain/run"

// FoldFamilies keeps the first entry seen for each family and drops later
// ones, preserving order. Entries without a family id are their own family.
// Folding an already folded list returns it unchanged.
func FoldFamilies(entries []run.Entry) []run.Entry {
	seen := make(map[string]struct{}, len(entries))
	out := make([]run.Entry, 0, len(entries))
	for _, e := range entries {
		family := e.FamilyID
		if family == "" {
			family = e.DocID
		}
		if _, dup := seen[family]; dup {
			continue
		}
		seen[family] = struct{}{}
		out = append(out, e)
	}
	return out
}
