// Package taxonomy defines the closed set of classification schemes and the
// normalizer that maps a full code to its coarse form.
package taxonomy

import (
	"fmt"
	"strings"
)

// Name identifies a classification scheme.
type Name string

// Supported classification schemes.
const (
	CPC   Name = "cpc"
	IPC   Name = "ipc"
	FI    Name = "fi"
	FTerm Name = "fterm"
	USPC  Name = "uspc"
)

var known = map[Name]struct{}{
	CPC: {}, IPC: {}, FI: {}, FTerm: {}, USPC: {},
}

// IsValid reports whether n is one of the supported schemes.
func (n Name) IsValid() bool {
	_, ok := known[n]
	return ok
}

// Parse validates a scheme name. Matching is case-insensitive.
func Parse(s string) (Name, error) {
	n := Name(strings.ToLower(strings.TrimSpace(s)))
	if !n.IsValid() {
		return "", fmt.Errorf("unknown taxonomy %q", s)
	}
	return n, nil
}

// UnmarshalText rejects unknown scheme names, so maps keyed by Name fail to
// decode instead of silently carrying typos.
func (n *Name) UnmarshalText(b []byte) error {
	parsed, err := Parse(string(b))
	if err != nil {
		return err
	}
	*n = parsed
	return nil
}

// Normalize strips a single trailing alphabetic qualifier from a full code
// ("H04L9/32A" -> "H04L9/32"). Codes without a qualifier, and single-letter
// codes, are returned unchanged apart from surrounding whitespace.
func Normalize(full string) string {
	code := strings.TrimSpace(full)
	if len(code) < 2 {
		return code
	}
	last := code[len(code)-1]
	if isLetter(last) {
		return code[:len(code)-1]
	}
	return code
}

func isLetter(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

// Code is a classification code in both precisions.
type Code struct {
	Full       string `json:"full,omitempty" cbor:"full,omitempty" yaml:"full,omitempty"`
	Normalized string `json:"normalized" cbor:"normalized" yaml:"normalized"`
}

// NewCode derives the normalized code from the full one. When full is empty the
// normalized code is taken as given (backends that only know the coarse code).
func NewCode(full, normalized string) Code {
	full = strings.TrimSpace(full)
	if full == "" {
		return Code{Normalized: strings.TrimSpace(normalized)}
	}
	return Code{Full: full, Normalized: Normalize(full)}
}
