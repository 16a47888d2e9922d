package doctor

import (
	"context"
	"fmt"
	"strings"
)

// MatchMode is the single matching strategy used by every doctor lookup.
type MatchMode string

const (
	MatchExact     MatchMode = "exact"
	MatchSubstring MatchMode = "substring"
)

func ParseMatchMode(s string) (MatchMode, error) {
	switch MatchMode(strings.ToLower(strings.TrimSpace(s))) {
	case MatchExact, "":
		return MatchExact, nil
	case MatchSubstring:
		return MatchSubstring, nil
	default:
		return "", fmt.Errorf("unknown match mode %q", s)
	}
}

// Field selects which doctor attribute a query matches against.
type Field string

const (
	FieldName      Field = "name"
	FieldSpecialty Field = "specialty"
)

type Query struct {
	Field Field
	Value string
	Mode  MatchMode
}

// Store is the read side of the doctor catalog.
type Store interface {
	List(ctx context.Context) ([]Doctor, error)
	Find(ctx context.Context, q Query) ([]Doctor, error)
	Specialties(ctx context.Context) ([]string, error)
}

// normalize folds case and collapses whitespace so "dr.  rao" matches "Dr. Rao".
func normalize(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

// Match reports whether candidate satisfies query under mode.
func (m MatchMode) Match(candidate, query string) bool {
	c, q := normalize(candidate), normalize(query)
	if q == "" {
		return false
	}
	if m == MatchSubstring {
		return strings.Contains(c, q)
	}
	return c == q
}
