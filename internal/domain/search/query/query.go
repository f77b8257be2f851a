package query

import (
	"fmt"

	"github.com/kailas-cloud/cinematch/internal/domain"
	"github.com/kailas-cloud/cinematch/internal/domain/field"
)

// Search parameter defaults.
const (
	DefaultTopK        = 9
	DefaultInitialTopK = 15
	MaxTopK            = 500
)

// Term is one field of a multi-field query. IsList distinguishes ["x"] from "x":
// only list-valued Genres terms act as a genre filter.
type Term struct {
	Field  field.Field
	Values []string
	IsList bool
}

// Query is an ordered, validated set of terms. Terms keep request order.
type Query struct {
	terms        []Term
	genresFilter []string
	hasFilter    bool
}

// RawTerm is an unvalidated field/value pair as it arrived on the wire.
type RawTerm struct {
	Name   string
	Values []string
	IsList bool
}

// New validates raw terms. Unknown field names fail with
// domain.ErrInvalidQueryType before anything is embedded.
func New(raw []RawTerm) (Query, error) {
	if len(raw) == 0 {
		return Query{}, fmt.Errorf("%w: no input keywords provided", domain.ErrValidation)
	}

	q := Query{terms: make([]Term, 0, len(raw))}
	seen := make(map[field.Field]bool, len(raw))
	for _, r := range raw {
		f, err := field.Parse(r.Name)
		if err != nil {
			return Query{}, err
		}
		if seen[f] {
			return Query{}, fmt.Errorf("%w: duplicate query field %q", domain.ErrValidation, r.Name)
		}
		seen[f] = true

		t := Term{Field: f, Values: r.Values, IsList: r.IsList}
		if f == field.Genres && r.IsList {
			q.genresFilter = r.Values
			q.hasFilter = true
		}
		q.terms = append(q.terms, t)
	}
	return q, nil
}

// Terms returns the terms in request order.
func (q *Query) Terms() []Term { return q.terms }

// GenreFilter returns the list-valued Genres term used to filter every
// field's candidates. An empty list matches no movie. ok is false when the
// query has no list-valued Genres term.
func (q *Query) GenreFilter() (genres []string, ok bool) {
	return q.genresFilter, q.hasFilter
}

// IsEmpty reports whether a term carries nothing to embed: an empty string or
// an empty list.
func (t *Term) IsEmpty() bool {
	return len(t.Values) == 0 || (!t.IsList && t.Values[0] == "")
}

// Options bounds the result size per field.
type Options struct {
	TopK        int
	InitialTopK int
}

// NewOptions applies defaults and validates bounds.
func NewOptions(topK, initialTopK int) (Options, error) {
	if topK == 0 {
		topK = DefaultTopK
	}
	if initialTopK == 0 {
		initialTopK = DefaultInitialTopK
	}
	if topK < 1 || topK > MaxTopK {
		return Options{}, fmt.Errorf("%w: top_k must be between 1 and %d, got %d",
			domain.ErrValidation, MaxTopK, topK)
	}
	if initialTopK < 1 {
		return Options{}, fmt.Errorf("%w: initial_top_k must be positive, got %d",
			domain.ErrValidation, initialTopK)
	}
	return Options{TopK: topK, InitialTopK: initialTopK}, nil
}
