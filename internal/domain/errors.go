package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrValidation signals a malformed or incomplete request.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound signals a missing resource.
	ErrNotFound = errors.New("not found")
	// ErrCompute signals a failure while computing a result (providers, ranking).
	ErrCompute = errors.New("compute error")
)

var (
	// ErrInvalidQueryType signals an unknown search field name.
	ErrInvalidQueryType = fmt.Errorf("invalid query type: %w", ErrValidation)
	// ErrNoReviews signals a movie without any reviews to classify.
	ErrNoReviews = fmt.Errorf("no reviews: %w", ErrNotFound)
	// ErrDegenerateCorpus signals that every sentiment count is zero.
	ErrDegenerateCorpus = fmt.Errorf("degenerate corpus: %w", ErrCompute)
	// ErrOptimizationFailure signals that the weight optimizer did not converge.
	ErrOptimizationFailure = fmt.Errorf("optimization failure: %w", ErrCompute)
	// ErrComputeTimeout signals that a bounded computation ran past its deadline.
	ErrComputeTimeout = fmt.Errorf("computation timed out: %w", ErrCompute)
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = fmt.Errorf("embedding provider error: %w", ErrCompute)
	// ErrClassifierProviderError signals a sentiment classifier failure.
	ErrClassifierProviderError = fmt.Errorf("sentiment classifier error: %w", ErrCompute)
)

// InvalidQueryTypeError carries the rejected field and the accepted names.
type InvalidQueryTypeError struct {
	Field   string
	Allowed []string
}

func (e *InvalidQueryTypeError) Error() string {
	return fmt.Sprintf("Invalid query type: %s. Valid types are: [%s]",
		e.Field, strings.Join(e.Allowed, ", "))
}

func (e *InvalidQueryTypeError) Unwrap() error { return ErrInvalidQueryType }

// NewInvalidQueryType creates an invalid query type error.
func NewInvalidQueryType(name string, allowed []string) error {
	return &InvalidQueryTypeError{Field: name, Allowed: allowed}
}
