package sentiment

import (
	"context"
	"fmt"

	"github.com/kailas-cloud/cinematch/internal/domain"
	"github.com/kailas-cloud/cinematch/internal/domain/review"
	domsent "github.com/kailas-cloud/cinematch/internal/domain/sentiment"
)

// Aggregator turns a movie's raw reviews into sentiment counts.
type Aggregator struct {
	classifier Classifier
}

// NewAggregator creates an aggregator over a classifier.
func NewAggregator(classifier Classifier) *Aggregator {
	return &Aggregator{classifier: classifier}
}

// Aggregate cleans and classifies the reviews in one batch and tallies the
// labels. Total always equals len(reviews); no reviews is domain.ErrNoReviews.
func (a *Aggregator) Aggregate(ctx context.Context, movieID int, reviews []string) (domsent.Count, error) {
	if len(reviews) == 0 {
		return domsent.Count{}, fmt.Errorf("movie %d: %w", movieID, domain.ErrNoReviews)
	}

	labels, err := classify(ctx, a.classifier, movieID, review.CleanAll(reviews))
	if err != nil {
		return domsent.Count{}, err
	}
	return domsent.CountLabels(movieID, labels), nil
}

// classify runs the classifier and checks its answer lines up with the input.
func classify(ctx context.Context, c Classifier, movieID int, cleaned []string) ([]domsent.Label, error) {
	labels, err := c.Classify(ctx, cleaned)
	if err != nil {
		return nil, fmt.Errorf("classify reviews of movie %d: %w", movieID, err)
	}
	if len(labels) != len(cleaned) {
		return nil, fmt.Errorf("classify reviews of movie %d: got %d labels for %d reviews: %w",
			movieID, len(labels), len(cleaned), domain.ErrClassifierProviderError)
	}
	for i, l := range labels {
		if !l.IsValid() {
			return nil, fmt.Errorf("classify reviews of movie %d: review %d has label %q: %w",
				movieID, i, l, domain.ErrClassifierProviderError)
		}
	}
	return labels, nil
}
