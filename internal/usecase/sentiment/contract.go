package sentiment

import (
	"context"

	"github.com/kailas-cloud/cinematch/internal/domain/review"
	domsent "github.com/kailas-cloud/cinematch/internal/domain/sentiment"
)

// Classifier labels a batch of cleaned review texts, preserving order.
type Classifier interface {
	Classify(ctx context.Context, texts []string) ([]domsent.Label, error)
}

// ReviewLoader reads the raw reviews of one movie.
type ReviewLoader interface {
	Reviews(ctx context.Context, movieID int) (review.MovieReviews, error)
}
