package chi

import (
	"context"

	"github.com/kailas-cloud/cinematch/internal/domain/review"
	"github.com/kailas-cloud/cinematch/internal/domain/search/query"
	"github.com/kailas-cloud/cinematch/internal/domain/search/result"
	domsent "github.com/kailas-cloud/cinematch/internal/domain/sentiment"
	healthuc "github.com/kailas-cloud/cinematch/internal/usecase/health"
)

// Recommender runs multi-field semantic search.
type Recommender interface {
	Search(ctx context.Context, q *query.Query, opts query.Options) ([]result.Bundle, error)
}

// SortedLister builds the sentiment-sorted movie list.
type SortedLister interface {
	SortedMovies(ctx context.Context) ([]domsent.RankedMovie, error)
}

// ReviewClassifier returns a movie's reviews with sentiment attached.
type ReviewClassifier interface {
	GetOrClassify(ctx context.Context, movieID int) (review.MovieReviews, error)
}

// HealthReporter aggregates component health.
type HealthReporter interface {
	Check(ctx context.Context) healthuc.Report
}
