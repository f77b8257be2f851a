package chi

import (
	"github.com/kailas-cloud/cinematch/internal/domain/movie"
	"github.com/kailas-cloud/cinematch/internal/domain/review"
	"github.com/kailas-cloud/cinematch/internal/domain/search/result"
	domsent "github.com/kailas-cloud/cinematch/internal/domain/sentiment"
	healthuc "github.com/kailas-cloud/cinematch/internal/usecase/health"
)

const (
	statusSuccess = "success"
	statusError   = "error"
)

type errorResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

type healthResponse struct {
	Status string                          `json:"status"`
	Checks map[string]healthuc.CheckResult `json:"checks"`
}

type bundleResponse struct {
	Field      string        `json:"field"`
	Results    []movie.Movie `json:"results"`
	Scores     []float64     `json:"scores"`
	Confidence float64       `json:"confidence"`
}

type recommendResponse struct {
	Status          string           `json:"status"`
	Recommendations []bundleResponse `json:"recommendations"`
}

type sortedMoviesResponse struct {
	Status       string                `json:"status"`
	SortedMovies []domsent.RankedMovie `json:"sorted_movies"`
}

type classifyResponse struct {
	Status            string              `json:"status"`
	ClassifiedReviews review.MovieReviews `json:"classified_reviews"`
}

func bundlesToResponse(bundles []result.Bundle) []bundleResponse {
	out := make([]bundleResponse, len(bundles))
	for i, b := range bundles {
		out[i] = bundleResponse{
			Field:      b.Field().String(),
			Results:    b.Movies(),
			Scores:     b.Scores(),
			Confidence: b.Confidence(),
		}
	}
	return out
}
