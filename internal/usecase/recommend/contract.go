package recommend

import (
	"context"

	"gonum.org/v1/gonum/mat"

	"github.com/kailas-cloud/cinematch/internal/domain"
	"github.com/kailas-cloud/cinematch/internal/domain/field"
	"github.com/kailas-cloud/cinematch/internal/domain/movie"
)

// Corpus exposes the read-only movie matrices the engine scores against.
type Corpus interface {
	Len() int
	MovieAt(i int) movie.Movie
	Matrix(f field.Field) *mat.Dense
	RowNorms(f field.Field) []float64
}

// Embedder vectorizes query text.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}
