package result

import (
	"github.com/kailas-cloud/cinematch/internal/domain/field"
	"github.com/kailas-cloud/cinematch/internal/domain/movie"
)

// Bundle is the ranked output of one query field.
// Movies and scores are parallel and sorted by descending score.
type Bundle struct {
	field      field.Field
	movies     []movie.Movie
	scores     []float64
	confidence float64
}

// New creates a result bundle.
func New(f field.Field, movies []movie.Movie, scores []float64, confidence float64) Bundle {
	return Bundle{field: f, movies: movies, scores: scores, confidence: confidence}
}

// Field returns the query field the bundle answers.
func (b *Bundle) Field() field.Field { return b.field }

// Movies returns the selected movies in rank order.
func (b *Bundle) Movies() []movie.Movie { return b.movies }

// Scores returns the cosine similarity of each selected movie.
func (b *Bundle) Scores() []float64 { return b.scores }

// Confidence returns the best similarity over the whole corpus for the field.
func (b *Bundle) Confidence() float64 { return b.confidence }

// Len returns the number of selected movies.
func (b *Bundle) Len() int { return len(b.movies) }
