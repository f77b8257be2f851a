package catalog

import (
	"fmt"

	gojson "github.com/goccy/go-json"

	"github.com/kailas-cloud/cinematch/internal/domain/field"
	"github.com/kailas-cloud/cinematch/internal/domain/movie"
	"github.com/kailas-cloud/cinematch/internal/domain/review"
)

// movieRecord is one entry of movies.json: public metadata plus one
// precomputed embedding per searchable field.
type movieRecord struct {
	movie.Movie

	SynopsisVec  vector `json:"synopsis_vectorized"`
	CastVec      vector `json:"cast_vectorized"`
	DirectorVec  vector `json:"director_vectorized"`
	ProducersVec vector `json:"producer_vectorized"`
	WritersVec   vector `json:"writer_vectorized"`
	TitleVec     vector `json:"title_vectorized"`
	GenresVec    vector `json:"genres_vectorized"`
}

// vectorFor returns the embedding stored for f.
func (r *movieRecord) vectorFor(f field.Field) vector {
	switch f {
	case field.Synopsis:
		return r.SynopsisVec
	case field.Cast:
		return r.CastVec
	case field.Director:
		return r.DirectorVec
	case field.Producers:
		return r.ProducersVec
	case field.Writers:
		return r.WritersVec
	case field.Title:
		return r.TitleVec
	case field.Genres:
		return r.GenresVec
	default:
		return nil
	}
}

// reviewRecord is one entry of reviews.json.
type reviewRecord struct {
	ID      int    `json:"id"`
	Title   string `json:"Title"`
	Reviews []struct {
		Username string `json:"Username"`
		Review   string `json:"Review"`
	} `json:"Reviews"`
}

func (r *reviewRecord) toDomain() review.MovieReviews {
	out := review.MovieReviews{ID: r.ID, Title: r.Title, Reviews: make([]review.Review, len(r.Reviews))}
	for i, rv := range r.Reviews {
		out.Reviews[i] = review.Review{Username: rv.Username, Text: rv.Review}
	}
	return out
}

// vector accepts both a flat [d] array and a single-row [[d]] matrix, the
// latter being how pooled encoder outputs are often serialized.
type vector []float64

func (v *vector) UnmarshalJSON(data []byte) error {
	var flat []float64
	if err := gojson.Unmarshal(data, &flat); err == nil {
		*v = flat
		return nil
	}

	var nested [][]float64
	if err := gojson.Unmarshal(data, &nested); err != nil {
		return fmt.Errorf("decode vector: %w", err)
	}
	if len(nested) != 1 {
		return fmt.Errorf("decode vector: expected a single row, got %d", len(nested))
	}
	*v = nested[0]
	return nil
}
