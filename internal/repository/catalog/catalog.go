// Package catalog is the read-only movie store: metadata, per-field
// embedding matrices and raw reviews, loaded once at startup.
package catalog

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	gojson "github.com/goccy/go-json"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/kailas-cloud/cinematch/internal/domain"
	"github.com/kailas-cloud/cinematch/internal/domain/field"
	"github.com/kailas-cloud/cinematch/internal/domain/movie"
	"github.com/kailas-cloud/cinematch/internal/domain/review"
)

// Catalog is immutable after construction and safe for concurrent use.
type Catalog struct {
	movies  []movie.Movie
	index   map[int]int
	vectors [field.Count]*mat.Dense
	norms   [field.Count][]float64

	reviews     map[int]review.MovieReviews
	reviewOrder []int
}

// Vectors holds one row per movie for every searchable field.
type Vectors [field.Count][][]float64

// New validates and assembles a catalog. Every field matrix must have one row
// per movie and a constant dimension.
func New(movies []movie.Movie, vectors Vectors, reviews []review.MovieReviews) (*Catalog, error) {
	if len(movies) == 0 {
		return nil, fmt.Errorf("catalog has no movies")
	}

	c := &Catalog{
		movies:      movies,
		index:       make(map[int]int, len(movies)),
		reviews:     make(map[int]review.MovieReviews, len(reviews)),
		reviewOrder: make([]int, 0, len(reviews)),
	}
	for i, m := range movies {
		if _, dup := c.index[m.ID]; dup {
			return nil, fmt.Errorf("duplicate movie id %d", m.ID)
		}
		c.index[m.ID] = i
	}

	for _, f := range field.All() {
		dense, norms, err := buildMatrix(vectors[f], len(movies))
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", f, err)
		}
		c.vectors[f] = dense
		c.norms[f] = norms
	}

	for _, r := range reviews {
		if _, dup := c.reviews[r.ID]; dup {
			return nil, fmt.Errorf("duplicate reviews for movie id %d", r.ID)
		}
		c.reviews[r.ID] = r
		c.reviewOrder = append(c.reviewOrder, r.ID)
	}

	return c, nil
}

func buildMatrix(rows [][]float64, want int) (*mat.Dense, []float64, error) {
	if len(rows) != want {
		return nil, nil, fmt.Errorf("%d vectors for %d movies", len(rows), want)
	}
	dim := len(rows[0])
	if dim == 0 {
		return nil, nil, fmt.Errorf("row 0 has no components")
	}

	data := make([]float64, 0, want*dim)
	norms := make([]float64, want)
	for i, r := range rows {
		if len(r) != dim {
			return nil, nil, fmt.Errorf("row %d has dimension %d, want %d", i, len(r), dim)
		}
		data = append(data, r...)
		norms[i] = floats.Norm(r, 2)
	}
	return mat.NewDense(want, dim, data), norms, nil
}

// Load reads movies.json and reviews.json.
func Load(moviesPath, reviewsPath string) (*Catalog, error) {
	var records []movieRecord
	if err := readJSON(moviesPath, &records); err != nil {
		return nil, err
	}

	var reviewRecords []reviewRecord
	if reviewsPath != "" {
		if err := readJSON(reviewsPath, &reviewRecords); err != nil {
			return nil, err
		}
	}

	movies := make([]movie.Movie, len(records))
	var vectors Vectors
	for i := range records {
		movies[i] = records[i].Movie
		for _, f := range field.All() {
			vectors[f] = append(vectors[f], records[i].vectorFor(f))
		}
	}

	reviews := make([]review.MovieReviews, len(reviewRecords))
	for i := range reviewRecords {
		reviews[i] = reviewRecords[i].toDomain()
	}

	return New(movies, vectors, reviews)
}

func readJSON(path string, dst any) error {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	if err := gojson.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return nil
}

// Len returns the number of movies.
func (c *Catalog) Len() int { return len(c.movies) }

// MovieAt returns the movie at corpus row i.
func (c *Catalog) MovieAt(i int) movie.Movie { return c.movies[i] }

// Movie resolves a movie by identifier.
func (c *Catalog) Movie(id int) (movie.Movie, bool) {
	i, ok := c.index[id]
	if !ok {
		return movie.Movie{}, false
	}
	return c.movies[i], true
}

// Matrix returns the embedding matrix of f (row i ↔ MovieAt(i)).
// Callers must not modify it.
func (c *Catalog) Matrix(f field.Field) *mat.Dense { return c.vectors[f] }

// RowNorms returns the precomputed L2 norm of every row of Matrix(f).
func (c *Catalog) RowNorms(f field.Field) []float64 { return c.norms[f] }

// Reviews returns the raw reviews of one movie.
func (c *Catalog) Reviews(_ context.Context, movieID int) (review.MovieReviews, error) {
	r, ok := c.reviews[movieID]
	if !ok {
		return review.MovieReviews{}, fmt.Errorf("no data found for movie ID %d: %w", movieID, domain.ErrNotFound)
	}
	return r.Clone(), nil
}

// ReviewedMovieIDs returns the ids present in the reviews file, in file order.
func (c *Catalog) ReviewedMovieIDs() []int {
	out := make([]int, len(c.reviewOrder))
	copy(out, c.reviewOrder)
	return out
}

// Ping reports the catalog as available. It is loaded in memory, so this
// only guards against a nil catalog being wired in.
func (c *Catalog) Ping(_ context.Context) error {
	if c == nil || len(c.movies) == 0 {
		return fmt.Errorf("catalog not loaded")
	}
	return nil
}
