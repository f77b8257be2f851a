package catalog

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/kailas-cloud/cinematch/internal/domain"
	"github.com/kailas-cloud/cinematch/internal/domain/field"
	"github.com/kailas-cloud/cinematch/internal/domain/movie"
	"github.com/kailas-cloud/cinematch/internal/domain/review"
)

const moviesJSON = `[
  {"id": 1, "Title": "Heat", "Genres": ["Crime", "Drama"], "Year": 1995,
   "Director": ["Michael Mann"], "Cast": ["Al Pacino"],
   "synopsis_vectorized": [1, 0], "cast_vectorized": [[0, 1]],
   "director_vectorized": [1, 1], "producer_vectorized": [1, 0],
   "writer_vectorized": [1, 0], "title_vectorized": [1, 0],
   "genres_vectorized": [0, 1]},
  {"id": 2, "Title": "Ronin", "Genres": ["Action"], "Year": "1998",
   "synopsis_vectorized": [0, 1], "cast_vectorized": [[1, 0]],
   "director_vectorized": [3, 4], "producer_vectorized": [0, 1],
   "writer_vectorized": [0, 1], "title_vectorized": [0, 1],
   "genres_vectorized": [1, 0]}
]`

const reviewsJSON = `[
  {"id": 2, "Title": "Ronin", "Reviews": [{"Username": "kim", "Review": "Car chases!"}]},
  {"id": 1, "Title": "Heat", "Reviews": [{"Username": "lee", "Review": "Classic."}, {"Username": "max", "Review": "Long."}]}
]`

func writeFixtures(t *testing.T, movies, reviews string) (string, string) {
	t.Helper()
	dir := t.TempDir()
	mp := filepath.Join(dir, "movies.json")
	rp := filepath.Join(dir, "reviews.json")
	if err := os.WriteFile(mp, []byte(movies), 0o600); err != nil {
		t.Fatalf("write movies: %v", err)
	}
	if err := os.WriteFile(rp, []byte(reviews), 0o600); err != nil {
		t.Fatalf("write reviews: %v", err)
	}
	return mp, rp
}

func TestLoad(t *testing.T) {
	mp, rp := writeFixtures(t, moviesJSON, reviewsJSON)

	c, err := Load(mp, rp)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", c.Len())
	}

	m, ok := c.Movie(2)
	if !ok || m.Title != "Ronin" || m.Year != 1998 {
		t.Errorf("Movie(2) = %+v, %v", m, ok)
	}
	if c.MovieAt(0).ID != 1 {
		t.Errorf("MovieAt(0).ID = %d", c.MovieAt(0).ID)
	}

	cast := c.Matrix(field.Cast)
	if r, col := cast.Dims(); r != 2 || col != 2 {
		t.Fatalf("cast dims = %dx%d", r, col)
	}
	if cast.At(0, 1) != 1 || cast.At(1, 0) != 1 {
		t.Errorf("nested vectors decoded incorrectly")
	}
	if norms := c.RowNorms(field.Director); norms[1] != 5 {
		t.Errorf("director norm[1] = %v, want 5", norms[1])
	}

	ids := c.ReviewedMovieIDs()
	if len(ids) != 2 || ids[0] != 2 || ids[1] != 1 {
		t.Errorf("ReviewedMovieIDs = %v, want file order [2 1]", ids)
	}
	if err := c.Ping(context.Background()); err != nil {
		t.Errorf("Ping: %v", err)
	}
}

func TestReviews(t *testing.T) {
	mp, rp := writeFixtures(t, moviesJSON, reviewsJSON)
	c, err := Load(mp, rp)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	r, err := c.Reviews(context.Background(), 1)
	if err != nil {
		t.Fatalf("Reviews: %v", err)
	}
	if len(r.Reviews) != 2 || r.Reviews[0].Username != "lee" || r.Reviews[1].Text != "Long." {
		t.Errorf("unexpected reviews: %+v", r)
	}

	// Returned records are copies.
	r.Reviews[0].Text = "changed"
	again, _ := c.Reviews(context.Background(), 1)
	if again.Reviews[0].Text != "Classic." {
		t.Error("catalog review mutated through returned copy")
	}

	_, err = c.Reviews(context.Background(), 99)
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.json"), ""); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoad_BadVector(t *testing.T) {
	bad := `[{"id": 1, "synopsis_vectorized": [[1, 0], [0, 1]]}]`
	mp, rp := writeFixtures(t, bad, "[]")
	if _, err := Load(mp, rp); err == nil {
		t.Fatal("expected error for multi-row vector")
	}
}

func TestNew_Validation(t *testing.T) {
	movies := []movie.Movie{{ID: 1}, {ID: 2}}
	full := func() Vectors {
		var v Vectors
		for _, f := range field.All() {
			v[f] = [][]float64{{1, 0}, {0, 1}}
		}
		return v
	}

	t.Run("valid", func(t *testing.T) {
		if _, err := New(movies, full(), nil); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})
	t.Run("no movies", func(t *testing.T) {
		if _, err := New(nil, Vectors{}, nil); err == nil {
			t.Fatal("expected error")
		}
	})
	t.Run("row count mismatch", func(t *testing.T) {
		v := full()
		v[field.Title] = [][]float64{{1, 0}}
		if _, err := New(movies, v, nil); err == nil {
			t.Fatal("expected error")
		}
	})
	t.Run("dimension mismatch", func(t *testing.T) {
		v := full()
		v[field.Cast] = [][]float64{{1, 0}, {0, 1, 2}}
		if _, err := New(movies, v, nil); err == nil {
			t.Fatal("expected error")
		}
	})
	t.Run("duplicate id", func(t *testing.T) {
		if _, err := New([]movie.Movie{{ID: 1}, {ID: 1}}, full(), nil); err == nil {
			t.Fatal("expected error")
		}
	})
	t.Run("duplicate reviews", func(t *testing.T) {
		reviews := []review.MovieReviews{{ID: 1}, {ID: 1}}
		if _, err := New(movies, full(), reviews); err == nil {
			t.Fatal("expected error")
		}
	})
}
