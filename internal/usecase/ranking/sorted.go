package ranking

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/cinematch/internal/domain"
	"github.com/kailas-cloud/cinematch/internal/domain/movie"
	"github.com/kailas-cloud/cinematch/internal/domain/review"
	domsent "github.com/kailas-cloud/cinematch/internal/domain/sentiment"
	logpkg "github.com/kailas-cloud/cinematch/internal/logger"
)

// DefaultSortedLimit is the length of the sorted movie list.
const DefaultSortedLimit = 21

// Catalog supplies movies, their reviews and the set of reviewed movies.
type Catalog interface {
	movie.Lookup
	Reviews(ctx context.Context, movieID int) (review.MovieReviews, error)
	ReviewedMovieIDs() []int
}

// Aggregator turns raw reviews into sentiment counts.
type Aggregator interface {
	Aggregate(ctx context.Context, movieID int, reviews []string) (domsent.Count, error)
}

// Service builds the sentiment-sorted movie list.
type Service struct {
	catalog    Catalog
	aggregator Aggregator
	engine     *Engine
	limit      int
	workers    int
}

// NewService creates a sorted-movies service. limit and workers fall back to
// DefaultSortedLimit and 1 when not positive.
func NewService(catalog Catalog, aggregator Aggregator, engine *Engine, limit, workers int) *Service {
	if limit <= 0 {
		limit = DefaultSortedLimit
	}
	return &Service{
		catalog:    catalog,
		aggregator: aggregator,
		engine:     engine,
		limit:      limit,
		workers:    max(workers, 1),
	}
}

// SortedMovies classifies every reviewed movie, ranks them and returns the
// first limit entries.
func (s *Service) SortedMovies(ctx context.Context) ([]domsent.RankedMovie, error) {
	log := logpkg.FromContext(ctx)
	ids := s.catalog.ReviewedMovieIDs()
	counts := make([]domsent.Count, len(ids))
	titles := make([]string, len(ids))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i, id := range ids {
		g.Go(func() error {
			rec, err := s.catalog.Reviews(gctx, id)
			if err != nil {
				return fmt.Errorf("load reviews: %w", err)
			}
			titles[i] = rec.Title
			c, err := s.aggregator.Aggregate(gctx, id, rec.Texts())
			if errors.Is(err, domain.ErrNoReviews) {
				log.Debug("Movie has no reviews", zap.Int("movie_id", id))
				counts[i] = domsent.Count{MovieID: id}
				return nil
			}
			if err != nil {
				return err
			}
			counts[i] = c
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	lookup := reviewTitleLookup{Lookup: s.catalog, titles: make(map[int]string, len(ids))}
	for i, id := range ids {
		lookup.titles[id] = titles[i]
	}
	res, err := s.engine.Rank(ctx, counts, lookup)
	if err != nil {
		return nil, err
	}

	movies := res.Movies
	if len(movies) > s.limit {
		movies = movies[:s.limit]
	}
	return movies, nil
}

// reviewTitleLookup fills a missing or untitled movie from the title stored
// with its reviews.
type reviewTitleLookup struct {
	movie.Lookup
	titles map[int]string
}

func (l reviewTitleLookup) Movie(id int) (movie.Movie, bool) {
	m, ok := l.Lookup.Movie(id)
	title, has := l.titles[id]
	if !ok {
		if !has || title == "" {
			return m, false
		}
		return movie.Movie{ID: id, Title: title}, true
	}
	if m.Title == "" {
		m.Title = title
	}
	return m, true
}
