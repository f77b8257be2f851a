package sentiment

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/kailas-cloud/cinematch/internal/domain"
	"github.com/kailas-cloud/cinematch/internal/domain/review"
)

// Cache memoizes classified review sets per movie for the process lifetime.
// Concurrent misses for one movie share a single classification; different
// movies never wait on each other. Failed classifications are not stored.
type Cache struct {
	loader     ReviewLoader
	classifier Classifier
	cacheTotal *prometheus.CounterVec
	logger     *zap.Logger

	mu      sync.RWMutex
	entries map[int]review.MovieReviews
	group   singleflight.Group
}

// NewCache creates an empty review sentiment cache.
// cacheTotal is a counter vec with label "result" ("hit"/"miss"/"coalesced"), may be nil.
func NewCache(
	loader ReviewLoader,
	classifier Classifier,
	cacheTotal *prometheus.CounterVec,
	logger *zap.Logger,
) *Cache {
	return &Cache{
		loader:     loader,
		classifier: classifier,
		cacheTotal: cacheTotal,
		logger:     logger,
		entries:    make(map[int]review.MovieReviews),
	}
}

// GetOrClassify returns the classified reviews of a movie, classifying them on
// first use. A cached record is returned as is even if the source reviews
// changed since; see Invalidate.
func (c *Cache) GetOrClassify(ctx context.Context, movieID int) (review.MovieReviews, error) {
	if rec, ok := c.lookup(movieID); ok {
		c.inc("hit")
		return rec.Clone(), nil
	}

	// The shared computation must outlive any single caller's cancellation.
	ch := c.group.DoChan(strconv.Itoa(movieID), func() (any, error) {
		return c.classifyAndStore(context.WithoutCancel(ctx), movieID)
	})

	select {
	case <-ctx.Done():
		return review.MovieReviews{}, fmt.Errorf("classify movie %d: %w", movieID, ctx.Err())
	case res := <-ch:
		if res.Shared {
			c.inc("coalesced")
		}
		if res.Err != nil {
			return review.MovieReviews{}, res.Err
		}
		rec := res.Val.(review.MovieReviews)
		return rec.Clone(), nil
	}
}

func (c *Cache) classifyAndStore(ctx context.Context, movieID int) (review.MovieReviews, error) {
	// A caller may have finished the same classification between our lookup
	// and joining the flight.
	if rec, ok := c.lookup(movieID); ok {
		return rec, nil
	}
	c.inc("miss")

	rec, err := c.loader.Reviews(ctx, movieID)
	if err != nil {
		return review.MovieReviews{}, fmt.Errorf("load reviews: %w", err)
	}
	if len(rec.Reviews) == 0 {
		return review.MovieReviews{}, fmt.Errorf("no reviews found for movie ID %d: %w", movieID, domain.ErrNoReviews)
	}

	labels, err := classify(ctx, c.classifier, movieID, review.CleanAll(rec.Texts()))
	if err != nil {
		return review.MovieReviews{}, err
	}
	for i := range rec.Reviews {
		rec.Reviews[i].Sentiment = labels[i]
	}

	c.mu.Lock()
	c.entries[movieID] = rec
	c.mu.Unlock()

	c.logger.Debug("Classified movie reviews",
		zap.Int("movie_id", movieID),
		zap.Int("reviews", len(rec.Reviews)),
	)
	return rec, nil
}

func (c *Cache) lookup(movieID int) (review.MovieReviews, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	rec, ok := c.entries[movieID]
	return rec, ok
}

// Invalidate drops the cached record of a movie so the next call reclassifies.
func (c *Cache) Invalidate(movieID int) {
	c.mu.Lock()
	delete(c.entries, movieID)
	c.mu.Unlock()
	c.group.Forget(strconv.Itoa(movieID))
}

// Len returns the number of cached movies.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Warmup classifies the given movies with at most workers in parallel.
// Individual failures are logged and skipped; it returns the number of
// movies cached afterwards.
func (c *Cache) Warmup(ctx context.Context, movieIDs []int, workers int) int {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(workers, 1))
	for _, id := range movieIDs {
		g.Go(func() error {
			if _, err := c.GetOrClassify(gctx, id); err != nil {
				c.logger.Warn("Review cache warmup failed", zap.Int("movie_id", id), zap.Error(err))
			}
			return nil
		})
	}
	_ = g.Wait()
	return c.Len()
}

func (c *Cache) inc(result string) {
	if c.cacheTotal != nil {
		c.cacheTotal.WithLabelValues(result).Inc()
	}
}
