package sentiment

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/cinematch/internal/domain"
	"github.com/kailas-cloud/cinematch/internal/domain/review"
	domsent "github.com/kailas-cloud/cinematch/internal/domain/sentiment"
)

// --- Mocks ---

// keywordClassifier labels texts containing "great" Positive, "bad" Negative
// and everything else Neutral. Texts containing "slow" block until release
// is closed.
type keywordClassifier struct {
	calls   atomic.Int32
	got     [][]string
	mu      sync.Mutex
	err     error
	short   bool
	release chan struct{}
}

func (k *keywordClassifier) Classify(ctx context.Context, texts []string) ([]domsent.Label, error) {
	k.calls.Add(1)
	k.mu.Lock()
	k.got = append(k.got, texts)
	k.mu.Unlock()

	if k.release != nil && len(texts) > 0 && strings.Contains(texts[0], "slow") {
		select {
		case <-k.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if k.err != nil {
		return nil, k.err
	}

	labels := make([]domsent.Label, len(texts))
	for i, t := range texts {
		switch {
		case strings.Contains(t, "great"):
			labels[i] = domsent.Positive
		case strings.Contains(t, "bad"):
			labels[i] = domsent.Negative
		default:
			labels[i] = domsent.Neutral
		}
	}
	if k.short {
		return labels[:len(labels)-1], nil
	}
	return labels, nil
}

type mapLoader map[int]review.MovieReviews

func (m mapLoader) Reviews(_ context.Context, movieID int) (review.MovieReviews, error) {
	r, ok := m[movieID]
	if !ok {
		return review.MovieReviews{}, fmt.Errorf("movie %d: %w", movieID, domain.ErrNotFound)
	}
	return r.Clone(), nil
}

func testLoader() mapLoader {
	return mapLoader{
		1: {ID: 1, Title: "Heat", Reviews: []review.Review{
			{Username: "lee", Text: "A great (truly) film!"},
			{Username: "kim", Text: "Pretty bad."},
		}},
		2: {ID: 2, Title: "Slowburn", Reviews: []review.Review{{Text: "slow but great"}}},
		3: {ID: 3, Title: "Empty"},
	}
}

// --- Aggregator ---

func TestAggregate(t *testing.T) {
	clf := &keywordClassifier{}
	agg := NewAggregator(clf)

	c, err := agg.Aggregate(context.Background(), 5, []string{"great!", "bad (really)", "meh", "great."})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := domsent.Count{MovieID: 5, Positive: 2, Neutral: 1, Negative: 1, Total: 4}
	if c != want {
		t.Errorf("Aggregate = %+v, want %+v", c, want)
	}
	if got := clf.got[0][1]; got != "bad" {
		t.Errorf("classifier received uncleaned text %q", got)
	}
	if clf.calls.Load() != 1 {
		t.Errorf("expected one batched classifier call, got %d", clf.calls.Load())
	}
}

func TestAggregate_NoReviews(t *testing.T) {
	agg := NewAggregator(&keywordClassifier{})
	_, err := agg.Aggregate(context.Background(), 5, nil)
	if !errors.Is(err, domain.ErrNoReviews) {
		t.Fatalf("expected ErrNoReviews, got %v", err)
	}
}

func TestAggregate_ClassifierErrors(t *testing.T) {
	t.Run("provider error", func(t *testing.T) {
		agg := NewAggregator(&keywordClassifier{err: domain.ErrClassifierProviderError})
		_, err := agg.Aggregate(context.Background(), 5, []string{"x"})
		if !errors.Is(err, domain.ErrClassifierProviderError) {
			t.Fatalf("expected provider error, got %v", err)
		}
	})
	t.Run("label count mismatch", func(t *testing.T) {
		agg := NewAggregator(&keywordClassifier{short: true})
		_, err := agg.Aggregate(context.Background(), 5, []string{"x", "y"})
		if !errors.Is(err, domain.ErrClassifierProviderError) {
			t.Fatalf("expected provider error, got %v", err)
		}
	})
}

// --- Cache ---

func TestGetOrClassify_MissThenHit(t *testing.T) {
	clf := &keywordClassifier{}
	cache := NewCache(testLoader(), clf, nil, zap.NewNop())

	first, err := cache.GetOrClassify(context.Background(), 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first.Reviews[0].Sentiment != domsent.Positive || first.Reviews[1].Sentiment != domsent.Negative {
		t.Errorf("unexpected labels: %+v", first.Reviews)
	}
	if first.Reviews[0].Text != "A great (truly) film!" {
		t.Errorf("raw review text should be kept, got %q", first.Reviews[0].Text)
	}

	second, err := cache.GetOrClassify(context.Background(), 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if clf.calls.Load() != 1 {
		t.Errorf("classifier called %d times, want 1", clf.calls.Load())
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("results differ:\n%+v\n%+v", first, second)
	}

	// Mutating a returned record must not leak into the cache.
	second.Reviews[0].Sentiment = domsent.Neutral
	third, _ := cache.GetOrClassify(context.Background(), 1)
	if third.Reviews[0].Sentiment != domsent.Positive {
		t.Error("cached record mutated through returned copy")
	}
}

func TestGetOrClassify_ConcurrentCallersCoalesce(t *testing.T) {
	clf := &keywordClassifier{release: make(chan struct{})}
	cache := NewCache(testLoader(), clf, nil, zap.NewNop())

	const callers = 16
	var wg sync.WaitGroup
	results := make([]review.MovieReviews, callers)
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], errs[i] = cache.GetOrClassify(context.Background(), 2)
		}()
	}

	time.Sleep(20 * time.Millisecond)
	close(clf.release)
	wg.Wait()

	for i := range errs {
		if errs[i] != nil {
			t.Fatalf("caller %d: %v", i, errs[i])
		}
		if !reflect.DeepEqual(results[i], results[0]) {
			t.Errorf("caller %d got a different record", i)
		}
	}
	if n := clf.calls.Load(); n != 1 {
		t.Errorf("classifier called %d times, want 1", n)
	}
}

func TestGetOrClassify_DifferentMoviesDoNotBlock(t *testing.T) {
	clf := &keywordClassifier{release: make(chan struct{})}
	defer close(clf.release)
	cache := NewCache(testLoader(), clf, nil, zap.NewNop())

	go func() { _, _ = cache.GetOrClassify(context.Background(), 2) }()
	time.Sleep(10 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if _, err := cache.GetOrClassify(ctx, 1); err != nil {
		t.Fatalf("movie 1 blocked behind movie 2: %v", err)
	}
}

func TestGetOrClassify_CallerCancellation(t *testing.T) {
	clf := &keywordClassifier{release: make(chan struct{})}
	cache := NewCache(testLoader(), clf, nil, zap.NewNop())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if _, err := cache.GetOrClassify(ctx, 2); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}

	// The shared classification keeps running and fills the cache.
	close(clf.release)
	rec, err := cache.GetOrClassify(context.Background(), 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Reviews[0].Sentiment != domsent.Positive {
		t.Errorf("unexpected label %q", rec.Reviews[0].Sentiment)
	}
	if n := clf.calls.Load(); n != 1 {
		t.Errorf("classifier called %d times, want 1", n)
	}
}

func TestGetOrClassify_Errors(t *testing.T) {
	tests := []struct {
		name    string
		movieID int
		clf     *keywordClassifier
		want    error
	}{
		{"unknown movie", 42, &keywordClassifier{}, domain.ErrNotFound},
		{"no reviews", 3, &keywordClassifier{}, domain.ErrNoReviews},
		{"classifier failure", 1, &keywordClassifier{err: domain.ErrClassifierProviderError}, domain.ErrCompute},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cache := NewCache(testLoader(), tt.clf, nil, zap.NewNop())
			_, err := cache.GetOrClassify(context.Background(), tt.movieID)
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
			if cache.Len() != 0 {
				t.Error("failed classification was cached")
			}
		})
	}
}

func TestInvalidate(t *testing.T) {
	clf := &keywordClassifier{}
	cache := NewCache(testLoader(), clf, nil, zap.NewNop())

	if _, err := cache.GetOrClassify(context.Background(), 1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cache.Invalidate(1)
	if cache.Len() != 0 {
		t.Fatalf("Len() = %d after invalidate", cache.Len())
	}
	if _, err := cache.GetOrClassify(context.Background(), 1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n := clf.calls.Load(); n != 2 {
		t.Errorf("classifier called %d times, want 2", n)
	}
}

func TestWarmup(t *testing.T) {
	clf := &keywordClassifier{}
	cache := NewCache(testLoader(), clf, nil, zap.NewNop())

	n := cache.Warmup(context.Background(), []int{1, 2, 3, 42}, 2)
	if n != 2 {
		t.Errorf("Warmup cached %d movies, want 2", n)
	}
}
