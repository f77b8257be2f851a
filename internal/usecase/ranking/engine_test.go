package ranking

import (
	"context"
	"errors"
	"math/rand/v2"
	"reflect"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/kailas-cloud/cinematch/internal/domain"
	"github.com/kailas-cloud/cinematch/internal/domain/movie"
	domsent "github.com/kailas-cloud/cinematch/internal/domain/sentiment"
)

type mapLookup map[int]movie.Movie

func (m mapLookup) Movie(id int) (movie.Movie, bool) {
	mv, ok := m[id]
	return mv, ok
}

func lookupFor(counts []domsent.Count) mapLookup {
	l := make(mapLookup, len(counts))
	for _, c := range counts {
		l[c.MovieID] = movie.Movie{ID: c.MovieID, Title: "movie"}
	}
	return l
}

func randomCounts(r *rand.Rand, n int) []domsent.Count {
	counts := make([]domsent.Count, n)
	for i := range counts {
		c := domsent.Count{
			MovieID:  i + 1,
			Positive: r.IntN(40),
			Neutral:  r.IntN(10),
			Negative: r.IntN(30),
		}
		c.Total = c.Positive + c.Neutral + c.Negative
		counts[i] = c
	}
	return counts
}

func TestRank_WeightsAlwaysInBounds(t *testing.T) {
	e := NewEngine()
	for seed := uint64(1); seed <= 20; seed++ {
		r := rand.New(rand.NewPCG(seed, seed*7))
		counts := randomCounts(r, 2+r.IntN(30))

		res, err := e.Rank(context.Background(), counts, lookupFor(counts))
		if errors.Is(err, domain.ErrDegenerateCorpus) {
			continue
		}
		if err != nil {
			t.Fatalf("seed %d: unexpected error: %v", seed, err)
		}
		if !res.Weights.InBounds() {
			t.Errorf("seed %d: weights out of bounds: %+v", seed, res.Weights)
		}
	}
}

func TestRank_SortedDescending(t *testing.T) {
	counts := []domsent.Count{
		{MovieID: 1, Positive: 1, Neutral: 0, Negative: 1, Total: 2},
		{MovieID: 2, Positive: 30, Neutral: 5, Negative: 5, Total: 40},
		{MovieID: 3, Positive: 3, Neutral: 3, Negative: 4, Total: 10},
		{MovieID: 4, Positive: 0, Neutral: 0, Negative: 0, Total: 0},
	}
	res, err := NewEngine().Rank(context.Background(), counts, lookupFor(counts))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Movies) != 3 {
		t.Fatalf("expected movie without reviews to be skipped, got %d movies", len(res.Movies))
	}
	for i := 1; i < len(res.Movies); i++ {
		if res.Movies[i].Score > res.Movies[i-1].Score {
			t.Errorf("not sorted at %d: %v > %v", i, res.Movies[i].Score, res.Movies[i-1].Score)
		}
	}
	top := res.Movies[0]
	if top.ID != 2 || top.Title != "movie" || top.Positive != 30 {
		t.Errorf("unexpected top record: %+v", top)
	}
}

func TestRank_TiesKeepInputOrder(t *testing.T) {
	counts := []domsent.Count{
		{MovieID: 7, Positive: 2, Negative: 2, Total: 4},
		{MovieID: 3, Positive: 2, Negative: 2, Total: 4},
		{MovieID: 5, Positive: 2, Negative: 2, Total: 4},
		{MovieID: 1, Positive: 1, Total: 1},
	}
	res, err := NewEngine().Rank(context.Background(), counts, lookupFor(counts))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var ids []int
	for _, m := range res.Movies {
		ids = append(ids, m.ID)
	}
	if !reflect.DeepEqual(ids[:3], []int{7, 3, 5}) && !reflect.DeepEqual(ids[1:], []int{7, 3, 5}) {
		t.Errorf("tie order = %v, want 7 3 5 adjacent in input order", ids)
	}
}

func TestRank_Deterministic(t *testing.T) {
	counts := randomCounts(rand.New(rand.NewPCG(42, 1)), 25)
	e := NewEngine()
	a, err := e.Rank(context.Background(), counts, lookupFor(counts))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, err := e.Rank(context.Background(), counts, lookupFor(counts))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(a, b) {
		t.Error("ranking is not deterministic")
	}
}

func TestRank_MissingMetadata(t *testing.T) {
	counts := []domsent.Count{{MovieID: 99, Positive: 1, Total: 1}}
	res, err := NewEngine().Rank(context.Background(), counts, mapLookup{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Movies[0].ID != 99 || res.Movies[0].Title != "" {
		t.Errorf("unexpected record: %+v", res.Movies[0])
	}
}

func TestRank_DegenerateCorpus(t *testing.T) {
	counts := []domsent.Count{{MovieID: 1}, {MovieID: 2}}
	_, err := NewEngine().Rank(context.Background(), counts, lookupFor(counts))
	if !errors.Is(err, domain.ErrDegenerateCorpus) || !errors.Is(err, domain.ErrCompute) {
		t.Fatalf("expected ErrDegenerateCorpus, got %v", err)
	}
}

func TestRank_Timeout(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Nanosecond)
	defer cancel()
	<-ctx.Done()

	counts := scenarioCounts()
	_, err := NewEngine().Rank(ctx, counts, lookupFor(counts))
	if !errors.Is(err, domain.ErrComputeTimeout) {
		t.Fatalf("expected ErrComputeTimeout, got %v", err)
	}
}

func TestRank_FallbackToInitialGuess(t *testing.T) {
	duration := prometheus.NewHistogram(prometheus.HistogramOpts{Name: "test_ranking_duration"})
	fallbacks := prometheus.NewCounter(prometheus.CounterOpts{Name: "test_ranking_fallback"})
	e := NewEngine(WithMaxIterations(1), WithMetrics(duration, fallbacks))

	counts := randomCounts(rand.New(rand.NewPCG(3, 3)), 30)
	res, err := e.Rank(context.Background(), counts, lookupFor(counts))
	if err != nil {
		t.Fatalf("fallback must not fail the ranking: %v", err)
	}
	if res.Optimized {
		t.Fatal("expected iteration limit to force a fallback")
	}
	p, _ := NewParams(counts)
	if res.Weights != p.InitialWeights() {
		t.Errorf("weights = %+v, want initial guess %+v", res.Weights, p.InitialWeights())
	}
	if got := testutil.ToFloat64(fallbacks); got != 1 {
		t.Errorf("fallback counter = %v, want 1", got)
	}
	if got := testutil.CollectAndCount(duration); got != 1 {
		t.Errorf("duration collected %d metrics, want 1", got)
	}
}
