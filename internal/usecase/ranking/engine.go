package ranking

import (
	"cmp"
	"context"
	"fmt"
	"math"
	"slices"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/optimize"

	"github.com/kailas-cloud/cinematch/internal/domain"
	"github.com/kailas-cloud/cinematch/internal/domain/movie"
	domsent "github.com/kailas-cloud/cinematch/internal/domain/sentiment"
	logpkg "github.com/kailas-cloud/cinematch/internal/logger"
)

// Defaults for the optimizer budget.
const (
	DefaultTimeout       = 10 * time.Second
	DefaultMaxIterations = 200
)

// Result is a ranking together with the weights that produced it.
type Result struct {
	Movies    []domsent.RankedMovie
	Weights   domsent.Weights
	Optimized bool // false when the initial guess was used
}

// Engine fits sentiment weights and orders movies by smoothed score.
// Stateless between calls.
type Engine struct {
	timeout       time.Duration
	maxIterations int
	duration      prometheus.Observer
	fallbacks     prometheus.Counter
}

// Option configures an Engine.
type Option func(*Engine)

// WithTimeout bounds a single Rank call.
func WithTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.timeout = d
		}
	}
}

// WithMaxIterations caps optimizer iterations.
func WithMaxIterations(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxIterations = n
		}
	}
}

// WithMetrics records ranking duration and optimizer fallbacks.
func WithMetrics(duration prometheus.Observer, fallbacks prometheus.Counter) Option {
	return func(e *Engine) {
		e.duration = duration
		e.fallbacks = fallbacks
	}
}

// NewEngine creates a ranking engine.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{timeout: DefaultTimeout, maxIterations: DefaultMaxIterations}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Rank scores every count with optimized weights and returns the movies
// sorted by score descending; equal scores keep input order.
// Counts with no reviews are skipped.
func (e *Engine) Rank(ctx context.Context, counts []domsent.Count, lookup movie.Lookup) (*Result, error) {
	start := time.Now()
	log := logpkg.FromContext(ctx)

	usable := make([]domsent.Count, 0, len(counts))
	for _, c := range counts {
		if c.Total <= 0 {
			log.Debug("Skipping movie without reviews", zap.Int("movie_id", c.MovieID))
			continue
		}
		usable = append(usable, c)
	}

	params, ok := NewParams(usable)
	if !ok {
		return nil, fmt.Errorf("rank %d movies: %w", len(counts), domain.ErrDegenerateCorpus)
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("rank %d movies: %w: %w", len(usable), domain.ErrComputeTimeout, err)
	}

	type fitted struct {
		weights   domsent.Weights
		optimized bool
		err       error
	}
	done := make(chan fitted, 1)
	go func() {
		w, err := e.fit(params)
		if err != nil {
			done <- fitted{weights: params.InitialWeights(), err: err}
			return
		}
		done <- fitted{weights: w, optimized: true}
	}()

	var fit fitted
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("rank %d movies after %s: %w", len(usable), e.timeout, domain.ErrComputeTimeout)
	case fit = <-done:
	}

	if fit.err != nil {
		log.Warn("Weight optimization failed, using initial guess",
			zap.Error(fit.err),
			zap.Int("movies", len(usable)),
		)
		if e.fallbacks != nil {
			e.fallbacks.Inc()
		}
	}

	ranked := make([]domsent.RankedMovie, len(usable))
	for i, c := range usable {
		m, found := lookup.Movie(c.MovieID)
		if !found {
			m = movie.Movie{ID: c.MovieID}
		}
		ranked[i] = domsent.RankedMovie{
			Movie:    m,
			Score:    params.Score(c, fit.weights),
			Positive: c.Positive,
			Neutral:  c.Neutral,
			Negative: c.Negative,
		}
	}
	slices.SortStableFunc(ranked, func(a, b domsent.RankedMovie) int {
		return cmp.Compare(b.Score, a.Score)
	})

	if e.duration != nil {
		e.duration.Observe(time.Since(start).Seconds())
	}
	log.Debug("Ranking completed",
		zap.Int("movies", len(ranked)),
		zap.Bool("optimized", fit.optimized),
		zap.Float64("w_pos", fit.weights.Positive),
		zap.Float64("w_neu", fit.weights.Neutral),
		zap.Float64("w_neg", fit.weights.Negative),
	)
	return &Result{Movies: ranked, Weights: fit.weights, Optimized: fit.optimized}, nil
}

// fit maximizes the score/volume correlation with Nelder-Mead over the
// projected weight box, seeded from the global proportions.
func (e *Engine) fit(p Params) (domsent.Weights, error) {
	problem := optimize.Problem{Func: p.Objective}
	settings := &optimize.Settings{
		MajorIterations: e.maxIterations,
		Runtime:         e.timeout,
		Converger: &optimize.FunctionConverge{
			Absolute:   1e-10,
			Iterations: 20,
		},
	}

	res, err := optimize.Minimize(problem, p.InitialWeights().Vector(), settings, &optimize.NelderMead{})
	if err != nil {
		return domsent.Weights{}, fmt.Errorf("%w: %w", domain.ErrOptimizationFailure, err)
	}
	if !converged(res.Status) {
		return domsent.Weights{}, fmt.Errorf("%w: status %s", domain.ErrOptimizationFailure, res.Status)
	}

	w := domsent.WeightsFromVector(res.X).Clamp()
	for _, v := range w.Vector() {
		if math.IsNaN(v) {
			return domsent.Weights{}, fmt.Errorf("%w: NaN weight", domain.ErrOptimizationFailure)
		}
	}
	return w, nil
}

func converged(s optimize.Status) bool {
	switch s {
	case optimize.Success,
		optimize.FunctionConvergence,
		optimize.MethodConverge,
		optimize.FunctionThreshold,
		optimize.StepConvergence,
		optimize.GradientThreshold:
		return true
	default:
		return false
	}
}
