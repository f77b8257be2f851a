package ranking

import (
	"math"

	"gonum.org/v1/gonum/stat"

	domsent "github.com/kailas-cloud/cinematch/internal/domain/sentiment"
)

// Rates are the corpus-wide label proportions.
type Rates struct {
	Positive float64
	Neutral  float64
	Negative float64
}

// Params is everything the objective depends on besides the weights.
type Params struct {
	Global Rates
	K      float64
	Counts []domsent.Count
}

// GlobalRates sums the counts into corpus-wide label proportions.
// A zero grand total has no rates and is reported as ok=false.
func GlobalRates(counts []domsent.Count) (rates Rates, total int, ok bool) {
	var pos, neu, neg int
	for _, c := range counts {
		pos += c.Positive
		neu += c.Neutral
		neg += c.Negative
		total += c.Total
	}
	if total == 0 {
		return Rates{}, 0, false
	}
	t := float64(total)
	return Rates{
		Positive: float64(pos) / t,
		Neutral:  float64(neu) / t,
		Negative: float64(neg) / t,
	}, total, true
}

// NewParams derives the global rates and the smoothing constant
// k = mean(total)/2 from the counts.
func NewParams(counts []domsent.Count) (Params, bool) {
	rates, total, ok := GlobalRates(counts)
	if !ok || len(counts) == 0 {
		return Params{}, false
	}
	return Params{
		Global: rates,
		K:      float64(total) / float64(len(counts)) / 2,
		Counts: counts,
	}, true
}

// InitialWeights seeds the optimizer with the global proportions.
func (p Params) InitialWeights() domsent.Weights {
	return domsent.Weights{
		Positive: p.Global.Positive,
		Neutral:  p.Global.Neutral,
		Negative: -p.Global.Negative,
	}
}

// Score is the smoothed sentiment score of one movie under weights w.
// A non-positive denominator scores 0.
func (p Params) Score(c domsent.Count, w domsent.Weights) float64 {
	den := float64(c.Total) + p.K
	if den <= 0 {
		return 0
	}
	return (float64(c.Positive)+p.Global.Positive*w.Positive)/den +
		(float64(c.Neutral)+p.Global.Neutral*w.Neutral)/den +
		(float64(c.Negative)+p.Global.Negative*w.Negative)/den
}

// Scores evaluates Score for every count, in order.
func (p Params) Scores(w domsent.Weights) []float64 {
	out := make([]float64, len(p.Counts))
	for i, c := range p.Counts {
		out[i] = p.Score(c, w)
	}
	return out
}

// Correlation is the Pearson correlation between scores under w and the
// per-movie review totals. Undefined correlation (fewer than two movies or
// zero variance) is 0.
func (p Params) Correlation(w domsent.Weights) float64 {
	if len(p.Counts) < 2 {
		return 0
	}
	totals := make([]float64, len(p.Counts))
	for i, c := range p.Counts {
		totals[i] = float64(c.Total)
	}
	r := stat.Correlation(p.Scores(w), totals, nil)
	if math.IsNaN(r) || math.IsInf(r, 0) {
		return 0
	}
	return r
}

// Objective is the quantity minimized by the optimizer: the negated
// correlation at x projected onto the weight box.
func (p Params) Objective(x []float64) float64 {
	return -p.Correlation(domsent.WeightsFromVector(x).Clamp())
}
