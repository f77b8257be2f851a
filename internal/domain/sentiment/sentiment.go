// Package sentiment holds review sentiment labels, per-movie counts and the
// ranking weights derived from them.
package sentiment

import (
	"fmt"
	"strings"

	"github.com/kailas-cloud/cinematch/internal/domain/movie"
)

// Label is a classifier verdict for one review.
type Label string

// Sentiment labels.
const (
	Positive Label = "Positive"
	Neutral  Label = "Neutral"
	Negative Label = "Negative"
)

// IsValid checks if the label is one of the supported values.
func (l Label) IsValid() bool {
	return l == Positive || l == Neutral || l == Negative
}

// ParseLabel normalizes a classifier answer such as "positive" or " NEGATIVE\n".
func ParseLabel(s string) (Label, error) {
	s = strings.TrimSpace(s)
	for _, l := range []Label{Positive, Neutral, Negative} {
		if strings.EqualFold(s, string(l)) {
			return l, nil
		}
	}
	return "", fmt.Errorf("unknown sentiment label %q", s)
}

// Count tallies review labels for one movie. Total == Positive+Neutral+Negative.
type Count struct {
	MovieID  int `json:"movie_id"`
	Positive int `json:"positive"`
	Neutral  int `json:"neutral"`
	Negative int `json:"negative"`
	Total    int `json:"total"`
}

// CountLabels tallies labels into a Count.
func CountLabels(movieID int, labels []Label) Count {
	c := Count{MovieID: movieID, Total: len(labels)}
	for _, l := range labels {
		switch l {
		case Positive:
			c.Positive++
		case Neutral:
			c.Neutral++
		case Negative:
			c.Negative++
		}
	}
	return c
}

// Weights blend the global label rates into each movie's smoothed score.
type Weights struct {
	Positive float64 `json:"positive"`
	Neutral  float64 `json:"neutral"`
	Negative float64 `json:"negative"`
}

// Weight bounds.
const (
	MinPositive, MaxPositive = 0.0, 1.0
	MinNeutral, MaxNeutral   = 0.0, 1.0
	MinNegative, MaxNegative = -1.0, 0.0
)

// Clamp projects w into [0,1]×[0,1]×[-1,0].
func (w Weights) Clamp() Weights {
	return Weights{
		Positive: clamp(w.Positive, MinPositive, MaxPositive),
		Neutral:  clamp(w.Neutral, MinNeutral, MaxNeutral),
		Negative: clamp(w.Negative, MinNegative, MaxNegative),
	}
}

// InBounds reports whether w lies inside the weight box.
func (w Weights) InBounds() bool {
	return w.Clamp() == w
}

// Vector returns the weights as a (pos, neu, neg) slice.
func (w Weights) Vector() []float64 {
	return []float64{w.Positive, w.Neutral, w.Negative}
}

// WeightsFromVector is the inverse of Vector.
func WeightsFromVector(x []float64) Weights {
	return Weights{Positive: x[0], Neutral: x[1], Negative: x[2]}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// RankedMovie is a movie with its sentiment score, as served by the sorted list.
type RankedMovie struct {
	movie.Movie
	Score    float64 `json:"Score"`
	Positive int     `json:"Positive"`
	Neutral  int     `json:"Neutral"`
	Negative int     `json:"Negative"`
}
