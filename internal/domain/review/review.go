// Package review holds user reviews and the text normalization applied
// before they reach the sentiment classifier.
package review

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/kailas-cloud/cinematch/internal/domain/sentiment"
)

// Review is a single user review. Sentiment is empty until classified.
type Review struct {
	Username  string          `json:"Username,omitempty"`
	Text      string          `json:"Review"`
	Sentiment sentiment.Label `json:"Sentiment,omitempty"`
}

// MovieReviews groups the reviews written for one movie.
type MovieReviews struct {
	ID      int      `json:"id"`
	Title   string   `json:"Title"`
	Reviews []Review `json:"Reviews"`
}

// Texts returns the raw review texts in order.
func (m *MovieReviews) Texts() []string {
	out := make([]string, len(m.Reviews))
	for i, r := range m.Reviews {
		out[i] = r.Text
	}
	return out
}

// Clone returns a deep copy so callers can attach labels without touching
// the catalog's records.
func (m *MovieReviews) Clone() MovieReviews {
	out := MovieReviews{ID: m.ID, Title: m.Title}
	if m.Reviews != nil {
		out.Reviews = make([]Review, len(m.Reviews))
		copy(out.Reviews, m.Reviews)
	}
	return out
}

var (
	parenSpan  = regexp.MustCompile(`\([^)]*\)`)
	// Word characters, Unicode whitespace (including the C0 separators
	// \x1c-\x1f and NEL) and periods survive. Combining marks do not.
	disallowed = regexp.MustCompile(`[^\p{L}\p{N}_\t\n\v\f\r\x1c-\x1f\x85\p{Z}.]`)
)

func isSpace(r rune) bool {
	return unicode.IsSpace(r) || (r >= 0x1c && r <= 0x1f)
}

// Clean strips parenthetical spans and punctuation other than periods, then
// rejoins the non-empty trimmed sentences with single spaces.
// Clean(Clean(s)) == Clean(s).
func Clean(text string) string {
	text = parenSpan.ReplaceAllString(text, "")
	text = disallowed.ReplaceAllString(text, "")

	sentences := strings.Split(text, ".")
	kept := sentences[:0]
	for _, s := range sentences {
		if s = strings.TrimFunc(s, isSpace); s != "" {
			kept = append(kept, s)
		}
	}
	return strings.Join(kept, " ")
}

// CleanAll applies Clean to every text.
func CleanAll(texts []string) []string {
	out := make([]string, len(texts))
	for i, t := range texts {
		out[i] = Clean(t)
	}
	return out
}
