package movie

import (
	"strconv"
	"strings"
)

// Movie is the public projection of a catalog document.
type Movie struct {
	ID        int      `json:"id"`
	Title     string   `json:"Title"`
	Genres    []string `json:"Genres"`
	Poster    string   `json:"Poster"`
	Year      Year     `json:"Year"`
	Synopsis  string   `json:"Synopsis"`
	Director  []string `json:"Director"`
	Producers []string `json:"Producers"`
	Writers   []string `json:"Writers"`
	Cast      []string `json:"Cast"`
}

// HasAnyGenre reports whether the movie carries at least one of the wanted
// genres, compared case-insensitively.
func (m *Movie) HasAnyGenre(wanted []string) bool {
	for _, w := range wanted {
		for _, g := range m.Genres {
			if strings.EqualFold(g, w) {
				return true
			}
		}
	}
	return false
}

// Year is a release year. The catalog stores it either as a number or as a
// quoted string, both decode to the same value.
type Year int

// UnmarshalJSON accepts 1999, "1999" and null.
func (y *Year) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		*y = 0
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return err
	}
	*y = Year(n)
	return nil
}

// Lookup resolves movie metadata by identifier.
type Lookup interface {
	Movie(id int) (Movie, bool)
}
