package field

import (
	"github.com/kailas-cloud/cinematch/internal/domain"
)

// Field identifies a searchable movie attribute with its own embedding matrix.
type Field int

// Searchable fields, in the order they are reported to clients.
const (
	Synopsis Field = iota
	Cast
	Director
	Producers
	Writers
	Title
	Genres

	// Count is the number of searchable fields.
	Count int = iota
)

var names = [Count]string{
	Synopsis:  "Synopsis",
	Cast:      "Cast",
	Director:  "Director",
	Producers: "Producers",
	Writers:   "Writers",
	Title:     "Title",
	Genres:    "Genres",
}

// Parse resolves a field by its exact name.
// Unknown names fail with domain.ErrInvalidQueryType.
func Parse(name string) (Field, error) {
	for i, n := range names {
		if n == name {
			return Field(i), nil
		}
	}
	return 0, domain.NewInvalidQueryType(name, Names())
}

// All returns every searchable field.
func All() []Field {
	out := make([]Field, Count)
	for i := range out {
		out[i] = Field(i)
	}
	return out
}

// Names returns the accepted field names.
func Names() []string {
	out := make([]string, Count)
	copy(out, names[:])
	return out
}

// IsValid reports whether f is a known field.
func (f Field) IsValid() bool { return f >= 0 && int(f) < Count }

func (f Field) String() string {
	if !f.IsValid() {
		return "Field(invalid)"
	}
	return names[f]
}
