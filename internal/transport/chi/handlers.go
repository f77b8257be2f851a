package chi

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/oapi-codegen/runtime"
	"go.uber.org/zap"

	"github.com/kailas-cloud/cinematch/internal/domain"
	"github.com/kailas-cloud/cinematch/internal/domain/search/query"
	logpkg "github.com/kailas-cloud/cinematch/internal/logger"
)

const maxBodyBytes = 1 << 20

type recommendRequest struct {
	InputKeywords json.RawMessage `json:"input_keywords"`
	TopK          *int            `json:"top_k"`
}

// Recommend handles POST /recommend.
func (s *Server) Recommend(w http.ResponseWriter, r *http.Request) {
	var req recommendRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	raw, err := parseKeywords(req.InputKeywords)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if len(raw) == 0 {
		writeError(w, http.StatusBadRequest, "No input keywords provided")
		return
	}

	topK := s.search.TopK
	if req.TopK != nil {
		if *req.TopK < 1 {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("top_k must be a positive integer, got %d", *req.TopK))
			return
		}
		topK = *req.TopK
	}

	q, err := query.New(raw)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	opts, err := query.NewOptions(topK, s.search.InitialTopK)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	bundles, err := s.recommend.Search(r.Context(), &q, opts)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	logpkg.FromContext(r.Context()).Info("Recommendations served",
		zap.Int("fields", len(q.Terms())),
		zap.Int("bundles", len(bundles)),
		zap.Int("top_k", opts.TopK),
	)
	writeJSON(w, http.StatusOK, recommendResponse{
		Status:          statusSuccess,
		Recommendations: bundlesToResponse(bundles),
	})
}

// parseKeywords reads the input_keywords object keeping key order. Values
// must be strings or arrays of strings; null counts as an empty value.
func parseKeywords(data json.RawMessage) ([]query.RawTerm, error) {
	if len(bytes.TrimSpace(data)) == 0 || bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return nil, nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("input_keywords: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, errors.New("input_keywords must be an object")
	}

	var terms []query.RawTerm
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("input_keywords: %w", err)
		}
		name, _ := tok.(string)

		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return nil, fmt.Errorf("input_keywords.%s: %w", name, err)
		}
		term, err := parseKeywordValue(name, value)
		if err != nil {
			return nil, err
		}
		terms = append(terms, term)
	}
	return terms, nil
}

func parseKeywordValue(name string, value json.RawMessage) (query.RawTerm, error) {
	trimmed := bytes.TrimSpace(value)
	switch {
	case bytes.Equal(trimmed, []byte("null")):
		return query.RawTerm{Name: name, Values: []string{""}}, nil
	case len(trimmed) > 0 && trimmed[0] == '[':
		var list []string
		if err := json.Unmarshal(trimmed, &list); err != nil {
			return query.RawTerm{}, fmt.Errorf("input_keywords.%s must be a string or a list of strings", name)
		}
		return query.RawTerm{Name: name, Values: list, IsList: true}, nil
	default:
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return query.RawTerm{}, fmt.Errorf("input_keywords.%s must be a string or a list of strings", name)
		}
		return query.RawTerm{Name: name, Values: []string{s}}, nil
	}
}

// SortedMovies handles GET /get_sorted_movies.
func (s *Server) SortedMovies(w http.ResponseWriter, r *http.Request) {
	movies, err := s.sorted.SortedMovies(r.Context())
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	logpkg.FromContext(r.Context()).Info("Sorted movies served", zap.Int("movies", len(movies)))
	writeJSON(w, http.StatusOK, sortedMoviesResponse{
		Status:       statusSuccess,
		SortedMovies: movies,
	})
}

type classifyRequest struct {
	ID json.Number `json:"id"`
}

// ClassifyReviews handles GET and POST /classify_reviews. The movie id comes
// from the "id" query parameter or, failing that, from the JSON body.
func (s *Server) ClassifyReviews(w http.ResponseWriter, r *http.Request) {
	movieID, err := classifyMovieID(w, r)
	if errors.Is(err, errNoMovieID) {
		writeError(w, http.StatusBadRequest, "No movie ID provided")
		return
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx := logpkg.With(r.Context(), zap.Int("movie_id", movieID))
	rec, err := s.reviews.GetOrClassify(ctx, movieID)
	if err != nil {
		s.handleDomainError(w, r.WithContext(ctx), err)
		return
	}

	logpkg.FromContext(ctx).Info("Reviews classified", zap.Int("reviews", len(rec.Reviews)))
	writeJSON(w, http.StatusOK, classifyResponse{
		Status:            statusSuccess,
		ClassifiedReviews: rec,
	})
}

var errNoMovieID = errors.New("no movie id provided")

func classifyMovieID(w http.ResponseWriter, r *http.Request) (int, error) {
	var id *string
	if err := runtime.BindQueryParameter("form", true, false, "id", r.URL.Query(), &id); err != nil {
		return 0, fmt.Errorf("invalid id parameter: %w", err)
	}
	if id != nil && *id != "" {
		return parseMovieID(*id)
	}

	if r.Method != http.MethodPost || r.Body == nil {
		return 0, errNoMovieID
	}
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return 0, fmt.Errorf("read body: %w", err)
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return 0, errNoMovieID
	}

	var req classifyRequest
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&req); err != nil {
		// Quoted numbers decode into json.Number too.
		return 0, fmt.Errorf("invalid request body: %w", err)
	}
	if req.ID == "" {
		return 0, errNoMovieID
	}
	return parseMovieID(req.ID.String())
}

func parseMovieID(s string) (int, error) {
	id, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("%w: movie id must be an integer, got %q", domain.ErrValidation, s)
	}
	return id, nil
}
