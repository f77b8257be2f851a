package recommend

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"

	"github.com/kailas-cloud/cinematch/internal/domain"
	"github.com/kailas-cloud/cinematch/internal/domain/movie"
	"github.com/kailas-cloud/cinematch/internal/domain/search/query"
	"github.com/kailas-cloud/cinematch/internal/domain/search/result"
	logpkg "github.com/kailas-cloud/cinematch/internal/logger"
)

// Service answers multi-field semantic queries against the corpus.
// It holds no mutable state; concurrent searches are safe.
type Service struct {
	corpus Corpus
	embed  Embedder
}

// New creates a search service.
func New(corpus Corpus, embed Embedder) *Service {
	return &Service{corpus: corpus, embed: embed}
}

// Search returns one bundle per query field that produced matches, in query
// order. Candidates are the opts.InitialTopK most similar movies; a
// list-valued Genres term filters them before truncation to opts.TopK.
func (s *Service) Search(ctx context.Context, q *query.Query, opts query.Options) ([]result.Bundle, error) {
	log := logpkg.FromContext(ctx)
	genres, filterByGenre := q.GenreFilter()

	var bundles []result.Bundle
	for _, term := range q.Terms() {
		if term.IsEmpty() {
			continue
		}

		vec, err := s.queryVector(ctx, term)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", term.Field, err)
		}

		m := s.corpus.Matrix(term.Field)
		if _, cols := m.Dims(); cols != len(vec) {
			return nil, fmt.Errorf("field %s: query vector has dimension %d, corpus has %d: %w",
				term.Field, len(vec), cols, domain.ErrEmbeddingProviderError)
		}

		sims := cosineSimilarities(m, s.corpus.RowNorms(term.Field), vec)

		selected := make([]int, 0, opts.TopK)
		for _, i := range topIndices(sims, opts.InitialTopK) {
			if len(selected) == opts.TopK {
				break
			}
			if filterByGenre {
				mv := s.corpus.MovieAt(i)
				if !mv.HasAnyGenre(genres) {
					continue
				}
			}
			selected = append(selected, i)
		}

		if len(selected) == 0 {
			log.Debug("No matches for field", zap.Stringer("field", term.Field))
			continue
		}

		movies := make([]movie.Movie, len(selected))
		scores := make([]float64, len(selected))
		for j, i := range selected {
			movies[j] = s.corpus.MovieAt(i)
			scores[j] = sims[i]
		}
		confidence := clip(floats.Max(sims), -1, 1)

		log.Debug("Field search completed",
			zap.Stringer("field", term.Field),
			zap.Int("matches", len(selected)),
			zap.Float64("confidence", confidence),
		)
		bundles = append(bundles, result.New(term.Field, movies, scores, confidence))
	}

	return bundles, nil
}

// queryVector embeds a single value, or embeds every list element and
// averages them element-wise.
func (s *Service) queryVector(ctx context.Context, term query.Term) ([]float64, error) {
	if !term.IsList {
		res, err := s.embed.Embed(ctx, term.Values[0])
		if err != nil {
			return nil, fmt.Errorf("vectorize query: %w", err)
		}
		return domain.MeanVector([][]float32{res.Embedding})
	}

	vectors := make([][]float32, len(term.Values))
	g, gctx := errgroup.WithContext(ctx)
	for i, v := range term.Values {
		g.Go(func() error {
			res, err := s.embed.Embed(gctx, v)
			if err != nil {
				return fmt.Errorf("vectorize query [%d]: %w", i, err)
			}
			vectors[i] = res.Embedding
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	mean, err := domain.MeanVector(vectors)
	if err != nil {
		return nil, fmt.Errorf("average query vectors: %w", err)
	}
	return mean, nil
}
