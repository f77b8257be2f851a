package provider

import (
	"context"

	"go.uber.org/zap"

	"github.com/kailas-cloud/cinematch/internal/domain"
	"github.com/kailas-cloud/cinematch/internal/domain/sentiment"
)

// Classifier labels cleaned review texts.
type Classifier interface {
	Classify(ctx context.Context, texts []string) ([]sentiment.Label, error)
}

// LimitedEmbedder guards an embedder with concurrency, deadline and breaker limits.
type LimitedEmbedder struct {
	inner domain.Embedder
	guard *guard[domain.EmbeddingResult]
}

// NewLimitedEmbedder wraps an embedder. Errors wrap domain.ErrEmbeddingProviderError.
func NewLimitedEmbedder(inner domain.Embedder, s Settings, logger *zap.Logger) *LimitedEmbedder {
	return &LimitedEmbedder{
		inner: inner,
		guard: newGuard[domain.EmbeddingResult](s, domain.ErrEmbeddingProviderError, logger),
	}
}

// Embed implements domain.Embedder.
func (l *LimitedEmbedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	return l.guard.do(ctx, func(ctx context.Context) (domain.EmbeddingResult, error) {
		return l.inner.Embed(ctx, text)
	})
}

// HealthCheck delegates to the inner embedder if it supports health checks.
func (l *LimitedEmbedder) HealthCheck(ctx context.Context) error {
	if hc, ok := l.inner.(domain.HealthChecker); ok {
		return hc.HealthCheck(ctx)
	}
	return nil
}

// LimitedClassifier guards a classifier with concurrency, deadline and breaker limits.
type LimitedClassifier struct {
	inner Classifier
	guard *guard[[]sentiment.Label]
}

// NewLimitedClassifier wraps a classifier. Errors wrap domain.ErrClassifierProviderError.
func NewLimitedClassifier(inner Classifier, s Settings, logger *zap.Logger) *LimitedClassifier {
	return &LimitedClassifier{
		inner: inner,
		guard: newGuard[[]sentiment.Label](s, domain.ErrClassifierProviderError, logger),
	}
}

// Classify labels texts in one guarded call.
func (l *LimitedClassifier) Classify(ctx context.Context, texts []string) ([]sentiment.Label, error) {
	return l.guard.do(ctx, func(ctx context.Context) ([]sentiment.Label, error) {
		return l.inner.Classify(ctx, texts)
	})
}
