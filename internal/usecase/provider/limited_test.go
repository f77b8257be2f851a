package provider

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/cinematch/internal/domain"
	"github.com/kailas-cloud/cinematch/internal/domain/sentiment"
)

// --- Mocks ---

type mockEmbedder struct {
	calls   atomic.Int32
	active  atomic.Int32
	peak    atomic.Int32
	delay   time.Duration
	err     error
	healthy error
}

func (m *mockEmbedder) Embed(ctx context.Context, _ string) (domain.EmbeddingResult, error) {
	m.calls.Add(1)
	n := m.active.Add(1)
	defer m.active.Add(-1)
	for {
		p := m.peak.Load()
		if n <= p || m.peak.CompareAndSwap(p, n) {
			break
		}
	}

	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			return domain.EmbeddingResult{}, ctx.Err()
		}
	}
	if m.err != nil {
		return domain.EmbeddingResult{}, m.err
	}
	return domain.EmbeddingResult{Embedding: []float32{1, 0}}, nil
}

func (m *mockEmbedder) HealthCheck(context.Context) error { return m.healthy }

type mockClassifier struct {
	labels []sentiment.Label
	err    error
}

func (m *mockClassifier) Classify(context.Context, []string) ([]sentiment.Label, error) {
	return m.labels, m.err
}

// --- Tests ---

func TestLimitedEmbedder_BoundsInFlight(t *testing.T) {
	inner := &mockEmbedder{delay: 20 * time.Millisecond}
	emb := NewLimitedEmbedder(inner, Settings{Name: "test-bound", MaxInFlight: 2}, zap.NewNop())

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := emb.Embed(context.Background(), "x"); err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if inner.calls.Load() != 8 {
		t.Errorf("calls = %d, want 8", inner.calls.Load())
	}
	if peak := inner.peak.Load(); peak > 2 {
		t.Errorf("peak in-flight = %d, want <= 2", peak)
	}
}

func TestLimitedEmbedder_Timeout(t *testing.T) {
	inner := &mockEmbedder{delay: time.Second}
	emb := NewLimitedEmbedder(inner, Settings{Name: "test-timeout", Timeout: 10 * time.Millisecond}, zap.NewNop())

	_, err := emb.Embed(context.Background(), "x")
	if !errors.Is(err, domain.ErrEmbeddingProviderError) {
		t.Fatalf("expected ErrEmbeddingProviderError, got %v", err)
	}
}

func TestLimitedEmbedder_WrapsErrors(t *testing.T) {
	emb := NewLimitedEmbedder(&mockEmbedder{err: errors.New("boom")},
		Settings{Name: "test-wrap"}, zap.NewNop())

	_, err := emb.Embed(context.Background(), "x")
	if !errors.Is(err, domain.ErrEmbeddingProviderError) || !errors.Is(err, domain.ErrCompute) {
		t.Fatalf("expected provider error chain, got %v", err)
	}
}

func TestLimitedEmbedder_BreakerOpens(t *testing.T) {
	inner := &mockEmbedder{err: errors.New("down")}
	emb := NewLimitedEmbedder(inner, Settings{
		Name:            "test-breaker",
		BreakerFailures: 3,
		BreakerOpen:     time.Minute,
	}, zap.NewNop())

	for range 3 {
		_, _ = emb.Embed(context.Background(), "x")
	}
	_, err := emb.Embed(context.Background(), "x")
	if !errors.Is(err, domain.ErrEmbeddingProviderError) {
		t.Fatalf("expected provider error, got %v", err)
	}
	if inner.calls.Load() != 3 {
		t.Errorf("open circuit still called provider: %d calls", inner.calls.Load())
	}
}

func TestLimitedEmbedder_CallerCancelDoesNotTrip(t *testing.T) {
	inner := &mockEmbedder{delay: time.Second}
	emb := NewLimitedEmbedder(inner, Settings{Name: "test-cancel", BreakerFailures: 1}, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	for range 3 {
		_, _ = emb.Embed(ctx, "x")
	}

	inner.delay = 0
	if _, err := emb.Embed(context.Background(), "x"); err != nil {
		t.Fatalf("breaker tripped on caller cancellation: %v", err)
	}
}

func TestLimitedEmbedder_HealthCheck(t *testing.T) {
	want := errors.New("unhealthy")
	emb := NewLimitedEmbedder(&mockEmbedder{healthy: want}, Settings{Name: "test-health"}, zap.NewNop())
	if err := emb.HealthCheck(context.Background()); !errors.Is(err, want) {
		t.Errorf("HealthCheck = %v, want %v", err, want)
	}
}

func TestLimitedClassifier(t *testing.T) {
	t.Run("pass through", func(t *testing.T) {
		want := []sentiment.Label{sentiment.Positive, sentiment.Negative}
		clf := NewLimitedClassifier(&mockClassifier{labels: want}, Settings{Name: "test-clf"}, zap.NewNop())
		got, err := clf.Classify(context.Background(), []string{"a", "b"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(got) != 2 || got[0] != want[0] || got[1] != want[1] {
			t.Errorf("got %v, want %v", got, want)
		}
	})
	t.Run("already wrapped error kept", func(t *testing.T) {
		inner := &mockClassifier{err: domain.ErrClassifierProviderError}
		clf := NewLimitedClassifier(inner, Settings{Name: "test-clf-err"}, zap.NewNop())
		_, err := clf.Classify(context.Background(), []string{"a"})
		if !errors.Is(err, domain.ErrClassifierProviderError) {
			t.Fatalf("expected ErrClassifierProviderError, got %v", err)
		}
	})
}
