package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/kailas-cloud/cinematch/internal/config"
	"github.com/kailas-cloud/cinematch/internal/db"
	dbRedis "github.com/kailas-cloud/cinematch/internal/db/redis"
	"github.com/kailas-cloud/cinematch/internal/domain"
	"github.com/kailas-cloud/cinematch/internal/domain/search/query"
	logpkg "github.com/kailas-cloud/cinematch/internal/logger"
	"github.com/kailas-cloud/cinematch/internal/metrics"
	"github.com/kailas-cloud/cinematch/internal/repository/catalog"
	"github.com/kailas-cloud/cinematch/internal/repository/embcache"
	chiTransport "github.com/kailas-cloud/cinematch/internal/transport/chi"
	openaiProv "github.com/kailas-cloud/cinematch/internal/transport/openai"
	healthuc "github.com/kailas-cloud/cinematch/internal/usecase/health"
	"github.com/kailas-cloud/cinematch/internal/usecase/provider"
	"github.com/kailas-cloud/cinematch/internal/usecase/ranking"
	"github.com/kailas-cloud/cinematch/internal/usecase/recommend"
	"github.com/kailas-cloud/cinematch/internal/usecase/sentiment"
	"github.com/kailas-cloud/cinematch/internal/version"
)

func main() {
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting cinematch API server",
		zap.String("version", version.String()),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("cache_driver", cfg.Cache.Driver),
	)

	// Register service metrics explicitly (no init())
	metrics.RegisterServiceMetrics()

	cat, err := catalog.Load(cfg.Catalog.MoviesPath, cfg.Catalog.ReviewsPath)
	if err != nil {
		logger.Fatal("Failed to load catalog", zap.Error(err))
	}
	logger.Info("Catalog loaded",
		zap.Int("movies", cat.Len()),
		zap.Int("reviewed_movies", len(cat.ReviewedMovieIDs())),
	)

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	// Optional embedding cache store. Stays a nil interface when disabled.
	var store db.Store
	if cfg.Cache.Driver == "redis" {
		redisStore, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.Cache.Addrs,
			Password: cfg.Cache.Password,
		})
		if err != nil {
			logger.Fatal("Failed to create cache store", zap.Error(err))
		}
		store = redisStore
		defer store.Close()

		if err := store.WaitForReady(ctx, time.Duration(cfg.Cache.ReadinessTimeout)*time.Second); err != nil {
			logger.Fatal("Cache store not ready", zap.Error(err))
		}
		logger.Info("Connected to cache store", zap.Strings("addrs", cfg.Cache.Addrs))
	}

	settings := func(name string) provider.Settings {
		return provider.Settings{
			Name:            name,
			MaxInFlight:     int64(cfg.Providers.MaxInFlight),
			Timeout:         cfg.ProviderTimeout(),
			BreakerFailures: uint32(cfg.Providers.Breaker.Failures), //nolint:gosec // ApplyDefaults keeps it positive
			BreakerOpen:     cfg.BreakerOpen(),
		}
	}

	embedder := buildEmbedder(cfg, store, settings("embedding"), logger)
	classifier := provider.NewLimitedClassifier(
		openaiProv.NewClassifier(&openaiProv.Config{
			APIKey:    cfg.Classifier.APIKey,
			BaseURL:   cfg.Classifier.BaseURL,
			Model:     cfg.Classifier.Model,
			BatchSize: cfg.Classifier.BatchSize,
			Provider:  cfg.Classifier.Provider,
			Logger:    logger,
		}),
		settings("classifier"), logger,
	)
	logger.Info("Providers created",
		zap.String("embedding_model", cfg.Embedding.Model),
		zap.String("classifier_model", cfg.Classifier.Model),
		zap.Int("max_in_flight", cfg.Providers.MaxInFlight),
	)

	// Use case services
	recommendSvc := recommend.New(cat, embedder)
	reviewCache := sentiment.NewCache(cat, classifier, metrics.ReviewCacheTotal, logger)
	engine := ranking.NewEngine(
		ranking.WithTimeout(cfg.RankingTimeout()),
		ranking.WithMaxIterations(cfg.Ranking.MaxIterations),
		ranking.WithMetrics(metrics.RankingDuration, metrics.RankingFallbackTotal),
	)
	sortedSvc := ranking.NewService(cat, sentiment.NewAggregator(classifier), engine,
		cfg.Ranking.SortedLimit, cfg.Ranking.Workers)

	healthSvc := healthuc.New(cat, store, embedder)

	if cfg.Cache.Warmup {
		go func() {
			ids := cat.ReviewedMovieIDs()
			n := reviewCache.Warmup(ctx, ids, cfg.Ranking.Workers)
			logger.Info("Review cache warmed up", zap.Int("classified", n), zap.Int("movies", len(ids)))
		}()
	}

	server := chiTransport.NewServer(recommendSvc, sortedSvc, reviewCache, healthSvc,
		query.Options{TopK: cfg.Search.TopK, InitialTopK: cfg.Search.InitialTopK}, logger)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(chiTransport.CORSMiddleware(cfg.HTTP.CORSOrigin))
	r.Use(chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys))
	r.Use(metrics.Middleware())
	server.Routes(r)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// queryEmbedder is what search and health need from the embedder chain.
type queryEmbedder interface {
	domain.Embedder
	domain.HealthChecker
}

// buildEmbedder assembles the query embedder chain: OpenAI -> Limited -> Cached.
// The limiter's per-call deadline bounds provider calls the cache detaches
// from their callers; cache hits skip the limiter.
// The limiter sits outermost so cache hits never wait for a provider slot.
func buildEmbedder(
	cfg config.Config,
	store db.Store,
	s provider.Settings,
	logger *zap.Logger,
) queryEmbedder {
	base := openaiProv.NewEmbedder(&openaiProv.Config{
		APIKey:     cfg.Embedding.APIKey,
		BaseURL:    cfg.Embedding.BaseURL,
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
		Provider:   cfg.Embedding.Provider,
		Logger:     logger,
	})

	limited := provider.NewLimitedEmbedder(base, s, logger)
	if store == nil {
		return limited
	}
	return embcache.New(limited, store, cfg.Embedding.Model,
		time.Duration(cfg.Cache.EmbeddingTTLSec)*time.Second, metrics.EmbeddingCacheTotal, logger)
}

// jsonRecoverer is a recovery middleware that returns the API error body instead of a plain text stacktrace.
func jsonRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					if rvr == http.ErrAbortHandler {
						panic(rvr)
					}
					logger.Error("panic recovered",
						zap.Any("panic", rvr),
						zap.String("path", r.URL.Path),
						zap.Stack("stacktrace"),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(map[string]string{
						"status":  "error",
						"message": "internal error",
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// wideEventMiddleware emits a canonical log line per request and propagates X-Request-ID.
func wideEventMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			requestID := chiMiddleware.GetReqID(r.Context())
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			route := r.URL.Path
			if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
				route = rctx.RoutePattern()
			}

			// Canonical log line, one per request
			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("route", route),
				zap.String("query", r.URL.RawQuery),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}
