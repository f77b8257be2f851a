package chi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/cinematch/internal/domain"
	"github.com/kailas-cloud/cinematch/internal/domain/search/query"
	logpkg "github.com/kailas-cloud/cinematch/internal/logger"
	healthuc "github.com/kailas-cloud/cinematch/internal/usecase/health"
)

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error) bool

// Server serves the recommendation API.
type Server struct {
	recommend     Recommender
	sorted        SortedLister
	reviews       ReviewClassifier
	health        HealthReporter
	search        query.Options
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server. search holds the default top_k and
// initial_top_k for /recommend.
func NewServer(
	recommend Recommender,
	sorted SortedLister,
	reviews ReviewClassifier,
	health HealthReporter,
	search query.Options,
	logger *zap.Logger,
) *Server {
	s := &Server{
		recommend: recommend,
		sorted:    sorted,
		reviews:   reviews,
		health:    health,
		search:    search,
		logger:    logger,
	}
	s.errorHandlers = []errorHandler{
		invalidQueryTypeHandler,
		sentinelHandler(domain.ErrValidation, http.StatusBadRequest, clientMessage),
		sentinelHandler(domain.ErrNotFound, http.StatusNotFound, clientMessage),
		sentinelHandler(domain.ErrCompute, http.StatusInternalServerError, computeMessage),
	}
	return s
}

// Routes registers the API on r.
func (s *Server) Routes(r chi.Router) {
	r.Post("/recommend", s.Recommend)
	r.Get("/get_sorted_movies", s.SortedMovies)
	r.Get("/classify_reviews", s.ClassifyReviews)
	r.Post("/classify_reviews", s.ClassifyReviews)
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, healthResponse{
		Status: string(report.Status),
		Checks: report.Checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{
		Status:  statusError,
		Message: message,
	})
}

// computeSentinels are the compute failures whose names are safe to show.
var computeSentinels = []error{
	domain.ErrDegenerateCorpus,
	domain.ErrOptimizationFailure,
	domain.ErrComputeTimeout,
	domain.ErrEmbeddingProviderError,
	domain.ErrClassifierProviderError,
}

// computeMessage names the failing compute stage without exposing provider details.
func computeMessage(err error) string {
	for _, s := range computeSentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return domain.ErrCompute.Error()
}

// clientMessage returns the full error text; validation and not-found errors
// are built from request data only.
func clientMessage(err error) string {
	return err.Error()
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, msg func(error) string) errorHandler {
	return func(w http.ResponseWriter, err error) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, msg(err))
		return true
	}
}

// invalidQueryTypeHandler reports the rejected field and the accepted names.
func invalidQueryTypeHandler(w http.ResponseWriter, err error) bool {
	var qe *domain.InvalidQueryTypeError
	if !errors.As(err, &qe) {
		return false
	}
	writeError(w, http.StatusBadRequest, qe.Error())
	return true
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	log := logpkg.FromContextOr(r.Context(), s.logger).With(zap.String("path", r.URL.Path))
	for _, h := range s.errorHandlers {
		if h(w, err) {
			if errors.Is(err, domain.ErrCompute) {
				log.Error("compute error", zap.Error(err))
			} else {
				log.Warn("domain error", zap.Error(err))
			}
			return
		}
	}
	log.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, "internal error")
}
