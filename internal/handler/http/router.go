package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/classify/catalog/internal/service"
	"github.com/classify/catalog/pkg/health"
	"github.com/classify/catalog/pkg/middleware"
)

const tracerName = "github.com/classify/catalog/internal/handler/http"

// RouterConfig holds the optional parts of the router.
type RouterConfig struct {
	CORS middleware.CORSConfig
	// Metrics instruments every request when set.
	Metrics *middleware.HTTPMetrics
	// MetricsHandler is served on /metrics when set.
	MetricsHandler http.Handler
	// RequestTimeout bounds API handlers. Zero disables it.
	RequestTimeout time.Duration
	// WriteRPS and WriteBurst rate limit mutating API calls per client IP.
	// A zero WriteRPS disables the limit.
	WriteRPS   float64
	WriteBurst int
	// TrustProxyHeaders keys the write limit by X-Forwarded-For.
	TrustProxyHeaders bool
}

// NewRouter creates a chi router with all catalog routes registered.
func NewRouter(
	catalog *service.CatalogService,
	healthHandler *health.Handler,
	cfg RouterConfig,
	logger *slog.Logger,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.CORS(cfg.CORS))
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.Tracing(tracerName))
	r.Use(middleware.RequestLogger(logger))
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Handler)
	}

	// Health check endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	if cfg.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", cfg.MetricsHandler)
	}

	courses := NewCourseHandler(catalog, logger)
	reviews := NewReviewHandler(catalog, logger)
	professors := NewProfessorHandler(catalog, logger)

	var writes []func(http.Handler) http.Handler
	if cfg.WriteRPS > 0 {
		writes = append(writes, middleware.RateLimit(middleware.RateLimitConfig{
			RPS:               cfg.WriteRPS,
			Burst:             cfg.WriteBurst,
			TrustProxyHeaders: cfg.TrustProxyHeaders,
		}, logger))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(chimw.Compress(5))
		if cfg.RequestTimeout > 0 {
			r.Use(chimw.Timeout(cfg.RequestTimeout))
		}
		r.Use(chimw.AllowContentType("application/json"))

		r.Get("/departments", courses.ListDepartments)

		r.Route("/courses", func(r chi.Router) {
			r.Get("/", courses.ListCourses)
			r.With(writes...).Post("/", courses.CreateCourse)

			r.Route("/{code}", func(r chi.Router) {
				r.Get("/", courses.GetCourse)
				r.With(writes...).Delete("/", courses.DeleteCourse)
				r.Get("/summary", courses.GetSummary)
				r.Get("/prerequisites", courses.GetPrerequisites)
				r.Get("/required-for", courses.GetRequiredFor)

				r.Get("/reviews", reviews.ListReviews)
				r.With(writes...).Post("/reviews", reviews.CreateReview)

				r.With(writes...).Patch("/professors", professors.SetProfessors)
				r.With(writes...).Post("/professors", professors.AddProfessor)
			})
		})
	})

	return r
}
