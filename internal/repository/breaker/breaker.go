// Package breaker guards a CourseRepository with a circuit breaker. Only
// storage failures count against the breaker; NotFound, AlreadyExists and
// other domain outcomes are successes. While open every call fails fast with
// StorageUnavailable instead of waiting on a dead backend.
package breaker

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sony/gobreaker/v2"

	"github.com/classify/catalog/internal/domain"
	"github.com/classify/catalog/internal/repository"
	apperrors "github.com/classify/catalog/pkg/errors"
)

// Config holds circuit breaker settings.
type Config struct {
	// Name identifies the breaker in logs and metrics.
	Name string

	// MaxRequests is the number of trial calls allowed while half-open.
	MaxRequests uint32

	// Interval clears the counts periodically while closed. 0 never clears.
	Interval time.Duration

	// Timeout is how long the breaker stays open before going half-open.
	Timeout time.Duration

	// FailureRatio of storage failures to requests that trips the breaker.
	FailureRatio float64

	// MinRequests before FailureRatio is evaluated.
	MinRequests uint32
}

// DefaultConfig returns the settings used by the catalog service.
func DefaultConfig(name string) Config {
	return Config{
		Name:         name,
		MaxRequests:  1,
		Interval:     60 * time.Second,
		Timeout:      30 * time.Second,
		FailureRatio: 0.5,
		MinRequests:  5,
	}
}

// ErrOpen is the cause carried by StorageUnavailable while the breaker rejects calls.
var ErrOpen = gobreaker.ErrOpenState

// CourseRepository decorates another repository with the breaker.
type CourseRepository struct {
	next  repository.CourseRepository
	cb    *gobreaker.CircuitBreaker[any]
	state *prometheus.Desc
}

// New wraps next.
func New(next repository.CourseRepository, cfg Config, logger *slog.Logger) *CourseRepository {
	r := &CourseRepository{
		next: next,
		state: prometheus.NewDesc(
			"catalog_storage_breaker_state",
			"Current state of the storage circuit breaker (0=closed, 1=half-open, 2=open)",
			nil, prometheus.Labels{"name": cfg.Name},
		),
	}

	r.cb = gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= cfg.FailureRatio
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("storage circuit breaker state change",
				slog.String("breaker", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()),
			)
		},
		IsSuccessful: func(err error) bool {
			return err == nil || !errors.Is(err, apperrors.ErrServiceUnavail)
		},
	})
	return r
}

// State returns the current breaker state.
func (r *CourseRepository) State() gobreaker.State {
	return r.cb.State()
}

// Describe implements prometheus.Collector.
func (r *CourseRepository) Describe(ch chan<- *prometheus.Desc) {
	ch <- r.state
}

// Collect implements prometheus.Collector.
func (r *CourseRepository) Collect(ch chan<- prometheus.Metric) {
	ch <- prometheus.MustNewConstMetric(r.state, prometheus.GaugeValue, stateToFloat(r.cb.State()))
}

func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

func execute[T any](r *CourseRepository, op string, fn func() (T, error)) (T, error) {
	v, err := r.cb.Execute(func() (any, error) {
		res, err := fn()
		return res, err
	})
	if err != nil {
		var zero T
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return zero, apperrors.StorageUnavailable(op, err)
		}
		return zero, err
	}
	return v.(T), nil
}

type addResult struct {
	course *domain.Course
	added  bool
}

func (r *CourseRepository) Create(ctx context.Context, course *domain.Course) error {
	_, err := execute(r, "create course", func() (struct{}, error) {
		return struct{}{}, r.next.Create(ctx, course)
	})
	return err
}

func (r *CourseRepository) GetByCode(ctx context.Context, code domain.CourseCode) (*domain.Course, error) {
	return execute(r, "get course", func() (*domain.Course, error) {
		return r.next.GetByCode(ctx, code)
	})
}

func (r *CourseRepository) List(ctx context.Context) ([]*domain.Course, error) {
	return execute(r, "list courses", func() ([]*domain.Course, error) {
		return r.next.List(ctx)
	})
}

func (r *CourseRepository) AppendReview(ctx context.Context, code domain.CourseCode, review domain.Review, at time.Time) (*domain.Course, error) {
	return execute(r, "append review", func() (*domain.Course, error) {
		return r.next.AppendReview(ctx, code, review, at)
	})
}

func (r *CourseRepository) ReplaceProfessors(ctx context.Context, code domain.CourseCode, professors []string, at time.Time) (*domain.Course, error) {
	return execute(r, "replace professors", func() (*domain.Course, error) {
		return r.next.ReplaceProfessors(ctx, code, professors, at)
	})
}

func (r *CourseRepository) AddProfessor(ctx context.Context, code domain.CourseCode, name string, at time.Time) (*domain.Course, bool, error) {
	res, err := execute(r, "add professor", func() (addResult, error) {
		c, added, err := r.next.AddProfessor(ctx, code, name, at)
		return addResult{course: c, added: added}, err
	})
	return res.course, res.added, err
}

func (r *CourseRepository) Delete(ctx context.Context, code domain.CourseCode) error {
	_, err := execute(r, "delete course", func() (struct{}, error) {
		return struct{}{}, r.next.Delete(ctx, code)
	})
	return err
}

func (r *CourseRepository) DeleteAll(ctx context.Context) (int, error) {
	return execute(r, "delete courses", func() (int, error) {
		return r.next.DeleteAll(ctx)
	})
}

// Ping bypasses the breaker so readiness reflects the backend itself.
func (r *CourseRepository) Ping(ctx context.Context) error {
	return r.next.Ping(ctx)
}
