package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/classify/catalog/internal/domain"
	"github.com/classify/catalog/internal/repository"
	apperrors "github.com/classify/catalog/pkg/errors"
	"github.com/classify/catalog/pkg/tracing"
)

const tracerName = "github.com/classify/catalog/internal/service"

// EventPublisher receives catalog mutations after they are stored.
// internal/event.Producer implements it.
type EventPublisher interface {
	CourseCreated(ctx context.Context, course *domain.Course) error
	ReviewAdded(ctx context.Context, code domain.CourseCode, review domain.Review) error
	ProfessorsUpdated(ctx context.Context, code domain.CourseCode, professors []string) error
	CourseDeleted(ctx context.Context, code domain.CourseCode) error
}

// CatalogService is the boundary through which the HTTP layer and the seed
// loader read and mutate courses and reviews.
type CatalogService struct {
	repo    repository.CourseRepository
	events  EventPublisher
	metrics *Metrics
	logger  *slog.Logger
	tracer  trace.Tracer
	now     func() time.Time
	newID   func() string
}

// Option configures a CatalogService.
type Option func(*CatalogService)

// WithEvents publishes domain events to p. Without it no events are sent.
func WithEvents(p EventPublisher) Option {
	return func(s *CatalogService) { s.events = p }
}

// WithMetrics records mutation counts in m.
func WithMetrics(m *Metrics) Option {
	return func(s *CatalogService) { s.metrics = m }
}

// WithClock overrides the time source used for timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *CatalogService) { s.now = now }
}

// WithIDGenerator overrides how review ids are generated.
func WithIDGenerator(newID func() string) Option {
	return func(s *CatalogService) { s.newID = newID }
}

// NewCatalogService creates a catalog service over repo.
func NewCatalogService(repo repository.CourseRepository, logger *slog.Logger, opts ...Option) *CatalogService {
	s := &CatalogService{
		repo:   repo,
		logger: logger,
		tracer: tracing.Tracer(tracerName),
		now:    time.Now,
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create validates draft and inserts the resulting course.
func (s *CatalogService) Create(ctx context.Context, draft domain.CourseDraft) (course *domain.Course, err error) {
	ctx, span := s.start(ctx, "CatalogService.Create", domain.Normalize(draft.Code))
	defer func() { s.finish(span, "create", err) }()

	if err = draft.Validate(); err != nil {
		return nil, err
	}

	course = domain.NewCourse(draft, s.newID, s.now())
	if err = s.repo.Create(ctx, course); err != nil {
		return nil, fmt.Errorf("create course: %w", err)
	}

	s.emit(ctx, "course.created", course.Code, func() error {
		return s.events.CourseCreated(ctx, course)
	})

	s.logger.InfoContext(ctx, "course created",
		slog.String("course_code", course.Code.String()),
		slog.Int("review_count", len(course.Reviews)),
	)
	return course, nil
}

// Get returns the course with the given code. code is normalized first.
func (s *CatalogService) Get(ctx context.Context, code string) (*domain.Course, error) {
	c := domain.Normalize(code)
	ctx, span := s.start(ctx, "CatalogService.Get", c)

	course, err := s.repo.GetByCode(ctx, c)
	tracing.End(span, err)
	if err != nil {
		return nil, fmt.Errorf("get course: %w", err)
	}
	return course, nil
}

// List returns every course in insertion order. The slice is owned by the
// caller.
func (s *CatalogService) List(ctx context.Context) ([]*domain.Course, error) {
	ctx, span := s.tracer.Start(ctx, "CatalogService.List")

	courses, err := s.repo.List(ctx)
	tracing.End(span, err)
	if err != nil {
		return nil, fmt.Errorf("list courses: %w", err)
	}
	return courses, nil
}

// Reviews returns the reviews of a course in the order they were added.
func (s *CatalogService) Reviews(ctx context.Context, code string) ([]domain.Review, error) {
	course, err := s.Get(ctx, code)
	if err != nil {
		return nil, err
	}
	return course.Reviews, nil
}

// AppendReview validates draft and appends it to the course's reviews with
// a generated id. The timestamp defaults to now.
func (s *CatalogService) AppendReview(ctx context.Context, code string, draft domain.ReviewDraft) (course *domain.Course, err error) {
	c := domain.Normalize(code)
	ctx, span := s.start(ctx, "CatalogService.AppendReview", c)
	defer func() { s.finish(span, "append_review", err) }()

	if err = draft.Validate(""); err != nil {
		return nil, err
	}

	now := s.now()
	review := domain.NewReview(s.newID(), draft, now)
	course, err = s.repo.AppendReview(ctx, c, review, now.UTC())
	if err != nil {
		return nil, fmt.Errorf("append review: %w", err)
	}

	s.emit(ctx, "course.review_added", c, func() error {
		return s.events.ReviewAdded(ctx, c, review)
	})

	s.logger.InfoContext(ctx, "review appended",
		slog.String("course_code", c.String()),
		slog.String("review_id", review.ID),
		slog.Int("review_count", len(course.Reviews)),
	)
	return course, nil
}

// SetProfessors replaces the roster with names. Names not resent are
// dropped.
func (s *CatalogService) SetProfessors(ctx context.Context, code string, names []string) (course *domain.Course, err error) {
	c := domain.Normalize(code)
	ctx, span := s.start(ctx, "CatalogService.SetProfessors", c)
	defer func() { s.finish(span, "set_professors", err) }()

	professors, err := domain.NormalizeProfessors(names)
	if err != nil {
		return nil, err
	}

	course, err = s.repo.ReplaceProfessors(ctx, c, professors, s.now().UTC())
	if err != nil {
		return nil, fmt.Errorf("set professors: %w", err)
	}

	s.emit(ctx, "course.professors_updated", c, func() error {
		return s.events.ProfessorsUpdated(ctx, c, course.Professors)
	})

	s.logger.InfoContext(ctx, "professors replaced",
		slog.String("course_code", c.String()),
		slog.Int("professor_count", len(course.Professors)),
	)
	return course, nil
}

// AddProfessor appends name to the roster unless it is already listed,
// ignoring case. added reports whether the roster changed.
func (s *CatalogService) AddProfessor(ctx context.Context, code, name string) (course *domain.Course, added bool, err error) {
	c := domain.Normalize(code)
	ctx, span := s.start(ctx, "CatalogService.AddProfessor", c)
	defer func() { s.finish(span, "add_professor", err) }()

	name = strings.TrimSpace(name)
	if name == "" {
		return nil, false, apperrors.Validation("professor", "is required")
	}

	course, added, err = s.repo.AddProfessor(ctx, c, name, s.now().UTC())
	if err != nil {
		return nil, false, fmt.Errorf("add professor: %w", err)
	}
	if !added {
		return course, false, nil
	}

	s.emit(ctx, "course.professors_updated", c, func() error {
		return s.events.ProfessorsUpdated(ctx, c, course.Professors)
	})

	s.logger.InfoContext(ctx, "professor added",
		slog.String("course_code", c.String()),
		slog.String("professor", name),
	)
	return course, true, nil
}

// Remove deletes a course together with its reviews.
func (s *CatalogService) Remove(ctx context.Context, code string) (err error) {
	c := domain.Normalize(code)
	ctx, span := s.start(ctx, "CatalogService.Remove", c)
	defer func() { s.finish(span, "remove", err) }()

	if err = s.repo.Delete(ctx, c); err != nil {
		return fmt.Errorf("remove course: %w", err)
	}

	s.emit(ctx, "course.deleted", c, func() error {
		return s.events.CourseDeleted(ctx, c)
	})

	s.logger.InfoContext(ctx, "course removed", slog.String("course_code", c.String()))
	return nil
}

// SeedResult reports what a Seed call changed.
type SeedResult struct {
	Removed  int `json:"removed"`
	Inserted int `json:"inserted"`
}

// Seed replaces the whole catalog with drafts. Every draft is validated, and
// codes are checked for duplicates, before anything is cleared.
func (s *CatalogService) Seed(ctx context.Context, drafts []domain.CourseDraft) (res SeedResult, err error) {
	ctx, span := s.tracer.Start(ctx, "CatalogService.Seed",
		trace.WithAttributes(attribute.Int("catalog.seed.courses", len(drafts))))
	defer func() { tracing.End(span, err) }()

	seen := make(map[domain.CourseCode]int, len(drafts))
	for i, d := range drafts {
		if err = d.Validate(); err != nil {
			return res, fmt.Errorf("seed course %d: %w", i, err)
		}
		code := domain.Normalize(d.Code)
		if first, dup := seen[code]; dup {
			return res, fmt.Errorf("seed course %d duplicates course %d: %w", i, first,
				apperrors.AlreadyExists("course", "course_code", code.String()))
		}
		seen[code] = i
	}

	res.Removed, err = s.repo.DeleteAll(ctx)
	if err != nil {
		return res, fmt.Errorf("clear catalog: %w", err)
	}

	for _, d := range drafts {
		if _, err = s.Create(ctx, d); err != nil {
			return res, fmt.Errorf("seed %s: %w", domain.Normalize(d.Code), err)
		}
		res.Inserted++
	}

	s.logger.InfoContext(ctx, "catalog seeded",
		slog.Int("removed", res.Removed),
		slog.Int("inserted", res.Inserted),
	)
	return res, nil
}

func (s *CatalogService) start(ctx context.Context, name string, code domain.CourseCode) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, name, trace.WithAttributes(attribute.String("catalog.course_code", code.String())))
}

func (s *CatalogService) finish(span trace.Span, op string, err error) {
	s.metrics.observe(op, err)
	tracing.End(span, err)
}

// emit runs publish when events are enabled. A failed publish is logged and
// never fails the mutation.
func (s *CatalogService) emit(ctx context.Context, eventType string, code domain.CourseCode, publish func() error) {
	if s.events == nil {
		return
	}
	if err := publish(); err != nil {
		s.logger.WarnContext(ctx, "failed to publish event",
			slog.String("event_type", eventType),
			slog.String("course_code", code.String()),
			slog.String("error", err.Error()),
		)
	}
}
