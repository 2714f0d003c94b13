package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/classify/catalog/internal/domain"
	"github.com/classify/catalog/internal/graph"
	"github.com/classify/catalog/internal/rating"
	apperrors "github.com/classify/catalog/pkg/errors"
	"github.com/classify/catalog/pkg/pagination"
	"github.com/classify/catalog/pkg/tracing"
)

// SearchQuery filters the catalog. Empty fields match everything.
type SearchQuery struct {
	// Query matches the course code ignoring case and whitespace, or the
	// course name ignoring case.
	Query      string
	Department string
	Page       pagination.Params
}

// Department is a distinct department and how many courses it offers.
type Department struct {
	Name        string `json:"name"`
	CourseCount int    `json:"course_count"`
}

// CourseSummary is everything a course detail page shows, computed from
// the current catalog.
type CourseSummary struct {
	Course          *domain.Course           `json:"course"`
	Aggregate       *rating.AggregateRating  `json:"aggregate"`
	Professors      []rating.ProfessorRating `json:"professors"`
	Prerequisites   []graph.Prerequisite     `json:"prerequisites"`
	Satisfiable     bool                     `json:"satisfiable"`
	RequiredForLive []domain.CourseCode      `json:"required_for_live"`
	RequiredForHint []domain.CourseCode      `json:"required_for_hint"`
}

// PrerequisiteReport describes the prerequisite chain of one course.
type PrerequisiteReport struct {
	Code          domain.CourseCode    `json:"course_code"`
	Prerequisites []graph.Prerequisite `json:"prerequisites"`
	Satisfiable   bool                 `json:"satisfiable"`
	Closure       []domain.CourseCode  `json:"closure"`
}

// Search returns the page of courses matching q, in catalog order.
func (s *CatalogService) Search(ctx context.Context, q SearchQuery) (pagination.Result[*domain.Course], error) {
	courses, err := s.List(ctx)
	if err != nil {
		return pagination.Result[*domain.Course]{}, err
	}

	code := domain.Normalize(q.Query).String()
	name := strings.ToLower(strings.TrimSpace(q.Query))
	dept := strings.TrimSpace(q.Department)

	matched := make([]*domain.Course, 0, len(courses))
	for _, c := range courses {
		if dept != "" && !strings.EqualFold(c.Department, dept) {
			continue
		}
		if name != "" &&
			!strings.Contains(c.Code.String(), code) &&
			!strings.Contains(strings.ToLower(c.Name), name) {
			continue
		}
		matched = append(matched, c)
	}

	return pagination.Paginate(matched, q.Page.WithOffset()), nil
}

// Departments lists distinct departments in the order they first appear.
// Names are grouped ignoring case; the first spelling wins.
func (s *CatalogService) Departments(ctx context.Context) ([]Department, error) {
	courses, err := s.List(ctx)
	if err != nil {
		return nil, err
	}

	index := make(map[string]int)
	out := []Department{}
	for _, c := range courses {
		key := strings.ToLower(c.Department)
		if i, ok := index[key]; ok {
			out[i].CourseCount++
			continue
		}
		index[key] = len(out)
		out = append(out, Department{Name: c.Department, CourseCount: 1})
	}
	return out, nil
}

// ReviewsByProfessor returns the course's reviews written for professor,
// matched ignoring case. A blank professor returns every review.
func (s *CatalogService) ReviewsByProfessor(ctx context.Context, code, professor string) ([]domain.Review, error) {
	reviews, err := s.Reviews(ctx, code)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(professor) == "" {
		return reviews, nil
	}
	return rating.ReviewsByProfessor(reviews, professor), nil
}

// Aggregate returns the course's mean ratings, or nil when it has no reviews.
func (s *CatalogService) Aggregate(ctx context.Context, code string) (*rating.AggregateRating, error) {
	reviews, err := s.Reviews(ctx, code)
	if err != nil {
		return nil, err
	}
	return rating.Aggregate(reviews), nil
}

// Summary aggregates a course's reviews overall and per displayed
// professor, and resolves its prerequisites against the live catalog.
func (s *CatalogService) Summary(ctx context.Context, code string) (*CourseSummary, error) {
	ctx, span := s.start(ctx, "CatalogService.Summary", domain.Normalize(code))
	summary, err := s.summary(ctx, domain.Normalize(code))
	tracing.End(span, err)
	return summary, err
}

func (s *CatalogService) summary(ctx context.Context, code domain.CourseCode) (*CourseSummary, error) {
	view, courses, err := s.view(ctx)
	if err != nil {
		return nil, err
	}

	var course *domain.Course
	for _, c := range courses {
		if c.Code == code {
			course = c
			break
		}
	}
	if course == nil {
		return nil, apperrors.NotFound("course", code.String())
	}

	prereqs, _ := view.Resolve(code)
	satisfiable, _ := view.IsSatisfiable(code)
	return &CourseSummary{
		Course:          course,
		Aggregate:       rating.Aggregate(course.Reviews),
		Professors:      rating.Breakdown(course.Reviews, course.DisplayProfessors()),
		Prerequisites:   prereqs,
		Satisfiable:     satisfiable,
		RequiredForLive: view.RequiredForOf(code),
		RequiredForHint: course.Usefulness.RequiredForHint,
	}, nil
}

// PrerequisitesOf returns the course's stored prerequisite list verbatim,
// dangling references included.
func (s *CatalogService) PrerequisitesOf(ctx context.Context, code string) ([]domain.CourseCode, error) {
	course, err := s.Get(ctx, code)
	if err != nil {
		return nil, err
	}
	return course.Prerequisites, nil
}

// Prerequisites resolves every direct prerequisite of code and walks the
// transitive closure.
func (s *CatalogService) Prerequisites(ctx context.Context, code string) (*PrerequisiteReport, error) {
	c := domain.Normalize(code)
	view, _, err := s.view(ctx)
	if err != nil {
		return nil, err
	}

	prereqs, ok := view.Resolve(c)
	if !ok {
		return nil, apperrors.NotFound("course", c.String())
	}
	satisfiable, _ := view.IsSatisfiable(c)
	closure, _ := view.Closure(c)
	return &PrerequisiteReport{
		Code:          c,
		Prerequisites: prereqs,
		Satisfiable:   satisfiable,
		Closure:       closure,
	}, nil
}

// IsSatisfiable reports whether every direct prerequisite of code exists.
func (s *CatalogService) IsSatisfiable(ctx context.Context, code string) (bool, error) {
	c := domain.Normalize(code)
	view, _, err := s.view(ctx)
	if err != nil {
		return false, err
	}
	satisfiable, ok := view.IsSatisfiable(c)
	if !ok {
		return false, apperrors.NotFound("course", c.String())
	}
	return satisfiable, nil
}

// RequiredFor returns the courses whose prerequisites list code, computed
// from the live catalog. code does not have to exist.
func (s *CatalogService) RequiredFor(ctx context.Context, code string) ([]domain.CourseCode, error) {
	view, _, err := s.view(ctx)
	if err != nil {
		return nil, err
	}
	return view.RequiredForOf(domain.Normalize(code)), nil
}

func (s *CatalogService) view(ctx context.Context) (*graph.View, []*domain.Course, error) {
	courses, err := s.List(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("build prerequisite graph: %w", err)
	}
	return graph.Build(courses), courses, nil
}
