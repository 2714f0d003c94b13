package memory

import (
	"context"
	"sync"
	"time"

	"github.com/classify/catalog/internal/domain"
	apperrors "github.com/classify/catalog/pkg/errors"
)

// CourseRepository is an in-memory CourseRepository. Courses are copied on
// the way in and out so callers never share state with the store.
type CourseRepository struct {
	mu      sync.RWMutex
	courses map[domain.CourseCode]*domain.Course
	order   []domain.CourseCode
}

// NewCourseRepository creates an empty store.
func NewCourseRepository() *CourseRepository {
	return &CourseRepository{
		courses: make(map[domain.CourseCode]*domain.Course),
	}
}

// Create inserts a copy of course.
func (r *CourseRepository) Create(_ context.Context, course *domain.Course) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.courses[course.Code]; ok {
		return apperrors.AlreadyExists("course", "course_code", course.Code.String())
	}
	r.courses[course.Code] = course.Clone()
	r.order = append(r.order, course.Code)
	return nil
}

// GetByCode returns a copy of the course.
func (r *CourseRepository) GetByCode(_ context.Context, code domain.CourseCode) (*domain.Course, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.courses[code]
	if !ok {
		return nil, apperrors.NotFound("course", code.String())
	}
	return c.Clone(), nil
}

// List returns copies of every course in insertion order.
func (r *CourseRepository) List(_ context.Context) ([]*domain.Course, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*domain.Course, 0, len(r.order))
	for _, code := range r.order {
		out = append(out, r.courses[code].Clone())
	}
	return out, nil
}

// AppendReview pushes review under the write lock.
func (r *CourseRepository) AppendReview(_ context.Context, code domain.CourseCode, review domain.Review, at time.Time) (*domain.Course, error) {
	return r.mutate(code, at, func(c *domain.Course) bool {
		c.Reviews = append(c.Reviews, review)
		return true
	})
}

// ReplaceProfessors overwrites the roster.
func (r *CourseRepository) ReplaceProfessors(_ context.Context, code domain.CourseCode, professors []string, at time.Time) (*domain.Course, error) {
	return r.mutate(code, at, func(c *domain.Course) bool {
		c.Professors = append([]string{}, professors...)
		return true
	})
}

// AddProfessor appends name unless already on the roster.
func (r *CourseRepository) AddProfessor(_ context.Context, code domain.CourseCode, name string, at time.Time) (*domain.Course, bool, error) {
	added := false
	c, err := r.mutate(code, at, func(c *domain.Course) bool {
		if c.HasProfessor(name) {
			return false
		}
		c.Professors = append(c.Professors, name)
		added = true
		return true
	})
	return c, added, err
}

// Delete removes the course.
func (r *CourseRepository) Delete(_ context.Context, code domain.CourseCode) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.courses[code]; !ok {
		return apperrors.NotFound("course", code.String())
	}
	delete(r.courses, code)
	for i, c := range r.order {
		if c == code {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return nil
}

// DeleteAll empties the store.
func (r *CourseRepository) DeleteAll(_ context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := len(r.courses)
	r.courses = make(map[domain.CourseCode]*domain.Course)
	r.order = nil
	return n, nil
}

// Ping always succeeds.
func (r *CourseRepository) Ping(context.Context) error {
	return nil
}

// mutate applies fn to the stored course under the write lock. fn reports
// whether it changed the course; UpdatedAt is only bumped when it did.
func (r *CourseRepository) mutate(code domain.CourseCode, at time.Time, fn func(*domain.Course) bool) (*domain.Course, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.courses[code]
	if !ok {
		return nil, apperrors.NotFound("course", code.String())
	}
	if fn(c) {
		c.UpdatedAt = at.UTC()
	}
	return c.Clone(), nil
}
