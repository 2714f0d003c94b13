package repository

import (
	"context"
	"time"

	"github.com/classify/catalog/internal/domain"
)

// CourseRepository is the persistence contract for course documents. Every
// mutation is scoped to a single course and is atomic with respect to it.
//
// Errors follow pkg/errors: NotFound for an unknown code, AlreadyExists on a
// duplicate code, StorageUnavailable when the backing store fails.
type CourseRepository interface {
	// Create inserts a new course.
	Create(ctx context.Context, course *domain.Course) error

	// GetByCode retrieves a course by its normalized code.
	GetByCode(ctx context.Context, code domain.CourseCode) (*domain.Course, error)

	// List returns every course in insertion order.
	List(ctx context.Context) ([]*domain.Course, error)

	// AppendReview atomically pushes review onto the course's review list
	// and returns the updated course. Concurrent appends are never lost.
	AppendReview(ctx context.Context, code domain.CourseCode, review domain.Review, at time.Time) (*domain.Course, error)

	// ReplaceProfessors overwrites the professor roster.
	ReplaceProfessors(ctx context.Context, code domain.CourseCode, professors []string, at time.Time) (*domain.Course, error)

	// AddProfessor appends name to the roster unless an equal name (ignoring
	// case) is already present. added reports whether the roster changed.
	AddProfessor(ctx context.Context, code domain.CourseCode, name string, at time.Time) (course *domain.Course, added bool, err error)

	// Delete removes a course and its reviews.
	Delete(ctx context.Context, code domain.CourseCode) error

	// DeleteAll removes every course and returns how many were removed.
	DeleteAll(ctx context.Context) (int, error)

	// Ping checks that the store is reachable.
	Ping(ctx context.Context) error
}
