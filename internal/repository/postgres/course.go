package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/classify/catalog/internal/domain"
	"github.com/classify/catalog/pkg/database"
	apperrors "github.com/classify/catalog/pkg/errors"
)

// SlowQueryThreshold is the latency above which statements are logged.
const SlowQueryThreshold = 200 * time.Millisecond

const courseColumns = `code, level, name, department, credits, description,
		prerequisites, professors, required_for, gen_ed, elective, reviews,
		created_at, updated_at`

// CourseRepository stores each course as one row with its reviews embedded
// in a JSONB array, so appending a review is a single-statement update.
type CourseRepository struct {
	pool   database.DBTX
	tracer database.QueryTracer
}

// NewCourseRepository creates a PostgreSQL-backed course repository.
func NewCourseRepository(pool database.DBTX, logger *slog.Logger) *CourseRepository {
	return &CourseRepository{
		pool:   pool,
		tracer: database.QueryTracer{SlowThreshold: SlowQueryThreshold, Logger: logger},
	}
}

// reviewRecord is the JSONB shape of an embedded review.
type reviewRecord struct {
	ID        string    `json:"id"`
	Professor string    `json:"professor"`
	Semester  string    `json:"semester"`
	Ratings   ratings   `json:"ratings"`
	Comment   string    `json:"comment"`
	Timestamp time.Time `json:"timestamp"`
}

type ratings struct {
	Workload   int `json:"workload"`
	Difficulty int `json:"difficulty"`
	Usefulness int `json:"usefulness"`
	Overall    int `json:"overall"`
}

func toRecord(r domain.Review) reviewRecord {
	return reviewRecord{
		ID:        r.ID,
		Professor: r.Professor,
		Semester:  r.Semester,
		Ratings:   ratings(r.Ratings),
		Comment:   r.Comment,
		Timestamp: r.CreatedAt,
	}
}

func (rec reviewRecord) toDomain() domain.Review {
	return domain.Review{
		ID:        rec.ID,
		Professor: rec.Professor,
		Semester:  rec.Semester,
		Ratings:   domain.Ratings(rec.Ratings),
		Comment:   rec.Comment,
		CreatedAt: rec.Timestamp.UTC(),
	}
}

func encodeReviews(reviews []domain.Review) ([]byte, error) {
	recs := make([]reviewRecord, 0, len(reviews))
	for _, r := range reviews {
		recs = append(recs, toRecord(r))
	}
	return json.Marshal(recs)
}

func toCodes(s []string) []domain.CourseCode {
	out := make([]domain.CourseCode, len(s))
	for i, c := range s {
		out[i] = domain.CourseCode(c)
	}
	return out
}

func scanCourse(row pgx.Row) (*domain.Course, error) {
	var (
		c           domain.Course
		code, level string
		prereqs     []string
		professors  []string
		requiredFor []string
		reviewsJSON []byte
	)
	if err := row.Scan(
		&code,
		&level,
		&c.Name,
		&c.Department,
		&c.Credits,
		&c.Description,
		&prereqs,
		&professors,
		&requiredFor,
		&c.Usefulness.GenEd,
		&c.Usefulness.Elective,
		&reviewsJSON,
		&c.CreatedAt,
		&c.UpdatedAt,
	); err != nil {
		return nil, err
	}

	var recs []reviewRecord
	if len(reviewsJSON) > 0 {
		if err := json.Unmarshal(reviewsJSON, &recs); err != nil {
			return nil, fmt.Errorf("decode reviews of %s: %w", code, err)
		}
	}

	c.Code = domain.CourseCode(code)
	c.Level = domain.Level(level)
	c.Prerequisites = toCodes(prereqs)
	c.Professors = append([]string{}, professors...)
	c.Usefulness.RequiredForHint = toCodes(requiredFor)
	c.Reviews = make([]domain.Review, 0, len(recs))
	for _, rec := range recs {
		c.Reviews = append(c.Reviews, rec.toDomain())
	}
	c.CreatedAt = c.CreatedAt.UTC()
	c.UpdatedAt = c.UpdatedAt.UTC()
	return &c, nil
}

// mapErr classifies a driver error for code.
func mapErr(op string, code domain.CourseCode, err error) error {
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return apperrors.NotFound("course", code.String())
	case database.IsUniqueViolation(err):
		return apperrors.AlreadyExists("course", "course_code", code.String())
	default:
		return unavailable(op, err)
	}
}

// unavailable reports err as a storage failure unless the caller's context
// ended, which is returned wrapped but unclassified.
func unavailable(op string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return apperrors.StorageUnavailable(op, err)
}

// Create inserts a new course row.
func (r *CourseRepository) Create(ctx context.Context, course *domain.Course) (err error) {
	query := `
		INSERT INTO courses (` + courseColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`

	ctx, end := r.tracer.Start(ctx, "CreateCourse", query)
	defer func() { end(err) }()

	reviews, err := encodeReviews(course.Reviews)
	if err != nil {
		return fmt.Errorf("encode reviews: %w", err)
	}

	_, err = r.pool.Exec(ctx, query,
		course.Code.String(),
		string(course.Level),
		course.Name,
		course.Department,
		course.Credits,
		course.Description,
		domain.Strings(course.Prerequisites),
		course.Professors,
		domain.Strings(course.Usefulness.RequiredForHint),
		course.Usefulness.GenEd,
		course.Usefulness.Elective,
		reviews,
		course.CreatedAt,
		course.UpdatedAt,
	)
	if err != nil {
		return mapErr("create course", course.Code, err)
	}
	return nil
}

// GetByCode retrieves a course by code.
func (r *CourseRepository) GetByCode(ctx context.Context, code domain.CourseCode) (c *domain.Course, err error) {
	query := `SELECT ` + courseColumns + ` FROM courses WHERE code = $1`

	ctx, end := r.tracer.Start(ctx, "GetCourse", query)
	defer func() { end(err) }()

	c, err = scanCourse(r.pool.QueryRow(ctx, query, code.String()))
	if err != nil {
		return nil, mapErr("get course", code, err)
	}
	return c, nil
}

// List returns all courses in insertion order.
func (r *CourseRepository) List(ctx context.Context) (courses []*domain.Course, err error) {
	query := `SELECT ` + courseColumns + ` FROM courses ORDER BY seq`

	ctx, end := r.tracer.Start(ctx, "ListCourses", query)
	defer func() { end(err) }()

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, unavailable("list courses", err)
	}
	defer rows.Close()

	courses = []*domain.Course{}
	for rows.Next() {
		c, err := scanCourse(rows)
		if err != nil {
			return nil, unavailable("scan course row", err)
		}
		courses = append(courses, c)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("iterate course rows", err)
	}
	return courses, nil
}

// AppendReview concatenates review onto the JSONB array in one statement.
func (r *CourseRepository) AppendReview(ctx context.Context, code domain.CourseCode, review domain.Review, at time.Time) (c *domain.Course, err error) {
	query := `
		UPDATE courses
		SET reviews = reviews || $2::jsonb, updated_at = $3
		WHERE code = $1
		RETURNING ` + courseColumns

	ctx, end := r.tracer.Start(ctx, "AppendReview", query)
	defer func() { end(err) }()

	payload, err := encodeReviews([]domain.Review{review})
	if err != nil {
		return nil, fmt.Errorf("encode review: %w", err)
	}

	c, err = scanCourse(r.pool.QueryRow(ctx, query, code.String(), payload, at.UTC()))
	if err != nil {
		return nil, mapErr("append review", code, err)
	}
	return c, nil
}

// ReplaceProfessors overwrites the roster column.
func (r *CourseRepository) ReplaceProfessors(ctx context.Context, code domain.CourseCode, professors []string, at time.Time) (c *domain.Course, err error) {
	query := `
		UPDATE courses
		SET professors = $2, updated_at = $3
		WHERE code = $1
		RETURNING ` + courseColumns

	ctx, end := r.tracer.Start(ctx, "ReplaceProfessors", query)
	defer func() { end(err) }()

	if professors == nil {
		professors = []string{}
	}
	c, err = scanCourse(r.pool.QueryRow(ctx, query, code.String(), professors, at.UTC()))
	if err != nil {
		return nil, mapErr("replace professors", code, err)
	}
	return c, nil
}

// AddProfessor appends name unless a case-insensitive match is already on
// the roster. When nothing is updated the current row is read back to
// distinguish "already present" from "no such course".
func (r *CourseRepository) AddProfessor(ctx context.Context, code domain.CourseCode, name string, at time.Time) (c *domain.Course, added bool, err error) {
	query := `
		UPDATE courses
		SET professors = array_append(professors, $2), updated_at = $3
		WHERE code = $1
		  AND NOT EXISTS (SELECT 1 FROM unnest(professors) AS p WHERE lower(p) = lower($2))
		RETURNING ` + courseColumns

	spanCtx, end := r.tracer.Start(ctx, "AddProfessor", query)
	c, err = scanCourse(r.pool.QueryRow(spanCtx, query, code.String(), name, at.UTC()))
	end(err)
	if err == nil {
		return c, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, false, mapErr("add professor", code, err)
	}

	c, err = r.GetByCode(ctx, code)
	if err != nil {
		return nil, false, err
	}
	return c, false, nil
}

// Delete removes the course row.
func (r *CourseRepository) Delete(ctx context.Context, code domain.CourseCode) (err error) {
	query := `DELETE FROM courses WHERE code = $1`

	ctx, end := r.tracer.Start(ctx, "DeleteCourse", query)
	defer func() { end(err) }()

	tag, err := r.pool.Exec(ctx, query, code.String())
	if err != nil {
		return unavailable("delete course", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NotFound("course", code.String())
	}
	return nil
}

// DeleteAll removes every course row.
func (r *CourseRepository) DeleteAll(ctx context.Context) (n int, err error) {
	query := `DELETE FROM courses`

	ctx, end := r.tracer.Start(ctx, "DeleteAllCourses", query)
	defer func() { end(err) }()

	tag, err := r.pool.Exec(ctx, query)
	if err != nil {
		return 0, unavailable("delete all courses", err)
	}
	return int(tag.RowsAffected()), nil
}

// Ping checks database connectivity.
func (r *CourseRepository) Ping(ctx context.Context) error {
	if err := r.pool.Ping(ctx); err != nil {
		return unavailable("ping", err)
	}
	return nil
}
