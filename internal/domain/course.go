package domain

import (
	"fmt"
	"strings"
	"time"

	apperrors "github.com/classify/catalog/pkg/errors"
)

// Level is the academic level a course is offered at.
type Level string

const (
	LevelUndergraduate Level = "Undergraduate"
	LevelGraduate      Level = "Graduate"
)

// Credit bounds.
const (
	MinCredits = 1
	MaxCredits = 6
)

// ValidLevels returns the accepted course levels.
func ValidLevels() []Level {
	return []Level{LevelUndergraduate, LevelGraduate}
}

// IsValid reports whether l is one of ValidLevels.
func (l Level) IsValid() bool {
	for _, v := range ValidLevels() {
		if v == l {
			return true
		}
	}
	return false
}

// Usefulness is seed-time descriptive data. RequiredForHint is advisory and
// may disagree with the live prerequisite graph.
type Usefulness struct {
	RequiredForHint []CourseCode `json:"required_for_hint"`
	GenEd           *string      `json:"gen_ed"`
	Elective        bool         `json:"elective"`
}

// Course is a catalog entry keyed by its normalized code. Prerequisites are
// stored by value and may reference courses that do not exist.
type Course struct {
	Code          CourseCode   `json:"course_code"`
	Level         Level        `json:"course_level"`
	Name          string       `json:"course_name"`
	Department    string       `json:"department"`
	Credits       int          `json:"credits"`
	Description   string       `json:"description"`
	Prerequisites []CourseCode `json:"prerequisites"`
	Professors    []string     `json:"professors"`
	Usefulness    Usefulness   `json:"usefulness"`
	Reviews       []Review     `json:"reviews"`
	CreatedAt     time.Time    `json:"created_at"`
	UpdatedAt     time.Time    `json:"updated_at"`
}

// Clone returns a deep copy of c.
func (c *Course) Clone() *Course {
	if c == nil {
		return nil
	}
	out := *c
	out.Prerequisites = append([]CourseCode{}, c.Prerequisites...)
	out.Professors = append([]string{}, c.Professors...)
	out.Usefulness.RequiredForHint = append([]CourseCode{}, c.Usefulness.RequiredForHint...)
	if c.Usefulness.GenEd != nil {
		g := *c.Usefulness.GenEd
		out.Usefulness.GenEd = &g
	}
	out.Reviews = append([]Review{}, c.Reviews...)
	return &out
}

// DisplayProfessors is the roster when it is non-empty, otherwise the
// distinct professors of the course's reviews in first-appearance order,
// deduplicated case-insensitively.
func (c *Course) DisplayProfessors() []string {
	if len(c.Professors) > 0 {
		return append([]string{}, c.Professors...)
	}
	seen := make(map[string]struct{}, len(c.Reviews))
	out := make([]string, 0, len(c.Reviews))
	for _, r := range c.Reviews {
		key := strings.ToLower(r.Professor)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, r.Professor)
	}
	return out
}

// HasProfessor reports whether name is on the roster, ignoring case and
// surrounding whitespace.
func (c *Course) HasProfessor(name string) bool {
	name = strings.TrimSpace(name)
	for _, p := range c.Professors {
		if strings.EqualFold(p, name) {
			return true
		}
	}
	return false
}

// UsefulnessDraft is the caller-supplied usefulness record.
type UsefulnessDraft struct {
	RequiredFor []string
	GenEd       *string
	Elective    bool
}

// CourseDraft is the input to course creation. Codes are normalized when the
// course is built; reviews are optional and validated like appended reviews.
type CourseDraft struct {
	Code          string
	Level         Level
	Name          string
	Department    string
	Credits       int
	Description   string
	Prerequisites []string
	Professors    []string
	Usefulness    UsefulnessDraft
	Reviews       []ReviewDraft
}

// Validate returns the first invalid field as a validation error.
func (d CourseDraft) Validate() error {
	if Normalize(d.Code).IsZero() {
		return apperrors.Validation("course_code", "is required")
	}
	if !d.Level.IsValid() {
		return apperrors.Validation("course_level",
			fmt.Sprintf("must be one of: %s, %s", LevelUndergraduate, LevelGraduate))
	}
	if strings.TrimSpace(d.Name) == "" {
		return apperrors.Validation("course_name", "is required")
	}
	if strings.TrimSpace(d.Department) == "" {
		return apperrors.Validation("department", "is required")
	}
	if d.Credits < MinCredits || d.Credits > MaxCredits {
		return apperrors.Validation("credits",
			fmt.Sprintf("must be an integer between %d and %d", MinCredits, MaxCredits))
	}
	if strings.TrimSpace(d.Description) == "" {
		return apperrors.Validation("description", "is required")
	}
	for i, p := range d.Prerequisites {
		if Normalize(p).IsZero() {
			return apperrors.Validation(fmt.Sprintf("prerequisites[%d]", i), "must not be empty")
		}
	}
	for i, r := range d.Usefulness.RequiredFor {
		if Normalize(r).IsZero() {
			return apperrors.Validation(fmt.Sprintf("usefulness.required_for[%d]", i), "must not be empty")
		}
	}
	if _, err := NormalizeProfessors(d.Professors); err != nil {
		return err
	}
	for i, r := range d.Reviews {
		if err := r.Validate(fmt.Sprintf("reviews[%d]", i)); err != nil {
			return err
		}
	}
	return nil
}

// NewCourse builds a course from a validated draft. newID supplies review ids.
func NewCourse(d CourseDraft, newID func() string, now time.Time) *Course {
	now = now.UTC()
	professors, _ := NormalizeProfessors(d.Professors)

	var genEd *string
	if d.Usefulness.GenEd != nil {
		if g := strings.TrimSpace(*d.Usefulness.GenEd); g != "" {
			genEd = &g
		}
	}

	reviews := make([]Review, 0, len(d.Reviews))
	for _, rd := range d.Reviews {
		reviews = append(reviews, NewReview(newID(), rd, now))
	}

	return &Course{
		Code:          Normalize(d.Code),
		Level:         d.Level,
		Name:          strings.TrimSpace(d.Name),
		Department:    strings.TrimSpace(d.Department),
		Credits:       d.Credits,
		Description:   strings.TrimSpace(d.Description),
		Prerequisites: NormalizeAll(d.Prerequisites),
		Professors:    professors,
		Usefulness: Usefulness{
			RequiredForHint: NormalizeAll(d.Usefulness.RequiredFor),
			GenEd:           genEd,
			Elective:        d.Usefulness.Elective,
		},
		Reviews:   reviews,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// NormalizeProfessors trims every name and rejects blank entries. Order and
// duplicates are preserved.
func NormalizeProfessors(names []string) ([]string, error) {
	out := make([]string, 0, len(names))
	for i, n := range names {
		n = strings.TrimSpace(n)
		if n == "" {
			return nil, apperrors.Validation(fmt.Sprintf("professors[%d]", i), "must not be empty")
		}
		out = append(out, n)
	}
	return out, nil
}
