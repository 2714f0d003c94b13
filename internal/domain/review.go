package domain

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	apperrors "github.com/classify/catalog/pkg/errors"
)

// Rating bounds and comment limits.
const (
	MinRating        = 1
	MaxRating        = 5
	MaxCommentLength = 1000
)

// Ratings holds the four independent axes of a review, each in [1,5].
type Ratings struct {
	Workload   int `json:"workload"`
	Difficulty int `json:"difficulty"`
	Usefulness int `json:"usefulness"`
	Overall    int `json:"overall"`
}

// Validate rejects any axis outside [MinRating, MaxRating]. Field names are
// reported as "<prefix>.<axis>".
func (r Ratings) Validate(prefix string) error {
	axes := []struct {
		name  string
		value int
	}{
		{"workload", r.Workload},
		{"difficulty", r.Difficulty},
		{"usefulness", r.Usefulness},
		{"overall", r.Overall},
	}
	for _, a := range axes {
		if a.value < MinRating || a.value > MaxRating {
			return apperrors.Validation(prefix+"."+a.name,
				fmt.Sprintf("must be an integer between %d and %d", MinRating, MaxRating))
		}
	}
	return nil
}

// Review is an immutable rating of a course taught by one professor.
type Review struct {
	ID        string    `json:"id"`
	Professor string    `json:"professor"`
	Semester  string    `json:"semester"`
	Ratings   Ratings   `json:"ratings"`
	Comment   string    `json:"comment"`
	CreatedAt time.Time `json:"created_at"`
}

// ReviewDraft is the caller-supplied part of a review. CreatedAt defaults to
// the time the review is appended.
type ReviewDraft struct {
	Professor string
	Semester  string
	Ratings   Ratings
	Comment   string
	CreatedAt *time.Time
}

// Validate checks the draft after trimming professor and semester. prefix is
// prepended to reported field names ("reviews[2].comment"); pass "" for a
// standalone review.
func (d ReviewDraft) Validate(prefix string) error {
	field := func(name string) string {
		if prefix == "" {
			return name
		}
		return prefix + "." + name
	}

	if strings.TrimSpace(d.Professor) == "" {
		return apperrors.Validation(field("professor"), "is required")
	}
	if strings.TrimSpace(d.Semester) == "" {
		return apperrors.Validation(field("semester"), "is required")
	}
	if err := d.Ratings.Validate(field("ratings")); err != nil {
		return err
	}
	if strings.TrimSpace(d.Comment) == "" {
		return apperrors.Validation(field("comment"), "is required")
	}
	if utf8.RuneCountInString(d.Comment) > MaxCommentLength {
		return apperrors.Validation(field("comment"),
			fmt.Sprintf("must be at most %d characters", MaxCommentLength))
	}
	return nil
}

// NewReview builds a review from a validated draft.
func NewReview(id string, d ReviewDraft, now time.Time) Review {
	created := now
	if d.CreatedAt != nil && !d.CreatedAt.IsZero() {
		created = *d.CreatedAt
	}
	return Review{
		ID:        id,
		Professor: strings.TrimSpace(d.Professor),
		Semester:  strings.TrimSpace(d.Semester),
		Ratings:   d.Ratings,
		Comment:   d.Comment,
		CreatedAt: created.UTC(),
	}
}
