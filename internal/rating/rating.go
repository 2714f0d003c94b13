// Package rating computes aggregate review scores. It is the only place in
// the catalog where rating means are calculated.
package rating

import (
	"math"
	"strings"

	"github.com/classify/catalog/internal/domain"
)

// Precision is the number of decimal places every mean is rounded to.
const Precision = 2

// AggregateRating is the mean of each axis over a set of reviews.
type AggregateRating struct {
	Workload    float64 `json:"workload"`
	Difficulty  float64 `json:"difficulty"`
	Usefulness  float64 `json:"usefulness"`
	Overall     float64 `json:"overall"`
	ReviewCount int     `json:"review_count"`
}

// ProfessorRating is the aggregate for one professor of a course.
type ProfessorRating struct {
	Professor   string           `json:"professor"`
	ReviewCount int              `json:"review_count"`
	Aggregate   *AggregateRating `json:"aggregate"`
}

// Aggregate returns the per-axis means of reviews, or nil when reviews is
// empty. A nil result means "no ratings", never zero stars.
func Aggregate(reviews []domain.Review) *AggregateRating {
	if len(reviews) == 0 {
		return nil
	}

	var workload, difficulty, usefulness, overall int
	for _, r := range reviews {
		workload += r.Ratings.Workload
		difficulty += r.Ratings.Difficulty
		usefulness += r.Ratings.Usefulness
		overall += r.Ratings.Overall
	}

	n := float64(len(reviews))
	return &AggregateRating{
		Workload:    round(float64(workload) / n),
		Difficulty:  round(float64(difficulty) / n),
		Usefulness:  round(float64(usefulness) / n),
		Overall:     round(float64(overall) / n),
		ReviewCount: len(reviews),
	}
}

// ReviewsByProfessor returns the reviews whose professor matches professor
// case-insensitively, in their original order.
func ReviewsByProfessor(reviews []domain.Review, professor string) []domain.Review {
	professor = strings.TrimSpace(professor)
	out := make([]domain.Review, 0, len(reviews))
	for _, r := range reviews {
		if strings.EqualFold(strings.TrimSpace(r.Professor), professor) {
			out = append(out, r)
		}
	}
	return out
}

// AggregateByProfessor aggregates only the reviews for professor.
func AggregateByProfessor(reviews []domain.Review, professor string) *AggregateRating {
	return Aggregate(ReviewsByProfessor(reviews, professor))
}

// Breakdown returns one entry per professor, in the given order. Professors
// without reviews get a nil aggregate.
func Breakdown(reviews []domain.Review, professors []string) []ProfessorRating {
	out := make([]ProfessorRating, 0, len(professors))
	for _, p := range professors {
		matched := ReviewsByProfessor(reviews, p)
		out = append(out, ProfessorRating{
			Professor:   p,
			ReviewCount: len(matched),
			Aggregate:   Aggregate(matched),
		})
	}
	return out
}

func round(v float64) float64 {
	scale := math.Pow10(Precision)
	return math.Round(v*scale) / scale
}
