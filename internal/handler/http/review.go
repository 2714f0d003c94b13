package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/classify/catalog/internal/domain"
	"github.com/classify/catalog/internal/service"
	"github.com/classify/catalog/pkg/httputil"
)

// ReviewHandler handles HTTP requests for a course's reviews.
type ReviewHandler struct {
	service *service.CatalogService
	logger  *slog.Logger
}

// NewReviewHandler creates a new review HTTP handler.
func NewReviewHandler(svc *service.CatalogService, logger *slog.Logger) *ReviewHandler {
	return &ReviewHandler{
		service: svc,
		logger:  logger,
	}
}

// --- Request DTOs ---

// RatingsRequest holds the four rating axes, each an integer in [1,5].
type RatingsRequest struct {
	Workload   int `json:"workload" validate:"required,gte=1,lte=5"`
	Difficulty int `json:"difficulty" validate:"required,gte=1,lte=5"`
	Usefulness int `json:"usefulness" validate:"required,gte=1,lte=5"`
	Overall    int `json:"overall" validate:"required,gte=1,lte=5"`
}

// CreateReviewRequest is the JSON request body for appending a review.
type CreateReviewRequest struct {
	Professor string         `json:"professor" validate:"notblank"`
	Semester  string         `json:"semester" validate:"notblank"`
	Ratings   RatingsRequest `json:"ratings"`
	Comment   string         `json:"comment" validate:"notblank,max=1000"`
	Timestamp *time.Time     `json:"timestamp"`
}

func (req CreateReviewRequest) draft() domain.ReviewDraft {
	return domain.ReviewDraft{
		Professor: req.Professor,
		Semester:  req.Semester,
		Ratings: domain.Ratings{
			Workload:   req.Ratings.Workload,
			Difficulty: req.Ratings.Difficulty,
			Usefulness: req.Ratings.Usefulness,
			Overall:    req.Ratings.Overall,
		},
		Comment:   req.Comment,
		CreatedAt: req.Timestamp,
	}
}

// --- Handlers ---

// ListReviews handles GET /api/v1/courses/{code}/reviews
// An optional professor query parameter filters case-insensitively.
func (h *ReviewHandler) ListReviews(w http.ResponseWriter, r *http.Request) {
	reviews, err := h.service.ReviewsByProfessor(r.Context(),
		chi.URLParam(r, "code"), r.URL.Query().Get("professor"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	if reviews == nil {
		reviews = []domain.Review{}
	}
	httputil.WriteData(w, http.StatusOK, reviews)
}

// CreateReview handles POST /api/v1/courses/{code}/reviews
// Responds with the updated course.
func (h *ReviewHandler) CreateReview(w http.ResponseWriter, r *http.Request) {
	var req CreateReviewRequest
	if !decode(w, r, &req, h.logger) {
		return
	}

	course, err := h.service.AppendReview(r.Context(), chi.URLParam(r, "code"), req.draft())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusCreated, newCourseResponse(course))
}
