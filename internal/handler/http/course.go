package http

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/classify/catalog/internal/domain"
	"github.com/classify/catalog/internal/rating"
	"github.com/classify/catalog/internal/service"
	"github.com/classify/catalog/pkg/httputil"
	"github.com/classify/catalog/pkg/pagination"
	"github.com/classify/catalog/pkg/validator"
)

// CourseHandler handles HTTP requests for course endpoints.
type CourseHandler struct {
	service *service.CatalogService
	logger  *slog.Logger
}

// NewCourseHandler creates a new course HTTP handler.
func NewCourseHandler(svc *service.CatalogService, logger *slog.Logger) *CourseHandler {
	return &CourseHandler{
		service: svc,
		logger:  logger,
	}
}

// --- Request DTOs ---

// UsefulnessRequest is the usefulness block of a course.
type UsefulnessRequest struct {
	RequiredFor []string `json:"required_for" validate:"dive,notblank"`
	GenEd       *string  `json:"gen_ed"`
	Elective    bool     `json:"elective"`
}

// CreateCourseRequest is the JSON request body for creating a course.
type CreateCourseRequest struct {
	Code          string                `json:"course_code" validate:"notblank"`
	Level         string                `json:"course_level" validate:"required,oneof=Undergraduate Graduate"`
	Name          string                `json:"course_name" validate:"notblank"`
	Department    string                `json:"department" validate:"notblank"`
	Credits       int                   `json:"credits" validate:"required,gte=1,lte=6"`
	Description   string                `json:"description" validate:"notblank"`
	Prerequisites []string              `json:"prerequisites" validate:"dive,notblank"`
	Professors    []string              `json:"professors" validate:"dive,notblank"`
	Usefulness    UsefulnessRequest     `json:"usefulness"`
	Reviews       []CreateReviewRequest `json:"reviews" validate:"dive"`
}

func (req CreateCourseRequest) draft() domain.CourseDraft {
	reviews := make([]domain.ReviewDraft, 0, len(req.Reviews))
	for _, r := range req.Reviews {
		reviews = append(reviews, r.draft())
	}
	return domain.CourseDraft{
		Code:          req.Code,
		Level:         domain.Level(req.Level),
		Name:          req.Name,
		Department:    req.Department,
		Credits:       req.Credits,
		Description:   req.Description,
		Prerequisites: req.Prerequisites,
		Professors:    req.Professors,
		Usefulness: domain.UsefulnessDraft{
			RequiredFor: req.Usefulness.RequiredFor,
			GenEd:       req.Usefulness.GenEd,
			Elective:    req.Usefulness.Elective,
		},
		Reviews: reviews,
	}
}

// --- Response DTOs ---

// CourseResponse is a course plus the values a client displays with it.
type CourseResponse struct {
	*domain.Course
	DisplayProfessors []string                `json:"display_professors"`
	Aggregate         *rating.AggregateRating `json:"aggregate"`
}

func newCourseResponse(c *domain.Course) CourseResponse {
	return CourseResponse{
		Course:            c,
		DisplayProfessors: c.DisplayProfessors(),
		Aggregate:         rating.Aggregate(c.Reviews),
	}
}

// --- Handlers ---

// ListCourses handles GET /api/v1/courses
// Optional q and department filters; paginated with page and per_page.
func (h *CourseHandler) ListCourses(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	res, err := h.service.Search(r.Context(), service.SearchQuery{
		Query:      q.Get("q"),
		Department: q.Get("department"),
		Page:       pagination.FromRequest(r),
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	out := make([]CourseResponse, 0, len(res.Data))
	for _, c := range res.Data {
		out = append(out, newCourseResponse(c))
	}
	httputil.WriteJSON(w, http.StatusOK, pagination.Result[CourseResponse]{
		Data:       out,
		TotalCount: res.TotalCount,
		Page:       res.Page,
		PerPage:    res.PerPage,
		TotalPages: res.TotalPages,
		HasNext:    res.HasNext,
		HasPrev:    res.HasPrev,
	})
}

// GetCourse handles GET /api/v1/courses/{code}
func (h *CourseHandler) GetCourse(w http.ResponseWriter, r *http.Request) {
	course, err := h.service.Get(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, newCourseResponse(course))
}

// CreateCourse handles POST /api/v1/courses
func (h *CourseHandler) CreateCourse(w http.ResponseWriter, r *http.Request) {
	var req CreateCourseRequest
	if !decode(w, r, &req, h.logger) {
		return
	}

	course, err := h.service.Create(r.Context(), req.draft())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusCreated, newCourseResponse(course))
}

// DeleteCourse handles DELETE /api/v1/courses/{code}
func (h *CourseHandler) DeleteCourse(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Remove(r.Context(), chi.URLParam(r, "code")); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetSummary handles GET /api/v1/courses/{code}/summary
func (h *CourseHandler) GetSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.service.Summary(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, summary)
}

// GetPrerequisites handles GET /api/v1/courses/{code}/prerequisites
func (h *CourseHandler) GetPrerequisites(w http.ResponseWriter, r *http.Request) {
	report, err := h.service.Prerequisites(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, report)
}

// GetRequiredFor handles GET /api/v1/courses/{code}/required-for
func (h *CourseHandler) GetRequiredFor(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	required, err := h.service.RequiredFor(r.Context(), code)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, map[string]any{
		"course_code":  domain.Normalize(code),
		"required_for": required,
	})
}

// ListDepartments handles GET /api/v1/departments
func (h *CourseHandler) ListDepartments(w http.ResponseWriter, r *http.Request) {
	depts, err := h.service.Departments(r.Context())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, depts)
}

// decode reads and validates the request body into dst, writing the error
// response itself when it fails.
func decode(w http.ResponseWriter, r *http.Request, dst any, logger *slog.Logger) bool {
	err := validator.DecodeAndValidate(r, dst)
	if err == nil {
		return true
	}
	var valErr *validator.ValidationError
	if errors.As(err, &valErr) {
		httputil.WriteError(w, r, valErr, logger)
		return false
	}
	httputil.WriteBadRequest(w, r, "invalid request body: "+strings.TrimPrefix(err.Error(), "decode request body: "))
	return false
}
