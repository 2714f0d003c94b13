package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/classify/catalog/internal/service"
	"github.com/classify/catalog/pkg/httputil"
)

// ProfessorHandler handles HTTP requests for a course's professor roster.
type ProfessorHandler struct {
	service *service.CatalogService
	logger  *slog.Logger
}

// NewProfessorHandler creates a new professor HTTP handler.
func NewProfessorHandler(svc *service.CatalogService, logger *slog.Logger) *ProfessorHandler {
	return &ProfessorHandler{
		service: svc,
		logger:  logger,
	}
}

// SetProfessorsRequest replaces the whole roster. Names left out are removed.
type SetProfessorsRequest struct {
	Professors []string `json:"professors" validate:"required,dive,notblank"`
}

// AddProfessorRequest adds one name to the roster.
type AddProfessorRequest struct {
	Professor string `json:"professor" validate:"notblank"`
}

// SetProfessors handles PATCH /api/v1/courses/{code}/professors
func (h *ProfessorHandler) SetProfessors(w http.ResponseWriter, r *http.Request) {
	var req SetProfessorsRequest
	if !decode(w, r, &req, h.logger) {
		return
	}

	course, err := h.service.SetProfessors(r.Context(), chi.URLParam(r, "code"), req.Professors)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, newCourseResponse(course))
}

// AddProfessor handles POST /api/v1/courses/{code}/professors
// Responds 201 when the name was added and 200 when it was already listed.
func (h *ProfessorHandler) AddProfessor(w http.ResponseWriter, r *http.Request) {
	var req AddProfessorRequest
	if !decode(w, r, &req, h.logger) {
		return
	}

	course, added, err := h.service.AddProfessor(r.Context(), chi.URLParam(r, "code"), req.Professor)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	status := http.StatusOK
	if added {
		status = http.StatusCreated
	}
	httputil.WriteData(w, status, newCourseResponse(course))
}
