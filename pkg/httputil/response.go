package httputil

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	apperrors "github.com/classify/catalog/pkg/errors"
	"github.com/classify/catalog/pkg/logger"
	"github.com/classify/catalog/pkg/validator"
)

// Response is the JSON envelope for every API response.
type Response struct {
	Data  any            `json:"data,omitempty"`
	Error *ErrorResponse `json:"error,omitempty"`
}

// ErrorResponse is the error half of the envelope. Field names the first
// offending input for validation errors; Fields lists all of them.
type ErrorResponse struct {
	Code      string            `json:"code"`
	Message   string            `json:"message"`
	Field     string            `json:"field,omitempty"`
	Fields    map[string]string `json:"fields,omitempty"`
	RequestID string            `json:"request_id,omitempty"`
}

// WriteJSON writes v with the given status code.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// Headers are already sent; nothing meaningful can be done if encoding fails.
	_ = json.NewEncoder(w).Encode(v)
}

// WriteData writes v wrapped in the data envelope.
func WriteData(w http.ResponseWriter, status int, v any) {
	WriteJSON(w, status, Response{Data: v})
}

// WriteError maps err onto the error envelope. AppErrors keep their code and
// status, request validation failures become VALIDATION_ERROR, and anything
// else is logged and reported as INTERNAL_ERROR. Storage failures are logged
// at warn since they are expected to be transient.
func WriteError(w http.ResponseWriter, r *http.Request, err error, fallback *slog.Logger) {
	l := logger.FromContext(r.Context())
	if l == slog.Default() && fallback != nil {
		l = fallback
	}
	requestID := logger.CorrelationIDFromContext(r.Context())

	var valErr *validator.ValidationError
	if errors.As(err, &valErr) {
		first := valErr.First()
		WriteJSON(w, http.StatusBadRequest, Response{
			Error: &ErrorResponse{
				Code:      apperrors.CodeValidation,
				Message:   first.Field + " " + first.Message,
				Field:     first.Field,
				Fields:    valErr.Fields(),
				RequestID: requestID,
			},
		})
		return
	}

	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) {
		appErr = classify(err)
	}

	switch appErr.Code {
	case apperrors.CodeInternal:
		l.ErrorContext(r.Context(), "internal error",
			slog.String("error", err.Error()),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
		)
	case apperrors.CodeStorageUnavailable:
		l.WarnContext(r.Context(), "storage unavailable",
			slog.String("error", err.Error()),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
		)
	}

	resp := &ErrorResponse{
		Code:      appErr.Code,
		Message:   appErr.Message,
		Field:     appErr.Field,
		RequestID: requestID,
	}
	if appErr.Field != "" && appErr.Code == apperrors.CodeValidation {
		resp.Fields = map[string]string{appErr.Field: appErr.Message}
	}
	WriteJSON(w, appErr.Status, Response{Error: resp})
}

// WriteBadRequest reports a malformed request that never reached validation,
// such as an unparseable body.
func WriteBadRequest(w http.ResponseWriter, r *http.Request, message string) {
	WriteJSON(w, http.StatusBadRequest, Response{
		Error: &ErrorResponse{
			Code:      "INVALID_INPUT",
			Message:   message,
			RequestID: logger.CorrelationIDFromContext(r.Context()),
		},
	})
}

func classify(err error) *apperrors.AppError {
	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		return &apperrors.AppError{Code: apperrors.CodeNotFound, Message: "resource not found", Status: http.StatusNotFound}
	case errors.Is(err, apperrors.ErrAlreadyExists):
		return &apperrors.AppError{Code: apperrors.CodeDuplicateKey, Message: "resource already exists", Status: http.StatusConflict}
	case errors.Is(err, apperrors.ErrInvalidInput):
		return &apperrors.AppError{Code: apperrors.CodeValidation, Message: err.Error(), Status: http.StatusBadRequest}
	case errors.Is(err, apperrors.ErrServiceUnavail):
		return &apperrors.AppError{Code: apperrors.CodeStorageUnavailable, Message: "storage unavailable", Status: http.StatusServiceUnavailable}
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return &apperrors.AppError{Code: apperrors.CodeTimeout, Message: "request canceled or timed out", Status: http.StatusGatewayTimeout}
	default:
		return &apperrors.AppError{Code: apperrors.CodeInternal, Message: "an internal error occurred", Status: http.StatusInternalServerError}
	}
}
