package errors

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime"
	"runtime/debug"

	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"

	"github.com/dlcks7456/diaryCleaning/internal/exporter"
	"github.com/dlcks7456/diaryCleaning/internal/fields"
	"github.com/dlcks7456/diaryCleaning/internal/infrastructure"
	"github.com/dlcks7456/diaryCleaning/internal/ingest"
	"github.com/dlcks7456/diaryCleaning/internal/pipeline"
	"github.com/dlcks7456/diaryCleaning/internal/services"
	"github.com/dlcks7456/diaryCleaning/internal/workbook"
)

// Common error types following RFC 7807
const (
	TypeValidation  = "/errors/validation"
	TypeNotFound    = "/errors/not-found"
	TypeRateLimit   = "/errors/rate-limit"
	TypeInternal    = "/errors/internal"
	TypeTimeout     = "/errors/timeout"
	TypeConflict    = "/errors/conflict"
	TypeBadRequest  = "/errors/bad-request"
	TypeMethod      = "/errors/method-not-allowed"
	TypeUnavailable = "/errors/service-unavailable"
)

// Domain-specific error types
const (
	TypeMalformedField = "/errors/workbook/malformed-field"
	TypeMissingColumn  = "/errors/workbook/missing-column"
	TypeEmptyTable     = "/errors/workbook/empty"
	TypeNoWorkbook     = "/errors/workbook/not-loaded"
	TypeRowNotFound    = "/errors/workbook/row-not-found"
	TypeNotEditable    = "/errors/workbook/not-editable"
	TypeUnknownRule    = "/errors/rule/unknown"
	TypeFileType       = "/errors/file/unsupported"
)

// ErrorHandler provides centralized error handling
type ErrorHandler struct {
	logger       *slog.Logger
	includeStack bool
}

// NewErrorHandler creates a new error handler
func NewErrorHandler(logger *slog.Logger, includeStack bool) *ErrorHandler {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}
	return &ErrorHandler{
		logger:       logger.With(slog.String("component", "error_handler")),
		includeStack: includeStack,
	}
}

// HandleError converts any error to RFC 7807 format and responds
func (h *ErrorHandler) HandleError(w http.ResponseWriter, r *http.Request, err error) {
	if err == nil {
		return
	}

	traceID := infrastructure.GetTraceID(r.Context())
	problem := h.ErrorToProblem(err, r)

	level := slog.LevelWarn
	if problem.Status >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	h.logger.Log(r.Context(), level, "request failed",
		slog.String("error", err.Error()),
		slog.Int("status", problem.Status),
		slog.String("trace_id", traceID),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
	)

	problem.WithExtension("trace_id", traceID)
	if h.includeStack && problem.Status >= http.StatusInternalServerError {
		problem.WithExtension("stack", getStackTrace())
	}

	render.Render(w, r, problem)
}

// ErrorToProblem converts an error to RFC 7807 Problem Details
func (h *ErrorHandler) ErrorToProblem(err error, r *http.Request) *ProblemDetails {
	path := r.URL.Path

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return NewProblemDetails(http.StatusGatewayTimeout, TypeTimeout, "Request Timeout",
			"The request took too long to process and was cancelled", path)
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErrorToProblem(apiErr, path)
	}

	var fieldErrs fields.FieldErrors
	if errors.As(err, &fieldErrs) {
		return NewProblemDetails(http.StatusUnprocessableEntity, TypeMalformedField, "Malformed Fields",
			fmt.Sprintf("%d cells could not be parsed", len(fieldErrs)), path).
			WithExtension("errors", []fields.FieldError(fieldErrs))
	}

	var missing *pipeline.MissingColumnError
	if errors.As(err, &missing) {
		return NewProblemDetails(http.StatusUnprocessableEntity, TypeMissingColumn, "Missing Column",
			err.Error(), path).
			WithExtension("column", missing.Column).
			WithExtension("role", missing.Role)
	}

	var rows *workbook.RowNotFoundError
	if errors.As(err, &rows) {
		return NewProblemDetails(http.StatusNotFound, TypeRowNotFound, "Row Not Found",
			err.Error(), path).WithExtension("unique_ids", rows.IDs)
	}

	var cols *exporter.MissingColumnsError
	if errors.As(err, &cols) {
		return NewProblemDetails(http.StatusBadRequest, TypeMissingColumn, "Unknown Export Columns",
			err.Error(), path).WithExtension("columns", cols.Columns)
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		return NewProblemDetails(http.StatusBadRequest, TypeValidation, "Validation Failed",
			"Request validation failed", path).WithExtension("errors", FromValidator(verrs))
	}

	switch {
	case errors.Is(err, services.ErrNoWorkbook), errors.Is(err, workbook.ErrNotLoaded):
		return NewProblemDetails(http.StatusConflict, TypeNoWorkbook, "No Workbook Loaded",
			"Load a workbook before reading or editing it", path)
	case errors.Is(err, pipeline.ErrEmptyTable):
		return NewProblemDetails(http.StatusUnprocessableEntity, TypeEmptyTable, "Empty Table",
			err.Error(), path)
	case errors.Is(err, workbook.ErrRowNotFound):
		return NewProblemDetails(http.StatusNotFound, TypeRowNotFound, "Row Not Found", err.Error(), path)
	case errors.Is(err, services.ErrPanelNotFound), errors.Is(err, services.ErrFileNotFound):
		return NewProblemDetails(http.StatusNotFound, TypeNotFound, "Resource Not Found", err.Error(), path)
	case errors.Is(err, services.ErrUnknownRule):
		return NewProblemDetails(http.StatusBadRequest, TypeUnknownRule, "Unknown Rule", err.Error(), path)
	case errors.Is(err, workbook.ErrNotEditable):
		return NewProblemDetails(http.StatusBadRequest, TypeNotEditable, "Field Not Editable", err.Error(), path)
	case errors.Is(err, services.ErrInvalidFileType), errors.Is(err, ingest.ErrUnsupportedFile),
		errors.Is(err, ingest.ErrNoHeader):
		return NewProblemDetails(http.StatusBadRequest, TypeFileType, "Unreadable File", err.Error(), path)
	case errors.Is(err, services.ErrInvalidExport), errors.Is(err, services.ErrInvalidInput):
		return NewProblemDetails(http.StatusBadRequest, TypeBadRequest, "Bad Request", err.Error(), path)
	}

	return NewProblemDetails(http.StatusInternalServerError, TypeInternal, "Internal Server Error",
		"An unexpected error occurred while processing your request", path)
}

func apiErrorToProblem(apiErr *APIError, path string) *ProblemDetails {
	problemType := TypeInternal
	switch apiErr.ErrorCode {
	case "VALIDATION_FAILED":
		problemType = TypeValidation
	case "INVALID_REQUEST":
		problemType = TypeBadRequest
	case "NOT_FOUND":
		problemType = TypeNotFound
	case "RATE_LIMIT_EXCEEDED":
		problemType = TypeRateLimit
	case "SERVICE_UNAVAILABLE":
		problemType = TypeUnavailable
	}

	problem := NewProblemDetails(
		apiErr.StatusCode,
		problemType,
		http.StatusText(apiErr.StatusCode),
		apiErr.Message,
		path,
	).WithExtension("error_code", apiErr.ErrorCode)

	if apiErr.Details != nil {
		problem.WithExtension("details", apiErr.Details)
	}
	return problem
}

// FromValidator flattens validator errors into per-field messages.
func FromValidator(verrs validator.ValidationErrors) []ValidationError {
	out := make([]ValidationError, 0, len(verrs))
	for _, fe := range verrs {
		msg := fmt.Sprintf("failed on '%s'", fe.Tag())
		if fe.Param() != "" {
			msg = fmt.Sprintf("failed on '%s=%s'", fe.Tag(), fe.Param())
		}
		out = append(out, ValidationError{Field: fe.Field(), Message: msg})
	}
	return out
}

// HandlePanic recovers from panics and returns RFC 7807 error
func (h *ErrorHandler) HandlePanic(w http.ResponseWriter, r *http.Request, recovered interface{}) {
	traceID := infrastructure.GetTraceID(r.Context())

	h.logger.ErrorContext(r.Context(), "panic recovered",
		slog.Any("panic", recovered),
		slog.String("trace_id", traceID),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.String("stack", string(debug.Stack())),
	)

	problem := apiErrorToProblem(ErrInternalServer, r.URL.Path).WithExtension("trace_id", traceID)
	if h.includeStack {
		problem.WithExtension("panic", fmt.Sprintf("%v", recovered))
		problem.WithExtension("stack", getStackTrace())
	}

	render.Render(w, r, problem)
}

// NotFound returns a standard 404 error naming the unknown route.
func (h *ErrorHandler) NotFound(w http.ResponseWriter, r *http.Request) {
	problem := apiErrorToProblem(NotFoundError(r.URL.Path), r.URL.Path).
		WithExtension("trace_id", infrastructure.GetTraceID(r.Context()))

	render.Render(w, r, problem)
}

// MethodNotAllowed returns a standard 405 error
func (h *ErrorHandler) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	problem := NewProblemDetails(
		http.StatusMethodNotAllowed,
		TypeMethod,
		"Method Not Allowed",
		fmt.Sprintf("Method %s is not allowed for this endpoint", r.Method),
		r.URL.Path,
	).WithExtension("trace_id", infrastructure.GetTraceID(r.Context()))

	render.Render(w, r, problem)
}

func getStackTrace() string {
	buf := make([]byte, 1024*8)
	n := runtime.Stack(buf, false)
	return string(buf[:n])
}

// JSON writes v with the given status.
func (h *ErrorHandler) JSON(w http.ResponseWriter, r *http.Request, status int, v interface{}) {
	render.Status(r, status)
	render.JSON(w, r, v)
}
