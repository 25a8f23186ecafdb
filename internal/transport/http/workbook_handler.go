package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/dlcks7456/diaryCleaning/internal/changelog"
	apierrors "github.com/dlcks7456/diaryCleaning/internal/errors"
	"github.com/dlcks7456/diaryCleaning/internal/middleware"
	"github.com/dlcks7456/diaryCleaning/internal/services"
	"github.com/dlcks7456/diaryCleaning/internal/workbook"
)

// ModifyRequest is the body of PATCH /workbook/rows.
type ModifyRequest struct {
	ErrorType string          `json:"error_type" validate:"required"`
	Edits     []workbook.Edit `json:"edits" validate:"required,min=1,dive"`
}

// DeleteRequest is the body of POST /workbook/rows/delete.
type DeleteRequest struct {
	ErrorType string `json:"error_type" validate:"required"`
	IDs       []int  `json:"unique_ids" validate:"required,min=1,dive,gt=0"`
}

// EditResponse carries the refreshed summary after an edit. Warning is set
// when the edit was applied but its change log entry was not stored.
type EditResponse struct {
	Summary *services.Summary `json:"summary"`
	Warning string            `json:"warning,omitempty"`
}

// ChangeLogResponse lists the applied edits.
type ChangeLogResponse struct {
	Entries []changelog.Entry `json:"entries"`
	Count   int               `json:"count"`
}

// WorkbookHandler serves the workbook review API.
type WorkbookHandler struct {
	service      WorkbookServiceInterface
	validator    *middleware.Validator
	errorHandler *apierrors.ErrorHandler
	logger       *slog.Logger
}

// NewWorkbookHandler creates the handler.
func NewWorkbookHandler(service WorkbookServiceInterface, validator *middleware.Validator, errorHandler *apierrors.ErrorHandler, logger *slog.Logger) *WorkbookHandler {
	return &WorkbookHandler{
		service:      service,
		validator:    validator,
		errorHandler: errorHandler,
		logger:       logger.With(slog.String("component", "workbook_handler")),
	}
}

// Routes returns the workbook routes
func (h *WorkbookHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(render.SetContentType(render.ContentTypeJSON))

	r.Post("/load", h.Load)
	r.Get("/summary", h.Summary)
	r.Get("/errors/{rule}", h.ErrorPanels)
	r.Get("/panels/{panel}/rows", h.PanelRows)
	r.Patch("/rows", h.Modify)
	r.Post("/rows/delete", h.Delete)
	r.Post("/export", h.Export)
	r.Get("/changelog", h.ChangeLog)
	r.Get("/outputs", h.Outputs)
	return r
}

// Load handles POST /workbook/load
func (h *WorkbookHandler) Load(w http.ResponseWriter, r *http.Request) {
	var req services.LoadRequest
	if err := h.validator.Decode(w, r, &req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	summary, err := h.service.Load(r.Context(), req)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, summary)
}

// Summary handles GET /workbook/summary
func (h *WorkbookHandler) Summary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.service.Summary(r.Context())
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, summary)
}

// ErrorPanels handles GET /workbook/errors/{rule}
func (h *WorkbookHandler) ErrorPanels(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.ErrorPanels(r.Context(), chi.URLParam(r, "rule"))
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, result)
}

// PanelRows handles GET /workbook/panels/{panel}/rows
func (h *WorkbookHandler) PanelRows(w http.ResponseWriter, r *http.Request) {
	rows, err := h.service.PanelRows(r.Context(), chi.URLParam(r, "panel"), r.URL.Query().Get("product"))
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, map[string]interface{}{"rows": rows, "count": len(rows)})
}

// Modify handles PATCH /workbook/rows
func (h *WorkbookHandler) Modify(w http.ResponseWriter, r *http.Request) {
	var req ModifyRequest
	if err := h.validator.Decode(w, r, &req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	summary, err := h.service.Modify(r.Context(), req.ErrorType, req.Edits)
	h.respondEdit(w, r, "modify", summary, err)
}

// Delete handles POST /workbook/rows/delete
func (h *WorkbookHandler) Delete(w http.ResponseWriter, r *http.Request) {
	var req DeleteRequest
	if err := h.validator.Decode(w, r, &req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	summary, err := h.service.Delete(r.Context(), req.ErrorType, req.IDs)
	h.respondEdit(w, r, "delete", summary, err)
}

// respondEdit reports an applied edit even when only its logging failed.
func (h *WorkbookHandler) respondEdit(w http.ResponseWriter, r *http.Request, op string, summary *services.Summary, err error) {
	if err != nil && summary == nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	resp := EditResponse{Summary: summary}
	if err != nil {
		h.logger.WarnContext(r.Context(), "edit applied with warning",
			slog.String("op", op),
			slog.String("error", err.Error()))
		resp.Warning = err.Error()
	}
	render.JSON(w, r, resp)
}

// Export handles POST /workbook/export
func (h *WorkbookHandler) Export(w http.ResponseWriter, r *http.Request) {
	var req services.ExportRequest
	if err := h.validator.Decode(w, r, &req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	result, err := h.service.Export(r.Context(), req)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, result)
}

// ChangeLog handles GET /workbook/changelog
func (h *WorkbookHandler) ChangeLog(w http.ResponseWriter, r *http.Request) {
	entries := h.service.ChangeLog(r.Context())
	if entries == nil {
		entries = []changelog.Entry{}
	}
	render.JSON(w, r, ChangeLogResponse{Entries: entries, Count: len(entries)})
}

// Outputs handles GET /workbook/outputs
func (h *WorkbookHandler) Outputs(w http.ResponseWriter, r *http.Request) {
	out, err := h.service.Outputs(r.Context())
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, out)
}
