package handler

import (
	"mime"
	"net/http"

	"github.com/gorilla/mux"

	"formpulse/internal/model"
	"formpulse/internal/service"
	"formpulse/internal/transport/rest/middleware"
)

// ResponseHandler handles response submission and analytics endpoints
type ResponseHandler struct {
	responseSvc *service.ResponseService
}

// NewResponseHandler creates a new response handler
func NewResponseHandler(responseSvc *service.ResponseService) *ResponseHandler {
	return &ResponseHandler{responseSvc: responseSvc}
}

// Submit handles POST /v1/responses
func (h *ResponseHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req model.SubmitRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	rec, err := h.responseSvc.Submit(r.Context(), req, service.Respondent{
		IP:     middleware.ClientIP(r),
		UserID: middleware.GetUserID(r.Context()),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, rec)
}

// List handles GET /v1/responses/{surveyId}
func (h *ResponseHandler) List(w http.ResponseWriter, r *http.Request) {
	records, err := h.responseSvc.List(r.Context(), middleware.GetUserID(r.Context()), mux.Vars(r)["surveyId"])
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, records)
}

// Export handles GET /v1/responses/{surveyId}/export
func (h *ResponseHandler) Export(w http.ResponseWriter, r *http.Request) {
	filename, csv, err := h.responseSvc.Export(r.Context(), middleware.GetUserID(r.Context()), mux.Vars(r)["surveyId"])
	if err != nil {
		writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": filename}))
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(csv))
}

// Summary handles GET /v1/responses/{surveyId}/summary
func (h *ResponseHandler) Summary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.responseSvc.Summary(r.Context(), middleware.GetUserID(r.Context()), mux.Vars(r)["surveyId"])
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, summary)
}
