package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	"github.com/skip2/go-qrcode"

	"formpulse/internal/model"
	"formpulse/internal/service"
	"formpulse/internal/transport/rest/middleware"
)

const (
	defaultQRSize = 256
	minQRSize     = 128
	maxQRSize     = 1024
)

// SurveyHandler handles survey endpoints
type SurveyHandler struct {
	surveySvc     *service.SurveyService
	publicBaseURL string
}

// NewSurveyHandler creates a new survey handler
func NewSurveyHandler(surveySvc *service.SurveyService, publicBaseURL string) *SurveyHandler {
	return &SurveyHandler{
		surveySvc:     surveySvc,
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
	}
}

// Create handles POST /v1/surveys
func (h *SurveyHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req model.SavePayload
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	survey, err := h.surveySvc.Create(r.Context(), middleware.GetUserID(r.Context()), req)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, survey)
}

// Update handles PUT /v1/surveys/{surveyId}
func (h *SurveyHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req model.SavePayload
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	survey, err := h.surveySvc.Update(r.Context(), middleware.GetUserID(r.Context()), mux.Vars(r)["surveyId"], req)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, survey)
}

// Get handles GET /v1/surveys/{surveyId}
func (h *SurveyHandler) Get(w http.ResponseWriter, r *http.Request) {
	survey, err := h.surveySvc.Get(r.Context(), middleware.GetUserID(r.Context()), mux.Vars(r)["surveyId"])
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, survey)
}

// List handles GET /v1/surveys
func (h *SurveyHandler) List(w http.ResponseWriter, r *http.Request) {
	surveys, err := h.surveySvc.List(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, surveys)
}

// Delete handles DELETE /v1/surveys/{surveyId}
func (h *SurveyHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.surveySvc.Delete(r.Context(), middleware.GetUserID(r.Context()), mux.Vars(r)["surveyId"]); err != nil {
		writeError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Public handles GET /v1/surveys/public/{surveyId}
func (h *SurveyHandler) Public(w http.ResponseWriter, r *http.Request) {
	authenticated := middleware.GetUserID(r.Context()) != ""
	survey, err := h.surveySvc.GetPublic(r.Context(), mux.Vars(r)["surveyId"], authenticated)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, survey)
}

// QRCode handles GET /v1/surveys/{surveyId}/qrcode
func (h *SurveyHandler) QRCode(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["surveyId"]
	if _, err := h.surveySvc.Get(r.Context(), middleware.GetUserID(r.Context()), id); err != nil {
		writeError(w, r, err)
		return
	}

	size := defaultQRSize
	if v, err := strconv.Atoi(r.URL.Query().Get("size")); err == nil {
		size = min(max(v, minQRSize), maxQRSize)
	}

	png, err := qrcode.Encode(h.ShareLink(id), qrcode.Medium, size)
	if err != nil {
		writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "private, max-age=300")
	w.WriteHeader(http.StatusOK)
	w.Write(png)
}

// ShareLink is the public URL respondents open.
func (h *SurveyHandler) ShareLink(id string) string {
	return h.publicBaseURL + "/survey/" + id
}
