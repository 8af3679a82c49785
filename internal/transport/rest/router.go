package rest

import (
	"net/http"

	"github.com/go-chi/cors"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"formpulse/internal/service"
	"formpulse/internal/transport/rest/handler"
	"formpulse/internal/transport/rest/middleware"
	"formpulse/internal/transport/ws"
)

// Container holds all dependencies for the router
type Container struct {
	AuthService     *service.AuthService
	SurveyService   *service.SurveyService
	ResponseService *service.ResponseService
	WSHub           *ws.Hub

	PublicBaseURL     string
	CORSOrigins       []string
	ResponseRateLimit float64
	ResponseRateBurst int
}

// NewRouter creates the API router with all endpoints
func NewRouter(c *Container) http.Handler {
	r := mux.NewRouter()

	// Initialize handlers
	authHandler := handler.NewAuthHandler(c.AuthService)
	surveyHandler := handler.NewSurveyHandler(c.SurveyService, c.PublicBaseURL)
	responseHandler := handler.NewResponseHandler(c.ResponseService)
	wsHandler := ws.NewHandler(c.WSHub, c.AuthService, c.SurveyService)

	// Initialize middleware
	authMW := middleware.NewAuthMiddleware(c.AuthService)
	r.Use(middleware.RequestLogger)

	// Health check and metrics
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	// API v1 routes
	v1 := r.PathPrefix("/v1").Subrouter()

	// Public routes
	v1.HandleFunc("/auth/register", authHandler.Register).Methods(http.MethodPost)
	v1.HandleFunc("/auth/login", authHandler.Login).Methods(http.MethodPost)

	// WebSocket routes (token in query param)
	v1.HandleFunc("/ws/surveys/{surveyId}", wsHandler.SurveyWS).Methods(http.MethodGet)

	// Routes where a creator token is optional
	optional := v1.NewRoute().Subrouter()
	optional.Use(authMW.OptionalUser)
	optional.HandleFunc("/auth/check", authHandler.Check).Methods(http.MethodGet)
	optional.HandleFunc("/surveys/public/{surveyId}", surveyHandler.Public).Methods(http.MethodGet)

	submit := http.Handler(http.HandlerFunc(responseHandler.Submit))
	if c.ResponseRateLimit > 0 {
		submit = middleware.RateLimit(rate.Limit(c.ResponseRateLimit), c.ResponseRateBurst)(submit)
	}
	optional.Handle("/responses", submit).Methods(http.MethodPost)

	// Creator routes (require auth)
	creator := v1.NewRoute().Subrouter()
	creator.Use(authMW.RequireUser)

	creator.HandleFunc("/auth/logout", authHandler.Logout).Methods(http.MethodPost)
	creator.HandleFunc("/surveys", surveyHandler.List).Methods(http.MethodGet)
	creator.HandleFunc("/surveys", surveyHandler.Create).Methods(http.MethodPost)
	creator.HandleFunc("/surveys/{surveyId}", surveyHandler.Get).Methods(http.MethodGet)
	creator.HandleFunc("/surveys/{surveyId}", surveyHandler.Update).Methods(http.MethodPut)
	creator.HandleFunc("/surveys/{surveyId}", surveyHandler.Delete).Methods(http.MethodDelete)
	creator.HandleFunc("/surveys/{surveyId}/qrcode", surveyHandler.QRCode).Methods(http.MethodGet)
	creator.HandleFunc("/responses/{surveyId}", responseHandler.List).Methods(http.MethodGet)
	creator.HandleFunc("/responses/{surveyId}/export", responseHandler.Export).Methods(http.MethodGet)
	creator.HandleFunc("/responses/{surveyId}/summary", responseHandler.Summary).Methods(http.MethodGet)

	origins := c.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: false,
		MaxAge:           300,
	})(r)
}
