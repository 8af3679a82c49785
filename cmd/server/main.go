package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"formpulse/internal/app"
	"formpulse/internal/cache"
	"formpulse/internal/config"
	"formpulse/internal/jobs"
	"formpulse/internal/logger"
	"formpulse/internal/metrics"
	"formpulse/internal/repository"
	"formpulse/internal/service"
	"formpulse/internal/transport/rest"
	"formpulse/internal/transport/ws"
)

func main() {
	cfg := config.Load()
	logger.SetLevel(cfg.LogLevel)
	metrics.Register()
	ctx := context.Background()

	infra, err := app.Connect(ctx, cfg)
	if err != nil {
		logger.Fatalf("startup: %v", err)
	}
	defer infra.Close(context.Background())

	if err := repository.EnsureIndexes(ctx, infra.DB); err != nil {
		logger.Warnf("ensure indexes: %v", err)
	}

	// Initialize WebSocket hub
	wsHub := ws.NewHub()
	defer wsHub.Stop()
	logger.Info("WebSocket hub started")

	// Initialize repositories
	surveyRepo := repository.NewSurveyRepo(infra.DB)
	responseRepo := repository.NewResponseRepo(infra.DB)
	userRepo := repository.NewUserRepo(infra.DB)

	// Initialize caches
	counter := cache.NewResponseCounter(infra.Redis)
	blocklist := cache.NewTokenBlocklist(infra.Redis)
	summaries := cache.NewSummaryCache(infra.Redis)

	// Initialize services
	authSvc := service.NewAuthService(userRepo, blocklist, cfg.JWTSecret, cfg.TokenTTL)
	surveySvc := service.NewSurveyService(surveyRepo, responseRepo, counter)
	responseSvc := service.NewResponseService(surveySvc, responseRepo, counter)
	responseSvc.SetSummaryCache(summaries)

	// Expiry jobs
	scheduler := jobs.NewScheduler(infra.Asynq)
	defer scheduler.Close()
	surveySvc.SetScheduler(scheduler)

	worker := jobs.NewServer(infra.Asynq, 5)
	if err := worker.Start(jobs.NewServeMux(surveySvc)); err != nil {
		logger.Fatalf("start job worker: %v", err)
	}
	defer worker.Shutdown()

	// Inject broadcaster (wsHub implements service.Broadcaster)
	surveySvc.SetBroadcaster(wsHub)
	responseSvc.SetBroadcaster(wsHub)

	// Create router with container
	container := &rest.Container{
		AuthService:       authSvc,
		SurveyService:     surveySvc,
		ResponseService:   responseSvc,
		WSHub:             wsHub,
		PublicBaseURL:     cfg.PublicBaseURL,
		CORSOrigins:       cfg.CORSOrigins,
		ResponseRateLimit: cfg.ResponseRateLimit,
		ResponseRateBurst: cfg.ResponseRateBurst,
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           rest.NewRouter(container),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Infof("Server starting on :%s", cfg.Port)
		logger.Info("Endpoints:")
		logger.Info("  POST /v1/auth/{register,login,logout}  GET /v1/auth/check")
		logger.Info("  GET/POST /v1/surveys  GET/PUT/DELETE /v1/surveys/{id}")
		logger.Info("  GET  /v1/surveys/public/{id}  GET /v1/surveys/{id}/qrcode")
		logger.Info("  POST /v1/responses  GET /v1/responses/{id}[/export|/summary]")
		logger.Info("  WS   /v1/ws/surveys/{id}")

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("ListenAndServe: %v", err)
		}
	}()

	// Wait for interrupt
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("Server forced to shutdown: %v", err)
	}

	logger.Info("Server exited")
}
