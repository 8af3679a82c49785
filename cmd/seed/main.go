package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"formpulse/internal/app"
	"formpulse/internal/cache"
	"formpulse/internal/config"
	"formpulse/internal/draft"
	"formpulse/internal/logger"
	"formpulse/internal/model"
	"formpulse/internal/repository"
	"formpulse/internal/service"
)

func main() {
	email := flag.String("email", "demo@formpulse.local", "creator account that owns the demo survey")
	password := flag.String("password", "demo-password", "password for a newly created creator account")
	flag.Parse()

	cfg := config.Load()
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	infra, err := app.Connect(ctx, cfg)
	if err != nil {
		logger.Fatalf("seed: %v", err)
	}
	defer infra.Close(context.Background())

	userRepo := repository.NewUserRepo(infra.DB)
	responseRepo := repository.NewResponseRepo(infra.DB)
	authSvc := service.NewAuthService(userRepo, cache.NewTokenBlocklist(infra.Redis), cfg.JWTSecret, cfg.TokenTTL)
	surveySvc := service.NewSurveyService(repository.NewSurveyRepo(infra.DB), responseRepo, cache.NewResponseCounter(infra.Redis))

	owner, err := userRepo.GetByEmail(ctx, *email)
	if err != nil {
		logger.Fatalf("look up %s: %v", *email, err)
	}
	if owner == nil {
		auth, err := authSvc.Register(ctx, *email, *password)
		if err != nil {
			logger.Fatalf("register %s: %v", *email, err)
		}
		owner = auth.User
	}

	survey, err := surveySvc.Create(ctx, owner.ID, demoSurvey())
	if err != nil {
		logger.Fatalf("create survey: %v", err)
	}

	fmt.Printf("Created survey %q (%s) for %s\n", survey.Title, survey.ID, owner.Email)
	fmt.Printf("Share link: %s/survey/%s\n", cfg.PublicBaseURL, survey.ID)
}

// demoSurvey builds the payload through the draft store, the same path the
// builder uses.
func demoSurvey() model.SavePayload {
	store := draft.New()
	store.SetTitle("Smartphone Launch Feedback")
	store.SetDescription("Tell us how the new device fits into your day.")
	if theme, ok := model.Preset(model.PresetOcean); ok {
		store.SetTheme(theme)
	}

	add := func(kind model.QuestionKind, prompt string, required bool, options ...string) {
		i := store.AddQuestion(kind)
		patch := draft.QuestionPatch{Prompt: &prompt, Required: &required}
		if len(options) > 0 {
			patch.Options = options
		}
		_ = store.UpdateQuestion(i, patch)
	}

	add(model.KindRating, "How satisfied are you with this smartphone overall?", true)
	add(model.KindSingleChoice, "Which model did you purchase?", true, "Standard", "Pro / Plus", "Ultra / Max")
	add(model.KindMultiChoice, "Which features impress you most?", false, "Display", "Battery", "Camera", "Speed", "Design")
	add(model.KindLinearScale, "How would you rate everyday performance?", false)
	add(model.KindParagraph, "What is one thing you would improve?", false)

	return store.ToSavePayload()
}
