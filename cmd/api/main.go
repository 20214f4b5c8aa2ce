package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"contact-form-backend/config"
	_ "contact-form-backend/docs" // Important for Swagger
	v1 "contact-form-backend/internal/delivery/http/v1"
	"contact-form-backend/internal/usecase"
	"contact-form-backend/pkg/captcha"
	"contact-form-backend/pkg/email"
	"contact-form-backend/pkg/errorpage"
	"contact-form-backend/pkg/logger"
	"contact-form-backend/pkg/secrets"

	"github.com/go-playground/validator/v10"
)

// @title           Contact Form Backend API
// @version         1.0
// @description     Relays contact form submissions by email after FriendlyCaptcha verification.
// @host            localhost:8080
// @BasePath        /v1
func main() {
	// 1. Load Config
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 2. Setup Logger
	logger.Init()
	logger.Log.Info("Starting contact form backend", "port", cfg.Port)

	// 3. Setup Secret Store
	secretRepo, err := secrets.Open(context.Background(), secrets.Options{
		Region:      cfg.AWSRegion,
		EndpointURL: cfg.AWSEndpointURL,
	})
	if err != nil {
		logger.Log.Error("Failed to open secret store", "error", err.Error())
		os.Exit(1)
	}

	// 4. Setup Services
	verifier := captcha.NewFriendlyCaptchaVerifier(secretRepo, cfg.FriendlyCaptchaVerifyURL, cfg.FriendlyCaptchaSecretName)
	mailer := email.NewMailer(secretRepo, cfg.SMTPURL, cfg.SMTPCredentialsSecretName)
	pages := errorpage.NewPresenter(cfg.BaseHost)

	// 5. Setup UseCases
	validate := validator.New()
	contactUC, err := usecase.NewContactUsecase(verifier, mailer, validate, cfg.ContactFrom, cfg.ContactTo)
	if err != nil {
		logger.Log.Error("Failed to set up contact pipeline", "error", err.Error())
		os.Exit(1)
	}

	// 6. Setup Router
	router := v1.NewRouter(v1.RouterDeps{
		ContactUC: contactUC,
		Pages:     pages,
		Config:    cfg,
	})

	// 7. Start Server
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.Error("Listen failed", "error", err.Error())
		}
	}()

	// Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Log.Error("Server forced to shutdown", "error", err.Error())
	}

	logger.Log.Info("Server exited")
}
