package main

import (
	"context"
	"log"

	"github.com/inkwellhq/inkwell-backend/internal/router"
	"github.com/inkwellhq/inkwell-backend/internal/upload"
	"github.com/inkwellhq/inkwell-backend/internal/viewcount"
	"github.com/inkwellhq/inkwell-backend/pkg/config"
	"github.com/inkwellhq/inkwell-backend/pkg/firebase"
	"github.com/labstack/echo/v4"

	"github.com/inkwellhq/inkwell-backend/validators"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize database connection
	db, err := config.InitDB(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.CloseDB()

	// Initialize Firebase
	ctx := context.Background()
	firebaseApp, err := firebase.InitFirebase(ctx, cfg.FirebaseCredentialsPath)
	if err != nil {
		log.Fatalf("Failed to initialize Firebase: %v", err)
	}

	// View-count debounce is optional; without Redis every view counts
	var views *viewcount.Counter
	if cfg.RedisURL != "" {
		views, err = viewcount.NewCounter(cfg.RedisURL, cfg.ViewWindow)
		if err != nil {
			log.Fatalf("Failed to initialize view counter: %v", err)
		}
		defer views.Close()
	}

	// Upload provider is optional; upload endpoints 503 without it
	var uploads *upload.Provider
	if cfg.UploadEndpoint != "" {
		uploads, err = upload.New(ctx, upload.Config{
			Endpoint:      cfg.UploadEndpoint,
			AccessKey:     cfg.UploadAccessKey,
			SecretKey:     cfg.UploadSecretKey,
			Bucket:        cfg.UploadBucket,
			UseSSL:        cfg.UploadUseSSL,
			PublicBaseURL: cfg.UploadPublicBaseURL,
			SignedExpiry:  cfg.UploadSignedExpiry,
		})
		if err != nil {
			log.Fatalf("Failed to initialize upload provider: %v", err)
		}
	}

	// Create Echo instance
	e := echo.New()

	// Setup global middleware
	router.SetupMiddleware(e)

	// Setup routes and dependencies
	sweeper := router.SetupRoutes(e, router.Dependencies{
		DB:            db.Database,
		AuthClient:    firebaseApp.AuthClient,
		Views:         views,
		Uploads:       uploads,
		WebhookSecret: cfg.WebhookSecret,
	})

	// Validator
	e.Validator = validators.NewValidator()

	// Run the integrity sweep out of band
	sweepCtx, cancelSweep := context.WithCancel(ctx)
	defer cancelSweep()
	go sweeper.Run(sweepCtx, cfg.SweepInterval)

	// Start server
	e.Logger.Fatal(e.Start(":" + cfg.Port))
}
