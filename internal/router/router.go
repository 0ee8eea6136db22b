package router

import (
	"log"

	"firebase.google.com/go/v4/auth"
	"github.com/inkwellhq/inkwell-backend/internal/feed"
	"github.com/inkwellhq/inkwell-backend/internal/handlers"
	"github.com/inkwellhq/inkwell-backend/internal/identity"
	"github.com/inkwellhq/inkwell-backend/internal/integrity"
	"github.com/inkwellhq/inkwell-backend/internal/middleware"
	"github.com/inkwellhq/inkwell-backend/internal/repositories"
	"github.com/inkwellhq/inkwell-backend/internal/upload"
	"github.com/inkwellhq/inkwell-backend/internal/viewcount"
	"github.com/labstack/echo/v4"
	eMiddleware "github.com/labstack/echo/v4/middleware"
	"go.mongodb.org/mongo-driver/mongo"
)

// Dependencies are the constructed collaborators the routes are wired with
type Dependencies struct {
	DB            *mongo.Database
	AuthClient    *auth.Client
	Views         *viewcount.Counter
	Uploads       *upload.Provider
	WebhookSecret string
}

// SetupMiddleware configures global Echo middleware
func SetupMiddleware(e *echo.Echo) {
	e.Use(eMiddleware.Recover())
	e.Use(eMiddleware.CORS())
	log.Println("Global middleware configured.")
}

// SetupRoutes configures all application routes and injects dependencies.
// It returns the integrity sweeper so the caller can run it out of band.
func SetupRoutes(e *echo.Echo, deps Dependencies) *integrity.Sweeper {
	// --- Repositories ---
	userRepo := repositories.NewMongoUserRepository(deps.DB)
	postRepo := repositories.NewMongoPostRepository(deps.DB)
	commentRepo := repositories.NewMongoCommentRepository(deps.DB)

	// --- Core engine ---
	normalizer := identity.NewNormalizer(userRepo)
	registrar := identity.NewRegistrar(userRepo)
	planner := feed.NewPlanner(userRepo, feed.DefaultLimit)
	assembler := feed.NewAssembler(postRepo, userRepo, normalizer)
	sweeper := integrity.NewSweeper(postRepo, userRepo)

	// Health check - always accessible
	e.GET("/health", handlers.HealthCheck)

	requireAuth := middleware.FirebaseAuth(deps.AuthClient)
	optionalAuth := middleware.OptionalFirebaseAuth(deps.AuthClient)

	api := e.Group("/api")

	// --- Auth routes (require a verified token) ---
	authHandler := handlers.NewAuthHandler(userRepo, registrar)
	authHandler.RegisterAuthRoutes(api.Group("/auth", requireAuth))
	log.Println("Auth routes configured.")

	// --- Post routes ---
	postHandler := handlers.NewPostHandler(postRepo, userRepo, commentRepo, registrar, planner, assembler, deps.Views)
	postHandler.RegisterProtectedRoutes(api.Group("/posts", requireAuth))
	postHandler.RegisterPublicRoutes(api.Group("/posts", optionalAuth))
	log.Println("Post routes configured.")

	// --- Upload routes ---
	uploadHandler := handlers.NewUploadHandler(deps.Uploads)
	uploadHandler.RegisterUploadRoutes(api.Group("/posts", requireAuth))
	log.Println("Upload routes configured.")

	// --- Comment routes ---
	commentHandler := handlers.NewCommentHandler(commentRepo, postRepo, userRepo, registrar, normalizer)
	commentHandler.RegisterProtectedRoutes(api.Group("/comments", requireAuth))
	commentHandler.RegisterPublicRoutes(api.Group("/comments"))
	log.Println("Comment routes configured.")

	// --- User routes ---
	userHandler := handlers.NewUserHandler(userRepo, postRepo, registrar, normalizer)
	userHandler.RegisterProtectedRoutes(api.Group("/users", requireAuth))
	userHandler.RegisterPublicRoutes(api.Group("/users"))
	log.Println("User routes configured.")

	// --- Admin routes ---
	adminHandler := handlers.NewAdminHandler(userRepo, registrar, normalizer, sweeper)
	adminHandler.RegisterAdminRoutes(api.Group("/admin", requireAuth))
	log.Println("Admin routes configured.")

	// --- Identity provider webhook (secret-verified, no bearer token) ---
	webhookHandler := handlers.NewWebhookHandler(userRepo, postRepo, commentRepo, registrar, deps.WebhookSecret)
	webhookHandler.RegisterWebhookRoutes(e.Group("/webhooks"))
	log.Println("Webhook routes configured.")

	log.Println("All routes configured.")
	return sweeper
}
