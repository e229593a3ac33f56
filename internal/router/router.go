package router

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/anonto42/nano-midea/campus/internal/events"
	"github.com/anonto42/nano-midea/campus/internal/handlers"
	"github.com/anonto42/nano-midea/campus/internal/middleware"
	"github.com/anonto42/nano-midea/campus/internal/models"
	"github.com/anonto42/nano-midea/campus/internal/repositories"
	"github.com/anonto42/nano-midea/campus/pkg/config"
	"github.com/anonto42/nano-midea/campus/pkg/firebase"
	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/mongo"
	"gorm.io/gorm"
)

// Deps are the collaborators SetupRoutes wires into the handlers. Verifier is
// nil when Firebase is not configured. Publisher may be nil.
type Deps struct {
	Config    *config.Config
	Postgres  *gorm.DB
	Mongo     *mongo.Client
	Verifier  firebase.Verifier
	Publisher events.Publisher
}

// Migrate creates or updates the PostgreSQL tables.
func Migrate(pgdb *gorm.DB) error {
	err := pgdb.AutoMigrate(
		&models.User{},
		&models.Comment{},
		&models.CommentLike{},
		&models.Reaction{},
	)
	if err != nil {
		return fmt.Errorf("auto migrate models: %w", err)
	}
	slog.Info("PostgreSQL auto-migrations completed")
	return nil
}

// SetupRoutes configures all application routes and injects dependencies.
func SetupRoutes(e *echo.Echo, d Deps) {
	e.GET("/health", handlers.HealthCheck)
	e.GET("/", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"message": "campus api"})
	})

	userRepo := repositories.NewPostgresUserRepository(d.Postgres)
	postRepo := repositories.NewMongoPostRepository(d.Mongo.Database(d.Config.MongoDatabase))
	commentRepo := repositories.NewPostgresCommentRepository(d.Postgres)
	commentLikeRepo := repositories.NewPostgresCommentLikeRepository(d.Postgres)
	reactionRepo := repositories.NewPostgresReactionRepository(d.Postgres)

	authGroup := e.Group("/api/v1/auth")
	authHandler := handlers.NewAuthHandler(userRepo, d.Verifier, d.Config.JWTSecret, d.Config.TokenTTL)
	authHandler.RegisterAuthRoutes(authGroup)
	slog.Info("auth routes configured")

	api := e.Group("/api/v1")
	if d.Config.AuthMode == "firebase" && d.Verifier != nil {
		api.Use(middleware.FirebaseAuthMiddleware(d.Verifier, userRepo))
		slog.Info("firebase authentication applied to /api/v1")
	} else {
		api.Use(middleware.JWTAuthMiddleware(d.Config.JWTSecret))
		slog.Info("JWT authentication applied to /api/v1")
	}

	handlers.NewUserHandler(userRepo).RegisterUserRoutes(api)
	handlers.NewPostHandler(postRepo, userRepo, reactionRepo).RegisterPostRoutes(api)
	handlers.NewCommentHandler(commentRepo, postRepo, userRepo, commentLikeRepo, d.Publisher).RegisterCommentRoutes(api)
	handlers.NewReactionHandler(reactionRepo, postRepo, d.Publisher).RegisterReactionRoutes(api)

	slog.Info("all routes configured")
}
