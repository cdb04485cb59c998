package main

import (
	"context"
	"time"

	"onlyz-dating-server/internal/config"
	"onlyz-dating-server/internal/database"
	"onlyz-dating-server/internal/handlers"
	"onlyz-dating-server/internal/middleware"
	"onlyz-dating-server/internal/redis"
	"onlyz-dating-server/internal/services"
	"onlyz-dating-server/internal/websocket"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		logrus.Info("No .env file found")
	}

	cfg := config.Load()
	log := newLogger(cfg.LogLevel)
	gin.SetMode(cfg.GinMode)

	registerValidators()

	db, err := database.Initialize(cfg.DatabaseURL)
	if err != nil {
		log.WithError(err).Fatal("Failed to connect to database")
	}
	if err := database.SeedInterests(db); err != nil {
		log.WithError(err).Fatal("Failed to seed interests")
	}

	redisClient, err := redis.Initialize(cfg.RedisURL)
	if err != nil {
		log.WithError(err).Fatal("Failed to connect to Redis")
	}

	storage, err := services.NewStorageService(cfg)
	if err != nil {
		log.WithError(err).Fatal("Failed to initialize storage")
	}
	if err := storage.EnsureBucket(context.Background()); err != nil {
		log.WithError(err).Warn("Failed to ensure storage bucket")
	}

	mailer := services.NewSMTPMailer(cfg.MailHost, cfg.MailPort, cfg.MailUsername, cfg.MailPassword, cfg.MailFrom)
	geocoder := services.NewNominatimGeocoder(cfg.GeocoderURL, cfg.GeocoderTimeout)

	hub := websocket.NewHub(log)
	go hub.Run()

	// Services. The hub doubles as the broadcaster for persisted messages.
	visibility := services.NewVisibilityService(db)
	notifier := services.NewNotificationService(db, redisClient, log)
	matchSvc := services.NewMatchService(db, visibility, notifier, mailer, log)
	recommendSvc := services.NewRecommendService(db, visibility)
	profileSvc := services.NewProfileService(db, visibility, geocoder, log)
	messagingSvc := services.NewMessagingService(db, matchSvc, notifier, mailer, hub, log)

	authHandler := handlers.NewAuthHandler(db, redisClient, cfg, mailer, log)
	userHandler := handlers.NewUserHandler(db, cfg, profileSvc, storage, log)
	matchHandler := handlers.NewMatchHandler(matchSvc, recommendSvc)
	messageHandler := handlers.NewMessageHandler(messagingSvc)
	notificationHandler := handlers.NewNotificationHandler(notifier)
	adminHandler := handlers.NewAdminHandler(db)

	router := setupRoutes(cfg, db, log, hub, messagingSvc,
		authHandler, userHandler, matchHandler, messageHandler, notificationHandler, adminHandler)

	log.WithField("port", cfg.Port).Info("Server starting")
	if err := router.Run(":" + cfg.Port); err != nil {
		log.WithError(err).Fatal("Failed to start server")
	}
}

func newLogger(level string) *logrus.Logger {
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})
	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		parsed = logrus.InfoLevel
	}
	log.SetLevel(parsed)
	return log
}

// registerValidators adds the adult rule used on date_of_birth fields: a
// YYYY-MM-DD date at least 18 years in the past.
func registerValidators() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return
	}
	v.RegisterValidation("adult", func(fl validator.FieldLevel) bool {
		dob, err := time.Parse("2006-01-02", fl.Field().String())
		if err != nil {
			return false
		}
		now := time.Now().UTC()
		age := now.Year() - dob.Year()
		if now.Month() < dob.Month() || (now.Month() == dob.Month() && now.Day() < dob.Day()) {
			age--
		}
		return age >= 18
	})
}

func setupRoutes(cfg *config.Config, db *gorm.DB, log *logrus.Logger, hub *websocket.Hub, messagingSvc *services.MessagingService,
	authHandler *handlers.AuthHandler, userHandler *handlers.UserHandler, matchHandler *handlers.MatchHandler,
	messageHandler *handlers.MessageHandler, notificationHandler *handlers.NotificationHandler, adminHandler *handlers.AdminHandler) *gin.Engine {

	router := gin.New()
	router.Use(gin.Recovery())

	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Content-Length", "Accept-Encoding", "Authorization"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	v1 := router.Group("/api/v1")
	{
		auth := v1.Group("/auth")
		{
			auth.POST("/register", authHandler.Register)
			auth.POST("/login", authHandler.Login)
			auth.POST("/logout", middleware.AuthRequired(cfg), authHandler.Logout)
			auth.POST("/forgot-password", authHandler.ForgotPassword)
			auth.POST("/reset-password", authHandler.ResetPassword)
		}

		users := v1.Group("/users")
		users.Use(middleware.AuthRequired(cfg), middleware.TouchLastSeen(db, log))
		{
			users.GET("/me", userHandler.GetMyProfile)
			users.POST("/profile", userHandler.CreateProfile)
			users.PUT("/profile", userHandler.UpdateProfile)
			users.POST("/profile/photo", userHandler.UploadPhoto)
			users.GET("/interests", userHandler.Interests)
			users.GET("/browse", userHandler.Browse)
			users.GET("/search", userHandler.Search)
			users.GET("/:user_id", userHandler.ViewProfile)
			users.POST("/block/:user_id", userHandler.Block)
			users.DELETE("/block/:user_id", userHandler.Unblock)
			users.POST("/report/:user_id", userHandler.Report)
			users.DELETE("/me", userHandler.DeleteAccount)
		}

		matches := v1.Group("/matches")
		matches.Use(middleware.AuthRequired(cfg), middleware.TouchLastSeen(db, log))
		{
			matches.POST("/like/:user_id", matchHandler.ToggleLike)
			matches.GET("", matchHandler.Matches)
			matches.GET("/recommendations", matchHandler.Recommendations)
		}

		messages := v1.Group("/messages")
		messages.Use(middleware.AuthRequired(cfg), middleware.TouchLastSeen(db, log))
		{
			messages.GET("/:user_id", messageHandler.History)
			messages.POST("/:user_id", messageHandler.Send)
		}

		notifications := v1.Group("/notifications")
		notifications.Use(middleware.AuthRequired(cfg))
		{
			notifications.GET("", notificationHandler.List)
			notifications.GET("/unread", notificationHandler.UnreadCount)
		}

		v1.GET("/ws", middleware.AuthRequired(cfg), middleware.AttachUser(db), func(c *gin.Context) {
			websocket.HandleWebSocket(hub, messagingSvc, c)
		})

		admin := v1.Group("/admin")
		admin.Use(middleware.AuthRequired(cfg), middleware.AdminRequired(db))
		{
			admin.GET("/stats", adminHandler.Stats)
			admin.GET("/users", adminHandler.RecentUsers)
			admin.GET("/reports", adminHandler.RecentReports)
			admin.PUT("/reports/:report_id/status", adminHandler.UpdateReportStatus)
		}
	}

	return router
}
