package main

import (
	"log"
	"log/slog"
	"os"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"aidigest/db"
	"aidigest/internal/config"
	"aidigest/internal/handler"
	"aidigest/internal/repository"
)

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	godotenv.Load()

	cfg := config.Load()

	if err := db.Connect(); err != nil {
		log.Fatalf("error connecting to DB: %v", err)
	}
	defer db.Close()

	if err := db.EnsureSchema(); err != nil {
		log.Fatalf("error ensuring schema: %v", err)
	}

	if err := db.ConnectRedis(); err != nil {
		log.Fatalf("error connecting to redis: %v", err)
	}
	defer db.CloseRedis()

	profileRepo := repository.NewProfileRepository(db.Redis)
	subscriptionRepo := repository.NewSubscriptionRepository(db.DB)
	digestRepo := repository.NewDigestRepository(db.DB)

	profileHandler := handler.NewProfileHandler(profileRepo, subscriptionRepo, cfg.TrialDays)
	billingHandler := handler.NewBillingHandler(subscriptionRepo, cfg.BillingSecret)
	digestHandler := handler.NewDigestHandler(digestRepo)

	r := gin.Default()

	r.Use(cors.New(cors.Config{
		AllowOrigins: []string{cfg.CORSOrigin},
		AllowMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "X-User-ID"},
	}))

	r.GET("/api/profile", profileHandler.GetProfile)
	r.POST("/api/profile", profileHandler.SaveProfile)
	r.GET("/api/channels", profileHandler.GetChannels)
	r.POST("/api/channels", profileHandler.SaveChannels)
	r.GET("/api/subscription", profileHandler.GetSubscription)
	r.POST("/api/billing/verify", billingHandler.VerifyPayment)
	r.GET("/api/digests", digestHandler.GetDigests)
	r.GET("/api/health", digestHandler.GetHealth)

	if err := r.Run(":" + cfg.ServerPort); err != nil {
		log.Fatalf("error starting server: %v", err)
	}
}
