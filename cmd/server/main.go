package main

import (
	"log"
	"time"

	"hcbs-billing-backend/internal/config"
	"hcbs-billing-backend/internal/models"
	"hcbs-billing-backend/internal/routes"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	// Load .env
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on system env")
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer logger.Sync()

	cfg := config.Load()
	db := config.InitDB()

	db.AutoMigrate(
		&models.Claim{},
		&models.Payment{},
		&models.ClaimPayment{},
		&models.PaymentAdjustment{},
		&models.RemittanceInfo{},
		&models.RemittanceDetail{},
	)

	r := gin.Default()
	// CORS config
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:3000"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE"},
		AllowHeaders:     []string{"Origin", "Content-Type", "X-User-ID"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	routes.RegisterRoutes(r, db, cfg, logger)

	r.Run(cfg.HTTPAddr)
}
