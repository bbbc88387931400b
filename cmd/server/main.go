package main

import (
	"log"
	"os"
	"time"

	"invoice-reconciliation-backend/internal/config"
	"invoice-reconciliation-backend/internal/embedding"
	"invoice-reconciliation-backend/internal/models"
	"invoice-reconciliation-backend/internal/pkg/logger"
	"invoice-reconciliation-backend/internal/repository"
	"invoice-reconciliation-backend/internal/routes"
	"invoice-reconciliation-backend/internal/scheduler"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	// Load .env
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on system env")
	}

	zlog, err := logger.New(os.Getenv("APP_ENV"))
	if err != nil {
		log.Fatalf("logger init: %v", err)
	}
	defer zlog.Sync()

	db := config.InitDB()

	db.AutoMigrate(
		&models.Movement{},
		&models.Document{},
		&models.MatchDecision{},
		&models.AutomationJob{},
		&models.AutomationLogEntry{},
		&models.RunLease{},
		&models.TenantMatchingConfig{},
	)

	provider, err := embedding.NewOpenAIProvider(zlog)
	if err != nil {
		zlog.Fatal("embedding provider init failed", "error", err.Error())
	}

	r := gin.Default()
	// CORS config
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:3000"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE"},
		AllowHeaders:     []string{"Origin", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	reconService := routes.RegisterRoutes(r, db, provider, zlog)

	if spec := os.Getenv("RECONCILIATION_CRON"); spec != "" {
		sched := scheduler.New(reconService, repository.NewMovementRepository(db), zlog)
		if err := sched.Start(spec); err != nil {
			zlog.Fatal("scheduler start failed", "error", err.Error())
		}
		defer sched.Stop()
	}

	r.Run(":8080")
}
