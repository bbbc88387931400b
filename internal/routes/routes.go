package routes

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"invoice-reconciliation-backend/internal/embedding"
	handler "invoice-reconciliation-backend/internal/handlers"
	"invoice-reconciliation-backend/internal/pkg/logger"
	"invoice-reconciliation-backend/internal/repository"
	service "invoice-reconciliation-backend/internal/services/reconciliation"
)

func RegisterRoutes(r *gin.Engine, db *gorm.DB, provider embedding.Provider, log *logger.Logger) *service.Service {
	movementRepo := repository.NewMovementRepository(db)
	documentRepo := repository.NewDocumentRepository(db)
	automationRepo := repository.NewAutomationRepository(db)

	reconService := service.NewService(
		movementRepo,
		documentRepo,
		automationRepo,
		provider,
		log,
	)

	reconHandler := handler.NewReconciliationHandler(reconService)

	api := r.Group("/api")

	// Health check
	api.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// Reconciliation run routes
	recon := api.Group("/reconciliation")
	recon.POST("/runs", reconHandler.StartRun)
	recon.GET("/runs/:jobId", reconHandler.GetJobStatus)
	recon.GET("/runs/:jobId/report", reconHandler.GetRunReport)

	// Movement-level routes
	movements := api.Group("/movements")
	movements.POST("/:id/unmatch", reconHandler.UnmatchMovement)

	return reconService
}
