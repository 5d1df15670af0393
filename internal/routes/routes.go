package routes

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"hcbs-billing-backend/internal/config"
	handler "hcbs-billing-backend/internal/handlers"
	"hcbs-billing-backend/internal/repository"
	"hcbs-billing-backend/internal/services/adjustments"
	"hcbs-billing-backend/internal/services/arreport"
	"hcbs-billing-backend/internal/services/matching"
	"hcbs-billing-backend/internal/services/reconciliation"
	"hcbs-billing-backend/internal/services/remittance"
)

func RegisterRoutes(r *gin.Engine, db *gorm.DB, cfg config.Config, logger *zap.Logger) {
	repos := repository.NewGormRepos(db)
	txManager := repository.NewGormTxManager(db)

	engine := matching.NewEngine(repos, matching.Config{
		MatchThreshold: cfg.MatchThreshold,
		DateWindowDays: cfg.DateWindowDays,
	}, logger)
	reconService := reconciliation.NewService(repos, txManager, engine, logger)
	ledger := adjustments.NewLedger(repos, txManager, logger)
	remitService := remittance.NewService(repos, txManager, remittance.NewCSVParser(), logger)
	arService := arreport.NewService(repos)

	reconHandler := handler.NewReconciliationHandler(reconService)
	adjHandler := handler.NewAdjustmentHandler(ledger)
	remitHandler := handler.NewRemittanceHandler(remitService)
	arHandler := handler.NewARHandler(arService)

	api := r.Group("/api")

	api.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	payments := api.Group("/payments")
	payments.POST("", reconHandler.CreatePayment)
	payments.GET("/:id", reconHandler.GetPayment)
	payments.GET("/:id/matches", reconHandler.GetSuggestedMatches)
	payments.POST("/:id/reconcile", reconHandler.Reconcile)
	payments.POST("/:id/reconcile/auto", reconHandler.AutoReconcile)
	payments.POST("/:id/reconcile/undo", reconHandler.Undo)
	payments.GET("/:id/reconciliation", reconHandler.GetDetails)
	payments.GET("/:id/adjustments", adjHandler.ForPayment)

	api.POST("/reconciliation/batch", reconHandler.BatchReconcile)
	api.POST("/remittances/import", remitHandler.Import)

	api.POST("/claim-payments/:id/adjustments", adjHandler.AddAdjustment)
	api.GET("/claims/:id/adjustments", adjHandler.ForClaim)

	reports := api.Group("/reports")
	reports.GET("/adjustments/trends", adjHandler.Trends)
	reports.GET("/adjustments/top-reasons", adjHandler.TopReasons)
	reports.GET("/adjustments/impact", adjHandler.Impact)
	reports.GET("/adjustments/denials", adjHandler.Denials)
	reports.GET("/ar/aging", arHandler.Aging)
	reports.GET("/ar/outstanding-claims", arHandler.OutstandingClaims)
	reports.GET("/ar/unreconciled-payments", arHandler.UnreconciledPayments)
	reports.GET("/ar/collections", arHandler.Collections)
	reports.GET("/ar/metrics", arHandler.Metrics)
}
