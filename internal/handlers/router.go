package handlers

import (
	"miim/internal/services"
	"miim/internal/worker"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// RouterDeps are the services behind the HTTP API
type RouterDeps struct {
	DB      *gorm.DB
	Review  *services.ReviewService
	Quality services.QualityConfig
	Worker  *worker.WorkerService
}

// NewRouter builds the gin engine with every route registered
func NewRouter(deps RouterDeps) *gin.Engine {
	r := gin.Default()

	// CORS middleware
	r.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	statusHandler := NewStatusHandler(deps.DB, deps.Worker)
	reviewHandler := NewReviewHandler(deps.Review)
	qualityHandler := NewQualityHandler(deps.DB, deps.Quality)

	r.GET("/health", statusHandler.HealthCheck)
	r.GET("/quality/report", qualityHandler.ServeReportPage)

	api := r.Group("/api")
	{
		review := api.Group("/review")
		{
			review.GET("", reviewHandler.ListItems)
			review.GET("/stats", reviewHandler.GetStats)
			review.GET("/:id", reviewHandler.GetItem)
			review.POST("/:id/approve", reviewHandler.Approve)
			review.POST("/:id/reject", reviewHandler.Reject)
		}

		quality := api.Group("/quality")
		{
			quality.GET("/report", qualityHandler.GetReport)
			quality.GET("/report.xlsx", qualityHandler.DownloadReport)
		}

		worker := api.Group("/worker")
		{
			worker.GET("/status", statusHandler.WorkerStatus)
		}
	}

	return r
}
