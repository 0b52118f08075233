package handlers

import (
	"net/http"

	"miim/internal/services"
	"miim/internal/worker"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// StatusHandler reports service health and the background runner
type StatusHandler struct {
	db            *gorm.DB
	articles      *services.ArticlesService
	workerService *worker.WorkerService
}

// NewStatusHandler creates a status handler; workerService may be nil when the runner is disabled
func NewStatusHandler(db *gorm.DB, workerService *worker.WorkerService) *StatusHandler {
	return &StatusHandler{
		db:            db,
		articles:      services.NewArticlesService(db),
		workerService: workerService,
	}
}

// HealthCheck handles GET /health
func (h *StatusHandler) HealthCheck(c *gin.Context) {
	sqlDB, err := h.db.DB()
	if err == nil {
		err = sqlDB.PingContext(c.Request.Context())
	}
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":  "unhealthy",
			"service": "miim",
			"details": err.Error(),
		})
		return
	}

	counts, err := h.articles.StatusCounts(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":  "unhealthy",
			"service": "miim",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":   "healthy",
		"service":  "miim",
		"articles": counts,
	})
}

// WorkerStatus handles GET /api/worker/status
func (h *StatusHandler) WorkerStatus(c *gin.Context) {
	if h.workerService == nil {
		c.JSON(http.StatusOK, gin.H{
			"enabled":       false,
			"worker_status": worker.Status{},
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"enabled":       true,
		"worker_status": h.workerService.GetStatus(),
	})
}
