package handlers

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"miim/internal/extraction"
	"miim/internal/models"
	"miim/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ReviewHandler exposes the human review queue
type ReviewHandler struct {
	reviewService *services.ReviewService
}

// NewReviewHandler creates a new review handler
func NewReviewHandler(reviewService *services.ReviewService) *ReviewHandler {
	return &ReviewHandler{reviewService: reviewService}
}

type approveRequest struct {
	ExtractedData map[string]any `json:"extracted_data"`
}

type rejectRequest struct {
	Notes string `json:"notes"`
}

// ListItems handles GET /api/review
func (h *ReviewHandler) ListItems(c *gin.Context) {
	status := c.DefaultQuery("status", models.ReviewStatusPending)
	if status == "all" {
		status = ""
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if limit > 200 {
		limit = 200
	}
	if limit < 1 {
		limit = 50
	}

	items, err := h.reviewService.List(c.Request.Context(), status, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to list review items",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"items": items,
		"count": len(items),
	})
}

// GetStats handles GET /api/review/stats
func (h *ReviewHandler) GetStats(c *gin.Context) {
	days, _ := strconv.Atoi(c.DefaultQuery("days", "7"))

	stats, err := h.reviewService.Stats(c.Request.Context(), days)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to compute review stats",
			"details": err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, stats)
}

// GetItem handles GET /api/review/:id
func (h *ReviewHandler) GetItem(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	item, err := h.reviewService.Get(c.Request.Context(), id)
	if err != nil {
		respondReviewError(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

// Approve handles POST /api/review/:id/approve.
// A body with extracted_data replaces the queued payload and marks the item edited.
func (h *ReviewHandler) Approve(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req approveRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	var edited *extraction.Result
	if req.ExtractedData != nil {
		edited = extraction.Validate(req.ExtractedData)
	}

	stats, err := h.reviewService.Approve(c.Request.Context(), id, edited)
	if err != nil {
		respondReviewError(c, err)
		return
	}

	status := models.ReviewStatusApproved
	if edited != nil {
		status = models.ReviewStatusEdited
	}
	c.JSON(http.StatusOK, gin.H{
		"status":  status,
		"applied": stats,
	})
}

// Reject handles POST /api/review/:id/reject
func (h *ReviewHandler) Reject(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req rejectRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	if err := h.reviewService.Reject(c.Request.Context(), id, req.Notes); err != nil {
		respondReviewError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": models.ReviewStatusRejected})
}

func parseID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid review item ID format",
		})
		return uuid.Nil, false
	}
	return id, true
}

func respondReviewError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrReviewItemNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Review item not found"})
	case errors.Is(err, services.ErrReviewItemClosed):
		c.JSON(http.StatusConflict, gin.H{
			"error":   "Review item already reviewed",
			"details": err.Error(),
		})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to update review item",
			"details": err.Error(),
		})
	}
}
