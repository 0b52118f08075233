package handlers

import (
	"fmt"
	"net/http"
	"time"

	"miim/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/russross/blackfriday/v2"
	"gorm.io/gorm"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// QualityHandler serves the data quality report
type QualityHandler struct {
	db     *gorm.DB
	config services.QualityConfig
}

// NewQualityHandler creates a handler; reports are always read-only
func NewQualityHandler(db *gorm.DB, config services.QualityConfig) *QualityHandler {
	config.Commit = false
	return &QualityHandler{db: db, config: config}
}

func (h *QualityHandler) report(c *gin.Context) (*services.QualityReport, bool) {
	qs := services.NewQualityService(h.db, h.config)
	report, err := qs.GenerateReport(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to generate quality report",
			"details": err.Error(),
		})
		return nil, false
	}
	return report, true
}

// GetReport handles GET /api/quality/report
func (h *QualityHandler) GetReport(c *gin.Context) {
	if report, ok := h.report(c); ok {
		c.JSON(http.StatusOK, report)
	}
}

// DownloadReport handles GET /api/quality/report.xlsx
func (h *QualityHandler) DownloadReport(c *gin.Context) {
	report, ok := h.report(c)
	if !ok {
		return
	}

	filename := fmt.Sprintf("quality-report-%s.xlsx", report.GeneratedAt.Format("2006-01-02"))
	c.Header("Content-Type", xlsxContentType)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Status(http.StatusOK)
	if err := report.WriteXLSX(c.Writer); err != nil {
		c.Error(err)
	}
}

// ServeReportPage handles GET /quality/report with the Markdown report rendered as HTML
func (h *QualityHandler) ServeReportPage(c *gin.Context) {
	report, ok := h.report(c)
	if !ok {
		return
	}

	extensions := blackfriday.CommonExtensions | blackfriday.AutoHeadingIDs
	renderer := blackfriday.NewHTMLRenderer(blackfriday.HTMLRendererParameters{
		Flags: blackfriday.CommonHTMLFlags | blackfriday.SkipHTML | blackfriday.Safelink,
	})
	htmlContent := blackfriday.Run([]byte(report.Markdown()), blackfriday.WithRenderer(renderer), blackfriday.WithExtensions(extensions))

	subtitle := "Generated " + report.GeneratedAt.Format(time.RFC1123)
	c.Header("Content-Type", "text/html; charset=utf-8")
	c.String(http.StatusOK, wrapWithTheme(string(htmlContent), "Data Quality Report", subtitle))
}
