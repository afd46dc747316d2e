package httptransport

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	sloggin "github.com/samber/slog-gin"

	"scrapegen/internal/health"
	"scrapegen/internal/transport/http/handler"
	"scrapegen/internal/transport/http/middleware"
)

func NewRouter(
	logger *slog.Logger,
	scrapeHandler *handler.ScrapeHandler,
	jobsHandler *handler.JobsHandler,
	downloadHandler *handler.DownloadHandler,
	checker *health.Checker,
) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Security())
	r.Use(sloggin.New(logger))
	r.Use(middleware.Metrics())

	api := r.Group("/api")
	api.POST("/scrape", scrapeHandler.Create)
	api.GET("/scrape", scrapeHandler.Stream)
	api.GET("/download/:id", downloadHandler.Get)
	api.GET("/jobs", jobsHandler.List)
	api.GET("/jobs/:id", jobsHandler.GetByID)

	api.GET("/health/live", func(c *gin.Context) {
		c.JSON(http.StatusOK, checker.Liveness(c.Request.Context()))
	})
	api.GET("/health/ready", func(c *gin.Context) {
		result := checker.Readiness(c.Request.Context())
		status := http.StatusOK
		if result.Status != "up" {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, result)
	})

	return r
}
