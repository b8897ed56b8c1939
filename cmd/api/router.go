package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	indexingDelivery "mailscope-backend/internal/indexing/delivery"
	searchDelivery "mailscope-backend/internal/search/delivery"
)

func SetupRoutes(r *gin.Engine, jobHandler *indexingDelivery.JobHandler, searchHandler *searchDelivery.SearchHandler) {
	api := r.Group("/api")
	{
		// Health check (no auth required)
		api.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
		})

		// Indexing job routes (protected)
		jobs := api.Group("/index-jobs")
		jobs.Use(UserMiddleware())
		{
			jobs.POST("", jobHandler.CreateJob)
			jobs.GET("/latest", jobHandler.GetLatestJob)
		}

		// Search routes (protected)
		search := api.Group("/search")
		search.Use(UserMiddleware())
		{
			search.POST("", searchHandler.Search)
		}
	}
}
