package api

import (
	"github.com/gin-gonic/gin"

	indexingDelivery "mailscope-backend/internal/indexing/delivery"
	indexingUsecase "mailscope-backend/internal/indexing/usecase"
	searchDelivery "mailscope-backend/internal/search/delivery"
	searchUsecase "mailscope-backend/internal/search/usecase"
)

type Handler struct {
	jobHandler    *indexingDelivery.JobHandler
	searchHandler *searchDelivery.SearchHandler
}

func NewHandler(jobUc *indexingUsecase.JobUsecase, searchUc *searchUsecase.SearchUsecase) *Handler {
	return &Handler{
		jobHandler:    indexingDelivery.NewJobHandler(jobUc),
		searchHandler: searchDelivery.NewSearchHandler(searchUc),
	}
}

// Engine builds the HTTP engine with CORS and all routes attached.
func (h *Handler) Engine() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.Default()

	// CORS middleware
	r.Use(func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin != "" {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		} else {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		}

		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With, X-User-ID")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	SetupRoutes(r, h.jobHandler, h.searchHandler)
	return r
}
