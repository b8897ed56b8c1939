package delivery

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"mailscope-backend/internal/indexing/usecase"
)

// JobHandler handles index-job HTTP requests
type JobHandler struct {
	jobUsecase *usecase.JobUsecase
}

func NewJobHandler(jobUsecase *usecase.JobUsecase) *JobHandler {
	return &JobHandler{jobUsecase: jobUsecase}
}

// CreateJobRequest represents the request body for enqueueing an index job
type CreateJobRequest struct {
	Total int `json:"total" binding:"required"`
}

// CreateJob enqueues a new indexing job
// POST /api/index-jobs
func (h *JobHandler) CreateJob(c *gin.Context) {
	userID := c.GetString("userID")

	var req CreateJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	job, err := h.jobUsecase.CreateJob(c.Request.Context(), userID, req.Total)
	if err != nil {
		if strings.HasPrefix(err.Error(), "invalid total") {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid total, must be one of 100, 500, 1000"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, job)
}

// GetLatestJob returns the user's most recent indexing job
// GET /api/index-jobs/latest
func (h *JobHandler) GetLatestJob(c *gin.Context) {
	userID := c.GetString("userID")

	job, err := h.jobUsecase.GetLatestJob(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if job == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "No indexing job found"})
		return
	}

	c.JSON(http.StatusOK, job)
}
