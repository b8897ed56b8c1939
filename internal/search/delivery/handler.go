package delivery

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"mailscope-backend/internal/search/usecase"
)

// SearchHandler handles search HTTP requests
type SearchHandler struct {
	searchUsecase *usecase.SearchUsecase
}

func NewSearchHandler(searchUsecase *usecase.SearchUsecase) *SearchHandler {
	return &SearchHandler{searchUsecase: searchUsecase}
}

// SearchRequest represents the request body for a search
type SearchRequest struct {
	Query  string `json:"query"`
	Sender string `json:"sender"`
	Tag    string `json:"tag"`
	From   string `json:"from"`
	To     string `json:"to"`
}

// Search runs the hybrid search
// POST /api/search
func (h *SearchHandler) Search(c *gin.Context) {
	userID := c.GetString("userID")

	var req SearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	q := usecase.Query{
		Query:  req.Query,
		Sender: req.Sender,
		Tag:    req.Tag,
		From:   parseDate(req.From),
		To:     parseDate(req.To),
	}

	results, err := h.searchUsecase.Search(c.Request.Context(), userID, q)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"results": results})
}

// parseDate accepts the date-only form the UI sends and full RFC 3339
// timestamps. Anything else is treated as unset.
func parseDate(value string) *time.Time {
	if value == "" {
		return nil
	}
	if t, err := time.Parse("2006-01-02", value); err == nil {
		return &t
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return &t
	}
	return nil
}
