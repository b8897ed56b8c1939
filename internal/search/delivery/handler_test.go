package delivery

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	indexing "mailscope-backend/internal/indexing/domain"
	"mailscope-backend/internal/search/domain"
	"mailscope-backend/internal/search/usecase"
)

type fakeSearchRepo struct {
	keywordIDs  []string
	calls       int
	lastFilters domain.Filters
}

func (f *fakeSearchRepo) FindKeywordMatches(_ context.Context, _, _ string, filters domain.Filters, _ int) ([]string, error) {
	f.calls++
	f.lastFilters = filters
	return f.keywordIDs, nil
}

func (f *fakeSearchRepo) FilterCandidateIDs(_ context.Context, _ string, ids []string, _ domain.Filters) ([]string, error) {
	return ids, nil
}

func (f *fakeSearchRepo) GetMessagesByIDs(_ context.Context, _ string, ids []string) ([]indexing.EmailMessage, error) {
	var out []indexing.EmailMessage
	for _, id := range ids {
		out = append(out, indexing.EmailMessage{ID: id, Subject: "subject " + id})
	}
	return out, nil
}

func setupRouter(repo *fakeSearchRepo) *gin.Engine {
	gin.SetMode(gin.TestMode)
	handler := NewSearchHandler(usecase.NewSearchUsecase(repo, nil, nil, zap.NewNop(), 0))

	r := gin.New()
	r.Use(func(c *gin.Context) { c.Set("userID", "u1") })
	r.POST("/api/search", handler.Search)
	return r
}

func TestSearch_ReturnsResults(t *testing.T) {
	repo := &fakeSearchRepo{keywordIDs: []string{"m1"}}
	r := setupRouter(repo)

	req := httptest.NewRequest(http.MethodPost, "/api/search", strings.NewReader(`{"query":"invoices"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"m1"`)
	assert.Contains(t, w.Body.String(), "Keyword match")
}

func TestSearch_EmptyQueryReturnsEmptyResults(t *testing.T) {
	repo := &fakeSearchRepo{}
	r := setupRouter(repo)

	req := httptest.NewRequest(http.MethodPost, "/api/search", strings.NewReader(`{"query":""}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"results":[]}`, w.Body.String())
	assert.Zero(t, repo.calls)
}

func TestSearch_DateFiltersParsed(t *testing.T) {
	repo := &fakeSearchRepo{}
	r := setupRouter(repo)

	req := httptest.NewRequest(http.MethodPost, "/api/search",
		strings.NewReader(`{"query":"reports","from":"2026-01-01","to":"2026-02-01"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, repo.lastFilters.DateFrom)
	require.NotNil(t, repo.lastFilters.DateTo)
	assert.Equal(t, 2026, repo.lastFilters.DateFrom.Year())
}

func TestSearch_MalformedBody(t *testing.T) {
	r := setupRouter(&fakeSearchRepo{})

	req := httptest.NewRequest(http.MethodPost, "/api/search", strings.NewReader(`{not json`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
