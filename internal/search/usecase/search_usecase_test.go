package usecase

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	indexing "mailscope-backend/internal/indexing/domain"
	"mailscope-backend/internal/search/domain"
	"mailscope-backend/pkg/vector"
)

type fakeSearchRepo struct {
	keywordIDs   []string
	keywordCalls int
	lastQuery    string
	lastFilters  domain.Filters

	filterResult []string
	filterCalled bool

	messages    map[string]indexing.EmailMessage
	detailCalls int
}

func (f *fakeSearchRepo) FindKeywordMatches(_ context.Context, _, query string, filters domain.Filters, _ int) ([]string, error) {
	f.keywordCalls++
	f.lastQuery = query
	f.lastFilters = filters
	return f.keywordIDs, nil
}

func (f *fakeSearchRepo) FilterCandidateIDs(_ context.Context, _ string, ids []string, _ domain.Filters) ([]string, error) {
	f.filterCalled = true
	if f.filterResult != nil {
		return f.filterResult, nil
	}
	return ids, nil
}

func (f *fakeSearchRepo) GetMessagesByIDs(_ context.Context, _ string, ids []string) ([]indexing.EmailMessage, error) {
	f.detailCalls++
	var out []indexing.EmailMessage
	for _, id := range ids {
		if msg, ok := f.messages[id]; ok {
			out = append(out, msg)
		}
	}
	return out, nil
}

type fakeEmbedder struct {
	vec []float32
	err error
}

func (f *fakeEmbedder) Embed(_ context.Context, _ string) ([]float32, error) {
	return f.vec, f.err
}

type fakeIndex struct {
	hits []vector.Hit
	err  error
}

func (f *fakeIndex) Upsert(_ context.Context, _, _ string, _ []float32) error { return nil }
func (f *fakeIndex) Query(_ context.Context, _ string, _ []float32, _ int) ([]vector.Hit, error) {
	return f.hits, f.err
}

func messagesFor(ids ...string) map[string]indexing.EmailMessage {
	out := make(map[string]indexing.EmailMessage, len(ids))
	for _, id := range ids {
		out[id] = indexing.EmailMessage{ID: id, Subject: "subject " + id}
	}
	return out
}

func newTestUsecase(repo *fakeSearchRepo, embedder *fakeEmbedder, index *fakeIndex) *SearchUsecase {
	if embedder == nil && index == nil {
		return NewSearchUsecase(repo, nil, nil, zap.NewNop(), time.Second)
	}
	return NewSearchUsecase(repo, embedder, index, zap.NewNop(), time.Second)
}

func TestSearch_EmptyQueryTouchesNoStore(t *testing.T) {
	repo := &fakeSearchRepo{}
	u := newTestUsecase(repo, nil, nil)

	results, err := u.Search(context.Background(), "u1", Query{Query: "   "})

	require.NoError(t, err)
	assert.Empty(t, results)
	assert.Zero(t, repo.keywordCalls)
	assert.Zero(t, repo.detailCalls)
}

func TestSearch_KeywordOnly(t *testing.T) {
	repo := &fakeSearchRepo{
		keywordIDs: []string{"m1", "m2"},
		messages:   messagesFor("m1", "m2"),
	}
	u := newTestUsecase(repo, nil, nil)

	results, err := u.Search(context.Background(), "u1", Query{Query: "invoices"})

	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "m1", results[0].Message.ID)
	assert.Equal(t, keywordBaselineScore, results[0].Score)
	assert.Equal(t, []string{"Keyword match"}, results[0].Reasons)
}

func TestSearch_ExclusionTermsReachTheStore(t *testing.T) {
	repo := &fakeSearchRepo{}
	u := newTestUsecase(repo, nil, nil)

	_, err := u.Search(context.Background(), "u1", Query{Query: "non urgent emails"})

	require.NoError(t, err)
	assert.Equal(t, []string{"urgent"}, repo.lastFilters.ExcludedTerms)
}

func TestSearch_MergeKeepsMaxScoreAndBothReasons(t *testing.T) {
	repo := &fakeSearchRepo{
		keywordIDs: []string{"m1"},
		messages:   messagesFor("m1", "m2"),
	}
	index := &fakeIndex{hits: []vector.Hit{
		{EmailMessageID: "m1", Score: 0.9},
		{EmailMessageID: "m2", Score: 0.6},
	}}
	u := newTestUsecase(repo, &fakeEmbedder{vec: []float32{0.1}}, index)

	results, err := u.Search(context.Background(), "u1", Query{Query: "project update"})

	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, "m1", results[0].Message.ID)
	assert.InDelta(t, 0.9, results[0].Score, 1e-9)
	assert.ElementsMatch(t, []string{"Keyword match", "Semantic match (cosine 0.90)"}, results[0].Reasons)

	assert.Equal(t, "m2", results[1].Message.ID)
	assert.InDelta(t, 0.6, results[1].Score, 1e-9)
	assert.Equal(t, []string{"Semantic match (cosine 0.60)"}, results[1].Reasons)
}

func TestSearch_SemanticNeverLowersKeywordScore(t *testing.T) {
	repo := &fakeSearchRepo{
		keywordIDs: []string{"m1"},
		messages:   messagesFor("m1"),
	}
	index := &fakeIndex{hits: []vector.Hit{{EmailMessageID: "m1", Score: 0.4}}}
	u := newTestUsecase(repo, &fakeEmbedder{vec: []float32{0.1}}, index)

	results, err := u.Search(context.Background(), "u1", Query{Query: "status"})

	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.InDelta(t, keywordBaselineScore, results[0].Score, 1e-9)
	assert.ElementsMatch(t, []string{"Keyword match", "Semantic match (cosine 0.40)"}, results[0].Reasons)
}

func TestSearch_SemanticFailureDegradesToKeyword(t *testing.T) {
	repo := &fakeSearchRepo{
		keywordIDs: []string{"m1"},
		messages:   messagesFor("m1"),
	}
	u := newTestUsecase(repo, &fakeEmbedder{err: errors.New("provider down")}, &fakeIndex{})

	results, err := u.Search(context.Background(), "u1", Query{Query: "status"})

	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, []string{"Keyword match"}, results[0].Reasons)
}

func TestSearch_SemanticCandidatesRespectFilters(t *testing.T) {
	repo := &fakeSearchRepo{
		keywordIDs:   nil,
		filterResult: []string{"m2"},
		messages:     messagesFor("m1", "m2"),
	}
	index := &fakeIndex{hits: []vector.Hit{
		{EmailMessageID: "m1", Score: 0.95},
		{EmailMessageID: "m2", Score: 0.8},
	}}
	u := newTestUsecase(repo, &fakeEmbedder{vec: []float32{0.1}}, index)

	results, err := u.Search(context.Background(), "u1", Query{Query: "status"})

	require.NoError(t, err)
	assert.True(t, repo.filterCalled)
	require.Len(t, results, 1)
	assert.Equal(t, "m2", results[0].Message.ID)
}

func TestSearch_CapsAtTenResults(t *testing.T) {
	var ids []string
	for i := 0; i < 30; i++ {
		ids = append(ids, fmt.Sprintf("m%02d", i))
	}
	repo := &fakeSearchRepo{keywordIDs: ids, messages: messagesFor(ids...)}
	u := newTestUsecase(repo, nil, nil)

	results, err := u.Search(context.Background(), "u1", Query{Query: "newsletter"})

	require.NoError(t, err)
	assert.Len(t, results, resultLimit)
	// Ties keep the keyword pass's date-descending order
	assert.Equal(t, "m00", results[0].Message.ID)
}

func TestSearch_ExplicitDatesWinOverInference(t *testing.T) {
	repo := &fakeSearchRepo{}
	u := newTestUsecase(repo, nil, nil)

	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	_, err := u.Search(context.Background(), "u1", Query{Query: "invoices from last month", From: &from})

	require.NoError(t, err)
	require.NotNil(t, repo.lastFilters.DateFrom)
	assert.Equal(t, from, *repo.lastFilters.DateFrom)
	// To was not supplied, so the inferred window still bounds it
	require.NotNil(t, repo.lastFilters.DateTo)
}

func TestExtractExcludedTerms(t *testing.T) {
	cases := []struct {
		query string
		want  []string
	}{
		{"non urgent emails", []string{"urgent"}},
		{"non-urgent emails", []string{"urgent"}},
		{"emails without attachments", []string{"attachments"}},
		{"no newsletters please", []string{"newsletters"}},
		{"not the invoice one", []string{"invoice"}},
		{"excluding promotions", []string{"promotions"}},
		{"avoiding spam", []string{"spam"}},
		{"plain query", nil},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, extractExcludedTerms(tc.query), "query: %s", tc.query)
	}
}

func TestInferDateRange(t *testing.T) {
	now := time.Date(2026, 8, 30, 15, 30, 0, 0, time.UTC)
	startOfDay := time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC)

	t.Run("today", func(t *testing.T) {
		from, to := inferDateRange("emails from today", now)
		require.NotNil(t, from)
		require.NotNil(t, to)
		assert.Equal(t, startOfDay, *from)
		assert.Equal(t, now, *to)
	})

	t.Run("yesterday", func(t *testing.T) {
		from, to := inferDateRange("what came in yesterday", now)
		require.NotNil(t, from)
		require.NotNil(t, to)
		assert.Equal(t, startOfDay.AddDate(0, 0, -1), *from)
		assert.True(t, to.Before(startOfDay))
	})

	t.Run("last month", func(t *testing.T) {
		from, to := inferDateRange("invoices from last month", now)
		require.NotNil(t, from)
		require.NotNil(t, to)
		assert.Equal(t, startOfDay.AddDate(0, 0, -30), *from)
		assert.Equal(t, now, *to)
	})

	t.Run("last week", func(t *testing.T) {
		from, _ := inferDateRange("summaries from last week", now)
		require.NotNil(t, from)
		assert.Equal(t, startOfDay.AddDate(0, 0, -7), *from)
	})

	t.Run("last year", func(t *testing.T) {
		from, _ := inferDateRange("everything from last year", now)
		require.NotNil(t, from)
		assert.Equal(t, startOfDay.AddDate(-1, 0, 0), *from)
	})

	t.Run("no cue", func(t *testing.T) {
		from, to := inferDateRange("plain query", now)
		assert.Nil(t, from)
		assert.Nil(t, to)
	})
}

func TestSearch_InferredDateRangeFlowsToFilters(t *testing.T) {
	repo := &fakeSearchRepo{}
	u := newTestUsecase(repo, nil, nil)
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	u.now = func() time.Time { return now }

	_, err := u.Search(context.Background(), "u1", Query{Query: "invoices from last month"})

	require.NoError(t, err)
	require.NotNil(t, repo.lastFilters.DateFrom)
	require.NotNil(t, repo.lastFilters.DateTo)
	assert.Equal(t, time.Date(2026, 7, 31, 0, 0, 0, 0, time.UTC), *repo.lastFilters.DateFrom)
	assert.Equal(t, now, *repo.lastFilters.DateTo)
}
