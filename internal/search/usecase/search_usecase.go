package usecase

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	indexing "mailscope-backend/internal/indexing/domain"
	"mailscope-backend/internal/search/domain"
	"mailscope-backend/internal/search/repository"
	"mailscope-backend/pkg/ai"
	"mailscope-backend/pkg/vector"
)

const (
	keywordBaselineScore = 0.7
	candidateLimit       = 30
	resultLimit          = 10
	// The vector index can only scope by user, so structured filters are
	// applied afterwards against the message store. Overfetch so the
	// post-filter still has enough candidates to fill the cap.
	semanticOverfetch = 30

	keywordReason = "Keyword match"
)

// extractExcludedTerms scans the lower-cased query for negation phrasings
// ("non urgent", "without attachments", "excluding newsletters") and collects
// the negated terms.
var exclusionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`non[\s-]+([a-z0-9][\w-]{2,})`),
	regexp.MustCompile(`without\s+([a-z0-9][\w-]{2,})`),
	regexp.MustCompile(`no\s+([a-z0-9][\w-]{2,})`),
	regexp.MustCompile(`not\s+(?:a\s+|the\s+)?([a-z0-9][\w-]{2,})`),
	regexp.MustCompile(`exclud(?:e|ing)\s+([a-z0-9][\w-]{2,})`),
	regexp.MustCompile(`avoid(?:ing)?\s+([a-z0-9][\w-]{2,})`),
}

// Query is one search request. From/To, when nil, may be inferred from
// natural-language cues in the query text.
type Query struct {
	Query  string
	Sender string
	Tag    string
	From   *time.Time
	To     *time.Time
}

// SearchUsecase is the hybrid ranker: a keyword pass over the message store
// merged with a vector-similarity pass, max-scored and explainable.
type SearchUsecase struct {
	repo            repository.SearchRepository
	embedder        ai.Embedder  // nil disables the semantic pass
	index           vector.Index // nil disables the semantic pass
	logger          *zap.Logger
	providerTimeout time.Duration

	now func() time.Time
}

func NewSearchUsecase(repo repository.SearchRepository, embedder ai.Embedder, index vector.Index, logger *zap.Logger, providerTimeout time.Duration) *SearchUsecase {
	if providerTimeout <= 0 {
		providerTimeout = 30 * time.Second
	}
	return &SearchUsecase{
		repo:            repo,
		embedder:        embedder,
		index:           index,
		logger:          logger,
		providerTimeout: providerTimeout,
		now:             time.Now,
	}
}

type scoredHit struct {
	id      string
	score   float64
	reasons []string
}

// Search runs both passes and returns the top-ranked messages with their
// match reasons. An empty query returns an empty list without touching any
// store. Semantic-pass failure degrades to keyword-only results.
func (u *SearchUsecase) Search(ctx context.Context, userID string, q Query) ([]domain.Result, error) {
	query := strings.TrimSpace(q.Query)
	if query == "" {
		return []domain.Result{}, nil
	}

	inferredFrom, inferredTo := inferDateRange(query, u.now())
	from, to := q.From, q.To
	if from == nil {
		from = inferredFrom
	}
	if to == nil {
		to = inferredTo
	}

	filters := domain.Filters{
		Sender:        strings.TrimSpace(q.Sender),
		Tag:           strings.TrimSpace(q.Tag),
		DateFrom:      from,
		DateTo:        to,
		ExcludedTerms: extractExcludedTerms(query),
	}

	keywordIDs, err := u.repo.FindKeywordMatches(ctx, userID, query, filters, candidateLimit)
	if err != nil {
		return nil, fmt.Errorf("keyword search: %w", err)
	}

	scored := make(map[string]*scoredHit, len(keywordIDs))
	order := make([]string, 0, len(keywordIDs))
	for _, id := range keywordIDs {
		scored[id] = &scoredHit{id: id, score: keywordBaselineScore, reasons: []string{keywordReason}}
		order = append(order, id)
	}

	if u.embedder != nil && u.index != nil {
		if err := u.semanticPass(ctx, userID, query, filters, scored, &order); err != nil {
			u.logger.Warn("semantic search failed, serving keyword results only",
				zap.Error(err))
		}
	}

	combined := make([]*scoredHit, 0, len(order))
	for _, id := range order {
		combined = append(combined, scored[id])
	}
	sort.SliceStable(combined, func(i, j int) bool {
		return combined[i].score > combined[j].score
	})
	if len(combined) > resultLimit {
		combined = combined[:resultLimit]
	}

	ids := make([]string, len(combined))
	for i, hit := range combined {
		ids[i] = hit.id
	}

	messages, err := u.repo.GetMessagesByIDs(ctx, userID, ids)
	if err != nil {
		return nil, fmt.Errorf("loading result messages: %w", err)
	}
	byID := make(map[string]indexing.EmailMessage, len(messages))
	for _, msg := range messages {
		byID[msg.ID] = msg
	}

	results := make([]domain.Result, 0, len(combined))
	for _, hit := range combined {
		msg, ok := byID[hit.id]
		if !ok {
			continue
		}
		results = append(results, domain.Result{
			Message: msg,
			Score:   hit.score,
			Reasons: hit.reasons,
		})
	}
	return results, nil
}

// semanticPass embeds the query, retrieves nearest neighbors scoped to the
// user, re-applies the structured filters through the message store and
// merges survivors into the scored set. Scores are max-merged, never summed.
func (u *SearchUsecase) semanticPass(ctx context.Context, userID, query string, filters domain.Filters, scored map[string]*scoredHit, order *[]string) error {
	embedCtx, cancel := context.WithTimeout(ctx, u.providerTimeout)
	vec, err := u.embedder.Embed(embedCtx, query)
	cancel()
	if err != nil {
		return fmt.Errorf("embedding query: %w", err)
	}

	hits, err := u.index.Query(ctx, userID, vec, candidateLimit+semanticOverfetch)
	if err != nil {
		return fmt.Errorf("querying vector index: %w", err)
	}
	if len(hits) == 0 {
		return nil
	}

	candidateIDs := make([]string, len(hits))
	for i, hit := range hits {
		candidateIDs[i] = hit.EmailMessageID
	}
	matching, err := u.repo.FilterCandidateIDs(ctx, userID, candidateIDs, filters)
	if err != nil {
		return fmt.Errorf("filtering semantic candidates: %w", err)
	}
	allowed := make(map[string]bool, len(matching))
	for _, id := range matching {
		allowed[id] = true
	}

	kept := 0
	for _, hit := range hits {
		if !allowed[hit.EmailMessageID] {
			continue
		}
		if kept == candidateLimit {
			break
		}
		kept++

		reason := fmt.Sprintf("Semantic match (cosine %.2f)", hit.Score)
		if existing, ok := scored[hit.EmailMessageID]; ok {
			if hit.Score > existing.score {
				existing.score = hit.Score
			}
			if !containsReason(existing.reasons, reason) {
				existing.reasons = append(existing.reasons, reason)
			}
		} else {
			scored[hit.EmailMessageID] = &scoredHit{
				id:      hit.EmailMessageID,
				score:   hit.Score,
				reasons: []string{reason},
			}
			*order = append(*order, hit.EmailMessageID)
		}
	}
	return nil
}

func containsReason(reasons []string, reason string) bool {
	for _, r := range reasons {
		if r == reason {
			return true
		}
	}
	return false
}

func extractExcludedTerms(query string) []string {
	q := strings.ToLower(query)

	seen := make(map[string]bool)
	var terms []string
	for _, pattern := range exclusionPatterns {
		for _, match := range pattern.FindAllStringSubmatch(q, -1) {
			term := strings.TrimSpace(match[1])
			if term == "" || seen[term] {
				continue
			}
			seen[term] = true
			terms = append(terms, term)
		}
	}
	return terms
}

// inferDateRange maps natural-language cues in the query to a concrete
// window anchored at now. No cue yields an unbounded range.
func inferDateRange(query string, now time.Time) (*time.Time, *time.Time) {
	q := strings.ToLower(query)
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	switch {
	case strings.Contains(q, "today"):
		return &startOfDay, &now
	case strings.Contains(q, "yesterday"):
		from := startOfDay.AddDate(0, 0, -1)
		to := startOfDay.Add(-time.Millisecond)
		return &from, &to
	case strings.Contains(q, "last 7 days") || strings.Contains(q, "last week"):
		from := startOfDay.AddDate(0, 0, -7)
		return &from, &now
	case strings.Contains(q, "last 30 days") || strings.Contains(q, "last month"):
		from := startOfDay.AddDate(0, 0, -30)
		return &from, &now
	case strings.Contains(q, "last year"):
		from := startOfDay.AddDate(-1, 0, 0)
		return &from, &now
	}
	return nil, nil
}
