package repository

import (
	"context"

	"gorm.io/gorm"

	indexing "mailscope-backend/internal/indexing/domain"
	"mailscope-backend/internal/search/domain"
)

// SearchRepository reads indexed messages on behalf of the ranker. It never
// writes.
type SearchRepository interface {
	// FindKeywordMatches returns ids of the user's messages whose subject,
	// cleaned body or snippet contain the query text, newest first, capped
	// at limit.
	FindKeywordMatches(ctx context.Context, userID, query string, filters domain.Filters, limit int) ([]string, error)
	// FilterCandidateIDs narrows a candidate id set to those passing the
	// structured filters.
	FilterCandidateIDs(ctx context.Context, userID string, ids []string, filters domain.Filters) ([]string, error)
	// GetMessagesByIDs loads full message rows with their tags.
	GetMessagesByIDs(ctx context.Context, userID string, ids []string) ([]indexing.EmailMessage, error)
}

type searchRepository struct {
	db *gorm.DB
}

func NewSearchRepository(db *gorm.DB) SearchRepository {
	return &searchRepository{db: db}
}

func (r *searchRepository) FindKeywordMatches(ctx context.Context, userID, query string, filters domain.Filters, limit int) ([]string, error) {
	q := r.db.WithContext(ctx).
		Model(&indexing.EmailMessage{}).
		Where("user_id = ?", userID)

	if query != "" {
		like := "%" + query + "%"
		q = q.Where("(subject ILIKE ? OR cleaned_text ILIKE ? OR snippet ILIKE ?)", like, like, like)
	}
	q = applyFilters(q, filters)

	var ids []string
	if err := q.Order("date DESC").Limit(limit).Pluck("id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *searchRepository) FilterCandidateIDs(ctx context.Context, userID string, ids []string, filters domain.Filters) ([]string, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	q := r.db.WithContext(ctx).
		Model(&indexing.EmailMessage{}).
		Where("user_id = ?", userID).
		Where("id IN ?", ids)
	q = applyFilters(q, filters)

	var matching []string
	if err := q.Pluck("id", &matching).Error; err != nil {
		return nil, err
	}
	return matching, nil
}

func (r *searchRepository) GetMessagesByIDs(ctx context.Context, userID string, ids []string) ([]indexing.EmailMessage, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	var messages []indexing.EmailMessage
	err := r.db.WithContext(ctx).
		Preload("Tags").
		Where("user_id = ? AND id IN ?", userID, ids).
		Find(&messages).Error
	if err != nil {
		return nil, err
	}
	return messages, nil
}

func applyFilters(q *gorm.DB, filters domain.Filters) *gorm.DB {
	if filters.Sender != "" {
		q = q.Where("from_address ILIKE ?", "%"+filters.Sender+"%")
	}
	if filters.Tag != "" {
		q = q.Where(`id IN (
			SELECT jt.email_message_id
			FROM email_message_tags jt
			JOIN email_tags t ON t.id = jt.email_tag_id
			WHERE t.name = ?
		)`, filters.Tag)
	}
	if filters.DateFrom != nil {
		q = q.Where("date >= ?", *filters.DateFrom)
	}
	if filters.DateTo != nil {
		q = q.Where("date <= ?", *filters.DateTo)
	}
	for _, term := range filters.ExcludedTerms {
		like := "%" + term + "%"
		q = q.Where("NOT (subject ILIKE ? OR cleaned_text ILIKE ? OR snippet ILIKE ?)", like, like, like)
	}
	return q
}
