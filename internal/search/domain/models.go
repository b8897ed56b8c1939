package domain

import (
	"time"

	indexing "mailscope-backend/internal/indexing/domain"
)

// Filters are the structured constraints applied to both search passes.
// ExcludedTerms subtract candidates whose subject, body or snippet contain
// the term; they are never treated as positive query terms.
type Filters struct {
	Sender        string
	Tag           string
	DateFrom      *time.Time
	DateTo        *time.Time
	ExcludedTerms []string
}

// Result is one ranked search hit with the reasons it matched.
type Result struct {
	Message indexing.EmailMessage `json:"message"`
	Score   float64               `json:"score"`
	Reasons []string              `json:"reasons"`
}
