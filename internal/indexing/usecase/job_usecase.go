package usecase

import (
	"context"
	"fmt"

	"mailscope-backend/internal/indexing/domain"
	"mailscope-backend/internal/indexing/repository"
)

// AllowedJobTotals are the only message-count caps a job may request.
var AllowedJobTotals = []int{100, 500, 1000}

// JobUsecase creates indexing jobs and reports their progress.
type JobUsecase struct {
	jobs repository.JobRepository
}

func NewJobUsecase(jobs repository.JobRepository) *JobUsecase {
	return &JobUsecase{jobs: jobs}
}

// CreateJob enqueues a new indexing job for the user. Total must be one of
// AllowedJobTotals.
func (u *JobUsecase) CreateJob(ctx context.Context, userID string, total int) (*domain.IndexJob, error) {
	valid := false
	for _, allowed := range AllowedJobTotals {
		if total == allowed {
			valid = true
			break
		}
	}
	if !valid {
		return nil, fmt.Errorf("invalid total %d, must be one of 100, 500, 1000", total)
	}

	return u.jobs.Create(ctx, userID, total)
}

// GetLatestJob returns the user's most recently created job, or nil when
// none exists.
func (u *JobUsecase) GetLatestJob(ctx context.Context, userID string) (*domain.IndexJob, error) {
	return u.jobs.GetLatestForUser(ctx, userID)
}
