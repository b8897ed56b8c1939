package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"mailscope-backend/internal/indexing/domain"
)

type jobRepository struct {
	db *gorm.DB
}

func NewJobRepository(db *gorm.DB) JobRepository {
	return &jobRepository{db: db}
}

func (r *jobRepository) Create(ctx context.Context, userID string, total int) (*domain.IndexJob, error) {
	job := &domain.IndexJob{
		ID:        uuid.New().String(),
		UserID:    userID,
		Status:    domain.JobStatusQueued,
		Total:     total,
		Processed: 0,
	}
	if err := r.db.WithContext(ctx).Create(job).Error; err != nil {
		return nil, err
	}
	return job, nil
}

// ClaimNextQueued selects the oldest QUEUED job under a row lock that makes
// concurrent claimants skip rather than block (FOR UPDATE SKIP LOCKED), then
// flips it to RUNNING within the same transaction. A crash between the two
// steps rolls back and leaves the job QUEUED.
func (r *jobRepository) ClaimNextQueued(ctx context.Context) (*domain.IndexJob, error) {
	var claimed *domain.IndexJob

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var job domain.IndexJob
		err := tx.
			Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
			Where("status = ?", domain.JobStatusQueued).
			Order("created_at ASC").
			First(&job).Error
		if err != nil {
			return err
		}

		now := time.Now()
		err = tx.Model(&domain.IndexJob{}).
			Where("id = ?", job.ID).
			Updates(map[string]interface{}{
				"status":     domain.JobStatusRunning,
				"started_at": now,
				"last_error": "",
			}).Error
		if err != nil {
			return err
		}

		job.Status = domain.JobStatusRunning
		job.StartedAt = &now
		job.LastError = ""
		claimed = &job
		return nil
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return claimed, nil
}

func (r *jobRepository) UpdateProgress(ctx context.Context, jobID string, processed int) error {
	return r.db.WithContext(ctx).
		Model(&domain.IndexJob{}).
		Where("id = ?", jobID).
		Update("processed", processed).Error
}

func (r *jobRepository) MarkCompleted(ctx context.Context, jobID string, processed int) error {
	return r.db.WithContext(ctx).
		Model(&domain.IndexJob{}).
		Where("id = ?", jobID).
		Updates(map[string]interface{}{
			"status":      domain.JobStatusCompleted,
			"processed":   processed,
			"finished_at": time.Now(),
		}).Error
}

func (r *jobRepository) MarkFailed(ctx context.Context, jobID string, lastError string) error {
	return r.db.WithContext(ctx).
		Model(&domain.IndexJob{}).
		Where("id = ?", jobID).
		Updates(map[string]interface{}{
			"status":      domain.JobStatusFailed,
			"last_error":  lastError,
			"finished_at": time.Now(),
		}).Error
}

func (r *jobRepository) GetLatestForUser(ctx context.Context, userID string) (*domain.IndexJob, error) {
	var job domain.IndexJob
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		First(&job).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &job, nil
}
