package repository

import (
	"context"

	"mailscope-backend/internal/indexing/domain"
)

// JobRepository is the durable, mutually-exclusive queue of indexing jobs.
type JobRepository interface {
	Create(ctx context.Context, userID string, total int) (*domain.IndexJob, error)
	// ClaimNextQueued atomically claims the oldest QUEUED job, flipping it
	// to RUNNING. Returns (nil, nil) when no job is available. Concurrent
	// claimants never receive the same job.
	ClaimNextQueued(ctx context.Context) (*domain.IndexJob, error)
	UpdateProgress(ctx context.Context, jobID string, processed int) error
	MarkCompleted(ctx context.Context, jobID string, processed int) error
	MarkFailed(ctx context.Context, jobID string, lastError string) error
	GetLatestForUser(ctx context.Context, userID string) (*domain.IndexJob, error)
}

// MessageRepository owns EmailMessage rows.
type MessageRepository interface {
	// Upsert inserts or updates by provider message id and returns the
	// stored row (with its stable id).
	Upsert(ctx context.Context, msg *domain.EmailMessage) (*domain.EmailMessage, error)
}

// TagRepository owns EmailTag rows and the message-tag join.
type TagRepository interface {
	// EnsureTag returns the tag with the given name, creating it if absent.
	EnsureTag(ctx context.Context, name string) (*domain.EmailTag, error)
	// ReplaceMessageTags swaps the message's entire tag set in one
	// transaction.
	ReplaceMessageTags(ctx context.Context, emailMessageID string, tagIDs []string) error
	// SeedDefaults creates the fixed seed tags if missing.
	SeedDefaults(ctx context.Context) error
}

// AccountRepository reads per-user mailbox credentials.
type AccountRepository interface {
	FindByUserID(ctx context.Context, userID string) (*domain.ConnectedAccount, error)
}
