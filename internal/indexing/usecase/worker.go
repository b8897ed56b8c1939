package usecase

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"mailscope-backend/internal/indexing/domain"
	"mailscope-backend/internal/indexing/repository"
	"mailscope-backend/pkg/ai"
	"mailscope-backend/pkg/normalizer"
	"mailscope-backend/pkg/vector"
)

// MailboxFactory builds a MailboxClient for a connected account, decrypting
// the stored credential at call time.
type MailboxFactory interface {
	ClientFor(ctx context.Context, account *domain.ConnectedAccount) (domain.MailboxClient, error)
}

// Worker is the ingestion orchestration loop. It polls the job queue,
// claims one job at a time and drives each claimed job through
// fetch → normalize → persist → embed/classify.
type Worker struct {
	jobs       repository.JobRepository
	messages   repository.MessageRepository
	tags       repository.TagRepository
	accounts   repository.AccountRepository
	mailboxes  MailboxFactory
	classifier *TagClassifier
	embedder   ai.Embedder  // nil disables embedding
	index      vector.Index // nil disables embedding
	logger     *zap.Logger

	pollInterval      time.Duration
	providerTimeout   time.Duration
	embedMaxBodyChars int

	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// WorkerOptions carries the tunables of the ingestion loop.
type WorkerOptions struct {
	PollInterval      time.Duration
	ProviderTimeout   time.Duration
	EmbedMaxBodyChars int
}

func NewWorker(
	jobs repository.JobRepository,
	messages repository.MessageRepository,
	tags repository.TagRepository,
	accounts repository.AccountRepository,
	mailboxes MailboxFactory,
	classifier *TagClassifier,
	embedder ai.Embedder,
	index vector.Index,
	logger *zap.Logger,
	opts WorkerOptions,
) *Worker {
	if opts.PollInterval <= 0 {
		opts.PollInterval = 2 * time.Second
	}
	if opts.ProviderTimeout <= 0 {
		opts.ProviderTimeout = 30 * time.Second
	}
	if opts.EmbedMaxBodyChars <= 0 {
		opts.EmbedMaxBodyChars = 2000
	}

	return &Worker{
		jobs:              jobs,
		messages:          messages,
		tags:              tags,
		accounts:          accounts,
		mailboxes:         mailboxes,
		classifier:        classifier,
		embedder:          embedder,
		index:             index,
		logger:            logger,
		pollInterval:      opts.PollInterval,
		providerTimeout:   opts.ProviderTimeout,
		embedMaxBodyChars: opts.EmbedMaxBodyChars,
		stopChan:          make(chan struct{}),
	}
}

// Start begins the polling loop in a background goroutine.
func (w *Worker) Start(ctx context.Context) {
	w.logger.Info("starting ingestion worker",
		zap.Duration("poll_interval", w.pollInterval))

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()

		ticker := time.NewTicker(w.pollInterval)
		defer ticker.Stop()

		for {
			w.drainQueue(ctx)

			select {
			case <-ctx.Done():
				w.logger.Info("ingestion worker stopped")
				return
			case <-w.stopChan:
				w.logger.Info("ingestion worker stopped")
				return
			case <-ticker.C:
			}
		}
	}()
}

// Stop signals the loop to exit and waits for the current job to finish.
func (w *Worker) Stop() {
	w.stopOnce.Do(func() { close(w.stopChan) })
	w.wg.Wait()
}

// drainQueue claims and processes jobs until the queue is empty.
func (w *Worker) drainQueue(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopChan:
			return
		default:
		}

		job, err := w.jobs.ClaimNextQueued(ctx)
		if err != nil {
			w.logger.Error("failed to claim job", zap.Error(err))
			return
		}
		if job == nil {
			return
		}

		w.logger.Info("claimed index job",
			zap.String("job_id", job.ID),
			zap.String("user_id", job.UserID),
			zap.Int("total", job.Total))
		w.processJob(ctx, job)
	}
}

// processJob runs one claimed job to a terminal state. Job-fatal errors
// mark it FAILED with the error text; otherwise it completes.
func (w *Worker) processJob(ctx context.Context, job *domain.IndexJob) {
	if err := w.ingestMessages(ctx, job); err != nil {
		w.logger.Error("index job failed",
			zap.String("job_id", job.ID),
			zap.Error(err))
		if markErr := w.jobs.MarkFailed(ctx, job.ID, err.Error()); markErr != nil {
			w.logger.Error("failed to mark job failed",
				zap.String("job_id", job.ID),
				zap.Error(markErr))
		}
	}
}

func (w *Worker) ingestMessages(ctx context.Context, job *domain.IndexJob) error {
	account, err := w.accounts.FindByUserID(ctx, job.UserID)
	if err != nil {
		return fmt.Errorf("loading connected account: %w", err)
	}
	if account == nil {
		return fmt.Errorf("no connected mailbox account for user")
	}

	client, err := w.mailboxes.ClientFor(ctx, account)
	if err != nil {
		return err
	}

	listCtx, cancel := context.WithTimeout(ctx, w.providerTimeout)
	ids, err := client.ListRecentMessageIDs(listCtx, job.Total)
	cancel()
	if err != nil {
		return fmt.Errorf("listing mailbox messages: %w", err)
	}

	processed := 0
	for _, id := range ids {
		// A single bad message never aborts the job
		if err := w.processMessage(ctx, job.UserID, client, id); err != nil {
			w.logger.Warn("failed to ingest message",
				zap.String("job_id", job.ID),
				zap.String("provider_message_id", id),
				zap.Error(err))
		}

		processed++
		if err := w.jobs.UpdateProgress(ctx, job.ID, processed); err != nil {
			w.logger.Error("failed to update job progress",
				zap.String("job_id", job.ID),
				zap.Error(err))
		}
	}

	w.logger.Info("index job completed",
		zap.String("job_id", job.ID),
		zap.Int("processed", processed))
	return w.jobs.MarkCompleted(ctx, job.ID, processed)
}

func (w *Worker) processMessage(ctx context.Context, userID string, client domain.MailboxClient, id string) error {
	fetchCtx, cancel := context.WithTimeout(ctx, w.providerTimeout)
	full, err := client.GetFullMessage(fetchCtx, id)
	cancel()
	if err != nil {
		return err
	}

	norm := normalizer.Normalize(full)

	var date *time.Time
	if full.DateHeader != "" {
		if parsed, err := mail.ParseDate(full.DateHeader); err == nil {
			date = &parsed
		}
	}

	stored, err := w.messages.Upsert(ctx, &domain.EmailMessage{
		UserID:            userID,
		ProviderMessageID: full.ProviderMessageID,
		ThreadID:          norm.ThreadID,
		FromAddress:       norm.From,
		ToAddress:         norm.To,
		Subject:           norm.Subject,
		Date:              date,
		Snippet:           norm.Snippet,
		CleanedText:       norm.CleanedText,
		ContentHash:       norm.ContentHash,
	})
	if err != nil {
		return fmt.Errorf("upserting message: %w", err)
	}

	// Embedding and classification read the same inputs and are
	// independent of each other; run both concurrently.
	var wg sync.WaitGroup
	var embedErr, tagErr error
	wg.Add(2)
	go func() {
		defer wg.Done()
		embedErr = w.storeEmbedding(ctx, stored.ID, userID, norm.Subject, norm.CleanedText)
	}()
	go func() {
		defer wg.Done()
		tagErr = w.classifyAndTag(ctx, stored.ID, norm.Subject, norm.CleanedText, norm.From)
	}()
	wg.Wait()

	return errors.Join(embedErr, tagErr)
}

// storeEmbedding embeds subject + capped body prefix and upserts the vector
// keyed by message id. A missing provider is a deliberate degrade path, not
// an error.
func (w *Worker) storeEmbedding(ctx context.Context, emailMessageID, userID, subject, body string) error {
	if w.embedder == nil || w.index == nil {
		return nil
	}

	if len(body) > w.embedMaxBodyChars {
		cut := w.embedMaxBodyChars
		for cut > 0 && !utf8.RuneStart(body[cut]) {
			cut--
		}
		body = body[:cut]
	}
	input := strings.TrimSpace(subject + "\n\n" + body)
	if input == "" {
		return nil
	}

	embedCtx, cancel := context.WithTimeout(ctx, w.providerTimeout)
	defer cancel()

	vec, err := w.embedder.Embed(embedCtx, input)
	if err != nil {
		return fmt.Errorf("embedding message: %w", err)
	}
	if err := w.index.Upsert(ctx, emailMessageID, userID, vec); err != nil {
		return fmt.Errorf("storing embedding: %w", err)
	}
	return nil
}

// classifyAndTag runs the two-tier classifier and replaces the message's
// tag set with the result. Zero tags leave the prior set untouched.
func (w *Worker) classifyAndTag(ctx context.Context, emailMessageID, subject, body, from string) error {
	classifyCtx, cancel := context.WithTimeout(ctx, w.providerTimeout)
	tags := w.classifier.Classify(classifyCtx, subject, body, from)
	cancel()

	if len(tags) == 0 {
		return nil
	}

	tagIDs := make([]string, 0, len(tags))
	for _, name := range tags {
		tag, err := w.tags.EnsureTag(ctx, name)
		if err != nil {
			return fmt.Errorf("ensuring tag %q: %w", name, err)
		}
		tagIDs = append(tagIDs, tag.ID)
	}

	if err := w.tags.ReplaceMessageTags(ctx, emailMessageID, tagIDs); err != nil {
		return fmt.Errorf("replacing message tags: %w", err)
	}
	return nil
}
