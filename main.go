package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	api "mailscope-backend/cmd/api"
	indexingDomain "mailscope-backend/internal/indexing/domain"
	indexingRepo "mailscope-backend/internal/indexing/repository"
	indexingUsecase "mailscope-backend/internal/indexing/usecase"
	searchRepo "mailscope-backend/internal/search/repository"
	searchUsecase "mailscope-backend/internal/search/usecase"
	"mailscope-backend/pkg/ai"
	"mailscope-backend/pkg/config"
	"mailscope-backend/pkg/database"
	"mailscope-backend/pkg/gmail"
	"mailscope-backend/pkg/logger"
	"mailscope-backend/pkg/vector"
)

func main() {
	// Load configuration
	cfg := config.Load()

	log := logger.New()
	defer func() { _ = log.Sync() }()

	// Initialize database
	db, err := database.NewPostgresConnection(cfg)
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}

	// Auto-migrate database schemas
	if err := db.AutoMigrate(
		&indexingDomain.IndexJob{},
		&indexingDomain.EmailMessage{},
		&indexingDomain.EmailTag{},
		&indexingDomain.EmailMessageTag{},
		&indexingDomain.ConnectedAccount{},
	); err != nil {
		log.Fatal("failed to migrate database", zap.Error(err))
	}

	// Initialize repositories (dependency injection)
	jobRepository := indexingRepo.NewJobRepository(db)
	messageRepository := indexingRepo.NewMessageRepository(db)
	tagRepository := indexingRepo.NewTagRepository(db)
	accountRepository := indexingRepo.NewAccountRepository(db)
	searchRepository := searchRepo.NewSearchRepository(db)

	if err := tagRepository.SeedDefaults(context.Background()); err != nil {
		log.Fatal("failed to seed default tags", zap.Error(err))
	}

	// Initialize AI provider. A nil provider disables classification
	// fallback and the semantic search pass.
	provider, err := ai.NewProvider(ai.Config{
		Provider:      ai.ProviderType(cfg.AIProvider),
		GeminiAPIKey:  cfg.GeminiAPIKey,
		OllamaBaseURL: cfg.OllamaBaseURL,
		OllamaModel:   cfg.OllamaModel,
	})
	if err != nil {
		log.Fatal("failed to initialize AI provider", zap.Error(err))
	}
	if provider == nil {
		log.Warn("no AI provider configured, classification uses heuristics only and search is keyword-only")
	}

	var embedder ai.Embedder
	var classifier ai.Classifier
	if provider != nil {
		embedder = provider
		classifier = provider
	}

	// Initialize vector index for semantic search
	var index vector.Index
	if cfg.ChromaAPIKey != "" {
		chromaIndex, err := vector.NewChromaIndex(cfg)
		if err != nil {
			log.Warn("failed to initialize Chroma index, semantic search disabled", zap.Error(err))
		} else {
			index = chromaIndex
			log.Info("Chroma index initialized")
		}
	} else {
		log.Warn("CHROMA_API_KEY not set, semantic search disabled")
	}

	// Initialize mailbox providers
	gmailService := gmail.NewService(cfg.GoogleClientID, cfg.GoogleClientSecret)
	mailboxFactory := indexingUsecase.NewProviderMailboxFactory(gmailService, cfg.TokenEncryptionKey)

	// Initialize use cases
	tagClassifier := indexingUsecase.NewTagClassifier(classifier, log)
	jobUc := indexingUsecase.NewJobUsecase(jobRepository)
	searchUc := searchUsecase.NewSearchUsecase(searchRepository, embedder, index, log, cfg.ProviderTimeout)

	// Start the ingestion worker
	worker := indexingUsecase.NewWorker(
		jobRepository,
		messageRepository,
		tagRepository,
		accountRepository,
		mailboxFactory,
		tagClassifier,
		embedder,
		index,
		log,
		indexingUsecase.WorkerOptions{
			PollInterval:      cfg.WorkerPollInterval,
			ProviderTimeout:   cfg.ProviderTimeout,
			EmbedMaxBodyChars: cfg.EmbedMaxBodyChars,
		},
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	worker.Start(ctx)

	// Start HTTP server
	handler := api.NewHandler(jobUc, searchUc)
	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: handler.Engine(),
	}

	go func() {
		log.Info("server starting", zap.String("port", cfg.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("failed to start server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown failed", zap.Error(err))
	}
	worker.Stop()
}
