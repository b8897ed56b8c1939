package vector

import (
	"context"
	"fmt"

	chroma "github.com/amikos-tech/chroma-go/pkg/api/v2"
	"github.com/amikos-tech/chroma-go/pkg/embeddings"

	"mailscope-backend/pkg/config"
)

const collectionName = "email_messages"

// Hit is one nearest-neighbor result: a message id with its cosine
// similarity to the query vector.
type Hit struct {
	EmailMessageID string
	Score          float64
}

// Index is the persistence capability for similarity-ranked top-K retrieval
// over fixed-dimension vectors.
type Index interface {
	Upsert(ctx context.Context, emailMessageID, userID string, vec []float32) error
	Query(ctx context.Context, userID string, vec []float32, limit int) ([]Hit, error)
}

// ChromaIndex stores embeddings in a Chroma collection keyed by message id,
// with user_id metadata for per-user scoping.
type ChromaIndex struct {
	client     chroma.Client
	collection chroma.Collection
}

func NewChromaIndex(cfg *config.Config) (*ChromaIndex, error) {
	if cfg.ChromaAPIKey == "" {
		return nil, fmt.Errorf("CHROMA_API_KEY is required")
	}

	var client chroma.Client
	var err error
	if cfg.ChromaDatabase != "" && cfg.ChromaTenant != "" {
		client, err = chroma.NewHTTPClient(
			chroma.WithBaseURL(chroma.ChromaCloudEndpoint),
			chroma.WithCloudAPIKey(cfg.ChromaAPIKey),
			chroma.WithDatabaseAndTenant(cfg.ChromaDatabase, cfg.ChromaTenant),
		)
	} else if cfg.ChromaTenant != "" {
		client, err = chroma.NewHTTPClient(
			chroma.WithBaseURL(chroma.ChromaCloudEndpoint),
			chroma.WithCloudAPIKey(cfg.ChromaAPIKey),
			chroma.WithTenant(cfg.ChromaTenant),
		)
	} else {
		client, err = chroma.NewHTTPClient(
			chroma.WithBaseURL(chroma.ChromaCloudEndpoint),
			chroma.WithCloudAPIKey(cfg.ChromaAPIKey),
		)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create Chroma client: %w", err)
	}

	// Vectors are computed by the embedding provider, so the collection is
	// created without an embedding function.
	collection, err := client.GetOrCreateCollection(context.Background(), collectionName)
	if err != nil {
		return nil, fmt.Errorf("failed to create collection: %w", err)
	}

	return &ChromaIndex{client: client, collection: collection}, nil
}

// Upsert writes the vector for a message, overwriting any prior vector for
// the same message id.
func (c *ChromaIndex) Upsert(ctx context.Context, emailMessageID, userID string, vec []float32) error {
	metadata, err := chroma.NewDocumentMetadataFromMap(map[string]interface{}{
		"user_id": userID,
	})
	if err != nil {
		return fmt.Errorf("failed to create metadata: %w", err)
	}

	err = c.collection.Upsert(
		ctx,
		chroma.WithIDs(chroma.DocumentID(emailMessageID)),
		chroma.WithEmbeddings(embeddings.NewEmbeddingFromFloat32(vec)),
		chroma.WithMetadatas(metadata),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert embedding: %w", err)
	}
	return nil
}

// Query returns up to limit message ids for the user ranked by cosine
// similarity to vec.
func (c *ChromaIndex) Query(ctx context.Context, userID string, vec []float32, limit int) ([]Hit, error) {
	results, err := c.collection.Query(
		ctx,
		chroma.WithQueryEmbeddings(embeddings.NewEmbeddingFromFloat32(vec)),
		chroma.WithNResults(limit),
		chroma.WithWhereQuery(chroma.EqString("user_id", userID)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query collection: %w", err)
	}
	if results == nil || results.CountGroups() == 0 {
		return nil, nil
	}

	idGroups := results.GetIDGroups()
	distanceGroups := results.GetDistancesGroups()
	if len(idGroups) == 0 || len(idGroups[0]) == 0 {
		return nil, nil
	}

	hits := make([]Hit, 0, len(idGroups[0]))
	for i, id := range idGroups[0] {
		hit := Hit{EmailMessageID: string(id)}
		if len(distanceGroups) > 0 && i < len(distanceGroups[0]) {
			// Cosine distance to similarity
			hit.Score = 1 - float64(distanceGroups[0][i])
		}
		hits = append(hits, hit)
	}
	return hits, nil
}
