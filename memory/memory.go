package memory

import (
	"context"
	"time"
)

// ShortTermStore is the TTL-bound key/value tier.
// Implementations: RistrettoStore (store/ristretto). Must fail soft: an
// unreachable backend returns ErrUnavailable so the engine can degrade to
// long-term-only retrieval.
type ShortTermStore interface {
	// Put stores a record for owner with the given TTL, replacing any
	// record with the same ID.
	Put(ctx context.Context, owner string, rec *Record, ttl time.Duration) error

	// GetAll returns every live (non-evicted) record for owner.
	GetAll(ctx context.Context, owner string) ([]*Record, error)

	// Touch increments the record's access count by exactly one and
	// returns the new count. Returns ErrNotFound for unknown IDs.
	Touch(ctx context.Context, owner, id string) (int64, error)

	// Delete removes a record; the bool reports whether it existed.
	Delete(ctx context.Context, owner, id string) (bool, error)

	// Count returns the number of live records for owner.
	Count(ctx context.Context, owner string) (int, error)

	// TotalCount returns the number of live records across all owners.
	TotalCount(ctx context.Context) (int, error)
}

// LongTermStore is the persistent vector tier.
// Implementations: ChromemStore (store/chromem). Same ErrUnavailable
// degrade contract as ShortTermStore.
type LongTermStore interface {
	// Upsert stores a record with its embedding, keyed by record ID.
	// Re-upserting an existing ID overwrites rather than duplicates, which
	// is what keeps promotion idempotent.
	Upsert(ctx context.Context, owner string, rec *Record) error

	// Query returns up to k records for owner ranked by similarity to the
	// given embedding, strictly above minScore.
	Query(ctx context.Context, owner string, embedding []float32, k int, minScore float64) ([]Scored, error)

	// DeleteMatching removes every record for owner scoring at or above
	// minScore against the given embedding and returns how many went.
	DeleteMatching(ctx context.Context, owner string, embedding []float32, minScore float64) (int, error)

	// Delete removes a single record by ID. Unknown IDs are a no-op.
	Delete(ctx context.Context, owner, id string) error

	// Count returns the number of records for owner.
	Count(ctx context.Context, owner string) (int, error)

	// TotalCount returns the number of records across all owners.
	TotalCount(ctx context.Context) (int, error)
}

// Embedder converts text to vector embeddings.
// Implementations: mock (testing/local), or any API-backed embedder.
//
// Embed must be deterministic for identical input; promotion idempotence
// relies on it.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimensions() int
}

// Extractor produces candidate facts from a conversational exchange.
// Implementations: RuleExtractor (default), extractor/llm (Claude-backed).
type Extractor interface {
	Extract(ctx context.Context, userText, assistantText string) ([]string, error)
}
