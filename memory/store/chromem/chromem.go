// Package chromem adapts philippgille/chromem-go into the long-term memory
// tier: a persistent, similarity-searchable vector index with record
// metadata stored beside each embedding.
package chromem

import (
	"context"
	"strconv"
	"sync"
	"time"

	chromem "github.com/philippgille/chromem-go"

	"github.com/tidemark-ai/tiermem/memory"
)

// Store implements memory.LongTermStore on chromem-go.
// Each owner gets their own collection, which is what enforces owner
// isolation at the storage level.
type Store struct {
	db          *chromem.DB
	collections map[string]*chromem.Collection
	mu          sync.RWMutex
}

// New creates an in-memory long-term store.
func New() (*Store, error) {
	return &Store{
		db:          chromem.NewDB(),
		collections: make(map[string]*chromem.Collection),
	}, nil
}

// NewPersistent creates a long-term store backed by a directory on disk, so
// records survive restarts.
func NewPersistent(path string) (*Store, error) {
	db, err := chromem.NewPersistentDB(path, false)
	if err != nil {
		return nil, err
	}
	return &Store{
		db:          db,
		collections: make(map[string]*chromem.Collection),
	}, nil
}

// getOrCreateCollection returns the collection for an owner.
func (s *Store) getOrCreateCollection(owner string) (*chromem.Collection, error) {
	s.mu.RLock()
	col, exists := s.collections[owner]
	s.mu.RUnlock()
	if exists {
		return col, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Double-check after acquiring write lock.
	if col, exists := s.collections[owner]; exists {
		return col, nil
	}

	col, err := s.db.GetOrCreateCollection("owner_"+owner, nil, nil)
	if err != nil {
		return nil, err
	}
	s.collections[owner] = col
	return col, nil
}

// Upsert stores a record with its embedding, keyed by record ID. Writing
// the same ID again overwrites, which keeps re-promotion duplicate-free.
func (s *Store) Upsert(ctx context.Context, owner string, rec *memory.Record) error {
	if err := ctxErr(ctx); err != nil {
		return err
	}
	col, err := s.getOrCreateCollection(owner)
	if err != nil {
		return err
	}

	doc := chromem.Document{
		ID:        rec.ID,
		Content:   rec.Content,
		Embedding: rec.Embedding,
		Metadata: map[string]string{
			"owner_id":         owner,
			"source":           string(rec.Source),
			"created_at":       rec.CreatedAt.Format(time.RFC3339Nano),
			"last_accessed_at": rec.LastAccessedAt.Format(time.RFC3339Nano),
			"access_count":     strconv.FormatInt(rec.AccessCount, 10),
		},
	}
	return col.AddDocument(ctx, doc)
}

// Query returns up to k records ranked by similarity, strictly above
// minScore. Negative similarities clamp to zero so scores stay in [0,1].
func (s *Store) Query(ctx context.Context, owner string, embedding []float32, k int, minScore float64) ([]memory.Scored, error) {
	if err := ctxErr(ctx); err != nil {
		return nil, err
	}
	col, err := s.getOrCreateCollection(owner)
	if err != nil {
		return nil, err
	}

	// chromem rejects nResults larger than the collection.
	n := col.Count()
	if n == 0 {
		return nil, nil
	}
	if k > n {
		k = n
	}

	where := map[string]string{"owner_id": owner}
	results, err := col.QueryEmbedding(ctx, embedding, k, where, nil)
	if err != nil {
		return nil, err
	}

	var scored []memory.Scored
	for _, res := range results {
		score := clampScore(res.Similarity)
		if score <= minScore {
			continue
		}
		scored = append(scored, memory.Scored{
			Record: recordFromResult(owner, res),
			Score:  score,
		})
	}
	return scored, nil
}

// DeleteMatching removes every record scoring at or above minScore against
// the embedding and returns the removal count.
func (s *Store) DeleteMatching(ctx context.Context, owner string, embedding []float32, minScore float64) (int, error) {
	if err := ctxErr(ctx); err != nil {
		return 0, err
	}
	col, err := s.getOrCreateCollection(owner)
	if err != nil {
		return 0, err
	}

	n := col.Count()
	if n == 0 {
		return 0, nil
	}
	results, err := col.QueryEmbedding(ctx, embedding, n, map[string]string{"owner_id": owner}, nil)
	if err != nil {
		return 0, err
	}

	var ids []string
	for _, res := range results {
		if clampScore(res.Similarity) >= minScore {
			ids = append(ids, res.ID)
		}
	}
	if len(ids) == 0 {
		return 0, nil
	}
	if err := col.Delete(ctx, nil, nil, ids...); err != nil {
		return 0, err
	}
	return len(ids), nil
}

// Delete removes a single record by ID. Deleting an ID the collection does
// not hold is a no-op.
func (s *Store) Delete(ctx context.Context, owner, id string) error {
	if err := ctxErr(ctx); err != nil {
		return err
	}
	col, err := s.getOrCreateCollection(owner)
	if err != nil {
		return err
	}
	return col.Delete(ctx, nil, nil, id)
}

// Count returns the number of records for owner.
func (s *Store) Count(ctx context.Context, owner string) (int, error) {
	if err := ctxErr(ctx); err != nil {
		return 0, err
	}
	col, err := s.getOrCreateCollection(owner)
	if err != nil {
		return 0, err
	}
	return col.Count(), nil
}

// TotalCount returns the number of records across all owners. It walks the
// database's own collection list rather than the lazily-built local map, so
// collections persisted by an earlier process are counted before any owner
// from them has been touched.
func (s *Store) TotalCount(ctx context.Context) (int, error) {
	if err := ctxErr(ctx); err != nil {
		return 0, err
	}
	total := 0
	for _, col := range s.db.ListCollections() {
		total += col.Count()
	}
	return total, nil
}

// recordFromResult rebuilds a memory.Record from the stored metadata.
func recordFromResult(owner string, res chromem.Result) *memory.Record {
	createdAt, _ := time.Parse(time.RFC3339Nano, res.Metadata["created_at"])
	lastAccessed, _ := time.Parse(time.RFC3339Nano, res.Metadata["last_accessed_at"])
	accessCount, _ := strconv.ParseInt(res.Metadata["access_count"], 10, 64)

	return &memory.Record{
		ID:             res.ID,
		Owner:          owner,
		Content:        res.Content,
		Embedding:      res.Embedding,
		Tier:           memory.TierLong,
		Source:         memory.Source(res.Metadata["source"]),
		CreatedAt:      createdAt,
		LastAccessedAt: lastAccessed,
		AccessCount:    accessCount,
	}
}

func clampScore(sim float32) float64 {
	score := float64(sim)
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}

// ctxErr maps a spent context onto the tier's Unavailable contract.
func ctxErr(ctx context.Context) error {
	if ctx.Err() != nil {
		return memory.ErrUnavailable
	}
	return nil
}
