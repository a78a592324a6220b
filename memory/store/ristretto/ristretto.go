// Package ristretto adapts dgraph-io/ristretto into the short-term memory
// tier: a TTL-bound key/value cache with per-owner listing.
//
// Ristretto itself has no iteration, so the adapter keeps a per-owner ID
// index beside the cache. The index may briefly hold IDs the cache has
// already evicted or expired; reads prune them.
package ristretto

import (
	"context"
	"sync"
	"time"

	dristretto "github.com/dgraph-io/ristretto"

	"github.com/tidemark-ai/tiermem/memory"
)

// Store implements memory.ShortTermStore on a ristretto cache.
type Store struct {
	cache *dristretto.Cache

	mu    sync.RWMutex
	index map[string]map[string]struct{} // owner -> record IDs
}

// Config sizes the underlying cache.
type Config struct {
	// MaxRecords bounds the number of resident records. Default: 100_000.
	MaxRecords int64
}

// New creates a short-term store.
func New(cfg Config) (*Store, error) {
	maxRecords := cfg.MaxRecords
	if maxRecords <= 0 {
		maxRecords = 100_000
	}
	cache, err := dristretto.NewCache(&dristretto.Config{
		NumCounters: maxRecords * 10,
		MaxCost:     maxRecords,
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}
	return &Store{
		cache: cache,
		index: make(map[string]map[string]struct{}),
	}, nil
}

// Close releases the cache.
func (s *Store) Close() {
	s.cache.Close()
}

func key(owner, id string) string {
	return owner + "\x00" + id
}

// Put stores a clone of rec for owner under the given TTL, replacing any
// record with the same ID.
func (s *Store) Put(ctx context.Context, owner string, rec *memory.Record, ttl time.Duration) error {
	if err := ctxErr(ctx); err != nil {
		return err
	}

	stored := rec.Clone()
	stored.Owner = owner
	stored.TTLExpiresAt = time.Now().Add(ttl)

	s.mu.Lock()
	ids, ok := s.index[owner]
	if !ok {
		ids = make(map[string]struct{})
		s.index[owner] = ids
	}
	ids[stored.ID] = struct{}{}
	s.cache.SetWithTTL(key(owner, stored.ID), stored, 1, ttl)
	s.mu.Unlock()

	// Ristretto applies sets through a buffer; flush so the record is
	// immediately readable.
	s.cache.Wait()
	return nil
}

// GetAll returns clones of every live record for owner, pruning index
// entries the cache no longer holds.
func (s *Store) GetAll(ctx context.Context, owner string) ([]*memory.Record, error) {
	if err := ctxErr(ctx); err != nil {
		return nil, err
	}

	// Clone under the read lock: Touch mutates resident records under the
	// write lock, so this is what keeps reads race-free.
	s.mu.RLock()
	now := time.Now()
	var out []*memory.Record
	var stale []string
	for id := range s.index[owner] {
		v, ok := s.cache.Get(key(owner, id))
		if !ok {
			stale = append(stale, id)
			continue
		}
		rec := v.(*memory.Record)
		if rec.Expired(now) {
			stale = append(stale, id)
			continue
		}
		out = append(out, rec.Clone())
	}
	s.mu.RUnlock()

	if len(stale) > 0 {
		s.mu.Lock()
		for _, id := range stale {
			delete(s.index[owner], id)
			s.cache.Del(key(owner, id))
		}
		if len(s.index[owner]) == 0 {
			delete(s.index, owner)
		}
		s.mu.Unlock()
	}
	return out, nil
}

// Touch increments the record's access count by exactly one and stamps the
// access time. The store-wide lock serializes racing touches so the count
// stays monotone.
func (s *Store) Touch(ctx context.Context, owner, id string) (int64, error) {
	if err := ctxErr(ctx); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.cache.Get(key(owner, id))
	if !ok {
		return 0, memory.ErrNotFound
	}
	rec := v.(*memory.Record)
	if rec.Expired(time.Now()) {
		return 0, memory.ErrNotFound
	}
	rec.AccessCount++
	rec.LastAccessedAt = time.Now()
	return rec.AccessCount, nil
}

// Delete removes a record; the bool reports whether it existed.
func (s *Store) Delete(ctx context.Context, owner, id string) (bool, error) {
	if err := ctxErr(ctx); err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, existed := s.cache.Get(key(owner, id))
	s.cache.Del(key(owner, id))
	if ids, ok := s.index[owner]; ok {
		if _, ok := ids[id]; ok {
			existed = true
			delete(ids, id)
			if len(ids) == 0 {
				delete(s.index, owner)
			}
		}
	}
	return existed, nil
}

// Count returns the number of live records for owner.
func (s *Store) Count(ctx context.Context, owner string) (int, error) {
	recs, err := s.GetAll(ctx, owner)
	if err != nil {
		return 0, err
	}
	return len(recs), nil
}

// TotalCount returns the number of live records across all owners.
func (s *Store) TotalCount(ctx context.Context) (int, error) {
	s.mu.RLock()
	owners := make([]string, 0, len(s.index))
	for owner := range s.index {
		owners = append(owners, owner)
	}
	s.mu.RUnlock()

	total := 0
	for _, owner := range owners {
		n, err := s.Count(ctx, owner)
		if err != nil {
			return 0, err
		}
		total += n
	}
	return total, nil
}

// ctxErr maps a spent context onto the tier's Unavailable contract.
func ctxErr(ctx context.Context) error {
	if ctx.Err() != nil {
		return memory.ErrUnavailable
	}
	return nil
}
