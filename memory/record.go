package memory

import (
	"time"

	"github.com/google/uuid"
)

// Tier identifies which storage level holds a record.
type Tier string

const (
	// TierShort marks a volatile, TTL-bound record.
	TierShort Tier = "short"

	// TierLongPending marks a short-tier record whose promotion into the
	// long tier has started but is not yet confirmed.
	TierLongPending Tier = "long_pending"

	// TierLong marks a durable, similarity-searchable record.
	TierLong Tier = "long"
)

// Source records how a memory entered the system.
type Source string

const (
	// SourceExtracted means the fact was produced by extraction heuristics.
	SourceExtracted Source = "extracted"

	// SourceExplicit means the user asked for it to be remembered.
	SourceExplicit Source = "explicit"
)

// Record is a single memory fact about an owner.
//
// The embedding is computed lazily: extracted facts enter the short tier
// without one and get it the first time they are scored or promoted.
type Record struct {
	ID             string
	Owner          string
	Content        string
	Embedding      []float32
	Tier           Tier
	Source         Source
	CreatedAt      time.Time
	LastAccessedAt time.Time
	AccessCount    int64

	// TTLExpiresAt is set for short-tier residency only. Zero for records
	// that live purely in the long tier.
	TTLExpiresAt time.Time
}

// NewRecord creates a short-tier record for owner with the given TTL.
func NewRecord(owner, content string, source Source, ttl time.Duration) *Record {
	now := time.Now()
	return &Record{
		ID:             uuid.New().String(),
		Owner:          owner,
		Content:        content,
		Tier:           TierShort,
		Source:         source,
		CreatedAt:      now,
		LastAccessedAt: now,
		TTLExpiresAt:   now.Add(ttl),
	}
}

// Expired reports whether the short-tier residency of the record has lapsed.
// Records without a TTL never expire.
func (r *Record) Expired(now time.Time) bool {
	return !r.TTLExpiresAt.IsZero() && now.After(r.TTLExpiresAt)
}

// Clone returns a deep copy. Store adapters hand out clones so callers can
// never mutate cached state behind the store's back.
func (r *Record) Clone() *Record {
	c := *r
	if r.Embedding != nil {
		c.Embedding = make([]float32, len(r.Embedding))
		copy(c.Embedding, r.Embedding)
	}
	return &c
}

// Scored pairs a record with its relevance score for the current query.
// Scores are cosine similarity clamped to [0,1].
type Scored struct {
	Record *Record
	Score  float64
}
