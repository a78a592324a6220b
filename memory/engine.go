package memory

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
)

// Engine orchestrates the two memory tiers. It is safe for arbitrary
// concurrent use per owner and across owners; the only in-process state it
// holds is the promotion queue and the interaction counters.
type Engine struct {
	short     ShortTermStore
	long      LongTermStore
	embedder  Embedder
	extractor Extractor
	cfg       Config
	logger    *log.Logger

	promoteCh chan promoteRequest
	quit      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup

	totalInteractions atomic.Int64
	ownerInteractions sync.Map // owner -> *atomic.Int64

	// Record IDs removed by Forget, kept so asynchronous writers that read
	// the record before the forget never write it back afterwards.
	forgotten sync.Map // owner + "\x00" + id -> time.Time
}

// Option configures the engine.
type Option func(*Engine)

// WithConfig overrides the default configuration. Zero fields keep their
// defaults.
func WithConfig(cfg *Config) Option {
	return func(e *Engine) {
		if cfg != nil {
			e.cfg = cfg.withDefaults()
		}
	}
}

// WithExtractor replaces the default RuleExtractor.
func WithExtractor(x Extractor) Option {
	return func(e *Engine) {
		if x != nil {
			e.extractor = x
		}
	}
}

// WithLogger sets the structured logger.
func WithLogger(l *log.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// NewEngine creates an engine over the two tiers and starts the background
// promotion worker. Call Close to stop it.
func NewEngine(short ShortTermStore, long LongTermStore, embedder Embedder, opts ...Option) *Engine {
	e := &Engine{
		short:     short,
		long:      long,
		embedder:  embedder,
		extractor: &RuleExtractor{},
		cfg:       DefaultConfig.withDefaults(),
		logger:    log.Default().WithPrefix("tiermem"),
		quit:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.promoteCh = make(chan promoteRequest, e.cfg.PromoteQueueSize)

	e.wg.Add(1)
	go e.promoteLoop()
	return e
}

// Close stops the promotion worker and waits for in-flight background work.
func (e *Engine) Close() {
	e.closeOnce.Do(func() {
		close(e.quit)
	})
	e.wg.Wait()
}

// RememberResult reports the outcome of an explicit remember.
type RememberResult struct {
	Stored bool
	Tier   Tier
}

// ForgetResult reports per-tier removal counts. A tier that was
// unreachable contributes a zero count and sets its unavailability flag so
// callers can tell "nothing matched" from "could not check".
type ForgetResult struct {
	RemovedShort     int
	RemovedLong      int
	ShortUnavailable bool
	LongUnavailable  bool
}

// InteractionResult reports how many candidate facts an interaction stored.
type InteractionResult struct {
	FactsStored int
}

// Stats summarizes memory state for one owner or process-wide.
type Stats struct {
	ShortCount        int
	LongCount         int
	TotalInteractions int64
}

// Retrieve answers "what do I know about this owner that is relevant to
// query". Results are ranked by score descending with recency and access
// count as tie-breaks, near-duplicates collapsed, truncated to limit.
//
// limit <= 0 and minScore <= 0 fall back to the configured defaults. Store
// unavailability degrades to the reachable tier, or to an empty result;
// only embedding failure returns an error.
func (e *Engine) Retrieve(ctx context.Context, owner, query string, limit int, minScore float64) ([]Scored, error) {
	if limit <= 0 {
		limit = e.cfg.RetrieveLimit
	}
	if minScore <= 0 {
		minScore = e.cfg.MinScore
	}

	queryEmb, err := e.embedder.Embed(ctx, query)
	if err != nil {
		return nil, &EmbeddingError{Err: err}
	}

	var merged []Scored

	sctx, cancel := context.WithTimeout(ctx, e.cfg.ShortTimeout)
	shortRecs, err := e.short.GetAll(sctx, owner)
	cancel()
	if err != nil {
		e.logger.Warn("short tier unavailable, degrading", "owner", owner, "err", err)
	} else {
		now := time.Now()
		for _, rec := range shortRecs {
			if rec.Expired(now) {
				continue
			}
			emb, err := e.recordEmbedding(ctx, owner, rec)
			if err != nil {
				e.logger.Warn("skipping unembeddable record", "owner", owner, "id", rec.ID, "err", err)
				continue
			}
			if score := Cosine(queryEmb, emb); score > minScore {
				merged = append(merged, Scored{Record: rec, Score: score})
			}
		}
	}

	lctx, cancel := context.WithTimeout(ctx, e.cfg.LongTimeout)
	longScored, err := e.long.Query(lctx, owner, queryEmb, e.cfg.LongQueryK, minScore)
	cancel()
	if err != nil {
		e.logger.Warn("long tier unavailable, degrading", "owner", owner, "err", err)
	} else {
		merged = append(merged, longScored...)
	}

	sortRanked(merged)
	merged = collapse(merged, e.cfg.DedupThreshold)
	if len(merged) > limit {
		merged = merged[:limit]
	}

	e.touchAsync(owner, merged)
	return merged, nil
}

// Remember persists content for owner on the user's explicit request. It
// writes straight into the long tier so durability never waits on access
// counts, and leaves a short-tier copy for cheap recall. Returns an error
// only when embedding fails or neither tier accepted the write.
func (e *Engine) Remember(ctx context.Context, owner, content string) (RememberResult, error) {
	emb, err := e.embedder.Embed(ctx, content)
	if err != nil {
		return RememberResult{}, &EmbeddingError{Err: err}
	}

	rec := NewRecord(owner, content, SourceExplicit, e.cfg.ShortTTL)
	rec.Embedding = emb

	longRec := rec.Clone()
	longRec.Tier = TierLong
	longRec.TTLExpiresAt = time.Time{}

	lctx, cancel := context.WithTimeout(ctx, e.cfg.LongTimeout)
	longErr := e.long.Upsert(lctx, owner, longRec)
	cancel()
	if longErr != nil {
		e.logger.Warn("explicit remember could not reach long tier", "owner", owner, "err", longErr)
		rec.Tier = TierShort
	} else {
		rec.Tier = TierLong
	}

	sctx, cancel := context.WithTimeout(ctx, e.cfg.ShortTimeout)
	shortErr := e.short.Put(sctx, owner, rec, e.cfg.ShortTTL)
	cancel()
	if shortErr != nil {
		e.logger.Warn("explicit remember could not reach short tier", "owner", owner, "err", shortErr)
	}

	if longErr != nil && shortErr != nil {
		return RememberResult{}, ErrUnavailable
	}
	tier := TierLong
	if longErr != nil {
		tier = TierShort
	}
	return RememberResult{Stored: true, Tier: tier}, nil
}

// Forget removes memories matching the query from both tiers. The two
// deletions are independent best-effort calls; a tier that cannot be
// reached is flagged for a later reconciliation sweep rather than failing
// the call. Matching nothing is a normal zero-count outcome.
func (e *Engine) Forget(ctx context.Context, owner, query string) (ForgetResult, error) {
	queryEmb, err := e.embedder.Embed(ctx, query)
	if err != nil {
		return ForgetResult{}, &EmbeddingError{Err: err}
	}
	e.pruneForgotten()

	var res ForgetResult

	sctx, cancel := context.WithTimeout(ctx, e.cfg.ShortTimeout)
	shortRecs, err := e.short.GetAll(sctx, owner)
	cancel()
	if err != nil {
		res.ShortUnavailable = true
	} else {
		now := time.Now()
		for _, rec := range shortRecs {
			if rec.Expired(now) {
				continue
			}
			emb, err := e.recordEmbedding(ctx, owner, rec)
			if err != nil {
				continue
			}
			if Cosine(queryEmb, emb) < e.cfg.ForgetThreshold {
				continue
			}
			dctx, cancel := context.WithTimeout(ctx, e.cfg.ShortTimeout)
			removed, err := e.short.Delete(dctx, owner, rec.ID)
			cancel()
			if err != nil {
				res.ShortUnavailable = true
				continue
			}
			if removed {
				res.RemovedShort++
				e.markForgotten(owner, rec.ID)
			}
		}
	}

	lctx, cancel := context.WithTimeout(ctx, e.cfg.LongTimeout)
	removedLong, err := e.long.DeleteMatching(lctx, owner, queryEmb, e.cfg.ForgetThreshold)
	cancel()
	if err != nil {
		res.LongUnavailable = true
	} else {
		res.RemovedLong = removedLong
	}

	if res.ShortUnavailable || res.LongUnavailable {
		// A forgotten record may survive in the unreachable tier until a
		// background sweep reconciles it; never let that happen silently.
		e.logger.Warn("forget incomplete, reconciliation needed",
			"owner", owner,
			"short_unavailable", res.ShortUnavailable,
			"long_unavailable", res.LongUnavailable)
	}
	return res, nil
}

// RecordInteraction ingests one conversational exchange. Explicit
// remember/forget commands bypass extraction; everything else runs through
// the configured Extractor and lands in the short tier.
func (e *Engine) RecordInteraction(ctx context.Context, owner, userText, assistantText string) (InteractionResult, error) {
	e.bumpInteractions(owner)

	if cmd, ok := ParseCommand(userText); ok {
		switch cmd.Kind {
		case CommandRemember:
			res, err := e.Remember(ctx, owner, cmd.Argument)
			if err != nil {
				return InteractionResult{}, err
			}
			if res.Stored {
				return InteractionResult{FactsStored: 1}, nil
			}
			return InteractionResult{}, nil
		case CommandForget:
			if _, err := e.Forget(ctx, owner, cmd.Argument); err != nil {
				return InteractionResult{}, err
			}
			return InteractionResult{}, nil
		}
	}

	facts, err := e.extractor.Extract(ctx, userText, assistantText)
	if err != nil {
		e.logger.Warn("fact extraction failed", "owner", owner, "err", err)
		return InteractionResult{}, nil
	}

	stored := 0
	for _, fact := range facts {
		if stored >= e.cfg.MaxFactsPerInteraction {
			break
		}
		rec := NewRecord(owner, fact, SourceExtracted, e.cfg.ShortTTL)
		sctx, cancel := context.WithTimeout(ctx, e.cfg.ShortTimeout)
		err := e.short.Put(sctx, owner, rec, e.cfg.ShortTTL)
		cancel()
		if err != nil {
			e.logger.Warn("could not store extracted fact", "owner", owner, "err", err)
			continue
		}
		stored++
	}
	return InteractionResult{FactsStored: stored}, nil
}

// OwnerStats returns counts for a single owner. An unreachable tier
// contributes zero rather than an error.
func (e *Engine) OwnerStats(ctx context.Context, owner string) (Stats, error) {
	var s Stats

	sctx, cancel := context.WithTimeout(ctx, e.cfg.ShortTimeout)
	n, err := e.short.Count(sctx, owner)
	cancel()
	if err != nil {
		e.logger.Warn("short tier count unavailable", "owner", owner, "err", err)
	} else {
		s.ShortCount = n
	}

	lctx, cancel := context.WithTimeout(ctx, e.cfg.LongTimeout)
	n, err = e.long.Count(lctx, owner)
	cancel()
	if err != nil {
		e.logger.Warn("long tier count unavailable", "owner", owner, "err", err)
	} else {
		s.LongCount = n
	}

	if v, ok := e.ownerInteractions.Load(owner); ok {
		s.TotalInteractions = v.(*atomic.Int64).Load()
	}
	return s, nil
}

// GlobalStats returns process-wide aggregate counts across all owners.
func (e *Engine) GlobalStats(ctx context.Context) (Stats, error) {
	var s Stats

	sctx, cancel := context.WithTimeout(ctx, e.cfg.ShortTimeout)
	n, err := e.short.TotalCount(sctx)
	cancel()
	if err != nil {
		e.logger.Warn("short tier total count unavailable", "err", err)
	} else {
		s.ShortCount = n
	}

	lctx, cancel := context.WithTimeout(ctx, e.cfg.LongTimeout)
	n, err = e.long.TotalCount(lctx)
	cancel()
	if err != nil {
		e.logger.Warn("long tier total count unavailable", "err", err)
	} else {
		s.LongCount = n
	}

	s.TotalInteractions = e.totalInteractions.Load()
	return s, nil
}

func (e *Engine) bumpInteractions(owner string) {
	e.totalInteractions.Add(1)
	v, _ := e.ownerInteractions.LoadOrStore(owner, &atomic.Int64{})
	v.(*atomic.Int64).Add(1)
}

// recordEmbedding returns the record's embedding, computing and caching it
// on first use. The write-back is best-effort; a record that cannot be
// re-put simply gets re-embedded next time.
func (e *Engine) recordEmbedding(ctx context.Context, owner string, rec *Record) ([]float32, error) {
	if len(rec.Embedding) > 0 {
		return rec.Embedding, nil
	}
	emb, err := e.embedder.Embed(ctx, rec.Content)
	if err != nil {
		return nil, err
	}
	rec.Embedding = emb

	ttl := time.Until(rec.TTLExpiresAt)
	if ttl > 0 && !e.wasForgotten(owner, rec.ID) {
		sctx, cancel := context.WithTimeout(ctx, e.cfg.ShortTimeout)
		if err := e.short.Put(sctx, owner, rec, ttl); err != nil {
			e.logger.Debug("embedding write-back skipped", "owner", owner, "id", rec.ID, "err", err)
		}
		cancel()
	}
	return emb, nil
}

// touchAsync records the read against every returned record without adding
// to retrieval latency. Only short-tier residents are touched: Touch on the
// store either lands on a live record or reports it gone, so a concurrent
// forget can never be undone from here. Long-only records are left alone,
// their access count only feeds ranking tie-breaks and is not worth a write
// that could race a forget.
func (e *Engine) touchAsync(owner string, results []Scored) {
	if len(results) == 0 {
		return
	}
	recs := make([]*Record, 0, len(results))
	for _, r := range results {
		recs = append(recs, r.Record.Clone())
	}

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		for _, rec := range recs {
			select {
			case <-e.quit:
				return
			default:
			}
			if rec.Tier == TierLong && rec.TTLExpiresAt.IsZero() {
				continue
			}

			sctx, cancel := context.WithTimeout(context.Background(), e.cfg.ShortTimeout)
			count, err := e.short.Touch(sctx, owner, rec.ID)
			cancel()
			if err != nil {
				e.logger.Debug("touch skipped", "owner", owner, "id", rec.ID, "err", err)
				continue
			}
			if count >= e.cfg.PromotionThreshold && rec.Tier != TierLong {
				e.enqueuePromotion(promoteRequest{owner: owner, id: rec.ID})
			}
		}
	}()
}

func forgetKey(owner, id string) string { return owner + "\x00" + id }

func (e *Engine) markForgotten(owner, id string) {
	e.forgotten.Store(forgetKey(owner, id), time.Now())
}

func (e *Engine) wasForgotten(owner, id string) bool {
	_, ok := e.forgotten.Load(forgetKey(owner, id))
	return ok
}

// pruneForgotten drops tombstones old enough that no in-flight promotion
// can still reference them. Record IDs are never reused, so an early prune
// would only cost correctness, not memory, hence the generous ShortTTL
// horizon.
func (e *Engine) pruneForgotten() {
	cutoff := time.Now().Add(-e.cfg.ShortTTL)
	e.forgotten.Range(func(k, v any) bool {
		if t, ok := v.(time.Time); ok && t.Before(cutoff) {
			e.forgotten.Delete(k)
		}
		return true
	})
}
