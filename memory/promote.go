package memory

import (
	"context"
	"time"
)

// Promotion runs off the request path: touches that cross the threshold
// enqueue a request here, and a single background worker does the
// embedding and long-tier write. The worker is idempotent end to end, so
// racing touches that enqueue the same record twice are harmless.

type promoteRequest struct {
	owner   string
	id      string
	attempt int
}

func (e *Engine) enqueuePromotion(req promoteRequest) {
	select {
	case <-e.quit:
	case e.promoteCh <- req:
	default:
		// Queue full. Dropping is safe: the threshold is still crossed,
		// so the next read re-enqueues.
		e.logger.Warn("promotion queue full, deferring", "owner", req.owner, "id", req.id)
	}
}

func (e *Engine) promoteLoop() {
	defer e.wg.Done()
	for {
		select {
		case <-e.quit:
			return
		case req := <-e.promoteCh:
			e.promote(req)
		}
	}
}

// promote copies one short-tier record into the long tier. The short copy
// walks SHORT -> LONG_PENDING -> LONG; anything left short of LONG is
// retried by the next read, never dropped silently.
func (e *Engine) promote(req promoteRequest) {
	if e.wasForgotten(req.owner, req.id) {
		return
	}
	rec := e.findShort(req.owner, req.id)
	if rec == nil {
		// Expired or already forgotten between enqueue and now.
		return
	}
	if rec.Tier == TierLong {
		return
	}

	ttl := time.Until(rec.TTLExpiresAt)
	if ttl <= 0 {
		return
	}

	rec.Tier = TierLongPending
	if err := e.putShort(req.owner, rec, ttl); err != nil {
		e.retryPromotion(req, err)
		return
	}

	if len(rec.Embedding) == 0 {
		ectx, cancel := context.WithTimeout(context.Background(), e.cfg.LongTimeout)
		emb, err := e.embedder.Embed(ectx, rec.Content)
		cancel()
		if err != nil {
			e.retryPromotion(req, err)
			return
		}
		rec.Embedding = emb
	}

	longRec := rec.Clone()
	longRec.Tier = TierLong
	longRec.TTLExpiresAt = time.Time{}

	lctx, cancel := context.WithTimeout(context.Background(), e.cfg.LongTimeout)
	err := e.long.Upsert(lctx, req.owner, longRec)
	cancel()
	if err != nil {
		e.retryPromotion(req, err)
		return
	}

	rec.Tier = TierLong
	if err := e.putShort(req.owner, rec, ttl); err != nil {
		// The long-tier write landed; the stale short copy only costs a
		// redundant upsert on the next threshold crossing.
		e.logger.Warn("promotion confirmed but short copy not updated",
			"owner", req.owner, "id", req.id, "err", err)
	}

	// A forget that ran while the writes above were in flight has already
	// deleted this record; undo the writes so it stays forgotten.
	if e.wasForgotten(req.owner, req.id) {
		e.undoPromotion(req.owner, req.id)
		return
	}
	e.logger.Debug("promoted record", "owner", req.owner, "id", req.id, "access_count", rec.AccessCount)
}

// undoPromotion removes a record that a concurrent forget already claimed.
func (e *Engine) undoPromotion(owner, id string) {
	e.logger.Warn("promotion raced forget, removing record", "owner", owner, "id", id)

	lctx, cancel := context.WithTimeout(context.Background(), e.cfg.LongTimeout)
	err := e.long.Delete(lctx, owner, id)
	cancel()
	if err != nil {
		e.logger.Warn("forgotten record still in long tier, reconciliation needed",
			"owner", owner, "id", id, "err", err)
	}

	sctx, cancel := context.WithTimeout(context.Background(), e.cfg.ShortTimeout)
	_, err = e.short.Delete(sctx, owner, id)
	cancel()
	if err != nil {
		e.logger.Warn("forgotten record still in short tier, reconciliation needed",
			"owner", owner, "id", id, "err", err)
	}
}

// retryPromotion re-enqueues with exponential backoff until the attempt
// budget runs out; after that the next read carries it.
func (e *Engine) retryPromotion(req promoteRequest, cause error) {
	if req.attempt >= e.cfg.PromoteRetries {
		e.logger.Warn("promotion abandoned until next read",
			"owner", req.owner, "id", req.id, "attempts", req.attempt, "err", cause)
		return
	}
	req.attempt++
	delay := e.cfg.PromoteBackoff << (req.attempt - 1)
	e.logger.Debug("promotion retry scheduled",
		"owner", req.owner, "id", req.id, "attempt", req.attempt, "delay", delay, "err", cause)

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		select {
		case <-e.quit:
		case <-time.After(delay):
			e.enqueuePromotion(req)
		}
	}()
}

func (e *Engine) findShort(owner, id string) *Record {
	sctx, cancel := context.WithTimeout(context.Background(), e.cfg.ShortTimeout)
	defer cancel()
	recs, err := e.short.GetAll(sctx, owner)
	if err != nil {
		return nil
	}
	now := time.Now()
	for _, rec := range recs {
		if rec.ID == id && !rec.Expired(now) {
			return rec
		}
	}
	return nil
}

func (e *Engine) putShort(owner string, rec *Record, ttl time.Duration) error {
	sctx, cancel := context.WithTimeout(context.Background(), e.cfg.ShortTimeout)
	defer cancel()
	return e.short.Put(sctx, owner, rec, ttl)
}
