package memory

import "time"

// Config is the single configuration surface for the engine. Every
// threshold the engine consults lives here; adapters carry no hidden
// defaults of their own.
type Config struct {
	// ShortTTL is the short-tier residency of a new record.
	// Default: 30 minutes.
	ShortTTL time.Duration

	// PromotionThreshold is the access count at which a short-tier record
	// is copied into the long tier. Default: 3.
	PromotionThreshold int64

	// RetrieveLimit is the default result cap for Retrieve when the caller
	// passes limit <= 0. Default: 3.
	RetrieveLimit int

	// MinScore is the default retrieval relevance floor (exclusive) when
	// the caller passes minScore <= 0. Default: 0.05.
	MinScore float64

	// ForgetThreshold is the similarity at or above which Forget removes a
	// record. Default: 0.6.
	ForgetThreshold float64

	// DedupThreshold is the pairwise similarity at or above which two
	// retrieval results are collapsed into one. Default: 0.95.
	DedupThreshold float64

	// LongQueryK is how many long-tier candidates Retrieve asks for before
	// merging. Default: 10.
	LongQueryK int

	// ShortTimeout bounds every short-tier store call. Default: 250ms.
	ShortTimeout time.Duration

	// LongTimeout bounds every long-tier store call. Default: 2s.
	LongTimeout time.Duration

	// PromoteQueueSize is the capacity of the internal promotion queue.
	// When full, promotion requests are dropped and retried on the next
	// read. Default: 256.
	PromoteQueueSize int

	// PromoteRetries is how many times a failed promotion is retried in
	// the background before waiting for the next read. Default: 3.
	PromoteRetries int

	// PromoteBackoff is the base delay between background promotion
	// retries; each attempt doubles it. Default: 200ms.
	PromoteBackoff time.Duration

	// MaxFactsPerInteraction caps how many extracted facts a single
	// interaction may store. Default: 4.
	MaxFactsPerInteraction int
}

// DefaultConfig returns the documented defaults.
var DefaultConfig = &Config{
	ShortTTL:               30 * time.Minute,
	PromotionThreshold:     3,
	RetrieveLimit:          3,
	MinScore:               0.05,
	ForgetThreshold:        0.6,
	DedupThreshold:         0.95,
	LongQueryK:             10,
	ShortTimeout:           250 * time.Millisecond,
	LongTimeout:            2 * time.Second,
	PromoteQueueSize:       256,
	PromoteRetries:         3,
	PromoteBackoff:         200 * time.Millisecond,
	MaxFactsPerInteraction: 4,
}

// withDefaults fills zero fields from DefaultConfig and returns a copy, so
// callers can set only what they care about.
func (c *Config) withDefaults() Config {
	out := *c
	def := *DefaultConfig
	if out.ShortTTL <= 0 {
		out.ShortTTL = def.ShortTTL
	}
	if out.PromotionThreshold <= 0 {
		out.PromotionThreshold = def.PromotionThreshold
	}
	if out.RetrieveLimit <= 0 {
		out.RetrieveLimit = def.RetrieveLimit
	}
	if out.MinScore <= 0 {
		out.MinScore = def.MinScore
	}
	if out.ForgetThreshold <= 0 {
		out.ForgetThreshold = def.ForgetThreshold
	}
	if out.DedupThreshold <= 0 {
		out.DedupThreshold = def.DedupThreshold
	}
	if out.LongQueryK <= 0 {
		out.LongQueryK = def.LongQueryK
	}
	if out.ShortTimeout <= 0 {
		out.ShortTimeout = def.ShortTimeout
	}
	if out.LongTimeout <= 0 {
		out.LongTimeout = def.LongTimeout
	}
	if out.PromoteQueueSize <= 0 {
		out.PromoteQueueSize = def.PromoteQueueSize
	}
	if out.PromoteRetries <= 0 {
		out.PromoteRetries = def.PromoteRetries
	}
	if out.PromoteBackoff <= 0 {
		out.PromoteBackoff = def.PromoteBackoff
	}
	if out.MaxFactsPerInteraction <= 0 {
		out.MaxFactsPerInteraction = def.MaxFactsPerInteraction
	}
	return out
}
