// Package memory implements a two-tier semantic memory engine for
// conversational agents. Facts about a user live in a volatile, TTL-bound
// short-term tier and are promoted into a persistent, similarity-searchable
// long-term tier once they are read often enough.
//
// Architecture:
//   - ShortTermStore: TTL key/value tier (ristretto-backed adapter provided)
//   - LongTermStore: vector tier with metadata filtering (chromem-go adapter)
//   - Embedder: text-to-vector conversion, treated as a black box
//   - Engine: orchestrates retrieval, explicit remember/forget, fact
//     extraction, stats, and background promotion
//
// The engine degrades rather than fails: an unreachable tier yields
// ErrUnavailable internally and retrieval falls back to the other tier or
// returns empty. Embedding failures are the one hard dependency and are
// surfaced to callers.
//
// Memories are namespaced by owner ID; no operation reads or writes across
// owners.
package memory
