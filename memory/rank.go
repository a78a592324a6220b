package memory

import (
	"math"
	"sort"
	"strings"
)

// Cosine returns the cosine similarity of two vectors clamped to [0,1].
// Mismatched or empty vectors score 0.
func Cosine(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	score := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}

// sortRanked orders results by score descending, breaking ties by most
// recently accessed and then by access count.
func sortRanked(results []Scored) {
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		ri, rj := results[i].Record, results[j].Record
		if !ri.LastAccessedAt.Equal(rj.LastAccessedAt) {
			return ri.LastAccessedAt.After(rj.LastAccessedAt)
		}
		return ri.AccessCount > rj.AccessCount
	})
}

// collapse removes near-duplicates from an already-ranked slice, keeping
// the first (highest scored, then most recent) occurrence. Two results are
// duplicates when they share an ID across tiers, normalize to the same
// content, or embed within dedupThreshold of each other.
func collapse(ranked []Scored, dedupThreshold float64) []Scored {
	out := ranked[:0]
	for _, cand := range ranked {
		dup := false
		for _, kept := range out {
			if isDuplicate(kept, cand, dedupThreshold) {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, cand)
		}
	}
	return out
}

func isDuplicate(a, b Scored, dedupThreshold float64) bool {
	if a.Record.ID == b.Record.ID {
		return true
	}
	if normalizeContent(a.Record.Content) == normalizeContent(b.Record.Content) {
		return true
	}
	if len(a.Record.Embedding) > 0 && len(b.Record.Embedding) > 0 {
		return Cosine(a.Record.Embedding, b.Record.Embedding) >= dedupThreshold
	}
	return false
}

// normalizeContent folds case and whitespace so trivially re-extracted
// facts compare equal.
func normalizeContent(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}
