// Package mock provides a deterministic embedder for tests and local
// development. Each token maps to a fixed pseudo-random unit vector and a
// text embeds as the normalized sum of its token vectors, so texts sharing
// words score genuinely higher than unrelated ones. No model files needed.
package mock

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
)

// Embedder implements memory.Embedder with hash-derived vectors.
type Embedder struct {
	dimensions int
}

// New creates a mock embedder with 384 dimensions, matching the small
// sentence-transformer models it stands in for.
func New() *Embedder {
	return &Embedder{dimensions: 384}
}

// Embed returns a deterministic unit vector for text. Identical input
// always yields an identical vector.
func (m *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	tokens := tokenize(text)
	if len(tokens) == 0 {
		tokens = []string{text}
	}

	sum := make([]float32, m.dimensions)
	for _, tok := range tokens {
		vec := tokenVector(tok, m.dimensions)
		for i, v := range vec {
			sum[i] += v
		}
	}
	return normalize(sum), nil
}

// Dimensions returns the embedding size.
func (m *Embedder) Dimensions() int {
	return m.dimensions
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9')
	})
}

// tokenVector derives a unit vector from the token's hash via an LCG.
func tokenVector(token string, dims int) []float32 {
	h := fnv.New64a()
	h.Write([]byte(token))
	seed := h.Sum64()

	vec := make([]float32, dims)
	for i := 0; i < dims; i++ {
		seed = seed*6364136223846793005 + 1442695040888963407
		vec[i] = float32(int64(seed)) / float32(math.MaxInt64)
	}
	return normalize(vec)
}

func normalize(vec []float32) []float32 {
	var norm float32
	for _, v := range vec {
		norm += v * v
	}
	if norm == 0 {
		return vec
	}
	norm = float32(math.Sqrt(float64(norm)))
	for i, v := range vec {
		vec[i] = v / norm
	}
	return vec
}
