// Package retrieval provides similarity search over the fraud-pattern library.
package retrieval

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"math"

	"github.com/openrisk-labs/kestrel/internal/domain"
)

// DefaultDimensions is the embedding width used when none is configured.
const DefaultDimensions = 512

// Embedder produces deterministic hash-based text embeddings. The same text
// always maps to the same vector, so exact-text cache hits are safe to keep
// for the process lifetime.
type Embedder struct {
	dimensions int
	cache      domain.Cache
}

// NewEmbedder creates an embedder. cache may be nil to disable caching.
func NewEmbedder(dimensions int, cache domain.Cache) *Embedder {
	if dimensions <= 0 {
		dimensions = DefaultDimensions
	}
	return &Embedder{
		dimensions: dimensions,
		cache:      cache,
	}
}

// Embed generates the embedding for text, consulting the cache first. The
// namespace scopes cache entries (callers pass the sector).
func (e *Embedder) Embed(ctx context.Context, namespace string, text string) []float32 {
	cacheKey := "embedding:" + text

	if e.cache != nil && namespace != "" {
		if data, err := e.cache.Get(ctx, namespace, cacheKey); err == nil && data != nil {
			if vec := decodeVector(data); len(vec) == e.dimensions {
				return vec
			}
		}
	}

	vec := e.hashEmbedding(text)

	if e.cache != nil && namespace != "" {
		// Deterministic, so never expire
		_ = e.cache.Set(ctx, namespace, cacheKey, encodeVector(vec), 0)
	}

	return vec
}

// Dimensions returns the embedding width.
func (e *Embedder) Dimensions() int {
	return e.dimensions
}

// hashEmbedding spreads the SHA-256 digest of text over the vector, scaling
// each byte into [-1, 1].
func (e *Embedder) hashEmbedding(text string) []float32 {
	digest := sha256.Sum256([]byte(text))

	vec := make([]float32, e.dimensions)
	for i := range vec {
		b := digest[i%len(digest)]
		vec[i] = (float32(b)/255.0)*2 - 1
	}
	return vec
}

// cosineSimilarity computes the cosine of the angle between two vectors.
// Returns 0 for mismatched lengths or zero vectors.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
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
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

func encodeVector(vec []float32) []byte {
	buf := make([]byte, 4*len(vec))
	for i, v := range vec {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

func decodeVector(data []byte) []float32 {
	if len(data)%4 != 0 {
		return nil
	}
	vec := make([]float32, len(data)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return vec
}
