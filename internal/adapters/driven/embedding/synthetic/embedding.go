// Package synthetic provides a deterministic embedding service that needs
// no external model. Vectors are derived from a hash of the text, so equal
// texts always embed identically. Useful for tests and offline setups.
package synthetic

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"math"

	"github.com/custodia-labs/askbase/internal/core/domain"
	"github.com/custodia-labs/askbase/internal/core/ports/driven"
)

// Ensure EmbeddingService implements the interface.
var _ driven.EmbeddingService = (*EmbeddingService)(nil)

// DefaultDimensions is the vector size when none is configured.
const DefaultDimensions = 256

// EmbeddingService generates hash-seeded unit vectors.
type EmbeddingService struct {
	dimensions int
}

// NewEmbeddingService creates a synthetic embedding service.
func NewEmbeddingService(dimensions int) *EmbeddingService {
	if dimensions <= 0 {
		dimensions = DefaultDimensions
	}
	return &EmbeddingService{dimensions: dimensions}
}

// Embed derives a deterministic unit vector from the text.
func (s *EmbeddingService) Embed(_ context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, domain.ErrInvalidInput
	}

	vec := make([]float32, s.dimensions)
	seed := sha256.Sum256([]byte(text))

	// Stretch the 32-byte digest over the whole vector by re-hashing
	// with a counter, 8 values per block.
	var norm float64
	for i := 0; i < s.dimensions; i += 8 {
		block := sha256.Sum256(append(seed[:], byte(i/8), byte(i/8>>8)))
		for j := 0; j < 8 && i+j < s.dimensions; j++ {
			bits := binary.LittleEndian.Uint32(block[j*4:])
			// Map to (-1, 1).
			v := float64(int32(bits)) / float64(math.MaxInt32)
			vec[i+j] = float32(v)
			norm += v * v
		}
	}

	// L2-normalise so cosine and inner product agree.
	if norm > 0 {
		inv := float32(1 / math.Sqrt(norm))
		for i := range vec {
			vec[i] *= inv
		}
	}
	return vec, nil
}

// EmbedBatch embeds each text in order.
func (s *EmbeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	embeddings := make([][]float32, len(texts))
	for i, text := range texts {
		vec, err := s.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		embeddings[i] = vec
	}
	return embeddings, nil
}

// Dimensions returns the embedding vector size.
func (s *EmbeddingService) Dimensions() int {
	return s.dimensions
}

// ModelName returns a stable identifier for the synthetic model.
func (s *EmbeddingService) ModelName() string {
	return "synthetic-sha256"
}

// Ping always succeeds; there is no remote service.
func (s *EmbeddingService) Ping(context.Context) error {
	return nil
}

// Close releases resources.
func (s *EmbeddingService) Close() error {
	return nil
}
