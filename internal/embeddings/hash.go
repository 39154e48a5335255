package embeddings

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/nickcecere/lrag/internal/vector"
)

// HashService is a local, deterministic bag-of-words embedder.
//
// Each token is hashed with a 31-multiplier polynomial over its runes using
// uint32 wraparound, and the hash modulo the dimension count selects the bucket
// that is incremented. The resulting counts are L2-normalized. Identical text
// always yields an identical vector, and no I/O is performed.
type HashService struct {
	dimensions int
}

// NewHashService creates a hashing embedder producing vectors of the given length.
func NewHashService(dimensions int) (*HashService, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("hash embedder dimensions must be positive, got %d", dimensions)
	}
	return &HashService{dimensions: dimensions}, nil
}

// Vector embeds text. It never fails; text without tokens maps to the zero vector.
func (s *HashService) Vector(text string) vector.Vector {
	v := vector.New(s.dimensions)
	n := uint32(s.dimensions)
	for _, token := range Tokenize(text) {
		v[HashToken(token)%n]++
	}
	return v.Normalize()
}

// Embed generates an embedding for document text.
func (s *HashService) Embed(_ context.Context, text string) (vector.Vector, error) {
	return s.Vector(text), nil
}

// EmbedQuery generates an embedding for query text.
// Documents and queries share one vector space, so this is the same as Embed.
func (s *HashService) EmbedQuery(_ context.Context, text string) (vector.Vector, error) {
	return s.Vector(text), nil
}

// EmbedBatch generates embeddings for multiple texts.
func (s *HashService) EmbedBatch(_ context.Context, texts []string) ([]vector.Vector, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	out := make([]vector.Vector, len(texts))
	for i, text := range texts {
		out[i] = s.Vector(text)
	}
	return out, nil
}

// Dimensions returns the embedding dimensions.
func (s *HashService) Dimensions() int {
	return s.dimensions
}

// Provider returns the provider name.
func (s *HashService) Provider() Provider {
	return ProviderHash
}

// ModelName returns the model name.
func (s *HashService) ModelName() string {
	return fmt.Sprintf("hash-%d", s.dimensions)
}

// Tokenize lower-cases text and splits it into maximal runs of letters, digits
// and underscores. Everything else separates tokens.
func Tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !(unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_')
	})
}

// HashToken returns the 32-bit polynomial hash of token: h = h*31 + rune,
// wrapping at 2^32. Every rune and its position contribute to the result.
func HashToken(token string) uint32 {
	var h uint32
	for _, r := range token {
		h = h*31 + uint32(r)
	}
	return h
}
