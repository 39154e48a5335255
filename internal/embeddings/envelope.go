package embeddings

import (
	"errors"

	"github.com/nickcecere/lrag/internal/vector"
)

// ErrEmptyEnvelope is returned when an envelope carries no embeddings.
var ErrEmptyEnvelope = errors.New("embedding response contains no data")

// Envelope mirrors the response body of the OpenAI embeddings API, so local
// vectors can be served wherever a remote embedding service is expected.
type Envelope struct {
	Object string         `json:"object"`
	Data   []EnvelopeData `json:"data"`
	Model  string         `json:"model"`
	Usage  EnvelopeUsage  `json:"usage"`
}

// EnvelopeData is a single embedding in an Envelope.
type EnvelopeData struct {
	Object    string        `json:"object"`
	Index     int           `json:"index"`
	Embedding vector.Vector `json:"embedding"`
}

// EnvelopeUsage reports token counts.
type EnvelopeUsage struct {
	PromptTokens int `json:"prompt_tokens"`
	TotalTokens  int `json:"total_tokens"`
}

// NewEnvelope wraps vectors, in order, in an OpenAI-style response.
func NewEnvelope(model string, vectors []vector.Vector, promptTokens int) *Envelope {
	data := make([]EnvelopeData, len(vectors))
	for i, v := range vectors {
		data[i] = EnvelopeData{
			Object:    "embedding",
			Index:     i,
			Embedding: v,
		}
	}

	return &Envelope{
		Object: "list",
		Data:   data,
		Model:  model,
		Usage: EnvelopeUsage{
			PromptTokens: promptTokens,
			TotalTokens:  promptTokens,
		},
	}
}

// First returns the first embedding of the envelope.
func (e *Envelope) First() (vector.Vector, error) {
	if e == nil || len(e.Data) == 0 {
		return nil, ErrEmptyEnvelope
	}
	return e.Data[0].Embedding, nil
}

// EmbedEnvelope embeds texts with the hashing embedder and wraps them in an Envelope.
func (s *HashService) EmbedEnvelope(texts []string) *Envelope {
	vectors := make([]vector.Vector, len(texts))
	tokens := 0
	for i, text := range texts {
		vectors[i] = s.Vector(text)
		tokens += len(Tokenize(text))
	}
	return NewEnvelope(s.ModelName(), vectors, tokens)
}
