package llm

import (
	"context"
	"fmt"
	"strings"
)

// Generator turns a question and its retrieved passages into an answer.
// Passages arrive in ranked order.
type Generator interface {
	Generate(ctx context.Context, question string, passages []string) (string, error)
}

// StreamGenerator is a Generator that can also stream its answer.
type StreamGenerator interface {
	Generator
	GenerateStream(ctx context.Context, question string, passages []string) (<-chan string, <-chan error)
}

// GeneratorFunc adapts a function to the Generator interface.
type GeneratorFunc func(ctx context.Context, question string, passages []string) (string, error)

// Generate calls f.
func (f GeneratorFunc) Generate(ctx context.Context, question string, passages []string) (string, error) {
	return f(ctx, question, passages)
}

// NoResponse is returned when the model produced an empty answer.
const NoResponse = "I couldn't generate a response."

// System prompt for answering from retrieved passages.
const systemPrompt = `You are a helpful Formula 1 expert. Answer questions based on the provided context. If the context doesn't contain relevant information, say so clearly.`

// ChatGenerator generates answers with a chat-completion Service.
type ChatGenerator struct {
	llm  Service
	opts CompletionOptions
}

// NewChatGenerator creates a Generator backed by svc.
func NewChatGenerator(svc Service, opts CompletionOptions) *ChatGenerator {
	return &ChatGenerator{llm: svc, opts: opts}
}

// Generate asks the model to answer question from passages.
func (g *ChatGenerator) Generate(ctx context.Context, question string, passages []string) (string, error) {
	answer, err := g.llm.Complete(ctx, buildMessages(question, passages), g.opts)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(answer) == "" {
		return NoResponse, nil
	}
	return answer, nil
}

// GenerateStream streams the answer as it is produced.
func (g *ChatGenerator) GenerateStream(ctx context.Context, question string, passages []string) (<-chan string, <-chan error) {
	opts := g.opts
	opts.Stream = true
	return g.llm.CompleteStream(ctx, buildMessages(question, passages), opts)
}

// ModelName returns the model behind the generator.
func (g *ChatGenerator) ModelName() string {
	return fmt.Sprintf("%s/%s", g.llm.Provider(), g.llm.ModelName())
}

func buildMessages(question string, passages []string) []Message {
	return []Message{
		{
			Role:    "system",
			Content: systemPrompt,
		},
		{
			Role:    "user",
			Content: fmt.Sprintf("Context:\n%s\n\nQuestion: %s", strings.Join(passages, "\n\n"), question),
		},
	}
}
