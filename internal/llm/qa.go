package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/nickcecere/lrag/internal/search"
)

// Retriever returns the passages ranked most relevant to a question.
type Retriever interface {
	Query(ctx context.Context, question string, k int) ([]search.Result, error)
}

// QAService answers questions by retrieving passages and handing them to a Generator.
type QAService struct {
	retriever Retriever
	generator Generator
}

// QAOptions configures the Q&A generation.
type QAOptions struct {
	// TopK is how many passages are retrieved as context. 0 means search.DefaultTopK.
	TopK int

	// SkipEmptyContext answers with NoContextAnswer instead of calling the
	// generator when nothing was retrieved. Off by default: the generator is
	// always called, with an empty context if need be.
	SkipEmptyContext bool
}

// DefaultQAOptions returns sensible defaults.
func DefaultQAOptions() QAOptions {
	return QAOptions{
		TopK: search.DefaultTopK,
	}
}

// QAResult contains the answer and its sources.
type QAResult struct {
	Answer  string          `json:"answer"`
	Sources []search.Result `json:"sources"`
}

// NoContextAnswer is returned when SkipEmptyContext is set and nothing was retrieved.
const NoContextAnswer = "I couldn't find any relevant passages to answer your question. Try rephrasing it or adding more documents."

// NewQAService creates a new Q&A service.
func NewQAService(retriever Retriever, generator Generator) *QAService {
	return &QAService{
		retriever: retriever,
		generator: generator,
	}
}

// Answer retrieves context for question and generates an answer from it.
// A failed generation returns a *GenerationError that still carries the sources.
func (qa *QAService) Answer(ctx context.Context, question string, opts QAOptions) (*QAResult, error) {
	results, err := qa.retrieve(ctx, question, opts)
	if err != nil {
		return nil, err
	}

	if len(results) == 0 && opts.SkipEmptyContext {
		return &QAResult{Answer: NoContextAnswer, Sources: results}, nil
	}

	answer, err := qa.generator.Generate(ctx, question, search.Texts(results))
	if err != nil {
		log.Error("Generation failed", "question", truncate(question, 80), "sources", len(results), "error", err)
		return nil, &GenerationError{Question: question, Sources: results, Err: err}
	}

	return &QAResult{
		Answer:  answer,
		Sources: results,
	}, nil
}

// AnswerStream retrieves context and streams the answer. Stream errors are
// delivered on the error channel as *GenerationError. Generators that cannot
// stream deliver their whole answer as one chunk.
func (qa *QAService) AnswerStream(ctx context.Context, question string, opts QAOptions) (<-chan string, <-chan error, []search.Result, error) {
	results, err := qa.retrieve(ctx, question, opts)
	if err != nil {
		return nil, nil, nil, err
	}

	contentCh := make(chan string, 100)
	errCh := make(chan error, 1)

	if len(results) == 0 && opts.SkipEmptyContext {
		contentCh <- NoContextAnswer
		close(contentCh)
		close(errCh)
		return contentCh, errCh, results, nil
	}

	passages := search.Texts(results)

	go func() {
		defer close(contentCh)
		defer close(errCh)

		fail := func(err error) {
			log.Error("Generation failed", "question", truncate(question, 80), "sources", len(results), "error", err)
			errCh <- &GenerationError{Question: question, Sources: results, Err: err}
		}

		sg, ok := qa.generator.(StreamGenerator)
		if !ok {
			answer, err := qa.generator.Generate(ctx, question, passages)
			if err != nil {
				fail(err)
				return
			}
			contentCh <- answer
			return
		}

		chunks, errs := sg.GenerateStream(ctx, question, passages)
		for chunk := range chunks {
			contentCh <- chunk
		}
		if err := <-errs; err != nil {
			fail(err)
		}
	}()

	return contentCh, errCh, results, nil
}

func (qa *QAService) retrieve(ctx context.Context, question string, opts QAOptions) ([]search.Result, error) {
	if strings.TrimSpace(question) == "" {
		return nil, fmt.Errorf("question cannot be empty")
	}

	k := opts.TopK
	if k == 0 {
		k = search.DefaultTopK
	}

	results, err := qa.retriever.Query(ctx, question, k)
	if err != nil {
		return nil, fmt.Errorf("retrieval failed: %w", err)
	}
	return results, nil
}

// truncate shortens a string for display without splitting runes.
func truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen-3]) + "..."
}
