package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/nickcecere/lrag/internal/config"
	"github.com/nickcecere/lrag/internal/llm"
	"github.com/nickcecere/lrag/internal/search"
	"github.com/nickcecere/lrag/internal/ui"
)

var (
	askStream bool
	askTopK   int
)

// askCmd represents the ask command
var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Answer a question from the knowledge base",
	Long: `Retrieve the passages most similar to the question and ask the
configured LLM to answer from them.

Examples:
  # Ask with the default of 3 context passages
  lrag ask "Who is George Russell?"

  # Stream the answer and use 5 passages
  lrag ask "Tell me about Red Bull Racing" --stream -k 5`,
	Args: cobra.ExactArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().BoolVarP(&askStream, "stream", "s", false, "stream the answer as it is generated")
	askCmd.Flags().IntVarP(&askTopK, "top-k", "k", 0, "number of passages used as context (default from config)")
}

func runAsk(cmd *cobra.Command, args []string) error {
	question := args[0]
	cfg := config.Get()

	ctx, cancel := signalContext()
	defer cancel()

	seed, err := seedRecords(cfg)
	if err != nil {
		return err
	}

	e, err := buildEngine(ctx, cfg, seed, true)
	if err != nil {
		return err
	}

	opts := llm.QAOptions{TopK: askTopK}
	if opts.TopK == 0 {
		opts.TopK = cfg.Search.TopK
	}

	log.Debug("Answering question", "question", question, "top_k", opts.TopK, "model", e.model)

	if askStream {
		return streamAnswer(ctx, e.qa, question, opts)
	}
	return printAnswer(ctx, e.qa, question, opts)
}

// printAnswer waits for the whole answer behind a spinner and renders it as markdown.
func printAnswer(ctx context.Context, qa *llm.QAService, question string, opts llm.QAOptions) error {
	stopSpinner := make(chan struct{})
	spinnerDone := make(chan struct{})
	go showSpinner("Generating answer", stopSpinner, spinnerDone)

	result, err := qa.Answer(ctx, question, opts)

	close(stopSpinner)
	<-spinnerDone

	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return answerError(err)
	}

	fmt.Println(ui.Header.Render("Answer"))
	fmt.Println()

	rendered, err := renderMarkdown(result.Answer)
	if err != nil {
		fmt.Println(result.Answer)
	} else {
		fmt.Print(rendered)
	}

	printSources(result.Sources)
	return nil
}

// streamAnswer prints chunks as they arrive.
func streamAnswer(ctx context.Context, qa *llm.QAService, question string, opts llm.QAOptions) error {
	contentCh, errCh, sources, err := qa.AnswerStream(ctx, question, opts)
	if err != nil {
		return answerError(err)
	}

	fmt.Println(ui.Header.Render("Answer"))
	fmt.Println()

	for chunk := range contentCh {
		fmt.Print(chunk)
	}
	fmt.Println()

	if err := <-errCh; err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return answerError(err)
	}

	fmt.Println()
	printSources(sources)
	return nil
}

// errCouldNotAnswer is shown when the model fails. The cause is only logged.
var errCouldNotAnswer = errors.New("could not answer the question (run with --debug for details)")

// answerError hides the provider error behind errCouldNotAnswer and logs it.
func answerError(err error) error {
	var genErr *llm.GenerationError
	if errors.As(err, &genErr) {
		log.Error("Answer generation failed", "sources", len(genErr.Sources))
		log.Debug("Generation error", "error", genErr.Err)
		return errCouldNotAnswer
	}
	return err
}

func printSources(sources []search.Result) {
	if len(sources) == 0 {
		return
	}

	fmt.Println(ui.Dim.Render("Sources:"))
	for i, s := range sources {
		fmt.Printf("  [%d] %s %s\n", i+1, ui.FormatSource(s.Document.Source, s.Document.ID), ui.FormatScore(s.Score))
	}
}

// showSpinner displays an animated spinner until stopCh is closed.
func showSpinner(message string, stopCh <-chan struct{}, doneCh chan<- struct{}) {
	frames := []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}
	ticker := time.NewTicker(80 * time.Millisecond)
	defer ticker.Stop()
	defer close(doneCh)

	i := 0
	for {
		select {
		case <-stopCh:
			// Clear spinner line
			fmt.Print("\r\033[2K")
			return
		case <-ticker.C:
			fmt.Printf("\r%s %s", ui.Highlight.Render(frames[i]), message)
			i = (i + 1) % len(frames)
		}
	}
}

// renderMarkdown renders markdown content using glamour.
func renderMarkdown(content string) (string, error) {
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		return "", err
	}
	return renderer.Render(strings.TrimSpace(content))
}
