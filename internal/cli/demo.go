package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nickcecere/lrag/internal/config"
	"github.com/nickcecere/lrag/internal/knowledge"
	"github.com/nickcecere/lrag/internal/llm"
	"github.com/nickcecere/lrag/internal/ui"
)

var demoRetrievalOnly bool

// demoCmd represents the demo command
var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Run the sample questions against the demo passages",
	Long: `Seed a fresh store with four Formula 1 passages and ask the sample
questions. With --retrieval-only no LLM is called and the top passage
for each question is shown instead.`,
	Args: cobra.NoArgs,
	RunE: runDemo,
}

func init() {
	demoCmd.Flags().BoolVar(&demoRetrievalOnly, "retrieval-only", false, "show retrieved passages without calling the LLM")
}

func runDemo(cmd *cobra.Command, args []string) error {
	cfg := config.Get()

	ctx, cancel := signalContext()
	defer cancel()

	e, err := buildEngine(ctx, cfg, knowledge.Demo(), !demoRetrievalOnly)
	if err != nil {
		return err
	}

	fmt.Println(ui.SectionTitle.Render(fmt.Sprintf("Demo: %d passages, %s", e.store.Len(), e.embedder.ModelName())))
	fmt.Println()

	for i, question := range knowledge.DemoQuestions() {
		if ctx.Err() != nil {
			return nil
		}

		fmt.Println(ui.Header.Render(fmt.Sprintf("Q%d: %s", i+1, question)))

		if demoRetrievalOnly {
			results, err := e.searcher.Query(ctx, question, 1)
			if err != nil {
				return err
			}
			for _, r := range results {
				fmt.Printf("%s %s\n", ui.FormatScore(r.Score), truncateLine(r.Document.Text, 100))
			}
		} else {
			result, err := e.qa.Answer(ctx, question, llm.QAOptions{TopK: cfg.Search.TopK})
			if err != nil {
				return answerError(err)
			}
			fmt.Println(result.Answer)
			fmt.Println(ui.Dim.Render(fmt.Sprintf("(%d sources)", len(result.Sources))))
		}

		fmt.Println(ui.HorizontalRule(60))
	}

	return nil
}
