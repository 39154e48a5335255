package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
	"github.com/charmbracelet/log"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/nickcecere/lrag/internal/config"
	"github.com/nickcecere/lrag/internal/search"
	"github.com/nickcecere/lrag/internal/ui"
)

var (
	searchLimit    int
	searchMinScore float64
	searchJSON     bool
	searchContent  bool
)

// searchCmd represents the search command
var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Show the passages most similar to a query",
	Long: `Rank the stored passages by cosine similarity to the query.
No LLM is involved, so this works without an API key.

Examples:
  # Top 3 passages
  lrag search "Mercedes"

  # Top 5 passages with their full text
  lrag search "world champion" -m 5 -c

  # Machine-readable output
  lrag search "Qatar" --json`,
	Args: cobra.ExactArgs(1),
	RunE: runSearchCmd,
}

func init() {
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "m", 0, "maximum number of results (default from config)")
	searchCmd.Flags().Float64Var(&searchMinScore, "min-score", 0.0, "minimum similarity score (-1 to 1)")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output results as JSON")
	searchCmd.Flags().BoolVarP(&searchContent, "content", "c", false, "show the full passage text")
}

func runSearchCmd(cmd *cobra.Command, args []string) error {
	query := args[0]
	cfg := config.Get()

	ctx, cancel := signalContext()
	defer cancel()

	seed, err := seedRecords(cfg)
	if err != nil {
		return err
	}

	e, err := buildEngine(ctx, cfg, seed, false)
	if err != nil {
		return err
	}

	opts := search.SearchOptions{
		TopK:     searchLimit,
		MinScore: searchMinScore,
	}
	if opts.TopK == 0 {
		opts.TopK = cfg.Search.TopK
	}
	if !cmd.Flags().Changed("min-score") {
		opts.MinScore = cfg.Search.MinScore
	}

	log.Debug("Starting search", "query", query, "limit", opts.TopK, "min_score", opts.MinScore)

	results, err := e.searcher.Search(ctx, query, opts)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("search failed: %w", err)
	}

	if searchJSON {
		return outputJSON(os.Stdout, results)
	}

	if len(results) == 0 {
		fmt.Println("No results found.")
		return nil
	}

	displayResults(results, searchContent)
	return nil
}

// displayResults formats and displays search results.
func displayResults(results []search.Result, showContent bool) {
	fmt.Printf("Found %d results:\n\n", len(results))

	for i, r := range results {
		fmt.Printf("%s %s %s\n",
			ui.Highlight.Render(fmt.Sprintf("[%d]", i+1)),
			ui.FormatSource(r.Document.Source, r.Document.ID),
			ui.FormatScore(r.Score),
		)

		text := r.Document.Text
		if !showContent {
			text = truncateLine(text, 120)
		}
		fmt.Println(ui.ResultContent.Render(text))
		fmt.Println()
	}
}

// truncateLine shortens a line for display.
func truncateLine(line string, maxLen int) string {
	line = strings.Join(strings.Fields(line), " ")
	runes := []rune(line)
	if len(runes) <= maxLen {
		return line
	}
	return string(runes[:maxLen-3]) + "..."
}

type jsonResult struct {
	ID     string  `json:"id"`
	Source string  `json:"source"`
	Score  float64 `json:"score"`
	Text   string  `json:"text"`
}

// outputJSON writes results as indented JSON, highlighted when w is a terminal.
func outputJSON(w io.Writer, results []search.Result) error {
	out := make([]jsonResult, len(results))
	for i, r := range results {
		out[i] = jsonResult{
			ID:     r.Document.ID,
			Source: r.Document.Source,
			Score:  r.Score,
			Text:   r.Document.Text,
		}
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode results: %w", err)
	}

	if f, ok := w.(*os.File); ok && isatty.IsTerminal(f.Fd()) {
		if highlighted, err := highlightJSON(string(data)); err == nil {
			_, err = fmt.Fprintln(w, highlighted)
			return err
		}
	}

	_, err = fmt.Fprintln(w, string(data))
	return err
}

// highlightJSON colors JSON for terminal output.
func highlightJSON(content string) (string, error) {
	lexer := lexers.Get("json")
	if lexer == nil {
		lexer = lexers.Fallback
	}
	lexer = chroma.Coalesce(lexer)

	style := styles.Get("dracula")
	if style == nil {
		style = styles.Fallback
	}

	formatter := formatters.Get("terminal256")
	if formatter == nil {
		formatter = formatters.Fallback
	}

	iterator, err := lexer.Tokenise(nil, content)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := formatter.Format(&buf, style, iterator); err != nil {
		return "", err
	}
	return buf.String(), nil
}
