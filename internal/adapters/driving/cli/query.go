package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sitesage/internal/core/domain"
)

var (
	askShowPassages bool
	askJSON         bool
	retrieveJSON    bool
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a question about the website",
	Long: `Answers a question using only passages from the synced website.
Passages below the relevance threshold are never shown to the model; when
none qualify the assistant says it cannot answer.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

var retrieveCmd = &cobra.Command{
	Use:   "retrieve [question]",
	Short: "Show the passages relevant to a question",
	Long: `Runs threshold-filtered retrieval without generating an answer.
Passages are listed best first with their normalised score.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRetrieve,
}

func init() {
	askCmd.Flags().BoolVarP(&askShowPassages, "passages", "p", false, "list the passages used")
	askCmd.Flags().BoolVar(&askJSON, "json", false, "output the answer as JSON")
	retrieveCmd.Flags().BoolVar(&retrieveJSON, "json", false, "output passages as JSON")
	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(retrieveCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	if queryService == nil {
		return errors.New("query service not configured")
	}

	question := strings.Join(args, " ")
	answer, err := queryService.Answer(cmd.Context(), question)
	if err != nil {
		return fmt.Errorf("ask failed: %w", err)
	}

	if askJSON {
		return printJSON(cmd, answer)
	}

	cmd.Println(answer.Text)
	if askShowPassages && len(answer.Passages) > 0 {
		cmd.Println()
		printPassages(cmd, answer.Passages)
	}
	return nil
}

func runRetrieve(cmd *cobra.Command, args []string) error {
	if queryService == nil {
		return errors.New("query service not configured")
	}

	question := strings.Join(args, " ")
	passages, err := queryService.Retrieve(cmd.Context(), question)
	if err != nil {
		return fmt.Errorf("retrieve failed: %w", err)
	}

	if retrieveJSON {
		return printJSON(cmd, passages)
	}

	if len(passages) == 0 {
		cmd.Println("No passages passed the relevance threshold.")
		return nil
	}
	printPassages(cmd, passages)
	return nil
}

func printPassages(cmd *cobra.Command, passages []domain.RetrievedPassage) {
	cmd.Println("Passages:")
	cmd.Println()
	for i := range passages {
		// Format: [N] Title (Score)
		p := passages[i]
		cmd.Printf("  [%d] %s (%.3f)\n", i+1, strings.ReplaceAll(p.Title, "\n", " "), p.Score)
		cmd.Printf("      Source: %s\n", p.Source)
		if snippet := snippetOf(p.Text, 160); snippet != "" {
			cmd.Printf("      %s\n", snippet)
		}
		cmd.Println()
	}
}

// snippetOf collapses whitespace and cuts text to at most n runes.
func snippetOf(text string, n int) string {
	text = strings.Join(strings.Fields(text), " ")
	runes := []rune(text)
	if len(runes) <= n {
		return text
	}
	return string(runes[:n]) + "..."
}
