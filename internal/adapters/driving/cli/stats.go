package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sitesage/internal/core/domain"
)

var (
	statsJSON  bool
	statsReset bool

	feedbackAnswerable bool
	feedbackHelpful    bool
	feedbackRetract    bool
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show usage statistics and answer quality",
	Long: `Shows how many questions were asked and answered, the most frequent
keywords, and accuracy, precision, sensitivity, specificity and F1 computed
from user feedback. Metrics with no data are shown as n/a.`,
	Args: cobra.NoArgs,
	RunE: runStats,
}

var feedbackCmd = &cobra.Command{
	Use:   "feedback",
	Short: "Record whether an answer was helpful",
	Long: `Records a verdict on an answer for the quality metrics.

  --answerable  the website holds the answer to the question
  --helpful     the reply was correct (for unanswerable questions: the
                assistant correctly declined)`,
	Args: cobra.NoArgs,
	RunE: runFeedback,
}

func init() {
	statsCmd.Flags().BoolVar(&statsJSON, "json", false, "output statistics as JSON")
	statsCmd.Flags().BoolVar(&statsReset, "reset", false, "clear all statistics")
	feedbackCmd.Flags().BoolVar(&feedbackAnswerable, "answerable", false, "the question is answerable from the website")
	feedbackCmd.Flags().BoolVar(&feedbackHelpful, "helpful", false, "the answer was correct")
	feedbackCmd.Flags().BoolVar(&feedbackRetract, "retract", false, "undo an earlier verdict")
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(feedbackCmd)
}

func runStats(cmd *cobra.Command, _ []string) error {
	if statsService == nil {
		return errors.New("stats service not configured")
	}

	ctx := cmd.Context()
	if statsReset {
		if err := statsService.Reset(ctx); err != nil {
			return fmt.Errorf("failed to reset statistics: %w", err)
		}
		cmd.Println("Statistics cleared.")
		return nil
	}

	summary, err := statsService.Summary(ctx)
	if err != nil {
		return fmt.Errorf("failed to read statistics: %w", err)
	}

	if statsJSON {
		return printJSON(cmd, summary)
	}

	cmd.Println("[Usage]")
	cmd.Printf("  Questions: %d\n", summary.Usage.Questions)
	cmd.Printf("  Answered:  %d\n", summary.Usage.Answered)
	cmd.Printf("  Declined:  %d\n", summary.Usage.Declined)
	cmd.Println()

	cmd.Println("[Top keywords]")
	if len(summary.Keywords) == 0 {
		cmd.Println("  (none yet)")
	}
	for _, kw := range summary.Keywords {
		cmd.Printf("  %-20s %d\n", kw.Keyword, kw.Count)
	}
	cmd.Println()

	fb := summary.Feedback
	cmd.Println("[Feedback]")
	cmd.Printf("  TP: %d  TN: %d  FP: %d  FN: %d\n",
		fb.TruePositive, fb.TrueNegative, fb.FalsePositive, fb.FalseNegative)
	perf := summary.Performance
	cmd.Printf("  Accuracy:    %s\n", formatMetric(perf.Accuracy))
	cmd.Printf("  Precision:   %s\n", formatMetric(perf.Precision))
	cmd.Printf("  Sensitivity: %s\n", formatMetric(perf.Sensitivity))
	cmd.Printf("  Specificity: %s\n", formatMetric(perf.Specificity))
	cmd.Printf("  F1 score:    %s\n", formatMetric(perf.F1Score))
	return nil
}

func runFeedback(cmd *cobra.Command, _ []string) error {
	if statsService == nil {
		return errors.New("stats service not configured")
	}

	ctx := cmd.Context()
	outcome := domain.ClassifyFeedback(feedbackAnswerable, feedbackHelpful)
	if feedbackRetract {
		if err := statsService.RetractFeedback(ctx, feedbackAnswerable, feedbackHelpful); err != nil {
			return fmt.Errorf("failed to retract feedback: %w", err)
		}
		cmd.Printf("Retracted one %s verdict.\n", outcome)
		return nil
	}

	if err := statsService.RecordFeedback(ctx, feedbackAnswerable, feedbackHelpful); err != nil {
		return fmt.Errorf("failed to record feedback: %w", err)
	}
	cmd.Printf("Recorded %s.\n", outcome)
	return nil
}

func formatMetric(v *float64) string {
	if v == nil {
		return "n/a"
	}
	return fmt.Sprintf("%.3f", *v)
}
