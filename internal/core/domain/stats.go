package domain

import "math"

// FeedbackOutcome is a cell of the answer-quality confusion matrix.
type FeedbackOutcome string

// Confusion matrix cells. A question is answerable when the corpus holds
// the answer; feedback says whether the reply was right.
const (
	TruePositive  FeedbackOutcome = "true_positive"
	TrueNegative  FeedbackOutcome = "true_negative"
	FalsePositive FeedbackOutcome = "false_positive"
	FalseNegative FeedbackOutcome = "false_negative"
)

// ClassifyFeedback maps a question class and a user verdict to a cell.
// Answerable and helpful is a true positive, answerable and unhelpful a false
// negative, unanswerable and helpful (a correct refusal) a true negative,
// unanswerable and unhelpful a false positive.
func ClassifyFeedback(answerable, helpful bool) FeedbackOutcome {
	switch {
	case answerable && helpful:
		return TruePositive
	case answerable:
		return FalseNegative
	case helpful:
		return TrueNegative
	default:
		return FalsePositive
	}
}

// IsValid returns true if the outcome is a known cell.
func (o FeedbackOutcome) IsValid() bool {
	switch o {
	case TruePositive, TrueNegative, FalsePositive, FalseNegative:
		return true
	default:
		return false
	}
}

// ConfusionMatrix holds feedback counts.
type ConfusionMatrix struct {
	TruePositive  int `json:"true_positive"`
	TrueNegative  int `json:"true_negative"`
	FalsePositive int `json:"false_positive"`
	FalseNegative int `json:"false_negative"`
}

// PerformanceMetrics are derived from a ConfusionMatrix.
// A nil field means the ratio is undefined (zero denominator).
type PerformanceMetrics struct {
	Accuracy    *float64 `json:"accuracy"`
	Precision   *float64 `json:"precision"`
	Sensitivity *float64 `json:"sensitivity"`
	Specificity *float64 `json:"specificity"`
	F1Score     *float64 `json:"f1_score"`
}

// Metrics computes accuracy, precision, sensitivity, specificity and F1,
// rounded to three decimals.
func (m ConfusionMatrix) Metrics() PerformanceMetrics {
	tp, tn := float64(m.TruePositive), float64(m.TrueNegative)
	fp, fn := float64(m.FalsePositive), float64(m.FalseNegative)

	out := PerformanceMetrics{
		Accuracy:    ratio(tp+tn, tp+tn+fp+fn),
		Precision:   ratio(tp, tp+fp),
		Sensitivity: ratio(tp, tp+fn),
		Specificity: ratio(tn, tn+fp),
	}
	if out.Precision != nil && out.Sensitivity != nil {
		p, s := *out.Precision, *out.Sensitivity
		out.F1Score = ratio(2*p*s, p+s)
	}
	return out
}

func ratio(num, den float64) *float64 {
	if den == 0 {
		return nil
	}
	v := math.Round(num/den*1000) / 1000
	return &v
}

// KeywordCount is a keyword and how often it was asked about.
type KeywordCount struct {
	Keyword string `json:"keyword"`
	Count   int    `json:"count"`
}

// UsageCounters count questions by outcome.
type UsageCounters struct {
	Questions int `json:"questions"`
	Answered  int `json:"answered"`
	Declined  int `json:"declined"`
}

// StatsSummary is the full statistics view.
type StatsSummary struct {
	Usage       UsageCounters      `json:"usage"`
	Keywords    []KeywordCount     `json:"keywords"`
	Feedback    ConfusionMatrix    `json:"feedback"`
	Performance PerformanceMetrics `json:"performance"`
}
