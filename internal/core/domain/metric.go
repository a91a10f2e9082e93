package domain

import (
	"fmt"
	"math"
)

// Metric identifies how vectors are compared.
type Metric string

// Available metrics. A collection records its metric at creation and every
// search against it uses the same one.
const (
	// MetricL2 is Euclidean distance. Lower is closer.
	MetricL2 Metric = "L2"

	// MetricIP is inner product. Higher is closer.
	MetricIP Metric = "IP"
)

// MaxL2Distance is the largest distance between two unit vectors with
// non-negative cosine similarity.
const MaxL2Distance = math.Sqrt2

// ParseMetric parses a metric name, case-insensitively.
func ParseMetric(s string) (Metric, error) {
	switch s {
	case "L2", "l2", "euclidean":
		return MetricL2, nil
	case "IP", "ip", "inner_product":
		return MetricIP, nil
	default:
		return "", fmt.Errorf("%w: unknown metric %q", ErrInvalidInput, s)
	}
}

// IsValid returns true if the metric is recognised.
func (m Metric) IsValid() bool {
	return m == MetricL2 || m == MetricIP
}

// IsDistance reports whether lower raw values are better.
func (m Metric) IsDistance() bool {
	return m == MetricL2
}

// String returns the string representation.
func (m Metric) String() string {
	return string(m)
}

// Normalize converts a raw distance or similarity into a relevance score in
// [0, 1]. For L2 the score is 1 - d/sqrt(2); for IP the similarity is used
// as is. Both are clamped.
func (m Metric) Normalize(raw float64) float64 {
	var score float64
	switch m {
	case MetricIP:
		score = raw
	default:
		score = 1 - raw/MaxL2Distance
	}
	if math.IsNaN(score) {
		return 0
	}
	return math.Max(0, math.Min(1, score))
}
