// Package threshold evaluates performance assertions against the profiler's
// live summary. Thresholds come from configuration as strings such as
// "http_req_duration:p95 < 200" and feed the dashboard health endpoint.
package threshold

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/reqlens/reqlens/internal/report"
)

// Threshold represents one performance assertion that can pass or fail.
type Threshold struct {
	Metric    string  // "http_req_duration", "http_req_failed", "http_requests"
	Aggregate string  // "p50", "p90", "p95", "p99", "avg", "min", "max", "rate", "count"
	Operator  string  // "<", "<=", ">", ">=", "=="
	Value     float64 // The value to compare against
	Raw       string  // Original threshold string for display
}

// Result is the outcome of evaluating one threshold.
type Result struct {
	Threshold Threshold `json:"threshold"`
	Actual    float64   `json:"actual"`
	Pass      bool      `json:"pass"`
	Message   string    `json:"message"`
}

// Evaluator evaluates a fixed set of thresholds against summaries.
type Evaluator struct {
	thresholds []Threshold
}

// NewEvaluator creates an evaluator over the given thresholds.
func NewEvaluator(thresholds []Threshold) *Evaluator {
	return &Evaluator{thresholds: thresholds}
}

// Evaluate checks all thresholds against the provided summary.
func (e *Evaluator) Evaluate(sum report.Summary) []Result {
	if e == nil || len(e.thresholds) == 0 {
		return nil
	}
	results := make([]Result, 0, len(e.thresholds))
	for _, t := range e.thresholds {
		results = append(results, evaluateOne(t, sum))
	}
	return results
}

func evaluateOne(t Threshold, sum report.Summary) Result {
	actual, err := extractMetricValue(t, sum)
	if err != nil {
		return Result{
			Threshold: t,
			Pass:      false,
			Message:   fmt.Sprintf("error: %v", err),
		}
	}

	pass := compareValues(actual, t.Operator, t.Value)
	status := "✓"
	if !pass {
		status = "✗"
	}
	return Result{
		Threshold: t,
		Actual:    actual,
		Pass:      pass,
		Message:   fmt.Sprintf("%s %s: %.2f %s %.2f", status, t.Raw, actual, t.Operator, t.Value),
	}
}

var thresholdPattern = regexp.MustCompile(`^([a-z_]+):([a-z0-9]+)\s*([<>=!]+)\s*([0-9.]+)$`)

// Parse parses a threshold string.
// Supported formats:
//   - "http_req_duration:p95 < 500"  (latency percentile in ms)
//   - "http_req_duration:avg < 200"  (average latency in ms)
//   - "http_req_failed:rate < 0.01"  (5xx rate as decimal)
//   - "http_req_failed:count < 10"   (5xx count)
//   - "http_requests:rate > 100"     (requests per second)
func Parse(s string) (Threshold, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Threshold{}, fmt.Errorf("empty threshold string")
	}

	matches := thresholdPattern.FindStringSubmatch(s)
	if matches == nil {
		return Threshold{}, fmt.Errorf("invalid threshold format: %q (expected metric:aggregate operator value, e.g. 'http_req_duration:p95 < 500')", s)
	}

	metric, aggregate, operator, valueStr := matches[1], matches[2], matches[3], matches[4]

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return Threshold{}, fmt.Errorf("invalid threshold value %q: %v", valueStr, err)
	}
	if !isValidMetric(metric) {
		return Threshold{}, fmt.Errorf("unsupported metric: %q (supported: http_req_duration, http_req_failed, http_requests)", metric)
	}
	if !isValidAggregate(aggregate) {
		return Threshold{}, fmt.Errorf("unsupported aggregate: %q (supported: p50, p90, p95, p99, avg, min, max, rate, count)", aggregate)
	}
	if !isValidOperator(operator) {
		return Threshold{}, fmt.Errorf("unsupported operator: %q (supported: <, <=, >, >=, ==)", operator)
	}

	return Threshold{
		Metric:    metric,
		Aggregate: aggregate,
		Operator:  operator,
		Value:     value,
		Raw:       s,
	}, nil
}

// ParseMultiple parses multiple threshold strings, collecting all errors.
func ParseMultiple(thresholds []string) ([]Threshold, error) {
	if len(thresholds) == 0 {
		return nil, nil
	}

	result := make([]Threshold, 0, len(thresholds))
	var errs []string
	for i, s := range thresholds {
		t, err := Parse(s)
		if err != nil {
			errs = append(errs, fmt.Sprintf("threshold[%d]: %v", i, err))
			continue
		}
		result = append(result, t)
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("threshold parsing errors: %s", strings.Join(errs, "; "))
	}
	return result, nil
}

func isValidMetric(metric string) bool {
	switch metric {
	case "http_req_duration", "http_req_failed", "http_requests":
		return true
	}
	return false
}

func isValidAggregate(aggregate string) bool {
	switch aggregate {
	case "p50", "p90", "p95", "p99", "avg", "min", "max", "rate", "count":
		return true
	}
	return false
}

func isValidOperator(operator string) bool {
	switch operator {
	case "<", "<=", ">", ">=", "==":
		return true
	}
	return false
}

func extractMetricValue(t Threshold, sum report.Summary) (float64, error) {
	switch t.Metric {
	case "http_req_duration":
		return extractLatencyMetric(t.Aggregate, sum)
	case "http_req_failed":
		return extractFailureMetric(t.Aggregate, sum)
	case "http_requests":
		return extractRequestMetric(t.Aggregate, sum)
	default:
		return 0, fmt.Errorf("unknown metric: %s", t.Metric)
	}
}

func extractLatencyMetric(aggregate string, sum report.Summary) (float64, error) {
	switch aggregate {
	case "p50":
		return sum.P50Ms, nil
	case "p90":
		return sum.P90Ms, nil
	case "p95":
		return sum.P95Ms, nil
	case "p99":
		return sum.P99Ms, nil
	case "avg":
		return sum.MeanMs, nil
	case "min":
		return sum.MinMs, nil
	case "max":
		return sum.MaxMs, nil
	default:
		return 0, fmt.Errorf("aggregate %q not valid for http_req_duration", aggregate)
	}
}

func extractFailureMetric(aggregate string, sum report.Summary) (float64, error) {
	failures := sum.StatusBuckets["5xx"]
	switch aggregate {
	case "count":
		return float64(failures), nil
	case "rate":
		if sum.Count == 0 {
			return 0, nil
		}
		return float64(failures) / float64(sum.Count), nil
	default:
		return 0, fmt.Errorf("aggregate %q not valid for http_req_failed", aggregate)
	}
}

func extractRequestMetric(aggregate string, sum report.Summary) (float64, error) {
	switch aggregate {
	case "count":
		return float64(sum.Count), nil
	case "rate":
		return sum.RequestsPerSec, nil
	default:
		return 0, fmt.Errorf("aggregate %q not valid for http_requests", aggregate)
	}
}

func compareValues(actual float64, operator string, expected float64) bool {
	switch operator {
	case "<":
		return actual < expected
	case "<=":
		return actual <= expected
	case ">":
		return actual > expected
	case ">=":
		return actual >= expected
	case "==":
		return actual == expected
	default:
		return false
	}
}
