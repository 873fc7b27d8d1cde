package threshold

import (
	"strings"
	"testing"

	"github.com/reqlens/reqlens/internal/metrics"
	"github.com/reqlens/reqlens/internal/report"
)

func TestParseValidThresholds(t *testing.T) {
	cases := []struct {
		input     string
		metric    string
		aggregate string
		operator  string
		value     float64
	}{
		{"http_req_duration:p95 < 500", "http_req_duration", "p95", "<", 500},
		{"http_req_duration:avg<=200", "http_req_duration", "avg", "<=", 200},
		{"http_req_failed:rate < 0.01", "http_req_failed", "rate", "<", 0.01},
		{"http_req_failed:count == 0", "http_req_failed", "count", "==", 0},
		{"http_requests:rate > 100", "http_requests", "rate", ">", 100},
		{"  http_req_duration:max >= 1000  ", "http_req_duration", "max", ">=", 1000},
	}
	for _, tc := range cases {
		got, err := Parse(tc.input)
		if err != nil {
			t.Errorf("Parse(%q): %v", tc.input, err)
			continue
		}
		if got.Metric != tc.metric || got.Aggregate != tc.aggregate ||
			got.Operator != tc.operator || got.Value != tc.value {
			t.Errorf("Parse(%q) = %+v", tc.input, got)
		}
	}
}

func TestParseInvalidThresholds(t *testing.T) {
	cases := []string{
		"",
		"nonsense",
		"http_req_duration < 500",
		"bogus_metric:p95 < 500",
		"http_req_duration:p42 < 500",
		"http_req_duration:p95 ! 500",
		"http_req_failed:p95 < abc",
	}
	for _, input := range cases {
		if _, err := Parse(input); err == nil {
			t.Errorf("Parse(%q) succeeded, want error", input)
		}
	}
}

func TestParseMultipleCollectsAllErrors(t *testing.T) {
	_, err := ParseMultiple([]string{
		"http_req_duration:p95 < 500",
		"broken",
		"also:broken < x",
	})
	if err == nil {
		t.Fatal("ParseMultiple succeeded with invalid inputs")
	}
	if !strings.Contains(err.Error(), "threshold[1]") || !strings.Contains(err.Error(), "threshold[2]") {
		t.Errorf("error does not name both bad entries: %v", err)
	}

	ts, err := ParseMultiple(nil)
	if err != nil || ts != nil {
		t.Errorf("ParseMultiple(nil) = %v, %v; want nil, nil", ts, err)
	}
}

func testSummary() report.Summary {
	return report.Summary{
		Stats: metrics.Stats{
			Count:  200,
			MeanMs: 45,
			MinMs:  2,
			MaxMs:  900,
			P50Ms:  30,
			P95Ms:  150,
			P99Ms:  400,
		},
		RequestsPerSec: 50,
		StatusBuckets:  map[string]int64{"2xx": 196, "5xx": 4},
	}
}

func TestEvaluate(t *testing.T) {
	cases := []struct {
		threshold string
		pass      bool
	}{
		{"http_req_duration:p95 < 200", true},
		{"http_req_duration:p95 < 100", false},
		{"http_req_duration:avg <= 45", true},
		{"http_req_duration:max < 900", false},
		{"http_req_failed:rate < 0.03", true},
		{"http_req_failed:count == 4", true},
		{"http_requests:rate > 100", false},
		{"http_requests:count >= 200", true},
	}

	sum := testSummary()
	for _, tc := range cases {
		th, err := Parse(tc.threshold)
		if err != nil {
			t.Fatalf("Parse(%q): %v", tc.threshold, err)
		}
		results := NewEvaluator([]Threshold{th}).Evaluate(sum)
		if len(results) != 1 {
			t.Fatalf("got %d results, want 1", len(results))
		}
		if results[0].Pass != tc.pass {
			t.Errorf("%q: pass = %v, want %v (actual %v)", tc.threshold, results[0].Pass, tc.pass, results[0].Actual)
		}
	}
}

func TestEvaluateFailureRateWithNoTraffic(t *testing.T) {
	th, _ := Parse("http_req_failed:rate < 0.01")
	results := NewEvaluator([]Threshold{th}).Evaluate(report.Summary{})
	if len(results) != 1 || !results[0].Pass {
		t.Errorf("zero-traffic failure rate should pass: %+v", results)
	}
}

func TestEvaluatorNilAndEmpty(t *testing.T) {
	var e *Evaluator
	if got := e.Evaluate(testSummary()); got != nil {
		t.Errorf("nil evaluator returned %v, want nil", got)
	}
	if got := NewEvaluator(nil).Evaluate(testSummary()); got != nil {
		t.Errorf("empty evaluator returned %v, want nil", got)
	}
}
