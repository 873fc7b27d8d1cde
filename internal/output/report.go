// Package output renders the final profiling report for the terminal.
package output

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/reqlens/reqlens/internal/engine"
	"github.com/reqlens/reqlens/internal/metrics"
	"github.com/reqlens/reqlens/internal/report"
)

// PrintReport outputs a human-readable profiling summary.
func PrintReport(w io.Writer, sum report.Summary, endpoints []engine.EndpointStats) {
	fmt.Fprintln(w, "\n--- Profiling Summary ---")
	fmt.Fprintf(w, "Total Requests:    %d\n", sum.Count)
	fmt.Fprintf(w, "Unique Endpoints:  %d\n", sum.UniqueEndpoints)
	fmt.Fprintf(w, "Invalid Events:    %d\n", sum.InvalidEvents)
	fmt.Fprintf(w, "Requests/sec:      %.2f\n", sum.RequestsPerSec)
	fmt.Fprintln(w, "\nLatency:")
	fmt.Fprintf(w, "  Min:             %.2fms\n", sum.MinMs)
	fmt.Fprintf(w, "  Max:             %.2fms\n", sum.MaxMs)
	fmt.Fprintf(w, "  Mean:            %.2fms\n", sum.MeanMs)
	fmt.Fprintf(w, "  P50:             %.2fms\n", sum.P50Ms)
	fmt.Fprintf(w, "  P90:             %.2fms\n", sum.P90Ms)
	fmt.Fprintf(w, "  P95:             %.2fms\n", sum.P95Ms)
	fmt.Fprintf(w, "  P99:             %.2fms\n", sum.P99Ms)

	if len(sum.StatusBuckets) > 0 {
		fmt.Fprintln(w, "\nStatus Buckets:")
		for _, row := range metrics.FlattenStatusCounts(sum.StatusBuckets) {
			fmt.Fprintf(w, "  %s: %d\n", row.Class, row.Count)
		}
	}

	if len(endpoints) > 0 {
		fmt.Fprintln(w, "\nEndpoint Breakdown:")
		for _, ep := range endpoints {
			share := 0.0
			if sum.Count > 0 {
				share = (float64(ep.Count) / float64(sum.Count)) * 100
			}
			fmt.Fprintf(
				w,
				"  - %s %s: count=%d (%.1f%%), failures=%d, avg=%.2fms, p95=%.2fms, max=%.2fms\n",
				ep.Method,
				ep.Path,
				ep.Count,
				share,
				ep.Failures,
				ep.MeanMs,
				ep.P95Ms,
				ep.MaxMs,
			)
		}
	}

	if sum.Queries != nil {
		fmt.Fprintln(w, "\nQuery Metrics:")
		fmt.Fprintf(w, "  Total:           %d\n", sum.Queries.Count)
		fmt.Fprintf(w, "  Mean:            %.2fms\n", sum.Queries.MeanMs)
		fmt.Fprintf(w, "  P95:             %.2fms\n", sum.Queries.P95Ms)
		fmt.Fprintf(w, "  Max:             %.2fms\n", sum.Queries.MaxMs)
	}
}

// jsonReport is the machine-readable rendering of a profiling run.
type jsonReport struct {
	Summary   report.Summary         `json:"summary"`
	Endpoints []engine.EndpointStats `json:"endpoints,omitempty"`
}

// PrintJSONReport outputs the summary and endpoint table as indented JSON.
func PrintJSONReport(w io.Writer, sum report.Summary, endpoints []engine.EndpointStats) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(jsonReport{Summary: sum, Endpoints: endpoints})
}
