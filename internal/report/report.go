// Package report is the read side of the profiler: consistent point-in-time
// views over the engine's mutable aggregates for dashboards and exports.
// All operations are side-effect-free and never block ingestion beyond the
// engine's scoped per-entry locks.
package report

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/reqlens/reqlens/internal/engine"
	"github.com/reqlens/reqlens/internal/metrics"
)

// QueryError reports an invalid read-side parameter. It is surfaced to the
// caller rather than silently corrected.
type QueryError struct {
	Param  string
	Reason string
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Param, e.Reason)
}

// SortField selects the endpoint-table sort dimension.
type SortField string

const (
	SortMethod SortField = "method"
	SortPath   SortField = "path"
	SortAvg    SortField = "avg"
	SortMax    SortField = "max"
	SortMin    SortField = "min"
	SortCount  SortField = "count"
	SortP95    SortField = "p95"
)

// Order selects ascending or descending output.
type Order string

const (
	OrderAsc  Order = "asc"
	OrderDesc Order = "desc"
)

// Page holds common pagination and filtering parameters. A zero Limit means
// "no limit"; Search filters by case-insensitive substring match.
type Page struct {
	Offset int
	Limit  int
	Search string
}

func (p Page) validate() error {
	if p.Offset < 0 {
		return &QueryError{Param: "offset", Reason: "must be >= 0"}
	}
	if p.Limit < 0 {
		return &QueryError{Param: "limit", Reason: "must be >= 0"}
	}
	return nil
}

func (p Page) slice(n int) (lo, hi int) {
	lo = p.Offset
	if lo > n {
		lo = n
	}
	hi = n
	if p.Limit > 0 && lo+p.Limit < hi {
		hi = lo + p.Limit
	}
	return lo, hi
}

// Summary is the global roll-up served to the dashboard header.
type Summary struct {
	metrics.Stats
	RequestsPerSec  float64          `json:"requests_per_sec"`
	UniqueEndpoints int              `json:"unique_endpoints"`
	InvalidEvents   int64            `json:"invalid_events"`
	StatusBuckets   map[string]int64 `json:"status_buckets,omitempty"`
	UptimeSeconds   float64          `json:"uptime_seconds"`
	Queries         *metrics.Stats   `json:"queries,omitempty"`
}

// Service answers read queries against one engine instance. It holds no
// mutating handle; every method reads best-effort fresh state.
type Service struct {
	eng *engine.Engine
}

// NewService creates a read service bound to eng.
func NewService(eng *engine.Engine) *Service {
	return &Service{eng: eng}
}

// Summary returns the global statistics, endpoint cardinality, and status
// buckets. With zero events all latency fields are zero and Count is 0;
// that is data absence, not an error.
func (s *Service) Summary() Summary {
	stats, buckets := s.eng.GlobalStats()
	sum := Summary{
		Stats:           stats,
		UniqueEndpoints: s.eng.Registry().Size(),
		InvalidEvents:   s.eng.InvalidEvents(),
		StatusBuckets:   buckets,
	}
	if uptime := time.Since(s.eng.StartedAt()); uptime > 0 {
		sum.UptimeSeconds = uptime.Seconds()
		if stats.Count > 0 {
			sum.RequestsPerSec = float64(stats.Count) / uptime.Seconds()
		}
	}
	if s.eng.QueryMetricsEnabled() {
		qs := s.eng.QueryStats()
		sum.Queries = &qs
	}
	return sum
}

// Endpoints returns one row per endpoint matching page.Search, sorted by
// sortBy/order with lexicographic key order as the tie-break, then
// paginated. total is the matching row count before pagination.
func (s *Service) Endpoints(sortBy SortField, order Order, page Page) (rows []engine.EndpointStats, total int, err error) {
	less, err := endpointLess(sortBy, order)
	if err != nil {
		return nil, 0, err
	}
	if err := page.validate(); err != nil {
		return nil, 0, err
	}

	rows = s.eng.Registry().Stats()
	if page.Search != "" {
		needle := strings.ToLower(page.Search)
		kept := rows[:0]
		for _, row := range rows {
			if strings.Contains(strings.ToLower(row.EndpointKey().String()), needle) {
				kept = append(kept, row)
			}
		}
		rows = kept
	}

	sort.Slice(rows, func(i, j int) bool { return less(rows[i], rows[j]) })

	total = len(rows)
	lo, hi := page.slice(total)
	return rows[lo:hi], total, nil
}

// RecentRequests returns retained request events, newest first unless order
// is OrderAsc. total is the matching event count before pagination. An
// endpoint no event matches yields an empty row set, not an error.
func (s *Service) RecentRequests(order Order, page Page) (rows []engine.RequestEvent, total int, err error) {
	if err := validateOrder(order); err != nil {
		return nil, 0, err
	}
	if err := page.validate(); err != nil {
		return nil, 0, err
	}

	rows = s.eng.RecentRequests()
	if page.Search != "" {
		needle := strings.ToLower(page.Search)
		kept := rows[:0]
		for _, ev := range rows {
			if strings.Contains(strings.ToLower(ev.Key().String()), needle) {
				kept = append(kept, ev)
			}
		}
		rows = kept
	}
	if order != OrderAsc {
		reverse(rows)
	}

	total = len(rows)
	lo, hi := page.slice(total)
	return rows[lo:hi], total, nil
}

// RecentQueries is the query-stream counterpart of RecentRequests,
// filtering on the statement fingerprint.
func (s *Service) RecentQueries(order Order, page Page) (rows []engine.QueryEvent, total int, err error) {
	if err := validateOrder(order); err != nil {
		return nil, 0, err
	}
	if err := page.validate(); err != nil {
		return nil, 0, err
	}

	rows = s.eng.RecentQueries()
	if page.Search != "" {
		needle := strings.ToLower(page.Search)
		kept := rows[:0]
		for _, ev := range rows {
			if strings.Contains(strings.ToLower(ev.Fingerprint), needle) {
				kept = append(kept, ev)
			}
		}
		rows = kept
	}
	if order != OrderAsc {
		reverse(rows)
	}

	total = len(rows)
	lo, hi := page.slice(total)
	return rows[lo:hi], total, nil
}

func endpointLess(sortBy SortField, order Order) (func(a, b engine.EndpointStats) bool, error) {
	if err := validateOrder(order); err != nil {
		return nil, err
	}

	var cmp func(a, b engine.EndpointStats) int
	switch sortBy {
	case SortMethod:
		cmp = func(a, b engine.EndpointStats) int { return strings.Compare(a.Method, b.Method) }
	case SortPath:
		cmp = func(a, b engine.EndpointStats) int { return strings.Compare(a.Path, b.Path) }
	case SortAvg, "":
		cmp = func(a, b engine.EndpointStats) int { return compareFloat(a.MeanMs, b.MeanMs) }
	case SortMax:
		cmp = func(a, b engine.EndpointStats) int { return compareFloat(a.MaxMs, b.MaxMs) }
	case SortMin:
		cmp = func(a, b engine.EndpointStats) int { return compareFloat(a.MinMs, b.MinMs) }
	case SortCount:
		cmp = func(a, b engine.EndpointStats) int { return compareFloat(float64(a.Count), float64(b.Count)) }
	case SortP95:
		cmp = func(a, b engine.EndpointStats) int { return compareFloat(a.P95Ms, b.P95Ms) }
	default:
		return nil, &QueryError{Param: "sort", Reason: fmt.Sprintf("unknown field %q", sortBy)}
	}

	descending := order != OrderAsc
	return func(a, b engine.EndpointStats) bool {
		c := cmp(a, b)
		if c == 0 {
			return a.EndpointKey().String() < b.EndpointKey().String()
		}
		if descending {
			return c > 0
		}
		return c < 0
	}, nil
}

func validateOrder(order Order) error {
	switch order {
	case OrderAsc, OrderDesc, "":
		return nil
	default:
		return &QueryError{Param: "order", Reason: fmt.Sprintf("must be %q or %q", OrderAsc, OrderDesc)}
	}
}

func compareFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func reverse[T any](s []T) {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
}
