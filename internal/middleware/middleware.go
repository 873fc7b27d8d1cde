// Package middleware instruments an http.Handler: one profiling event per
// completed request, recorded into the aggregation engine. The profiler
// must never fail a request it observes, so every error on the recording
// path is swallowed after being counted or logged.
package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/reqlens/reqlens/internal/engine"
	"github.com/reqlens/reqlens/internal/tracing"
)

// RouteResolver maps a request to its endpoint key: the HTTP method and the
// route pattern with path parameters abstracted ("/users/{id}"). Returning
// an empty path skips profiling for that request.
type RouteResolver func(*http.Request) (method, pathTemplate string)

// DefaultRouteResolver uses the ServeMux pattern when the router recorded
// one (Go 1.22+) and falls back to the raw URL path. Plug a router-specific
// resolver via WithRouteResolver when the fallback would leak parameter
// values into the registry.
func DefaultRouteResolver(r *http.Request) (string, string) {
	if r.Pattern != "" {
		// Patterns look like "GET /users/{id}" or "/users/{id}".
		pattern := r.Pattern
		if i := strings.IndexByte(pattern, ' '); i >= 0 {
			pattern = pattern[i+1:]
		}
		return r.Method, pattern
	}
	return r.Method, r.URL.Path
}

type options struct {
	resolver RouteResolver
	logger   *zap.Logger
	tracer   trace.Tracer
	limiter  *rate.Limiter
}

// Option customizes the middleware.
type Option func(*options)

// WithRouteResolver replaces the default endpoint key resolver.
func WithRouteResolver(r RouteResolver) Option {
	return func(o *options) { o.resolver = r }
}

// WithLogger sets the logger used for throttled recording-path warnings.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithTracer enables a server span per profiled request.
func WithTracer(t trace.Tracer) Option {
	return func(o *options) { o.tracer = t }
}

// WithMaxEventsPerSec sheds profiling (not serving) above n events per
// second. n <= 0 means unlimited.
func WithMaxEventsPerSec(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.limiter = rate.NewLimiter(rate.Limit(n), n)
		}
	}
}

// Handler wraps next so every completed request is ingested into eng.
// Downstream panics are recorded as failed 500s and re-raised.
func Handler(eng *engine.Engine, next http.Handler, opts ...Option) http.Handler {
	o := options{
		resolver: DefaultRouteResolver,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	// One warning per second at most; the request path must stay quiet.
	warnLimiter := rate.NewLimiter(rate.Every(time.Second), 1)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if o.limiter != nil && !o.limiter.Allow() {
			next.ServeHTTP(w, r)
			return
		}

		start := time.Now()
		rw := newResponseWriter(w)

		var span trace.Span
		method, route := o.resolver(r)
		if o.tracer != nil && route != "" {
			ctx, s := tracing.StartServerSpan(r, o.tracer, route)
			span = s
			r = r.WithContext(ctx)
		}

		defer func() {
			rec := recover()

			status := rw.Status()
			if rec != nil {
				status = http.StatusInternalServerError
			}
			if span != nil {
				tracing.EndServerSpan(span, status)
			}
			if route != "" {
				ev := engine.RequestEvent{
					ID:         ulid.Make().String(),
					Method:     method,
					Path:       route,
					Status:     status,
					Start:      start,
					DurationMs: float64(time.Since(start)) / float64(time.Millisecond),
					BytesIn:    r.ContentLength,
					BytesOut:   rw.BytesWritten(),
					Failed:     rec != nil,
				}
				if err := eng.Ingest(ev); err != nil && warnLimiter.Allow() {
					o.logger.Warn("profiling event rejected", zap.Error(err))
				}
			}
			if rec != nil {
				panic(rec)
			}
		}()

		next.ServeHTTP(rw, r)
	})
}

// RecordQuery ingests one executed query. rows may be engine.RowsUnknown.
// Safe to call with query metrics disabled; the event is then dropped.
func RecordQuery(eng *engine.Engine, fingerprint string, d time.Duration, rows int64, err error) {
	_ = eng.IngestQuery(engine.QueryEvent{
		ID:          ulid.Make().String(),
		Fingerprint: fingerprint,
		Start:       time.Now().Add(-d),
		DurationMs:  float64(d) / float64(time.Millisecond),
		Rows:        rows,
		Failed:      err != nil,
	})
}

// TimeQuery measures fn and records it as one query event under the given
// statement fingerprint. The callee's error is returned unchanged.
func TimeQuery(eng *engine.Engine, fingerprint string, fn func() error) error {
	start := time.Now()
	err := fn()
	RecordQuery(eng, fingerprint, time.Since(start), engine.RowsUnknown, err)
	return err
}
