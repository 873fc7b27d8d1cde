package engine

import "time"

// Key identifies one logical API operation: an HTTP method plus the route
// pattern with path parameters abstracted (e.g. "GET /users/{id}"). The
// engine trusts the key it is given; normalization is the caller's job.
type Key struct {
	Method string `json:"method"`
	Path   string `json:"path"`
}

func (k Key) String() string {
	return k.Method + " " + k.Path
}

// RequestEvent describes one completed HTTP request. Immutable once built.
type RequestEvent struct {
	ID         string    `json:"id,omitempty"`
	Method     string    `json:"method"`
	Path       string    `json:"path"`
	Status     int       `json:"status"`
	Start      time.Time `json:"start"`
	DurationMs float64   `json:"duration_ms"`
	BytesIn    int64     `json:"bytes_in,omitempty"`
	BytesOut   int64     `json:"bytes_out,omitempty"`
	Failed     bool      `json:"failed,omitempty"`
}

// Key returns the endpoint key the event belongs to.
func (e RequestEvent) Key() Key {
	return Key{Method: e.Method, Path: e.Path}
}

// RowsUnknown marks a query event whose affected-row count was not reported.
const RowsUnknown = -1

// QueryEvent describes one executed database query. Fingerprint is the
// normalized statement text produced by the caller. Immutable once built.
type QueryEvent struct {
	ID          string    `json:"id,omitempty"`
	Fingerprint string    `json:"fingerprint"`
	Start       time.Time `json:"start"`
	DurationMs  float64   `json:"duration_ms"`
	Rows        int64     `json:"rows"`
	Failed      bool      `json:"failed,omitempty"`
}
