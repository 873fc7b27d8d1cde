// Package engine is the concurrent ingestion and aggregation core of the
// profiler.
//
// Producers (the HTTP middleware, query hooks) call [Engine.Ingest] and
// [Engine.IngestQuery] once per completed operation. Each event updates the
// global accumulator, the per-endpoint accumulator, and the bounded
// recent-event rings in one pass; per-event cost is O(1) apart from the
// first sighting of a new endpoint key.
//
// Lock granularity is one mutex per endpoint entry plus one for the global
// accumulator/ring pair, so concurrent requests to different endpoints do
// not serialize against each other. Readers take the same short-lived locks
// and therefore observe each event either fully applied or not at all; no
// global total order is promised across concurrent writers.
//
// Endpoint keys accumulate for the life of the process. Routes with path
// parameters must be abstracted by the caller ("/users/{id}", not
// "/users/42") or the registry grows with every distinct URL.
package engine
