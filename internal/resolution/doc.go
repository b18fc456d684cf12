// Package resolution owns the in-memory collection of resolutions and its
// flat-file JSON backing store.
//
// The backing file is a JSON array of resolution objects. The Store reads
// it whole, answers lookups with a linear scan, and rewrites it whole on
// every create. There is no index and no incremental write path.
//
// # Round-trip
//
// A Record remembers the keys it was decoded with, their order, and any
// keys it does not model. Persisting an unmodified collection reproduces
// the same objects: no defaults are backfilled and unknown keys survive.
// Display defaults ("—", "Case <n>") belong to the render package.
//
// # Concurrency
//
// Reload, Create and Persist run under a single write lock so that two
// creates cannot interleave their append and rewrite. Find and Latest take
// the read lock and return deep copies.
package resolution
