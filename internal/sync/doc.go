// Package sync reconciles sidecar metadata on disk into the catalog store.
//
// A run walks every configured library root, parses each sidecar document,
// resolves the co-located media file by fixed extension priority, and
// performs a full-refresh upsert keyed by library code. Template stems are
// skipped, and the first occurrence of a code wins across all roots. The
// whole run writes through one transaction committed at the end; runs are
// serialized by an advisory lock so an API trigger can be rejected while a
// run is in flight.
package sync
