// Package cache is the on-disk store of staged build artifacts. Each staged
// key occupies one slot (directory) under the cache root. The filesystem is
// the source of truth for staged status: it survives server restarts and
// outlives the staging coordinator's in-memory task records.
//
// The cache is bounded by an eviction pass that runs once at startup, never
// per request, so a staged artifact is never deleted while it may be in use.
package cache
