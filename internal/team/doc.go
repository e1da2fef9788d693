// Package team holds the team aggregate: the single source of truth for one
// team's agents, task board and message log.
//
// The central type is [Store]. One Store guards one in-memory [StateData]
// with a single read-write lock; writes are exclusive, reads are shared.
// Every mutation rewrites the whole aggregate to
// <persist-dir>/<sanitized-team-name>.json.
//
// # Discovery
//
// A Store that holds no aggregate scans its persistence directory at the top
// of every operation and adopts the first snapshot it finds. The scan runs
// without the lock; installing the result is double-checked under the write
// lock so concurrent callers agree on one aggregate. Once an aggregate is
// resident the Store never re-reads disk, so writes from another process
// sharing the directory stay invisible until this process restarts.
//
// # Failure model
//
// Mutations are applied in memory and then persisted. If the snapshot write
// fails the caller receives a storage error but the in-memory change is kept,
// leaving memory ahead of disk for the rest of the process lifetime.
package team
