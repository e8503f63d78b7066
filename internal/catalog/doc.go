// Package catalog is the relational store behind the library synchronizer
// and the HTTP API. It persists media items keyed by unique library code,
// the shared genre/tag vocabulary with link tables, favorites, the single
// user account with its sessions, and housekeeping metadata.
//
// Uniqueness is the engine's responsibility: codes and vocabulary names are
// UNIQUE columns, and vocabulary get-or-create is insert-or-ignore followed
// by select within the caller's transaction. A synchronization run writes
// through one transaction (BeginRun/EndRun) so a failed run leaves the
// catalog untouched.
package catalog
