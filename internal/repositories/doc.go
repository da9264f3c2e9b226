// package repositories provides the persistence layer for the match cache.
//
// The cache is the only durable state the sync engine owns. It lives in a
// SQLite database; each entry is written with a single UPSERT so a crash
// mid-write never leaves a corrupt row and concurrent stores for
// different fingerprints never interfere.
package repositories
