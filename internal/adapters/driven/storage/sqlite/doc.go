// Package sqlite provides a SQLite-backed implementation of the KVStore port.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that
// requires no CGO. Values are opaque JSON blobs stored under string keys in a
// single table. SetMany writes all of its entries in one transaction so a
// document and its chunks are never persisted separately.
//
// # Schema
//
// The schema is managed through versioned migrations in migrations/.
//
// # Data Location
//
// By default, the database is stored at ~/.sercha-chat/data/store.db
package sqlite
